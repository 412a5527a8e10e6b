// Package fetch runs the companion download queue: jobs pull chapter
// pages from a source and materialize them as image folders under the
// library root, where the viewer picks them up.
package fetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yomu-app/yomu/internal/uilog"
)

// JobStatus is the lifecycle state of a fetch job.
type JobStatus string

const (
	StatusQueued   JobStatus = "queued"
	StatusRunning  JobStatus = "running"
	StatusDone     JobStatus = "done"
	StatusFailed   JobStatus = "failed"
	StatusCanceled JobStatus = "canceled"
)

// Job is one chapter download.
type Job struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Title     string    `json:"title"`
	Status    JobStatus `json:"status"`
	Pages     int       `json:"pages"`
	Fetched   int       `json:"fetched"`
	Dir       string    `json:"dir,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Progress is one progress event published while a job runs.
type Progress struct {
	JobID   string    `json:"job_id"`
	Status  JobStatus `json:"status"`
	Pages   int       `json:"pages"`
	Fetched int       `json:"fetched"`
	Error   string    `json:"error,omitempty"`
}

// Page is one downloadable page of a chapter.
type Page struct {
	Name string // file name within the chapter folder
	Ref  string // source-specific reference passed to FetchPage
}

// Source resolves chapter references into page lists and downloads
// individual pages. Implementations wrap whatever site or API the
// chapters come from.
type Source interface {
	ListPages(ctx context.Context, chapterRef string) (title string, pages []Page, err error)
	FetchPage(ctx context.Context, ref string) ([]byte, error)
}

// Queue runs fetch jobs one at a time. Pages within a job download
// concurrently up to the configured parallelism; a failed page fails the
// whole job and removes nothing already written.
type Queue struct {
	source   Source
	dir      string // library root jobs download into
	parallel int
	pubsub   *ProgressPubSub

	mu     sync.Mutex
	jobs   map[string]*Job
	order  []string // insertion order for listing
	nextID int
	cancel map[string]context.CancelFunc

	jobCh chan string
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewQueue creates a queue downloading into dir via source. parallel
// bounds concurrent page downloads per job; values below 1 default to 4.
func NewQueue(source Source, dir string, parallel int) *Queue {
	if parallel < 1 {
		parallel = 4
	}
	return &Queue{
		source:   source,
		dir:      dir,
		parallel: parallel,
		pubsub:   NewProgressPubSub(),
		jobs:     make(map[string]*Job),
		cancel:   make(map[string]context.CancelFunc),
		jobCh:    make(chan string, 128),
		done:     make(chan struct{}),
	}
}

// Start launches the single worker goroutine.
func (q *Queue) Start(ctx context.Context) {
	q.wg.Add(1)
	go q.worker(ctx)
}

// Stop cancels the running job, stops the worker, and waits for it.
func (q *Queue) Stop() {
	close(q.done)
	q.mu.Lock()
	for _, cancel := range q.cancel {
		cancel()
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Add enqueues a chapter download and returns the job. The channel slot
// is reserved under the lock so a full queue refuses the job before it is
// ever registered; concurrent adds never see a half-enqueued job.
func (q *Queue) Add(chapterRef string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := fmt.Sprintf("job-%d", q.nextID+1)
	select {
	case q.jobCh <- id:
	default:
		return nil, fmt.Errorf("queue is full")
	}
	q.nextID++
	job := &Job{
		ID:        id,
		Source:    chapterRef,
		Status:    StatusQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	q.jobs[id] = job
	q.order = append(q.order, id)
	j := *job
	return &j, nil
}

// Cancel stops a queued or running job. Finished jobs are left alone.
func (q *Queue) Cancel(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok || job.Status == StatusDone || job.Status == StatusFailed || job.Status == StatusCanceled {
		return false
	}
	if cancel, ok := q.cancel[id]; ok {
		cancel()
		return true
	}
	// Still queued: mark it so the worker skips it.
	job.Status = StatusCanceled
	job.UpdatedAt = time.Now()
	jobsTotal.WithLabelValues(string(StatusCanceled)).Inc()
	return true
}

// Get returns a copy of the job.
func (q *Queue) Get(id string) (*Job, bool) {
	j := q.snapshot(id)
	return j, j != nil
}

// List returns copies of all jobs in insertion order.
func (q *Queue) List() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Job, 0, len(q.order))
	for _, id := range q.order {
		j := *q.jobs[id]
		out = append(out, &j)
	}
	return out
}

// Subscribe follows a job's progress events.
func (q *Queue) Subscribe(jobID string) (<-chan Progress, func()) {
	return q.pubsub.Subscribe(jobID)
}

func (q *Queue) snapshot(id string) *Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[id]
	if !ok {
		return nil
	}
	j := *job
	return &j
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case id := <-q.jobCh:
			q.runJob(ctx, id)
		case <-q.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (q *Queue) runJob(ctx context.Context, id string) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok || job.Status != StatusQueued {
		q.mu.Unlock()
		return
	}
	job.Status = StatusRunning
	job.UpdatedAt = time.Now()
	jobCtx, cancel := context.WithCancel(ctx)
	q.cancel[id] = cancel
	q.mu.Unlock()

	jobsActive.Inc()
	defer jobsActive.Dec()
	defer func() {
		cancel()
		q.mu.Lock()
		delete(q.cancel, id)
		q.mu.Unlock()
	}()

	err := q.download(jobCtx, id)

	status := StatusDone
	switch {
	case jobCtx.Err() != nil:
		status = StatusCanceled
		err = nil
	case err != nil:
		status = StatusFailed
	}

	q.mu.Lock()
	job.Status = status
	job.UpdatedAt = time.Now()
	if err != nil {
		job.Error = err.Error()
		uilog.Log.Error("fetch job failed", "job", id, "error", err)
	}
	p := Progress{JobID: id, Status: job.Status, Pages: job.Pages, Fetched: job.Fetched, Error: job.Error}
	q.mu.Unlock()

	jobsTotal.WithLabelValues(string(status)).Inc()
	q.pubsub.Publish(id, p)
}

func (q *Queue) download(ctx context.Context, id string) error {
	job := q.snapshot(id)
	title, pages, err := q.source.ListPages(ctx, job.Source)
	if err != nil {
		return fmt.Errorf("list pages: %w", err)
	}
	if len(pages) == 0 {
		return fmt.Errorf("chapter has no pages")
	}

	dir := filepath.Join(q.dir, sanitizeName(title))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create chapter dir: %w", err)
	}

	q.mu.Lock()
	j := q.jobs[id]
	j.Title = title
	j.Pages = len(pages)
	j.Dir = dir
	j.UpdatedAt = time.Now()
	q.mu.Unlock()
	q.publishProgress(id)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(q.parallel)
	for _, page := range pages {
		g.Go(func() error {
			start := time.Now()
			data, err := q.source.FetchPage(gctx, page.Ref)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", page.Name, err)
			}
			if err := os.WriteFile(filepath.Join(dir, page.Name), data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", page.Name, err)
			}
			pageFetchDurationSeconds.Observe(time.Since(start).Seconds())
			pagesFetchedTotal.Inc()

			q.mu.Lock()
			q.jobs[id].Fetched++
			q.jobs[id].UpdatedAt = time.Now()
			q.mu.Unlock()
			q.publishProgress(id)
			return nil
		})
	}
	return g.Wait()
}

func (q *Queue) publishProgress(id string) {
	q.mu.Lock()
	job, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	p := Progress{JobID: id, Status: job.Status, Pages: job.Pages, Fetched: job.Fetched}
	q.mu.Unlock()
	q.pubsub.Publish(id, p)
}

// sanitizeName makes a chapter title safe as a directory name.
func sanitizeName(title string) string {
	if title == "" {
		return "untitled"
	}
	out := []rune(title)
	for i, r := range out {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			out[i] = '_'
		}
	}
	return string(out)
}

// SortJobs orders jobs newest first for display.
func SortJobs(jobs []*Job) {
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
}
