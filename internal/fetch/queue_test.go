package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// fakeSource serves a fixed chapter of generated pages.
type fakeSource struct {
	title string
	pages int
	fail  map[string]error
	block chan struct{} // when set, FetchPage waits until closed
}

func (s *fakeSource) ListPages(ctx context.Context, chapterRef string) (string, []Page, error) {
	if err, ok := s.fail["list"]; ok {
		return "", nil, err
	}
	pages := make([]Page, s.pages)
	for i := range pages {
		pages[i] = Page{
			Name: fmt.Sprintf("%03d.png", i+1),
			Ref:  fmt.Sprintf("%s/%d", chapterRef, i+1),
		}
	}
	return s.title, pages, nil
}

func (s *fakeSource) FetchPage(ctx context.Context, ref string) ([]byte, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := s.fail[ref]; ok {
		return nil, err
	}
	return []byte("page:" + ref), nil
}

func waitStatus(t *testing.T, q *Queue, id string, want ...JobStatus) *Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := q.Get(id)
		if !ok {
			t.Fatalf("job %s vanished", id)
		}
		for _, s := range want {
			if job.Status == s {
				return job
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := q.Get(id)
	t.Fatalf("job %s stuck in %q, want one of %v", id, job.Status, want)
	return nil
}

func TestQueueDownloadsChapter(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{title: "ch1", pages: 5}
	q := NewQueue(src, dir, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	job, err := q.Add("series/ch1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	done := waitStatus(t, q, job.ID, StatusDone)
	if done.Pages != 5 || done.Fetched != 5 {
		t.Errorf("job = %d/%d pages", done.Fetched, done.Pages)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "ch1"))
	if err != nil {
		t.Fatalf("read chapter dir: %v", err)
	}
	if len(entries) != 5 {
		t.Errorf("wrote %d files, want 5", len(entries))
	}
	data, err := os.ReadFile(filepath.Join(dir, "ch1", "001.png"))
	if err != nil {
		t.Fatalf("read page: %v", err)
	}
	if string(data) != "page:series/ch1/1" {
		t.Errorf("page content = %q", data)
	}
}

func TestQueueFailedPageFailsJob(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{
		title: "ch1", pages: 3,
		fail: map[string]error{"series/ch1/2": errors.New("404")},
	}
	q := NewQueue(src, dir, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	job, err := q.Add("series/ch1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	failed := waitStatus(t, q, job.ID, StatusFailed)
	if failed.Error == "" {
		t.Error("failed job carries no error message")
	}
}

func TestQueueListError(t *testing.T) {
	src := &fakeSource{fail: map[string]error{"list": errors.New("unreachable")}}
	q := NewQueue(src, t.TempDir(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	job, err := q.Add("series/ch1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	waitStatus(t, q, job.ID, StatusFailed)
}

func TestQueueCancelRunning(t *testing.T) {
	src := &fakeSource{title: "ch1", pages: 3, block: make(chan struct{})}
	q := NewQueue(src, t.TempDir(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	job, err := q.Add("series/ch1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	waitStatus(t, q, job.ID, StatusRunning)
	if !q.Cancel(job.ID) {
		t.Fatal("cancel refused")
	}
	close(src.block)
	waitStatus(t, q, job.ID, StatusCanceled)
}

func TestQueueCancelFinishedRefused(t *testing.T) {
	src := &fakeSource{title: "ch1", pages: 1}
	q := NewQueue(src, t.TempDir(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	job, _ := q.Add("series/ch1")
	waitStatus(t, q, job.ID, StatusDone)
	if q.Cancel(job.ID) {
		t.Error("finished job reported cancelable")
	}
	if q.Cancel("job-999") {
		t.Error("unknown job reported cancelable")
	}
}

func TestQueueProgressEvents(t *testing.T) {
	src := &fakeSource{title: "ch1", pages: 3}
	q := NewQueue(src, t.TempDir(), 1)

	// Subscribe before starting so no event is missed.
	job, err := q.Add("series/ch1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	ch, unsub := q.Subscribe(job.ID)
	defer unsub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	defer q.Stop()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case p := <-ch:
			if p.Status == StatusDone {
				if p.Fetched != 3 || p.Pages != 3 {
					t.Errorf("final event = %d/%d", p.Fetched, p.Pages)
				}
				return
			}
		case <-deadline:
			t.Fatal("no terminal progress event")
		}
	}
}

func TestQueueFullConcurrentAdds(t *testing.T) {
	src := &fakeSource{title: "ch1", pages: 1}
	q := NewQueue(src, t.TempDir(), 1)
	// Worker not started, so the channel buffer is the only capacity.

	for i := 0; i < cap(q.jobCh); i++ {
		if _, err := q.Add(fmt.Sprintf("series/ch%d", i)); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	// Overflowing adds race each other; every refused add must leave the
	// registered jobs untouched.
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = q.Add(fmt.Sprintf("overflow/ch%d", i))
		}()
	}
	wg.Wait()

	for i, err := range errs {
		if err == nil {
			t.Errorf("overflow add %d accepted past capacity", i)
		}
	}
	jobs := q.List()
	if len(jobs) != cap(q.jobCh) {
		t.Fatalf("listed %d jobs, want %d", len(jobs), cap(q.jobCh))
	}
	for _, j := range jobs {
		if j == nil || j.ID == "" {
			t.Fatal("listing contains an unregistered job")
		}
	}
}

func TestSanitizeName(t *testing.T) {
	if got := sanitizeName(`ch 1/2: "end"?`); got != `ch 1_2_ _end__` {
		t.Errorf("sanitized = %q", got)
	}
	if got := sanitizeName(""); got != "untitled" {
		t.Errorf("empty title = %q", got)
	}
}
