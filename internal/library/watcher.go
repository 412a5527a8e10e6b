package library

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yomu-app/yomu/internal/uilog"
)

// Watcher monitors the open folder for image changes so the page list can
// refresh while reading. Directories are watched directly; for archives
// the containing directory is watched and events filtered to the archive
// file.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(folderPath string)
	done     chan struct{}

	mu     sync.Mutex
	folder string // open folder (directory or archive path)
	target string // fsnotify watch target
}

// NewWatcher creates a watcher that calls onChange with the open folder
// path after its contents settle. A zero debounce defaults to 500ms.
func NewWatcher(debounce time.Duration, onChange func(folderPath string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		watcher:  fw,
		debounce: debounce,
		onChange: onChange,
		done:     make(chan struct{}),
	}, nil
}

// Start begins the event loop.
func (w *Watcher) Start(ctx context.Context) {
	go w.watchLoop(ctx)
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}

// SetFolder switches the watch to a newly opened folder. An empty path
// clears the watch.
func (w *Watcher) SetFolder(folderPath string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.target != "" {
		w.watcher.Remove(w.target)
		w.target = ""
	}
	w.folder = folderPath
	if folderPath == "" {
		return
	}

	target := folderPath
	if IsArchivePath(folderPath) {
		target = filepath.Dir(folderPath)
	}
	if err := w.watcher.Add(target); err != nil {
		uilog.Log.Warn("watcher: failed to watch folder", "folder", folderPath, "error", err)
		return
	}
	w.target = target
}

func (w *Watcher) watchLoop(ctx context.Context) {
	// Debounce timer to avoid refresh storms while files are copied in
	timers := make(map[string]*time.Timer)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			folder, relevant := w.relevant(event)
			if !relevant {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer, ok := timers[folder]; ok {
				timer.Stop()
			}
			timers[folder] = time.AfterFunc(w.debounce, func() {
				w.onChange(folder)
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			uilog.Log.Warn("watcher: fsnotify error", "error", err)

		case <-w.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// relevant maps an fsnotify event to the open folder it concerns.
func (w *Watcher) relevant(event fsnotify.Event) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.folder == "" {
		return "", false
	}
	if IsArchivePath(w.folder) {
		// Watching the parent directory; only the archive file matters.
		return w.folder, event.Name == w.folder
	}
	return w.folder, IsImagePath(event.Name)
}
