package yomu

import (
	"encoding/json"
	"sync"
	"time"
)

// DefaultQuietWindow is the debounce window for position writes.
const DefaultQuietWindow = 500 * time.Millisecond

// resumeKey namespaces per-folder resume entries in the store.
func resumeKey(folderKey string) string {
	return "resume:" + folderKey
}

// PersistLogger receives best-effort write failures. Matches the uilog
// signature so the TUI logger plugs in directly.
type PersistLogger interface {
	Warn(msg string, keyvals ...any)
}

// Bridge persists per-folder reading positions with bounded I/O. Bursts
// of RecordPosition calls for the same key inside the quiet window
// collapse into a single write of the latest values. Writes are
// best-effort: losing a resume point is acceptable, corrupting state is
// not, so failures are logged and swallowed.
//
// Resume reads the store directly and deliberately gives no
// read-your-debounced-write guarantee; callers wanting the freshest value
// right after a local change read their own in-memory state.
type Bridge struct {
	kv    KV
	quiet time.Duration
	log   PersistLogger

	// Debounce timers fire on their own goroutines (time.AfterFunc), so
	// unlike the rest of this package the pending map is mutex-guarded.
	mu      sync.Mutex
	pending map[string]ResumeState
	timers  map[string]*time.Timer
}

// NewBridge creates a bridge over kv. A zero quiet window defaults to
// DefaultQuietWindow. log may be nil.
func NewBridge(kv KV, quiet time.Duration, log PersistLogger) *Bridge {
	if quiet <= 0 {
		quiet = DefaultQuietWindow
	}
	return &Bridge{
		kv:      kv,
		quiet:   quiet,
		log:     log,
		pending: make(map[string]ResumeState),
		timers:  make(map[string]*time.Timer),
	}
}

// RecordPosition schedules a durable save of the reading position for
// folderKey. Repeated calls within the quiet window reset the timer and
// keep only the latest values.
func (b *Bridge) RecordPosition(folderKey string, index int, zoom float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending[folderKey] = ResumeState{Index: index, Zoom: zoom}
	if t, ok := b.timers[folderKey]; ok {
		t.Stop()
	}
	b.timers[folderKey] = time.AfterFunc(b.quiet, func() {
		b.flushKey(folderKey)
	})
}

// Flush writes any pending position for folderKey immediately. Called on
// teardown: folder switch, session close, app exit.
func (b *Bridge) Flush(folderKey string) {
	b.mu.Lock()
	if t, ok := b.timers[folderKey]; ok {
		t.Stop()
		delete(b.timers, folderKey)
	}
	b.mu.Unlock()
	b.flushKey(folderKey)
}

// FlushAll writes every pending position. Called on app exit.
func (b *Bridge) FlushAll() {
	b.mu.Lock()
	keys := make([]string, 0, len(b.pending))
	for k := range b.pending {
		keys = append(keys, k)
	}
	for k, t := range b.timers {
		t.Stop()
		delete(b.timers, k)
	}
	b.mu.Unlock()

	for _, k := range keys {
		b.flushKey(k)
	}
}

// flushKey performs the underlying write for one key, if still pending.
func (b *Bridge) flushKey(folderKey string) {
	b.mu.Lock()
	state, ok := b.pending[folderKey]
	if ok {
		delete(b.pending, folderKey)
	}
	delete(b.timers, folderKey)
	b.mu.Unlock()
	if !ok {
		return
	}

	data, err := json.Marshal(state)
	if err != nil {
		b.warn("encode resume state", "folder", folderKey, "error", err)
		return
	}
	if err := b.kv.Save(resumeKey(folderKey), string(data)); err != nil {
		b.warn("save resume state", "folder", folderKey, "error", err)
	}
}

// Resume returns the persisted reading position for folderKey. Absence or
// a read failure falls back to (zero value, false); the caller seeds index
// 0 and the default zoom.
func (b *Bridge) Resume(folderKey string) (ResumeState, bool) {
	raw, ok, err := b.kv.Load(resumeKey(folderKey))
	if err != nil {
		b.warn("load resume state", "folder", folderKey, "error", err)
		return ResumeState{}, false
	}
	if !ok {
		return ResumeState{}, false
	}
	var state ResumeState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		b.warn("decode resume state", "folder", folderKey, "error", err)
		return ResumeState{}, false
	}
	return state, true
}

func (b *Bridge) warn(msg string, keyvals ...any) {
	if b.log != nil {
		b.log.Warn(msg, keyvals...)
	}
}
