package yomu

import (
	"encoding/json"
	"fmt"
)

// sessionsKey is the KV key holding the cross-restart session payload.
const sessionsKey = "sessions"

// Registry owns the set of browsing sessions and which one is active.
// It is an explicitly owned state container with a subscribe/notify
// protocol: consumers hold an injected *Registry, mutate through its
// methods, and observe changes via Subscribe.
//
// The registry is not safe for concurrent use. It is designed to be driven
// from a single cooperative loop (the bubbletea update goroutine); every
// mutation runs to completion before any subscriber or reader sees it.
type Registry struct {
	sessions []*Session // creation order
	activeID string
	nextID   int
	nextGen  uint64
	subs     map[int]func()
	nextSub  int
}

// NewRegistry creates a registry holding one default session, which is
// active. The registry never holds zero sessions.
func NewRegistry() *Registry {
	r := &Registry{subs: make(map[int]func())}
	id := r.newID()
	r.sessions = append(r.sessions, &Session{
		ID:           id,
		Title:        "Home",
		Page:         "library",
		ThumbOffsets: make(map[string]float64),
	})
	r.activeID = id
	return r
}

func (r *Registry) newID() string {
	r.nextID++
	return fmt.Sprintf("session-%d", r.nextID)
}

// nextGeneration returns a fresh folder-load generation tag, unique across
// all sessions of this registry.
func (r *Registry) nextGeneration() uint64 {
	r.nextGen++
	return r.nextGen
}

// NextGeneration hands out a generation tag for callers that install
// viewer state on a non-active session; Projector.SetImages tags the
// active session itself.
func (r *Registry) NextGeneration() uint64 {
	return r.nextGeneration()
}

// Subscribe registers fn to run after every committed mutation. The
// returned function removes the subscription.
func (r *Registry) Subscribe(fn func()) func() {
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	return func() { delete(r.subs, id) }
}

func (r *Registry) notify() {
	for _, fn := range r.subs {
		fn()
	}
}

// AddSession appends a new session with empty viewer and explorer state,
// makes it active, and returns its id.
func (r *Registry) AddSession(page string, params map[string]string, title string) string {
	id := r.newID()
	r.sessions = append(r.sessions, &Session{
		ID:           id,
		Title:        title,
		Page:         page,
		Params:       params,
		ThumbOffsets: make(map[string]float64),
	})
	r.activeID = id
	r.notify()
	return id
}

// CloseSession removes the session with the given id. Closing the last
// remaining session or an unknown id is refused; the registry always holds
// at least one session. If the closed session was active, the new active
// session is its predecessor in creation order, or the new first session
// when the first one was closed.
func (r *Registry) CloseSession(id string) bool {
	if len(r.sessions) <= 1 {
		return false
	}
	idx := r.indexOf(id)
	if idx < 0 {
		return false
	}
	r.sessions = append(r.sessions[:idx], r.sessions[idx+1:]...)
	if r.activeID == id {
		newIdx := idx - 1
		if newIdx < 0 {
			newIdx = 0
		}
		r.activeID = r.sessions[newIdx].ID
	}
	r.notify()
	return true
}

// SetActive switches the active session by id. Unknown ids are ignored.
func (r *Registry) SetActive(id string) {
	if r.indexOf(id) < 0 {
		return
	}
	if r.activeID == id {
		return
	}
	r.activeID = id
	r.notify()
}

// SetActiveIndex switches the active session by position in creation
// order. Out-of-range indices are ignored.
func (r *Registry) SetActiveIndex(i int) {
	if i < 0 || i >= len(r.sessions) {
		return
	}
	r.SetActive(r.sessions[i].ID)
}

// UpdateActive applies fn to the active session and notifies subscribers.
// fn must not retain the *Session past its return.
func (r *Registry) UpdateActive(fn func(*Session)) {
	s := r.active()
	fn(s)
	r.notify()
}

// UpdateSession applies fn to the session with the given id, active or
// not. This is the id-qualified path for mutating a background session's
// state while it stays hidden; the projector only ever writes through the
// active session. Returns false for unknown ids.
func (r *Registry) UpdateSession(id string, fn func(*Session)) bool {
	idx := r.indexOf(id)
	if idx < 0 {
		return false
	}
	fn(r.sessions[idx])
	r.notify()
	return true
}

// Active returns the active session. Callers must treat it as read-only;
// writes go through UpdateActive or UpdateSession.
func (r *Registry) Active() *Session {
	return r.active()
}

func (r *Registry) active() *Session {
	if idx := r.indexOf(r.activeID); idx >= 0 {
		return r.sessions[idx]
	}
	// Unreachable while the ≥1-session invariant holds, but never return nil.
	return r.sessions[0]
}

// ActiveID returns the id of the active session.
func (r *Registry) ActiveID() string { return r.activeID }

// Sessions returns the sessions in creation order. The slice is a copy;
// the elements are live and read-only by the Active contract.
func (r *Registry) Sessions() []*Session {
	out := make([]*Session, len(r.sessions))
	copy(out, r.sessions)
	return out
}

// Len returns the number of sessions.
func (r *Registry) Len() int { return len(r.sessions) }

// Get returns the session with the given id.
func (r *Registry) Get(id string) (*Session, bool) {
	if idx := r.indexOf(id); idx >= 0 {
		return r.sessions[idx], true
	}
	return nil, false
}

func (r *Registry) indexOf(id string) int {
	for i, s := range r.sessions {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// sessionSnapshot is the cross-restart serialization of one session. Live
// viewer sub-state (image list, index, zoom) is deliberately absent; it is
// rebuilt lazily through the per-folder resume mechanism when the session
// renders again. Explorer history and thumbnail caches are likewise
// rebuilt from scratch.
type sessionSnapshot struct {
	ID     string            `json:"id"`
	Title  string            `json:"title"`
	Page   string            `json:"page"`
	Params map[string]string `json:"params,omitempty"`
}

type registryPayload struct {
	Sessions []sessionSnapshot `json:"sessions"`
	ActiveID string            `json:"active_id"`
}

// SaveTo writes the cross-restart session payload to the store.
func (r *Registry) SaveTo(kv KV) error {
	p := registryPayload{ActiveID: r.activeID}
	for _, s := range r.sessions {
		p.Sessions = append(p.Sessions, sessionSnapshot{
			ID:     s.ID,
			Title:  s.Title,
			Page:   s.Page,
			Params: s.Params,
		})
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}
	if err := kv.Save(sessionsKey, string(data)); err != nil {
		return fmt.Errorf("save sessions: %w", err)
	}
	return nil
}

// LoadFrom replaces the registry's sessions with the persisted payload.
// Absent or unreadable payloads leave the registry untouched; a payload
// that would violate the ≥1-session invariant is ignored.
func (r *Registry) LoadFrom(kv KV) error {
	raw, ok, err := kv.Load(sessionsKey)
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	if !ok {
		return nil
	}
	var p registryPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return fmt.Errorf("decode sessions: %w", err)
	}
	if len(p.Sessions) == 0 {
		return nil
	}
	sessions := make([]*Session, 0, len(p.Sessions))
	maxID := 0
	for _, snap := range p.Sessions {
		sessions = append(sessions, &Session{
			ID:           snap.ID,
			Title:        snap.Title,
			Page:         snap.Page,
			Params:       snap.Params,
			ThumbOffsets: make(map[string]float64),
		})
		var n int
		if _, err := fmt.Sscanf(snap.ID, "session-%d", &n); err == nil && n > maxID {
			maxID = n
		}
	}
	r.sessions = sessions
	r.nextID = maxID
	r.activeID = p.ActiveID
	if r.indexOf(r.activeID) < 0 {
		r.activeID = r.sessions[0].ID
	}
	r.notify()
	return nil
}
