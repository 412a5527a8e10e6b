package fetch

import (
	"sync"

	"github.com/yomu-app/yomu/internal/uilog"
)

// ProgressPubSub fans out job progress events to WebSocket subscribers
// watching specific jobs.
type ProgressPubSub struct {
	mu   sync.RWMutex
	subs map[string][]*subscriber
}

type subscriber struct {
	ch     chan Progress
	closed bool
}

// NewProgressPubSub creates a new pub/sub instance.
func NewProgressPubSub() *ProgressPubSub {
	return &ProgressPubSub{
		subs: make(map[string][]*subscriber),
	}
}

// Subscribe returns a channel that receives progress events for the given
// job. Call the returned function to unsubscribe and close the channel.
func (ps *ProgressPubSub) Subscribe(jobID string) (<-chan Progress, func()) {
	ch := make(chan Progress, 64)
	sub := &subscriber{ch: ch}

	ps.mu.Lock()
	ps.subs[jobID] = append(ps.subs[jobID], sub)
	ps.mu.Unlock()

	unsub := func() {
		ps.mu.Lock()
		defer ps.mu.Unlock()

		subs := ps.subs[jobID]
		for i, s := range subs {
			if s == sub {
				ps.subs[jobID] = append(subs[:i], subs[i+1:]...)
				if !s.closed {
					s.closed = true
					close(s.ch)
				}
				break
			}
		}
		if len(ps.subs[jobID]) == 0 {
			delete(ps.subs, jobID)
		}
	}

	return ch, unsub
}

// Publish sends a progress event to all subscribers watching the given
// job. Slow consumers whose buffers are full will have events dropped.
// The sends are non-blocking, so the read lock is held across them;
// unsubscribing needs the write lock, which keeps a close from racing a
// send on the same channel.
func (ps *ProgressPubSub) Publish(jobID string, p Progress) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, sub := range ps.subs[jobID] {
		if sub.closed {
			continue
		}
		select {
		case sub.ch <- p:
		default:
			uilog.Log.Warn("Dropping progress for slow WebSocket subscriber",
				"job_id", jobID)
		}
	}
}
