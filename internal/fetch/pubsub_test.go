package fetch

import (
	"sync"
	"testing"
)

func TestPubSubDeliversToSubscribers(t *testing.T) {
	ps := NewProgressPubSub()
	ch, unsub := ps.Subscribe("job-1")
	defer unsub()

	ps.Publish("job-1", Progress{JobID: "job-1", Fetched: 3})
	ps.Publish("job-2", Progress{JobID: "job-2"})

	select {
	case p := <-ch:
		if p.JobID != "job-1" || p.Fetched != 3 {
			t.Errorf("got event %+v", p)
		}
	default:
		t.Fatal("no event delivered")
	}
	select {
	case p := <-ch:
		t.Errorf("received another job's event: %+v", p)
	default:
	}
}

func TestPubSubUnsubscribeClosesChannel(t *testing.T) {
	ps := NewProgressPubSub()
	ch, unsub := ps.Subscribe("job-1")
	unsub()
	unsub() // idempotent

	if _, open := <-ch; open {
		t.Error("channel still open after unsubscribe")
	}
	// Publishing to a job with no subscribers is a no-op.
	ps.Publish("job-1", Progress{JobID: "job-1"})
}

func TestPubSubPublishRacesUnsubscribe(t *testing.T) {
	ps := NewProgressPubSub()

	// Publishes racing unsubscribes must never send on a closed channel.
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		_, unsub := ps.Subscribe("job-1")
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ps.Publish("job-1", Progress{JobID: "job-1", Fetched: j})
			}
		}()
		go func() {
			defer wg.Done()
			unsub()
		}()
	}
	wg.Wait()
}
