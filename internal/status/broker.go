package status

import "sync"

// Broker is an in-memory pub/sub of status events keyed by run ID.
// Slow subscribers lose events instead of blocking the run.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{} // runID -> set of channels
}

// AllRuns subscribes to the events of every run.
const AllRuns = "*"

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan Event]struct{}{}}
}

func (b *Broker) Subscribe(runID string) chan Event {
	return b.SubscribeBuffered(runID, 8)
}

// SubscribeBuffered subscribes with room for size pending events. Consumers
// that must not lose events, like the event file, use a large size.
func (b *Broker) SubscribeBuffered(runID string, size int) chan Event {
	ch := make(chan Event, max(1, size))
	b.mu.Lock()
	if b.subs[runID] == nil {
		b.subs[runID] = map[chan Event]struct{}{}
	}
	b.subs[runID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(runID string, ch chan Event) {
	b.mu.Lock()
	if m := b.subs[runID]; m != nil {
		delete(m, ch)
		if len(m) == 0 {
			delete(b.subs, runID)
		}
	}
	b.mu.Unlock()
	close(ch)
}

func (b *Broker) Publish(evt Event) {
	b.mu.Lock()
	for _, key := range []string{evt.RunID, AllRuns} {
		for ch := range b.subs[key] {
			select {
			case ch <- evt:
			default:
			}
		}
	}
	b.mu.Unlock()
}
