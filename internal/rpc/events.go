package rpc

import (
	"encoding/json"
	"sync"
)

// Event is one SSE frame: Name becomes the `event:` line, Payload is
// JSON-encoded as the `data:` line. Matches spec §6's event table
// (instance-done, new-instance, instance-logging, instance-exited,
// authentication-error, download-progress).
type Event struct {
	Name    string
	Payload any
}

// EventBus fans out Events to every currently-subscribed SSE client.
// Grounded on bureau-foundation-bureau's http_service.go SSE streaming
// (flush-per-chunk, keep-alive headers) generalized from a single upstream
// proxy into a one-to-many broadcaster.
type EventBus struct {
	mu          sync.Mutex
	subscribers map[chan Event]struct{}
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[chan Event]struct{})}
}

func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subscribers, ch)
	b.mu.Unlock()
	close(ch)
}

// Publish is non-blocking: a subscriber whose buffer is full drops the
// event rather than stalling the supervisor or download executor that
// called Publish.
func (b *EventBus) Publish(name string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- Event{Name: name, Payload: payload}:
		default:
		}
	}
}

func encodeEvent(e Event) ([]byte, error) {
	return json.Marshal(e.Payload)
}
