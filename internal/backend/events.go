package backend

import (
	"log/slog"
	"sync"

	"github.com/hongminglow/farmconnect/internal/metrics"
	"github.com/hongminglow/farmconnect/internal/models"
)

// EventType names an auth state transition.
type EventType string

const (
	SignedIn  EventType = "SIGNED_IN"
	SignedOut EventType = "SIGNED_OUT"
)

// AuthEvent is pushed to subscribers on every sign-in and sign-out.
// Session is nil for SignedOut.
type AuthEvent struct {
	Type    EventType
	Session *models.Session
}

const subscriberBuffer = 16

type broadcaster struct {
	mu     sync.Mutex
	next   int
	subs   map[int]chan AuthEvent
	logger *slog.Logger
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan AuthEvent), logger: slog.Default()}
}

// Subscribe registers for auth events. The returned function unsubscribes
// and closes the channel; it is safe to call more than once.
func (c *Client) Subscribe() (<-chan AuthEvent, func()) {
	return c.events.subscribe()
}

func (b *broadcaster) subscribe() (<-chan AuthEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan AuthEvent, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *broadcaster) publish(ev AuthEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		select {
		case ch <- ev:
			metrics.AuthEvent(string(ev.Type), "delivered")
		default:
			metrics.AuthEvent(string(ev.Type), "dropped")
			b.logger.Warn("auth event dropped: subscriber buffer full", "subscriber", id, "event", ev.Type)
		}
	}
}
