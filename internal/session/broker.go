package session

import (
	"sync"

	"geosort-service/internal/services"
)

// Broker fans pipeline events out to subscribers of a session.
// Slow subscribers drop events instead of blocking the pipeline.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan services.Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan services.Event]struct{}{}}
}

func (b *Broker) Subscribe(sessionID string) chan services.Event {
	ch := make(chan services.Event, 32)
	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = map[chan services.Event]struct{}{}
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes ch. It is a no-op for unknown channels.
func (b *Broker) Unsubscribe(sessionID string, ch chan services.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	m := b.subs[sessionID]
	if _, ok := m[ch]; !ok {
		return
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.subs, sessionID)
	}
	close(ch)
}

func (b *Broker) Publish(sessionID string, evt services.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[sessionID] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// CloseSession closes every subscription of a session.
func (b *Broker) CloseSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[sessionID] {
		close(ch)
	}
	delete(b.subs, sessionID)
}
