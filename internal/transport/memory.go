package transport

import (
	"context"
	"sync"

	"github.com/signalmesh/swarmcore/internal/swarmerr"
	"github.com/signalmesh/swarmcore/pkg/event"
)

// Memory is an in-process fake Transport, the default in unit tests per
// SPEC_FULL.md §4.15.
type Memory struct {
	mu     sync.RWMutex
	events map[string]event.Event

	subsMu sync.Mutex
	subs   []chan *event.Event
}

// NewMemory creates an empty Memory transport.
func NewMemory() *Memory {
	return &Memory{events: make(map[string]event.Event)}
}

// Seed preloads e as if it had been observed, for test fixtures that need
// Fetch to resolve it.
func (m *Memory) Seed(e event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[e.ID] = e
}

// Fetch implements Transport.
func (m *Memory) Fetch(ctx context.Context, eventID string) (*event.Event, error) {
	m.mu.RLock()
	e, ok := m.events[eventID]
	m.mu.RUnlock()
	if !ok {
		return nil, swarmerr.Transport("memory transport: event not found", nil)
	}
	return &e, nil
}

// Publish implements Transport: it records e and fans it out to every
// active Subscribe channel.
func (m *Memory) Publish(ctx context.Context, e *event.Event) error {
	m.mu.Lock()
	m.events[e.ID] = *e
	m.mu.Unlock()

	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- e:
		default:
		}
	}
	return nil
}

// Subscribe implements Transport. filter is ignored; every published event
// is forwarded, which is sufficient for the fake's use in unit tests.
func (m *Memory) Subscribe(ctx context.Context, filter Filter) (<-chan *event.Event, error) {
	ch := make(chan *event.Event, 16)

	m.subsMu.Lock()
	m.subs = append(m.subs, ch)
	m.subsMu.Unlock()

	go func() {
		<-ctx.Done()
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		for i, c := range m.subs {
			if c == ch {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				break
			}
		}
		close(ch)
	}()

	return ch, nil
}
