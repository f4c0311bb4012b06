// Package bus is the in-process change bus. The application store
// publishes the full collection after every mutation so subscribers in
// the same process update within the same tick, without re-reading the
// blob store.
package bus

import (
	"sync"

	"ppmkconnect-core/internal/domain"
)

type Handler func(apps []domain.Application)

type Bus struct {
	mu     sync.Mutex
	subs   map[int]Handler
	nextID int
}

func New() *Bus {
	return &Bus{subs: make(map[int]Handler)}
}

// Subscribe registers handler and returns a function that removes it.
func (b *Bus) Subscribe(handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = handler
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers apps to every subscriber synchronously. Each
// subscriber receives its own clone, so mutating a delivered collection
// cannot leak into other subscribers.
func (b *Bus) Publish(apps []domain.Application) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()
	for _, h := range handlers {
		h(cloneApps(apps))
	}
}

func cloneApps(apps []domain.Application) []domain.Application {
	out := make([]domain.Application, len(apps))
	for i, a := range apps {
		out[i] = a
		out[i].Skills = append([]string(nil), a.Skills...)
		if a.ReviewedAt != nil {
			t := *a.ReviewedAt
			out[i].ReviewedAt = &t
		}
	}
	return out
}
