package blob

import (
	"context"
	"sync"
)

// Broker is shared in-memory blob storage. Each Open call returns an
// independent handle; a write through one handle is delivered to the
// subscribers of every other handle, mirroring how same-origin browsing
// contexts observe each other's storage writes. Intended for tests and
// single-process deployments.
type Broker struct {
	mu      sync.Mutex
	data    map[string][]byte
	handles map[*MemoryStore]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		data:    make(map[string][]byte),
		handles: make(map[*MemoryStore]struct{}),
	}
}

// Open returns a new handle onto the broker's storage.
func (b *Broker) Open() *MemoryStore {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := &MemoryStore{broker: b, subs: make(map[int]func(string, []byte))}
	b.handles[s] = struct{}{}
	return s
}

func (b *Broker) write(origin *MemoryStore, key string, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)

	b.mu.Lock()
	b.data[key] = cp
	others := make([]*MemoryStore, 0, len(b.handles))
	for h := range b.handles {
		if h != origin {
			others = append(others, h)
		}
	}
	b.mu.Unlock()

	for _, h := range others {
		h.dispatch(key, cp)
	}
}

func (b *Broker) read(key string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.data[key]
	if !ok {
		return nil, false
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, true
}

func (b *Broker) closeHandle(s *MemoryStore) {
	b.mu.Lock()
	delete(b.handles, s)
	b.mu.Unlock()
}

// MemoryStore is one handle onto a Broker.
type MemoryStore struct {
	broker *Broker
	mu     sync.Mutex
	subs   map[int]func(string, []byte)
	nextID int
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Read(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok := s.broker.read(key)
	return data, ok, nil
}

func (s *MemoryStore) Write(ctx context.Context, key string, data []byte) error {
	s.broker.write(s, key, data)
	return nil
}

func (s *MemoryStore) Subscribe(handler func(key string, data []byte)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = handler
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *MemoryStore) Close() error {
	s.broker.closeHandle(s)
	return nil
}

func (s *MemoryStore) dispatch(key string, data []byte) {
	s.mu.Lock()
	handlers := make([]func(string, []byte), 0, len(s.subs))
	for _, h := range s.subs {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()
	for _, h := range handlers {
		h(key, data)
	}
}
