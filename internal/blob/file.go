package blob

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ppmkconnect-core/internal/logger"
)

// FileStore keeps each key in its own file under a base directory and
// detects external writes by polling file contents. Writes go through a
// temp file and rename so a watcher never reads a half-written blob.
type FileStore struct {
	dir      string
	interval time.Duration

	mu       sync.Mutex
	lastSeen map[string][]byte
	subs     map[int]func(string, []byte)
	nextID   int
	watched  map[string]struct{}

	done chan struct{}
	once sync.Once
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates the base directory if needed and starts the
// change poller at the given interval.
func NewFileStore(dir string, pollInterval time.Duration) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	s := &FileStore{
		dir:      dir,
		interval: pollInterval,
		lastSeen: make(map[string][]byte),
		subs:     make(map[int]func(string, []byte)),
		watched:  make(map[string]struct{}),
		done:     make(chan struct{}),
	}
	go s.poll()
	return s, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *FileStore) Read(ctx context.Context, key string) ([]byte, bool, error) {
	// Reading a key, present or not, starts watching it.
	s.mu.Lock()
	s.watched[key] = struct{}{}
	s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read blob %q: %w", key, err)
	}
	s.mu.Lock()
	s.lastSeen[key] = data
	s.mu.Unlock()
	return data, true, nil
}

func (s *FileStore) Write(ctx context.Context, key string, data []byte) error {
	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write blob %q: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write blob %q: %w", key, err)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.mu.Lock()
	s.lastSeen[key] = cp
	s.watched[key] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (s *FileStore) Subscribe(handler func(key string, data []byte)) func() {
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

func (s *FileStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *FileStore) poll() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.checkOnce()
		}
	}
}

// checkOnce re-reads every watched key and dispatches the keys whose
// contents changed since the last read or write through this handle.
func (s *FileStore) checkOnce() {
	s.mu.Lock()
	keys := make([]string, 0, len(s.watched))
	for k := range s.watched {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	for _, key := range keys {
		data, err := os.ReadFile(s.path(key))
		if err != nil {
			if !os.IsNotExist(err) {
				logger.Warn("blob poll read failed", "key", key, "error", err)
			}
			continue
		}
		s.mu.Lock()
		changed := !bytes.Equal(s.lastSeen[key], data)
		if changed {
			s.lastSeen[key] = data
		}
		handlers := make([]func(string, []byte), 0, len(s.subs))
		for _, h := range s.subs {
			handlers = append(handlers, h)
		}
		s.mu.Unlock()

		if changed {
			for _, h := range handlers {
				h(key, data)
			}
		}
	}
}
