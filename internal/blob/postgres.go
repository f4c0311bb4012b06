package blob

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"ppmkconnect-core/internal/logger"
)

// notifyChannel is the postgres NOTIFY channel all store handles share.
// The payload is "<origin uuid> <key>" so a handle can skip its own
// writes.
const notifyChannel = "blob_changes"

// PostgresStore persists blobs in a single postgres table and uses
// LISTEN/NOTIFY so separate processes observe each other's writes.
type PostgresStore struct {
	db       *sql.DB
	listener *pq.Listener
	origin   string

	mu     sync.Mutex
	subs   map[int]func(string, []byte)
	nextID int

	done chan struct{}
	once sync.Once
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps db for reads and writes. conninfo may be empty,
// in which case the store never observes external writes (reads and
// writes still work; useful under sqlmock).
func NewPostgresStore(db *sql.DB, conninfo string) (*PostgresStore, error) {
	s := &PostgresStore{
		db:     db,
		origin: uuid.NewString(),
		subs:   make(map[int]func(string, []byte)),
		done:   make(chan struct{}),
	}
	if conninfo != "" {
		s.listener = pq.NewListener(conninfo, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
			if err != nil {
				logger.Warn("blob listener event", "event", ev, "error", err)
			}
		})
		if err := s.listener.Listen(notifyChannel); err != nil {
			return nil, fmt.Errorf("failed to listen on %s: %w", notifyChannel, err)
		}
		go s.listen()
	}
	return s, nil
}

// InitSchema creates the blobs table if it does not exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS blobs (
	          key TEXT PRIMARY KEY,
	          data BYTEA NOT NULL,
	          updated_on TIMESTAMPTZ NOT NULL DEFAULT now())`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create blobs table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Read(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	query := `SELECT data FROM blobs WHERE key = $1`
	err := s.db.QueryRowContext(ctx, query, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read blob %q: %w", key, err)
	}
	return data, true, nil
}

func (s *PostgresStore) Write(ctx context.Context, key string, data []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to write blob %q: %w", key, err)
	}
	defer tx.Rollback()

	query := `INSERT INTO blobs (key, data, updated_on) VALUES ($1, $2, now())
	          ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_on = now()`
	if _, err := tx.ExecContext(ctx, query, key, data); err != nil {
		return fmt.Errorf("failed to write blob %q: %w", key, err)
	}
	// NOTIFY is transactional: it fires only when the write commits.
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, s.origin+" "+key); err != nil {
		return fmt.Errorf("failed to write blob %q: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to write blob %q: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Subscribe(handler func(key string, data []byte)) func() {
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

func (s *PostgresStore) Close() error {
	s.once.Do(func() { close(s.done) })
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *PostgresStore) listen() {
	for {
		select {
		case <-s.done:
			return
		case n := <-s.listener.Notify:
			if n == nil {
				// Connection was re-established; the periodic
				// reconciliation pass covers anything missed.
				continue
			}
			s.handleNotification(n.Extra)
		case <-time.After(90 * time.Second):
			go s.listener.Ping()
		}
	}
}

func (s *PostgresStore) handleNotification(payload string) {
	origin, key, ok := strings.Cut(payload, " ")
	if !ok {
		logger.Warn("malformed blob notification", "payload", payload)
		return
	}
	if origin == s.origin {
		return
	}
	data, found, err := s.Read(context.Background(), key)
	if err != nil {
		logger.Warn("failed to read blob after notification", "key", key, "error", err)
		return
	}
	if !found {
		return
	}
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
