package repository

import (
	"context"
	"sync"
	"time"

	"github.com/okian/levelrank/pkg/metrics"
)

// MemoryStore is an in-process Store. Data does not survive a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[Collection]Snapshot
	closed bool
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[Collection]Snapshot)}
}

// Load implements Store.Load. The returned bytes are a private copy.
func (s *MemoryStore) Load(ctx context.Context, c Collection) (Snapshot, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLoadLatency(string(c), float64(time.Since(start).Microseconds())/1000) }()

	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	if !c.Valid() {
		return Snapshot{}, ErrUnknownCollection
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Snapshot{}, ErrClosed
	}
	snap := s.data[c]
	return Snapshot{Data: clone(snap.Data), Version: snap.Version}, nil
}

// Save implements Store.Save.
func (s *MemoryStore) Save(ctx context.Context, c Collection, expected Version, data []byte) (Version, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreSaveLatency(string(c), float64(time.Since(start).Microseconds())/1000) }()

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !c.Valid() {
		return 0, ErrUnknownCollection
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	current := s.data[c]
	if current.Version != expected {
		metrics.RecordStoreConflict(string(c))
		return 0, ErrConflict
	}
	next := expected + 1
	s.data[c] = Snapshot{Data: clone(data), Version: next}
	return next, nil
}

// Close implements Store.Close.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
