// Package repository persists whole entity collections behind a versioned store.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
)

// Collection names one of the persisted record sequences.
type Collection string

// Collections owned by the store.
const (
	Users       Collection = "users"
	Levels      Collection = "levels"
	Submissions Collection = "submissions"
	Audit       Collection = "audit"
)

// Collections returns every known collection.
func Collections() []Collection {
	return []Collection{Users, Levels, Submissions, Audit}
}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	switch c {
	case Users, Levels, Submissions, Audit:
		return true
	}
	return false
}

// Version stamps a collection. Zero means the collection was never saved.
type Version int64

// Snapshot is the encoded content of a collection at a version.
type Snapshot struct {
	Data    []byte
	Version Version
}

// Store provides whole-collection reads and writes.
//
// Save is a compare-and-swap: it succeeds only when the stored version still
// equals expected and returns the new version. A stale expected returns
// ErrConflict so writers that loaded an older snapshot never silently
// overwrite a newer one.
type Store interface {
	// Load returns the current snapshot. An unsaved collection yields an empty
	// snapshot at version 0.
	Load(ctx context.Context, c Collection) (Snapshot, error)

	// Save replaces the collection if its version is still expected.
	Save(ctx context.Context, c Collection, expected Version, data []byte) (Version, error)

	// Close releases underlying resources.
	Close() error
}

// LoadRecords loads and decodes a collection into a slice of T.
func LoadRecords[T any](ctx context.Context, s Store, c Collection) ([]T, Version, error) {
	snap, err := s.Load(ctx, c)
	if err != nil {
		return nil, 0, err
	}
	var records []T
	if len(snap.Data) == 0 {
		return records, snap.Version, nil
	}
	if err := json.Unmarshal(snap.Data, &records); err != nil {
		return nil, 0, fmt.Errorf("%w: decode %s: %w", ErrCorrupt, c, err)
	}
	return records, snap.Version, nil
}

// SaveRecords encodes records and saves them if the collection is still at expected.
func SaveRecords[T any](ctx context.Context, s Store, c Collection, expected Version, records []T) (Version, error) {
	if records == nil {
		records = []T{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", c, err)
	}
	return s.Save(ctx, c, expected, data)
}
