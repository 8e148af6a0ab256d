package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/okian/levelrank/pkg/metrics"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// goose keeps its base FS and dialect in package globals.
var migrateMu sync.Mutex

// SQLiteStore persists each collection as one versioned row. Several
// processes may share the file; the version column arbitrates writers.
type SQLiteStore struct {
	mu           sync.RWMutex // guards db against Close
	db           *sql.DB
	busyTimeout  time.Duration
	maxOpenConns int
	now          func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and applies migrations.
func OpenSQLite(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	s := &SQLiteStore{
		busyTimeout:  5 * time.Second,
		maxOpenConns: 4,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		filepath.Clean(path), s.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	s.db = db
	return s, nil
}

func runMigrations(db *sql.DB) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Load implements Store.Load.
func (s *SQLiteStore) Load(ctx context.Context, c Collection) (Snapshot, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreLoadLatency(string(c), float64(time.Since(start).Microseconds())/1000) }()

	if !c.Valid() {
		return Snapshot{}, ErrUnknownCollection
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return Snapshot{}, ErrClosed
	}

	var (
		version int64
		payload []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT version, payload FROM collections WHERE name = ?`, string(c)).Scan(&version, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load %s: %w", c, err)
	}
	return Snapshot{Data: payload, Version: Version(version)}, nil
}

// Save implements Store.Save. Version 0 inserts; any other version updates
// only if the row still carries it.
func (s *SQLiteStore) Save(ctx context.Context, c Collection, expected Version, data []byte) (Version, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreSaveLatency(string(c), float64(time.Since(start).Microseconds())/1000) }()

	if !c.Valid() {
		return 0, ErrUnknownCollection
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, ErrClosed
	}
	if data == nil {
		data = []byte{}
	}

	stamp := s.now().UnixMilli()
	var (
		res sql.Result
		err error
	)
	if expected == 0 {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO collections (name, version, payload, updated_at) VALUES (?, 1, ?, ?)
			 ON CONFLICT(name) DO NOTHING`, string(c), data, stamp)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE collections SET version = version + 1, payload = ?, updated_at = ?
			 WHERE name = ? AND version = ?`, data, stamp, string(c), int64(expected))
	}
	if err != nil {
		return 0, fmt.Errorf("save %s: %w", c, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("save %s: %w", c, err)
	}
	if n == 0 {
		metrics.RecordStoreConflict(string(c))
		return 0, ErrConflict
	}
	return expected + 1, nil
}

// Close implements Store.Close.
func (s *SQLiteStore) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
