package repository

import "time"

// SQLiteOption applies a configuration option to the SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithBusyTimeout sets how long a writer waits on a locked database file.
func WithBusyTimeout(timeout time.Duration) SQLiteOption {
	return func(s *SQLiteStore) {
		if timeout > 0 {
			s.busyTimeout = timeout
		}
	}
}

// WithMaxOpenConns caps the connection pool.
func WithMaxOpenConns(n int) SQLiteOption {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithClock sets the clock used for updated_at stamps.
func WithClock(now func() time.Time) SQLiteOption {
	return func(s *SQLiteStore) {
		if now != nil {
			s.now = now
		}
	}
}
