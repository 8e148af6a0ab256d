package queue

import "errors"

// Sentinel kinds for command errors.
var (
	// ErrStopped finishes commands the writer could not run before shutdown.
	ErrStopped = errors.New("writer stopped")
)
