package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrConflict          = errors.New("collection version conflict")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrClosed            = errors.New("store closed")
	ErrCorrupt           = errors.New("collection data corrupt")
)
