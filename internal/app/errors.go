package service

import (
	"errors"

	"github.com/okian/levelrank/internal/adapters/mq/queue"
	"github.com/okian/levelrank/internal/adapters/repository"
	"github.com/okian/levelrank/internal/domain/model"
)

// Sentinel kinds returned by service operations. Match them with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrReferenceMissing = errors.New("referenced level no longer exists")
	ErrSubmitterMissing = errors.New("submitter account no longer exists")
	ErrIneligibleTitle  = errors.New("title not eligible")
	ErrForbidden        = errors.New("forbidden")
	ErrNotPending       = errors.New("submission is not pending")
	ErrPartialCommit    = errors.New("operation partially committed")
	ErrBackpressure     = errors.New("command queue full")
	ErrNotStarted       = errors.New("service not started")
	ErrAlreadyExists    = errors.New("already exists")

	ErrValidation = model.ErrValidation
	ErrConflict   = repository.ErrConflict
	ErrStopped    = queue.ErrStopped
)
