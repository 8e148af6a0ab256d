// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"

	service "github.com/okian/levelrank/internal/app"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrLimitExceeded = errors.New("limit exceeded")
	ErrMissingActor  = errors.New("missing " + ActorHeader + " header")
)

// statusFor translates a service error into an HTTP status and error code.
// A partial commit wraps its cause and must win over it.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrPartialCommit):
		return http.StatusInternalServerError, "partial_commit"
	case errors.Is(err, ErrLimitExceeded):
		return http.StatusBadRequest, "limit_exceeded"
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrIneligibleTitle):
		return http.StatusConflict, "ineligible_title"
	case errors.Is(err, service.ErrNotPending):
		return http.StatusConflict, "not_pending"
	case errors.Is(err, service.ErrAlreadyExists):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrReferenceMissing):
		return http.StatusUnprocessableEntity, "reference_missing"
	case errors.Is(err, service.ErrSubmitterMissing):
		return http.StatusUnprocessableEntity, "submitter_missing"
	case errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, service.ErrStopped):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
