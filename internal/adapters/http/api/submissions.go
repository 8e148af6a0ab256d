// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	service "github.com/okian/levelrank/internal/app"
	"github.com/okian/levelrank/internal/domain/dedupe"
	"github.com/okian/levelrank/internal/domain/model"
)

// SubmissionDependencies covers the moderation queue. The deduper backs
// Idempotency-Key handling on POST /submissions.
type SubmissionDependencies interface {
	dedupe.Deduper
	SubmitLevel(ctx context.Context, actor string, p model.LevelPayload) (model.Submission, error)
	SubmitCompletion(ctx context.Context, actor string, p model.CompletionPayload) (model.Submission, error)
	WithdrawSubmission(ctx context.Context, actor, id string) (model.Submission, error)
	Submissions(ctx context.Context, status model.SubmissionStatus) ([]model.Submission, error)
	Submission(ctx context.Context, id string) (model.Submission, error)
	Approve(ctx context.Context, actor, id string) (service.ApprovalOutcome, error)
	Reject(ctx context.Context, actor, id, reason string) (model.Submission, error)
}

// SubmissionsHandler handles /submissions requests.
type SubmissionsHandler struct {
	deps SubmissionDependencies
}

// NewSubmissionsHandler creates a new submissions handler.
func NewSubmissionsHandler(deps SubmissionDependencies) *SubmissionsHandler {
	return &SubmissionsHandler{deps: deps}
}

type submitRequest struct {
	Type       model.SubmissionType     `json:"type"`
	Level      *model.LevelPayload      `json:"level,omitempty"`
	Completion *model.CompletionPayload `json:"completion,omitempty"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

var validStatuses = map[model.SubmissionStatus]struct{}{
	model.StatusPending:   {},
	model.StatusApproved:  {},
	model.StatusRejected:  {},
	model.StatusWithdrawn: {},
}

// HandleList handles GET /submissions?status=pending requests.
func (h *SubmissionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	status := model.SubmissionStatus(r.URL.Query().Get("status"))
	if status != "" {
		if _, ok := validStatuses[status]; !ok {
			writeServiceError(w, fmt.Errorf("%w: unknown status %q", ErrBadRequest, status))
			return
		}
	}
	subs, err := h.deps.Submissions(r.Context(), status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// HandleCreate handles POST /submissions requests. A repeated Idempotency-Key
// from the same actor is acknowledged without creating a second submission.
func (h *SubmissionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	var key string
	if k := strings.TrimSpace(r.Header.Get(IdempotencyHeader)); k != "" {
		key = dedupe.Key(model.FoldUsername(who), k)
		if h.deps.SeenAndRecord(r.Context(), key) {
			writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
			return
		}
	}

	sub, err := h.submit(r.Context(), who, req)
	if err != nil {
		if key != "" {
			h.deps.Unrecord(r.Context(), key)
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *SubmissionsHandler) submit(ctx context.Context, who string, req submitRequest) (model.Submission, error) {
	switch req.Type {
	case model.SubmissionLevel:
		if req.Level == nil || req.Completion != nil {
			return model.Submission{}, fmt.Errorf("%w: level submissions carry only a level payload", ErrBadRequest)
		}
		return h.deps.SubmitLevel(ctx, who, *req.Level)
	case model.SubmissionCompletion:
		if req.Completion == nil || req.Level != nil {
			return model.Submission{}, fmt.Errorf("%w: completion submissions carry only a completion payload", ErrBadRequest)
		}
		return h.deps.SubmitCompletion(ctx, who, *req.Completion)
	default:
		return model.Submission{}, fmt.Errorf("%w: unknown submission type %q", ErrBadRequest, req.Type)
	}
}

// HandleGet handles GET /submissions/{id} requests.
func (h *SubmissionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sub, err := h.deps.Submission(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// HandleWithdraw handles DELETE /submissions/{id} requests.
func (h *SubmissionsHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	sub, err := h.deps.WithdrawSubmission(r.Context(), who, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// HandleApprove handles POST /submissions/{id}/approve requests.
func (h *SubmissionsHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	outcome, err := h.deps.Approve(r.Context(), who, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// HandleReject handles POST /submissions/{id}/reject requests. The body is optional.
func (h *SubmissionsHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	var req rejectRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeServiceError(w, err)
		return
	}
	sub, err := h.deps.Reject(r.Context(), who, mux.Vars(r)["id"], req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
