// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/okian/levelrank/internal/domain/model"
)

// AuditDependencies defines the interface for reading the audit log.
type AuditDependencies interface {
	AuditLog(ctx context.Context, limit int) ([]model.AuditEvent, error)
}

// AuditHandler handles audit log requests.
type AuditHandler struct {
	deps     AuditDependencies
	maxLimit int
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(deps AuditDependencies, maxLimit int) *AuditHandler {
	return &AuditHandler{deps: deps, maxLimit: maxLimit}
}

// HandleList handles GET /audit?limit=N requests, newest first.
func (h *AuditHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	n, err := limitParam(r, h.maxLimit, h.maxLimit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	events, err := h.deps.AuditLog(r.Context(), n)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
