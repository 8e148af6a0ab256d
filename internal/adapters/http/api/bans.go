// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/okian/levelrank/internal/domain/types"
)

// BanDependencies defines the interface for ban operations.
type BanDependencies interface {
	IsBanned(ctx context.Context, username string) (bool, error)
	Ban(ctx context.Context, actor, target string, days int, reason string) (types.Ban, error)
	Unban(ctx context.Context, actor, target string) (bool, error)
	BannedUsers(ctx context.Context) ([]types.Ban, error)
}

// BansHandler handles ban requests.
type BansHandler struct {
	deps BanDependencies
}

// NewBansHandler creates a new bans handler.
func NewBansHandler(deps BanDependencies) *BansHandler {
	return &BansHandler{deps: deps}
}

type banRequest struct {
	Days   int    `json:"days"`
	Reason string `json:"reason"`
}

type banStatusResponse struct {
	Username string `json:"username"`
	Banned   bool   `json:"banned"`
}

type unbanResponse struct {
	Cleared bool `json:"cleared"`
}

// HandleGetBan handles GET /users/{username}/ban requests. Expired bans are
// cleared as a side effect.
func (h *BansHandler) HandleGetBan(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	banned, err := h.deps.IsBanned(r.Context(), username)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, banStatusResponse{Username: username, Banned: banned})
}

// HandleBan handles POST /users/{username}/ban requests. Zero days is permanent.
func (h *BansHandler) HandleBan(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	var req banRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	ban, err := h.deps.Ban(r.Context(), who, mux.Vars(r)["username"], req.Days, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ban)
}

// HandleUnban handles DELETE /users/{username}/ban requests.
func (h *BansHandler) HandleUnban(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	cleared, err := h.deps.Unban(r.Context(), who, mux.Vars(r)["username"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, unbanResponse{Cleared: cleared})
}

// HandleListBans handles GET /bans requests.
func (h *BansHandler) HandleListBans(w http.ResponseWriter, r *http.Request) {
	bans, err := h.deps.BannedUsers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bans)
}
