// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	service "github.com/okian/levelrank/internal/app"
	"github.com/okian/levelrank/internal/domain/model"
)

// LevelDependencies covers the ranked list and its moderation.
type LevelDependencies interface {
	Levels(ctx context.Context) ([]model.Level, error)
	RemoveLevel(ctx context.Context, actor, levelID string) error
	SwapPlacement(ctx context.Context, actor, levelID string, dir service.Direction) (bool, error)
	EditTags(ctx context.Context, actor, levelID string, tags []string) (model.Level, error)
	DeleteCompletion(ctx context.Context, actor, username, completionID string) (int, error)
}

// LevelsHandler handles /levels requests.
type LevelsHandler struct {
	deps LevelDependencies
}

// NewLevelsHandler creates a new levels handler.
func NewLevelsHandler(deps LevelDependencies) *LevelsHandler {
	return &LevelsHandler{deps: deps}
}

type moveRequest struct {
	Direction service.Direction `json:"direction"`
}

type moveResponse struct {
	Moved bool `json:"moved"`
}

type tagsRequest struct {
	Tags []string `json:"tags"`
}

type reverseResponse struct {
	Reversed int `json:"reversed"`
}

// HandleListLevels handles GET /levels requests, ordered by placement.
func (h *LevelsHandler) HandleListLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := h.deps.Levels(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, levels)
}

// HandleRemoveLevel handles DELETE /levels/{id} requests.
func (h *LevelsHandler) HandleRemoveLevel(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.deps.RemoveLevel(r.Context(), who, mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMoveLevel handles POST /levels/{id}/move requests. Moving past either
// end of the list is a no-op reported as moved=false.
func (h *LevelsHandler) HandleMoveLevel(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	moved, err := h.deps.SwapPlacement(r.Context(), who, mux.Vars(r)["id"], req.Direction)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moveResponse{Moved: moved})
}

// HandleEditTags handles PUT /levels/{id}/tags requests.
func (h *LevelsHandler) HandleEditTags(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	var req tagsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	level, err := h.deps.EditTags(r.Context(), who, mux.Vars(r)["id"], req.Tags)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, level)
}

// HandleDeleteCompletion handles DELETE /users/{username}/completions/{id}.
func (h *LevelsHandler) HandleDeleteCompletion(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	reversed, err := h.deps.DeleteCompletion(r.Context(), who, vars["username"], vars["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reverseResponse{Reversed: reversed})
}
