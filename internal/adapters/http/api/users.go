// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	service "github.com/okian/levelrank/internal/app"
	"github.com/okian/levelrank/internal/domain/model"
	"github.com/okian/levelrank/internal/domain/titles"
	"github.com/okian/levelrank/internal/domain/types"
)

// UserDependencies covers accounts, profiles and titles.
type UserDependencies interface {
	RegisterUser(ctx context.Context, r service.Registration) (types.Profile, error)
	User(ctx context.Context, username string) (types.Profile, error)
	PromoteToMod(ctx context.Context, actor, username string) (types.Profile, error)
	UpdateProfile(ctx context.Context, actor, username string, upd service.ProfileUpdate) (types.Profile, error)
	EligibleTitles(ctx context.Context, username string) ([]titles.Title, error)
	EquipTitle(ctx context.Context, username, titleID string) (string, error)
}

// UsersHandler handles /users requests.
type UsersHandler struct {
	deps UserDependencies
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps UserDependencies) *UsersHandler {
	return &UsersHandler{deps: deps}
}

type titleView struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Requirement string `json:"requirement"`
}

type equipRequest struct {
	Title string `json:"title"`
}

type equipResponse struct {
	EquippedTitle string `json:"equippedTitle"`
}

// HandleRegister handles POST /users requests.
func (h *UsersHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.Registration
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	profile, err := h.deps.RegisterUser(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

// HandleGetUser handles GET /users/{username} requests.
func (h *UsersHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	profile, err := h.deps.User(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleGetTitles handles GET /users/{username}/titles requests.
func (h *UsersHandler) HandleGetTitles(w http.ResponseWriter, r *http.Request) {
	eligible, err := h.deps.EligibleTitles(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]titleView, 0, len(eligible))
	for _, t := range eligible {
		out = append(out, titleView{ID: t.ID, Label: t.Label, Requirement: t.Requirement()})
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleEquipTitle handles PUT /users/{username}/title requests. Only the
// user can change their own title; equipping the current title toggles it off.
func (h *UsersHandler) HandleEquipTitle(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	username := mux.Vars(r)["username"]
	if !model.SameUsername(who, username) {
		writeServiceError(w, fmt.Errorf("%w: titles can only be changed by their owner", service.ErrForbidden))
		return
	}
	var req equipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	equipped, err := h.deps.EquipTitle(r.Context(), username, req.Title)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, equipResponse{EquippedTitle: equipped})
}

// HandleUpdateProfile handles PATCH /users/{username}/profile requests.
func (h *UsersHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	var upd service.ProfileUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeServiceError(w, err)
		return
	}
	profile, err := h.deps.UpdateProfile(r.Context(), who, mux.Vars(r)["username"], upd)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandlePromote handles POST /users/{username}/promote requests.
func (h *UsersHandler) HandlePromote(w http.ResponseWriter, r *http.Request) {
	who, ok := actor(w, r)
	if !ok {
		return
	}
	profile, err := h.deps.PromoteToMod(r.Context(), who, mux.Vars(r)["username"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
