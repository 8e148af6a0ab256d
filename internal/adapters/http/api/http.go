// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/okian/levelrank/internal/domain/types"
)

// ActorHeader names the acting user. Authentication happens in front of this
// service; the header is trusted as is.
const ActorHeader = "X-Actor"

// IdempotencyHeader lets clients retry POST /submissions safely.
const IdempotencyHeader = "Idempotency-Key"

const defaultMaxLimit = 100

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	UserDependencies
	RankDependencies
	LeaderboardDependencies
	BanDependencies
	LevelDependencies
	SubmissionDependencies
	AuditDependencies
	StatsProvider
	HealthProvider
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	usersHandler       *UsersHandler
	bansHandler        *BansHandler
	levelsHandler      *LevelsHandler
	submissionsHandler *SubmissionsHandler
	auditHandler       *AuditHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps
// leaderboard and audit page sizes; values < 1 use the default.
func NewServer(deps Dependencies, maxLimit int) *Server {
	if maxLimit < 1 {
		maxLimit = defaultMaxLimit
	}
	return &Server{
		healthHandler:      NewHealthHandler(deps),
		statsHandler:       NewStatsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
		usersHandler:       NewUsersHandler(deps),
		bansHandler:        NewBansHandler(deps),
		levelsHandler:      NewLevelsHandler(deps),
		submissionsHandler: NewSubmissionsHandler(deps),
		auditHandler:       NewAuditHandler(deps, maxLimit),
	}
}

// Register attaches all HTTP routes to router.
func (s *Server) Register(_ context.Context, router *mux.Router) {
	if router == nil {
		panic("router is nil")
	}
	get, post, put, patch, del := http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete

	router.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(get)
	router.Handle("/metrics", MetricsHandler()).Methods(get)
	router.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(get)
	router.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard")).Methods(get)

	users := s.usersHandler
	router.HandleFunc("/users", MetricsMiddleware(users.HandleRegister, "users")).Methods(post)
	router.HandleFunc("/users/{username}", MetricsMiddleware(users.HandleGetUser, "user")).Methods(get)
	router.HandleFunc("/users/{username}/rank", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank")).Methods(get)
	router.HandleFunc("/users/{username}/titles", MetricsMiddleware(users.HandleGetTitles, "titles")).Methods(get)
	router.HandleFunc("/users/{username}/title", MetricsMiddleware(users.HandleEquipTitle, "title")).Methods(put)
	router.HandleFunc("/users/{username}/profile", MetricsMiddleware(users.HandleUpdateProfile, "profile")).Methods(patch)
	router.HandleFunc("/users/{username}/promote", MetricsMiddleware(users.HandlePromote, "promote")).Methods(post)

	bans := s.bansHandler
	router.HandleFunc("/users/{username}/ban", MetricsMiddleware(bans.HandleGetBan, "ban")).Methods(get)
	router.HandleFunc("/users/{username}/ban", MetricsMiddleware(bans.HandleBan, "ban")).Methods(post)
	router.HandleFunc("/users/{username}/ban", MetricsMiddleware(bans.HandleUnban, "ban")).Methods(del)
	router.HandleFunc("/bans", MetricsMiddleware(bans.HandleListBans, "bans")).Methods(get)

	levels := s.levelsHandler
	router.HandleFunc("/users/{username}/completions/{id}", MetricsMiddleware(levels.HandleDeleteCompletion, "completion")).Methods(del)
	router.HandleFunc("/levels", MetricsMiddleware(levels.HandleListLevels, "levels")).Methods(get)
	router.HandleFunc("/levels/{id}", MetricsMiddleware(levels.HandleRemoveLevel, "level")).Methods(del)
	router.HandleFunc("/levels/{id}/move", MetricsMiddleware(levels.HandleMoveLevel, "move")).Methods(post)
	router.HandleFunc("/levels/{id}/tags", MetricsMiddleware(levels.HandleEditTags, "tags")).Methods(put)

	subs := s.submissionsHandler
	router.HandleFunc("/submissions", MetricsMiddleware(subs.HandleList, "submissions")).Methods(get)
	router.HandleFunc("/submissions", MetricsMiddleware(subs.HandleCreate, "submissions")).Methods(post)
	router.HandleFunc("/submissions/{id}", MetricsMiddleware(subs.HandleGet, "submission")).Methods(get)
	router.HandleFunc("/submissions/{id}", MetricsMiddleware(subs.HandleWithdraw, "submission")).Methods(del)
	router.HandleFunc("/submissions/{id}/approve", MetricsMiddleware(subs.HandleApprove, "approve")).Methods(post)
	router.HandleFunc("/submissions/{id}/reject", MetricsMiddleware(subs.HandleReject, "reject")).Methods(post)

	router.HandleFunc("/audit", MetricsMiddleware(s.auditHandler.HandleList, "audit")).Methods(get)
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps a service error to its status and code.
func writeServiceError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}

// decodeJSON reads a JSON body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

// actor returns the acting username, writing 401 when it is absent.
func actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	a := strings.TrimSpace(r.Header.Get(ActorHeader))
	if a == "" {
		writeError(w, http.StatusUnauthorized, "missing_actor", ErrMissingActor)
		return "", false
	}
	return a, true
}

// limitParam parses ?limit=, defaulting to def and refusing values above maxLimit.
func limitParam(r *http.Request, def, maxLimit int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", ErrBadRequest)
	}
	if n > maxLimit {
		return 0, fmt.Errorf("%w: limit must not exceed %d", ErrLimitExceeded, maxLimit)
	}
	return n, nil
}
