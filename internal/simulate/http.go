package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/levelrank/internal/adapters/http/api"
	service "github.com/okian/levelrank/internal/app"
	"github.com/okian/levelrank/internal/domain/model"
	"github.com/okian/levelrank/internal/domain/types"
)

// ErrUnexpectedStatus is wrapped by StatusError.
var ErrUnexpectedStatus = errors.New("unexpected status")

// StatusError is a non-2xx answer from the service.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %d %s: %s", ErrUnexpectedStatus, e.Status, e.Code, e.Message)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// Client talks to the levelrank HTTP API.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient creates a new API client with timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// do sends a JSON request and decodes a 2xx body into out. It returns the
// status code so callers can tell 200 from 201.
func (c *Client) do(ctx context.Context, method, path, actor string, body, out any, headers ...string) (int, error) {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != "" {
		req.Header.Set(api.ActorHeader, actor)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{Status: resp.StatusCode}
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &e) == nil {
			se.Code, se.Message = e.Code, e.Message
		}
		return resp.StatusCode, se
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", "", nil, nil)
	return err
}

// Register creates a player account.
func (c *Client) Register(ctx context.Context, username, password, nationality string) (types.Profile, error) {
	var p types.Profile
	_, err := c.do(ctx, http.MethodPost, "/users", "", service.Registration{
		Username:    username,
		Password:    password,
		Nationality: nationality,
	}, &p)
	return p, err
}

// User fetches a public profile.
func (c *Client) User(ctx context.Context, username string) (types.Profile, error) {
	var p types.Profile
	_, err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(username), "", nil, &p)
	return p, err
}

// Rank fetches the leaderboard entry of one user.
func (c *Client) Rank(ctx context.Context, username string) (types.Entry, error) {
	var e types.Entry
	_, err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(username)+"/rank", "", nil, &e)
	return e, err
}

// Leaderboard fetches the top limit entries.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]types.Entry, error) {
	var entries []types.Entry
	_, err := c.do(ctx, http.MethodGet, "/leaderboard?limit="+strconv.Itoa(limit), "", nil, &entries)
	return entries, err
}

// Levels fetches the published levels in placement order.
func (c *Client) Levels(ctx context.Context) ([]model.Level, error) {
	var levels []model.Level
	_, err := c.do(ctx, http.MethodGet, "/levels", "", nil, &levels)
	return levels, err
}

// SubmitLevel proposes a level as actor.
func (c *Client) SubmitLevel(ctx context.Context, actor string, p model.LevelPayload) (model.Submission, error) {
	var sub model.Submission
	_, err := c.do(ctx, http.MethodPost, "/submissions", actor, map[string]any{
		"type":  model.SubmissionLevel,
		"level": p,
	}, &sub)
	return sub, err
}

// SubmitCompletion proposes a completion as actor. A repeated idempotency
// key is reported as duplicate with a zero submission.
func (c *Client) SubmitCompletion(ctx context.Context, actor, key string, p model.CompletionPayload) (model.Submission, bool, error) {
	body := map[string]any{
		"type":       model.SubmissionCompletion,
		"completion": p,
	}
	var raw json.RawMessage
	status, err := c.do(ctx, http.MethodPost, "/submissions", actor, body, &raw, api.IdempotencyHeader, key)
	if err != nil {
		return model.Submission{}, false, err
	}
	if status == http.StatusOK {
		var ack ackResponse
		if err := json.Unmarshal(raw, &ack); err != nil {
			return model.Submission{}, false, fmt.Errorf("failed to decode ack: %w", err)
		}
		return model.Submission{}, ack.Duplicate, nil
	}
	var sub model.Submission
	if err := json.Unmarshal(raw, &sub); err != nil {
		return model.Submission{}, false, fmt.Errorf("failed to decode submission: %w", err)
	}
	return sub, false, nil
}

// Approve accepts a pending submission as actor.
func (c *Client) Approve(ctx context.Context, actor, id string) (service.ApprovalOutcome, error) {
	var out service.ApprovalOutcome
	_, err := c.do(ctx, http.MethodPost, "/submissions/"+url.PathEscape(id)+"/approve", actor, nil, &out)
	return out, err
}

// MoveLevel swaps a level with its neighbour as actor.
func (c *Client) MoveLevel(ctx context.Context, actor, levelID string, direction service.Direction) (bool, error) {
	var out struct {
		Moved bool `json:"moved"`
	}
	_, err := c.do(ctx, http.MethodPost, "/levels/"+url.PathEscape(levelID)+"/move", actor,
		map[string]service.Direction{"direction": direction}, &out)
	return out.Moved, err
}
