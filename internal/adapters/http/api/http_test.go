package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/okian/levelrank/internal/adapters/http/api"
	service "github.com/okian/levelrank/internal/app"
	"github.com/okian/levelrank/internal/domain/ids"
	"github.com/okian/levelrank/internal/domain/model"
	"github.com/okian/levelrank/internal/domain/types"
	"github.com/okian/levelrank/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.InitWithWriter(io.Discard); err != nil {
		panic(err)
	}
}

const admin = "zmmieh."

type client struct {
	router *mux.Router
}

func newClient() (*client, *service.Service) {
	svc := service.New(
		service.WithIDGenerator(ids.Sequence("id")),
		service.WithSeedAdmin(admin, "123456"),
	)
	So(svc.Start(context.Background()), ShouldBeNil)
	router := mux.NewRouter()
	api.NewServer(svc, 50).Register(context.Background(), router)
	return &client{router: router}, svc
}

func (c *client) do(method, path, actor string, body any, headers ...string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		So(err, ShouldBeNil)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if actor != "" {
		req.Header.Set(api.ActorHeader, actor)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

type apiError struct {
	Code string `json:"code"`
}

func (c *client) register(name string) {
	w := c.do(http.MethodPost, "/users", "", service.Registration{Username: name, Password: "secret1", Nationality: "NL"})
	So(w.Code, ShouldEqual, http.StatusCreated)
}

func (c *client) publish(name string) model.Level {
	w := c.do(http.MethodPost, "/submissions", admin, map[string]any{
		"type": "level",
		"level": model.LevelPayload{
			Name: name, Creators: []string{"maker"}, LevelID: "77",
			Youtube: "https://youtu.be/" + name, Raw: "raw", Tags: []string{"Cube Carried"},
		},
	})
	So(w.Code, ShouldEqual, http.StatusCreated)
	sub := decode[model.Submission](w)

	w = c.do(http.MethodPost, "/submissions/"+sub.ID+"/approve", admin, nil)
	So(w.Code, ShouldEqual, http.StatusOK)
	out := decode[service.ApprovalOutcome](w)
	So(out.Level, ShouldNotBeNil)
	return *out.Level
}

func TestServer_Routes(t *testing.T) {
	Convey("Given a started service behind the router", t, func() {
		c, svc := newClient()
		defer svc.Stop()

		Convey("Health reports ok", func() {
			w := c.do(http.MethodGet, "/healthz", "", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"ok"`)
		})

		Convey("Metrics are exposed", func() {
			w := c.do(http.MethodGet, "/metrics", "", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Stats count the seeded head admin", func() {
			w := c.do(http.MethodGet, "/stats", "", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[types.Stats](w).Users, ShouldEqual, 1)
		})

		Convey("Unknown paths are 404 and wrong methods 405", func() {
			So(c.do(http.MethodGet, "/nope", "", nil).Code, ShouldEqual, http.StatusNotFound)
			So(c.do(http.MethodPut, "/leaderboard", "", nil).Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Mutations without an actor are 401", func() {
			w := c.do(http.MethodPost, "/submissions", "", map[string]any{"type": "level"})
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
			So(decode[apiError](w).Code, ShouldEqual, "missing_actor")
		})

		Convey("Registration", func() {
			c.register("alice")

			Convey("rejects a case-insensitive duplicate", func() {
				w := c.do(http.MethodPost, "/users", "", service.Registration{Username: "ALICE", Password: "secret1", Nationality: "NL"})
				So(w.Code, ShouldEqual, http.StatusConflict)
			})

			Convey("rejects a short password", func() {
				w := c.do(http.MethodPost, "/users", "", service.Registration{Username: "bob", Password: "x", Nationality: "NL"})
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("rejects unknown fields", func() {
				w := c.do(http.MethodPost, "/users", "", map[string]any{"username": "bob", "role": "admin"})
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("exposes the profile without a password", func() {
				w := c.do(http.MethodGet, "/users/alice", "", nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldNotContainSubstring, "secret1")
				So(decode[types.Profile](w).EquippedTitle.ID, ShouldEqual, "fresh")
			})
		})

		Convey("A completion flows from submission to leaderboard", func() {
			c.register("alice")
			level := c.publish("alpha")
			So(level.Placement, ShouldEqual, 1)

			body := map[string]any{
				"type":       "completion",
				"completion": model.CompletionPayload{LevelRef: level.ID, Youtube: "https://youtu.be/run", Raw: "raw"},
			}
			w := c.do(http.MethodPost, "/submissions", "alice", body, api.IdempotencyHeader, "k1")
			So(w.Code, ShouldEqual, http.StatusCreated)
			sub := decode[model.Submission](w)
			So(sub.Status, ShouldEqual, model.StatusPending)
			So(sub.Completion.LevelName, ShouldEqual, "alpha")

			Convey("a retried Idempotency-Key is acknowledged once", func() {
				w := c.do(http.MethodPost, "/submissions", "alice", body, api.IdempotencyHeader, "k1")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)

				w = c.do(http.MethodGet, "/submissions?status=pending", "", nil)
				So(len(decode[[]model.Submission](w)), ShouldEqual, 1)
			})

			Convey("the key belongs to the account, whatever the header's letter case", func() {
				w := c.do(http.MethodPost, "/submissions", "ALICE", body, api.IdempotencyHeader, "k1")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)

				w = c.do(http.MethodGet, "/submissions?status=pending", "", nil)
				So(len(decode[[]model.Submission](w)), ShouldEqual, 1)
			})

			Convey("regular users cannot approve", func() {
				w := c.do(http.MethodPost, "/submissions/"+sub.ID+"/approve", "alice", nil)
				So(w.Code, ShouldEqual, http.StatusForbidden)
			})

			Convey("approval awards points and ranks the user", func() {
				w := c.do(http.MethodPost, "/submissions/"+sub.ID+"/approve", admin, nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[service.ApprovalOutcome](w).Points, ShouldEqual, 100)

				w = c.do(http.MethodGet, "/leaderboard?limit=5", "", nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				entries := decode[[]types.Entry](w)
				So(len(entries), ShouldEqual, 2)
				So(entries[0].Username, ShouldEqual, "alice")
				So(entries[0].Rank, ShouldEqual, 1)

				w = c.do(http.MethodGet, "/users/alice/rank", "", nil)
				So(decode[types.Entry](w).Points, ShouldEqual, 100)

				Convey("and a second approval is not pending", func() {
					w := c.do(http.MethodPost, "/submissions/"+sub.ID+"/approve", admin, nil)
					So(w.Code, ShouldEqual, http.StatusConflict)
					So(decode[apiError](w).Code, ShouldEqual, "not_pending")
				})

				Convey("and deleting the completion reverses the points", func() {
					profile := decode[types.Profile](c.do(http.MethodGet, "/users/alice", "", nil))
					So(len(profile.CompletedRecords), ShouldEqual, 1)

					path := "/users/alice/completions/" + profile.CompletedRecords[0].ID
					w := c.do(http.MethodDelete, path, admin, nil)
					So(w.Code, ShouldEqual, http.StatusOK)
					So(w.Body.String(), ShouldContainSubstring, `"reversed":100`)
					So(decode[types.Profile](c.do(http.MethodGet, "/users/alice", "", nil)).Points, ShouldEqual, 0)
				})
			})

			Convey("a rejection needs no body", func() {
				w := c.do(http.MethodPost, "/submissions/"+sub.ID+"/reject", admin, nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[model.Submission](w).Status, ShouldEqual, model.StatusRejected)
			})

			Convey("the submitter can withdraw it", func() {
				w := c.do(http.MethodDelete, "/submissions/"+sub.ID, "alice", nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[model.Submission](w).Status, ShouldEqual, model.StatusWithdrawn)
			})
		})

		Convey("Completions for missing levels are refused", func() {
			c.register("alice")
			w := c.do(http.MethodPost, "/submissions", "alice", map[string]any{
				"type":       "completion",
				"completion": model.CompletionPayload{LevelRef: "ghost", Youtube: "https://youtu.be/x", Raw: "raw"},
			})
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(decode[apiError](w).Code, ShouldEqual, "reference_missing")
		})

		Convey("Submissions with a mismatched payload are refused", func() {
			w := c.do(http.MethodPost, "/submissions", admin, map[string]any{"type": "completion"})
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			w = c.do(http.MethodGet, "/submissions?status=bogus", "", nil)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Levels can be moved and retagged", func() {
			a := c.publish("alpha")
			b := c.publish("beta")

			w := c.do(http.MethodPost, "/levels/"+b.ID+"/move", admin, map[string]string{"direction": "up"})
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"moved":true`)

			levels := decode[[]model.Level](c.do(http.MethodGet, "/levels", "", nil))
			So(len(levels), ShouldEqual, 2)
			So(levels[0].ID, ShouldEqual, b.ID)
			So(levels[1].ID, ShouldEqual, a.ID)

			w = c.do(http.MethodPost, "/levels/"+b.ID+"/move", admin, map[string]string{"direction": "up"})
			So(w.Body.String(), ShouldContainSubstring, `"moved":false`)

			w = c.do(http.MethodPost, "/levels/"+b.ID+"/move", admin, map[string]string{"direction": "sideways"})
			So(w.Code, ShouldEqual, http.StatusBadRequest)

			w = c.do(http.MethodPut, "/levels/"+a.ID+"/tags", admin, map[string][]string{"tags": {"Ship Carried"}})
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[model.Level](w).Tags, ShouldResemble, []string{"Ship Carried"})

			w = c.do(http.MethodDelete, "/levels/"+b.ID, admin, nil)
			So(w.Code, ShouldEqual, http.StatusNoContent)
			levels = decode[[]model.Level](c.do(http.MethodGet, "/levels", "", nil))
			So(len(levels), ShouldEqual, 1)
			So(levels[0].Placement, ShouldEqual, 1)
		})

		Convey("Titles can only be equipped by their owner", func() {
			c.register("alice")
			c.register("bob")

			w := c.do(http.MethodPut, "/users/alice/title", "bob", map[string]string{"title": "fresh"})
			So(w.Code, ShouldEqual, http.StatusForbidden)

			w = c.do(http.MethodPut, "/users/alice/title", "alice", map[string]string{"title": "no-such-title"})
			So(w.Code, ShouldEqual, http.StatusNotFound)

			w = c.do(http.MethodGet, "/users/alice/titles", "", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"fresh"`)
		})

		Convey("Bans", func() {
			c.register("alice")

			w := c.do(http.MethodPost, "/users/alice/ban", admin, map[string]any{"days": 0, "reason": "cheating"})
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[types.Ban](w).Permanent, ShouldBeTrue)

			w = c.do(http.MethodGet, "/users/alice/ban", "", nil)
			So(w.Body.String(), ShouldContainSubstring, `"banned":true`)

			w = c.do(http.MethodGet, "/bans", "", nil)
			So(len(decode[[]types.Ban](w)), ShouldEqual, 1)

			w = c.do(http.MethodPost, "/users/"+admin+"/ban", admin, map[string]any{"days": 1})
			So(w.Code, ShouldEqual, http.StatusForbidden)

			w = c.do(http.MethodDelete, "/users/alice/ban", admin, nil)
			So(w.Body.String(), ShouldContainSubstring, `"cleared":true`)
		})

		Convey("Limits above the cap are refused", func() {
			w := c.do(http.MethodGet, "/leaderboard?limit=51", "", nil)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[apiError](w).Code, ShouldEqual, "limit_exceeded")

			w = c.do(http.MethodGet, "/audit?limit=0", "", nil)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("The audit log lists newest first", func() {
			c.register("alice")
			c.publish("alpha")
			w := c.do(http.MethodGet, "/audit?limit=1", "", nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			events := decode[[]model.AuditEvent](w)
			So(len(events), ShouldEqual, 1)
			So(events[0].Action, ShouldEqual, model.ActionApproveLevel)
		})
	})

	Convey("Given a stopped service", t, func() {
		c, svc := newClient()
		svc.Stop()

		Convey("Health reports unavailable and writes are refused", func() {
			So(c.do(http.MethodGet, "/healthz", "", nil).Code, ShouldEqual, http.StatusServiceUnavailable)
			w := c.do(http.MethodPost, "/users", "", service.Registration{Username: "late", Password: "secret1", Nationality: "NL"})
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}
