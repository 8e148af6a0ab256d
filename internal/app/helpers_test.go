package service_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/okian/levelrank/internal/adapters/repository"
	service "github.com/okian/levelrank/internal/app"
	"github.com/okian/levelrank/internal/domain/ids"
	"github.com/okian/levelrank/internal/domain/model"
	"github.com/okian/levelrank/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.InitWithWriter(io.Discard); err != nil {
		panic(err)
	}
}

const (
	headAdmin = "zmmieh."
	password  = "secret1"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// harness is a started service over an inspectable store.
type harness struct {
	ctx   context.Context
	svc   *service.Service
	store repository.Store
	clock *fakeClock
}

func newHarness(store repository.Store, opts ...service.Option) *harness {
	if store == nil {
		store = repository.NewMemoryStore()
	}
	clock := newFakeClock()
	base := []service.Option{
		service.WithStore(store),
		service.WithClock(clock.Now),
		service.WithIDGenerator(ids.Sequence("id")),
		service.WithSeedAdmin(headAdmin, "123456"),
	}
	h := &harness{
		ctx:   context.Background(),
		svc:   service.New(append(base, opts...)...),
		store: store,
		clock: clock,
	}
	So(h.svc.Start(h.ctx), ShouldBeNil)
	return h
}

func (h *harness) register(names ...string) {
	for _, name := range names {
		_, err := h.svc.RegisterUser(h.ctx, service.Registration{
			Username:    name,
			Password:    password,
			Nationality: "NL",
		})
		So(err, ShouldBeNil)
	}
}

func levelPayload(name string) model.LevelPayload {
	return model.LevelPayload{
		Name:     name,
		Creators: []string{"maker"},
		LevelID:  "4242",
		Youtube:  "https://youtu.be/" + name,
		Raw:      "https://raw.example/" + name,
		Tags:     []string{"Cube Carried"},
	}
}

// publish submits and approves a level as the head admin.
func (h *harness) publish(name string) model.Level {
	sub, err := h.svc.SubmitLevel(h.ctx, headAdmin, levelPayload(name))
	So(err, ShouldBeNil)
	out, err := h.svc.Approve(h.ctx, headAdmin, sub.ID)
	So(err, ShouldBeNil)
	So(out.Level, ShouldNotBeNil)
	return *out.Level
}

func (h *harness) submitCompletion(user string, level model.Level, video string) model.Submission {
	sub, err := h.svc.SubmitCompletion(h.ctx, user, model.CompletionPayload{
		LevelRef: level.ID,
		Youtube:  video,
		Raw:      "https://raw.example/" + user,
	})
	So(err, ShouldBeNil)
	return sub
}

// complete submits and approves a completion for user.
func (h *harness) complete(user string, level model.Level, video string) service.ApprovalOutcome {
	sub := h.submitCompletion(user, level, video)
	out, err := h.svc.Approve(h.ctx, headAdmin, sub.ID)
	So(err, ShouldBeNil)
	return out
}

func (h *harness) points(user string) int {
	p, err := h.svc.User(h.ctx, user)
	So(err, ShouldBeNil)
	return p.Points
}

// storedUser reads the persisted record, bypassing every read model.
func (h *harness) storedUser(name string) model.User {
	users, _, err := repository.LoadRecords[model.User](h.ctx, h.store, repository.Users)
	So(err, ShouldBeNil)
	for _, u := range users {
		if model.SameUsername(u.Username, name) {
			return u
		}
	}
	return model.User{}
}

func (h *harness) audited(action, target string) bool {
	events, err := h.svc.AuditLog(h.ctx, 0)
	So(err, ShouldBeNil)
	for _, e := range events {
		if e.Action == action && e.Target == target {
			return true
		}
	}
	return false
}

// flakyStore fails saves of selected collections.
type flakyStore struct {
	repository.Store

	mu   sync.Mutex
	fail map[repository.Collection]error
}

func newFlakyStore() *flakyStore {
	return &flakyStore{
		Store: repository.NewMemoryStore(),
		fail:  map[repository.Collection]error{},
	}
}

func (f *flakyStore) failSaves(c repository.Collection, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, c)
		return
	}
	f.fail[c] = err
}

func (f *flakyStore) Save(ctx context.Context, c repository.Collection, expected repository.Version, data []byte) (repository.Version, error) {
	f.mu.Lock()
	err := f.fail[c]
	f.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return f.Store.Save(ctx, c, expected, data)
}
