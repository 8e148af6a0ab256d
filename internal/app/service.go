// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
//
// Reads load a fresh snapshot from the store on every call. Every mutation is
// wrapped in a command and executed by a single writer so load, mutate and save
// never interleave inside the process.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/levelrank/internal/adapters/mq/queue"
	"github.com/okian/levelrank/internal/adapters/mq/worker"
	"github.com/okian/levelrank/internal/adapters/repository"
	"github.com/okian/levelrank/internal/domain/dedupe"
	"github.com/okian/levelrank/internal/domain/ids"
	"github.com/okian/levelrank/internal/domain/model"
	"github.com/okian/levelrank/internal/domain/scoring"
	"github.com/okian/levelrank/internal/domain/titles"
	"github.com/okian/levelrank/internal/domain/types"
	"github.com/okian/levelrank/pkg/logger"
	"github.com/okian/levelrank/pkg/metrics"
)

const (
	defaultAuditCapacity = 300
	defaultQueueSize     = 1024
	defaultDedupeSize    = 10_000
	shutdownTimeout      = 5 * time.Second
)

// Service owns the four collections and implements every ranked operation.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	writer  *worker.InMemoryWorker
	scorer  scoring.Scorer
	ids     ids.Generator
	now     func() time.Time

	// Configuration
	auditCapacity int
	queueSize     int
	dedupeSize    int
	seedUsername  string
	seedPassword  string

	// State
	started bool
	stopCh  chan struct{}
	cancel  context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the entity store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithClock sets the time source used for timestamps and ban expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the identifier generator for new records.
func WithIDGenerator(gen ids.Generator) Option {
	return func(s *Service) {
		if gen != nil {
			s.ids = gen
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithScorer sets the completion scorer.
func WithScorer(scorer scoring.Scorer) Option {
	return func(s *Service) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// WithAuditCapacity sets how many audit events are retained.
func WithAuditCapacity(capacity int) Option {
	return func(s *Service) {
		if capacity > 0 {
			s.auditCapacity = capacity
		}
	}
}

// WithQueueSize sets the maximum number of pending commands.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the idempotency key cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSeedAdmin sets the head admin account created when no users exist.
// An empty username disables seeding.
func WithSeedAdmin(username, password string) Option {
	return func(s *Service) {
		s.seedUsername = username
		s.seedPassword = password
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		auditCapacity: defaultAuditCapacity,
		queueSize:     defaultQueueSize,
		dedupeSize:    defaultDedupeSize,
		now:           time.Now,
		stopCh:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.scorer == nil {
		s.scorer = scoring.NewPlacementScorer()
	}
	if s.ids == nil {
		s.ids = ids.UUID()
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	return s
}

// Start seeds the head admin if the store is empty and starts the writer.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting levelrank service...")

	if err := s.seed(ctx); err != nil {
		return fmt.Errorf("seed head admin: %w", err)
	}

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.writer = worker.NewInMemoryWorker(s.queue, worker.WithLogger(s.logger.Named("worker")))

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.stopCh = make(chan struct{})
	go s.writer.Run(runCtx)

	s.started = true
	s.logger.Info(ctx, "levelrank service started",
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("auditCapacity", s.auditCapacity),
	)
	return nil
}

// Stop drains queued commands, stops the writer and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping levelrank service...")

	if err := s.writer.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "writer did not drain", logger.Error(err))
	}
	s.cancel()
	close(s.stopCh)

	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "error closing store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "levelrank service stopped")
}

// Started reports whether the writer is running.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// exec runs fn on the writer and waits for its result.
func (s *Service) exec(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	s.mu.RLock()
	started, q, stopCh := s.started, s.queue, s.stopCh
	s.mu.RUnlock()

	if !started {
		return ErrNotStarted
	}

	cmd := queue.NewCommand(ctx, name, fn)
	if !q.Enqueue(ctx, cmd) {
		if q.IsClosed() {
			return ErrStopped
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrBackpressure
	}

	select {
	case err := <-cmd.Done():
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-stopCh:
		select {
		case err := <-cmd.Done():
			return err
		default:
			return ErrStopped
		}
	}
}

// seed creates the head admin when the users collection is empty.
func (s *Service) seed(ctx context.Context) error {
	if s.seedUsername == "" {
		return nil
	}
	users, version, err := s.loadUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}

	admin := model.User{
		ID:            s.ids.NewID(),
		Username:      s.seedUsername,
		Password:      s.seedPassword,
		Role:          model.RoleHeadAdmin,
		CreatedAt:     s.nowMs(),
		EquippedTitle: titles.Free,
	}
	_, err = repository.SaveRecords(ctx, s.store, repository.Users, version, []model.User{admin})
	if errors.Is(err, repository.ErrConflict) {
		// another process seeded first
		return nil
	}
	if err != nil {
		return err
	}
	metrics.UpdateTotalUsers(1)
	s.logger.Info(ctx, "seeded head admin", logger.String("username", admin.Username))
	return nil
}

// SeenAndRecord atomically checks if an idempotency key was seen and records it if not.
// Returns true if the key was already seen, false if it was newly recorded.
func (s *Service) SeenAndRecord(ctx context.Context, key string) bool {
	return s.deduper.SeenAndRecord(ctx, key)
}

// Unrecord removes a key so a failed request can be retried.
func (s *Service) Unrecord(ctx context.Context, key string) {
	s.deduper.Unrecord(ctx, key)
}

// GetStats summarises the current state for monitoring.
func (s *Service) GetStats(ctx context.Context) (types.Stats, error) {
	users, _, err := s.loadUsers(ctx)
	if err != nil {
		return types.Stats{}, err
	}
	levels, _, err := s.loadLevels(ctx)
	if err != nil {
		return types.Stats{}, err
	}
	subs, _, err := s.loadSubmissions(ctx)
	if err != nil {
		return types.Stats{}, err
	}
	events, _, err := s.loadAudit(ctx)
	if err != nil {
		return types.Stats{}, err
	}

	now := s.nowMs()
	stats := types.Stats{
		Users:              len(users),
		Levels:             len(levels),
		PendingSubmissions: countPending(subs),
		AuditEvents:        len(events),
	}
	for i := range users {
		stats.TotalPoints += users[i].Points
		if users[i].BanActiveAt(now) {
			stats.ActiveBans++
		}
	}

	s.mu.RLock()
	if s.started {
		stats.QueueSize = s.queue.Len(ctx)
	}
	s.mu.RUnlock()

	metrics.UpdateTotalUsers(stats.Users)
	metrics.UpdateTotalLevels(stats.Levels)
	metrics.UpdatePendingSubmissions(stats.PendingSubmissions)
	return stats, nil
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	return s.deduper.Size()
}

func (s *Service) nowMs() int64 {
	return s.now().UnixMilli()
}
