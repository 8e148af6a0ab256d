package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/levelrank/internal/adapters/repository"
	"github.com/okian/levelrank/internal/domain/leaderboard"
	"github.com/okian/levelrank/internal/domain/model"
	"github.com/okian/levelrank/internal/domain/titles"
	"github.com/okian/levelrank/pkg/logger"
	"github.com/okian/levelrank/pkg/metrics"
)

// systemActor is the audit actor for rule-engine actions.
const systemActor = "system"

const auditRetries = 3

func (s *Service) loadUsers(ctx context.Context) ([]model.User, repository.Version, error) {
	return repository.LoadRecords[model.User](ctx, s.store, repository.Users)
}

func (s *Service) loadLevels(ctx context.Context) ([]model.Level, repository.Version, error) {
	return repository.LoadRecords[model.Level](ctx, s.store, repository.Levels)
}

func (s *Service) loadSubmissions(ctx context.Context) ([]model.Submission, repository.Version, error) {
	return repository.LoadRecords[model.Submission](ctx, s.store, repository.Submissions)
}

func (s *Service) loadAudit(ctx context.Context) ([]model.AuditEvent, repository.Version, error) {
	return repository.LoadRecords[model.AuditEvent](ctx, s.store, repository.Audit)
}

// saveUsers enforces the equipped-title invariant on every user and saves the
// collection. A title that is no longer eligible is reset to the free title
// and one reset event per user is returned for the audit log.
func (s *Service) saveUsers(ctx context.Context, users []model.User, expected repository.Version) ([]model.AuditEvent, error) {
	ranks := leaderboard.Ranks(users)
	var resets []model.AuditEvent
	for i := range users {
		u := &users[i]
		if u.EquippedTitle == "" {
			u.EquippedTitle = titles.Free
			continue
		}
		rank := ranks[model.FoldUsername(u.Username)]
		if titles.IsEligible(u.EquippedTitle, u.Points, rank) {
			continue
		}
		resets = append(resets, s.event(model.ActionInvalidTitleReset, systemActor, u.Username, map[string]any{
			"title":  u.EquippedTitle,
			"points": u.Points,
			"rank":   rank,
		}))
		u.EquippedTitle = titles.Free
	}

	if _, err := repository.SaveRecords(ctx, s.store, repository.Users, expected, users); err != nil {
		return nil, fmt.Errorf("save users: %w", err)
	}
	for _, e := range resets {
		metrics.RecordTitleReset()
		s.logger.Info(ctx, "equipped title reset",
			logger.String("username", e.Target),
			logger.Any("title", e.Details["title"]),
		)
	}
	metrics.UpdateTotalUsers(len(users))
	return resets, nil
}

func (s *Service) saveLevels(ctx context.Context, levels []model.Level, expected repository.Version) error {
	if _, err := repository.SaveRecords(ctx, s.store, repository.Levels, expected, levels); err != nil {
		return fmt.Errorf("save levels: %w", err)
	}
	metrics.UpdateTotalLevels(len(levels))
	return nil
}

func (s *Service) saveSubmissions(ctx context.Context, subs []model.Submission, expected repository.Version) error {
	if _, err := repository.SaveRecords(ctx, s.store, repository.Submissions, expected, subs); err != nil {
		return fmt.Errorf("save submissions: %w", err)
	}
	metrics.UpdatePendingSubmissions(countPending(subs))
	return nil
}

// event builds an audit event stamped with a new id and the current time.
func (s *Service) event(action, actor, target string, details map[string]any) model.AuditEvent {
	if details == nil {
		details = map[string]any{}
	}
	return model.AuditEvent{
		ID:      s.ids.NewID(),
		Action:  action,
		Actor:   actor,
		Target:  target,
		Details: details,
		TS:      s.nowMs(),
	}
}

// audit prepends events to the log, newest first, evicting the oldest beyond
// capacity. The log is best effort: a failure is logged, never returned.
func (s *Service) audit(ctx context.Context, events ...model.AuditEvent) {
	if len(events) == 0 {
		return
	}

	var err error
	for attempt := 0; attempt < auditRetries; attempt++ {
		var (
			log     []model.AuditEvent
			version repository.Version
		)
		log, version, err = s.loadAudit(ctx)
		if err != nil {
			break
		}

		next := make([]model.AuditEvent, 0, len(events)+len(log))
		for i := len(events) - 1; i >= 0; i-- {
			next = append(next, events[i])
		}
		next = append(next, log...)
		if len(next) > s.auditCapacity {
			next = next[:s.auditCapacity]
		}

		_, err = repository.SaveRecords(ctx, s.store, repository.Audit, version, next)
		if err == nil {
			metrics.RecordAuditEvents(len(events))
			return
		}
		if !errors.Is(err, repository.ErrConflict) {
			break
		}
	}

	metrics.RecordErrorByComponent("audit", "append")
	s.logger.Warn(ctx, "failed to append audit events",
		logger.String("action", events[0].Action),
		logger.Int("count", len(events)),
		logger.Error(err),
	)
}

// findUser returns the index of username, matched case-insensitively, or -1.
func findUser(users []model.User, username string) int {
	folded := model.FoldUsername(username)
	for i := range users {
		if model.FoldUsername(users[i].Username) == folded {
			return i
		}
	}
	return -1
}

func findSubmission(subs []model.Submission, id string) int {
	for i := range subs {
		if subs[i].ID == id {
			return i
		}
	}
	return -1
}

func countPending(subs []model.Submission) int {
	n := 0
	for i := range subs {
		if subs[i].IsPending() {
			n++
		}
	}
	return n
}

// requireModerator checks that actor exists and may moderate.
func requireModerator(users []model.User, actor string) (*model.User, error) {
	i := findUser(users, actor)
	if i < 0 {
		return nil, fmt.Errorf("%w: actor %q is not a moderator", ErrForbidden, actor)
	}
	if !users[i].IsModerator() {
		return nil, fmt.Errorf("%w: actor %q is not a moderator", ErrForbidden, actor)
	}
	return &users[i], nil
}
