package service

import (
	"context"
	"fmt"

	"github.com/okian/levelrank/internal/domain/model"
	"github.com/okian/levelrank/pkg/logger"
	"github.com/okian/levelrank/pkg/metrics"
)

// SubmitLevel queues a new level for moderation.
func (s *Service) SubmitLevel(ctx context.Context, actor string, p model.LevelPayload) (model.Submission, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return model.Submission{}, err
	}

	var sub model.Submission
	err := s.exec(ctx, "submit_level", func(ctx context.Context) error {
		submitter, err := s.activeSubmitter(ctx, actor)
		if err != nil {
			return err
		}
		subs, version, err := s.loadSubmissions(ctx)
		if err != nil {
			return err
		}

		payload := p
		sub = model.Submission{
			ID:        s.ids.NewID(),
			Type:      model.SubmissionLevel,
			Submitter: submitter,
			Status:    model.StatusPending,
			CreatedAt: s.nowMs(),
			Level:     &payload,
		}
		if err := s.saveSubmissions(ctx, append(subs, sub), version); err != nil {
			return err
		}
		metrics.RecordSubmissionCreated(string(model.SubmissionLevel))
		s.audit(ctx, s.event(model.ActionSubmitLevel, submitter, sub.ID, map[string]any{"name": p.Name}))
		return nil
	})
	if err != nil {
		return model.Submission{}, err
	}
	s.logger.Debug(ctx, "level submitted",
		logger.String("submission", sub.ID),
		logger.String("submitter", sub.Submitter),
	)
	return sub, nil
}

// SubmitCompletion queues a completion claim for an existing level. The level
// name is snapshotted so the submission stays readable if the level goes away.
func (s *Service) SubmitCompletion(ctx context.Context, actor string, p model.CompletionPayload) (model.Submission, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return model.Submission{}, err
	}

	var sub model.Submission
	err := s.exec(ctx, "submit_completion", func(ctx context.Context) error {
		submitter, err := s.activeSubmitter(ctx, actor)
		if err != nil {
			return err
		}
		levels, _, err := s.loadLevels(ctx)
		if err != nil {
			return err
		}
		li := model.FindLevel(levels, p.LevelRef)
		if li < 0 {
			return fmt.Errorf("%w: level %q", ErrReferenceMissing, p.LevelRef)
		}
		subs, version, err := s.loadSubmissions(ctx)
		if err != nil {
			return err
		}

		payload := p
		payload.LevelName = levels[li].Name
		sub = model.Submission{
			ID:         s.ids.NewID(),
			Type:       model.SubmissionCompletion,
			Submitter:  submitter,
			Status:     model.StatusPending,
			CreatedAt:  s.nowMs(),
			Completion: &payload,
		}
		if err := s.saveSubmissions(ctx, append(subs, sub), version); err != nil {
			return err
		}
		metrics.RecordSubmissionCreated(string(model.SubmissionCompletion))
		s.audit(ctx, s.event(model.ActionSubmitCompletion, submitter, sub.ID, map[string]any{
			"level":     payload.LevelRef,
			"levelName": payload.LevelName,
		}))
		return nil
	})
	if err != nil {
		return model.Submission{}, err
	}
	s.logger.Debug(ctx, "completion submitted",
		logger.String("submission", sub.ID),
		logger.String("submitter", sub.Submitter),
	)
	return sub, nil
}

// WithdrawSubmission lets the submitter retract a pending submission.
func (s *Service) WithdrawSubmission(ctx context.Context, actor, id string) (model.Submission, error) {
	var sub model.Submission
	err := s.exec(ctx, "withdraw_submission", func(ctx context.Context) error {
		subs, version, err := s.loadSubmissions(ctx)
		if err != nil {
			return err
		}
		i := findSubmission(subs, id)
		if i < 0 {
			return fmt.Errorf("%w: submission %q", ErrNotFound, id)
		}
		if !model.SameUsername(subs[i].Submitter, actor) {
			return fmt.Errorf("%w: only the submitter may withdraw", ErrForbidden)
		}
		if !subs[i].IsPending() {
			return fmt.Errorf("%w: %s", ErrNotPending, subs[i].Status)
		}

		subs[i].Resolve(model.StatusWithdrawn, subs[i].Submitter, s.nowMs(), model.ResolutionWithdrawn)
		if err := s.saveSubmissions(ctx, subs, version); err != nil {
			return err
		}
		metrics.RecordWithdrawal()
		s.audit(ctx, s.event(model.ActionWithdrawSubmission, subs[i].Submitter, id, nil))
		sub = subs[i]
		return nil
	})
	return sub, err
}

// Submissions lists submissions with status, oldest first. An empty status lists all.
func (s *Service) Submissions(ctx context.Context, status model.SubmissionStatus) ([]model.Submission, error) {
	subs, _, err := s.loadSubmissions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Submission, 0, len(subs))
	for _, sub := range subs {
		if status == "" || sub.Status == status {
			out = append(out, sub)
		}
	}
	return out, nil
}

// Submission returns a single submission.
func (s *Service) Submission(ctx context.Context, id string) (model.Submission, error) {
	subs, _, err := s.loadSubmissions(ctx)
	if err != nil {
		return model.Submission{}, err
	}
	i := findSubmission(subs, id)
	if i < 0 {
		return model.Submission{}, fmt.Errorf("%w: submission %q", ErrNotFound, id)
	}
	return subs[i], nil
}

// activeSubmitter resolves actor to its stored username and refuses banned users.
func (s *Service) activeSubmitter(ctx context.Context, actor string) (string, error) {
	users, _, err := s.loadUsers(ctx)
	if err != nil {
		return "", err
	}
	i := findUser(users, actor)
	if i < 0 {
		return "", fmt.Errorf("%w: user %q", ErrNotFound, actor)
	}
	if users[i].BanActiveAt(s.nowMs()) {
		return "", fmt.Errorf("%w: banned users cannot submit", ErrForbidden)
	}
	return users[i].Username, nil
}
