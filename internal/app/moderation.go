package service

import (
	"context"
	"fmt"

	"github.com/okian/levelrank/internal/adapters/repository"
	"github.com/okian/levelrank/internal/domain/media"
	"github.com/okian/levelrank/internal/domain/model"
	"github.com/okian/levelrank/pkg/logger"
	"github.com/okian/levelrank/pkg/metrics"
)

// Direction moves a level one position in the ranking.
type Direction string

// Directions. Up means towards placement 1.
const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ApprovalOutcome describes what an approval produced.
type ApprovalOutcome struct {
	Submission model.Submission  `json:"submission"`
	Level      *model.Level      `json:"level,omitempty"`
	Completion *model.Completion `json:"completion,omitempty"`
	Points     int               `json:"points"`
	Duplicate  bool              `json:"duplicate"`
}

// Approve accepts a pending submission.
//
// A level is appended below every published level. A completion awards points
// for the level's current placement unless the submitter already holds an
// identical completion. A completion whose level or submitter is gone is
// consumed anyway: it is marked rejected and the matching error is returned.
func (s *Service) Approve(ctx context.Context, actor, id string) (ApprovalOutcome, error) {
	var out ApprovalOutcome
	err := s.exec(ctx, "approve", func(ctx context.Context) error {
		users, userVersion, err := s.loadUsers(ctx)
		if err != nil {
			return err
		}
		mod, err := requireModerator(users, actor)
		if err != nil {
			return err
		}
		subs, subVersion, err := s.loadSubmissions(ctx)
		if err != nil {
			return err
		}
		i := findSubmission(subs, id)
		if i < 0 {
			return fmt.Errorf("%w: submission %q", ErrNotFound, id)
		}
		if !subs[i].IsPending() {
			return fmt.Errorf("%w: %s", ErrNotPending, subs[i].Status)
		}

		st := &approval{
			svc:       s,
			moderator: mod.Username,
			now:       s.nowMs(),
			users:     users,
			userVer:   userVersion,
			subs:      subs,
			subVer:    subVersion,
			sub:       &subs[i],
			outcome:   &out,
		}
		switch subs[i].Type {
		case model.SubmissionLevel:
			err = st.level(ctx)
		case model.SubmissionCompletion:
			err = st.completion(ctx)
		default:
			err = fmt.Errorf("%w: unknown submission type %q", ErrValidation, subs[i].Type)
		}
		s.audit(ctx, st.auditTrail...)
		return err
	})
	return out, err
}

// approval carries one Approve call through its saves.
type approval struct {
	svc       *Service
	moderator string
	now       int64

	users   []model.User
	userVer repository.Version
	subs    []model.Submission
	subVer  repository.Version
	sub     *model.Submission

	outcome    *ApprovalOutcome
	auditTrail []model.AuditEvent
}

func (a *approval) level(ctx context.Context) error {
	s := a.svc
	p := a.sub.Level
	if p == nil {
		return fmt.Errorf("%w: level submission without payload", ErrValidation)
	}
	levels, levelVer, err := s.loadLevels(ctx)
	if err != nil {
		return err
	}

	// A retry after a partial commit finds the level already published.
	li := model.FindLevelBySubmission(levels, a.sub.ID)
	if li < 0 {
		thumb := p.Thumbnail
		if thumb == "" {
			thumb = media.Thumbnail(p.Youtube)
		}
		levels = append(levels, model.Level{
			ID:           s.ids.NewID(),
			Placement:    model.NextPlacement(levels),
			Name:         p.Name,
			LevelID:      p.LevelID,
			Creators:     p.Creators,
			Thumbnail:    thumb,
			Youtube:      p.Youtube,
			Tags:         p.Tags,
			Status:       model.LevelStatusPublished,
			Submitter:    a.sub.Submitter,
			ApprovedBy:   a.moderator,
			ApprovedAt:   a.now,
			SubmissionID: a.sub.ID,
		})
		li = len(levels) - 1
		if err := s.saveLevels(ctx, levels, levelVer); err != nil {
			return err
		}
	}
	level := levels[li]

	a.sub.Resolve(model.StatusApproved, a.moderator, a.now, model.ResolutionPublished)
	if err := s.saveSubmissions(ctx, a.subs, a.subVer); err != nil {
		return fmt.Errorf("%w: level %s published: %w", ErrPartialCommit, level.ID, err)
	}

	metrics.RecordApproval(string(model.SubmissionLevel), model.ResolutionPublished)
	a.auditTrail = append(a.auditTrail, s.event(model.ActionApproveLevel, a.moderator, level.ID, map[string]any{
		"submission": a.sub.ID,
		"name":       level.Name,
		"placement":  level.Placement,
	}))
	a.outcome.Submission = *a.sub
	a.outcome.Level = &level
	s.logger.Info(ctx, "level approved",
		logger.String("submission", a.sub.ID),
		logger.String("level", level.ID),
		logger.Int("placement", level.Placement),
	)
	return nil
}

func (a *approval) completion(ctx context.Context) error {
	s := a.svc
	p := a.sub.Completion
	if p == nil {
		return fmt.Errorf("%w: completion submission without payload", ErrValidation)
	}
	levels, _, err := s.loadLevels(ctx)
	if err != nil {
		return err
	}

	li := model.FindLevel(levels, p.LevelRef)
	if li < 0 {
		return a.consume(ctx, model.ResolutionReferenceMissing,
			fmt.Errorf("%w: level %q", ErrReferenceMissing, p.LevelRef))
	}
	ui := findUser(a.users, a.sub.Submitter)
	if ui < 0 {
		return a.consume(ctx, model.ResolutionSubmitterMissing,
			fmt.Errorf("%w: user %q", ErrSubmitterMissing, a.sub.Submitter))
	}
	level := levels[li]
	u := &a.users[ui]

	if u.HasCompletion(level.ID, p.Youtube) {
		a.sub.Resolve(model.StatusApproved, a.moderator, a.now, model.ResolutionDuplicate)
		if err := s.saveSubmissions(ctx, a.subs, a.subVer); err != nil {
			return err
		}
		metrics.RecordApproval(string(model.SubmissionCompletion), model.ResolutionDuplicate)
		a.auditTrail = append(a.auditTrail, s.event(model.ActionApproveCompletion, a.moderator, u.Username, map[string]any{
			"submission": a.sub.ID,
			"level":      level.ID,
			"points":     0,
			"percent":    percentDetail(p.Percent),
			"duplicate":  true,
		}))
		a.outcome.Submission = *a.sub
		a.outcome.Duplicate = true
		return nil
	}

	points := s.scorer.Award(level.Placement)
	c := model.Completion{
		ID:            s.ids.NewID(),
		LevelID:       level.ID,
		LevelName:     level.Name,
		TS:            a.now,
		Percent:       p.Percent,
		Youtube:       p.Youtube,
		AwardedPoints: points,
	}
	u.CompletedRecords = append(u.CompletedRecords, c)
	u.Points += points

	resets, err := s.saveUsers(ctx, a.users, a.userVer)
	if err != nil {
		return err
	}
	metrics.RecordPointsAwarded(points)
	a.auditTrail = append(a.auditTrail, s.event(model.ActionApproveCompletion, a.moderator, u.Username, map[string]any{
		"submission": a.sub.ID,
		"level":      level.ID,
		"placement":  level.Placement,
		"points":     points,
		"percent":    percentDetail(p.Percent),
	}))
	a.auditTrail = append(a.auditTrail, resets...)

	a.sub.Resolve(model.StatusApproved, a.moderator, a.now, model.ResolutionAwarded)
	if err := s.saveSubmissions(ctx, a.subs, a.subVer); err != nil {
		return fmt.Errorf("%w: %d points awarded to %s: %w", ErrPartialCommit, points, u.Username, err)
	}

	metrics.RecordApproval(string(model.SubmissionCompletion), model.ResolutionAwarded)
	a.outcome.Submission = *a.sub
	a.outcome.Completion = &c
	a.outcome.Points = points
	s.logger.Info(ctx, "completion approved",
		logger.String("submission", a.sub.ID),
		logger.String("username", u.Username),
		logger.Int("points", points),
	)
	return nil
}

// consume marks the submission rejected with note and returns cause.
func (a *approval) consume(ctx context.Context, note string, cause error) error {
	s := a.svc
	a.sub.Resolve(model.StatusRejected, a.moderator, a.now, note)
	if err := s.saveSubmissions(ctx, a.subs, a.subVer); err != nil {
		return err
	}
	metrics.RecordApproval(string(a.sub.Type), note)
	a.auditTrail = append(a.auditTrail, s.event(model.ActionRejectSubmission, a.moderator, a.sub.ID, map[string]any{
		"reason": note,
	}))
	a.outcome.Submission = *a.sub
	s.logger.Warn(ctx, "submission consumed without effect",
		logger.String("submission", a.sub.ID),
		logger.String("resolution", note),
	)
	return cause
}

// Reject declines a pending submission. It has no effect on points or placements.
func (s *Service) Reject(ctx context.Context, actor, id, reason string) (model.Submission, error) {
	var sub model.Submission
	err := s.exec(ctx, "reject", func(ctx context.Context) error {
		users, _, err := s.loadUsers(ctx)
		if err != nil {
			return err
		}
		mod, err := requireModerator(users, actor)
		if err != nil {
			return err
		}
		subs, version, err := s.loadSubmissions(ctx)
		if err != nil {
			return err
		}
		i := findSubmission(subs, id)
		if i < 0 {
			return fmt.Errorf("%w: submission %q", ErrNotFound, id)
		}
		if !subs[i].IsPending() {
			return fmt.Errorf("%w: %s", ErrNotPending, subs[i].Status)
		}

		note := model.ResolutionRejected
		if reason != "" {
			note = reason
		}
		subs[i].Resolve(model.StatusRejected, mod.Username, s.nowMs(), note)
		if err := s.saveSubmissions(ctx, subs, version); err != nil {
			return err
		}
		metrics.RecordRejection()
		s.audit(ctx, s.event(model.ActionRejectSubmission, mod.Username, id, map[string]any{"reason": note}))
		sub = subs[i]
		return nil
	})
	return sub, err
}

// Levels returns the published levels ordered by placement.
func (s *Service) Levels(ctx context.Context) ([]model.Level, error) {
	levels, _, err := s.loadLevels(ctx)
	if err != nil {
		return nil, err
	}
	model.SortByPlacement(levels)
	if levels == nil {
		levels = []model.Level{}
	}
	return levels, nil
}

// RemoveLevel deletes a level and renumbers the rest to 1..N. Points already
// awarded for it are kept.
func (s *Service) RemoveLevel(ctx context.Context, actor, levelID string) error {
	return s.exec(ctx, "remove_level", func(ctx context.Context) error {
		mod, err := s.moderator(ctx, actor)
		if err != nil {
			return err
		}
		levels, version, err := s.loadLevels(ctx)
		if err != nil {
			return err
		}
		i := model.FindLevel(levels, levelID)
		if i < 0 {
			return fmt.Errorf("%w: level %q", ErrNotFound, levelID)
		}
		removed := levels[i]
		levels = append(levels[:i], levels[i+1:]...)
		model.Renumber(levels)

		if err := s.saveLevels(ctx, levels, version); err != nil {
			return err
		}
		metrics.RecordLevelChange("remove")
		s.audit(ctx, s.event(model.ActionRemoveLevel, mod, removed.ID, map[string]any{
			"name":      removed.Name,
			"placement": removed.Placement,
		}))
		s.logger.Info(ctx, "level removed",
			logger.String("level", removed.ID),
			logger.Int("placement", removed.Placement),
		)
		return nil
	})
}

// SwapPlacement exchanges a level's placement with its neighbour in dir and
// reports whether anything moved. Moving past either end is a no-op.
func (s *Service) SwapPlacement(ctx context.Context, actor, levelID string, dir Direction) (bool, error) {
	if dir != DirectionUp && dir != DirectionDown {
		return false, fmt.Errorf("%w: direction must be up or down", ErrValidation)
	}

	var moved bool
	err := s.exec(ctx, "move_level", func(ctx context.Context) error {
		mod, err := s.moderator(ctx, actor)
		if err != nil {
			return err
		}
		levels, version, err := s.loadLevels(ctx)
		if err != nil {
			return err
		}
		model.SortByPlacement(levels)
		i := model.FindLevel(levels, levelID)
		if i < 0 {
			return fmt.Errorf("%w: level %q", ErrNotFound, levelID)
		}
		j := i - 1
		if dir == DirectionDown {
			j = i + 1
		}
		if j < 0 || j >= len(levels) {
			return nil
		}

		from := levels[i].Placement
		levels[i].Placement, levels[j].Placement = levels[j].Placement, levels[i].Placement
		if err := s.saveLevels(ctx, levels, version); err != nil {
			return err
		}
		moved = true
		metrics.RecordLevelChange("move")
		s.audit(ctx, s.event(model.ActionMoveLevel, mod, levelID, map[string]any{
			"from":      from,
			"to":        levels[i].Placement,
			"direction": string(dir),
		}))
		return nil
	})
	return moved, err
}

// EditTags replaces the tags of a level.
func (s *Service) EditTags(ctx context.Context, actor, levelID string, tags []string) (model.Level, error) {
	tags = model.NormalizeTags(tags)
	if err := model.ValidateTags(tags); err != nil {
		return model.Level{}, err
	}

	var level model.Level
	err := s.exec(ctx, "edit_tags", func(ctx context.Context) error {
		mod, err := s.moderator(ctx, actor)
		if err != nil {
			return err
		}
		levels, version, err := s.loadLevels(ctx)
		if err != nil {
			return err
		}
		i := model.FindLevel(levels, levelID)
		if i < 0 {
			return fmt.Errorf("%w: level %q", ErrNotFound, levelID)
		}
		old := levels[i].Tags
		levels[i].Tags = tags
		if err := s.saveLevels(ctx, levels, version); err != nil {
			return err
		}
		metrics.RecordLevelChange("tags")
		s.audit(ctx, s.event(model.ActionEditTags, mod, levelID, map[string]any{"old": old, "new": tags}))
		level = levels[i]
		return nil
	})
	return level, err
}

// DeleteCompletion removes a completion from username's history and reverses
// the points recorded at approval, flooring the total at 0. It returns the
// points reversed.
func (s *Service) DeleteCompletion(ctx context.Context, actor, username, completionID string) (int, error) {
	var reversed int
	err := s.exec(ctx, "delete_completion", func(ctx context.Context) error {
		users, version, err := s.loadUsers(ctx)
		if err != nil {
			return err
		}
		mod, err := requireModerator(users, actor)
		if err != nil {
			return err
		}
		ui := findUser(users, username)
		if ui < 0 {
			return fmt.Errorf("%w: user %q", ErrNotFound, username)
		}
		u := &users[ui]
		ci := -1
		for k := range u.CompletedRecords {
			if u.CompletedRecords[k].ID == completionID {
				ci = k
				break
			}
		}
		if ci < 0 {
			return fmt.Errorf("%w: completion %q", ErrNotFound, completionID)
		}

		c := u.CompletedRecords[ci]
		u.CompletedRecords = append(u.CompletedRecords[:ci], u.CompletedRecords[ci+1:]...)
		u.Points -= c.AwardedPoints
		if u.Points < 0 {
			u.Points = 0
		}

		resets, err := s.saveUsers(ctx, users, version)
		if err != nil {
			return err
		}
		reversed = c.AwardedPoints
		metrics.RecordPointsReversed(reversed)
		s.audit(ctx, append([]model.AuditEvent{
			s.event(model.ActionDeleteCompletion, mod.Username, u.Username, map[string]any{
				"completion": c.ID,
				"level":      c.LevelID,
				"levelName":  c.LevelName,
				"points":     c.AwardedPoints,
			}),
		}, resets...)...)
		s.logger.Info(ctx, "completion deleted",
			logger.String("username", u.Username),
			logger.Int("points", reversed),
		)
		return nil
	})
	return reversed, err
}

// AuditLog returns up to limit events, newest first; limit <= 0 returns all.
func (s *Service) AuditLog(ctx context.Context, limit int) ([]model.AuditEvent, error) {
	events, _, err := s.loadAudit(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(events) {
		events = events[:limit]
	}
	if events == nil {
		events = []model.AuditEvent{}
	}
	return events, nil
}

// moderator loads users and returns the stored username of a moderating actor.
func (s *Service) moderator(ctx context.Context, actor string) (string, error) {
	users, _, err := s.loadUsers(ctx)
	if err != nil {
		return "", err
	}
	mod, err := requireModerator(users, actor)
	if err != nil {
		return "", err
	}
	return mod.Username, nil
}

// percentDetail keeps a missing percent as null in audit details.
func percentDetail(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
