package service

import (
	"context"
	"fmt"

	"github.com/okian/levelrank/internal/domain/leaderboard"
	"github.com/okian/levelrank/internal/domain/model"
	"github.com/okian/levelrank/internal/domain/titles"
	"github.com/okian/levelrank/pkg/logger"
	"github.com/okian/levelrank/pkg/metrics"
)

// IsEligible reports whether username may equip titleID right now.
func (s *Service) IsEligible(ctx context.Context, username, titleID string) (bool, error) {
	users, _, err := s.loadUsers(ctx)
	if err != nil {
		return false, err
	}
	i := findUser(users, username)
	if i < 0 {
		return false, fmt.Errorf("%w: user %q", ErrNotFound, username)
	}
	rank, _ := leaderboard.Rank(users, users[i].Username)
	return titles.IsEligible(titleID, users[i].Points, rank), nil
}

// EligibleTitles lists the titles username may equip right now.
func (s *Service) EligibleTitles(ctx context.Context, username string) ([]titles.Title, error) {
	users, _, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	i := findUser(users, username)
	if i < 0 {
		return nil, fmt.Errorf("%w: user %q", ErrNotFound, username)
	}
	rank, _ := leaderboard.Rank(users, users[i].Username)
	return titles.Eligible(users[i].Points, rank), nil
}

// EquipTitle equips titleID for username and returns the title now equipped.
// Equipping the title already worn toggles back to the free title. Eligibility
// is checked against the snapshot at the time of the call.
func (s *Service) EquipTitle(ctx context.Context, username, titleID string) (string, error) {
	if _, ok := titles.Lookup(titleID); !ok {
		return "", fmt.Errorf("%w: title %q", ErrNotFound, titleID)
	}

	var equipped string
	err := s.exec(ctx, "equip_title", func(ctx context.Context) error {
		users, version, err := s.loadUsers(ctx)
		if err != nil {
			return err
		}
		i := findUser(users, username)
		if i < 0 {
			return fmt.Errorf("%w: user %q", ErrNotFound, username)
		}
		u := &users[i]
		rank, _ := leaderboard.Rank(users, u.Username)

		if !titles.IsEligible(titleID, u.Points, rank) {
			metrics.RecordTitleEquip("rejected")
			s.audit(ctx, s.event(model.ActionAttemptInvalidEquip, u.Username, u.Username, map[string]any{
				"title":  titleID,
				"points": u.Points,
				"rank":   rank,
			}))
			return fmt.Errorf("%w: %q requires %s", ErrIneligibleTitle, titleID, requirement(titleID))
		}

		action, result := model.ActionEquipTitle, "equip"
		previous := u.EquippedTitle
		if previous == titleID && titleID != titles.Free {
			action, result = model.ActionUnequipTitle, "unequip"
			u.EquippedTitle = titles.Free
		} else {
			u.EquippedTitle = titleID
		}

		resets, err := s.saveUsers(ctx, users, version)
		if err != nil {
			return err
		}
		metrics.RecordTitleEquip(result)
		s.audit(ctx, append([]model.AuditEvent{
			s.event(action, u.Username, u.Username, map[string]any{"from": previous, "to": u.EquippedTitle}),
		}, resets...)...)

		equipped = u.EquippedTitle
		s.logger.Debug(ctx, "title changed",
			logger.String("username", u.Username),
			logger.String("title", equipped),
		)
		return nil
	})
	return equipped, err
}

func requirement(titleID string) string {
	t, _ := titles.Lookup(titleID)
	return t.Requirement()
}
