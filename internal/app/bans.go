package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/levelrank/internal/domain/model"
	"github.com/okian/levelrank/internal/domain/types"
	"github.com/okian/levelrank/pkg/logger"
	"github.com/okian/levelrank/pkg/metrics"
)

const dayMs int64 = 86_400_000

// IsBanned reports whether username is banned now. An expired ban is cleared
// and persisted as a side effect of the check; nothing else sweeps them.
func (s *Service) IsBanned(ctx context.Context, username string) (bool, error) {
	users, _, err := s.loadUsers(ctx)
	if err != nil {
		return false, err
	}
	i := findUser(users, username)
	if i < 0 {
		return false, fmt.Errorf("%w: user %q", ErrNotFound, username)
	}
	u := users[i]
	if !u.HasBan() {
		return false, nil
	}
	if u.BanActiveAt(s.nowMs()) {
		return true, nil
	}

	err = s.exec(ctx, "expire_ban", func(ctx context.Context) error {
		return s.expireBan(ctx, u.Username)
	})
	return false, err
}

// expireBan clears the ban of username if it is still set and expired.
func (s *Service) expireBan(ctx context.Context, username string) error {
	users, version, err := s.loadUsers(ctx)
	if err != nil {
		return err
	}
	i := findUser(users, username)
	if i < 0 {
		return nil
	}
	u := &users[i]
	if !u.HasBan() || u.BanActiveAt(s.nowMs()) {
		return nil
	}

	until := u.BannedUntil
	u.ClearBan()
	resets, err := s.saveUsers(ctx, users, version)
	if err != nil {
		return err
	}
	metrics.RecordBanExpiry()
	s.audit(ctx, append([]model.AuditEvent{
		s.event(model.ActionBanExpired, systemActor, u.Username, map[string]any{"until": until}),
	}, resets...)...)
	s.logger.Info(ctx, "ban expired", logger.String("username", u.Username))
	return nil
}

// Ban bans target for days; 0 days is permanent. The head admin cannot be banned.
func (s *Service) Ban(ctx context.Context, actor, target string, days int, reason string) (types.Ban, error) {
	if days < 0 {
		return types.Ban{}, fmt.Errorf("%w: ban duration must not be negative", ErrValidation)
	}
	reason = strings.TrimSpace(reason)

	var ban types.Ban
	err := s.exec(ctx, "ban", func(ctx context.Context) error {
		users, version, err := s.loadUsers(ctx)
		if err != nil {
			return err
		}
		mod, err := requireModerator(users, actor)
		if err != nil {
			return err
		}
		i := findUser(users, target)
		if i < 0 {
			return fmt.Errorf("%w: user %q", ErrNotFound, target)
		}
		u := &users[i]
		if u.IsHeadAdmin() {
			return fmt.Errorf("%w: the head admin cannot be banned", ErrForbidden)
		}

		now := s.nowMs()
		kind := "timed"
		u.BannedUntil = now + int64(days)*dayMs
		if days == 0 {
			kind = "permanent"
			u.BannedUntil = model.PermanentBan
		}
		u.BanReason = reason
		u.BannedBy = mod.Username
		u.BannedAt = now

		resets, err := s.saveUsers(ctx, users, version)
		if err != nil {
			return err
		}
		metrics.RecordBan(kind)
		s.audit(ctx, append([]model.AuditEvent{
			s.event(model.ActionBan, mod.Username, u.Username, map[string]any{
				"until":  u.BannedUntil,
				"reason": reason,
				"days":   days,
			}),
		}, resets...)...)

		ban = types.NewBan(*u)
		s.logger.Info(ctx, "user banned",
			logger.String("username", u.Username),
			logger.String("by", mod.Username),
			logger.Int64("until", u.BannedUntil),
		)
		return nil
	})
	return ban, err
}

// Unban clears the ban of target and reports whether there was one.
func (s *Service) Unban(ctx context.Context, actor, target string) (bool, error) {
	var cleared bool
	err := s.exec(ctx, "unban", func(ctx context.Context) error {
		users, version, err := s.loadUsers(ctx)
		if err != nil {
			return err
		}
		mod, err := requireModerator(users, actor)
		if err != nil {
			return err
		}
		i := findUser(users, target)
		if i < 0 {
			return fmt.Errorf("%w: user %q", ErrNotFound, target)
		}
		u := &users[i]
		if !u.HasBan() {
			return nil
		}

		u.ClearBan()
		resets, err := s.saveUsers(ctx, users, version)
		if err != nil {
			return err
		}
		cleared = true
		metrics.RecordUnban()
		s.audit(ctx, append([]model.AuditEvent{
			s.event(model.ActionUnban, mod.Username, u.Username, nil),
		}, resets...)...)
		s.logger.Info(ctx, "user unbanned", logger.String("username", u.Username))
		return nil
	})
	return cleared, err
}

// BannedUsers lists bans in force now. Expired bans are left for IsBanned to clear.
func (s *Service) BannedUsers(ctx context.Context) ([]types.Ban, error) {
	users, _, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	now := s.nowMs()
	out := []types.Ban{}
	for i := range users {
		if users[i].BanActiveAt(now) {
			out = append(out, types.NewBan(users[i]))
		}
	}
	return out, nil
}
