package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/levelrank/internal/domain/leaderboard"
	"github.com/okian/levelrank/internal/domain/model"
	"github.com/okian/levelrank/internal/domain/titles"
	"github.com/okian/levelrank/internal/domain/types"
	"github.com/okian/levelrank/pkg/logger"
)

// Registration is a sign-up request.
type Registration struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Nationality string `json:"nationality"`
}

// ProfileUpdate changes the profile fields that are set.
type ProfileUpdate struct {
	Bio         *string `json:"bio,omitempty"`
	ShowCountry *bool   `json:"showCountry,omitempty"`
	Nationality *string `json:"nationality,omitempty"`
	ProfilePic  *string `json:"profilePic,omitempty"`
}

// RegisterUser creates a user account. Usernames are unique case-insensitively.
func (s *Service) RegisterUser(ctx context.Context, r Registration) (types.Profile, error) {
	r.Username = strings.TrimSpace(r.Username)
	r.Nationality = strings.TrimSpace(r.Nationality)
	if err := model.ValidateRegistration(r.Username, r.Password, r.Nationality); err != nil {
		return types.Profile{}, err
	}

	var profile types.Profile
	err := s.exec(ctx, "register_user", func(ctx context.Context) error {
		users, version, err := s.loadUsers(ctx)
		if err != nil {
			return err
		}
		if findUser(users, r.Username) >= 0 {
			return fmt.Errorf("%w: username %q is taken", ErrAlreadyExists, r.Username)
		}

		u := model.User{
			ID:               s.ids.NewID(),
			Username:         r.Username,
			Password:         r.Password,
			Role:             model.RoleUser,
			Nationality:      r.Nationality,
			CreatedAt:        s.nowMs(),
			ShowCountry:      true,
			CompletedRecords: []model.Completion{},
			EquippedTitle:    titles.Free,
		}
		users = append(users, u)
		resets, err := s.saveUsers(ctx, users, version)
		if err != nil {
			return err
		}
		s.audit(ctx, resets...)

		rank, _ := leaderboard.Rank(users, u.Username)
		profile = types.NewProfile(u, rank)
		return nil
	})
	if err != nil {
		return types.Profile{}, err
	}
	s.logger.Info(ctx, "user registered", logger.String("username", profile.Username))
	return profile, nil
}

// User returns the public profile of username.
func (s *Service) User(ctx context.Context, username string) (types.Profile, error) {
	users, _, err := s.loadUsers(ctx)
	if err != nil {
		return types.Profile{}, err
	}
	i := findUser(users, username)
	if i < 0 {
		return types.Profile{}, fmt.Errorf("%w: user %q", ErrNotFound, username)
	}
	rank, _ := leaderboard.Rank(users, users[i].Username)
	return types.NewProfile(users[i], rank), nil
}

// PromoteToMod grants the mod role. Only the head admin may promote, and the
// head admin cannot be demoted this way. Promoting a mod is a no-op.
func (s *Service) PromoteToMod(ctx context.Context, actor, username string) (types.Profile, error) {
	var profile types.Profile
	err := s.exec(ctx, "promote_to_mod", func(ctx context.Context) error {
		users, version, err := s.loadUsers(ctx)
		if err != nil {
			return err
		}
		a := findUser(users, actor)
		if a < 0 || !users[a].IsHeadAdmin() {
			return fmt.Errorf("%w: only the head admin may promote", ErrForbidden)
		}
		i := findUser(users, username)
		if i < 0 {
			return fmt.Errorf("%w: user %q", ErrNotFound, username)
		}
		u := &users[i]
		if u.IsHeadAdmin() {
			return fmt.Errorf("%w: cannot change the head admin role", ErrForbidden)
		}

		if u.Role != model.RoleMod {
			u.Role = model.RoleMod
			resets, err := s.saveUsers(ctx, users, version)
			if err != nil {
				return err
			}
			s.audit(ctx, append([]model.AuditEvent{
				s.event(model.ActionPromoteToMod, users[a].Username, u.Username, nil),
			}, resets...)...)
		}

		rank, _ := leaderboard.Rank(users, u.Username)
		profile = types.NewProfile(*u, rank)
		return nil
	})
	return profile, err
}

// UpdateProfile edits the actor's own profile.
func (s *Service) UpdateProfile(ctx context.Context, actor, username string, upd ProfileUpdate) (types.Profile, error) {
	if !model.SameUsername(actor, username) {
		return types.Profile{}, fmt.Errorf("%w: users may only edit their own profile", ErrForbidden)
	}
	if upd.Bio != nil {
		if err := model.ValidateBio(*upd.Bio); err != nil {
			return types.Profile{}, err
		}
	}
	if upd.Nationality != nil && strings.TrimSpace(*upd.Nationality) == "" {
		return types.Profile{}, fmt.Errorf("%w: nationality must not be empty", ErrValidation)
	}

	var profile types.Profile
	err := s.exec(ctx, "edit_profile", func(ctx context.Context) error {
		users, version, err := s.loadUsers(ctx)
		if err != nil {
			return err
		}
		i := findUser(users, username)
		if i < 0 {
			return fmt.Errorf("%w: user %q", ErrNotFound, username)
		}
		u := &users[i]

		changed := []string{}
		if upd.Bio != nil {
			u.Bio = *upd.Bio
			changed = append(changed, "bio")
		}
		if upd.ShowCountry != nil {
			u.ShowCountry = *upd.ShowCountry
			changed = append(changed, "showCountry")
		}
		if upd.Nationality != nil {
			u.Nationality = strings.TrimSpace(*upd.Nationality)
			changed = append(changed, "nationality")
		}
		if upd.ProfilePic != nil {
			u.ProfilePic = strings.TrimSpace(*upd.ProfilePic)
			changed = append(changed, "profilePic")
		}

		resets, err := s.saveUsers(ctx, users, version)
		if err != nil {
			return err
		}
		s.audit(ctx, append([]model.AuditEvent{
			s.event(model.ActionEditProfile, u.Username, u.Username, map[string]any{"fields": changed}),
		}, resets...)...)

		rank, _ := leaderboard.Rank(users, u.Username)
		profile = types.NewProfile(*u, rank)
		return nil
	})
	return profile, err
}

// Rank returns the leaderboard entry of username.
func (s *Service) Rank(ctx context.Context, username string) (types.Entry, error) {
	users, _, err := s.loadUsers(ctx)
	if err != nil {
		return types.Entry{}, err
	}
	i := findUser(users, username)
	if i < 0 {
		return types.Entry{}, fmt.Errorf("%w: user %q", ErrNotFound, username)
	}
	rank, _ := leaderboard.Rank(users, users[i].Username)
	return entry(users[i], rank), nil
}

// Leaderboard returns the top limit entries; limit <= 0 returns everyone.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]types.Entry, error) {
	users, _, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]model.User, len(users))
	for _, u := range users {
		byName[u.Username] = u
	}

	standings := leaderboard.Top(users, limit)
	out := make([]types.Entry, len(standings))
	for i, st := range standings {
		out[i] = entry(byName[st.Username], st.Rank)
	}
	return out, nil
}

// entry builds the leaderboard row of u, showing the free title if the
// equipped one is no longer eligible.
func entry(u model.User, rank int) types.Entry {
	title := u.EquippedTitle
	if !titles.IsEligible(title, u.Points, rank) {
		title = titles.Free
	}
	e := types.Entry{
		Rank:          rank,
		Username:      u.Username,
		Points:        u.Points,
		EquippedTitle: title,
	}
	if u.ShowCountry {
		e.Nationality = u.Nationality
	}
	return e
}
