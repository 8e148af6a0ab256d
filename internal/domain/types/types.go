// Package types contains read models returned to API clients.
package types

import (
	"github.com/okian/levelrank/internal/domain/model"
	"github.com/okian/levelrank/internal/domain/titles"
)

// Entry represents a leaderboard entry.
type Entry struct {
	Rank          int    `json:"rank"`
	Username      string `json:"username"`
	Points        int    `json:"points"`
	EquippedTitle string `json:"equippedTitle"`
	Nationality   string `json:"nationality,omitempty"`
}

// Profile is a user as shown to others: no password, rank and title resolved.
type Profile struct {
	Username         string             `json:"username"`
	Role             model.Role         `json:"role"`
	Points           int                `json:"points"`
	Rank             int                `json:"rank"`
	EquippedTitle    titles.Title       `json:"equippedTitle"`
	Nationality      string             `json:"nationality,omitempty"`
	ProfilePic       string             `json:"profilePic,omitempty"`
	Bio              string             `json:"bio"`
	CreatedAt        int64              `json:"createdAt"`
	CompletedRecords []model.Completion `json:"completedRecords"`
	BannedUntil      int64              `json:"bannedUntil,omitempty"`
}

// NewProfile builds the public view of u at rank. Nationality is hidden
// unless the user chose to show it. The displayed title is re-checked so a
// title that lost eligibility is shown as the free title.
func NewProfile(u model.User, rank int) Profile {
	titleID := u.EquippedTitle
	if !titles.IsEligible(titleID, u.Points, rank) {
		titleID = titles.Free
	}
	title, _ := titles.Lookup(titleID)

	p := Profile{
		Username:         u.Username,
		Role:             u.Role,
		Points:           u.Points,
		Rank:             rank,
		EquippedTitle:    title,
		ProfilePic:       u.ProfilePic,
		Bio:              u.Bio,
		CreatedAt:        u.CreatedAt,
		CompletedRecords: u.CompletedRecords,
		BannedUntil:      u.BannedUntil,
	}
	if u.ShowCountry {
		p.Nationality = u.Nationality
	}
	if p.CompletedRecords == nil {
		p.CompletedRecords = []model.Completion{}
	}
	return p
}

// Ban is an active ban as listed for moderators.
type Ban struct {
	Username    string `json:"username"`
	BannedUntil int64  `json:"bannedUntil"`
	Permanent   bool   `json:"permanent"`
	Reason      string `json:"reason"`
	BannedBy    string `json:"bannedBy"`
	BannedAt    int64  `json:"bannedAt"`
}

// NewBan builds the ban view of u.
func NewBan(u model.User) Ban {
	return Ban{
		Username:    u.Username,
		BannedUntil: u.BannedUntil,
		Permanent:   u.BannedUntil == model.PermanentBan,
		Reason:      u.BanReason,
		BannedBy:    u.BannedBy,
		BannedAt:    u.BannedAt,
	}
}

// Stats summarises the ranked state.
type Stats struct {
	Users              int `json:"users"`
	Levels             int `json:"levels"`
	PendingSubmissions int `json:"pendingSubmissions"`
	ActiveBans         int `json:"activeBans"`
	TotalPoints        int `json:"totalPoints"`
	AuditEvents        int `json:"auditEvents"`
	QueueSize          int `json:"queueSize"`
}
