// Package model contains the persisted records shared by every layer.
// JSON tags define the stored collection schema.
package model

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Role is a user's administrative role.
type Role string

// Roles, lowest to highest privilege.
const (
	RoleUser      Role = "user"
	RoleMod       Role = "mod"
	RoleHeadAdmin Role = "headadmin"
)

// PermanentBan is the bannedUntil sentinel for a ban that never expires.
const PermanentBan int64 = 9999999999999

// Profile limits.
const (
	MaxBioLength      = 250
	MinPasswordLength = 6
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9(){}\[\]._\-?!]+$`)

// User is a registered account with its ranked state.
type User struct {
	ID               string       `json:"id"`
	Username         string       `json:"username"`
	Password         string       `json:"password"`
	Role             Role         `json:"role"`
	Nationality      string       `json:"nationality"`
	Points           int          `json:"points"`
	CreatedAt        int64        `json:"createdAt"`
	ProfilePic       string       `json:"profilePic"`
	ShowCountry      bool         `json:"showCountry"`
	Bio              string       `json:"bio"`
	CompletedRecords []Completion `json:"completedRecords"`
	EquippedTitle    string       `json:"equippedTitle"`

	BannedUntil int64  `json:"bannedUntil,omitempty"`
	BanReason   string `json:"banReason,omitempty"`
	BannedBy    string `json:"bannedBy,omitempty"`
	BannedAt    int64  `json:"bannedAt,omitempty"`
}

// Completion is an approved completion embedded in the user's history.
// AwardedPoints is fixed at approval and reversed verbatim on deletion.
type Completion struct {
	ID            string `json:"id"`
	LevelID       string `json:"levelId"`
	LevelName     string `json:"levelName"`
	TS            int64  `json:"ts"`
	Percent       *int   `json:"percent"`
	Youtube       string `json:"youtube"`
	AwardedPoints int    `json:"awardedPoints"`
}

// IsModerator reports whether the user may moderate.
func (u *User) IsModerator() bool {
	return u.Role == RoleMod || u.Role == RoleHeadAdmin
}

// IsHeadAdmin reports whether the user holds the top role.
func (u *User) IsHeadAdmin() bool {
	return u.Role == RoleHeadAdmin
}

// HasBan reports whether ban fields are set, expired or not.
func (u *User) HasBan() bool {
	return u.BannedUntil != 0
}

// BanActiveAt reports whether the ban is in force at nowMs.
func (u *User) BanActiveAt(nowMs int64) bool {
	if u.BannedUntil == 0 {
		return false
	}
	return u.BannedUntil == PermanentBan || nowMs < u.BannedUntil
}

// ClearBan removes all four ban fields.
func (u *User) ClearBan() {
	u.BannedUntil = 0
	u.BanReason = ""
	u.BannedBy = ""
	u.BannedAt = 0
}

// HasCompletion reports whether an identical completion (same level, same evidence) exists.
func (u *User) HasCompletion(levelID, youtube string) bool {
	for _, c := range u.CompletedRecords {
		if c.LevelID == levelID && c.Youtube == youtube {
			return true
		}
	}
	return false
}

// FoldUsername returns the case-folded form used for uniqueness and lookup.
func FoldUsername(username string) string {
	return cases.Fold().String(strings.TrimSpace(username))
}

// SameUsername compares usernames case-insensitively.
func SameUsername(a, b string) bool {
	return FoldUsername(a) == FoldUsername(b)
}

// ValidateRegistration checks the sign-up fields.
func ValidateRegistration(username, password, nationality string) error {
	username = strings.TrimSpace(username)
	switch {
	case username == "" || password == "" || strings.TrimSpace(nationality) == "":
		return fmt.Errorf("%w: username, password and nationality are required", ErrValidation)
	case len(password) < MinPasswordLength:
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	case !usernamePattern.MatchString(username):
		return fmt.Errorf("%w: username may only contain letters, digits and (){}[]._-?!", ErrValidation)
	}
	return nil
}

// ValidateBio enforces the bio length limit in characters.
func ValidateBio(bio string) error {
	if utf8.RuneCountInString(bio) > MaxBioLength {
		return fmt.Errorf("%w: bio exceeds %d characters", ErrValidation, MaxBioLength)
	}
	return nil
}
