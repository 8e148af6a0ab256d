// Package leaderboard derives user rank from points. Nothing is cached: every
// call sorts the snapshot it is given.
package leaderboard

import (
	"sort"

	"github.com/okian/levelrank/internal/domain/model"
)

// Standing is a user's position in a computed leaderboard.
type Standing struct {
	Rank     int
	Username string
	Points   int
}

// Compute sorts users by points descending. Ties keep the order of the
// snapshot, which is registration order, so ranks are unique and dense.
func Compute(users []model.User) []Standing {
	idx := make([]int, len(users))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return users[idx[a]].Points > users[idx[b]].Points
	})

	out := make([]Standing, len(users))
	for pos, i := range idx {
		out[pos] = Standing{Rank: pos + 1, Username: users[i].Username, Points: users[i].Points}
	}
	return out
}

// Rank returns the 1-based rank of username, matched case-insensitively.
func Rank(users []model.User, username string) (int, bool) {
	folded := model.FoldUsername(username)
	for _, s := range Compute(users) {
		if model.FoldUsername(s.Username) == folded {
			return s.Rank, true
		}
	}
	return 0, false
}

// Ranks maps every folded username to its rank.
func Ranks(users []model.User) map[string]int {
	standings := Compute(users)
	out := make(map[string]int, len(standings))
	for _, s := range standings {
		out[model.FoldUsername(s.Username)] = s.Rank
	}
	return out
}

// Top returns the first n standings; n <= 0 returns all.
func Top(users []model.User, n int) []Standing {
	standings := Compute(users)
	if n > 0 && n < len(standings) {
		return standings[:n]
	}
	return standings
}
