// Package titles holds the cosmetic title catalog and its eligibility rules.
// Eligibility is a pure function of current points and rank.
package titles

import "strconv"

// Free is the title every user may equip and the fallback for stale titles.
const Free = "fresh"

// Title is a catalog entry. A title is gated either by a points threshold or
// by an exact rank; the free title has neither.
type Title struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Threshold int    `json:"threshold,omitempty"`
	ExactRank int    `json:"exactRank,omitempty"`
}

// Requirement describes the gate in words.
func (t Title) Requirement() string {
	switch {
	case t.ExactRank > 0:
		return "only the user ranked #" + strconv.Itoa(t.ExactRank)
	case t.Threshold > 0:
		return strconv.Itoa(t.Threshold) + " points"
	default:
		return "free"
	}
}

var catalog = []Title{
	{ID: Free, Label: "Fresh"},
	{ID: "maybe_him", Label: "Maybe him", Threshold: 100},
	{ID: "let_me_cook", Label: "Let me Cook...", Threshold: 300},
	{ID: "just_better", Label: "I'm just better", Threshold: 500},
	{ID: "god_like", Label: "God-Like", Threshold: 1000},
	{ID: "fart", Label: "Fart", Threshold: 3000},
	{ID: "top3", Label: "Top 3", ExactRank: 3},
	{ID: "top2", Label: "Top 2", ExactRank: 2},
	{ID: "top1", Label: "Yes I'm him, the Top 1", ExactRank: 1},
}

// Catalog returns a copy of every title in display order.
func Catalog() []Title {
	out := make([]Title, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a title by id.
func Lookup(id string) (Title, bool) {
	for _, t := range catalog {
		if t.ID == id {
			return t, true
		}
	}
	return Title{}, false
}

// IsEligible reports whether a user with points and rank may hold id.
// Rank-gated titles require the exact position, not "at or above". A rank of
// 0 means the user is unranked. Unknown ids are never eligible.
func IsEligible(id string, points, rank int) bool {
	t, ok := Lookup(id)
	if !ok {
		return false
	}
	switch {
	case t.ExactRank > 0:
		return rank == t.ExactRank
	case t.Threshold > 0:
		return points >= t.Threshold
	default:
		return true
	}
}

// Eligible filters the catalog for a user with points and rank.
func Eligible(points, rank int) []Title {
	var out []Title
	for _, t := range catalog {
		if IsEligible(t.ID, points, rank) {
			out = append(out, t)
		}
	}
	return out
}
