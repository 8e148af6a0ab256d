// Package scoring converts a level placement into the points a completion is worth.
package scoring

// Default scoring configuration constants.
const (
	defaultBase      = 101
	defaultMinPoints = 1
	defaultMaxPoints = 100
)

// Option applies a configuration option to the PlacementScorer.
type Option func(*PlacementScorer)

// WithBase sets the value placements are subtracted from.
func WithBase(base int) Option {
	return func(s *PlacementScorer) {
		s.base = base
	}
}

// WithBounds sets the inclusive award range. Inverted bounds are ignored.
func WithBounds(minPoints, maxPoints int) Option {
	return func(s *PlacementScorer) {
		if minPoints >= 0 && maxPoints >= minPoints {
			s.minPoints = minPoints
			s.maxPoints = maxPoints
		}
	}
}

// Scorer computes the award for a completion of the level at placement.
type Scorer interface {
	Award(placement int) int
}

// PlacementScorer awards clamp(base - placement, min, max).
type PlacementScorer struct {
	base      int
	minPoints int
	maxPoints int
}

// NewPlacementScorer creates a scorer with configuration options.
func NewPlacementScorer(opts ...Option) *PlacementScorer {
	s := &PlacementScorer{
		base:      defaultBase,
		minPoints: defaultMinPoints,
		maxPoints: defaultMaxPoints,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Award returns the points for placement. Non-positive placements earn the minimum.
func (s *PlacementScorer) Award(placement int) int {
	if placement <= 0 {
		return s.minPoints
	}
	return clamp(s.base-placement, s.minPoints, s.maxPoints)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
