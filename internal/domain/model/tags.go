package model

import (
	"fmt"
	"strings"
)

// KnownTags is the fixed tag catalog a level may carry.
var KnownTags = []string{
	"Cube Carried", "Ship Carried", "Wave Carried", "Ufo Carried", "Ball Carried", "Spider Carried", "Swing Carried",
	"Medium Length", "Long Length", "XL Length", "XXL Length (3+ Minutes)",
	"Slow Paced", "Fast Paced", "Memory Level", "Visibility Level",
}

var knownTagSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(KnownTags))
	for _, t := range KnownTags {
		m[t] = struct{}{}
	}
	return m
}()

// IsKnownTag reports whether tag is in the catalog.
func IsKnownTag(tag string) bool {
	_, ok := knownTagSet[tag]
	return ok
}

// ValidateTags requires at least one tag, all from the catalog.
func ValidateTags(tags []string) error {
	if len(tags) == 0 {
		return fmt.Errorf("%w: select at least one tag", ErrValidation)
	}
	for _, t := range tags {
		if !IsKnownTag(t) {
			return fmt.Errorf("%w: unknown tag %q", ErrValidation, t)
		}
	}
	return nil
}

// NormalizeTags trims and deduplicates, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	return dedupeTags(tags)
}

func dedupeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
