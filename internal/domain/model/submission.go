package model

import (
	"fmt"
	"strings"
)

// SubmissionType selects which payload a submission carries.
type SubmissionType string

// Submission types.
const (
	SubmissionLevel      SubmissionType = "level"
	SubmissionCompletion SubmissionType = "completion"
)

// SubmissionStatus is the moderation state. Only pending is non-terminal.
type SubmissionStatus string

// Submission states.
const (
	StatusPending   SubmissionStatus = "pending"
	StatusApproved  SubmissionStatus = "approved"
	StatusRejected  SubmissionStatus = "rejected"
	StatusWithdrawn SubmissionStatus = "withdrawn"
)

// Resolution notes recorded when a submission leaves pending.
const (
	ResolutionPublished        = "published"
	ResolutionAwarded          = "awarded"
	ResolutionDuplicate        = "duplicate"
	ResolutionRejected         = "rejected"
	ResolutionWithdrawn        = "withdrawn"
	ResolutionReferenceMissing = "reference_missing"
	ResolutionSubmitterMissing = "submitter_missing"
)

// Submission is a user-proposed level or completion and its moderation history.
type Submission struct {
	ID         string             `json:"id"`
	Type       SubmissionType     `json:"type"`
	Submitter  string             `json:"submitter"`
	Status     SubmissionStatus   `json:"status"`
	CreatedAt  int64              `json:"createdAt"`
	Level      *LevelPayload      `json:"level,omitempty"`
	Completion *CompletionPayload `json:"completion,omitempty"`
	ResolvedBy string             `json:"resolvedBy,omitempty"`
	ResolvedAt int64              `json:"resolvedAt,omitempty"`
	Resolution string             `json:"resolution,omitempty"`
}

// LevelPayload proposes a new level.
type LevelPayload struct {
	Name      string   `json:"name"`
	Creators  []string `json:"creators"`
	LevelID   string   `json:"levelId"`
	Youtube   string   `json:"youtube"`
	Raw       string   `json:"raw"`
	Tags      []string `json:"tags"`
	Thumbnail string   `json:"thumbnail,omitempty"`
}

// CompletionPayload claims a completion of an existing level.
type CompletionPayload struct {
	LevelRef  string `json:"levelRef"`
	LevelName string `json:"levelName"`
	Youtube   string `json:"youtube"`
	Raw       string `json:"raw"`
	Percent   *int   `json:"percent"`
}

// IsPending reports whether the submission still awaits a decision.
func (s *Submission) IsPending() bool {
	return s.Status == StatusPending
}

// Resolve moves the submission to a terminal state.
func (s *Submission) Resolve(status SubmissionStatus, by string, atMs int64, note string) {
	s.Status = status
	s.ResolvedBy = by
	s.ResolvedAt = atMs
	s.Resolution = note
}

// Normalize trims fields, drops blank creators and deduplicates tags.
func (p *LevelPayload) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.LevelID = strings.TrimSpace(p.LevelID)
	p.Youtube = strings.TrimSpace(p.Youtube)
	p.Raw = strings.TrimSpace(p.Raw)
	p.Thumbnail = strings.TrimSpace(p.Thumbnail)
	creators := p.Creators[:0]
	for _, c := range p.Creators {
		if c = strings.TrimSpace(c); c != "" {
			creators = append(creators, c)
		}
	}
	p.Creators = creators
	p.Tags = dedupeTags(p.Tags)
}

// Validate checks required fields and the tag catalog.
func (p *LevelPayload) Validate() error {
	if p.Name == "" || len(p.Creators) == 0 || p.LevelID == "" || p.Youtube == "" || p.Raw == "" {
		return fmt.Errorf("%w: name, creators, level id, video and raw footage are required", ErrValidation)
	}
	return ValidateTags(p.Tags)
}

// Normalize trims fields and clamps percent to 0..100.
func (p *CompletionPayload) Normalize() {
	p.LevelRef = strings.TrimSpace(p.LevelRef)
	p.Youtube = strings.TrimSpace(p.Youtube)
	p.Raw = strings.TrimSpace(p.Raw)
	if p.Percent != nil {
		v := *p.Percent
		if v < 0 {
			v = 0
		}
		if v > 100 {
			v = 100
		}
		p.Percent = &v
	}
}

// Validate checks required fields.
func (p *CompletionPayload) Validate() error {
	if p.LevelRef == "" || p.Youtube == "" || p.Raw == "" {
		return fmt.Errorf("%w: level, video and raw footage are required", ErrValidation)
	}
	return nil
}
