package model

import "sort"

// LevelStatusPublished is the only stored level state; removed levels are deleted.
const LevelStatusPublished = "published"

// Level is a published entry in the ranking.
type Level struct {
	ID         string   `json:"id"`
	Placement  int      `json:"placement"`
	Name       string   `json:"name"`
	LevelID    string   `json:"levelId"`
	Creators   []string `json:"creators"`
	Thumbnail  string   `json:"thumbnail"`
	Youtube    string   `json:"youtube"`
	Tags       []string `json:"tags"`
	Status     string   `json:"status"`
	Submitter  string   `json:"submitter"`
	ApprovedBy string   `json:"approvedBy"`
	ApprovedAt int64    `json:"approvedAt"`

	// SubmissionID links the level to the submission that created it.
	SubmissionID string `json:"submissionId,omitempty"`
}

// SortByPlacement orders levels by placement ascending, keeping store order for equal values.
func SortByPlacement(levels []Level) {
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Placement < levels[j].Placement
	})
}

// NextPlacement returns max(placement)+1, the bottom slot.
func NextPlacement(levels []Level) int {
	highest := 0
	for _, l := range levels {
		if l.Placement > highest {
			highest = l.Placement
		}
	}
	return highest + 1
}

// Renumber sorts levels by prior placement and assigns a dense 1..N sequence.
func Renumber(levels []Level) {
	SortByPlacement(levels)
	for i := range levels {
		levels[i].Placement = i + 1
	}
}

// FindLevelBySubmission returns the index of the level created from submissionID, or -1.
func FindLevelBySubmission(levels []Level, submissionID string) int {
	for i := range levels {
		if levels[i].SubmissionID == submissionID {
			return i
		}
	}
	return -1
}

// FindLevel returns the index of the level with id, or -1.
func FindLevel(levels []Level, id string) int {
	for i := range levels {
		if levels[i].ID == id {
			return i
		}
	}
	return -1
}
