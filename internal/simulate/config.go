// Package simulate drives a running levelrank service over HTTP with
// concurrent players and checks the ranked state afterwards.
package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Admin       string        // Moderator that publishes levels and approves completions
	Players     int           // Number of players to register
	Levels      int           // Number of levels to publish
	Completions int           // Number of completions to submit
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	OutputFile  string        // Report file; empty disables the report
	Verbose     bool          // Enable verbose logging
}

// Stats holds run statistics.
type Stats struct {
	PlayersRegistered    int           `json:"playersRegistered"`
	LevelsPublished      int           `json:"levelsPublished"`
	LevelsMoved          int           `json:"levelsMoved"`
	CompletionsSubmitted int           `json:"completionsSubmitted"`
	CompletionsRetried   int           `json:"completionsRetried"`
	CompletionsApproved  int           `json:"completionsApproved"`
	CompletionsDuplicate int           `json:"completionsDuplicate"`
	CompletionsFailed    int           `json:"completionsFailed"`
	PointsAwarded        int           `json:"pointsAwarded"`
	LeaderboardEntries   int           `json:"leaderboardEntries"`
	VerificationFailures []string      `json:"verificationFailures,omitempty"`
	StartTime            time.Time     `json:"startTime"`
	EndTime              time.Time     `json:"endTime"`
	Duration             time.Duration `json:"duration"`
}

// plannedCompletion is one completion a player will submit.
type plannedCompletion struct {
	Player  string
	LevelID string
	Video   string
	Percent *int
	Key     string
}
