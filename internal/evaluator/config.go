// Package evaluator drives a running TechGames API the way the challenge
// evaluator does: it registers participants, submits evaluation runs with
// idempotency keys, replays a share of them as retries and checks that every
// account's history came back intact.
package evaluator

import "time"

// Config holds configuration for one evaluator run.
type Config struct {
	BaseURL        string        // Base URL of the service
	Accounts       int           // Number of participants to register
	RunsPerAccount int           // Evaluation runs submitted per participant
	RetryRatio     float64       // Share of runs re-sent with the same key, 0..1
	Workers        int           // Number of concurrent workers
	Timeout        time.Duration // HTTP request timeout
	Seed           uint64        // Seed for outcome generation
	RunID          string        // Tag embedded in generated emails and usernames
}

// Participant is a registered account together with its planned runs.
type Participant struct {
	AccountID string
	Email     string
	Username  string
	Runs      []Submission
}

// Submission is one evaluation run. Retry marks a resend of the previous
// run's key.
type Submission struct {
	Key      string
	Outcomes map[string]bool
	Retry    bool
}

// Stats holds run statistics.
type Stats struct {
	AccountsCreated   int
	RunsSubmitted     int
	RunsAccepted      int
	RunsDuplicate     int
	RunsFailed        int
	HistoriesVerified int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
