package ingest

import (
	"time"
)

// Status of an import run.
type Status string

const (
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Failure reasons recorded per code.
const (
	ReasonNotFound = "not_found"
	ReasonTimedOut = "timed_out"
)

// Failure describes one code that did not end up in the library.
type Failure struct {
	ISBN   string `json:"isbn"`
	Reason string `json:"reason"`
}

// Run summarizes one batch import.
type Run struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     Status     `json:"status"`
	Requested  int        `json:"requested"`
	Skipped    int        `json:"skipped"`
	Added      int        `json:"added"`
	NotFound   int        `json:"not_found"`
	TimedOut   int        `json:"timed_out"`
	Failed     int        `json:"failed"`
	Failures   []Failure  `json:"failures,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Processed is the number of codes that reached the resolver.
func (r *Run) Processed() int {
	return r.Added + r.NotFound + r.TimedOut + r.Failed
}
