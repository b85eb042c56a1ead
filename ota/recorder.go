package ota

import (
	"context"
	"time"
)

// Outcome is the final result of a session.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeAbandoned Outcome = "abandoned"
)

// Record summarizes one session for a Recorder.
type Record struct {
	SessionID    string
	Outcome      Outcome
	ExpectedSize uint32
	BytesWritten uint64
	Region       string
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Recorder persists session outcomes. Errors are logged and otherwise ignored.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}
