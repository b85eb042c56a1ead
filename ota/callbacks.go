package ota

import "time"

// Phase values reported in Progress.
const (
	PhaseBegin      = "begin"
	PhaseReceiving  = "receiving"
	PhaseFinalizing = "finalizing"
	PhaseActivating = "activating"
	PhaseComplete   = "complete"
	PhaseFailed     = "failed"
	PhaseAbandoned  = "abandoned"
)

// Progress contains information about the session in flight.
// Passed to ProgressCallback after every state-relevant event.
type Progress struct {
	// Phase is one of the Phase* constants
	Phase string

	// SessionID identifies the session that produced this report
	SessionID string

	// ExpectedSize is the total image size announced by INIT
	ExpectedSize uint32

	// BytesWritten is the number of bytes committed so far
	BytesWritten uint64

	// Percentage is the completion percentage (0.0 to 100.0, may exceed 100
	// when the peer sends more than it announced)
	Percentage float64

	// ElapsedTime is the time since INIT
	ElapsedTime time.Duration
}

// ProgressCallback is called synchronously from Dispatch.
// Implementations should return quickly; the session lock is held.
type ProgressCallback func(Progress)

// Logger is an optional logging interface.
// *slog.Logger satisfies it directly.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
