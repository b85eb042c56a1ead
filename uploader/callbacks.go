package uploader

import "time"

// Progress contains information about the upload in flight.
// Passed to ProgressCallback after every message.
type Progress struct {
	// Phase describes the current operation phase:
	//   "init"    - INIT sent
	//   "sending" - CHUNK messages in flight
	//   "ending"  - END sent
	//   "complete" - upload finished; the device should now restart
	Phase string

	// CurrentChunk is the number of chunks sent so far
	CurrentChunk int

	// TotalChunks is the number of chunks the image splits into
	TotalChunks int

	// Percentage is the completion percentage (0.0 to 100.0)
	Percentage float64

	// BytesSent is the number of image bytes sent so far
	BytesSent int

	// ElapsedTime is the time elapsed since the upload started
	ElapsedTime time.Duration
}

// Progress phases.
const (
	PhaseInit     = "init"
	PhaseSending  = "sending"
	PhaseEnding   = "ending"
	PhaseComplete = "complete"
)

// ProgressCallback is called after each message is written.
// Implementations should return quickly to avoid slowing the upload.
//
// Example:
//
//	up := uploader.New(w,
//	    uploader.WithProgressCallback(func(p uploader.Progress) {
//	        fmt.Printf("[%s] %.1f%% - chunk %d/%d\n",
//	            p.Phase, p.Percentage, p.CurrentChunk, p.TotalChunks)
//	    }),
//	)
type ProgressCallback func(Progress)

// Logger is an optional logging interface. *slog.Logger satisfies it.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}
