package ota

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/moffa90/go-bleota/protocol"
)

// Config holds the session configuration.
type Config struct {
	// Logger is used for logging operations (optional)
	Logger Logger

	// ProgressCallback is called to report progress (optional)
	ProgressCallback ProgressCallback

	// Restarter is invoked after a successful END (optional; without it the
	// session only becomes terminal)
	Restarter Restarter

	// Recorder persists session outcomes (optional)
	Recorder Recorder

	// TracerProvider supplies the tracer for flash operation spans.
	// Defaults to the global otel provider.
	TracerProvider trace.TracerProvider

	// MaxMessageSize is the receive capacity; larger buffers are rejected as malformed
	MaxMessageSize int

	// IdleTimeout abandons a session that receives no message for this long.
	// Zero disables expiry.
	IdleTimeout time.Duration

	// StrictSize rejects chunks that would overrun the announced size
	StrictSize bool

	// Now returns the current time
	Now func() time.Time
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		MaxMessageSize: protocol.DefaultMaxMessageSize,
		Now:            time.Now,
	}
}

// Option is a functional option for configuring the Session.
type Option func(*Config)

// WithLogger sets a logger for session events.
//
// Example:
//
//	sess := ota.New(sink, ota.WithLogger(slog.Default()))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithProgressCallback sets a callback function to track update progress.
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithRestarter sets the action performed after the new image is activated.
//
// Example:
//
//	sess := ota.New(sink, ota.WithRestarter(reboot.NewLogind()))
func WithRestarter(r Restarter) Option {
	return func(c *Config) {
		c.Restarter = r
	}
}

// WithRecorder sets a ledger for session outcomes.
func WithRecorder(r Recorder) Option {
	return func(c *Config) {
		c.Recorder = r
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) {
		c.TracerProvider = tp
	}
}

// WithMaxMessageSize sets the receive capacity in bytes.
// Values of zero or less disable the check.
func WithMaxMessageSize(size int) Option {
	return func(c *Config) {
		c.MaxMessageSize = size
	}
}

// WithIdleTimeout sets how long an open session may go without a message
// before Expire abandons it. Zero disables expiry.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d >= 0 {
			c.IdleTimeout = d
		}
	}
}

// WithStrictSize enables rejection of chunks that overrun the announced size.
// Off by default: the announced size is informational only.
func WithStrictSize(strict bool) Option {
	return func(c *Config) {
		c.StrictSize = strict
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Config) {
		if now != nil {
			c.Now = now
		}
	}
}
