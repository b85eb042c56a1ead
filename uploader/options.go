package uploader

import (
	"golang.org/x/time/rate"

	"github.com/moffa90/go-bleota/protocol"
)

// Config holds the uploader configuration.
type Config struct {
	// ProgressCallback is called to report progress (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// ChunkSize is the maximum image bytes per CHUNK message.
	// Default is 180 bytes.
	ChunkSize int

	// Retries is the number of extra attempts for a failed INIT or END
	// write, and the number of times a transfer restarts from INIT after a
	// failed CHUNK
	Retries int

	// Limiter paces CHUNK writes (optional)
	Limiter *rate.Limiter

	// ValidateImage parses the image as an ESP application image before
	// anything is sent
	ValidateImage bool
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		ChunkSize: protocol.DefaultChunkSize,
	}
}

// Option is a functional option for configuring the Uploader.
type Option func(*Config)

// WithProgressCallback sets a callback function to track upload progress.
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for upload operations.
//
// Example:
//
//	up := uploader.New(w, uploader.WithLogger(slog.Default()))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithChunkSize sets the image bytes carried by each CHUNK message.
// Sizes that would not fit the device's 512-byte receive buffer are ignored.
//
// Example:
//
//	up := uploader.New(w, uploader.WithChunkSize(244))
func WithChunkSize(size int) Option {
	return func(c *Config) {
		if size > 0 && size+protocol.OpcodeSize <= protocol.DefaultMaxMessageSize {
			c.ChunkSize = size
		}
	}
}

// WithRetries sets the number of retry attempts for failed writes.
// CHUNK writes are never repeated on their own; the whole transfer is
// restarted instead.
func WithRetries(retries int) Option {
	return func(c *Config) {
		if retries >= 0 {
			c.Retries = retries
		}
	}
}

// WithRateLimit paces CHUNK writes to at most perSecond messages per second.
// Zero or less disables pacing.
//
// Example:
//
//	up := uploader.New(w, uploader.WithRateLimit(50))
func WithRateLimit(perSecond float64) Option {
	return func(c *Config) {
		if perSecond <= 0 {
			c.Limiter = nil
			return
		}
		c.Limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithImageValidation enables ESP image parsing before upload.
func WithImageValidation(validate bool) Option {
	return func(c *Config) {
		c.ValidateImage = validate
	}
}
