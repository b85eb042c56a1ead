package uploader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/moffa90/go-bleota/espimage"
	"github.com/moffa90/go-bleota/protocol"
)

// Writer delivers one update message to the device.
// stream.Client and BLEWriter implement it.
type Writer interface {
	WriteMessage(ctx context.Context, msg []byte) error
}

// chunkLimiter is implemented by writers that cannot carry arbitrarily
// large messages in a single write.
type chunkLimiter interface {
	MaxChunkSize() int
}

// Uploader sends a firmware image as INIT, CHUNK... , END.
//
// The device never acknowledges messages, so a successful Upload only means
// every message was written. Whether the update took is visible only through
// the device restarting.
type Uploader struct {
	w      Writer
	config Config
}

// New creates an Uploader writing to w.
//
// Example:
//
//	up := uploader.New(writer,
//	    uploader.WithProgressCallback(progressFunc),
//	    uploader.WithRateLimit(40),
//	)
func New(w Writer, opts ...Option) *Uploader {
	if w == nil {
		panic("writer cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	u := &Uploader{w: w, config: cfg}
	if cl, ok := w.(chunkLimiter); ok {
		if limit := cl.MaxChunkSize(); limit > 0 && u.config.ChunkSize > limit {
			u.logInfo("chunk size reduced to fit link", "requested", u.config.ChunkSize, "chunk_size", limit)
			u.config.ChunkSize = limit
		}
	}
	return u
}

// UploadFile reads path and uploads its contents.
func (u *Uploader) UploadFile(ctx context.Context, path string) error {
	image, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	return u.Upload(ctx, image)
}

// Upload performs the complete update sequence:
//  1. INIT with the image size
//  2. CHUNK messages of at most ChunkSize bytes, in order
//  3. END
//
// A failed CHUNK restarts the sequence from INIT, which discards what the
// device received so far, up to Retries times.
//
// The operation can be cancelled via context between messages.
func (u *Uploader) Upload(ctx context.Context, image []byte) error {
	if len(image) == 0 {
		return ErrEmptyImage
	}
	if int64(len(image)) > math.MaxUint32 {
		return &ImageTooLargeError{Size: int64(len(image))}
	}

	if u.config.ValidateImage {
		img, err := espimage.Parse(bytes.NewReader(image))
		if err != nil {
			return fmt.Errorf("validate image: %w", err)
		}
		u.logDebug("image validated",
			"entry", fmt.Sprintf("0x%08X", img.EntryAddr),
			"segments", len(img.Segments),
		)
	}

	startTime := time.Now()
	var err error
	for attempt := 0; attempt <= u.config.Retries; attempt++ {
		if attempt > 0 {
			u.logInfo("restarting transfer from INIT", "attempt", attempt+1)
		}
		err = u.transfer(ctx, image, startTime)
		if !isChunkFailure(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

// transfer sends one complete INIT, CHUNK..., END sequence.
func (u *Uploader) transfer(ctx context.Context, image []byte, startTime time.Time) error {
	chunkSize := u.config.ChunkSize
	totalChunks := (len(image) + chunkSize - 1) / chunkSize

	// Phase 1: INIT
	if err := u.send(ctx, protocol.OpInit, 0, protocol.BuildInitMsg(uint32(len(image)))); err != nil {
		return err
	}
	u.logInfo("INIT sent", "firmware_bytes", len(image), "chunks", totalChunks)
	u.reportProgress(Progress{
		Phase:       PhaseInit,
		TotalChunks: totalChunks,
		ElapsedTime: time.Since(startTime),
	})

	// Phase 2: CHUNKs
	sent := 0
	for i := 0; i < totalChunks; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}
		if u.config.Limiter != nil {
			if err := u.config.Limiter.Wait(ctx); err != nil {
				return fmt.Errorf("cancelled: %w", err)
			}
		}

		end := min(sent+chunkSize, len(image))
		msg, err := protocol.BuildChunkMsg(image[sent:end])
		if err != nil {
			return err
		}
		if err := u.send(ctx, protocol.OpChunk, sent, msg); err != nil {
			return err
		}
		sent = end

		u.logDebug("chunk sent", "index", i, "bytes_sent", sent)
		u.reportProgress(Progress{
			Phase:        PhaseSending,
			CurrentChunk: i + 1,
			TotalChunks:  totalChunks,
			Percentage:   float64(sent) / float64(len(image)) * 99,
			BytesSent:    sent,
			ElapsedTime:  time.Since(startTime),
		})
	}

	// Phase 3: END
	u.reportProgress(Progress{
		Phase:        PhaseEnding,
		CurrentChunk: totalChunks,
		TotalChunks:  totalChunks,
		Percentage:   99,
		BytesSent:    sent,
		ElapsedTime:  time.Since(startTime),
	})
	if err := u.send(ctx, protocol.OpEnd, 0, protocol.BuildEndMsg()); err != nil {
		return err
	}

	u.reportProgress(Progress{
		Phase:        PhaseComplete,
		CurrentChunk: totalChunks,
		TotalChunks:  totalChunks,
		Percentage:   100,
		BytesSent:    sent,
		ElapsedTime:  time.Since(startTime),
	})
	u.logInfo("upload complete, waiting for device to restart",
		"bytes", sent,
		"elapsed", time.Since(startTime).String(),
	)

	return nil
}

// isChunkFailure reports whether err is a failed CHUNK write.
func isChunkFailure(err error) bool {
	var we *WriteError
	return errors.As(err, &we) && we.Opcode == protocol.OpChunk
}

// send writes msg. INIT and END are retried up to Retries extra times.
// CHUNK is written once: the device appends every chunk it receives, so a
// write that failed after delivery must not be repeated.
func (u *Uploader) send(ctx context.Context, op protocol.Opcode, offset int, msg []byte) error {
	retries := u.config.Retries
	if op == protocol.OpChunk {
		retries = 0
	}

	var err error
	attempts := 0
	for attempts <= retries {
		attempts++
		if err = u.w.WriteMessage(ctx, msg); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
		u.logError("write failed", "opcode", op.String(), "attempt", attempts, "error", err)
	}
	return &WriteError{Opcode: op, Offset: offset, Attempts: attempts, Err: err}
}

// reportProgress calls the progress callback if configured.
func (u *Uploader) reportProgress(progress Progress) {
	if u.config.ProgressCallback != nil {
		u.config.ProgressCallback(progress)
	}
}

// logDebug logs a debug message if a logger is configured.
func (u *Uploader) logDebug(msg string, keysAndValues ...interface{}) {
	if u.config.Logger != nil {
		u.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (u *Uploader) logInfo(msg string, keysAndValues ...interface{}) {
	if u.config.Logger != nil {
		u.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (u *Uploader) logError(msg string, keysAndValues ...interface{}) {
	if u.config.Logger != nil {
		u.config.Logger.Error(msg, keysAndValues...)
	}
}
