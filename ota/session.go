package ota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/moffa90/go-bleota/flash"
	"github.com/moffa90/go-bleota/protocol"
)

const tracerName = "github.com/moffa90/go-bleota/ota"

// Session is the OTA update state machine for a single peer.
//
// Session is safe for concurrent use; every entry point holds one lock for
// its full duration.
type Session struct {
	sink   flash.Sink
	config Config
	tracer trace.Tracer

	mu           sync.Mutex
	machine      *fsm.FSM
	id           string
	expectedSize uint32
	bytesWritten uint64
	handle       flash.Handle
	region       flash.Region
	startedAt    time.Time
	lastActivity time.Time
	recorded     bool
	restarting   bool
}

// Snapshot is a point-in-time copy of the session bookkeeping.
type Snapshot struct {
	ID           string
	State        State
	ExpectedSize uint32
	BytesWritten uint64
	HasHandle    bool
	Region       flash.Region
	Restarting   bool
}

// New creates a Session that commits images to sink.
//
// Example:
//
//	sess := ota.New(flash.NewFileSink(dir),
//	    ota.WithLogger(logger),
//	    ota.WithIdleTimeout(2*time.Minute),
//	)
func New(sink flash.Sink, opts ...Option) *Session {
	if sink == nil {
		panic("sink cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	s := &Session{
		sink:   sink,
		config: cfg,
		tracer: tp.Tracer(tracerName),
	}
	s.machine = newStateMachine(func(from, to string) {
		s.logDebug("state changed", "from", from, "to", to, "session", s.id)
	})

	return s
}

// Dispatch processes one buffer written to the update characteristic.
//
// The returned error describes why a message was dropped or a flash
// operation failed. It is informational: the session has already logged it
// and updated its state, and nothing is reported to the peer.
func (s *Session) Dispatch(ctx context.Context, buf []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.restarting {
		return ErrRestarting
	}

	if err := protocol.CheckSize(buf, s.config.MaxMessageSize); err != nil {
		s.logWarn("rejecting oversized write", "len", len(buf), "capacity", s.config.MaxMessageSize)
		return err
	}

	msg, err := protocol.Decode(buf)
	if err != nil {
		s.logWarn("rejecting empty write")
		return err
	}

	s.lastActivity = s.config.Now()
	s.logDebug("message received", "opcode", msg.Opcode.String(), "len", len(buf))

	switch msg.Opcode {
	case protocol.OpInit:
		return s.handleInit(ctx, msg.Payload)
	case protocol.OpChunk:
		return s.handleChunk(ctx, msg.Payload)
	case protocol.OpEnd:
		return s.handleEnd(ctx)
	default:
		s.logWarn("unknown command", "opcode", fmt.Sprintf("0x%02X", byte(msg.Opcode)))
		return nil
	}
}

// ReadResponse returns the value reported for a read of the update characteristic.
func (s *Session) ReadResponse() []byte {
	return protocol.ReadResponse()
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

// Snapshot returns a copy of the session bookkeeping.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:           s.id,
		State:        s.state(),
		ExpectedSize: s.expectedSize,
		BytesWritten: s.bytesWritten,
		HasHandle:    s.handle != 0,
		Region:       s.region,
		Restarting:   s.restarting,
	}
}

// Abort abandons the session in flight and returns to Idle.
// Transports call it when the peer disconnects. It is a no-op when idle.
func (s *Session) Abort(ctx context.Context, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.restarting {
		return
	}
	if s.state() == StateIdle && s.handle == 0 {
		return
	}

	s.abortLocked(ctx, reason)
}

// Expire abandons the session if it has been idle for longer than the
// configured timeout. Returns true if the session was abandoned.
func (s *Session) Expire(ctx context.Context, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.IdleTimeout <= 0 || s.restarting {
		return false
	}
	if s.state() == StateIdle && s.handle == 0 {
		return false
	}
	if now.Sub(s.lastActivity) < s.config.IdleTimeout {
		return false
	}

	s.abortLocked(ctx, "idle timeout")
	return true
}

// Run applies the idle timeout until ctx is cancelled.
// Without an idle timeout it just waits for ctx.
func (s *Session) Run(ctx context.Context) error {
	if s.config.IdleTimeout <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	interval := s.config.IdleTimeout / 4
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Expire(ctx, s.config.Now())
		}
	}
}

// handleInit starts a fresh session from any state.
func (s *Session) handleInit(ctx context.Context, payload []byte) error {
	size, err := protocol.DecodeInit(payload)
	if err != nil {
		s.logWarn("INIT too short", "len", len(payload))
		return err
	}
	if size == 0 {
		s.logWarn("INIT with zero size")
		return &protocol.MalformedMessageError{Reason: "INIT size is zero", Len: len(payload)}
	}

	if s.handle != 0 {
		s.logWarn("abandoning session for new INIT",
			"session", s.id,
			"bytes_written", s.bytesWritten,
			"expected_size", s.expectedSize,
		)
		s.releaseLocked(ctx)
		s.recordLocked(ctx, OutcomeAbandoned, nil)
	}

	now := s.config.Now()
	s.id = ulid.Make().String()
	s.expectedSize = size
	s.bytesWritten = 0
	s.handle = 0
	s.region = flash.Region{}
	s.startedAt = now
	s.recorded = false

	s.logInfo("OTA INIT", "session", s.id, "firmware_bytes", size)

	spanCtx, span := s.startSpan(ctx, "ota.begin", attribute.Int64("ota.expected_size", int64(size)))
	h, region, err := s.sink.Begin(spanCtx, size)
	endSpan(span, err)

	if err != nil {
		s.logError("begin failed", "session", s.id, "error", err)
		s.fire(ctx, eventBeginFailed)
		s.recordLocked(ctx, OutcomeFailed, err)
		s.reportProgress(PhaseFailed)
		return fmt.Errorf("begin: %w", err)
	}

	s.handle = h
	s.region = region
	s.fire(ctx, eventBeginOK)

	s.logDebug("update region selected", "session", s.id, "region", region.Label)
	s.reportProgress(PhaseBegin)
	return nil
}

// handleChunk appends one fragment. Only valid while receiving.
func (s *Session) handleChunk(ctx context.Context, payload []byte) error {
	state := s.state()
	if state != StateReceiving {
		s.logWarn("CHUNK received in invalid state", "state", state.String())
		return &InvalidStateError{Opcode: protocol.OpChunk, State: state}
	}
	if s.handle == 0 {
		s.logWarn("CHUNK received before begin")
		return &InvalidStateError{Opcode: protocol.OpChunk, State: state, Reason: "no open transaction"}
	}

	if s.config.StrictSize && s.bytesWritten+uint64(len(payload)) > uint64(s.expectedSize) {
		err := &OverrunError{Expected: s.expectedSize, Written: s.bytesWritten, Chunk: len(payload)}
		s.logError("chunk overruns announced size", "session", s.id, "error", err)
		s.failLocked(ctx, err)
		return err
	}

	spanCtx, span := s.startSpan(ctx, "ota.write",
		attribute.Int("ota.chunk_len", len(payload)),
		attribute.Int64("ota.offset", int64(s.bytesWritten)),
	)
	err := s.sink.Write(spanCtx, s.handle, payload)
	endSpan(span, err)

	if err != nil {
		s.logError("write failed", "session", s.id, "offset", s.bytesWritten, "error", err)
		s.failLocked(ctx, err)
		return fmt.Errorf("write: %w", err)
	}

	s.bytesWritten += uint64(len(payload))
	s.logDebug("firmware chunk",
		"len", len(payload),
		"bytes_written", s.bytesWritten,
		"expected_size", s.expectedSize,
	)
	s.reportProgress(PhaseReceiving)
	return nil
}

// handleEnd finalizes, activates and restarts. Failures leave the state unchanged.
func (s *Session) handleEnd(ctx context.Context) error {
	if s.handle == 0 {
		s.logWarn("END received before begin", "state", s.state().String())
		return &InvalidStateError{Opcode: protocol.OpEnd, State: s.state(), Reason: "no open transaction"}
	}

	s.reportProgress(PhaseFinalizing)

	spanCtx, span := s.startSpan(ctx, "ota.end", attribute.Int64("ota.bytes_written", int64(s.bytesWritten)))
	region, err := s.sink.End(spanCtx, s.handle)
	endSpan(span, err)

	if err != nil {
		s.logError("end failed", "session", s.id, "error", err)
		s.recordLocked(ctx, OutcomeFailed, err)
		s.reportProgress(PhaseFailed)
		return fmt.Errorf("end: %w", err)
	}
	s.region = region

	s.reportProgress(PhaseActivating)

	spanCtx, span = s.startSpan(ctx, "ota.activate", attribute.String("ota.region", region.Label))
	err = s.sink.Activate(spanCtx, region)
	endSpan(span, err)

	if err != nil {
		s.logError("set boot region failed", "session", s.id, "region", region.Label, "error", err)
		s.recordLocked(ctx, OutcomeFailed, err)
		s.reportProgress(PhaseFailed)
		return fmt.Errorf("activate: %w", err)
	}

	s.restarting = true
	s.recordLocked(ctx, OutcomeCompleted, nil)
	s.reportProgress(PhaseComplete)
	s.logInfo("OTA complete, rebooting",
		"session", s.id,
		"region", region.String(),
		"elapsed", s.config.Now().Sub(s.startedAt).String(),
	)

	if s.config.Restarter == nil {
		s.logWarn("no restarter configured, ignoring further messages")
		return nil
	}
	if err := s.config.Restarter.Restart(ctx); err != nil {
		s.logError("restart failed", "error", err)
		return fmt.Errorf("restart: %w", err)
	}
	return nil
}

// failLocked moves a receiving session to Error after a flash failure.
// The handle is kept so END still reaches the sink.
func (s *Session) failLocked(ctx context.Context, err error) {
	s.fire(ctx, eventWriteFailed)
	s.recordLocked(ctx, OutcomeFailed, err)
	s.reportProgress(PhaseFailed)
}

// abortLocked releases the transaction and resets to Idle.
func (s *Session) abortLocked(ctx context.Context, reason string) {
	s.logWarn("session abandoned",
		"session", s.id,
		"reason", reason,
		"bytes_written", s.bytesWritten,
		"expected_size", s.expectedSize,
	)

	if s.handle != 0 {
		s.releaseLocked(ctx)
	}
	s.recordLocked(ctx, OutcomeAbandoned, fmt.Errorf("%s", reason))
	s.reportProgress(PhaseAbandoned)

	s.handle = 0
	s.region = flash.Region{}
	s.expectedSize = 0
	s.bytesWritten = 0
	s.fire(ctx, eventReset)
}

// releaseLocked tells the sink to drop the open transaction, if it can.
func (s *Session) releaseLocked(ctx context.Context) {
	aborter, ok := s.sink.(flash.Aborter)
	if !ok {
		return
	}
	if err := aborter.Abort(ctx, s.handle); err != nil {
		s.logWarn("release of abandoned transaction failed", "session", s.id, "error", err)
	}
}

// recordLocked writes the outcome once per session.
func (s *Session) recordLocked(ctx context.Context, outcome Outcome, cause error) {
	if s.config.Recorder == nil || s.id == "" || s.recorded {
		return
	}
	s.recorded = true

	rec := Record{
		SessionID:    s.id,
		Outcome:      outcome,
		ExpectedSize: s.expectedSize,
		BytesWritten: s.bytesWritten,
		Region:       s.region.Label,
		StartedAt:    s.startedAt,
		FinishedAt:   s.config.Now(),
	}
	if cause != nil {
		rec.Error = cause.Error()
	}

	if err := s.config.Recorder.Record(ctx, rec); err != nil {
		s.logWarn("record session outcome failed", "session", s.id, "error", err)
	}
}

func (s *Session) state() State {
	return State(s.machine.Current())
}

func (s *Session) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("ota.session", s.id))
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// reportProgress calls the progress callback if configured.
func (s *Session) reportProgress(phase string) {
	if s.config.ProgressCallback == nil {
		return
	}

	var pct float64
	if s.expectedSize > 0 {
		pct = float64(s.bytesWritten) / float64(s.expectedSize) * 100
	}

	s.config.ProgressCallback(Progress{
		Phase:        phase,
		SessionID:    s.id,
		ExpectedSize: s.expectedSize,
		BytesWritten: s.bytesWritten,
		Percentage:   pct,
		ElapsedTime:  s.config.Now().Sub(s.startedAt),
	})
}

// logDebug logs a debug message if a logger is configured.
func (s *Session) logDebug(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (s *Session) logInfo(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning if a logger is configured.
func (s *Session) logWarn(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (s *Session) logError(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Error(msg, keysAndValues...)
	}
}
