package stream

import (
	"context"
	"errors"
	"io"

	"github.com/moffa90/go-bleota/ota"
	"github.com/moffa90/go-bleota/protocol"
	"github.com/moffa90/go-bleota/transport"
)

// Server feeds framed messages from a stream into a Dispatcher.
type Server struct {
	session  transport.Dispatcher
	logger   ota.Logger
	capacity int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a logger for transport events.
func WithLogger(logger ota.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMaxMessageSize sets the receive capacity. Larger frames are dropped.
func WithMaxMessageSize(size int) Option {
	return func(s *Server) {
		s.capacity = size
	}
}

// NewServer creates a Server for session.
func NewServer(session transport.Dispatcher, opts ...Option) *Server {
	s := &Server{
		session:  session,
		capacity: protocol.DefaultMaxMessageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve reads frames from rw until the stream ends or ctx is cancelled.
// The session is aborted when the peer goes away. If rw is an io.Closer it
// is closed on cancellation to unblock the pending read.
func (s *Server) Serve(ctx context.Context, rw io.ReadWriter) error {
	if c, ok := rw.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { c.Close() })
		defer stop()
	}

	s.logInfo("stream transport connected")

	for {
		frame, err := ReadFrame(rw, s.capacity)
		if err != nil {
			var tooLarge *FrameTooLargeError
			if errors.As(err, &tooLarge) {
				s.logWarn("dropping oversized frame", "len", tooLarge.Len, "capacity", tooLarge.Limit)
				continue
			}

			s.session.Abort(context.WithoutCancel(ctx), "stream closed")
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				s.logInfo("stream transport disconnected")
				return nil
			}
			return err
		}

		if len(frame) == 0 {
			if err := WriteFrame(rw, s.session.ReadResponse()); err != nil {
				return err
			}
			continue
		}

		if err := s.session.Dispatch(ctx, frame); err != nil {
			s.logDebug("message not applied", "error", err)
		}
	}
}

func (s *Server) logDebug(msg string, keysAndValues ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, keysAndValues...)
	}
}

func (s *Server) logInfo(msg string, keysAndValues ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, keysAndValues...)
	}
}

func (s *Server) logWarn(msg string, keysAndValues ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, keysAndValues...)
	}
}
