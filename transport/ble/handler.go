package ble

import (
	"context"

	"github.com/moffa90/go-bleota/ota"
	"github.com/moffa90/go-bleota/transport"
)

// Handler turns GATT events into session calls. It holds no Bluetooth
// state so it can be driven directly.
type Handler struct {
	session transport.Dispatcher
	logger  ota.Logger
}

// NewHandler creates a Handler for session.
func NewHandler(session transport.Dispatcher, logger ota.Logger) *Handler {
	return &Handler{session: session, logger: logger}
}

// OnWrite handles a write to the update characteristic. The value is copied
// because the stack may reuse its buffer after the callback returns.
//
// Every write must carry one whole message. A central whose message does not
// fit the negotiated ATT MTU would split it into a long write; the first
// fragment would then be taken as the complete message and the rest dropped.
// The uploader sizes its chunks to the MTU for this reason.
func (h *Handler) OnWrite(ctx context.Context, offset int, value []byte) {
	if offset != 0 {
		h.logWarn("ignoring write with non-zero offset", "offset", offset, "len", len(value))
		return
	}

	buf := make([]byte, len(value))
	copy(buf, value)

	if err := h.session.Dispatch(ctx, buf); err != nil {
		h.logDebug("message not applied", "error", err)
	}
}

// OnConnect handles a connection state change.
func (h *Handler) OnConnect(ctx context.Context, address string, connected bool) {
	if connected {
		h.logInfo("central connected", "address", address)
		return
	}

	h.logInfo("central disconnected", "address", address)
	h.session.Abort(ctx, "peer disconnected")
}

// ReadValue is the characteristic value presented to reads.
func (h *Handler) ReadValue() []byte {
	return h.session.ReadResponse()
}

func (h *Handler) logDebug(msg string, keysAndValues ...interface{}) {
	if h.logger != nil {
		h.logger.Debug(msg, keysAndValues...)
	}
}

func (h *Handler) logInfo(msg string, keysAndValues ...interface{}) {
	if h.logger != nil {
		h.logger.Info(msg, keysAndValues...)
	}
}

func (h *Handler) logWarn(msg string, keysAndValues ...interface{}) {
	if h.logger != nil {
		h.logger.Warn(msg, keysAndValues...)
	}
}
