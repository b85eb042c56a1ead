// Package transport holds what the BLE and stream adapters share.
package transport

import "context"

// Dispatcher is the session surface a transport drives. *ota.Session
// implements it.
type Dispatcher interface {
	// Dispatch handles one buffer written by the peer.
	Dispatch(ctx context.Context, buf []byte) error

	// ReadResponse is the value returned when the peer reads.
	ReadResponse() []byte

	// Abort abandons the session in flight when the peer goes away.
	Abort(ctx context.Context, reason string)
}
