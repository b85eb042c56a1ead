// Package ota implements the receive side of a BLE firmware update.
//
// # Overview
//
// A Session reassembles a firmware image from the messages written to the
// update characteristic and drives a flash.Sink through the commit sequence:
//
//	INIT(size) -> Begin
//	CHUNK(data) -> Write (repeated)
//	END        -> End, Activate, restart
//
// The Session is the only stateful component. It is either Idle, Receiving or
// in Error. INIT is accepted in every state and is the only way to recover
// from Error: it abandons whatever was in flight and starts over.
//
// # Basic Usage
//
//	sink := flash.NewFileSink("/var/lib/ota")
//	sess := ota.New(sink,
//	    ota.WithLogger(slog.Default()),
//	    ota.WithRestarter(reboot.NewLogind()),
//	)
//
//	// From the transport's write callback:
//	if err := sess.Dispatch(ctx, buf); err != nil {
//	    // already logged; the peer is never told
//	}
//
// # Failure Semantics
//
// Flash errors are not retried. They move the session to Error (or leave it
// where it was for END) and are reported only through the Logger, the progress
// callback and the optional Recorder. The peer learns that an update failed
// only because the device does not reboot.
//
// # Abandoned Sessions
//
// A peer that disconnects mid-transfer would otherwise park the session in
// Receiving forever. Transports call Abort on disconnect, and WithIdleTimeout
// together with Run expires sessions that stop receiving messages.
//
// # Concurrency
//
// Dispatch, Abort and Expire serialize on one mutex held for the whole call,
// so transports that deliver callbacks from several goroutines are safe.
// Flash calls are made synchronously while the lock is held.
package ota
