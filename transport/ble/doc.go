// Package ble exposes an OTA session as a GATT peripheral.
//
// The device advertises a single primary service with one read/write
// characteristic. Every write is handed to the session as one message; reads
// return the session's fixed read response. A disconnect abandons the
// session in flight.
//
//	adapter := bluetooth.DefaultAdapter
//	p := ble.NewPeripheral(adapter, sess,
//	    ble.WithDeviceName("nimble"),
//	    ble.WithLogger(logger),
//	)
//	if err := p.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package ble
