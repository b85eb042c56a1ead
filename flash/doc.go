// Package flash defines the storage side of an OTA update.
//
// # Overview
//
// A Sink commits a firmware image to an alternate boot region in four steps:
//
//	h, region, err := sink.Begin(ctx, size) // pick and reserve the next update region
//	err = sink.Write(ctx, h, chunk)         // append sequentially, repeatedly
//	region, err = sink.End(ctx, h)          // finalize and validate
//	err = sink.Activate(ctx, region)        // mark as next boot target
//
// There is no rollback. A transaction that is never ended leaves a stale
// region that is never activated, and the next Begin simply overwrites it.
//
// # Error Handling
//
// Every failure is returned as *Error carrying one of the kinds
// ErrStorageUnavailable, ErrWriteFailed, ErrFinalizeFailed or
// ErrActivationFailed:
//
//	if errors.Is(err, flash.ErrWriteFailed) {
//	    // ...
//	}
//
// # Implementations
//
// FileSink keeps two slot files and an otadata pointer in a directory, the
// same A/B layout the ESP-IDF partition table uses. MemorySink keeps
// everything in memory for tests and demos.
package flash
