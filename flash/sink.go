package flash

import (
	"context"
	"fmt"
)

// Handle identifies an open write transaction. Zero is never a valid handle.
type Handle uint64

// Region identifies a storage region that holds, or will hold, an image.
type Region struct {
	// Label is the region name, e.g. "ota_0"
	Label string

	// Size is the number of bytes committed to the region
	Size uint64

	// SHA256 is the digest of the committed bytes, set by End
	SHA256 []byte
}

func (r Region) String() string {
	if len(r.SHA256) == 0 {
		return r.Label
	}
	return fmt.Sprintf("%s (%d bytes, sha256 %x)", r.Label, r.Size, r.SHA256[:min(8, len(r.SHA256))])
}

// Sink is the write/commit/activate capability over the device's boot storage.
// Calls are synchronous and may block on I/O.
type Sink interface {
	// Begin reserves the next update region for size bytes and opens a transaction.
	Begin(ctx context.Context, size uint32) (Handle, Region, error)

	// Write appends p to the open transaction.
	Write(ctx context.Context, h Handle, p []byte) error

	// End finalizes and validates the transaction and returns the committed region.
	End(ctx context.Context, h Handle) (Region, error)

	// Activate marks the committed region as the next boot target.
	Activate(ctx context.Context, r Region) error
}

// Aborter is implemented by sinks that can release an open transaction
// without committing it. The region is left stale and is never activated.
type Aborter interface {
	Abort(ctx context.Context, h Handle) error
}
