package flash

import (
	"errors"
	"fmt"
)

// Error kinds returned by Sink implementations.
var (
	// ErrStorageUnavailable indicates no suitable region exists or it cannot be opened
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrWriteFailed indicates an append to the open transaction failed
	ErrWriteFailed = errors.New("write failed")

	// ErrFinalizeFailed indicates the transaction is inconsistent and cannot be committed
	ErrFinalizeFailed = errors.New("finalize failed")

	// ErrActivationFailed indicates the region cannot be marked bootable
	ErrActivationFailed = errors.New("activation failed")
)

// Error is a failed sink operation.
type Error struct {
	// Op is the sink operation: "begin", "write", "end" or "activate"
	Op string

	// Kind is one of the Err* sentinels above
	Kind error

	// Region is the label of the region involved, if known
	Region string

	// Err is the underlying cause, may be nil
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("flash %s", e.Op)
	if e.Region != "" {
		msg += " " + e.Region
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
