package protocol

import (
	"errors"
	"fmt"
)

// ErrMalformedMessage is the error kind for buffers that cannot be decoded
// or that exceed the receive capacity.
var ErrMalformedMessage = errors.New("malformed message")

// MalformedMessageError describes why a buffer was rejected.
type MalformedMessageError struct {
	// Reason is a short description of the problem
	Reason string

	// Len is the length of the rejected buffer or payload
	Len int
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed message: %s (%d bytes)", e.Reason, e.Len)
}

// Is reports whether target is ErrMalformedMessage.
func (e *MalformedMessageError) Is(target error) bool {
	return target == ErrMalformedMessage
}

// IsMalformed returns true if the error is a MalformedMessageError.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedMessage)
}
