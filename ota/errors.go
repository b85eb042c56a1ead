package ota

import (
	"errors"
	"fmt"

	"github.com/moffa90/go-bleota/protocol"
)

var (
	// ErrInvalidState is the error kind for messages not valid in the current state
	ErrInvalidState = errors.New("invalid state")

	// ErrOverrun is the error kind for chunks that exceed the announced size
	ErrOverrun = errors.New("overrun")

	// ErrRestarting is returned for every message after a successful END
	ErrRestarting = errors.New("session complete, device restarting")
)

// InvalidStateError indicates a message arrived when the session could not accept it.
type InvalidStateError struct {
	Opcode protocol.Opcode
	State  State
	Reason string
}

func (e *InvalidStateError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s rejected in state %s: %s", e.Opcode, e.State, e.Reason)
	}
	return fmt.Sprintf("%s rejected in state %s", e.Opcode, e.State)
}

// Is reports whether target is ErrInvalidState.
func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

// OverrunError indicates a chunk would write past the size announced by INIT.
// Only returned when strict sizing is enabled.
type OverrunError struct {
	Expected uint32
	Written  uint64
	Chunk    int
}

func (e *OverrunError) Error() string {
	return fmt.Sprintf("chunk of %d bytes at offset %d overruns announced size %d",
		e.Chunk, e.Written, e.Expected)
}

// Is reports whether target is ErrOverrun.
func (e *OverrunError) Is(target error) bool {
	return target == ErrOverrun
}
