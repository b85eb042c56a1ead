package uploader

import (
	"errors"
	"fmt"

	"github.com/moffa90/go-bleota/protocol"
)

// ErrEmptyImage is returned when there is nothing to upload.
var ErrEmptyImage = errors.New("image is empty")

// ImageTooLargeError indicates the image size does not fit the INIT size field.
type ImageTooLargeError struct {
	Size int64
}

func (e *ImageTooLargeError) Error() string {
	return fmt.Sprintf("image of %d bytes exceeds the 4 GiB INIT limit", e.Size)
}

// WriteError indicates a message could not be delivered.
type WriteError struct {
	// Opcode of the message that failed
	Opcode protocol.Opcode

	// Offset is the image offset of the failed chunk (CHUNK only)
	Offset int

	// Attempts is the number of writes tried
	Attempts int

	Err error
}

func (e *WriteError) Error() string {
	if e.Opcode == protocol.OpChunk {
		return fmt.Sprintf("write %s at offset %d failed after %d attempt(s): %v", e.Opcode, e.Offset, e.Attempts, e.Err)
	}
	return fmt.Sprintf("write %s failed after %d attempt(s): %v", e.Opcode, e.Attempts, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
