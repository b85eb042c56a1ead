package stream

import (
	"encoding/binary"
	"fmt"
	"io"
)

// HeaderSize is the length prefix size in bytes.
const HeaderSize = 2

// MaxFrameSize is the largest payload a frame header can describe.
const MaxFrameSize = 0xFFFF

// FrameTooLargeError is returned by ReadFrame when the announced length
// exceeds the caller's limit. The payload has already been discarded.
type FrameTooLargeError struct {
	Len   int
	Limit int
}

func (e *FrameTooLargeError) Error() string {
	return fmt.Sprintf("frame of %d bytes exceeds limit of %d", e.Len, e.Limit)
}

// WriteFrame writes p with its length prefix.
func WriteFrame(w io.Writer, p []byte) error {
	_, err := writeFrame(w, p)
	return err
}

// writeFrame is WriteFrame reporting how many bytes reached w.
func writeFrame(w io.Writer, p []byte) (int, error) {
	if len(p) > MaxFrameSize {
		return 0, fmt.Errorf("frame of %d bytes exceeds %d", len(p), MaxFrameSize)
	}

	buf := make([]byte, HeaderSize+len(p))
	binary.BigEndian.PutUint16(buf, uint16(len(p)))
	copy(buf[HeaderSize:], p)

	return w.Write(buf)
}

// ReadFrame reads one frame. A limit of zero or less accepts any length.
// Oversized payloads are drained before FrameTooLargeError is returned.
func ReadFrame(r io.Reader, limit int) ([]byte, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	n := int(binary.BigEndian.Uint16(header[:]))
	if limit > 0 && n > limit {
		if _, err := io.CopyN(io.Discard, r, int64(n)); err != nil {
			return nil, err
		}
		return nil, &FrameTooLargeError{Len: n, Limit: limit}
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
