package espimage

import "fmt"

// ChecksumError indicates that the stored XOR checksum does not match the segment data.
type ChecksumError struct {
	Expected byte
	Actual   byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: computed 0x%02X, image has 0x%02X", e.Expected, e.Actual)
}

// DigestError indicates that the appended SHA-256 does not match the image contents.
type DigestError struct {
	Expected []byte
	Actual   []byte
}

func (e *DigestError) Error() string {
	return fmt.Sprintf("digest mismatch: computed %x, image has %x", e.Expected, e.Actual)
}
