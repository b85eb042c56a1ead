package espimage

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"hash"
	"io"
	"os"
)

// Constants for the ESP32 application image format.
const (
	// Magic is the first byte of every image
	Magic = 0xE9

	// HeaderSize is the size of the common plus extended header
	HeaderSize = 24

	// SegmentHeaderSize is the size of a segment header (load addr + length)
	SegmentHeaderSize = 8

	// MaxSegments is the largest segment count the boot loader accepts
	MaxSegments = 16

	// ChecksumSeed is the initial value of the XOR checksum
	ChecksumSeed = 0xEF

	// ChecksumAlign is the alignment of the block that ends with the checksum byte
	ChecksumAlign = 16

	// DigestSize is the size of the appended SHA-256
	DigestSize = sha256.Size

	// MaxSegmentLength bounds a single segment to reject garbage headers early
	MaxSegmentLength = 16 * 1024 * 1024
)

// ParseFile parses an image from the given file path.
func ParseFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Parse(f)
}

// Verify parses the image and discards the result.
// Returns nil only for a structurally valid image with matching checksum and digest.
func Verify(r io.Reader) error {
	_, err := Parse(r)
	return err
}

// Parse reads an image from r and validates its checksum and optional digest.
// Bytes after the image are not read.
func Parse(r io.Reader) (*Image, error) {
	cr := &countingReader{r: bufio.NewReader(r), h: sha256.New()}

	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(cr, header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	img, segCount, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	checksum := byte(ChecksumSeed)
	segHeader := make([]byte, SegmentHeaderSize)
	buf := make([]byte, 4096)

	for i := 0; i < segCount; i++ {
		if _, err := io.ReadFull(cr, segHeader); err != nil {
			return nil, fmt.Errorf("segment %d: failed to read header: %w", i, err)
		}

		seg := Segment{
			LoadAddr: binary.LittleEndian.Uint32(segHeader[0:4]),
			Length:   binary.LittleEndian.Uint32(segHeader[4:8]),
		}
		if seg.Length > MaxSegmentLength {
			return nil, fmt.Errorf("segment %d: length %d exceeds maximum %d", i, seg.Length, MaxSegmentLength)
		}

		remaining := int(seg.Length)
		for remaining > 0 {
			n := min(remaining, len(buf))
			if _, err := io.ReadFull(cr, buf[:n]); err != nil {
				return nil, fmt.Errorf("segment %d: failed to read data: %w", i, err)
			}
			for _, b := range buf[:n] {
				checksum ^= b
			}
			remaining -= n
		}

		img.Segments = append(img.Segments, seg)
	}

	// Padding so that the checksum is the last byte of an aligned block
	pad := ChecksumAlign - 1 - cr.n%ChecksumAlign
	if _, err := io.ReadFull(cr, buf[:pad+1]); err != nil {
		return nil, fmt.Errorf("failed to read checksum: %w", err)
	}
	img.Checksum = buf[pad]
	if img.Checksum != checksum {
		return nil, &ChecksumError{Expected: checksum, Actual: img.Checksum}
	}

	if img.HashAppended {
		want := cr.h.Sum(nil)
		digest := make([]byte, DigestSize)
		if _, err := io.ReadFull(cr.r, digest); err != nil {
			return nil, fmt.Errorf("failed to read digest: %w", err)
		}
		cr.n += DigestSize
		if !bytes.Equal(digest, want) {
			return nil, &DigestError{Expected: want, Actual: digest}
		}
		img.Digest = digest
	}

	img.Size = cr.n
	return img, nil
}

// parseHeader parses the 24-byte image header.
//
// Header format:
//
//	[MAGIC][SEGMENTS][SPI_MODE][SPI_SPEED_SIZE][ENTRY(4)]
//	[WP_PIN][SPI_DRV(3)][CHIP_ID(2)][MIN_REV][MIN_REV_FULL(2)][MAX_REV_FULL(2)][RESERVED(4)][HASH_APPENDED]
func parseHeader(data []byte) (*Image, int, error) {
	if data[0] != Magic {
		return nil, 0, fmt.Errorf("invalid magic: got 0x%02X, expected 0x%02X", data[0], Magic)
	}

	segCount := int(data[1])
	if segCount == 0 || segCount > MaxSegments {
		return nil, 0, fmt.Errorf("invalid segment count %d: valid range is 1-%d", segCount, MaxSegments)
	}

	img := &Image{
		SPIMode:      data[2],
		SPISpeedSize: data[3],
		EntryAddr:    binary.LittleEndian.Uint32(data[4:8]),
		ChipID:       binary.LittleEndian.Uint16(data[12:14]),
		HashAppended: data[23] == 1,
	}

	return img, segCount, nil
}

// countingReader counts and hashes everything read through it.
type countingReader struct {
	r io.Reader
	h hash.Hash
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	c.h.Write(p[:n])
	return n, err
}
