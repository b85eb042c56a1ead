package espimage

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// SegmentData is a segment with its contents, used to build images.
type SegmentData struct {
	LoadAddr uint32
	Data     []byte
}

// Build assembles an image from segments. It is the inverse of Parse and is
// used to produce test images and demo payloads.
func Build(entry uint32, segments []SegmentData, appendHash bool) ([]byte, error) {
	if len(segments) == 0 || len(segments) > MaxSegments {
		return nil, fmt.Errorf("segment count %d: valid range is 1-%d", len(segments), MaxSegments)
	}

	out := make([]byte, HeaderSize)
	out[0] = Magic
	out[1] = byte(len(segments))
	out[2] = 0x02 // DIO
	out[3] = 0x20 // 4MB, 40MHz
	binary.LittleEndian.PutUint32(out[4:8], entry)
	if appendHash {
		out[23] = 1
	}

	checksum := byte(ChecksumSeed)
	for _, seg := range segments {
		var hdr [SegmentHeaderSize]byte
		binary.LittleEndian.PutUint32(hdr[0:4], seg.LoadAddr)
		binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(seg.Data)))
		out = append(out, hdr[:]...)
		out = append(out, seg.Data...)
		for _, b := range seg.Data {
			checksum ^= b
		}
	}

	pad := ChecksumAlign - 1 - len(out)%ChecksumAlign
	out = append(out, make([]byte, pad)...)
	out = append(out, checksum)

	if appendHash {
		sum := sha256.Sum256(out)
		out = append(out, sum[:]...)
	}

	return out, nil
}
