package espimage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testSegments() []SegmentData {
	return []SegmentData{
		{LoadAddr: 0x3F400020, Data: bytes.Repeat([]byte{0xA5}, 37)},
		{LoadAddr: 0x40080000, Data: []byte{0x01, 0x02, 0x03, 0x04, 0x05}},
	}
}

func TestParseBuiltImage(t *testing.T) {
	tests := []struct {
		name       string
		appendHash bool
	}{
		{name: "without digest", appendHash: false},
		{name: "with digest", appendHash: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Build(0x40081234, testSegments(), tt.appendHash)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}

			img, err := Parse(bytes.NewReader(raw))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}

			if img.EntryAddr != 0x40081234 {
				t.Errorf("EntryAddr = 0x%08X, want 0x40081234", img.EntryAddr)
			}
			if len(img.Segments) != 2 {
				t.Fatalf("segments = %d, want 2", len(img.Segments))
			}
			if img.Segments[0].LoadAddr != 0x3F400020 || img.Segments[0].Length != 37 {
				t.Errorf("segment 0 = %+v", img.Segments[0])
			}
			if img.HashAppended != tt.appendHash {
				t.Errorf("HashAppended = %v, want %v", img.HashAppended, tt.appendHash)
			}
			if tt.appendHash && len(img.Digest) != DigestSize {
				t.Errorf("digest length = %d, want %d", len(img.Digest), DigestSize)
			}
			if img.Size != len(raw) {
				t.Errorf("Size = %d, want %d", img.Size, len(raw))
			}
		})
	}
}

func TestChecksumIsBlockAligned(t *testing.T) {
	raw, err := Build(0, testSegments(), false)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(raw)%ChecksumAlign != 0 {
		t.Errorf("image length %d is not %d-byte aligned", len(raw), ChecksumAlign)
	}
}

func TestParseRejectsCorruption(t *testing.T) {
	good, err := Build(0x40080000, testSegments(), true)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	tests := []struct {
		name   string
		mutate func([]byte) []byte
		errMsg string
	}{
		{
			name:   "bad magic",
			mutate: func(b []byte) []byte { b[0] = 0x00; return b },
			errMsg: "invalid magic",
		},
		{
			name:   "zero segments",
			mutate: func(b []byte) []byte { b[1] = 0; return b },
			errMsg: "invalid segment count",
		},
		{
			name:   "too many segments",
			mutate: func(b []byte) []byte { b[1] = MaxSegments + 1; return b },
			errMsg: "invalid segment count",
		},
		{
			name:   "flipped data byte",
			mutate: func(b []byte) []byte { b[HeaderSize+SegmentHeaderSize] ^= 0xFF; return b },
			errMsg: "checksum mismatch",
		},
		{
			name:   "truncated",
			mutate: func(b []byte) []byte { return b[:HeaderSize+4] },
			errMsg: "failed to read",
		},
		{
			name:   "corrupted digest",
			mutate: func(b []byte) []byte { b[len(b)-1] ^= 0x01; return b },
			errMsg: "digest mismatch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tt.mutate(append([]byte(nil), good...))

			_, err := Parse(bytes.NewReader(raw))
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.errMsg)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error = %v, want substring %q", err, tt.errMsg)
			}
		})
	}
}

func TestChecksumErrorType(t *testing.T) {
	raw, err := Build(0, testSegments(), false)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	raw[len(raw)-1] ^= 0x10

	var ce *ChecksumError
	if err := Verify(bytes.NewReader(raw)); !errors.As(err, &ce) {
		t.Fatalf("Verify error = %v, want *ChecksumError", err)
	}
}

func TestParseIgnoresTrailingBytes(t *testing.T) {
	raw, err := Build(0, testSegments(), false)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	size := len(raw)
	raw = append(raw, 0xFF, 0xFF, 0xFF)

	img, err := Parse(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if img.Size != size {
		t.Errorf("Size = %d, want %d", img.Size, size)
	}
}

func TestParseFile(t *testing.T) {
	raw, err := Build(0x400D0000, testSegments(), true)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	path := filepath.Join(t.TempDir(), "app.bin")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	img, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if img.EntryAddr != 0x400D0000 {
		t.Errorf("EntryAddr = 0x%08X, want 0x400D0000", img.EntryAddr)
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.bin")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestBuildValidatesSegments(t *testing.T) {
	if _, err := Build(0, nil, false); err == nil {
		t.Error("expected error for zero segments")
	}
}
