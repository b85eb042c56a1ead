package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name        string
		buf         []byte
		wantOpcode  Opcode
		wantPayload []byte
		wantKnown   bool
		wantErr     bool
	}{
		{
			name:        "init with size",
			buf:         []byte{0x01, 0x00, 0x00, 0x04, 0x00},
			wantOpcode:  OpInit,
			wantPayload: []byte{0x00, 0x00, 0x04, 0x00},
			wantKnown:   true,
		},
		{
			name:        "chunk",
			buf:         []byte{0x02, 0xDE, 0xAD, 0xBE, 0xEF},
			wantOpcode:  OpChunk,
			wantPayload: []byte{0xDE, 0xAD, 0xBE, 0xEF},
			wantKnown:   true,
		},
		{
			name:        "end without payload",
			buf:         []byte{0x03},
			wantOpcode:  OpEnd,
			wantPayload: []byte{},
			wantKnown:   true,
		},
		{
			name:        "unknown opcode is preserved",
			buf:         []byte{0x7F, 0x01},
			wantOpcode:  Opcode(0x7F),
			wantPayload: []byte{0x01},
			wantKnown:   false,
		},
		{
			name:    "empty buffer",
			buf:     []byte{},
			wantErr: true,
		},
		{
			name:    "nil buffer",
			buf:     nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode(tt.buf)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrMalformedMessage) {
					t.Errorf("error = %v, want ErrMalformedMessage", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if msg.Opcode != tt.wantOpcode {
				t.Errorf("opcode = %v, want %v", msg.Opcode, tt.wantOpcode)
			}
			if msg.Opcode.Known() != tt.wantKnown {
				t.Errorf("Known() = %v, want %v", msg.Opcode.Known(), tt.wantKnown)
			}
			if !bytes.Equal(msg.Payload, tt.wantPayload) {
				t.Errorf("payload = %X, want %X", msg.Payload, tt.wantPayload)
			}
		})
	}
}

func TestDecodeDoesNotCopy(t *testing.T) {
	buf := []byte{0x02, 0x01, 0x02}
	msg, err := Decode(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	buf[1] = 0xAA
	if msg.Payload[0] != 0xAA {
		t.Error("payload should alias the input buffer")
	}
}

func TestDecodeInit(t *testing.T) {
	tests := []struct {
		name     string
		payload  []byte
		wantSize uint32
		wantErr  bool
	}{
		{
			name:     "1024 bytes",
			payload:  []byte{0x00, 0x00, 0x04, 0x00},
			wantSize: 1024,
		},
		{
			name:     "max size",
			payload:  []byte{0xFF, 0xFF, 0xFF, 0xFF},
			wantSize: 0xFFFFFFFF,
		},
		{
			name:     "trailing bytes ignored",
			payload:  []byte{0x00, 0x00, 0x00, 0x64, 0x01, 0x02, 0x03},
			wantSize: 100,
		},
		{
			name:    "three bytes",
			payload: []byte{0x00, 0x04, 0x00},
			wantErr: true,
		},
		{
			name:    "empty",
			payload: nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, err := DecodeInit(tt.payload)

			if tt.wantErr {
				if !IsMalformed(err) {
					t.Errorf("error = %v, want malformed message", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if size != tt.wantSize {
				t.Errorf("size = %d, want %d", size, tt.wantSize)
			}
		})
	}
}

func TestCheckSize(t *testing.T) {
	buf := make([]byte, 513)

	if err := CheckSize(buf, DefaultMaxMessageSize); !IsMalformed(err) {
		t.Errorf("CheckSize(513, 512) = %v, want malformed message", err)
	}
	if err := CheckSize(buf[:512], DefaultMaxMessageSize); err != nil {
		t.Errorf("CheckSize(512, 512) = %v, want nil", err)
	}
	if err := CheckSize(buf, 0); err != nil {
		t.Errorf("CheckSize with capacity 0 = %v, want nil", err)
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpInit, "INIT"},
		{OpChunk, "CHUNK"},
		{OpEnd, "END"},
		{Opcode(0x42), "UNKNOWN(0x42)"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
