package protocol

import (
	"bytes"
	"testing"
)

func TestBuildInitMsg(t *testing.T) {
	msg := BuildInitMsg(1024)
	want := []byte{0x01, 0x00, 0x00, 0x04, 0x00}

	if !bytes.Equal(msg, want) {
		t.Errorf("BuildInitMsg(1024) = %X, want %X", msg, want)
	}
	if len(msg) != InitMsgSize {
		t.Errorf("length = %d, want %d", len(msg), InitMsgSize)
	}
}

func TestBuildChunkMsg(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    []byte
		wantErr bool
		errMsg  string
	}{
		{
			name: "single byte",
			data: []byte{0xAB},
			want: []byte{0x02, 0xAB},
		},
		{
			name: "full chunk",
			data: bytes.Repeat([]byte{0x55}, DefaultChunkSize),
			want: append([]byte{0x02}, bytes.Repeat([]byte{0x55}, DefaultChunkSize)...),
		},
		{
			name:    "empty data",
			data:    []byte{},
			wantErr: true,
			errMsg:  "chunk data cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := BuildChunkMsg(tt.data)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.errMsg)
				}
				if !bytes.Contains([]byte(err.Error()), []byte(tt.errMsg)) {
					t.Errorf("error = %v, want substring %q", err, tt.errMsg)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(msg, tt.want) {
				t.Errorf("msg = %X, want %X", msg, tt.want)
			}
		})
	}
}

func TestBuildChunkMsgCopiesData(t *testing.T) {
	data := []byte{0x01, 0x02}
	msg, err := BuildChunkMsg(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data[0] = 0xFF
	if msg[1] != 0x01 {
		t.Error("chunk message should not alias the input data")
	}
}

func TestBuildEndMsg(t *testing.T) {
	if msg := BuildEndMsg(); !bytes.Equal(msg, []byte{0x03}) {
		t.Errorf("BuildEndMsg() = %X, want 03", msg)
	}
}

func TestBuildersRoundTripThroughDecode(t *testing.T) {
	msg, err := Decode(BuildInitMsg(50))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	size, err := DecodeInit(msg.Payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Opcode != OpInit || size != 50 {
		t.Errorf("got %v size %d, want INIT size 50", msg.Opcode, size)
	}
}

func TestReadResponse(t *testing.T) {
	first := ReadResponse()
	if string(first) != "Hello" {
		t.Errorf("ReadResponse() = %q, want %q", first, "Hello")
	}

	first[0] = 'J'
	if string(ReadResponse()) != "Hello" {
		t.Error("ReadResponse should return a fresh copy")
	}
}
