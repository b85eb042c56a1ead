package stream

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte{0x01, 0x00, 0x00, 0x04, 0x00}))
	assert.Equal(t, []byte{0x00, 0x05, 0x01, 0x00, 0x00, 0x04, 0x00}, buf.Bytes())

	buf.Reset()
	require.NoError(t, WriteFrame(&buf, nil))
	assert.Equal(t, []byte{0x00, 0x00}, buf.Bytes())

	assert.Error(t, WriteFrame(&buf, make([]byte, MaxFrameSize+1)))
}

func TestReadFrame(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		limit   int
		want    []byte
		wantErr error
	}{
		{name: "message", input: []byte{0x00, 0x01, 0x03}, limit: 512, want: []byte{0x03}},
		{name: "empty frame", input: []byte{0x00, 0x00}, limit: 512, want: []byte{}},
		{name: "no limit", input: append([]byte{0x02, 0x00}, make([]byte, 512)...), want: make([]byte, 512)},
		{name: "short header", input: []byte{0x00}, wantErr: io.ErrUnexpectedEOF},
		{name: "truncated payload", input: []byte{0x00, 0x04, 0x01}, wantErr: io.ErrUnexpectedEOF},
		{name: "closed", input: nil, wantErr: io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadFrame(bytes.NewReader(tt.input), tt.limit)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadFrameDrainsOversized(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, bytes.Repeat([]byte{0xAA}, 600)))
	require.NoError(t, WriteFrame(&buf, []byte{0x03}))

	_, err := ReadFrame(&buf, 512)
	var tooLarge *FrameTooLargeError
	require.True(t, errors.As(err, &tooLarge))
	assert.Equal(t, 600, tooLarge.Len)
	assert.Equal(t, 512, tooLarge.Limit)

	next, err := ReadFrame(&buf, 512)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03}, next, "stream stays in sync after a dropped frame")
}
