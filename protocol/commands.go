package protocol

import (
	"encoding/binary"
	"fmt"
)

// BuildInitMsg constructs an INIT message announcing the total image size.
//
// Message structure:
//
//	[0x01][SIZE_3][SIZE_2][SIZE_1][SIZE_0]
func BuildInitMsg(totalSize uint32) []byte {
	msg := make([]byte, InitMsgSize)
	msg[0] = byte(OpInit)
	binary.BigEndian.PutUint32(msg[OpcodeSize:], totalSize)
	return msg
}

// BuildChunkMsg constructs a CHUNK message carrying one fragment of the image.
//
// Message structure:
//
//	[0x02][DATA...]
//
// The data is copied. Returns an error if data is empty.
func BuildChunkMsg(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("chunk data cannot be empty")
	}

	msg := make([]byte, 0, OpcodeSize+len(data))
	msg = append(msg, byte(OpChunk))
	msg = append(msg, data...)
	return msg, nil
}

// BuildEndMsg constructs an END message.
func BuildEndMsg() []byte {
	msg := make([]byte, EndMsgSize)
	msg[0] = byte(OpEnd)
	return msg
}
