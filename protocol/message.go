package protocol

import (
	"encoding/binary"
	"fmt"
)

// Opcode identifies the message type. Values other than OpInit, OpChunk and
// OpEnd are unknown opcodes and are kept as-is for logging.
type Opcode byte

// Known reports whether the opcode is one of the defined message types.
func (o Opcode) Known() bool {
	switch o {
	case OpInit, OpChunk, OpEnd:
		return true
	default:
		return false
	}
}

func (o Opcode) String() string {
	switch o {
	case OpInit:
		return "INIT"
	case OpChunk:
		return "CHUNK"
	case OpEnd:
		return "END"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", byte(o))
	}
}

// Message is one decoded write to the update characteristic.
type Message struct {
	// Opcode is the first byte of the buffer
	Opcode Opcode

	// Payload is everything after the opcode. It aliases the decoded buffer.
	Payload []byte
}

// Decode parses a raw buffer into a Message.
// An empty buffer is the only decode failure; unknown opcodes decode normally.
func Decode(buf []byte) (Message, error) {
	if len(buf) < OpcodeSize {
		return Message{}, &MalformedMessageError{Reason: "no opcode present", Len: len(buf)}
	}

	return Message{
		Opcode:  Opcode(buf[0]),
		Payload: buf[OpcodeSize:],
	}, nil
}

// DecodeInit extracts the total image size from an INIT payload.
//
// Payload format (at least 4 bytes):
//
//	[TOTAL_SIZE(4, big-endian)][IGNORED...]
//
// Bytes beyond the size field are ignored.
func DecodeInit(payload []byte) (uint32, error) {
	if len(payload) < InitPayloadSize {
		return 0, &MalformedMessageError{Reason: "INIT payload too short", Len: len(payload)}
	}

	return binary.BigEndian.Uint32(payload[:InitPayloadSize]), nil
}

// CheckSize rejects buffers larger than the receive capacity.
// A capacity of zero or less disables the check.
func CheckSize(buf []byte, capacity int) error {
	if capacity > 0 && len(buf) > capacity {
		return &MalformedMessageError{
			Reason: fmt.Sprintf("exceeds receive capacity of %d bytes", capacity),
			Len:    len(buf),
		}
	}
	return nil
}
