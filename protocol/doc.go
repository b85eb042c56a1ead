// Package protocol implements the BLE OTA update message format.
//
// This package decodes the raw buffers written to the update characteristic into
// typed messages and builds those messages on the sending side.
//
// # Message Format
//
// Every write to the characteristic carries exactly one message:
//
//	INIT:  [0x01][TOTAL_SIZE(4, big-endian)]
//	CHUNK: [0x02][FIRMWARE BYTES...]
//	END:   [0x03]
//
// Any other first byte is an unknown opcode. It decodes successfully so the
// receiver can log and ignore it.
//
// # Decoding
//
//	msg, err := protocol.Decode(buf)
//	if err != nil {
//	    // empty buffer, reject the write
//	}
//	switch msg.Opcode {
//	case protocol.OpInit:
//	    size, err := protocol.DecodeInit(msg.Payload)
//	    // ...
//	}
//
// The payload aliases the input buffer. Callers that retain it past the
// dispatch must copy it.
//
// # Message Builders
//
//	init := protocol.BuildInitMsg(uint32(len(image)))
//	chunk, err := protocol.BuildChunkMsg(image[:180])
//	end := protocol.BuildEndMsg()
//
// # Size Limits
//
// The codec makes no assumption about chunk sizes. Transports enforce their
// receive capacity with CheckSize before decoding.
package protocol
