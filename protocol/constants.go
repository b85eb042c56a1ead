package protocol

// Opcodes carried in the first byte of every message.
const (
	// OpInit starts a session with the total image size
	OpInit Opcode = 0x01

	// OpChunk carries the next fragment of the image
	OpChunk Opcode = 0x02

	// OpEnd finalizes the session and activates the new image
	OpEnd Opcode = 0x03
)

// Message layout constants.
const (
	// OpcodeSize is the size of the opcode field
	OpcodeSize = 1

	// InitPayloadSize is the size of the INIT payload (big-endian u32 total size)
	InitPayloadSize = 4

	// InitMsgSize is the full INIT message size
	InitMsgSize = OpcodeSize + InitPayloadSize

	// EndMsgSize is the full END message size
	EndMsgSize = OpcodeSize
)

// DefaultMaxMessageSize is the default receive capacity for a single message.
// It matches the largest ATT attribute value a peripheral will accept.
const DefaultMaxMessageSize = 512

// DefaultChunkSize is the firmware payload size per CHUNK used by the uploader.
// 180 bytes plus the opcode fits comfortably in a 185-byte negotiated MTU.
const DefaultChunkSize = 180

// GATT identifiers for the update service.
const (
	// ServiceUUID16 is the 16-bit UUID of the update service
	ServiceUUID16 = 0xFFF0

	// CharacteristicUUID16 is the 16-bit UUID of the read/write update characteristic
	CharacteristicUUID16 = 0xFFF1

	// DefaultDeviceName is the advertised local name of the receiver
	DefaultDeviceName = "nimble"
)
