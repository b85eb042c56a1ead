package espimage

// Image describes a parsed ESP32 application image.
type Image struct {
	// SPIMode is the flash SPI mode (QIO, QOUT, DIO, DOUT)
	SPIMode byte

	// SPISpeedSize packs the flash frequency (low nibble) and size (high nibble)
	SPISpeedSize byte

	// EntryAddr is the application entry point
	EntryAddr uint32

	// ChipID identifies the target chip (0x0000 = ESP32)
	ChipID uint16

	// HashAppended is set when a SHA-256 digest follows the checksum
	HashAppended bool

	// Segments lists the load segments in file order
	Segments []Segment

	// Checksum is the stored XOR checksum byte
	Checksum byte

	// Digest is the appended SHA-256, nil when HashAppended is false
	Digest []byte

	// Size is the number of bytes the image occupies
	Size int
}

// Segment is a single load segment of an image.
type Segment struct {
	// LoadAddr is the memory address the segment is loaded to
	LoadAddr uint32

	// Length is the segment data length in bytes
	Length uint32
}
