// Package espimage parses and validates ESP32 application images.
//
// # Overview
//
// An application image written to an OTA slot has the layout:
//
//	[HEADER(24)][SEGMENT_HEADER(8)][DATA...]...[PADDING][CHECKSUM(1)][SHA256(32)?]
//
// The header carries the magic byte 0xE9, the segment count, flash mode and
// entry point, followed by the extended header with the target chip ID and the
// hash-appended flag. The checksum is the XOR of every segment data byte seeded
// with 0xEF, stored at the last byte of a 16-byte aligned block. When the hash
// flag is set a SHA-256 of everything up to and including the checksum follows.
//
// # Usage
//
//	img, err := espimage.ParseFile("ota_1.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("entry 0x%08X, %d segments\n", img.EntryAddr, len(img.Segments))
//
// The flash sink uses Verify during finalize so a truncated or corrupted
// transfer is never activated.
package espimage
