package protocol

// readResponse is the fixed value returned by a read of the update characteristic.
// The protocol has no read-side status reporting.
var readResponse = []byte("Hello")

// ReadResponse returns a copy of the characteristic's read value.
func ReadResponse() []byte {
	out := make([]byte, len(readResponse))
	copy(out, readResponse)
	return out
}
