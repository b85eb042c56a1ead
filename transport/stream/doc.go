// Package stream carries update messages over a byte stream such as a
// serial port or a socket.
//
// # Framing
//
// Each message is prefixed with its length:
//
//	[LENGTH(2, big-endian)][MESSAGE(LENGTH)]
//
// A zero-length frame is a read request; the server answers it with a framed
// read response. Frames longer than the receive capacity are consumed and
// dropped so the stream stays in sync.
//
// # Usage
//
//	port, err := stream.OpenSerial("/dev/ttyUSB0", 115200)
//	if err != nil {
//	    return err
//	}
//	srv := stream.NewServer(sess, stream.WithLogger(logger))
//	err = srv.Serve(ctx, port)
package stream
