package stream

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrOutOfSync is returned by Client writes after a frame was cut short.
// The peer can no longer find frame boundaries; open a new stream.
var ErrOutOfSync = errors.New("stream out of sync after partial frame write")

// Client writes framed messages to a stream. It implements the uploader's
// message writer.
type Client struct {
	mu     sync.Mutex
	rw     io.ReadWriter
	broken bool
}

// NewClient wraps rw.
func NewClient(rw io.ReadWriter) *Client {
	return &Client{rw: rw}
}

// WriteMessage sends one update message.
func (c *Client) WriteMessage(ctx context.Context, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(msg)
}

// write sends one frame. A write that fails after some bytes went out
// leaves the client broken.
func (c *Client) write(p []byte) error {
	if c.broken {
		return ErrOutOfSync
	}
	n, err := writeFrame(c.rw, p)
	if err != nil && n > 0 {
		c.broken = true
		return errors.Join(ErrOutOfSync, err)
	}
	return err
}

// ReadValue issues a read request and returns the response.
func (c *Client) ReadValue(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.write(nil); err != nil {
		return nil, err
	}
	return ReadFrame(c.rw, 0)
}

// Close closes the underlying stream if it is an io.Closer.
func (c *Client) Close() error {
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
