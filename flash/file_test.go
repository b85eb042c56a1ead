package flash

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-bleota/espimage"
)

func TestFileSinkCommitAndActivate(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	sink := NewFileSink(dir, WithSlotSize(4096))

	active, err := sink.ActiveSlot()
	require.NoError(t, err)
	assert.Equal(t, "ota_0", active)

	payload := bytes.Repeat([]byte{0x5A}, 1024)
	h, region, err := sink.Begin(ctx, uint32(len(payload)))
	require.NoError(t, err)
	assert.Equal(t, "ota_1", region.Label)

	require.NoError(t, sink.Write(ctx, h, payload[:512]))
	require.NoError(t, sink.Write(ctx, h, payload[512:]))

	committed, err := sink.End(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, "ota_1", committed.Label)
	assert.EqualValues(t, 1024, committed.Size)
	sum := sha256.Sum256(payload)
	assert.Equal(t, sum[:], committed.SHA256)

	require.NoError(t, sink.Activate(ctx, committed))

	active, err = sink.ActiveSlot()
	require.NoError(t, err)
	assert.Equal(t, "ota_1", active)

	got, err := os.ReadFile(filepath.Join(dir, "ota_1.bin"))
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// The next update targets the other slot.
	_, region, err = sink.Begin(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "ota_0", region.Label)
}

func TestFileSinkBeginTooLarge(t *testing.T) {
	sink := NewFileSink(t.TempDir(), WithSlotSize(100))

	_, _, err := sink.Begin(context.Background(), 101)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestFileSinkBeginUnwritableDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(dir, []byte("not a directory"), 0o600))

	sink := NewFileSink(dir)
	_, _, err := sink.Begin(context.Background(), 10)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestFileSinkWriteOverflow(t *testing.T) {
	ctx := context.Background()
	sink := NewFileSink(t.TempDir(), WithSlotSize(16))

	// Writes are bounded by the slot, not by the announced size.
	h, _, err := sink.Begin(ctx, 8)
	require.NoError(t, err)
	require.NoError(t, sink.Write(ctx, h, make([]byte, 12)))
	require.NoError(t, sink.Write(ctx, h, make([]byte, 4)))

	err = sink.Write(ctx, h, []byte{0x01})
	assert.ErrorIs(t, err, ErrWriteFailed)

	region, err := sink.End(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), region.Size)
}

func TestFileSinkUnknownHandle(t *testing.T) {
	ctx := context.Background()
	sink := NewFileSink(t.TempDir())

	assert.ErrorIs(t, sink.Write(ctx, 42, []byte{0x01}), ErrWriteFailed)

	_, err := sink.End(ctx, 42)
	assert.ErrorIs(t, err, ErrFinalizeFailed)
}

func TestFileSinkEndIncomplete(t *testing.T) {
	ctx := context.Background()
	sink := NewFileSink(t.TempDir())

	h, _, err := sink.Begin(ctx, 100)
	require.NoError(t, err)
	require.NoError(t, sink.Write(ctx, h, make([]byte, 40)))

	_, err = sink.End(ctx, h)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFinalizeFailed)
	assert.Contains(t, err.Error(), "wrote 40 of 100 bytes")

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "end", fe.Op)
	assert.Equal(t, "ota_1", fe.Region)
}

func TestFileSinkBeginAbandonsOpenTransaction(t *testing.T) {
	ctx := context.Background()
	sink := NewFileSink(t.TempDir())

	first, _, err := sink.Begin(ctx, 10)
	require.NoError(t, err)
	second, _, err := sink.Begin(ctx, 10)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	assert.ErrorIs(t, sink.Write(ctx, first, []byte{0x01}), ErrWriteFailed)
	assert.NoError(t, sink.Write(ctx, second, []byte{0x01}))
}

func TestFileSinkImageVerification(t *testing.T) {
	ctx := context.Background()
	image, err := espimage.Build(0x400D0000, []espimage.SegmentData{
		{LoadAddr: 0x3F400020, Data: bytes.Repeat([]byte{0x11}, 64)},
	}, true)
	require.NoError(t, err)

	t.Run("valid image commits", func(t *testing.T) {
		sink := NewFileSink(t.TempDir(), WithImageVerification(true))
		h, _, err := sink.Begin(ctx, uint32(len(image)))
		require.NoError(t, err)
		require.NoError(t, sink.Write(ctx, h, image))

		_, err = sink.End(ctx, h)
		assert.NoError(t, err)
	})

	t.Run("corrupted image is rejected", func(t *testing.T) {
		bad := append([]byte(nil), image...)
		bad[espimage.HeaderSize+espimage.SegmentHeaderSize] ^= 0xFF

		sink := NewFileSink(t.TempDir(), WithImageVerification(true))
		h, _, err := sink.Begin(ctx, uint32(len(bad)))
		require.NoError(t, err)
		require.NoError(t, sink.Write(ctx, h, bad))

		_, err = sink.End(ctx, h)
		assert.ErrorIs(t, err, ErrFinalizeFailed)
		var ce *espimage.ChecksumError
		assert.True(t, errors.As(err, &ce))
	})
}

func TestFileSinkActivateRejectsUnknownRegion(t *testing.T) {
	sink := NewFileSink(t.TempDir())

	err := sink.Activate(context.Background(), Region{Label: "factory"})
	assert.ErrorIs(t, err, ErrActivationFailed)

	err = sink.Activate(context.Background(), Region{Label: "ota_1"})
	assert.ErrorIs(t, err, ErrActivationFailed, "slot file was never written")
}

func TestFileSinkCorruptOTAData(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, OTAData), []byte("bogus"), 0o600))

	sink := NewFileSink(dir)
	_, _, err := sink.Begin(context.Background(), 10)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestFileSinkAbort(t *testing.T) {
	ctx := context.Background()
	sink := NewFileSink(t.TempDir())

	h, _, err := sink.Begin(ctx, 10)
	require.NoError(t, err)
	require.NoError(t, sink.Abort(ctx, h))

	assert.ErrorIs(t, sink.Write(ctx, h, []byte{0x01}), ErrWriteFailed)
	assert.NoError(t, sink.Abort(ctx, h), "aborting twice is a no-op")

	active, err := sink.ActiveSlot()
	require.NoError(t, err)
	assert.Equal(t, "ota_0", active, "abort never activates")
}
