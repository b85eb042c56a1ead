package flash

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/moffa90/go-bleota/espimage"
)

// MemorySink is an in-memory Sink with the same slot semantics as FileSink.
// It is safe for concurrent use.
type MemorySink struct {
	mu       sync.Mutex
	capacity uint32
	verify   bool
	slots    [SlotCount][]byte
	boot     int
	next     Handle
	open     Handle
	openSlot int
	reserved uint32
}

// NewMemorySink creates a MemorySink with the given slot capacity.
// A zero capacity uses DefaultSlotSize.
func NewMemorySink(capacity uint32, verifyImage bool) *MemorySink {
	if capacity == 0 {
		capacity = DefaultSlotSize
	}
	return &MemorySink{capacity: capacity, verify: verifyImage}
}

// Begin opens a transaction on the inactive slot, abandoning any open one.
func (m *MemorySink) Begin(ctx context.Context, size uint32) (Handle, Region, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot := (m.boot + 1) % SlotCount
	label := SlotLabel(slot)
	if size > m.capacity {
		return 0, Region{}, &Error{
			Op:     "begin",
			Kind:   ErrStorageUnavailable,
			Region: label,
			Err:    fmt.Errorf("image size %d exceeds slot capacity %d", size, m.capacity),
		}
	}

	m.next++
	m.open = m.next
	m.openSlot = slot
	m.reserved = size
	m.slots[slot] = make([]byte, 0, size)

	return m.open, Region{Label: label}, nil
}

// Write appends p to the open slot.
func (m *MemorySink) Write(ctx context.Context, h Handle, p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h == 0 || h != m.open {
		return &Error{Op: "write", Kind: ErrWriteFailed, Err: fmt.Errorf("unknown handle %d", h)}
	}

	slot := m.slots[m.openSlot]
	if uint64(len(slot))+uint64(len(p)) > uint64(m.capacity) {
		return &Error{Op: "write", Kind: ErrWriteFailed, Region: SlotLabel(m.openSlot), Err: fmt.Errorf("slot capacity %d exceeded", m.capacity)}
	}
	m.slots[m.openSlot] = append(slot, p...)
	return nil
}

// End validates and commits the open slot.
func (m *MemorySink) End(ctx context.Context, h Handle) (Region, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h == 0 || h != m.open {
		return Region{}, &Error{Op: "end", Kind: ErrFinalizeFailed, Err: fmt.Errorf("unknown handle %d", h)}
	}
	m.open = 0

	label := SlotLabel(m.openSlot)
	data := m.slots[m.openSlot]
	if uint64(len(data)) < uint64(m.reserved) {
		return Region{}, &Error{
			Op:     "end",
			Kind:   ErrFinalizeFailed,
			Region: label,
			Err:    fmt.Errorf("incomplete image: wrote %d of %d bytes", len(data), m.reserved),
		}
	}
	if m.verify {
		if err := espimage.Verify(bytes.NewReader(data)); err != nil {
			return Region{}, &Error{Op: "end", Kind: ErrFinalizeFailed, Region: label, Err: err}
		}
	}

	sum := sha256.Sum256(data)
	return Region{Label: label, Size: uint64(len(data)), SHA256: sum[:]}, nil
}

// Activate makes the region the boot slot.
func (m *MemorySink) Activate(ctx context.Context, r Region) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := slotIndex(r.Label)
	if idx < 0 {
		return &Error{Op: "activate", Kind: ErrActivationFailed, Region: r.Label, Err: fmt.Errorf("not an update slot")}
	}
	m.boot = idx
	return nil
}

// BootSlot returns the label of the slot marked bootable.
func (m *MemorySink) BootSlot() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return SlotLabel(m.boot)
}

// Slot returns a copy of the slot contents.
func (m *MemorySink) Slot(label string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := slotIndex(label)
	if idx < 0 {
		return nil
	}
	return append([]byte(nil), m.slots[idx]...)
}

// Abort drops the open transaction. The slot keeps whatever was written.
func (m *MemorySink) Abort(ctx context.Context, h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h != 0 && h == m.open {
		m.open = 0
	}
	return nil
}
