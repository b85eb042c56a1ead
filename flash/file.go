package flash

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/moffa90/go-bleota/espimage"
)

// Slot layout of a FileSink directory.
const (
	// OTAData is the file naming the active slot
	OTAData = "otadata"

	// SlotCount is the number of update slots
	SlotCount = 2

	// DefaultSlotSize is the default slot capacity (1.5 MiB, the default ESP32 OTA partition size)
	DefaultSlotSize = 0x180000
)

// SlotLabel returns the region label of slot i.
func SlotLabel(i int) string {
	return fmt.Sprintf("ota_%d", i)
}

// FileSink stores images in slot files inside a directory.
//
// Begin always targets the slot that is not currently active. FileSink is safe
// for concurrent use, but only one transaction is open at a time: Begin
// abandons any transaction that is still open.
type FileSink struct {
	dir      string
	slotSize uint32
	verify   bool

	mu     sync.Mutex
	next   Handle
	active map[Handle]*fileTxn
}

type fileTxn struct {
	label    string
	f        *os.File
	reserved uint32
	written  uint64
	sum      hash.Hash
}

// FileSinkOption configures a FileSink.
type FileSinkOption func(*FileSink)

// WithSlotSize sets the capacity of each slot in bytes.
func WithSlotSize(size uint32) FileSinkOption {
	return func(s *FileSink) {
		if size > 0 {
			s.slotSize = size
		}
	}
}

// WithImageVerification enables ESP application image validation in End.
func WithImageVerification(verify bool) FileSinkOption {
	return func(s *FileSink) {
		s.verify = verify
	}
}

// NewFileSink creates a FileSink rooted at dir. The directory is created on first Begin.
func NewFileSink(dir string, opts ...FileSinkOption) *FileSink {
	s := &FileSink{
		dir:      dir,
		slotSize: DefaultSlotSize,
		active:   make(map[Handle]*fileTxn),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ActiveSlot returns the label of the slot marked bootable.
// A directory without otadata boots from ota_0.
func (s *FileSink) ActiveSlot() (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, OTAData))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return SlotLabel(0), nil
		}
		return "", err
	}

	label := strings.TrimSpace(string(data))
	if slotIndex(label) < 0 {
		return "", fmt.Errorf("otadata names unknown slot %q", label)
	}
	return label, nil
}

// SlotPath returns the file path of the slot with the given label.
func (s *FileSink) SlotPath(label string) string {
	return filepath.Join(s.dir, label+".bin")
}

// Begin opens a transaction on the inactive slot.
func (s *FileSink) Begin(ctx context.Context, size uint32) (Handle, Region, error) {
	if err := ctx.Err(); err != nil {
		return 0, Region{}, &Error{Op: "begin", Kind: ErrStorageUnavailable, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.abandonLocked()

	current, err := s.ActiveSlot()
	if err != nil {
		return 0, Region{}, &Error{Op: "begin", Kind: ErrStorageUnavailable, Err: err}
	}
	label := SlotLabel((slotIndex(current) + 1) % SlotCount)

	if size > s.slotSize {
		return 0, Region{}, &Error{
			Op:     "begin",
			Kind:   ErrStorageUnavailable,
			Region: label,
			Err:    fmt.Errorf("image size %d exceeds slot capacity %d", size, s.slotSize),
		}
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return 0, Region{}, &Error{Op: "begin", Kind: ErrStorageUnavailable, Region: label, Err: err}
	}

	f, err := os.OpenFile(s.SlotPath(label), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, Region{}, &Error{Op: "begin", Kind: ErrStorageUnavailable, Region: label, Err: err}
	}

	s.next++
	h := s.next
	s.active[h] = &fileTxn{
		label:    label,
		f:        f,
		reserved: size,
		sum:      sha256.New(),
	}

	return h, Region{Label: label}, nil
}

// Write appends p to the slot file.
func (s *FileSink) Write(ctx context.Context, h Handle, p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.active[h]
	if !ok {
		return &Error{Op: "write", Kind: ErrWriteFailed, Err: fmt.Errorf("unknown handle %d", h)}
	}
	if err := ctx.Err(); err != nil {
		return &Error{Op: "write", Kind: ErrWriteFailed, Region: txn.label, Err: err}
	}

	if txn.written+uint64(len(p)) > uint64(s.slotSize) {
		return &Error{
			Op:     "write",
			Kind:   ErrWriteFailed,
			Region: txn.label,
			Err:    fmt.Errorf("write of %d bytes at offset %d overflows slot capacity %d", len(p), txn.written, s.slotSize),
		}
	}

	if _, err := txn.f.Write(p); err != nil {
		return &Error{Op: "write", Kind: ErrWriteFailed, Region: txn.label, Err: err}
	}
	txn.sum.Write(p)
	txn.written += uint64(len(p))

	return nil
}

// End closes the slot file and validates it.
// The transaction is released whether or not validation succeeds.
func (s *FileSink) End(ctx context.Context, h Handle) (Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.active[h]
	if !ok {
		return Region{}, &Error{Op: "end", Kind: ErrFinalizeFailed, Err: fmt.Errorf("unknown handle %d", h)}
	}
	delete(s.active, h)

	syncErr := txn.f.Sync()
	closeErr := txn.f.Close()
	if err := errors.Join(syncErr, closeErr); err != nil {
		return Region{}, &Error{Op: "end", Kind: ErrFinalizeFailed, Region: txn.label, Err: err}
	}

	if txn.written < uint64(txn.reserved) {
		return Region{}, &Error{
			Op:     "end",
			Kind:   ErrFinalizeFailed,
			Region: txn.label,
			Err:    fmt.Errorf("incomplete image: wrote %d of %d bytes", txn.written, txn.reserved),
		}
	}

	if s.verify {
		if _, err := espimage.ParseFile(s.SlotPath(txn.label)); err != nil {
			return Region{}, &Error{Op: "end", Kind: ErrFinalizeFailed, Region: txn.label, Err: err}
		}
	}

	return Region{
		Label:  txn.label,
		Size:   txn.written,
		SHA256: txn.sum.Sum(nil),
	}, nil
}

// Activate points otadata at the region. The update is atomic: a crash leaves
// either the old or the new pointer in place.
func (s *FileSink) Activate(ctx context.Context, r Region) error {
	if slotIndex(r.Label) < 0 {
		return &Error{Op: "activate", Kind: ErrActivationFailed, Region: r.Label, Err: fmt.Errorf("not an update slot")}
	}
	if _, err := os.Stat(s.SlotPath(r.Label)); err != nil {
		return &Error{Op: "activate", Kind: ErrActivationFailed, Region: r.Label, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := filepath.Join(s.dir, OTAData+".tmp")
	if err := os.WriteFile(tmp, []byte(r.Label+"\n"), 0o644); err != nil {
		return &Error{Op: "activate", Kind: ErrActivationFailed, Region: r.Label, Err: err}
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, OTAData)); err != nil {
		return &Error{Op: "activate", Kind: ErrActivationFailed, Region: r.Label, Err: err}
	}

	return nil
}

// abandonLocked closes every open transaction without committing it.
func (s *FileSink) abandonLocked() {
	for h, txn := range s.active {
		_ = txn.f.Close()
		delete(s.active, h)
	}
}

// slotIndex returns the index of a slot label, or -1.
func slotIndex(label string) int {
	for i := 0; i < SlotCount; i++ {
		if label == SlotLabel(i) {
			return i
		}
	}
	return -1
}

// Abort closes the slot file of an open transaction without validating it.
func (s *FileSink) Abort(ctx context.Context, h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txn, ok := s.active[h]
	if !ok {
		return nil
	}
	delete(s.active, h)
	return txn.f.Close()
}
