package uploader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/moffa90/go-bleota/protocol"
)

// attWriteOverhead is the ATT opcode plus attribute handle of a write.
const attWriteOverhead = 3

// ErrDeviceNotFound is returned when no advertiser matches during a scan.
var ErrDeviceNotFound = errors.New("device not found")

// BLEWriter writes update messages to the device's update characteristic.
type BLEWriter struct {
	mu              sync.Mutex
	device          bluetooth.Device
	char            bluetooth.DeviceCharacteristic
	withoutResponse bool
	mtu             int
}

// BLETarget describes the device to connect to.
type BLETarget struct {
	// Name matches any advertiser whose local name contains it
	Name string

	// ServiceUUID and CharacteristicUUID are the 16-bit GATT UUIDs
	ServiceUUID        uint16
	CharacteristicUUID uint16

	// ScanTimeout bounds the device search. Zero means 10 seconds.
	ScanTimeout time.Duration

	// WithoutResponse uses write commands instead of write requests
	WithoutResponse bool
}

// DialBLE scans for target, connects and resolves the update characteristic.
func DialBLE(ctx context.Context, adapter *bluetooth.Adapter, target BLETarget) (*BLEWriter, error) {
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable adapter: %w", err)
	}

	timeout := target.ScanTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var (
		found   bluetooth.ScanResult
		matched bool
	)
	stop := time.AfterFunc(timeout, func() { adapter.StopScan() })
	defer stop.Stop()
	cancelStop := context.AfterFunc(ctx, func() { adapter.StopScan() })
	defer cancelStop()

	err := adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
		if matched || !strings.Contains(result.LocalName(), target.Name) {
			return
		}
		found = result
		matched = true
		a.StopScan()
	})
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !matched {
		return nil, fmt.Errorf("%w: no advertiser named %q within %s", ErrDeviceNotFound, target.Name, timeout)
	}

	device, err := adapter.Connect(found.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", found.Address.String(), err)
	}

	serviceUUID := bluetooth.New16BitUUID(target.ServiceUUID)
	services, err := device.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil || len(services) == 0 {
		device.Disconnect()
		return nil, fmt.Errorf("discover update service: %w", errors.Join(ErrDeviceNotFound, err))
	}

	charUUID := bluetooth.New16BitUUID(target.CharacteristicUUID)
	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{charUUID})
	if err != nil || len(chars) == 0 {
		device.Disconnect()
		return nil, fmt.Errorf("discover update characteristic: %w", errors.Join(ErrDeviceNotFound, err))
	}

	w := &BLEWriter{
		device:          device,
		char:            chars[0],
		withoutResponse: target.WithoutResponse,
	}
	if mtu, err := chars[0].GetMTU(); err == nil {
		w.mtu = int(mtu)
	}
	return w, nil
}

// MaxChunkSize is the largest CHUNK payload that fits one ATT write at the
// negotiated MTU. It returns 0 when the MTU is unknown.
func (w *BLEWriter) MaxChunkSize() int {
	return ChunkSizeForMTU(w.mtu)
}

// ChunkSizeForMTU returns the largest CHUNK payload that fits a single write
// at the given ATT MTU, capped by the device receive buffer. It returns 0
// for an MTU too small to carry any image bytes.
func ChunkSizeForMTU(mtu int) int {
	size := mtu - attWriteOverhead - protocol.OpcodeSize
	if size <= 0 {
		return 0
	}
	return min(size, protocol.DefaultMaxMessageSize-protocol.OpcodeSize)
}

// WriteMessage writes one message to the update characteristic.
func (w *BLEWriter) WriteMessage(ctx context.Context, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	var err error
	if w.withoutResponse {
		_, err = w.char.WriteWithoutResponse(msg)
	} else {
		_, err = w.char.Write(msg)
	}
	return err
}

// Close disconnects from the device.
func (w *BLEWriter) Close() error {
	return w.device.Disconnect()
}
