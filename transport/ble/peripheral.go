package ble

import (
	"context"
	"fmt"

	"tinygo.org/x/bluetooth"

	"github.com/moffa90/go-bleota/ota"
	"github.com/moffa90/go-bleota/protocol"
	"github.com/moffa90/go-bleota/transport"
)

// Config holds the GATT identity of the peripheral.
type Config struct {
	// DeviceName is the advertised local name
	DeviceName string

	// ServiceUUID is the 16-bit primary service UUID
	ServiceUUID uint16

	// CharacteristicUUID is the 16-bit update characteristic UUID
	CharacteristicUUID uint16

	// Logger is used for connection events (optional)
	Logger ota.Logger
}

func defaultConfig() Config {
	return Config{
		DeviceName:         protocol.DefaultDeviceName,
		ServiceUUID:        protocol.ServiceUUID16,
		CharacteristicUUID: protocol.CharacteristicUUID16,
	}
}

// Option configures a Peripheral.
type Option func(*Config)

// WithDeviceName sets the advertised name.
func WithDeviceName(name string) Option {
	return func(c *Config) {
		c.DeviceName = name
	}
}

// WithUUIDs sets the 16-bit service and characteristic UUIDs.
func WithUUIDs(service, characteristic uint16) Option {
	return func(c *Config) {
		c.ServiceUUID = service
		c.CharacteristicUUID = characteristic
	}
}

// WithLogger sets a logger for connection events.
func WithLogger(logger ota.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// Peripheral advertises the update service and forwards GATT events to a
// Handler.
type Peripheral struct {
	adapter *bluetooth.Adapter
	config  Config
	handler *Handler
	char    bluetooth.Characteristic
}

// NewPeripheral creates a Peripheral on adapter for session.
func NewPeripheral(adapter *bluetooth.Adapter, session transport.Dispatcher, opts ...Option) *Peripheral {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Peripheral{
		adapter: adapter,
		config:  cfg,
		handler: NewHandler(session, cfg.Logger),
	}
}

// Run enables the adapter, registers the service and advertises until ctx
// is cancelled.
func (p *Peripheral) Run(ctx context.Context) error {
	if err := p.adapter.Enable(); err != nil {
		return fmt.Errorf("enable adapter: %w", err)
	}

	p.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		p.handler.OnConnect(ctx, device.Address.String(), connected)
	})

	serviceUUID := bluetooth.New16BitUUID(p.config.ServiceUUID)
	err := p.adapter.AddService(&bluetooth.Service{
		UUID: serviceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &p.char,
				UUID:   bluetooth.New16BitUUID(p.config.CharacteristicUUID),
				Value:  p.handler.ReadValue(),
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicWritePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					p.handler.OnWrite(ctx, offset, value)
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("add service: %w", err)
	}

	adv := p.adapter.DefaultAdvertisement()
	err = adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    p.config.DeviceName,
		ServiceUUIDs: []bluetooth.UUID{serviceUUID},
	})
	if err != nil {
		return fmt.Errorf("configure advertisement: %w", err)
	}
	if err := adv.Start(); err != nil {
		return fmt.Errorf("start advertising: %w", err)
	}

	p.handler.logInfo("advertising",
		"name", p.config.DeviceName,
		"service", fmt.Sprintf("0x%04X", p.config.ServiceUUID),
		"characteristic", fmt.Sprintf("0x%04X", p.config.CharacteristicUUID),
	)

	<-ctx.Done()

	if err := adv.Stop(); err != nil {
		p.handler.logWarn("stop advertising failed", "error", err)
	}
	return ctx.Err()
}
