package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "nimble", cfg.Device.Name)
	assert.EqualValues(t, 0xFFF0, cfg.Device.ServiceUUID)
	assert.EqualValues(t, 0xFFF1, cfg.Device.CharacteristicUUID)
	assert.Equal(t, 512, cfg.Device.MaxMessageSize)
	assert.Equal(t, "ble", cfg.Transport.Kind)
	assert.Equal(t, "logind", cfg.Reboot.Mode)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.NoError(t, Validate(cfg))
}

func TestLoadNonExistentReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Device, cfg.Device)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
device:
  name: "bench-unit"
  max_message_size: 247
transport:
  kind: serial
  port: /dev/ttyUSB0
  baud_rate: 921600
flash:
  dir: /tmp/slots
  verify_image: false
session:
  idle_timeout: 30s
  strict_size: true
reboot:
  mode: exit
  exit_code: 3
history:
  path: /tmp/history.db
logger:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bench-unit", cfg.Device.Name)
	assert.Equal(t, 247, cfg.Device.MaxMessageSize)
	assert.EqualValues(t, 0xFFF0, cfg.Device.ServiceUUID, "unset fields keep defaults")
	assert.Equal(t, "serial", cfg.Transport.Kind)
	assert.Equal(t, 921600, cfg.Transport.BaudRate)
	assert.False(t, cfg.Flash.VerifyImage)
	assert.Equal(t, 30*time.Second, cfg.Session.IdleTimeout)
	assert.True(t, cfg.Session.StrictSize)
	assert.Equal(t, 3, cfg.Reboot.ExitCode)
	assert.Equal(t, "/tmp/history.db", cfg.History.Path)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device: [unclosed"), 0600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BLEOTA_DEVICE_NAME", "env-device")
	t.Setenv("BLEOTA_TRANSPORT_KIND", "serial")
	t.Setenv("BLEOTA_TRANSPORT_PORT", "/dev/ttyACM0")
	t.Setenv("BLEOTA_TRANSPORT_BAUD_RATE", "not-a-number")
	t.Setenv("BLEOTA_SESSION_IDLE_TIMEOUT", "45s")
	t.Setenv("BLEOTA_TRACER_ENABLED", "true")
	t.Setenv("BLEOTA_TRACER_EXPORTER", "stdout")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "env-device", cfg.Device.Name)
	assert.Equal(t, "serial", cfg.Transport.Kind)
	assert.Equal(t, "/dev/ttyACM0", cfg.Transport.Port)
	assert.Equal(t, 115200, cfg.Transport.BaudRate)
	assert.Equal(t, 45*time.Second, cfg.Session.IdleTimeout)
	assert.True(t, cfg.Tracer.Enabled)
	assert.Equal(t, "stdout", cfg.Tracer.Exporter)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "empty name", mutate: func(c *Config) { c.Device.Name = "" }, wantErr: "device.name is required"},
		{name: "tiny capacity", mutate: func(c *Config) { c.Device.MaxMessageSize = 1 }, wantErr: "device.max_message_size must be >= 2"},
		{name: "unknown transport", mutate: func(c *Config) { c.Transport.Kind = "usb" }, wantErr: `transport.kind "usb"`},
		{name: "serial without port", mutate: func(c *Config) { c.Transport.Kind = "serial" }, wantErr: "transport.port is required"},
		{name: "zero slot size", mutate: func(c *Config) { c.Flash.SlotSize = 0 }, wantErr: "flash.slot_size"},
		{name: "negative timeout", mutate: func(c *Config) { c.Session.IdleTimeout = -time.Second }, wantErr: "session.idle_timeout"},
		{name: "unknown reboot mode", mutate: func(c *Config) { c.Reboot.Mode = "kexec" }, wantErr: `reboot.mode "kexec"`},
		{name: "journal log format", mutate: func(c *Config) { c.Logger.Format = "journal" }},
		{name: "unknown log format", mutate: func(c *Config) { c.Logger.Format = "xml" }, wantErr: "logger.format"},
		{name: "unknown exporter", mutate: func(c *Config) { c.Tracer.Exporter = "jaeger" }, wantErr: "tracer.exporter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Device.Name = ""
	cfg.Flash.Dir = ""

	err := Validate(cfg)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Errors, 2)
}
