// Package config loads the daemon configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/moffa90/go-bleota/flash"
	"github.com/moffa90/go-bleota/protocol"
)

// Config is the top-level daemon configuration.
type Config struct {
	Device    DeviceConfig    `yaml:"device"`
	Transport TransportConfig `yaml:"transport"`
	Flash     FlashConfig     `yaml:"flash"`
	Session   SessionConfig   `yaml:"session"`
	Reboot    RebootConfig    `yaml:"reboot"`
	History   HistoryConfig   `yaml:"history"`
	Logger    LoggerConfig    `yaml:"logger"`
	Tracer    TracerConfig    `yaml:"tracer"`
}

// DeviceConfig describes the GATT identity the device advertises.
type DeviceConfig struct {
	Name               string `yaml:"name"`
	ServiceUUID        uint16 `yaml:"service_uuid"`
	CharacteristicUUID uint16 `yaml:"characteristic_uuid"`
	MaxMessageSize     int    `yaml:"max_message_size"`
}

// TransportConfig selects how update messages reach the session.
type TransportConfig struct {
	// Kind is "ble" or "serial"
	Kind     string `yaml:"kind"`
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// FlashConfig holds settings for the file-backed slot sink.
type FlashConfig struct {
	Dir         string `yaml:"dir"`
	SlotSize    uint32 `yaml:"slot_size"`
	VerifyImage bool   `yaml:"verify_image"`
}

// SessionConfig holds OTA session settings.
type SessionConfig struct {
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	StrictSize  bool          `yaml:"strict_size"`
}

// RebootConfig selects the restart action after a successful update.
type RebootConfig struct {
	// Mode is "logind", "exit" or "none"
	Mode     string `yaml:"mode"`
	ExitCode int    `yaml:"exit_code"`
}

// HistoryConfig holds the session ledger settings. An empty path disables it.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Defaults returns a Config matching the stock receiver.
func Defaults() *Config {
	return &Config{
		Device: DeviceConfig{
			Name:               protocol.DefaultDeviceName,
			ServiceUUID:        protocol.ServiceUUID16,
			CharacteristicUUID: protocol.CharacteristicUUID16,
			MaxMessageSize:     protocol.DefaultMaxMessageSize,
		},
		Transport: TransportConfig{
			Kind:     "ble",
			BaudRate: 115200,
		},
		Flash: FlashConfig{
			Dir:         "/var/lib/bleota",
			SlotSize:    flash.DefaultSlotSize,
			VerifyImage: true,
		},
		Session: SessionConfig{
			IdleTimeout: 2 * time.Minute,
		},
		Reboot: RebootConfig{
			Mode: "logind",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file and applies env var overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps BLEOTA_* env vars to config fields.
// Unparseable numeric values are ignored.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BLEOTA_DEVICE_NAME"); v != "" {
		cfg.Device.Name = v
	}
	if v := os.Getenv("BLEOTA_TRANSPORT_KIND"); v != "" {
		cfg.Transport.Kind = v
	}
	if v := os.Getenv("BLEOTA_TRANSPORT_PORT"); v != "" {
		cfg.Transport.Port = v
	}
	if v := os.Getenv("BLEOTA_TRANSPORT_BAUD_RATE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Transport.BaudRate = n
		}
	}
	if v := os.Getenv("BLEOTA_FLASH_DIR"); v != "" {
		cfg.Flash.Dir = v
	}
	if v := os.Getenv("BLEOTA_SESSION_IDLE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Session.IdleTimeout = d
		}
	}
	if v := os.Getenv("BLEOTA_REBOOT_MODE"); v != "" {
		cfg.Reboot.Mode = v
	}
	if v := os.Getenv("BLEOTA_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}
	if v := os.Getenv("BLEOTA_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("BLEOTA_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("BLEOTA_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
}
