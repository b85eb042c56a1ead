package config

import (
	"fmt"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// listing every problem found.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateDevice(cfg, ve)
	validateTransport(cfg, ve)
	validateFlash(cfg, ve)
	validateSession(cfg, ve)
	validateReboot(cfg, ve)
	validateObservability(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateDevice(cfg *Config, ve *ValidationError) {
	if cfg.Device.Name == "" {
		ve.Add("device.name is required")
	}
	if cfg.Device.ServiceUUID == 0 {
		ve.Add("device.service_uuid must be non-zero")
	}
	if cfg.Device.CharacteristicUUID == 0 {
		ve.Add("device.characteristic_uuid must be non-zero")
	}
	if cfg.Device.MaxMessageSize < 2 {
		ve.Add("device.max_message_size must be >= 2")
	}
	if cfg.Device.MaxMessageSize > 0xFFFF {
		ve.Add("device.max_message_size must be <= 65535")
	}
}

func validateTransport(cfg *Config, ve *ValidationError) {
	switch cfg.Transport.Kind {
	case "ble":
	case "serial":
		if cfg.Transport.Port == "" {
			ve.Add("transport.port is required for serial transport")
		}
		if cfg.Transport.BaudRate <= 0 {
			ve.Add("transport.baud_rate must be > 0")
		}
	default:
		ve.Add("transport.kind %q is not one of ble, serial", cfg.Transport.Kind)
	}
}

func validateFlash(cfg *Config, ve *ValidationError) {
	if cfg.Flash.Dir == "" {
		ve.Add("flash.dir is required")
	}
	if cfg.Flash.SlotSize == 0 {
		ve.Add("flash.slot_size must be > 0")
	}
}

func validateSession(cfg *Config, ve *ValidationError) {
	if cfg.Session.IdleTimeout < 0 {
		ve.Add("session.idle_timeout must be >= 0")
	}
}

func validateReboot(cfg *Config, ve *ValidationError) {
	switch cfg.Reboot.Mode {
	case "logind", "exit", "none":
	default:
		ve.Add("reboot.mode %q is not one of logind, exit, none", cfg.Reboot.Mode)
	}
}

func validateObservability(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Format) {
	case "", "text", "json", "journal":
	default:
		ve.Add("logger.format must be text, json or journal, got %q", cfg.Logger.Format)
	}
	switch cfg.Tracer.Exporter {
	case "", "noop", "stdout", "stderr":
	default:
		ve.Add("tracer.exporter must be noop, stdout or stderr, got %q", cfg.Tracer.Exporter)
	}
}
