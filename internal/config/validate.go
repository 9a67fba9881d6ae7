package config

import (
	"fmt"
)

// Validate checks a configuration for settings the daemon cannot run with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := validateKernel(cfg); err != nil {
		return fmt.Errorf("kernel: %w", err)
	}
	if err := validateBackends(cfg); err != nil {
		return fmt.Errorf("backends: %w", err)
	}
	if err := validateTelemetry(cfg); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	if cfg.State.File == "" && cfg.Killswitch.Persist {
		return fmt.Errorf("state: file must be set when persist is enabled")
	}
	if cfg.API.Enabled && cfg.API.Listen == "" {
		return fmt.Errorf("api: listen address must be set")
	}
	return nil
}

func validateKernel(cfg *Config) error {
	if cfg.Kernel.ControlDevice == "" {
		return fmt.Errorf("control device path must be set")
	}
	if cfg.Kernel.SysfsRoot == "" {
		return fmt.Errorf("sysfs root must be set")
	}
	return nil
}

func validateBackends(cfg *Config) error {
	d := cfg.Driver
	if d.Enabled {
		if d.Module == "" {
			return fmt.Errorf("driver module name must be set")
		}
		if d.Path == "" {
			return fmt.Errorf("driver module path must be set")
		}
		if d.StartDelay < 0 {
			return fmt.Errorf("driver start delay must be non-negative, got %v", d.StartDelay)
		}
	}
	if cfg.Modem.Enabled && d.Enabled && d.Index >= cfg.Modem.FirstIndex && d.Index < cfg.Modem.FirstIndex+maxModems {
		return fmt.Errorf("driver index %d overlaps modem indexes from %d", d.Index, cfg.Modem.FirstIndex)
	}
	if cfg.Modem.Enabled && cfg.Modem.FirstIndex < minSynthesizedIndex {
		return fmt.Errorf("modem first index %d may collide with kernel indexes, use %d or more",
			cfg.Modem.FirstIndex, minSynthesizedIndex)
	}
	return nil
}

func validateTelemetry(cfg *Config) error {
	t := cfg.Telemetry
	if t.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %v", t.HeartbeatInterval)
	}
	if t.HeartbeatJitter < 0 || t.HeartbeatJitter > t.HeartbeatInterval/2 {
		return fmt.Errorf("heartbeat jitter %v must be within 50%% of interval %v", t.HeartbeatJitter, t.HeartbeatInterval)
	}
	if t.EventBufferSize <= 0 {
		return fmt.Errorf("event buffer size must be positive, got %d", t.EventBufferSize)
	}
	return nil
}

// Synthesized indexes live above the kernel's, which count up from zero.
const (
	minSynthesizedIndex = 64
	maxModems           = 16
)
