package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Load builds the configuration: defaults, then the YAML file at path (if
// path is empty, RFKD_CONFIG is used; a missing file is only an error when
// it was named explicitly), then environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("RFKD_CONFIG")
		explicit = path != ""
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			if explicit || !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile merges the YAML file over cfg.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.UnmarshalStrict(data, cfg)
}

// applyEnvOverrides applies RFKD_* variables.
func applyEnvOverrides(cfg *Config) {
	cfg.Killswitch.ForceSync = GetEnvBool("RFKD_FORCE_SYNC", cfg.Killswitch.ForceSync)
	cfg.Killswitch.Persist = GetEnvBool("RFKD_PERSIST", cfg.Killswitch.Persist)
	cfg.Killswitch.StrictFlightMode = GetEnvBool("RFKD_STRICT_FLIGHT_MODE", cfg.Killswitch.StrictFlightMode)

	cfg.Kernel.ControlDevice = GetEnvVar("RFKD_CONTROL_DEVICE", cfg.Kernel.ControlDevice)
	cfg.Kernel.SysfsRoot = GetEnvVar("RFKD_SYSFS_ROOT", cfg.Kernel.SysfsRoot)

	cfg.Modem.Enabled = GetEnvBool("RFKD_MODEM_ENABLED", cfg.Modem.Enabled)
	cfg.Modem.Bus = GetEnvVar("RFKD_MODEM_BUS", cfg.Modem.Bus)

	cfg.Driver.Enabled = GetEnvBool("RFKD_DRIVER_ENABLED", cfg.Driver.Enabled)
	cfg.Driver.Module = GetEnvVar("RFKD_DRIVER_MODULE", cfg.Driver.Module)
	cfg.Driver.Path = GetEnvVar("RFKD_DRIVER_PATH", cfg.Driver.Path)
	cfg.Driver.StartDelay = GetEnvDuration("RFKD_DRIVER_START_DELAY", cfg.Driver.StartDelay)

	cfg.State.File = GetEnvVar("RFKD_STATE_FILE", cfg.State.File)
	cfg.Audit.Dir = GetEnvVar("RFKD_AUDIT_DIR", cfg.Audit.Dir)

	cfg.API.Enabled = GetEnvBool("RFKD_API_ENABLED", cfg.API.Enabled)
	cfg.API.Listen = GetEnvVar("RFKD_ADDR", cfg.API.Listen)

	cfg.Telemetry.HeartbeatInterval = GetEnvDuration("RFKD_HEARTBEAT_INTERVAL", cfg.Telemetry.HeartbeatInterval)
	cfg.Telemetry.EventBufferSize = GetEnvInt("RFKD_EVENT_BUFFER_SIZE", cfg.Telemetry.EventBufferSize)

	cfg.Log.File = GetEnvVar("RFKD_LOG_FILE", cfg.Log.File)
	cfg.Log.Debug = GetEnvBool("RFKD_DEBUG", cfg.Log.Debug)
}

// GetEnvVar gets an environment variable with a default value.
func GetEnvVar(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvBool gets a boolean environment variable with a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvDuration gets a duration environment variable with a default value.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GetEnvInt gets an integer environment variable with a default value.
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
