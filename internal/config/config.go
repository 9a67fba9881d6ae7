package config

import (
	"time"
)

// Config is the complete daemon configuration.
type Config struct {
	Killswitch KillswitchConfig `yaml:"killswitch"`
	Kernel     KernelConfig     `yaml:"kernel"`
	Modem      ModemConfig      `yaml:"modem"`
	Driver     DriverConfig     `yaml:"driver"`
	State      StateConfig      `yaml:"state"`
	Audit      AuditConfig      `yaml:"audit"`
	API        APIConfig        `yaml:"api"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Log        LogConfig        `yaml:"log"`
}

// KillswitchConfig holds the arbitration policy flags.
type KillswitchConfig struct {
	// ForceSync mirrors device changes into software block immediately
	// instead of only persisting them.
	ForceSync bool `yaml:"forceSync"`
	// Persist lets new and changed devices inherit the persisted state.
	Persist bool `yaml:"persist"`
	// StrictFlightMode keeps WWAN state tied to flight mode only.
	StrictFlightMode bool `yaml:"strictFlightMode"`
	// KeyControl and MasterKey are reported to clients; hot keys are handled
	// elsewhere.
	KeyControl bool `yaml:"keyControl"`
	MasterKey  bool `yaml:"masterKey"`
}

// KernelConfig locates the kernel rfkill interfaces.
type KernelConfig struct {
	ControlDevice string `yaml:"controlDevice"`
	SysfsRoot     string `yaml:"sysfsRoot"`
}

// ModemConfig enables the telephony modem backend.
type ModemConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Bus        string `yaml:"bus"`
	Service    string `yaml:"service"`
	FirstIndex uint32 `yaml:"firstIndex"`
}

// DriverConfig enables the vendor WLAN driver backend.
type DriverConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Module     string        `yaml:"module"`
	Path       string        `yaml:"path"`
	Params     string        `yaml:"params"`
	ModuleRoot string        `yaml:"moduleRoot"`
	StartDelay time.Duration `yaml:"startDelay"`
	Index      uint32        `yaml:"index"`
	Name       string        `yaml:"name"`
}

// StateConfig locates the persisted killswitch state.
type StateConfig struct {
	File string `yaml:"file"`
}

// AuditConfig controls the audit trail.
type AuditConfig struct {
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// APIConfig controls the control API listener.
type APIConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Listen       string        `yaml:"listen"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// TelemetryConfig controls the event stream.
type TelemetryConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval"`
	HeartbeatJitter   time.Duration `yaml:"heartbeatJitter"`
	EventBufferSize   int           `yaml:"eventBufferSize"`
}

// LogConfig controls daemon logging.
type LogConfig struct {
	File       string `yaml:"file"`
	Debug      bool   `yaml:"debug"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Killswitch: KillswitchConfig{
			ForceSync:        false,
			Persist:          true,
			StrictFlightMode: true,
			KeyControl:       true,
			MasterKey:        false,
		},
		Kernel: KernelConfig{
			ControlDevice: "/dev/rfkill",
			SysfsRoot:     "/sys/class/rfkill",
		},
		Modem: ModemConfig{
			Enabled:    true,
			Bus:        "system",
			Service:    "org.ofono",
			FirstIndex: 100,
		},
		Driver: DriverConfig{
			Enabled:    false,
			ModuleRoot: "/sys/module",
			StartDelay: 2 * time.Second,
			Index:      200,
			Name:       "hybris_wifi",
		},
		State: StateConfig{
			File: "/var/lib/rfkd/saved-states.yaml",
		},
		Audit: AuditConfig{
			Dir:        "/var/log/rfkd",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		API: APIConfig{
			Enabled:      true,
			Listen:       "127.0.0.1:8087",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // event stream holds the response open
			IdleTimeout:  60 * time.Second,
		},
		Telemetry: TelemetryConfig{
			HeartbeatInterval: 15 * time.Second,
			HeartbeatJitter:   2 * time.Second,
			EventBufferSize:   64,
		},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}
