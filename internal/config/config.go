// Package config loads the lcdpanel configuration from YAML, with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gloworm-vision/lcdpanel/hardware"
	"github.com/gloworm-vision/lcdpanel/hardware/gpio"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Store    StoreConfig     `yaml:"store"`
	Hardware hardware.Config `yaml:"hardware"`
	Serial   SerialConfig    `yaml:"serial"`
	Logging  LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains HTTP command channel settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// StoreConfig selects the persistent store.
type StoreConfig struct {
	// Engine is "bbolt" or "badger".
	Engine string `yaml:"engine"`
	// Path is a file for bbolt and a directory for badger.
	Path string `yaml:"path"`
}

// SerialConfig contains the serial console settings. An empty Device
// disables the console.
type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings, used when Output
// is "file".
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Load reads the configuration from path. Missing fields keep their
// defaults, and environment variables override the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	return Parse(data)
}

// Parse is Load for an in-memory document.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	pins := hardware.DefaultPins()

	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Store: StoreConfig{
			Engine: "bbolt",
			Path:   "lcdpanel.db",
		},
		Hardware: hardware.Config{
			Panel: &hardware.PanelConfig{
				Backend:      hardware.BackendMmap,
				SoC:          "bcm2711",
				PigpioAddr:   "localhost:8888",
				PWMFrequency: 30000,
				Pins:         &pins,
			},
		},
		Serial: SerialConfig{Baud: 115200},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
			File: FileLoggingConfig{
				Path:       "lcdpanel.log",
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     28,
			},
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LCDPANEL_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("LCDPANEL_STORE_ENGINE"); v != "" {
		cfg.Store.Engine = v
	}
	if v := os.Getenv("LCDPANEL_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("LCDPANEL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LCDPANEL_GPIO_BACKEND"); v != "" && cfg.Hardware.Panel != nil {
		cfg.Hardware.Panel.Backend = v
	}
	if v := os.Getenv("LCDPANEL_SERIAL_DEVICE"); v != "" {
		cfg.Serial.Device = v
	}
}

// Validate checks the configuration for values that can't work.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	switch c.Store.Engine {
	case "bbolt", "badger":
	default:
		return fmt.Errorf("store.engine %q must be bbolt or badger", c.Store.Engine)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}

	if p := c.Hardware.Panel; p != nil {
		switch p.Backend {
		case "", hardware.BackendMmap, hardware.BackendPigpio:
		default:
			return fmt.Errorf("hardware.panel.backend %q must be mmap or pigpio", p.Backend)
		}

		if _, ok := gpio.SoCBase(p.SoC); p.SoC != "" && !ok {
			return fmt.Errorf("hardware.panel.soc %q must be bcm2711 or bcm2837", p.SoC)
		}

		if p.Backend == hardware.BackendPigpio && p.PigpioAddr == "" {
			return fmt.Errorf("hardware.panel.pigpio_addr is required for the pigpio backend")
		}
	}

	if c.Serial.Device != "" && c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive")
	}

	switch strings.ToLower(c.Logging.Output) {
	case "stdout", "stderr":
	case "file":
		if c.Logging.File.Path == "" {
			return fmt.Errorf("logging.file.path is required for file output")
		}
	default:
		return fmt.Errorf("logging.output %q must be stdout, stderr or file", c.Logging.Output)
	}

	return nil
}
