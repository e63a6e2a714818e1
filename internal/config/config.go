// Package config loads go-molty configuration from defaults, an optional TOML
// file, environment variables and command line flags, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/teslashibe/go-molty/pkg/actuator"
)

// Default configuration, matching the TB6612 wiring on the Pi.
const (
	DefaultMotorAForward  = "GPIO1"
	DefaultMotorABackward = "GPIO12"
	DefaultMotorBForward  = "GPIO13"
	DefaultMotorBBackward = "GPIO6"
	DefaultStandby        = "GPIO26"
	DefaultServo1         = "GPIO5"
	DefaultServo2         = "GPIO21"

	DefaultMaxSpeed = 1.0
	DefaultMotorHz  = 100
	DefaultSettleMS = 500
	DefaultLogLevel = "info"
)

// Config is the top-level TOML structure.
type Config struct {
	// Simulate forces the no-op actuator driver even when GPIO is present.
	Simulate bool `toml:"simulate"`

	// Programs is an optional YAML file overriding built-in motion programs.
	Programs string `toml:"programs"`

	Motors MotorConfig `toml:"motors"`
	Servos ServoConfig `toml:"servos"`
	HTTP   HTTPConfig  `toml:"http"`
	Log    LogConfig   `toml:"log"`
}

// MotorConfig describes the two drive channels.
type MotorConfig struct {
	AForward  string  `toml:"a_forward"`
	ABackward string  `toml:"a_backward"`
	BForward  string  `toml:"b_forward"`
	BBackward string  `toml:"b_backward"`
	Standby   string  `toml:"standby"`
	MaxSpeed  float64 `toml:"max_speed"` // safety cap, (0, 1]
	PWMHz     int     `toml:"pwm_hz"`
}

// ServoConfig describes the optional claw servos.
type ServoConfig struct {
	Enabled  bool   `toml:"enabled"`
	Pin1     string `toml:"pin1"`
	Pin2     string `toml:"pin2"`
	SettleMS int    `toml:"settle_ms"`
}

// HTTPConfig configures the optional control surface. Empty Addr disables it.
type HTTPConfig struct {
	Addr string `toml:"addr"`
}

// LogConfig configures internal/log.
type LogConfig struct {
	Level string `toml:"level"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		Motors: MotorConfig{
			AForward:  DefaultMotorAForward,
			ABackward: DefaultMotorABackward,
			BForward:  DefaultMotorBForward,
			BBackward: DefaultMotorBBackward,
			Standby:   DefaultStandby,
			MaxSpeed:  DefaultMaxSpeed,
			PWMHz:     DefaultMotorHz,
		},
		Servos: ServoConfig{
			Enabled:  true,
			Pin1:     DefaultServo1,
			Pin2:     DefaultServo2,
			SettleMS: DefaultSettleMS,
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

// DefaultPath returns ~/.config/molty/config.toml (or the XDG equivalent).
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(dir, "molty", "config.toml"), nil
}

// Load returns DefaultConfig overlaid with the TOML file at path.
// An empty path falls back to MOLTY_CONFIG, then DefaultPath; a missing
// default file is not an error, a missing explicit file is.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := true
	if path == "" {
		path = os.Getenv("MOLTY_CONFIG")
	}
	if path == "" {
		explicit = false
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnv applies environment overrides. Call after Load, before flags.
func (c *Config) LoadEnv() {
	if v := os.Getenv("MOLTY_SIMULATE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Simulate = b
		}
	}
	if v := os.Getenv("MOLTY_MAX_SPEED"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Motors.MaxSpeed = f
		}
	}
	if v := os.Getenv("MOLTY_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("MOLTY_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("MOLTY_PROGRAMS"); v != "" {
		c.Programs = v
	}
}

// Validate checks ranges and required pins.
func (c *Config) Validate() error {
	if c.Motors.MaxSpeed <= 0 || c.Motors.MaxSpeed > 1 {
		return &ConfigError{Field: "motors.max_speed", Message: fmt.Sprintf("max_speed must be in (0, 1], got %v", c.Motors.MaxSpeed)}
	}
	if c.Motors.PWMHz <= 0 {
		return &ConfigError{Field: "motors.pwm_hz", Message: "pwm_hz must be positive"}
	}
	for _, p := range []struct{ field, pin string }{
		{"motors.a_forward", c.Motors.AForward},
		{"motors.a_backward", c.Motors.ABackward},
		{"motors.b_forward", c.Motors.BForward},
		{"motors.b_backward", c.Motors.BBackward},
	} {
		if p.pin == "" {
			return &ConfigError{Field: p.field, Message: p.field + " pin is required"}
		}
	}
	if c.Servos.Enabled {
		if c.Servos.Pin1 == "" || c.Servos.Pin2 == "" {
			return &ConfigError{Field: "servos.pin1", Message: "both servo pins are required when servos are enabled"}
		}
		if c.Servos.SettleMS < 0 {
			return &ConfigError{Field: "servos.settle_ms", Message: "settle_ms must not be negative"}
		}
	}
	return nil
}

// Actuator converts the hardware sections into an actuator.Config.
func (c *Config) Actuator() actuator.Config {
	return actuator.Config{
		Simulate: c.Simulate,
		Motors: actuator.MotorPins{
			AForward:  c.Motors.AForward,
			ABackward: c.Motors.ABackward,
			BForward:  c.Motors.BForward,
			BBackward: c.Motors.BBackward,
			Standby:   c.Motors.Standby,
		},
		MaxSpeed:      c.Motors.MaxSpeed,
		MotorHz:       c.Motors.PWMHz,
		ServosEnabled: c.Servos.Enabled,
		Servo1:        c.Servos.Pin1,
		Servo2:        c.Servos.Pin2,
		Settle:        time.Duration(c.Servos.SettleMS) * time.Millisecond,
	}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
