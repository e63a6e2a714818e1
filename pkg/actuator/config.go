package actuator

import (
	"log/slog"
	"time"
)

// MotorPins names the TB6612 inputs, as registered in periph's gpioreg
// (e.g. "GPIO12").
type MotorPins struct {
	AForward  string
	ABackward string
	BForward  string
	BBackward string
	Standby   string // optional
}

// Config selects and parameterizes the backend.
type Config struct {
	// Simulate skips hardware initialization entirely.
	Simulate bool

	Motors MotorPins

	// MaxSpeed is the safety cap applied to every motor command, in (0, 1].
	MaxSpeed float64

	// MotorHz is the motor PWM frequency.
	MotorHz int

	ServosEnabled bool
	Servo1        string
	Servo2        string

	// Settle is how long each servo is driven before its signal is released.
	Settle time.Duration

	Logger *slog.Logger
}

// DefaultSettle is the servo settle interval.
const DefaultSettle = 500 * time.Millisecond

func (c *Config) setDefaults() {
	if c.MaxSpeed <= 0 || c.MaxSpeed > 1 {
		c.MaxSpeed = 1
	}
	if c.MotorHz <= 0 {
		c.MotorHz = 100
	}
	if c.Settle <= 0 {
		c.Settle = DefaultSettle
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Open returns the GPIO backend when hardware initializes, otherwise a Noop
// carrying the failure reason. It never returns nil.
func Open(cfg Config) Driver {
	cfg.setDefaults()
	logger := cfg.Logger.With("component", "actuator")

	if cfg.Simulate {
		logger.Info("simulation forced by configuration")
		return NewNoop(ErrSimulated)
	}

	d, err := NewGPIO(cfg)
	if err != nil {
		logger.Warn("GPIO unavailable, falling back to simulation", "error", err)
		return NewNoop(err)
	}
	logger.Info("GPIO driver ready", "max_speed", cfg.MaxSpeed, "servos", cfg.ServosEnabled)
	return d
}
