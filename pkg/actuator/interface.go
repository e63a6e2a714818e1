// Package actuator drives Molty's two differential-drive motors and two claw
// servos.
//
// The package follows the same small-interface split as the rest of the
// repository: consumers that only move the base depend on MotorDriver, the
// claw code on ServoDriver, and the process composition root on Driver.
//
// Two backends exist. GPIODriver talks to the TB6612 motor driver and the
// servos through periph.io; Noop accepts every call and does nothing. Open
// picks one at construction time, never per call.
package actuator

// MotorDriver controls the two drive channels.
type MotorDriver interface {
	// DriveMotors sets both channels. Positive is forward, negative is
	// backward, exactly 0 stops the channel. Best-effort, never fails.
	DriveMotors(speedA, speedB float64)

	// StopMotors stops both channels. Idempotent.
	StopMotors()
}

// ServoDriver controls the two claw servos.
type ServoDriver interface {
	// SetServoAngles moves both servos, one after the other, blocking for the
	// settle interval per servo. Not cancellable.
	SetServoAngles(angle1, angle2 float64)

	// DetachServos releases the PWM signal on both servos without motion.
	DetachServos()
}

// Driver is the composite interface owned by the process.
type Driver interface {
	MotorDriver
	ServoDriver

	// Mode reports whether calls reach hardware.
	Mode() Mode

	// HasServos reports whether the servo subsystem accepts commands.
	HasServos() bool

	// Close stops everything and releases the pins.
	Close() error
}

// Mode identifies the backend selected by Open.
type Mode int

const (
	// ModeLive means commands reach GPIO.
	ModeLive Mode = iota

	// ModeSimulated means every call is a no-op.
	ModeSimulated
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeLive:
		return "live"
	case ModeSimulated:
		return "simulated"
	default:
		return "unknown"
	}
}

// Describe returns the message used for the one-time ready notice.
func Describe(d Driver) string {
	if d.Mode() == ModeLive {
		return "GPIO active"
	}
	return "GPIO unavailable - simulation mode"
}

// Ensure both backends implement Driver
var (
	_ Driver = (*GPIODriver)(nil)
	_ Driver = (*Noop)(nil)
	_ Driver = (*Mock)(nil)
)
