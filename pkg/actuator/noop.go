package actuator

// Noop is the simulated backend. Every operation succeeds without effect.
type Noop struct {
	// Reason records why hardware initialization failed, if it did.
	Reason error
}

// NewNoop returns a simulated driver.
func NewNoop(reason error) *Noop {
	return &Noop{Reason: reason}
}

func (*Noop) DriveMotors(speedA, speedB float64)    {}
func (*Noop) StopMotors()                           {}
func (*Noop) SetServoAngles(angle1, angle2 float64) {}
func (*Noop) DetachServos()                         {}

// Mode always reports ModeSimulated.
func (*Noop) Mode() Mode { return ModeSimulated }

// HasServos is true: simulated servos accept every command.
func (*Noop) HasServos() bool { return true }

// Close does nothing.
func (*Noop) Close() error { return nil }
