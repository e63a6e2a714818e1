package actuator

// Legal ranges for actuator commands.
const (
	MinSpeed = -1.0
	MaxSpeed = 1.0
	MinAngle = 0.0
	MaxAngle = 180.0

	// NeutralAngle is the servo center, used when set_servos omits an angle.
	NeutralAngle = 90.0
)

// clamp restricts v to the range [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Speeds is a normalized motor command. Sign is direction, 0 is stop.
type Speeds struct {
	A, B float64
}

// Clamp returns s with both channels clamped to [-1, 1].
func (s Speeds) Clamp() Speeds {
	return Speeds{
		A: clamp(s.A, MinSpeed, MaxSpeed),
		B: clamp(s.B, MinSpeed, MaxSpeed),
	}
}

// Angles is a servo command in degrees.
type Angles struct {
	Servo1, Servo2 float64
}

// Clamp returns a with both angles clamped to [0, 180].
func (a Angles) Clamp() Angles {
	return Angles{
		Servo1: clamp(a.Servo1, MinAngle, MaxAngle),
		Servo2: clamp(a.Servo2, MinAngle, MaxAngle),
	}
}

// Drive forwards s, clamped, to d.
func Drive(d MotorDriver, s Speeds) {
	s = s.Clamp()
	d.DriveMotors(s.A, s.B)
}

// Pose forwards a, clamped, to d.
func Pose(d ServoDriver, a Angles) {
	a = a.Clamp()
	d.SetServoAngles(a.Servo1, a.Servo2)
}

// ServoDutyPercent converts an angle to the servo duty cycle in percent at
// ServoHz. 0° is 2%, 180° is 12%.
func ServoDutyPercent(angle float64) float64 {
	return 2 + clamp(angle, MinAngle, MaxAngle)/18
}
