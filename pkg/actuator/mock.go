package actuator

import (
	"sync"
	"time"
)

// Call is one recorded driver invocation.
type Call struct {
	Op   string
	Args []float64
	At   time.Time
}

// Operation names recorded by Mock.
const (
	OpDrive  = "drive"
	OpStop   = "stop"
	OpServos = "servos"
	OpDetach = "detach"
	OpClose  = "close"
)

// Mock is a recording Driver for tests.
type Mock struct {
	mu    sync.Mutex
	calls []Call

	speeds   Speeds
	angles   Angles
	detached bool
	closed   bool

	// Settle, when set, makes SetServoAngles block for Settle per servo.
	Settle time.Duration

	// NoServos makes HasServos report false.
	NoServos bool

	// OnCall runs before each operation is recorded. Tests use it to inject
	// faults (a panic here surfaces inside the calling task).
	OnCall func(op string)

	// CloseErr is returned by Close.
	CloseErr error
}

// NewMock creates a recording driver with no settle delay.
func NewMock() *Mock {
	return &Mock{detached: true}
}

func (m *Mock) record(op string, args ...float64) {
	m.mu.Lock()
	hook := m.OnCall
	m.mu.Unlock()
	if hook != nil {
		hook(op)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: op, Args: args, At: time.Now()})
}

func (m *Mock) DriveMotors(speedA, speedB float64) {
	m.record(OpDrive, speedA, speedB)
	m.mu.Lock()
	m.speeds = Speeds{A: speedA, B: speedB}
	m.mu.Unlock()
}

func (m *Mock) StopMotors() {
	m.record(OpStop)
	m.mu.Lock()
	m.speeds = Speeds{}
	m.mu.Unlock()
}

func (m *Mock) SetServoAngles(angle1, angle2 float64) {
	m.record(OpServos, angle1, angle2)
	if m.Settle > 0 {
		time.Sleep(2 * m.Settle)
	}
	m.mu.Lock()
	m.angles = Angles{Servo1: angle1, Servo2: angle2}
	m.detached = true
	m.mu.Unlock()
}

func (m *Mock) DetachServos() {
	m.record(OpDetach)
	m.mu.Lock()
	m.detached = true
	m.mu.Unlock()
}

func (m *Mock) Mode() Mode { return ModeSimulated }

func (m *Mock) HasServos() bool { return !m.NoServos }

func (m *Mock) Close() error {
	m.record(OpClose)
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return m.CloseErr
}

// Calls returns a copy of the recorded calls.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of recorded calls with the given op.
func (m *Mock) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// LastCall returns the most recent call, or false when none was made.
func (m *Mock) LastCall() (Call, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return Call{}, false
	}
	return m.calls[len(m.calls)-1], true
}

// Reset forgets recorded calls but keeps the actuator state.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Speeds returns the last commanded motor speeds.
func (m *Mock) Speeds() Speeds {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speeds
}

// Angles returns the last commanded servo angles.
func (m *Mock) Angles() Angles {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.angles
}

// Detached reports whether the servo signal is currently released.
func (m *Mock) Detached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detached
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
