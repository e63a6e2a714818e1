package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-molty/pkg/actuator"
	"github.com/teslashibe/go-molty/pkg/emotions"
)

// TaskState is the lifecycle of an animation task.
type TaskState int32

const (
	// TaskRunning means the program is executing.
	TaskRunning TaskState = iota

	// TaskCompleted means the program ran to its end.
	TaskCompleted

	// TaskCancelled means the program observed its cancellation signal.
	TaskCancelled

	// TaskFailed means the program faulted. It counts as ended.
	TaskFailed
)

// String returns a human-readable state name.
func (s TaskState) String() string {
	switch s {
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	case TaskCancelled:
		return "cancelled"
	case TaskFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func stateFor(o emotions.Outcome) TaskState {
	switch o {
	case emotions.Cancelled:
		return TaskCancelled
	case emotions.Failed:
		return TaskFailed
	default:
		return TaskCompleted
	}
}

// Task is one execution of an emotion's program. The Controller owns it;
// callers only ever see copies of its fields through Snapshot.
type Task struct {
	ID      string
	Emotion emotions.Emotion
	Started time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	state  atomic.Int32
	driver *taskDriver
}

func newTask(e emotions.Emotion, d actuator.Driver) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	return &Task{
		ID:      uuid.NewString(),
		Emotion: e,
		Started: time.Now(),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		driver:  &taskDriver{Driver: d},
	}
}

// Cancel signals the task. Safe to call more than once.
func (t *Task) Cancel() {
	t.cancel()
}

// Wait blocks until the task ends or timeout elapses. Reports whether it ended.
func (t *Task) Wait(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-t.done:
		return true
	case <-timer.C:
		return false
	}
}

// Done is closed when the task has ended.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// State returns the current lifecycle state.
func (t *Task) State() TaskState {
	return TaskState(t.state.Load())
}

func (t *Task) finish(s TaskState) {
	t.state.Store(int32(s))
}

// taskDriver is the task's view of the driver. Once revoked, calls from a
// task that outlived its join window are dropped instead of reaching the
// hardware.
type taskDriver struct {
	actuator.Driver
	revoked atomic.Bool
}

func (d *taskDriver) revoke() { d.revoked.Store(true) }

func (d *taskDriver) DriveMotors(speedA, speedB float64) {
	if !d.revoked.Load() {
		d.Driver.DriveMotors(speedA, speedB)
	}
}

func (d *taskDriver) StopMotors() {
	if !d.revoked.Load() {
		d.Driver.StopMotors()
	}
}

func (d *taskDriver) SetServoAngles(angle1, angle2 float64) {
	if !d.revoked.Load() {
		d.Driver.SetServoAngles(angle1, angle2)
	}
}

func (d *taskDriver) DetachServos() {
	if !d.revoked.Load() {
		d.Driver.DetachServos()
	}
}

// Close is owned by the Controller, never by a task.
func (d *taskDriver) Close() error { return nil }
