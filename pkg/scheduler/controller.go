// Package scheduler runs Molty's emotion programs.
//
// A Controller owns the single live animation task. Every transition
// (SetEmotion, SetServos, Stop, Shutdown) runs under one mutex, so they are
// totally ordered; the mutex is held while the previous task is cancelled and
// joined, but released once the next task is launched. Starting the dying
// program sets a one-way terminal latch: from then on every transition is
// refused with a blocked event and the dying program itself ignores
// cancellation until it finishes.
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-molty/pkg/actuator"
	"github.com/teslashibe/go-molty/pkg/emotions"
	"github.com/teslashibe/go-molty/pkg/protocol"
)

// Emitter receives status events. Implementations must be safe for
// concurrent use: tasks report faults from their own goroutine.
type Emitter interface {
	Emit(e protocol.Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(e protocol.Event)

// Emit calls f(e).
func (f EmitterFunc) Emit(e protocol.Event) { f(e) }

// Controller is the process-wide controller state.
type Controller struct {
	driver  actuator.Driver
	library *emotions.Library
	emitter Emitter
	log     *slog.Logger

	joinTimeout     time.Duration
	shutdownTimeout time.Duration
	poll            time.Duration

	// mu serializes transitions. current is only replaced under mu; it is an
	// atomic pointer so Snapshot never waits out a join.
	mu       sync.Mutex
	current  atomic.Pointer[Task]
	terminal atomic.Bool
	closed   atomic.Bool

	live  atomic.Int32
	ready sync.Once
}

// New creates the controller. Without WithLibrary the built-in programs are used.
func New(driver actuator.Driver, emitter Emitter, opts ...Option) (*Controller, error) {
	c := &Controller{
		driver:          driver,
		emitter:         emitter,
		joinTimeout:     DefaultJoinTimeout,
		shutdownTimeout: DefaultShutdownTimeout,
		poll:            emotions.DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	c.log = c.log.With("component", "scheduler")

	if c.library == nil {
		lib, err := emotions.Builtin()
		if err != nil {
			return nil, err
		}
		c.library = lib
	}
	return c, nil
}

// Library returns the program library in use.
func (c *Controller) Library() *emotions.Library {
	return c.library
}

func (c *Controller) emit(status protocol.Status, message string) {
	c.emitter.Emit(protocol.NewEvent(status, message))
}

// Announce emits the ready event. Only the first call has an effect.
func (c *Controller) Announce() {
	c.ready.Do(func() {
		c.log.Info("ready", "mode", c.driver.Mode())
		c.emit(protocol.StatusReady, actuator.Describe(c.driver))
	})
}

// SetEmotion replaces the running program with the one for tag.
func (c *Controller) SetEmotion(tag string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		c.emit(protocol.StatusError, "controller shut down, ignoring "+tag)
		return ErrClosed
	}
	if c.terminal.Load() {
		c.emit(protocol.StatusBlocked, "dying in progress, ignoring "+tag)
		return ErrTerminal
	}

	c.cancelCurrent(c.joinTimeout)

	program, err := c.library.Resolve(tag)
	if err != nil {
		c.log.Warn("rejected emotion", "emotion", tag, "error", err)
		c.emit(protocol.StatusError, "unknown emotion: "+tag)
		c.driver.StopMotors()
		return err
	}

	// Latch before the guard is released so no queued call can preempt dying.
	if program.Emotion.Terminal() {
		c.terminal.Store(true)
		c.log.Warn("terminal latch engaged")
	}

	task := c.launch(program)
	c.log.Info("emotion changed", "emotion", program.Emotion, "task", task.ID)
	c.emit(protocol.StatusEmotionChanged, string(program.Emotion))
	return nil
}

// SetServos moves the claws directly.
func (c *Controller) SetServos(angle1, angle2 float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		c.emit(protocol.StatusError, "controller shut down, ignoring set_servos")
		return ErrClosed
	}
	if c.terminal.Load() {
		c.emit(protocol.StatusBlocked, "dying in progress, ignoring set_servos")
		return ErrTerminal
	}
	if !c.driver.HasServos() {
		c.emit(protocol.StatusError, "servo subsystem unavailable")
		return ErrNoServos
	}

	actuator.Pose(c.driver, actuator.Angles{Servo1: angle1, Servo2: angle2})
	c.emit(protocol.StatusServosSet, fmt.Sprintf("%g,%g", angle1, angle2))
	return nil
}

// Stop cancels the running program and stops the motors. While dying it
// changes nothing and reports blocked.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		c.emit(protocol.StatusError, "controller shut down, ignoring stop")
		return ErrClosed
	}
	if c.terminal.Load() {
		c.emit(protocol.StatusBlocked, "dying in progress, ignoring stop")
		return ErrTerminal
	}

	c.cancelCurrent(c.joinTimeout)
	c.driver.StopMotors()
	c.emit(protocol.StatusStopped, "motors stopped")
	return nil
}

// Shutdown cancels everything, leaves the actuators stopped and detached and
// releases the driver. It ignores the terminal latch. Later transitions are
// refused; repeated calls are no-ops.
func (c *Controller) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Swap(true) {
		return nil
	}

	if t := c.current.Swap(nil); t != nil {
		t.Cancel()
		if !t.Wait(c.shutdownTimeout) {
			c.log.Warn("task did not stop before shutdown, revoking", "emotion", t.Emotion, "task", t.ID)
		}
		t.driver.revoke()
	}

	c.driver.StopMotors()
	c.driver.DetachServos()
	err := c.driver.Close()
	if err != nil {
		c.log.Error("driver close failed", "error", err)
	}

	c.emit(protocol.StatusShutdown, "motor controller shutting down")
	if err != nil {
		return fmt.Errorf("release driver: %w", err)
	}
	return nil
}

// cancelCurrent signals the running task and waits up to timeout for it.
// On timeout the task's driver view is revoked and the caller proceeds.
// Must be called with mu held.
func (c *Controller) cancelCurrent(timeout time.Duration) {
	t := c.current.Swap(nil)
	if t == nil {
		return
	}
	t.Cancel()
	if !t.Wait(timeout) {
		c.log.Warn("task did not observe cancellation in time, proceeding",
			"emotion", t.Emotion, "task", t.ID, "timeout", timeout)
		t.driver.revoke()
	}
}

// launch starts p in its own goroutine. Must be called with mu held.
func (c *Controller) launch(p *emotions.Program) *Task {
	t := newTask(p.Emotion, c.driver)
	c.current.Store(t)
	c.live.Add(1)
	go c.run(t, p)
	return t
}

// run is the task boundary: faults end the task, are reported and stop the motors.
func (c *Controller) run(t *Task, p *emotions.Program) {
	logger := c.log.With("emotion", t.Emotion, "task", t.ID)
	defer close(t.done)
	defer c.live.Add(-1)
	defer func() {
		if rec := recover(); rec != nil {
			t.finish(TaskFailed)
			c.fault(logger, t, fmt.Errorf("%v", rec))
		}
	}()

	logger.Debug("task started")
	runner := emotions.NewRunner(t.driver, c.poll, logger)
	out, err := runner.Run(t.ctx, p)
	t.finish(stateFor(out))
	if err != nil {
		c.fault(logger, t, err)
		return
	}
	logger.Debug("task ended", "state", t.State(), "elapsed", time.Since(t.Started))
}

func (c *Controller) fault(logger *slog.Logger, t *Task, err error) {
	logger.Error("animation failed", "error", err)
	c.emit(protocol.StatusError, fmt.Sprintf("animation %s failed: %v", t.Emotion, err))
	c.safeStop(logger, t)
}

// safeStop stops the motors through the task's view; a driver that panics
// again is logged, never propagated.
func (c *Controller) safeStop(logger *slog.Logger, t *Task) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("safety stop failed", "error", rec)
		}
	}()
	t.driver.StopMotors()
}

// Terminal reports whether the dying latch is engaged.
func (c *Controller) Terminal() bool {
	return c.terminal.Load()
}

// Closed reports whether Shutdown has run.
func (c *Controller) Closed() bool {
	return c.closed.Load()
}

// LiveTasks returns how many task goroutines have not yet returned.
func (c *Controller) LiveTasks() int {
	return int(c.live.Load())
}

// Current returns the task installed by the last successful SetEmotion, or
// nil. The task may already have completed.
func (c *Controller) Current() *Task {
	return c.current.Load()
}

// Snapshot is a point-in-time view of the controller.
type Snapshot struct {
	Emotion  string `json:"emotion,omitempty"`
	TaskID   string `json:"task_id,omitempty"`
	State    string `json:"state"`
	Terminal bool   `json:"terminal"`
	Closed   bool   `json:"closed"`
	Mode     string `json:"mode"`
}

// Snapshot returns the current state without waiting on transitions.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		State:    "idle",
		Terminal: c.terminal.Load(),
		Closed:   c.closed.Load(),
		Mode:     c.driver.Mode().String(),
	}
	if t := c.current.Load(); t != nil {
		s.Emotion = string(t.Emotion)
		s.TaskID = t.ID
		s.State = t.State().String()
	}
	return s
}
