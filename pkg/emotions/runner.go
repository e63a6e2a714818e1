package emotions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-molty/pkg/actuator"
)

// DefaultPollInterval bounds how long a hold can go without observing cancellation.
const DefaultPollInterval = 50 * time.Millisecond

// Runner executes programs against a driver.
type Runner struct {
	driver actuator.Driver
	poll   time.Duration
	log    *slog.Logger
}

// NewRunner creates a runner. A non-positive poll uses DefaultPollInterval.
func NewRunner(driver actuator.Driver, poll time.Duration, logger *slog.Logger) *Runner {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{driver: driver, poll: poll, log: logger}
}

// Run executes p until it completes or ctx is cancelled. Cancellation is
// checked before every hold and at each poll during a hold; blocking servo
// moves finish first. Uninterruptible programs never observe ctx.
//
// Run always ends with StopMotors and DetachServos. A panic raised by a step
// is recovered and returned as ErrProgramFault with outcome Failed.
func (r *Runner) Run(ctx context.Context, p *Program) (out Outcome, err error) {
	defer r.finale()
	defer func() {
		if rec := recover(); rec != nil {
			out, err = Failed, fmt.Errorf("%w: %s: %v", ErrProgramFault, p.Emotion, rec)
		}
	}()

	for step := range p.Steps() {
		if !p.Uninterruptible && ctx.Err() != nil {
			return Cancelled, nil
		}
		r.apply(step)

		if p.Uninterruptible {
			time.Sleep(step.Hold)
			continue
		}
		if r.hold(ctx, step.Hold) {
			return Cancelled, nil
		}
	}
	return Completed, nil
}

// apply issues the step's driver calls.
func (r *Runner) apply(s Step) {
	switch {
	case s.Stop:
		r.driver.StopMotors()
	case s.Drive != nil:
		actuator.Drive(r.driver, *s.Drive)
	}
	if s.Servos != nil {
		actuator.Pose(r.driver, *s.Servos)
	}
	if s.Detach {
		r.driver.DetachServos()
	}
}

// hold waits for d in poll-sized slices. Returns true when cancelled.
func (r *Runner) hold(ctx context.Context, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		if ctx.Err() != nil {
			return true
		}
		left := time.Until(deadline)
		if left <= 0 {
			return false
		}
		slice := min(left, r.poll)

		timer := time.NewTimer(slice)
		select {
		case <-ctx.Done():
			timer.Stop()
			return true
		case <-timer.C:
		}
	}
}

// finale leaves the actuators quiescent.
func (r *Runner) finale() {
	r.driver.StopMotors()
	r.driver.DetachServos()
}
