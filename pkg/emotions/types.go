// Package emotions holds Molty's motion programs.
//
// Each Emotion maps to a Program: a sequence of steps, each an actuator
// command plus a hold duration. Programs are data, embedded from
// programs.yaml, and are consumed lazily through Program.Steps so looping
// programs never materialize. Runner executes a program against an
// actuator.Driver with cooperative cancellation.
package emotions

import (
	"fmt"
	"iter"
	"time"

	"github.com/teslashibe/go-molty/pkg/actuator"
)

// Emotion is a motion-program selector exposed at the command boundary.
type Emotion string

// The closed set of emotions.
const (
	Idle        Emotion = "idle"
	Listening   Emotion = "listening"
	Thinking    Emotion = "thinking"
	Excited     Emotion = "excited"
	Watching    Emotion = "watching"
	Winning     Emotion = "winning"
	Losing      Emotion = "losing"
	Celebrating Emotion = "celebrating"
	Dying       Emotion = "dying"
	Error       Emotion = "error"
)

// All lists every emotion in declaration order.
var All = []Emotion{Idle, Listening, Thinking, Excited, Watching, Winning, Losing, Celebrating, Dying, Error}

// Valid reports whether e belongs to the closed set.
func (e Emotion) Valid() bool {
	for _, known := range All {
		if e == known {
			return true
		}
	}
	return false
}

// Terminal reports whether starting e engages the terminal latch.
func (e Emotion) Terminal() bool {
	return e == Dying
}

// Parse converts a wire tag to an Emotion.
func Parse(tag string) (Emotion, error) {
	e := Emotion(tag)
	if !e.Valid() {
		return "", fmt.Errorf("%w: %s", ErrUnknownEmotion, tag)
	}
	return e, nil
}

// Step is one actuator command followed by a hold.
// Within a step the order is: stop or drive, servos, detach, hold.
type Step struct {
	Drive  *actuator.Speeds // nil leaves the motors untouched
	Stop   bool
	Servos *actuator.Angles // nil leaves the servos untouched
	Detach bool
	Hold   time.Duration
}

// Program is the motion program for one emotion.
type Program struct {
	Emotion     Emotion
	Description string

	// Loop repeats the steps until cancelled.
	Loop bool

	// Uninterruptible programs ignore cancellation and always run to completion.
	Uninterruptible bool

	steps []Step
}

// Steps returns the program as a lazy sequence. Looping programs yield forever.
func (p *Program) Steps() iter.Seq[Step] {
	return func(yield func(Step) bool) {
		for {
			for _, s := range p.steps {
				if !yield(s) {
					return
				}
			}
			if !p.Loop {
				return
			}
		}
	}
}

// Len returns the number of steps in one pass.
func (p *Program) Len() int {
	return len(p.steps)
}

// Cycle returns the summed hold time of one pass, excluding blocking driver calls.
func (p *Program) Cycle() time.Duration {
	var d time.Duration
	for _, s := range p.steps {
		d += s.Hold
	}
	return d
}

// Outcome is how a program execution ended.
type Outcome int

const (
	// Completed means every step ran.
	Completed Outcome = iota

	// Cancelled means the cancellation signal was observed.
	Cancelled

	// Failed means a step faulted.
	Failed
)

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
