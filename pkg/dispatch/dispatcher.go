// Package dispatch connects the line protocol to the scheduler: it reads
// commands from an input stream and writes status events to an output stream.
package dispatch

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/teslashibe/go-molty/pkg/protocol"
	"github.com/teslashibe/go-molty/pkg/scheduler"
)

// MaxLineSize bounds a single command line.
const MaxLineSize = 64 * 1024

// Controller is the part of the scheduler the dispatcher drives.
type Controller interface {
	SetEmotion(tag string) error
	SetServos(angle1, angle2 float64) error
	Stop() error
	Shutdown() error
}

// Dispatcher runs the command loop.
type Dispatcher struct {
	ctl     Controller
	emitter scheduler.Emitter
	log     *slog.Logger
}

// New creates a dispatcher. Protocol errors are reported through emitter.
func New(ctl Controller, emitter scheduler.Emitter, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{ctl: ctl, emitter: emitter, log: logger.With("component", "dispatch")}
}

// ErrLineTooLong reports an inbound line longer than MaxLineSize.
var ErrLineTooLong = fmt.Errorf("%w: line too long", protocol.ErrMalformed)

// inbound is one line read from the command stream. Oversized lines are
// discarded and only flagged.
type inbound struct {
	line    []byte
	tooLong bool
}

// Run reads commands from r one line at a time and applies them in order.
// It returns nil at end of input, the Shutdown result after a shutdown
// command, and ctx.Err() when ctx is cancelled first. Run never calls
// Shutdown on end of input; the caller owns that.
func (d *Dispatcher) Run(ctx context.Context, r io.Reader) error {
	lines := make(chan inbound)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		br := bufio.NewReaderSize(r, 4096)
		for {
			in, err := readLine(br)
			if len(in.line) > 0 || in.tooLong {
				select {
				case lines <- in:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = nil
				}
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return fmt.Errorf("read commands: %w", err)
				}
				d.log.Info("command stream closed")
				return nil
			}
			if in.tooLong {
				d.log.Warn("malformed command", "error", ErrLineTooLong)
				d.emitter.Emit(protocol.NewEvent(protocol.StatusError, ErrLineTooLong.Error()))
				continue
			}
			if done, err := d.Handle(in.line); done {
				return err
			}
		}
	}
}

// readLine returns the next line without its terminator. A line longer than
// MaxLineSize is consumed to its end and returned empty with tooLong set.
func readLine(br *bufio.Reader) (inbound, error) {
	var in inbound
	for {
		chunk, err := br.ReadSlice('\n')
		if !in.tooLong {
			if len(in.line)+len(chunk) > MaxLineSize+1 {
				in = inbound{tooLong: true}
			} else {
				in.line = append(in.line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		in.line = bytes.TrimRight(in.line, "\r\n")
		return in, err
	}
}

// Handle applies one command line. It reports whether the line was a
// shutdown command, after which no more lines should be read, and returns
// the shutdown error if any.
func (d *Dispatcher) Handle(line []byte) (done bool, err error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return false, nil
	}

	cmd, err := protocol.ParseCommand(line)
	if err != nil {
		d.log.Warn("malformed command", "error", err)
		d.emitter.Emit(protocol.NewEvent(protocol.StatusError, err.Error()))
		return false, nil
	}

	d.log.Debug("command", "command", cmd.Command)

	// Transition errors were already reported as status events.
	switch cmd.Command {
	case protocol.CmdSetEmotion:
		_ = d.ctl.SetEmotion(cmd.Emotion)
	case protocol.CmdSetServos:
		_ = d.ctl.SetServos(cmd.Angles())
	case protocol.CmdStop:
		_ = d.ctl.Stop()
	case protocol.CmdShutdown:
		return true, d.ctl.Shutdown()
	default:
		d.emitter.Emit(protocol.NewEvent(protocol.StatusError, fmt.Sprintf("unknown command: %s", cmd.Command)))
	}
	return false, nil
}
