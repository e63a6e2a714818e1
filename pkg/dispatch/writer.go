package dispatch

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"syscall"

	"github.com/teslashibe/go-molty/pkg/protocol"
)

// Writer emits status events as JSON lines. Writes are serialized so lines
// from task goroutines never interleave.
type Writer struct {
	mu  sync.Mutex
	w   io.Writer
	log *slog.Logger
}

// NewWriter creates a status writer on w.
func NewWriter(w io.Writer, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{w: w, log: logger.With("component", "status")}
}

// Emit writes e followed by a newline. A reader that went away is not an
// error: the controller keeps running and only the event is lost.
func (w *Writer) Emit(e protocol.Event) {
	data, err := e.Bytes()
	if err != nil {
		w.log.Error("encode status", "error", err)
		return
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.w.Write(data); err != nil {
		if gone(err) {
			w.log.Debug("status reader gone", "status", e.Status)
			return
		}
		w.log.Warn("write status", "status", e.Status, "error", err)
	}
}

func gone(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed)
}
