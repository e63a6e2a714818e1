package scheduler

import (
	"log/slog"
	"time"

	"github.com/teslashibe/go-molty/pkg/emotions"
)

// Fixed join bounds.
const (
	DefaultJoinTimeout     = 1 * time.Second
	DefaultShutdownTimeout = 2 * time.Second
)

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithLibrary replaces the built-in program library.
func WithLibrary(lib *emotions.Library) Option {
	return func(c *Controller) {
		c.library = lib
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.log = logger
	}
}

// WithJoinTimeout bounds the wait for a cancelled task in SetEmotion and Stop.
func WithJoinTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.joinTimeout = d
	}
}

// WithShutdownTimeout bounds the wait for the running task in Shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.shutdownTimeout = d
	}
}

// WithPollInterval sets how often holds check for cancellation.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		c.poll = d
	}
}
