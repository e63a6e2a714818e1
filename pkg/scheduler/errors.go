package scheduler

import "errors"

var (
	// ErrTerminal is returned for transitions refused because dying has started.
	ErrTerminal = errors.New("scheduler: dying in progress")

	// ErrClosed is returned for transitions after Shutdown.
	ErrClosed = errors.New("scheduler: controller shut down")

	// ErrNoServos is returned by SetServos when the servo subsystem is absent.
	ErrNoServos = errors.New("scheduler: servo subsystem unavailable")
)
