package emotions

import "errors"

var (
	// ErrUnknownEmotion is returned for tags outside the closed set.
	ErrUnknownEmotion = errors.New("unknown emotion")

	// ErrNotLoaded is returned when the library has no program for a valid emotion.
	ErrNotLoaded = errors.New("emotion program not loaded")

	// ErrInvalidProgram is returned when a program file is malformed.
	ErrInvalidProgram = errors.New("invalid emotion program")

	// ErrProgramFault wraps a panic recovered while running a program.
	ErrProgramFault = errors.New("emotion program fault")
)
