package actuator

import "errors"

var (
	// ErrNoHost is returned when periph.io cannot initialize the host.
	ErrNoHost = errors.New("actuator: GPIO host unavailable")

	// ErrPinNotFound is returned when a configured pin does not exist.
	ErrPinNotFound = errors.New("actuator: pin not found")

	// ErrSimulated is the reason recorded when simulation is forced by config.
	ErrSimulated = errors.New("actuator: simulation requested")
)
