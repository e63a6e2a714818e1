// Package protocol defines the line-delimited JSON messages exchanged with the
// kiosk: inbound commands on stdin, outbound status events on stdout.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CommandName identifies an inbound command.
type CommandName string

const (
	CmdSetEmotion CommandName = "set_emotion" // start an emotion program
	CmdSetServos  CommandName = "set_servos"  // direct claw control
	CmdStop       CommandName = "stop"        // stop the current program and motors
	CmdShutdown   CommandName = "shutdown"    // stop everything and exit
)

// Known reports whether n is a supported command.
func (n CommandName) Known() bool {
	switch n {
	case CmdSetEmotion, CmdSetServos, CmdStop, CmdShutdown:
		return true
	}
	return false
}

// Command is one inbound line.
type Command struct {
	Command CommandName `json:"command"`
	Emotion string      `json:"emotion,omitempty"`
	Angle1  *float64    `json:"angle1,omitempty"`
	Angle2  *float64    `json:"angle2,omitempty"`
}

// DefaultAngle is used for omitted set_servos angles.
const DefaultAngle = 90.0

// Angles returns the requested servo angles, defaulting omitted ones.
func (c *Command) Angles() (angle1, angle2 float64) {
	angle1, angle2 = DefaultAngle, DefaultAngle
	if c.Angle1 != nil {
		angle1 = *c.Angle1
	}
	if c.Angle2 != nil {
		angle2 = *c.Angle2
	}
	return angle1, angle2
}

// Bytes returns the JSON-encoded command without a trailing newline.
func (c *Command) Bytes() ([]byte, error) {
	return json.Marshal(c)
}

// ErrMalformed is returned for lines that are not a JSON command object.
var ErrMalformed = errors.New("invalid JSON")

// ParseCommand parses one inbound line.
func ParseCommand(line []byte) (*Command, error) {
	var cmd Command
	if err := json.Unmarshal(line, &cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &cmd, nil
}

// Status identifies an outbound status event.
type Status string

const (
	StatusReady          Status = "ready"
	StatusEmotionChanged Status = "emotion_changed"
	StatusServosSet      Status = "servos_set"
	StatusBlocked        Status = "blocked"
	StatusStopped        Status = "stopped"
	StatusError          Status = "error"
	StatusShutdown       Status = "shutdown"
)

// TypeStatus is the only outbound event type.
const TypeStatus = "status"

// Event is one outbound line.
type Event struct {
	Type    string `json:"type"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// NewEvent creates a status event.
func NewEvent(status Status, message string) Event {
	return Event{Type: TypeStatus, Status: status, Message: message}
}

// Bytes returns the JSON-encoded event without a trailing newline.
func (e Event) Bytes() ([]byte, error) {
	return json.Marshal(e)
}

// ParseEvent parses one outbound line. Used by clients of the controller.
func ParseEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("failed to parse event: %w", err)
	}
	return e, nil
}
