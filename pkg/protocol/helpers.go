package protocol

// SetEmotion builds a set_emotion command.
func SetEmotion(emotion string) *Command {
	return &Command{Command: CmdSetEmotion, Emotion: emotion}
}

// SetServos builds a set_servos command.
func SetServos(angle1, angle2 float64) *Command {
	return &Command{Command: CmdSetServos, Angle1: &angle1, Angle2: &angle2}
}

// Stop builds a stop command.
func Stop() *Command {
	return &Command{Command: CmdStop}
}

// Shutdown builds a shutdown command.
func Shutdown() *Command {
	return &Command{Command: CmdShutdown}
}
