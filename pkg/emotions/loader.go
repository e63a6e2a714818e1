package emotions

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-molty/pkg/actuator"
)

//go:embed programs.yaml
var builtinPrograms []byte

// programSpec is the YAML form of a Program.
type programSpec struct {
	Description     string     `yaml:"description"`
	Loop            bool       `yaml:"loop"`
	Uninterruptible bool       `yaml:"uninterruptible"`
	Steps           []stepSpec `yaml:"steps"`
}

// stepSpec is the YAML form of a Step.
type stepSpec struct {
	Drive  []float64     `yaml:"drive"`
	Stop   bool          `yaml:"stop"`
	Servos []float64     `yaml:"servos"`
	Detach bool          `yaml:"detach"`
	Hold   time.Duration `yaml:"hold"`
}

// ParsePrograms decodes a program document. Keys must be known emotions.
func ParsePrograms(data []byte) ([]*Program, error) {
	var raw map[string]programSpec
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProgram, err)
	}

	programs := make([]*Program, 0, len(raw))
	for tag, spec := range raw {
		e, err := Parse(tag)
		if err != nil {
			return nil, err
		}
		p, err := compile(e, spec)
		if err != nil {
			return nil, err
		}
		programs = append(programs, p)
	}
	return programs, nil
}

// LoadFile reads a program document from disk.
func LoadFile(path string) ([]*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read programs: %w", err)
	}
	return ParsePrograms(data)
}

func compile(e Emotion, spec programSpec) (*Program, error) {
	if len(spec.Steps) == 0 {
		return nil, fmt.Errorf("%w: %s has no steps", ErrInvalidProgram, e)
	}

	p := &Program{
		Emotion:         e,
		Description:     spec.Description,
		Loop:            spec.Loop,
		Uninterruptible: spec.Uninterruptible,
		steps:           make([]Step, 0, len(spec.Steps)),
	}

	for i, s := range spec.Steps {
		step := Step{Stop: s.Stop, Detach: s.Detach, Hold: s.Hold}
		if s.Hold < 0 {
			return nil, fmt.Errorf("%w: %s step %d has negative hold", ErrInvalidProgram, e, i)
		}
		if s.Drive != nil {
			if len(s.Drive) != 2 {
				return nil, fmt.Errorf("%w: %s step %d drive needs 2 values", ErrInvalidProgram, e, i)
			}
			step.Drive = &actuator.Speeds{A: s.Drive[0], B: s.Drive[1]}
		}
		if s.Servos != nil {
			if len(s.Servos) != 2 {
				return nil, fmt.Errorf("%w: %s step %d servos needs 2 values", ErrInvalidProgram, e, i)
			}
			step.Servos = &actuator.Angles{Servo1: s.Servos[0], Servo2: s.Servos[1]}
		}
		p.steps = append(p.steps, step)
	}

	if p.Loop && p.Cycle() == 0 {
		return nil, fmt.Errorf("%w: looping %s must hold for a non-zero time", ErrInvalidProgram, e)
	}
	if p.Loop && p.Uninterruptible {
		return nil, fmt.Errorf("%w: %s cannot loop and ignore cancellation", ErrInvalidProgram, e)
	}
	return p, nil
}
