package emotions

import (
	"fmt"
	"sync"
)

// Library maps every emotion to its program.
type Library struct {
	mu       sync.RWMutex
	programs map[Emotion]*Program
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{
		programs: make(map[Emotion]*Program),
	}
}

// Builtin returns a library loaded with the embedded programs.
func Builtin() (*Library, error) {
	lib := NewLibrary()
	if err := lib.LoadBuiltIn(); err != nil {
		return nil, err
	}
	return lib, nil
}

// LoadBuiltIn loads the embedded programs and checks the set is complete.
func (l *Library) LoadBuiltIn() error {
	programs, err := ParsePrograms(builtinPrograms)
	if err != nil {
		return fmt.Errorf("failed to load built-in programs: %w", err)
	}
	for _, p := range programs {
		l.Register(p)
	}
	for _, e := range All {
		if _, err := l.Program(e); err != nil {
			return fmt.Errorf("built-in programs incomplete: %w", err)
		}
	}
	return nil
}

// LoadOverrides replaces programs with the ones defined in the file at path.
// Emotions not mentioned keep their current program.
func (l *Library) LoadOverrides(path string) error {
	programs, err := LoadFile(path)
	if err != nil {
		return err
	}
	for _, p := range programs {
		if p.Emotion.Terminal() && !p.Uninterruptible {
			return fmt.Errorf("%w: %s must stay uninterruptible", ErrInvalidProgram, p.Emotion)
		}
		l.Register(p)
	}
	return nil
}

// Register adds or replaces a program.
func (l *Library) Register(p *Program) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.programs[p.Emotion] = p
}

// Program returns the program for e.
func (l *Library) Program(e Emotion) (*Program, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEmotion, e)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.programs[e]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotLoaded, e)
	}
	return p, nil
}

// Resolve parses a wire tag and returns its program.
func (l *Library) Resolve(tag string) (*Program, error) {
	e, err := Parse(tag)
	if err != nil {
		return nil, err
	}
	return l.Program(e)
}

// List returns the loaded emotions in declaration order.
func (l *Library) List() []Emotion {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]Emotion, 0, len(l.programs))
	for _, e := range All {
		if _, ok := l.programs[e]; ok {
			names = append(names, e)
		}
	}
	return names
}

// ListWithDescriptions returns every loaded emotion with its description.
func (l *Library) ListWithDescriptions() map[Emotion]string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[Emotion]string, len(l.programs))
	for e, p := range l.programs {
		result[e] = p.Description
	}
	return result
}
