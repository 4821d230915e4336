// Package auto runs ordered sequences of autonomous commands, one control
// cycle at a time.
package auto

import "errors"

var (
	ErrNoCommands     = errors.New("sequential command requires at least one command")
	ErrNotInitialized = errors.New("sequential command stepped before Initialize")
)

// Command is a unit of autonomous work. Initialize is called once immediately
// before the first Step; Step is called once per control cycle and returns
// true when the command has finished all of its work.
type Command interface {
	Initialize()
	Step() bool
}

// SequentialCommand runs its commands one after another in the order given.
// It is itself a Command so sequences can be nested.
type SequentialCommand struct {
	commands    []Command
	index       int
	initialized bool
	done        bool
}

func NewSequentialCommand(commands []Command) (*SequentialCommand, error) {
	if len(commands) == 0 {
		return nil, ErrNoCommands
	}
	for _, c := range commands {
		if c == nil {
			return nil, errors.New("sequential command given a nil command")
		}
	}

	owned := make([]Command, len(commands))
	copy(owned, commands)

	return &SequentialCommand{commands: owned}, nil
}

// Initialize starts the first command.
func (s *SequentialCommand) Initialize() {
	if len(s.commands) == 0 {
		panic(ErrNoCommands)
	}

	s.index = 0
	s.done = false
	s.initialized = true
	s.commands[0].Initialize()
}

// Step runs the current command. When it finishes the next command is
// initialized, and stepped on the following call. Returns true on the call
// in which the last command finishes; later calls return true without
// running anything.
func (s *SequentialCommand) Step() bool {
	if !s.initialized {
		panic(ErrNotInitialized)
	}
	if s.done {
		return true
	}

	if !s.commands[s.index].Step() {
		return false
	}

	if s.index+1 < len(s.commands) {
		s.index++
		s.commands[s.index].Initialize()
		return false
	}

	s.done = true
	return true
}

// Index is the position of the command currently running.
func (s *SequentialCommand) Index() int {
	return s.index
}

func (s *SequentialCommand) Len() int {
	return len(s.commands)
}

func (s *SequentialCommand) Done() bool {
	return s.done
}
