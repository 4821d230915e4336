package auto

import (
	"errors"
	"fmt"
	"time"

	"github.com/CodedInternet/godrivetrain/onboard/device"
	deverrors "github.com/CodedInternet/godrivetrain/onboard/errors"
)

// ErrNoPower rejects motion steps that could never reach their target.
var ErrNoPower = errors.New("step needs a non-zero power to move")

// StepConfig describes one step of an autonomous routine as written in the
// robot configuration. Which fields apply depends on Type.
type StepConfig struct {
	Type      string       `yaml:"type" json:"type"`
	Seconds   float64      `yaml:"seconds,omitempty" json:"seconds,omitempty"`
	Throttle  float64      `yaml:"throttle,omitempty" json:"throttle,omitempty"`
	Wheel     float64      `yaml:"wheel,omitempty" json:"wheel,omitempty"`
	QuickTurn bool         `yaml:"quick_turn,omitempty" json:"quick_turn,omitempty"`
	Power     float64      `yaml:"power,omitempty" json:"power,omitempty"`
	Distance  float64      `yaml:"distance,omitempty" json:"distance,omitempty"`
	Angle     float64      `yaml:"angle,omitempty" json:"angle,omitempty"`
	On        bool         `yaml:"on,omitempty" json:"on,omitempty"`
	Steps     []StepConfig `yaml:"steps,omitempty" json:"steps,omitempty"`
}

func (s StepConfig) duration() time.Duration {
	return time.Duration(s.Seconds * float64(time.Second))
}

// BuildRoutine turns a list of step descriptions into a sequential command.
func BuildRoutine(steps []StepConfig, d DriveSubsystem, clock device.Clock) (*SequentialCommand, error) {
	if len(steps) == 0 {
		return nil, ErrNoCommands
	}

	commands := make([]Command, 0, len(steps))
	for i, step := range steps {
		cmd, err := buildStep(step, d, clock)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		commands = append(commands, cmd)
	}

	return NewSequentialCommand(commands)
}

func buildStep(step StepConfig, d DriveSubsystem, clock device.Clock) (Command, error) {
	switch step.Type {
	case "wait":
		return &WaitCommand{Clock: clock, Duration: step.duration()}, nil

	case "drive":
		return &TimedDriveCommand{
			Drive:     d,
			Clock:     clock,
			Throttle:  step.Throttle,
			Wheel:     step.Wheel,
			QuickTurn: step.QuickTurn,
			Duration:  step.duration(),
		}, nil

	case "drive_distance":
		if step.Distance != 0 && step.Power == 0 {
			return nil, fmt.Errorf("drive_distance %v: %w", step.Distance, ErrNoPower)
		}
		return &DriveDistanceCommand{Drive: d, Distance: step.Distance, Power: step.Power}, nil

	case "turn":
		if step.Angle != 0 && step.Power == 0 {
			return nil, fmt.Errorf("turn %v: %w", step.Angle, ErrNoPower)
		}
		return &TurnAngleCommand{Drive: d, Angle: step.Angle, Power: step.Power}, nil

	case "shift":
		return &ShiftCommand{Drive: d, HighGear: step.On}, nil

	case "brake":
		return &BrakeCommand{Drive: d, On: step.On}, nil

	case "pizza_wheel":
		return &PizzaWheelCommand{Drive: d, Down: step.On}, nil

	case "wait_bump":
		return &WaitForBumpCommand{Drive: d, Clock: clock, Timeout: step.duration()}, nil

	case "sequence":
		return BuildRoutine(step.Steps, d, clock)

	default:
		return nil, deverrors.UnknownStepError{Type: step.Type}
	}
}
