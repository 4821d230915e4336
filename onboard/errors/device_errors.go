package errors

import "fmt"

// MissingDeviceError is returned when a required hardware handle was not supplied.
type MissingDeviceError struct {
	Name string
}

func (err MissingDeviceError) Error() string {
	return fmt.Sprintf("no device provided for %s", err.Name)
}

// NodeVersionError is returned when a control node reports firmware that does
// not satisfy the required constraint.
type NodeVersionError struct {
	Node       uint32
	Version    string
	Constraint string
}

func (err NodeVersionError) Error() string {
	if len(err.Version) == 0 {
		err.Version = "UNKNOWN"
	}

	return fmt.Sprintf("unable to use node 0x%x: received version %s - require %s", err.Node, err.Version, err.Constraint)
}

// ConfigVersionError is returned for robot configuration files written for an
// incompatible schema.
type ConfigVersionError struct {
	Version    string
	Constraint string
}

func (err ConfigVersionError) Error() string {
	return fmt.Sprintf("config version %q does not satisfy %s", err.Version, err.Constraint)
}

// UnknownStepError is returned when an autonomous routine names a step type
// that has no command.
type UnknownStepError struct {
	Type string
}

func (err UnknownStepError) Error() string {
	return fmt.Sprintf("unknown routine step type %q", err.Type)
}
