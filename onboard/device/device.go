// Package device describes the actuators and sensors the drivetrain talks to.
// Concrete implementations live in onboard/hardware (CAN control nodes) and the
// onboard simulator.
package device

import "time"

type SolenoidValue uint8

const (
	SolenoidOff SolenoidValue = iota
	SolenoidForward
	SolenoidReverse
)

func (v SolenoidValue) String() string {
	switch v {
	case SolenoidForward:
		return "forward"
	case SolenoidReverse:
		return "reverse"
	default:
		return "off"
	}
}

// PowerOutput is a motor speed controller. Power is in the range [-1, 1].
type PowerOutput interface {
	Set(power float64)
	Get() float64
}

// Solenoid is a single acting two-position pneumatic output.
type Solenoid interface {
	Set(on bool)
	Get() bool
}

// DoubleSolenoid is a double acting pneumatic output. Get reports the position
// the device layer last observed, not the last requested value.
type DoubleSolenoid interface {
	Set(value SolenoidValue)
	Get() SolenoidValue
}

type Encoder interface {
	Get() int
	Reset()
}

// Gyro reports heading in degrees.
type Gyro interface {
	GetAngle() float64
	Reset()
}

type DigitalInput interface {
	Get() bool
}

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// Hardware is the set of handles a drivetrain is built from.
type Hardware struct {
	LeftMotorA, LeftMotorB   PowerOutput
	RightMotorA, RightMotorB PowerOutput

	Shifter    Solenoid
	PizzaWheel DoubleSolenoid
	Brake      DoubleSolenoid

	LeftEncoder, RightEncoder Encoder
	Gyro                      Gyro
	BumpSensor                DigitalInput
}
