package auto

import (
	"math"
	"time"

	"github.com/CodedInternet/godrivetrain/onboard/device"
	"github.com/CodedInternet/godrivetrain/onboard/drive"
)

// DriveSubsystem is the part of the drivetrain autonomous commands use.
type DriveSubsystem interface {
	CheesyDrive(throttle, wheel float64, quickTurn bool) drive.Mix
	SetLinearPower(left, right float64)
	SetHighGear(highGear bool)
	SetBrakeOn(on bool)
	SetPizzaWheelDown(down bool)
	GetLeftEncoderDistance() float64
	GetRightEncoderDistance() float64
	ResetEncoders()
	GetGyroAngle() float64
	GetBumpSensorValue() bool
}

// WaitCommand does nothing for Duration.
type WaitCommand struct {
	Clock    device.Clock
	Duration time.Duration
	start    time.Time
}

func (c *WaitCommand) Initialize() {
	c.start = c.Clock.Now()
}

func (c *WaitCommand) Step() bool {
	return c.Clock.Now().Sub(c.start) >= c.Duration
}

// TimedDriveCommand holds a fixed CheesyDrive input for Duration then stops.
type TimedDriveCommand struct {
	Drive     DriveSubsystem
	Clock     device.Clock
	Throttle  float64
	Wheel     float64
	QuickTurn bool
	Duration  time.Duration
	start     time.Time
}

func (c *TimedDriveCommand) Initialize() {
	c.start = c.Clock.Now()
}

func (c *TimedDriveCommand) Step() bool {
	if c.Clock.Now().Sub(c.start) >= c.Duration {
		c.Drive.SetLinearPower(0, 0)
		return true
	}

	c.Drive.CheesyDrive(c.Throttle, c.Wheel, c.QuickTurn)
	return false
}

// DriveDistanceCommand drives straight at constant power until the mean
// encoder distance reaches Distance. A negative Distance drives backwards.
type DriveDistanceCommand struct {
	Drive    DriveSubsystem
	Distance float64 // inches
	Power    float64
}

func (c *DriveDistanceCommand) Initialize() {
	c.Drive.ResetEncoders()
}

func (c *DriveDistanceCommand) Step() bool {
	travelled := (c.Drive.GetLeftEncoderDistance() + c.Drive.GetRightEncoderDistance()) / 2
	if math.Abs(travelled) >= math.Abs(c.Distance) {
		c.Drive.SetLinearPower(0, 0)
		return true
	}

	power := math.Copysign(math.Abs(c.Power), c.Distance)
	c.Drive.SetLinearPower(power, power)
	return false
}

// TurnAngleCommand quick-turns at constant power until the heading has
// changed by Angle degrees. Positive angles turn clockwise.
type TurnAngleCommand struct {
	Drive DriveSubsystem
	Angle float64
	Power float64
	start float64
}

func (c *TurnAngleCommand) Initialize() {
	c.start = c.Drive.GetGyroAngle()
}

func (c *TurnAngleCommand) Step() bool {
	turned := c.Drive.GetGyroAngle() - c.start
	if math.Abs(turned) >= math.Abs(c.Angle) {
		c.Drive.SetLinearPower(0, 0)
		return true
	}

	c.Drive.CheesyDrive(0, math.Copysign(math.Abs(c.Power), c.Angle), true)
	return false
}

type ShiftCommand struct {
	Drive    DriveSubsystem
	HighGear bool
}

func (c *ShiftCommand) Initialize() {}

func (c *ShiftCommand) Step() bool {
	c.Drive.SetHighGear(c.HighGear)
	return true
}

type BrakeCommand struct {
	Drive DriveSubsystem
	On    bool
}

func (c *BrakeCommand) Initialize() {}

func (c *BrakeCommand) Step() bool {
	c.Drive.SetBrakeOn(c.On)
	return true
}

type PizzaWheelCommand struct {
	Drive DriveSubsystem
	Down  bool
}

func (c *PizzaWheelCommand) Initialize() {}

func (c *PizzaWheelCommand) Step() bool {
	c.Drive.SetPizzaWheelDown(c.Down)
	return true
}

// WaitForBumpCommand finishes when the bump sensor makes contact, or once
// Timeout has passed if it is non zero.
type WaitForBumpCommand struct {
	Drive   DriveSubsystem
	Clock   device.Clock
	Timeout time.Duration
	start   time.Time
}

func (c *WaitForBumpCommand) Initialize() {
	c.start = c.Clock.Now()
}

func (c *WaitForBumpCommand) Step() bool {
	if c.Drive.GetBumpSensorValue() {
		return true
	}
	return c.Timeout > 0 && c.Clock.Now().Sub(c.start) >= c.Timeout
}
