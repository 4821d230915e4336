// Package drive converts driver and autonomous intent into left/right power
// for a two sided drivetrain with a two speed gearbox, a brake and a deployable
// pizza wheel.
package drive

import (
	"math"
	"time"

	"github.com/CodedInternet/godrivetrain/onboard/device"
	deverrors "github.com/CodedInternet/godrivetrain/onboard/errors"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	POWER_MAX       = 1.0
	LINEAR_DEADBAND = 0.01

	ENCODER_CLICKS_PER_REV = 256.0
	WHEEL_DIAMETER         = 3.5 // inches
)

type Drive struct {
	hw        device.Hardware
	clock     device.Clock
	provider  ConstantsProvider
	constants Constants

	leftPower, rightPower float64

	// heading sample from the previous CheesyDrive call
	prevHeading float64
	prevTime    time.Time
}

// Mix is the outcome of a single CheesyDrive mixing pass, before linearization.
type Mix struct {
	HeadingRate  float64 `json:"heading_rate"`
	Sensitivity  float64 `json:"sensitivity"`
	AngularPower float64 `json:"angular_power"`
	OverPower    float64 `json:"over_power"`
	Left         float64 `json:"left"`
	Right        float64 `json:"right"`
}

// NewDrive takes ownership of the hardware handles and puts the drivetrain in
// a known state: brake released, high gear, encoders and gyro zeroed.
func NewDrive(hw device.Hardware, clock device.Clock, provider ConstantsProvider) (d *Drive, err error) {
	if err = checkHardware(hw); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = device.RealClock{}
	}
	if provider == nil {
		provider = StaticConstants(DefaultConstants())
	}

	d = &Drive{
		hw:        hw,
		clock:     clock,
		provider:  provider,
		constants: provider.Constants(),
	}

	d.SetBrakeOn(false)
	d.SetHighGear(true)
	d.ResetEncoders()
	d.hw.Gyro.Reset()

	d.prevHeading = d.hw.Gyro.GetAngle()
	d.prevTime = d.clock.Now()

	return
}

func checkHardware(hw device.Hardware) error {
	handles := []struct {
		name string
		dev  interface{}
	}{
		{"left motor A", hw.LeftMotorA},
		{"left motor B", hw.LeftMotorB},
		{"right motor A", hw.RightMotorA},
		{"right motor B", hw.RightMotorB},
		{"shifter", hw.Shifter},
		{"pizza wheel", hw.PizzaWheel},
		{"brake", hw.Brake},
		{"left encoder", hw.LeftEncoder},
		{"right encoder", hw.RightEncoder},
		{"gyro", hw.Gyro},
		{"bump sensor", hw.BumpSensor},
	}

	for _, h := range handles {
		if h.dev == nil {
			return deverrors.MissingDeviceError{Name: h.name}
		}
	}
	return nil
}

// PwmLimit saturates x to the motor power range. NaN saturates to 0.
func PwmLimit(x float64) float64 {
	if math.IsNaN(x) {
		return 0.0
	}
	return mgl64.Clamp(x, -POWER_MAX, POWER_MAX)
}

// SetPower writes raw power to both sides of the drivetrain. The B motors on
// each side are mounted reversed.
func (d *Drive) SetPower(left, right float64) {
	left = PwmLimit(left)
	right = PwmLimit(right)
	if d.GetBrakeOn() {
		left, right = 0, 0
	}

	d.hw.LeftMotorA.Set(left)
	d.hw.LeftMotorB.Set(-left)
	d.hw.RightMotorA.Set(-right)
	d.hw.RightMotorB.Set(right)

	d.leftPower, d.rightPower = left, right
}

func (d *Drive) Linearize(x float64) float64 {
	return d.constants.Linearize(x)
}

// SetLinearPower is the entry point for analog control: each side is
// linearized and re-saturated before being applied.
func (d *Drive) SetLinearPower(left, right float64) {
	d.SetPower(PwmLimit(d.Linearize(left)), PwmLimit(d.Linearize(right)))
}

// CheesyDrive runs one cycle of throttle/wheel mixing and applies the result.
func (d *Drive) CheesyDrive(throttle, wheel float64, quickTurn bool) Mix {
	now := d.clock.Now()
	heading := d.hw.Gyro.GetAngle()
	rate := headingRate(d.prevHeading, heading, d.prevTime, now)

	highGear := d.GetHighGear()
	if !highGear {
		Logf("drive: low gear")
	}

	m := MixPower(finite(throttle), finite(wheel), quickTurn, highGear, rate, d.constants)

	Logf("drive: t: %f l: %f r: %f", throttle, m.Left, m.Right)
	d.SetLinearPower(m.Left, m.Right)

	d.prevHeading = heading
	d.prevTime = now

	return m
}

// MixPower is the pure part of CheesyDrive. In quick turn the wheel drives the
// sides directly and any saturation on one side is pushed onto the other;
// otherwise turning scales with throttle and is damped by the heading rate.
func MixPower(throttle, wheel float64, quickTurn, highGear bool, headingRate float64, c Constants) (m Mix) {
	m.HeadingRate = headingRate

	if highGear {
		m.Sensitivity = c.TurnSensHigh
	} else {
		m.Sensitivity = c.TurnSensLow
	}

	if quickTurn {
		m.OverPower = 1.0
		m.Sensitivity = 1.0
		m.AngularPower = wheel
	} else {
		m.OverPower = 0.0
		m.AngularPower = math.Abs(throttle) * wheel * m.Sensitivity
		m.AngularPower -= headingRate * c.InertiaGain
	}

	left := throttle + m.AngularPower
	right := throttle - m.AngularPower

	// only one side can saturate in a given direction; order matters for ties
	if left > 1.0 {
		right -= m.OverPower * (left - 1.0)
		left = 1.0
	} else if right > 1.0 {
		left -= m.OverPower * (right - 1.0)
		right = 1.0
	} else if left < -1.0 {
		right += m.OverPower * (-1.0 - left)
		left = -1.0
	} else if right < -1.0 {
		left += m.OverPower * (-1.0 - right)
		right = -1.0
	}

	if throttle == 0 && !quickTurn {
		left, right = 0.0, 0.0
	}

	m.Left, m.Right = left, right
	return
}

func headingRate(prevHeading, heading float64, prevTime, now time.Time) float64 {
	dt := now.Sub(prevTime).Seconds()
	if dt <= 0 {
		return 0.0
	}

	return finite((heading - prevHeading) / dt)
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0.0
	}
	return x
}

// SetHighGear shifts the gearbox. The shifter is energised for low gear.
func (d *Drive) SetHighGear(highGear bool) {
	d.hw.Shifter.Set(!highGear)
}

func (d *Drive) GetHighGear() bool {
	return !d.hw.Shifter.Get()
}

func (d *Drive) SetPizzaWheelDown(down bool) {
	if down {
		d.hw.PizzaWheel.Set(device.SolenoidForward)
	} else {
		d.hw.PizzaWheel.Set(device.SolenoidReverse)
	}
}

func (d *Drive) GetPizzaUp() bool {
	return d.hw.PizzaWheel.Get() != device.SolenoidForward
}

func (d *Drive) SetBrakeOn(on bool) {
	if on {
		d.hw.Brake.Set(device.SolenoidForward)
	} else {
		d.hw.Brake.Set(device.SolenoidReverse)
	}
}

func (d *Drive) GetBrakeOn() bool {
	return d.hw.Brake.Get() == device.SolenoidForward
}

// GetLeftEncoderDistance returns inches travelled by the left side. The left
// encoder is mounted reversed.
func (d *Drive) GetLeftEncoderDistance() float64 {
	return -encoderDistance(d.hw.LeftEncoder.Get())
}

func (d *Drive) GetRightEncoderDistance() float64 {
	return encoderDistance(d.hw.RightEncoder.Get())
}

func encoderDistance(count int) float64 {
	return float64(count) / ENCODER_CLICKS_PER_REV * WHEEL_DIAMETER * math.Pi
}

func (d *Drive) ResetEncoders() {
	d.hw.LeftEncoder.Reset()
	d.hw.RightEncoder.Reset()
}

func (d *Drive) GetGyroAngle() float64 {
	return d.hw.Gyro.GetAngle()
}

// ResetGyro zeroes the heading. The rate sample is re-seeded so the reset does
// not read as a turn on the next cycle.
func (d *Drive) ResetGyro() {
	d.hw.Gyro.Reset()
	d.prevHeading = d.hw.Gyro.GetAngle()
}

func (d *Drive) GetBumpSensorValue() bool {
	return d.hw.BumpSensor.Get()
}

// LastPower returns the power most recently applied to each side.
func (d *Drive) LastPower() (left, right float64) {
	return d.leftPower, d.rightPower
}

func (d *Drive) Constants() Constants {
	return d.constants
}

func (d *Drive) SetConstants(c Constants) {
	d.constants = c
}

// ReloadConstants refreshes the cached constants from the provider.
func (d *Drive) ReloadConstants() {
	d.constants = d.provider.Constants()
}
