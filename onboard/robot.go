package onboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/CodedInternet/godrivetrain/onboard/auto"
	"github.com/CodedInternet/godrivetrain/onboard/device"
	"github.com/CodedInternet/godrivetrain/onboard/drive"
)

const REQUEST_QUEUE = 64

var (
	ErrQueueFull      = errors.New("robot request queue is full")
	ErrUnknownRoutine = errors.New("no routine with that name")
)

type Mode int

const (
	ModeDisabled Mode = iota
	ModeTeleop
	ModeAuto
)

func (m Mode) String() string {
	switch m {
	case ModeTeleop:
		return "teleop"
	case ModeAuto:
		return "auto"
	default:
		return "disabled"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "disabled":
		*m = ModeDisabled
	case "teleop":
		*m = ModeTeleop
	case "auto":
		*m = ModeAuto
	default:
		return fmt.Errorf("unknown mode %q", text)
	}
	return nil
}

// DriverInput is the latest stick position from the driver.
type DriverInput struct {
	Throttle  float64 `json:"throttle"`
	Wheel     float64 `json:"wheel"`
	QuickTurn bool    `json:"quick_turn"`
}

// RobotState is published at the end of every control cycle.
type RobotState struct {
	Mode    Mode   `json:"mode"`
	Routine string `json:"routine,omitempty"`
	Cycle   uint64 `json:"cycle"`

	Input DriverInput `json:"input"`
	Mix   drive.Mix   `json:"mix"`
	Left  float64     `json:"left"`
	Right float64     `json:"right"`

	HighGear bool `json:"high_gear"`
	BrakeOn  bool `json:"brake_on"`
	PizzaUp  bool `json:"pizza_up"`

	LeftDistance  float64 `json:"left_distance"`
	RightDistance float64 `json:"right_distance"`
	Heading       float64 `json:"heading"`
	Bump          bool    `json:"bump"`

	Constants drive.Constants `json:"constants"`
}

// Robot runs the control loop. The drivetrain is only touched from the loop;
// every other goroutine queues requests that are applied at the start of the
// next cycle.
type Robot struct {
	drive    *drive.Drive
	clock    device.Clock
	period   time.Duration
	routines map[string][]auto.StepConfig
	provider drive.ConstantsProvider

	requests chan func()

	mode        Mode
	input       DriverInput
	mix         drive.Mix
	routine     *auto.SequentialCommand
	routineName string
	cycles      uint64

	stateLock sync.RWMutex
	state     RobotState
}

func NewRobot(config *RobotConfig, hw device.Hardware, clock device.Clock, provider drive.ConstantsProvider) (r *Robot, err error) {
	if clock == nil {
		clock = device.RealClock{}
	}
	if provider == nil {
		provider = drive.StaticConstants(config.Constants)
	}

	d, err := drive.NewDrive(hw, clock, provider)
	if err != nil {
		return nil, err
	}

	r = &Robot{
		drive:    d,
		clock:    clock,
		period:   config.Period(),
		routines: config.Routines,
		provider: provider,
		requests: make(chan func(), REQUEST_QUEUE),
	}
	r.publish()

	return
}

func (r *Robot) enqueue(f func()) error {
	select {
	case r.requests <- f:
		return nil
	default:
		return ErrQueueFull
	}
}

func (r *Robot) SetInput(in DriverInput) error {
	return r.enqueue(func() { r.input = in })
}

// Teleop hands the drivetrain to the driver, abandoning any routine.
func (r *Robot) Teleop() error {
	return r.enqueue(func() {
		r.input = DriverInput{}
		r.setMode(ModeTeleop)
	})
}

func (r *Robot) Disable() error {
	return r.enqueue(func() { r.setMode(ModeDisabled) })
}

func (r *Robot) SetHighGear(highGear bool) error {
	return r.enqueue(func() { r.drive.SetHighGear(highGear) })
}

func (r *Robot) SetBrake(on bool) error {
	return r.enqueue(func() { r.drive.SetBrakeOn(on) })
}

func (r *Robot) SetPizzaWheel(down bool) error {
	return r.enqueue(func() { r.drive.SetPizzaWheelDown(down) })
}

func (r *Robot) ResetGyro() error {
	return r.enqueue(func() { r.drive.ResetGyro() })
}

func (r *Robot) SetConstants(c drive.Constants) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return r.enqueue(func() { r.drive.SetConstants(c) })
}

// ReloadConstants refetches the constants from the provider the robot was
// built with. The provider is read on the calling goroutine so the control
// loop never waits on it.
func (r *Robot) ReloadConstants() error {
	return r.SetConstants(r.provider.Constants())
}

// StartRoutine runs the named routine from the start on the next cycle.
func (r *Robot) StartRoutine(name string) error {
	steps, ok := r.routines[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRoutine, name)
	}

	return r.enqueue(func() {
		routine, err := auto.BuildRoutine(steps, r.drive, r.clock)
		if err != nil {
			log.Printf("robot: routine %s: %v", name, err)
			r.setMode(ModeDisabled)
			return
		}

		r.setMode(ModeAuto)
		r.routine = routine
		r.routineName = name
		routine.Initialize()
	})
}

func (r *Robot) Routines() (names []string) {
	for name := range r.routines {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}

func (r *Robot) setMode(mode Mode) {
	if r.mode == ModeAuto && mode != ModeAuto {
		r.routine = nil
		r.routineName = ""
	}
	r.mode = mode
	r.mix = drive.Mix{}
}

func (r *Robot) drain() {
	for {
		select {
		case f := <-r.requests:
			f()
		default:
			return
		}
	}
}

// Cycle runs one control period.
func (r *Robot) Cycle() {
	r.drain()

	switch r.mode {
	case ModeTeleop:
		r.mix = r.drive.CheesyDrive(r.input.Throttle, r.input.Wheel, r.input.QuickTurn)

	case ModeAuto:
		if r.routine.Step() {
			log.Printf("robot: routine %s complete", r.routineName)
			r.setMode(ModeDisabled)
			r.drive.SetPower(0, 0)
		}

	default:
		r.drive.SetPower(0, 0)
	}

	r.cycles++
	r.publish()
}

// Run cycles at the configured rate until ctx is cancelled, then leaves the
// drivetrain disabled with zero power.
func (r *Robot) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Cycle()

		case <-ctx.Done():
			r.drain()
			r.setMode(ModeDisabled)
			r.drive.SetPower(0, 0)
			r.publish()
			return ctx.Err()
		}
	}
}

func (r *Robot) publish() {
	left, right := r.drive.LastPower()

	state := RobotState{
		Mode:          r.mode,
		Routine:       r.routineName,
		Cycle:         r.cycles,
		Input:         r.input,
		Mix:           r.mix,
		Left:          left,
		Right:         right,
		HighGear:      r.drive.GetHighGear(),
		BrakeOn:       r.drive.GetBrakeOn(),
		PizzaUp:       r.drive.GetPizzaUp(),
		LeftDistance:  r.drive.GetLeftEncoderDistance(),
		RightDistance: r.drive.GetRightEncoderDistance(),
		Heading:       r.drive.GetGyroAngle(),
		Bump:          r.drive.GetBumpSensorValue(),
		Constants:     r.drive.Constants(),
	}

	r.stateLock.Lock()
	r.state = state
	r.stateLock.Unlock()
}

// State returns a copy of the last published state.
func (r *Robot) State() RobotState {
	r.stateLock.RLock()
	defer r.stateLock.RUnlock()
	return r.state
}
