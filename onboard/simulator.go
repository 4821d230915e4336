package onboard

import (
	"math"
	"sync"
	"time"

	"github.com/CodedInternet/godrivetrain/onboard/device"
	"github.com/CodedInternet/godrivetrain/onboard/drive"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	SIM_INTERVAL    = 5 * time.Millisecond
	SIM_TOP_SPEED   = 150.0 // inches per second at full power in high gear
	SIM_LOW_GEAR    = 0.4   // low gear speed ratio
	SIM_TRACK_WIDTH = 24.0  // inches
)

type SimulatedMotor struct {
	lock  sync.Mutex
	power float64
}

func (m *SimulatedMotor) Set(power float64) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.power = power
}

func (m *SimulatedMotor) Get() float64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.power
}

type SimulatedSolenoid struct {
	lock sync.Mutex
	on   bool
}

func (s *SimulatedSolenoid) Set(on bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.on = on
}

func (s *SimulatedSolenoid) Get() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.on
}

type SimulatedDoubleSolenoid struct {
	lock  sync.Mutex
	value device.SolenoidValue
}

func (s *SimulatedDoubleSolenoid) Set(value device.SolenoidValue) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.value = value
}

func (s *SimulatedDoubleSolenoid) Get() device.SolenoidValue {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.value
}

type SimulatedEncoder struct {
	lock          sync.Mutex
	count, offset float64
}

func (e *SimulatedEncoder) add(clicks float64) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.count += clicks
}

func (e *SimulatedEncoder) Get() int {
	e.lock.Lock()
	defer e.lock.Unlock()
	return int(e.count - e.offset)
}

func (e *SimulatedEncoder) Reset() {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.offset = e.count
}

type SimulatedGyro struct {
	lock            sync.Mutex
	heading, offset float64
}

func (g *SimulatedGyro) set(heading float64) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.heading = heading
}

func (g *SimulatedGyro) GetAngle() float64 {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.heading - g.offset
}

func (g *SimulatedGyro) Reset() {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.offset = g.heading
}

type SimulatedInput struct {
	lock  sync.Mutex
	value bool
}

func (i *SimulatedInput) Set(value bool) {
	i.lock.Lock()
	defer i.lock.Unlock()
	i.value = value
}

func (i *SimulatedInput) Get() bool {
	i.lock.Lock()
	defer i.lock.Unlock()
	return i.value
}

// Simulator stands in for the drivetrain hardware. A background update
// integrates the motor outputs into a pose and feeds the encoders and gyro.
type Simulator struct {
	LeftA, LeftB, RightA, RightB *SimulatedMotor
	Shifter                      *SimulatedSolenoid
	PizzaWheel, Brake            *SimulatedDoubleSolenoid
	LeftEncoder, RightEncoder    *SimulatedEncoder
	Gyro                         *SimulatedGyro
	Bump                         *SimulatedInput

	// Wall is the field Y coordinate the bump sensor hits. Zero disables it.
	Wall float64

	clock device.Clock

	lock sync.Mutex
	pose Pose
	last time.Time

	done     chan struct{}
	stopOnce sync.Once
}

func NewSimulatedHardware(clock device.Clock) (sim *Simulator) {
	if clock == nil {
		clock = device.RealClock{}
	}

	sim = &Simulator{
		LeftA:        new(SimulatedMotor),
		LeftB:        new(SimulatedMotor),
		RightA:       new(SimulatedMotor),
		RightB:       new(SimulatedMotor),
		Shifter:      new(SimulatedSolenoid),
		PizzaWheel:   new(SimulatedDoubleSolenoid),
		Brake:        new(SimulatedDoubleSolenoid),
		LeftEncoder:  new(SimulatedEncoder),
		RightEncoder: new(SimulatedEncoder),
		Gyro:         new(SimulatedGyro),
		Bump:         new(SimulatedInput),
		clock:        clock,
		last:         clock.Now(),
		done:         make(chan struct{}),
	}

	return
}

func (s *Simulator) Hardware() device.Hardware {
	return device.Hardware{
		LeftMotorA:   s.LeftA,
		LeftMotorB:   s.LeftB,
		RightMotorA:  s.RightA,
		RightMotorB:  s.RightB,
		Shifter:      s.Shifter,
		PizzaWheel:   s.PizzaWheel,
		Brake:        s.Brake,
		LeftEncoder:  s.LeftEncoder,
		RightEncoder: s.RightEncoder,
		Gyro:         s.Gyro,
		BumpSensor:   s.Bump,
	}
}

// Start runs the physics update every SIM_INTERVAL until Stop.
func (s *Simulator) Start() {
	go s.update()
}

func (s *Simulator) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *Simulator) update() {
	ticker := time.NewTicker(SIM_INTERVAL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Step()
		case <-s.done:
			return
		}
	}
}

// Step advances the simulation to the current clock time.
func (s *Simulator) Step() {
	s.lock.Lock()
	defer s.lock.Unlock()

	now := s.clock.Now()
	dt := now.Sub(s.last).Seconds()
	s.last = now
	if dt <= 0 {
		return
	}

	left, right := s.sideSpeeds()
	s.pose = s.pose.Integrate(left, right, SIM_TRACK_WIDTH, dt)

	// the left encoder is mounted reversed
	clicksPerInch := drive.ENCODER_CLICKS_PER_REV / (drive.WHEEL_DIAMETER * math.Pi)
	s.LeftEncoder.add(-left * dt * clicksPerInch)
	s.RightEncoder.add(right * dt * clicksPerInch)
	s.Gyro.set(s.pose.HeadingDegrees())

	if s.Wall != 0 {
		hit := s.pose.Position.Y() >= s.Wall
		if hit {
			s.pose.Position[1] = s.Wall
		}
		s.Bump.Set(hit)
	}
}

// sideSpeeds averages each gearbox pair, undoing the reversed B motors.
func (s *Simulator) sideSpeeds() (left, right float64) {
	if s.Brake.Get() == device.SolenoidForward {
		return 0, 0
	}

	top := SIM_TOP_SPEED
	if s.Shifter.Get() {
		top *= SIM_LOW_GEAR
	}

	left = mgl64.Clamp((s.LeftA.Get()-s.LeftB.Get())/2, -1, 1) * top
	right = mgl64.Clamp((s.RightB.Get()-s.RightA.Get())/2, -1, 1) * top
	return
}

func (s *Simulator) Pose() Pose {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.pose
}

// SetPose moves the robot without touching the sensors.
func (s *Simulator) SetPose(p Pose) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.pose = p
}
