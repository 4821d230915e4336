package hardware

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/CodedInternet/godrivetrain/onboard/device"
	"github.com/go-gl/mathgl/mgl64"
)

const POWER_SCALE = math.MaxInt16

var (
	_ device.PowerOutput    = (*SpeedController)(nil)
	_ device.Solenoid       = (*Solenoid)(nil)
	_ device.DoubleSolenoid = (*DoubleSolenoid)(nil)
	_ device.Encoder        = (*Encoder)(nil)
	_ device.Gyro           = (*Gyro)(nil)
	_ device.DigitalInput   = (*DigitalInput)(nil)
)

// SpeedController drives one motor channel on the node.
type SpeedController struct {
	node    *ControlNode
	channel uint8

	lock  sync.Mutex
	power float64
}

func (n *ControlNode) SpeedController(channel uint8) (*SpeedController, error) {
	if channel >= CMD_POWER_CHANNELS {
		return nil, fmt.Errorf("motor channel %d out of range", channel)
	}
	return &SpeedController{node: n, channel: channel}, nil
}

func (m *SpeedController) Set(power float64) {
	if math.IsNaN(power) {
		power = 0
	}
	power = mgl64.Clamp(power, -1, 1)

	m.lock.Lock()
	m.power = power
	m.lock.Unlock()

	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, uint16(int16(math.Round(power*POWER_SCALE))))
	m.node.send(CMD_SET_POWER|uint16(m.channel), data)
}

func (m *SpeedController) Get() float64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.power
}

// DoubleSolenoid is a valve channel on the node. Get prefers the position the
// node last reported, falling back to the last request.
type DoubleSolenoid struct {
	node    *ControlNode
	channel uint8

	lock      sync.Mutex
	requested device.SolenoidValue
}

func (n *ControlNode) DoubleSolenoid(channel uint8) *DoubleSolenoid {
	return &DoubleSolenoid{node: n, channel: channel}
}

func (s *DoubleSolenoid) Set(value device.SolenoidValue) {
	s.lock.Lock()
	s.requested = value
	s.lock.Unlock()

	s.node.send(CMD_SET_SOLENOID, []byte{s.channel, byte(value)})
}

func (s *DoubleSolenoid) Get() device.SolenoidValue {
	st := &s.node.state
	st.lock.RLock()
	value, ok := st.solenoids[s.channel]
	st.lock.RUnlock()
	if ok {
		return value
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	return s.requested
}

// Solenoid is a single acting valve; on drives the channel forward.
type Solenoid struct {
	*DoubleSolenoid
}

func (n *ControlNode) Solenoid(channel uint8) *Solenoid {
	return &Solenoid{n.DoubleSolenoid(channel)}
}

func (s *Solenoid) Set(on bool) {
	if on {
		s.DoubleSolenoid.Set(device.SolenoidForward)
	} else {
		s.DoubleSolenoid.Set(device.SolenoidOff)
	}
}

func (s *Solenoid) Get() bool {
	return s.DoubleSolenoid.Get() == device.SolenoidForward
}

// Encoder counts are accumulated on the node; Reset is local.
type Encoder struct {
	node    *ControlNode
	channel uint8

	lock   sync.Mutex
	offset int32
}

func (n *ControlNode) Encoder(channel uint8) *Encoder {
	return &Encoder{node: n, channel: channel}
}

func (e *Encoder) raw() int32 {
	st := &e.node.state
	st.lock.RLock()
	defer st.lock.RUnlock()
	return st.counts[e.channel]
}

func (e *Encoder) Get() int {
	count := e.raw()

	e.lock.Lock()
	defer e.lock.Unlock()
	return int(count - e.offset)
}

func (e *Encoder) Reset() {
	count := e.raw()

	e.lock.Lock()
	e.offset = count
	e.lock.Unlock()
}

// Gyro reads the heading the node integrates.
type Gyro struct {
	node *ControlNode

	lock   sync.Mutex
	offset float64
}

func (n *ControlNode) Gyro() *Gyro {
	return &Gyro{node: n}
}

func (g *Gyro) raw() float64 {
	st := &g.node.state
	st.lock.RLock()
	defer st.lock.RUnlock()
	return st.heading
}

func (g *Gyro) GetAngle() float64 {
	heading := g.raw()

	g.lock.Lock()
	defer g.lock.Unlock()
	return heading - g.offset
}

func (g *Gyro) Reset() {
	heading := g.raw()

	g.lock.Lock()
	g.offset = heading
	g.lock.Unlock()
}

type DigitalInput struct {
	node *ControlNode
	bit  uint8
}

func (n *ControlNode) DigitalInput(bit uint8) (*DigitalInput, error) {
	if bit > 7 {
		return nil, fmt.Errorf("digital input %d out of range", bit)
	}
	return &DigitalInput{node: n, bit: bit}, nil
}

func (d *DigitalInput) Get() bool {
	st := &d.node.state
	st.lock.RLock()
	defer st.lock.RUnlock()
	return st.inputs&(1<<d.bit) != 0
}
