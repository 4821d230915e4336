package hardware

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/CodedInternet/godrivetrain/onboard/canbus"
	"github.com/CodedInternet/godrivetrain/onboard/device"
	deverrors "github.com/CodedInternet/godrivetrain/onboard/errors"
	"github.com/Masterminds/semver"
)

const (
	NODE_VERSION = "~0.2.0"
	NODE_DEV     = "DEV"
)

// ControlNode is a drivetrain controller on the CAN bus. It owns the motor,
// solenoid and sensor channels wired to it.
type ControlNode struct {
	id  uint32
	bus canbus.CANBusInterface

	sendLock sync.Mutex

	pendingLock sync.Mutex
	pendingCmd  map[uint16]*BaseCommand

	state nodeState

	rx        chan canbus.CANMsg
	done      chan struct{}
	closeOnce sync.Once

	AllowDev bool
}

// nodeState is the last reported status of the node.
type nodeState struct {
	lock      sync.RWMutex
	counts    map[uint8]int32
	heading   float64 // degrees
	inputs    uint8
	solenoids map[uint8]device.SolenoidValue
}

func newControlNode(bus canbus.CANBusInterface, id uint32) (*ControlNode, error) {
	if id > canbus.CANNodeMask {
		return nil, fmt.Errorf("node address 0x%x out of range", id)
	}

	n := &ControlNode{
		id:         id,
		bus:        bus,
		pendingCmd: make(map[uint16]*BaseCommand),
		state: nodeState{
			counts:    make(map[uint8]int32),
			solenoids: make(map[uint8]device.SolenoidValue),
		},
		rx:   make(chan canbus.CANMsg, 32),
		done: make(chan struct{}),
	}

	bus.AddListener(n.id, n.rx)
	go n.listen()

	return n, nil
}

// NewControlNode attaches to the node at id and checks its firmware version.
// Set allowDev to accept development builds reporting "DEV".
func NewControlNode(bus canbus.CANBusInterface, id uint32, allowDev bool) (n *ControlNode, err error) {
	n, err = newControlNode(bus, id)
	if err != nil {
		return
	}
	n.AllowDev = allowDev

	if err = n.checkVersion(); err != nil {
		n.Close()
		return nil, err
	}

	return
}

func (n *ControlNode) checkVersion() error {
	resp, err := n.versionCommand().Process()
	if err != nil {
		return fmt.Errorf("node 0x%x version request: %w", n.id, err)
	}

	versionString := string(resp.Data)
	versionErr := deverrors.NodeVersionError{
		Node:       n.id,
		Version:    versionString,
		Constraint: NODE_VERSION,
	}

	semVer, err := semver.NewVersion(versionString)
	if err != nil {
		// not a semver, but we might be able to recover
		if versionString == NODE_DEV && n.AllowDev {
			log.Printf("node 0x%x: running development firmware", n.id)
			return nil
		}
		// a commit build or garbage
		return versionErr
	}

	constraint, err := semver.NewConstraint(NODE_VERSION)
	if err != nil {
		return err
	}

	if !constraint.Check(semVer) {
		return versionErr
	}

	return nil
}

func (n *ControlNode) ID() uint32 {
	return n.id
}

func (n *ControlNode) SendMsg(msg canbus.CANMsg) error {
	n.sendLock.Lock()
	defer n.sendLock.Unlock()

	return n.bus.SendMsg(msg)
}

// send writes a message without waiting for acknowledgement. Failures are
// logged since the next control cycle will send again.
func (n *ControlNode) send(cmd uint16, data []byte) {
	msg := canbus.CANMsg{
		ID:   n.id | canbus.CANHostFlag,
		Cmd:  cmd,
		Data: data,
	}
	if err := n.SendMsg(msg); err != nil {
		log.Printf("node 0x%x: send 0x%04x failed: %v", n.id, cmd, err)
	}
}

// SetUpdateInterval sets how often the node reports its sensors.
func (n *ControlNode) SetUpdateInterval(interval time.Duration) (err error) {
	ms := interval.Milliseconds()
	if ms < 1 || ms > math.MaxUint16 {
		return fmt.Errorf("update interval %s out of range", interval)
	}

	data := make([]byte, 2)
	binary.LittleEndian.PutUint16(data, uint16(ms))

	_, err = n.command(CMD_UPDATE_INTERVAL, data).Process()
	return
}

// AllStop zeroes every output on the node.
func (n *ControlNode) AllStop() (err error) {
	_, err = n.command(CMD_ALLSTOP, nil).Process()
	return
}

// Close aborts outstanding commands and stops listening. The bus is left open.
func (n *ControlNode) Close() error {
	n.closeOnce.Do(func() {
		close(n.done)
		n.abortPending()
	})
	return nil
}

func (n *ControlNode) listen() {
	for {
		select {
		case msg := <-n.rx:
			n.handle(msg)
		case <-n.done:
			return
		}
	}
}

func (n *ControlNode) handle(msg canbus.CANMsg) {
	s := &n.state

	switch msg.Cmd {
	case CMD_SENSOR_UPDATE:
		if len(msg.Data) < 5 {
			return
		}
		s.lock.Lock()
		s.counts[msg.Data[0]] = int32(binary.LittleEndian.Uint32(msg.Data[1:5]))
		s.lock.Unlock()

	case CMD_HEADING_UPDATE:
		if len(msg.Data) < 4 {
			return
		}
		s.lock.Lock()
		s.heading = float64(int32(binary.LittleEndian.Uint32(msg.Data[0:4]))) / 1000
		s.lock.Unlock()

	case CMD_INPUT_UPDATE:
		if len(msg.Data) < 1 {
			return
		}
		s.lock.Lock()
		s.inputs = msg.Data[0]
		s.lock.Unlock()

	case CMD_SOLENOID_UPDATE:
		if len(msg.Data) < 2 {
			return
		}
		s.lock.Lock()
		s.solenoids[msg.Data[0]] = device.SolenoidValue(msg.Data[1])
		s.lock.Unlock()

	default:
		n.routeACK(msg)
	}
}

func (n *ControlNode) addPending(c *BaseCommand) error {
	n.pendingLock.Lock()
	defer n.pendingLock.Unlock()

	if _, ok := n.pendingCmd[c.ID()]; ok {
		return ERR_CMD_PENDING
	}
	n.pendingCmd[c.ID()] = c
	return nil
}

func (n *ControlNode) removePending(c *BaseCommand) {
	n.pendingLock.Lock()
	defer n.pendingLock.Unlock()

	if n.pendingCmd[c.ID()] == c {
		delete(n.pendingCmd, c.ID())
	}
}

func (n *ControlNode) abortPending() {
	n.pendingLock.Lock()
	defer n.pendingLock.Unlock()

	for _, cmd := range n.pendingCmd {
		cmd.Abort()
	}
}

func (n *ControlNode) routeACK(msg canbus.CANMsg) {
	n.pendingLock.Lock()
	cmd, ok := n.pendingCmd[msg.Cmd]
	n.pendingLock.Unlock()

	if ok {
		cmd.Ack(msg)
	}
}
