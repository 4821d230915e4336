package onboard

import (
	"errors"
	"fmt"
	"time"

	"github.com/CodedInternet/godrivetrain/onboard/canbus"
	"github.com/CodedInternet/godrivetrain/onboard/device"
	"github.com/CodedInternet/godrivetrain/onboard/hardware"
)

var ErrNoBus = errors.New("hardware config names neither a CAN interface nor a serial adapter")

// NodeHardware is a drivetrain wired to a single CAN control node.
type NodeHardware struct {
	Bus  canbus.CANBusInterface
	Node *hardware.ControlNode
	device.Hardware
}

// NewNodeHardware opens the configured bus, checks the node firmware and
// maps the configured channels on to drivetrain devices. Sensor updates are
// requested once per control period.
func NewNodeHardware(config HardwareConfig, period time.Duration) (nh *NodeHardware, err error) {
	bus, err := openBus(config)
	if err != nil {
		return
	}

	nh, err = newNodeHardware(bus, config, period)
	if err != nil {
		bus.Close()
		return nil, err
	}

	return
}

func openBus(config HardwareConfig) (canbus.CANBusInterface, error) {
	switch {
	case config.Bus != "":
		return canbus.NewCANBus(config.Bus)
	case config.Serial != "":
		return canbus.OpenSerialBus(config.Serial, config.Baud)
	default:
		return nil, ErrNoBus
	}
}

func newNodeHardware(bus canbus.CANBusInterface, config HardwareConfig, period time.Duration) (nh *NodeHardware, err error) {
	node, err := hardware.NewControlNode(bus, config.Node, config.AllowDev)
	if err != nil {
		return
	}

	nh = &NodeHardware{Bus: bus, Node: node}
	if err = nh.mapChannels(config); err != nil {
		node.Close()
		return nil, err
	}

	if err = node.SetUpdateInterval(period); err != nil {
		node.Close()
		return nil, fmt.Errorf("setting node update interval: %w", err)
	}

	return
}

func (nh *NodeHardware) mapChannels(config HardwareConfig) (err error) {
	motors := []struct {
		channel uint8
		out     *device.PowerOutput
	}{
		{config.Motors.LeftA, &nh.LeftMotorA},
		{config.Motors.LeftB, &nh.LeftMotorB},
		{config.Motors.RightA, &nh.RightMotorA},
		{config.Motors.RightB, &nh.RightMotorB},
	}

	for _, m := range motors {
		sc, err := nh.Node.SpeedController(m.channel)
		if err != nil {
			return err
		}
		*m.out = sc
	}

	nh.Shifter = nh.Node.Solenoid(config.Solenoids.Shifter)
	nh.PizzaWheel = nh.Node.DoubleSolenoid(config.Solenoids.PizzaWheel)
	nh.Brake = nh.Node.DoubleSolenoid(config.Solenoids.Brake)
	nh.LeftEncoder = nh.Node.Encoder(config.Encoders.Left)
	nh.RightEncoder = nh.Node.Encoder(config.Encoders.Right)
	nh.Gyro = nh.Node.Gyro()

	bump, err := nh.Node.DigitalInput(config.BumpSensor)
	if err != nil {
		return err
	}
	nh.BumpSensor = bump

	return nil
}

// Close stops every output on the node and releases the bus.
func (nh *NodeHardware) Close() error {
	stopErr := nh.Node.AllStop()
	nh.Node.Close()

	if err := nh.Bus.Close(); err != nil {
		return err
	}
	return stopErr
}
