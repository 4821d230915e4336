package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/CodedInternet/godrivetrain/onboard/canbus"
	"github.com/CodedInternet/godrivetrain/onboard/hardware"
)

// cantest checks a control node answers with usable firmware and prints its
// sensor reports for a while.
func main() {
	ifname := flag.String("bus", "can0", "SocketCAN interface")
	port := flag.String("serial", "", "slcan serial adapter, overrides -bus")
	baud := flag.Int("baud", canbus.SERIAL_DEFAULT_BAUD, "serial baud rate")
	nodeID := flag.Uint("node", 0x10, "control node address")
	dev := flag.Bool("dev", false, "accept development firmware")
	watch := flag.Duration("watch", 0, "print sensor reports for this long")
	flag.Parse()

	var bus canbus.CANBusInterface
	var err error
	if *port != "" {
		bus, err = canbus.OpenSerialBus(*port, *baud)
	} else {
		bus, err = canbus.NewCANBus(*ifname)
	}
	if err != nil {
		log.Fatalf("unable to open bus: %v", err)
	}
	defer bus.Close()

	node, err := hardware.NewControlNode(bus, uint32(*nodeID), *dev)
	if err != nil {
		log.Fatalf("unable to use node: %v", err)
	}
	defer node.Close()

	fmt.Printf("Success! Working with node 0x%x\n", node.ID())

	if *watch <= 0 {
		return
	}

	left, right, gyro := node.Encoder(0), node.Encoder(1), node.Gyro()
	deadline := time.After(*watch)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			fmt.Printf("left: %6d right: %6d heading: %8.3f\n", left.Get(), right.Get(), gyro.GetAngle())
		case <-deadline:
			if err := node.AllStop(); err != nil {
				log.Printf("all stop: %v", err)
			}
			return
		}
	}
}
