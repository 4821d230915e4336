package canbus

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"

	"go.bug.st/serial"
)

const (
	SERIAL_DEFAULT_BAUD = 115200

	slcanBitrate1M = "S8"
	slcanOpen      = "O"
	slcanClose     = "C"
)

// SerialBus speaks the slcan ASCII protocol to a USB to CAN adapter.
type SerialBus struct {
	listeners

	port      io.ReadWriteCloser
	wlock     sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// OpenSerialBus opens the named serial port and brings the CAN channel up
// at 1Mbit/s.
func OpenSerialBus(name string, baud int) (*SerialBus, error) {
	if baud == 0 {
		baud = SERIAL_DEFAULT_BAUD
	}

	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}

	return NewSerialBus(port)
}

// NewSerialBus initialises an slcan adapter on an already open port.
func NewSerialBus(port io.ReadWriteCloser) (*SerialBus, error) {
	bus := &SerialBus{
		port: port,
		done: make(chan struct{}),
	}

	for _, cmd := range []string{slcanClose, slcanBitrate1M, slcanOpen} {
		if err := bus.write(cmd); err != nil {
			port.Close()
			return nil, err
		}
	}

	go bus.reader()

	return bus, nil
}

func (b *SerialBus) SendMsg(msg CANMsg) error {
	select {
	case <-b.done:
		return ERR_BUS_CLOSED
	default:
	}

	line, err := encodeSLCAN(msg)
	if err != nil {
		return err
	}
	return b.write(line)
}

func (b *SerialBus) Close() error {
	err := ERR_BUS_CLOSED
	b.closeOnce.Do(func() {
		close(b.done)
		b.write(slcanClose)
		err = b.port.Close()
	})
	return err
}

func (b *SerialBus) write(line string) error {
	b.wlock.Lock()
	defer b.wlock.Unlock()

	_, err := io.WriteString(b.port, line+"\r")
	return err
}

func (b *SerialBus) reader() {
	r := bufio.NewReader(b.port)
	for {
		line, err := r.ReadString('\r')
		if err != nil {
			select {
			case <-b.done:
			default:
				log.Printf("canbus: serial read failed: %v", err)
			}
			return
		}

		// acks are a bare \r, errors a bell
		line = strings.TrimLeft(strings.TrimSuffix(line, "\r"), "\a")
		if line == "" || (line[0] != 't' && line[0] != 'T') {
			continue
		}

		msg, err := decodeSLCAN(line)
		if err != nil {
			log.Printf("canbus: dropping frame %q: %v", line, err)
			continue
		}
		b.dispatch(*msg)
	}
}

func encodeSLCAN(msg CANMsg) (string, error) {
	id, data, err := msg.frame()
	if err != nil {
		return "", err
	}

	var head string
	if id&CAN_EFF_FLAG != 0 {
		head = fmt.Sprintf("T%08X%d", id&CAN_EFF_MASK, len(data))
	} else {
		head = fmt.Sprintf("t%03X%d", id, len(data))
	}

	return head + strings.ToUpper(hex.EncodeToString(data)), nil
}

func decodeSLCAN(line string) (*CANMsg, error) {
	var idLen int
	var flags uint32
	switch {
	case strings.HasPrefix(line, "t"):
		idLen = 3
	case strings.HasPrefix(line, "T"):
		idLen, flags = 8, CAN_EFF_FLAG
	default:
		return nil, ERR_BAD_FRAME
	}

	if len(line) < idLen+2 {
		return nil, ERR_BAD_FRAME
	}

	id, err := strconv.ParseUint(line[1:1+idLen], 16, 32)
	if err != nil {
		return nil, ERR_BAD_FRAME
	}

	dlc := int(line[1+idLen] - '0')
	if dlc < 0 || dlc > CAN_MAX_DLEN || len(line) < idLen+2+2*dlc {
		return nil, ERR_BAD_FRAME
	}

	data, err := hex.DecodeString(line[idLen+2 : idLen+2+2*dlc])
	if err != nil {
		return nil, ERR_BAD_FRAME
	}

	return msgFromFrame(uint32(id)|flags, data)
}
