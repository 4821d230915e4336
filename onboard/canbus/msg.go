package canbus

import (
	"encoding/binary"
	"errors"
	"sync"
)

const (
	CAN_EFF_FLAG = 0x80000000
	CAN_RTR_FLAG = 0x40000000
	CAN_ERR_FLAG = 0x20000000
	CAN_SFF_MASK = 0x7ff
	CAN_EFF_MASK = 0x1fffffff
	CAN_MAX_DLEN = 8
	CAN_MTU      = 16

	// set on frames sent by the host; node addresses must sit below it
	CANHostFlag = 0x0400
	CANNodeMask = 0x03ff

	cmdLength    = 2
	MSG_MAX_DATA = CAN_MAX_DLEN - cmdLength
)

// errors
var (
	ERR_DATA_TOO_LONG = errors.New("data length exceeds 6 bytes")
	ERR_BAD_FRAME     = errors.New("malformed CAN frame")
	ERR_BUS_CLOSED    = errors.New("CAN bus has been closed")
)

type CANMsg struct {
	ID   uint32 // node ID this is being issued for
	Cmd  uint16 // command being issued in this message
	Data []byte // raw data up to six bytes. DLC is taken from len(Data) plus the command.
}

type CANBusInterface interface {
	AddListener(nodeId uint32, rxchan chan CANMsg)
	SendMsg(msg CANMsg) error
	Close() error
}

// frame lays the message out as a CAN identifier and payload. The command
// occupies the first two payload bytes, little endian.
func (msg *CANMsg) frame() (id uint32, data []byte, err error) {
	if len(msg.Data) > MSG_MAX_DATA {
		return 0, nil, ERR_DATA_TOO_LONG
	}

	id = msg.ID & CAN_EFF_MASK
	if id > CAN_SFF_MASK {
		id |= CAN_EFF_FLAG
	}

	data = make([]byte, cmdLength+len(msg.Data))
	binary.LittleEndian.PutUint16(data[0:cmdLength], msg.Cmd)
	copy(data[cmdLength:], msg.Data)

	return
}

func msgFromFrame(id uint32, data []byte) (*CANMsg, error) {
	if id&(CAN_ERR_FLAG|CAN_RTR_FLAG) != 0 || len(data) < cmdLength || len(data) > CAN_MAX_DLEN {
		return nil, ERR_BAD_FRAME
	}

	msg := new(CANMsg)
	if id&CAN_EFF_FLAG != 0 {
		msg.ID = id & CAN_EFF_MASK
	} else {
		msg.ID = id & CAN_SFF_MASK
	}
	msg.Cmd = binary.LittleEndian.Uint16(data[0:cmdLength])
	msg.Data = append([]byte(nil), data[cmdLength:]...)

	return msg, nil
}

// toByteArray encodes the message as a SocketCAN struct can_frame.
func (msg *CANMsg) toByteArray() (raw []byte, err error) {
	id, data, err := msg.frame()
	if err != nil {
		return nil, err
	}

	raw = make([]byte, CAN_MTU)
	binary.LittleEndian.PutUint32(raw[0:4], id)
	raw[4] = byte(len(data))
	copy(raw[8:], data)

	return
}

func msgFromByteArray(raw []byte) (*CANMsg, error) {
	if len(raw) < CAN_MTU {
		return nil, ERR_BAD_FRAME
	}

	dlc := int(raw[4])
	if dlc > CAN_MAX_DLEN {
		return nil, ERR_BAD_FRAME
	}

	return msgFromFrame(binary.LittleEndian.Uint32(raw[0:4]), raw[8:8+dlc])
}

// listeners routes received messages to the channel registered for their node.
type listeners struct {
	lock sync.RWMutex
	rx   map[uint32]chan CANMsg
}

func (l *listeners) AddListener(nodeId uint32, rxchan chan CANMsg) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if l.rx == nil {
		l.rx = make(map[uint32]chan CANMsg)
	}
	l.rx[nodeId] = rxchan
}

func (l *listeners) dispatch(msg CANMsg) {
	// frames from another host are not for us
	if msg.ID&CANHostFlag != 0 {
		return
	}

	l.lock.RLock()
	c, ok := l.rx[msg.ID]
	l.lock.RUnlock()

	if !ok || c == nil {
		return
	}

	// a node that stopped reading must not stall the bus reader
	select {
	case c <- msg:
	default:
	}
}
