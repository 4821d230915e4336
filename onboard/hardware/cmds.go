package hardware

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"github.com/CodedInternet/godrivetrain/onboard/canbus"
)

const (
	CMD_ALLSTOP         = 0x0000
	CMD_UPDATE_INTERVAL = 0x0030
	CMD_SENSOR_UPDATE   = 0x0110 // node -> host: encoder channel, int32 count
	CMD_HEADING_UPDATE  = 0x0120 // node -> host: int32 millidegrees
	CMD_INPUT_UPDATE    = 0x0130 // node -> host: digital input bitmask
	CMD_SET_POWER       = 0x0200 // | channel: int16 scaled power, no ack
	CMD_SET_SOLENOID    = 0x0210 // channel, SolenoidValue, no ack
	CMD_SOLENOID_UPDATE = 0x0220 // node -> host: channel, SolenoidValue
	CMD_VERSION         = 0x03E0

	CMD_POWER_CHANNELS = 0x10

	CMD_MAX_RETRIES = 5
	CMD_TIMEOUT     = 20 * time.Millisecond
)

var (
	ERR_MAX_RETRIES = errors.New("CMD_MAX_RETRIES reached while attempting to send")
	ERR_SEND_ABORT  = errors.New("send has been aborted")
	ERR_CMD_PENDING = errors.New("a command with the same id is already awaiting acknowledgement")
)

// BaseCommand is a request that the node must acknowledge.
type BaseCommand struct {
	node *ControlNode
	msg  canbus.CANMsg

	// anyReply accepts the first response regardless of its payload
	anyReply bool

	ack       chan canbus.CANMsg
	abort     chan struct{}
	abortOnce sync.Once
}

// Sends the current command and waits for a response/acknowledgment from the node.
// Will retry commands that are not acknowledged within CMD_TIMEOUT up to CMD_MAX_RETRIES.
// Can be canceled with Abort.
// Returns the response to the message for upstream processing should it be necessary
// Returns an error if the maximum retries are reached without an acknowledgement.
func (c *BaseCommand) Process() (resp canbus.CANMsg, err error) {
	if c.ack == nil {
		c.ack = make(chan canbus.CANMsg, 1)
	}
	if c.abort == nil {
		c.abort = make(chan struct{})
	}

	// register the callback with the node
	if err = c.node.addPending(c); err != nil {
		return
	}
	defer c.node.removePending(c)

	msg := c.Msg()
	for i := 0; i < CMD_MAX_RETRIES; i++ {
		if err = c.node.SendMsg(msg); err != nil {
			return resp, err
		}

		timeout := time.After(CMD_TIMEOUT)
	waiting:
		for {
			select {
			case resp = <-c.ack:
				// a stale response leaves us waiting on this attempt
				if c.verify(resp) {
					return resp, nil
				}

			case <-c.abort:
				return resp, ERR_SEND_ABORT

			case <-timeout:
				break waiting
			}
		}
	}

	// we have exhausted MAX_RETRIES
	return resp, ERR_MAX_RETRIES
}

func (c *BaseCommand) verify(msg canbus.CANMsg) bool {
	return c.anyReply || bytes.Equal(c.msg.Data, msg.Data)
}

// ID is the key responses are matched on.
func (c *BaseCommand) ID() uint16 {
	return c.msg.Cmd
}

func (c *BaseCommand) Msg() canbus.CANMsg {
	msg := c.msg
	msg.ID = c.node.id | canbus.CANHostFlag
	return msg
}

func (c *BaseCommand) Abort() error {
	if c.abort == nil {
		return errors.New("send not yet attempted")
	}

	c.abortOnce.Do(func() { close(c.abort) })
	return nil
}

// Ack hands a response to the waiting sender. Responses arriving while
// another is still unread are dropped.
func (c *BaseCommand) Ack(msg canbus.CANMsg) {
	select {
	case c.ack <- msg:
	default:
	}
}

func (n *ControlNode) command(cmd uint16, data []byte) *BaseCommand {
	return &BaseCommand{
		node: n,
		msg: canbus.CANMsg{
			Cmd:  cmd,
			Data: data,
		},
	}
}

// versionCommand requests the firmware version string.
func (n *ControlNode) versionCommand() *BaseCommand {
	c := n.command(CMD_VERSION, nil)
	c.anyReply = true
	return c
}
