// Package comms connects driver stations to the robot over websockets.
package comms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/CodedInternet/godrivetrain/onboard"
	"github.com/gorilla/websocket"
)

const (
	FRAMERATE     = 20
	CLIENT_BUFFER = 8
	WRITE_TIMEOUT = time.Second
)

var (
	ErrUnknownCmd = errors.New("unknown command")
	ErrReadOnly   = errors.New("this connection only receives state")
)

type Cmd struct {
	Cmd       string  `json:"cmd"`
	Name      string  `json:"name,omitempty"`
	Value     float64 `json:"value,omitempty"`
	Throttle  float64 `json:"throttle,omitempty"`
	Wheel     float64 `json:"wheel,omitempty"`
	QuickTurn bool    `json:"quick_turn,omitempty"`
}

// Robot is the part of the robot driver stations can reach.
type Robot interface {
	SetInput(in onboard.DriverInput) error
	Teleop() error
	Disable() error
	SetHighGear(highGear bool) error
	SetBrake(on bool) error
	SetPizzaWheel(down bool) error
	ResetGyro() error
	StartRoutine(name string) error
	State() onboard.RobotState
}

type Conductor struct {
	Robot Robot

	lock    sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewConductor(robot Robot) *Conductor {
	return &Conductor{
		Robot:   robot,
		clients: make(map[*client]struct{}),
	}
}

// ProcessCommand applies a single driver station command.
func (c *Conductor) ProcessCommand(cmd Cmd) error {
	switch cmd.Cmd {
	case "drive":
		return c.Robot.SetInput(onboard.DriverInput{
			Throttle:  cmd.Throttle,
			Wheel:     cmd.Wheel,
			QuickTurn: cmd.QuickTurn,
		})

	case "shift":
		return c.Robot.SetHighGear(cmd.Value != 0)

	case "brake":
		return c.Robot.SetBrake(cmd.Value != 0)

	case "pizza_wheel":
		return c.Robot.SetPizzaWheel(cmd.Value != 0)

	case "auto":
		return c.Robot.StartRoutine(cmd.Name)

	case "teleop":
		return c.Robot.Teleop()

	case "disable":
		return c.Robot.Disable()

	case "reset_gyro":
		return c.Robot.ResetGyro()

	default:
		return fmt.Errorf("%w: %q", ErrUnknownCmd, cmd.Cmd)
	}
}

// ServeClient registers conn for state updates and, unless readOnly, applies
// the commands it sends, replying to each. Returns when the connection closes.
func (c *Conductor) ServeClient(conn *websocket.Conn, readOnly bool) {
	cl := &client{
		conn: conn,
		send: make(chan []byte, CLIENT_BUFFER),
	}

	c.lock.Lock()
	c.clients[cl] = struct{}{}
	c.lock.Unlock()

	done := make(chan struct{})
	go cl.writer(done)

	defer func() {
		c.lock.Lock()
		delete(c.clients, cl)
		c.lock.Unlock()
		close(done)
		conn.Close()

		// a lost driver station must not leave its last stick position applied
		if !readOnly {
			if err := c.Robot.SetInput(onboard.DriverInput{}); err != nil {
				log.Printf("comms: clearing input after disconnect: %v", err)
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("comms: client read failed: %v", err)
			}
			return
		}

		var cmd Cmd
		reply := Reply{OK: true}
		if err = json.Unmarshal(msg, &cmd); err != nil {
			err = fmt.Errorf("invalid json: %w", err)
		} else if readOnly {
			err = ErrReadOnly
		} else {
			err = c.ProcessCommand(cmd)
		}

		reply.Cmd = cmd.Cmd
		if err != nil {
			reply.OK = false
			reply.Error = err.Error()
		}

		raw, _ := json.Marshal(reply)
		cl.queue(raw)
	}
}

// queue drops the message when the client is not keeping up.
func (cl *client) queue(msg []byte) {
	select {
	case cl.send <- msg:
	default:
	}
}

func (cl *client) writer(done chan struct{}) {
	for {
		select {
		case msg := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				cl.conn.Close()
				return
			}
		case <-done:
			return
		}
	}
}

// UpdateClients broadcasts the robot state at FRAMERATE until ctx is done.
func (c *Conductor) UpdateClients(ctx context.Context) {
	ticker := time.NewTicker(time.Second / FRAMERATE)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			msg, err := json.Marshal(StatePayload{
				RobotState: c.Robot.State(),
				Time:       now,
			})
			if err != nil {
				log.Printf("comms: encoding state: %v", err)
				continue
			}
			c.broadcast(msg)

		case <-ctx.Done():
			return
		}
	}
}

func (c *Conductor) broadcast(msg []byte) {
	c.lock.Lock()
	defer c.lock.Unlock()

	for cl := range c.clients {
		cl.queue(msg)
	}
}

// Clients is the number of connected clients.
func (c *Conductor) Clients() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.clients)
}
