package hardware

import (
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/CodedInternet/godrivetrain/onboard/canbus"
	deverrors "github.com/CodedInternet/godrivetrain/onboard/errors"
	. "github.com/smartystreets/goconvey/convey"
)

type testBus struct {
	lock sync.Mutex

	txerr, rxecho bool
	version       string
	txCount       int
	lastTx        canbus.CANMsg
	listeners     map[uint32]chan canbus.CANMsg
}

func newTestBus() *testBus {
	return &testBus{
		listeners: make(map[uint32]chan canbus.CANMsg),
	}
}

func (t *testBus) AddListener(nodeId uint32, rxchan chan canbus.CANMsg) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.listeners[nodeId] = rxchan
}

func (t *testBus) SendMsg(msg canbus.CANMsg) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.lastTx = msg
	t.txCount++
	if t.txerr {
		return errors.New("this is a simulated tx error")
	}

	reply := msg
	reply.ID = msg.ID &^ canbus.CANHostFlag

	if msg.Cmd == CMD_VERSION && t.version != "" {
		reply.Data = []byte(t.version)
	} else if !t.rxecho {
		return nil
	}

	c, ok := t.listeners[reply.ID]
	if !ok || c == nil {
		return errors.New("unable to find listener")
	}
	c <- reply // echo back for ACK

	return nil
}

func (t *testBus) Close() error {
	return nil
}

func (t *testBus) set(f func(t *testBus)) {
	t.lock.Lock()
	defer t.lock.Unlock()
	f(t)
}

func (t *testBus) last() (msg canbus.CANMsg, count int) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.lastTx, t.txCount
}

// inject delivers a status frame as if the node had sent it.
func (t *testBus) inject(n *ControlNode, cmd uint16, data []byte) {
	t.lock.Lock()
	c := t.listeners[n.id]
	t.lock.Unlock()

	c <- canbus.CANMsg{ID: n.id, Cmd: cmd, Data: data}
}

func createTestNodeBus() (tBus *testBus, tNode *ControlNode) {
	tBus = newTestBus()
	tNode, err := newControlNode(tBus, 0x010)
	if err != nil {
		panic(err)
	}
	return
}

// settle waits for the node listener to fold in injected frames.
func settle(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func TestNewControlNode(t *testing.T) {
	Convey("given a bus with a node on it", t, func() {
		tBus := newTestBus()

		Convey("a compatible version is accepted", func() {
			tBus.version = "0.2.3"
			node, err := NewControlNode(tBus, 0x010, false)
			So(err, ShouldBeNil)
			So(node.ID(), ShouldEqual, 0x010)
			So(tBus.listeners[0x010], ShouldNotBeNil)
			So(tBus.lastTx.ID, ShouldEqual, 0x010|canbus.CANHostFlag)
			So(tBus.lastTx.Cmd, ShouldEqual, CMD_VERSION)
			node.Close()
		})

		Convey("an incompatible version is refused", func() {
			tBus.version = "0.3.0"
			_, err := NewControlNode(tBus, 0x010, false)

			var versionErr deverrors.NodeVersionError
			So(errors.As(err, &versionErr), ShouldBeTrue)
			So(versionErr.Version, ShouldEqual, "0.3.0")
		})

		Convey("commit builds are refused", func() {
			tBus.version = "a1b2c3"
			_, err := NewControlNode(tBus, 0x010, false)
			So(err, ShouldHaveSameTypeAs, deverrors.NodeVersionError{})
		})

		Convey("development firmware needs to be allowed", func() {
			tBus.version = NODE_DEV
			_, err := NewControlNode(tBus, 0x010, false)
			So(err, ShouldNotBeNil)

			node, err := NewControlNode(tBus, 0x010, true)
			So(err, ShouldBeNil)
			node.Close()
		})

		Convey("a silent node times out", func() {
			_, err := NewControlNode(tBus, 0x010, false)
			So(errors.Is(err, ERR_MAX_RETRIES), ShouldBeTrue)
			So(tBus.txCount, ShouldEqual, CMD_MAX_RETRIES)
		})

		Convey("addresses must leave room for the host flag", func() {
			_, err := NewControlNode(tBus, canbus.CANHostFlag, false)
			So(err, ShouldNotBeNil)
			So(tBus.txCount, ShouldEqual, 0)
		})
	})
}

func TestControlNode(t *testing.T) {
	Convey("with a node on a test bus", t, func() {
		tBus, node := createTestNodeBus()

		Convey("sending a message goes through correctly", func() {
			msg := canbus.CANMsg{
				ID:  0xDEAD,
				Cmd: 0xBEEF,
			}

			node.SendMsg(msg)

			last, _ := tBus.last()
			So(last, ShouldResemble, msg)
		})

		Convey("acknowledged commands", func() {
			tBus.set(func(t *testBus) { t.rxecho = true })

			Convey("all stop issues the stop command", func() {
				err := node.AllStop()

				So(err, ShouldBeNil)
				last, _ := tBus.last()
				So(last.Cmd, ShouldEqual, CMD_ALLSTOP)
			})

			Convey("update interval is sent in milliseconds", func() {
				err := node.SetUpdateInterval(20 * time.Millisecond)

				So(err, ShouldBeNil)
				last, _ := tBus.last()
				So(last.Cmd, ShouldEqual, CMD_UPDATE_INTERVAL)
				So(binary.LittleEndian.Uint16(last.Data), ShouldEqual, 20)
			})

			Convey("intervals below a millisecond are refused", func() {
				So(node.SetUpdateInterval(time.Microsecond), ShouldNotBeNil)
			})
		})

		Convey("closing aborts outstanding commands", func() {
			result := make(chan error)
			go func() {
				result <- node.AllStop()
			}()

			settle(func() bool {
				_, count := tBus.last()
				return count > 0
			})
			node.Close()

			So(<-result, ShouldEqual, ERR_SEND_ABORT)
		})

		Reset(func() {
			node.Close()
		})
	})
}
