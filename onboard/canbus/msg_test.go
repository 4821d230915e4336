package canbus

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCANMsg_toByteArray(t *testing.T) {
	Convey("Standard frame format encodes correctly", t, func() {
		msg := &CANMsg{
			ID:   0x123,
			Cmd:  0x1234,
			Data: []byte{0xAA, 0xBB},
		}
		raw, err := msg.toByteArray()
		So(err, ShouldBeNil)
		So(raw, ShouldHaveLength, CAN_MTU)

		Convey("ID gets set correctly", func() {
			So(raw[0:4], ShouldResemble, []byte{0x23, 0x01, 0x00, 0x00})
		})

		Convey("Data length includes the command", func() {
			So(raw[4], ShouldEqual, 4)
		})

		Convey("Command leads the payload", func() {
			So(raw[8:], ShouldResemble, []byte{0x34, 0x12, 0xAA, 0xBB, 0x00, 0x00, 0x00, 0x00})
		})
	})

	Convey("IDs beyond 11 bits use the extended frame format", t, func() {
		msg := &CANMsg{ID: 0x12345}
		raw, err := msg.toByteArray()
		So(err, ShouldBeNil)
		So(raw[0:4], ShouldResemble, []byte{0x45, 0x23, 0x01, 0x80})
	})

	Convey("More than six data bytes are refused", t, func() {
		msg := &CANMsg{ID: 1, Data: make([]byte, 7)}
		_, err := msg.toByteArray()
		So(err, ShouldEqual, ERR_DATA_TOO_LONG)
	})
}

func TestMsgFromByteArray(t *testing.T) {
	Convey("A frame decodes back into the message", t, func() {
		for _, msg := range []CANMsg{
			{ID: 0x010, Cmd: 0x0110, Data: []byte{1, 2, 3, 4, 5, 6}},
			{ID: 0x1ABCDEF, Cmd: 0x03E0, Data: []byte{9}},
		} {
			raw, err := msg.toByteArray()
			So(err, ShouldBeNil)

			out, err := msgFromByteArray(raw)
			So(err, ShouldBeNil)
			So(*out, ShouldResemble, msg)
		}
	})

	Convey("Error, remote and short frames are dropped", t, func() {
		raw := make([]byte, CAN_MTU)
		raw[4] = 2
		raw[3] = 0x20
		_, err := msgFromByteArray(raw)
		So(err, ShouldEqual, ERR_BAD_FRAME)

		raw[3] = 0
		raw[4] = 1
		_, err = msgFromByteArray(raw)
		So(err, ShouldEqual, ERR_BAD_FRAME)

		_, err = msgFromByteArray(raw[:8])
		So(err, ShouldEqual, ERR_BAD_FRAME)
	})
}

func TestListeners(t *testing.T) {
	Convey("Messages are routed by node", t, func() {
		var l listeners
		a := make(chan CANMsg, 1)
		b := make(chan CANMsg, 1)
		l.AddListener(1, a)
		l.AddListener(2, b)

		l.dispatch(CANMsg{ID: 2, Cmd: 7})
		So(b, ShouldHaveLength, 1)
		So(a, ShouldHaveLength, 0)
		So((<-b).Cmd, ShouldEqual, 7)

		Convey("frames from other hosts and unknown nodes are ignored", func() {
			done := make(chan struct{})
			go func() {
				l.dispatch(CANMsg{ID: 1 | CANHostFlag})
				l.dispatch(CANMsg{ID: 3})
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("dispatch blocked")
			}
			So(a, ShouldHaveLength, 0)
		})

		Convey("a listener that stopped reading drops frames", func() {
			done := make(chan struct{})
			go func() {
				for i := 0; i < 4; i++ {
					l.dispatch(CANMsg{ID: 1, Cmd: uint16(i)})
				}
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("dispatch blocked")
			}
			So(a, ShouldHaveLength, 1)
			So((<-a).Cmd, ShouldEqual, 0)
		})
	})
}

func BenchmarkCANMsg_toByteArray(b *testing.B) {
	msg := &CANMsg{
		ID:   0x7ff,
		Cmd:  0x0001,
		Data: make([]byte, 6),
	}

	for n := 0; n < b.N; n++ {
		msg.toByteArray()
	}
}

func BenchmarkMsgFromByteArray(b *testing.B) {
	msg := &CANMsg{
		ID:   0x7ff,
		Cmd:  0x0001,
		Data: make([]byte, 6),
	}
	raw, _ := msg.toByteArray()

	for n := 0; n < b.N; n++ {
		msgFromByteArray(raw)
	}
}
