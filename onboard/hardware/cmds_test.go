package hardware

import (
	"testing"

	"github.com/CodedInternet/godrivetrain/onboard/canbus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBaseCommand(t *testing.T) {
	Convey("without sending abort errors", t, func() {
		cmd := &BaseCommand{}
		err := cmd.Abort()
		So(err, ShouldNotBeNil)
	})

	Convey("given a command for a node", t, func() {
		tBus, tNode := createTestNodeBus()
		cmd := tNode.command(0x0040, []byte{1, 2})

		Convey("the message is addressed from the host", func() {
			So(cmd.Msg().ID, ShouldEqual, tNode.id|canbus.CANHostFlag)
		})

		Convey("SendAndACK tries multiple times before timing out", func() {
			_, err := cmd.Process()
			So(err, ShouldEqual, ERR_MAX_RETRIES)
			_, count := tBus.last()
			So(count, ShouldEqual, CMD_MAX_RETRIES)
		})

		Convey("aborting returns correct error and does not send till max", func() {
			// need to create the channel manually else Abort will error
			cmd.abort = make(chan struct{})
			cmd.Abort()
			_, err := cmd.Process()
			So(err, ShouldEqual, ERR_SEND_ABORT)
			_, count := tBus.last()
			So(count, ShouldBeLessThan, CMD_MAX_RETRIES)
		})

		Convey("successful send with ACK writes without an err", func() {
			tBus.set(func(t *testBus) { t.rxecho = true })
			resp, err := cmd.Process()
			So(err, ShouldBeNil)
			So(resp.ID, ShouldEqual, tNode.id)
			last, count := tBus.last()
			So(last, ShouldResemble, cmd.Msg())
			So(count, ShouldEqual, 1)
		})

		Convey("mismatched replies are not taken as an ACK", func() {
			cmd.ack = make(chan canbus.CANMsg, 1)
			cmd.Ack(canbus.CANMsg{ID: tNode.id, Cmd: 0x0040, Data: []byte{9}})
			_, err := cmd.Process()
			So(err, ShouldEqual, ERR_MAX_RETRIES)
		})

		Convey("only one command per id may be outstanding", func() {
			So(tNode.addPending(tNode.command(0x0040, nil)), ShouldBeNil)
			_, err := cmd.Process()
			So(err, ShouldEqual, ERR_CMD_PENDING)
		})

		Reset(func() {
			tNode.Close()
		})
	})
}
