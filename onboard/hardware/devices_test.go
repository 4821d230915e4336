package hardware

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/CodedInternet/godrivetrain/onboard/device"
	. "github.com/smartystreets/goconvey/convey"
)

func int32Bytes(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func TestDevices(t *testing.T) {
	Convey("with a node on a test bus", t, func() {
		tBus, node := createTestNodeBus()

		Convey("speed controllers send scaled power without waiting", func() {
			m, err := node.SpeedController(3)
			So(err, ShouldBeNil)

			m.Set(-0.5)
			last, count := tBus.last()
			So(count, ShouldEqual, 1)
			So(last.Cmd, ShouldEqual, CMD_SET_POWER|3)
			So(int16(binary.LittleEndian.Uint16(last.Data)), ShouldEqual, -16384)
			So(m.Get(), ShouldEqual, -0.5)

			m.Set(4)
			last, _ = tBus.last()
			So(int16(binary.LittleEndian.Uint16(last.Data)), ShouldEqual, math.MaxInt16)
			So(m.Get(), ShouldEqual, 1)

			m.Set(math.NaN())
			So(m.Get(), ShouldEqual, 0)

			_, err = node.SpeedController(CMD_POWER_CHANNELS)
			So(err, ShouldNotBeNil)
		})

		Convey("a failed power write does not block", func() {
			tBus.set(func(t *testBus) { t.txerr = true })
			m, _ := node.SpeedController(0)
			So(func() { m.Set(1) }, ShouldNotPanic)
		})

		Convey("double solenoids report the node position once known", func() {
			s := node.DoubleSolenoid(2)
			s.Set(device.SolenoidForward)

			last, _ := tBus.last()
			So(last.Cmd, ShouldEqual, CMD_SET_SOLENOID)
			So(last.Data, ShouldResemble, []byte{2, byte(device.SolenoidForward)})
			So(s.Get(), ShouldEqual, device.SolenoidForward)

			tBus.inject(node, CMD_SOLENOID_UPDATE, []byte{2, byte(device.SolenoidReverse)})
			So(settle(func() bool { return s.Get() == device.SolenoidReverse }), ShouldBeTrue)
		})

		Convey("single solenoids map on to forward and off", func() {
			s := node.Solenoid(1)
			s.Set(true)
			last, _ := tBus.last()
			So(last.Data, ShouldResemble, []byte{1, byte(device.SolenoidForward)})
			So(s.Get(), ShouldBeTrue)

			s.Set(false)
			last, _ = tBus.last()
			So(last.Data, ShouldResemble, []byte{1, byte(device.SolenoidOff)})
			So(s.Get(), ShouldBeFalse)
		})

		Convey("encoders follow sensor updates and reset locally", func() {
			e := node.Encoder(1)
			tBus.inject(node, CMD_SENSOR_UPDATE, append([]byte{1}, int32Bytes(-300)...))
			So(settle(func() bool { return e.Get() == -300 }), ShouldBeTrue)

			e.Reset()
			So(e.Get(), ShouldEqual, 0)

			tBus.inject(node, CMD_SENSOR_UPDATE, append([]byte{1}, int32Bytes(-250)...))
			So(settle(func() bool { return e.Get() == 50 }), ShouldBeTrue)

			Convey("other channels are unaffected", func() {
				So(node.Encoder(0).Get(), ShouldEqual, 0)
			})
		})

		Convey("the gyro reads millidegrees and resets locally", func() {
			g := node.Gyro()
			tBus.inject(node, CMD_HEADING_UPDATE, int32Bytes(-90500))
			So(settle(func() bool { return g.GetAngle() == -90.5 }), ShouldBeTrue)

			g.Reset()
			So(g.GetAngle(), ShouldEqual, 0)
		})

		Convey("digital inputs read their bit", func() {
			bump, err := node.DigitalInput(2)
			So(err, ShouldBeNil)
			other, _ := node.DigitalInput(0)

			tBus.inject(node, CMD_INPUT_UPDATE, []byte{0x04})
			So(settle(bump.Get), ShouldBeTrue)
			So(other.Get(), ShouldBeFalse)

			_, err = node.DigitalInput(8)
			So(err, ShouldNotBeNil)
		})

		Convey("short status frames are ignored", func() {
			e := node.Encoder(0)
			tBus.inject(node, CMD_SENSOR_UPDATE, []byte{0, 1})
			tBus.inject(node, CMD_SENSOR_UPDATE, append([]byte{0}, int32Bytes(7)...))
			So(settle(func() bool { return e.Get() == 7 }), ShouldBeTrue)
		})

		Reset(func() {
			node.Close()
		})
	})
}

func BenchmarkSpeedController_Set(b *testing.B) {
	_, node := createTestNodeBus()
	defer node.Close()
	m, _ := node.SpeedController(0)

	for n := 0; n < b.N; n++ {
		m.Set(0.5)
	}
}
