package onboard

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/smartystreets/goconvey/convey"
)

const kPoseTolerance = 1e-9

func TestPose(t *testing.T) {
	Convey("starting at the origin facing +Y", t, func() {
		var p Pose
		So(p.Direction().ApproxEqualThreshold(mgl64.Vec2{0, 1}, kPoseTolerance), ShouldBeTrue)

		Convey("equal speeds drive straight", func() {
			p = p.Integrate(10, 10, 24, 0.5)
			So(p.Position.ApproxEqualThreshold(mgl64.Vec2{0, 5}, kPoseTolerance), ShouldBeTrue)
			So(p.Heading, ShouldEqual, 0)
		})

		Convey("opposite speeds turn on the spot clockwise", func() {
			p = p.Integrate(12, -12, 24, math.Pi/2)
			So(p.Position.Len(), ShouldAlmostEqual, 0, kPoseTolerance)
			So(p.HeadingDegrees(), ShouldAlmostEqual, 90, kPoseTolerance)
			So(p.Direction().ApproxEqualThreshold(mgl64.Vec2{1, 0}, kPoseTolerance), ShouldBeTrue)
		})

		Convey("a quarter circle in one step lands on the arc chord", func() {
			// radius 12 arc, left side outside
			p = p.Integrate(18*math.Pi/2, 6*math.Pi/2, 12, 1)
			So(p.HeadingDegrees(), ShouldAlmostEqual, 90, 1e-6)
			So(p.Position.X(), ShouldBeGreaterThan, 0)
			So(p.Position.Y(), ShouldBeGreaterThan, 0)
		})

		Convey("no time passing changes nothing", func() {
			So(p.Integrate(10, -10, 24, 0), ShouldResemble, p)
			So(p.Integrate(10, -10, 0, 1), ShouldResemble, p)
		})
	})
}
