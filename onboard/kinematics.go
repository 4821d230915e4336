package onboard

import "github.com/go-gl/mathgl/mgl64"

// Pose is a position on the field in inches and a heading in radians,
// clockwise from the +Y axis. Heading is not wrapped.
type Pose struct {
	Position mgl64.Vec2
	Heading  float64
}

// HeadingDegrees matches the gyro convention.
func (p Pose) HeadingDegrees() float64 {
	return mgl64.RadToDeg(p.Heading)
}

// Direction is the unit vector the robot is facing.
func (p Pose) Direction() mgl64.Vec2 {
	return mgl64.Rotate2D(-p.Heading).Mul2x1(mgl64.Vec2{0, 1})
}

// Integrate advances a differential drive by dt seconds with the given side
// speeds in inches per second. The midpoint heading is used for the
// translation so constant arcs stay on the circle.
func (p Pose) Integrate(left, right, track, dt float64) Pose {
	if dt <= 0 || track <= 0 {
		return p
	}

	v := (left + right) / 2
	omega := (left - right) / track

	mid := Pose{Heading: p.Heading + omega*dt/2}

	return Pose{
		Position: p.Position.Add(mid.Direction().Mul(v * dt)),
		Heading:  p.Heading + omega*dt,
	}
}
