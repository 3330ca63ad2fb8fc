package geometry

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

// Pose is an oriented point in the plane.
type Pose struct {
	X, Y    float64 // meters
	Heading float64 // radians, (-π, π]
}

// Identity is the origin pose with zero heading.
var Identity = Pose{}

// NormalizeAngle maps an angle in radians to (-π, π].
func NormalizeAngle(a float64) float64 {
	if math.IsNaN(a) || math.IsInf(a, 0) {
		return a
	}
	if a > -math.Pi && a <= math.Pi {
		return a
	}
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// Point returns the position of the pose.
func (p Pose) Point() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// Compose applies a displacement expressed in the frame of p and returns
// the resulting global pose.
func (p Pose) Compose(d Pose) Pose {
	c, s := math.Cos(p.Heading), math.Sin(p.Heading)
	return Pose{
		X:       p.X + c*d.X - s*d.Y,
		Y:       p.Y + s*d.X + c*d.Y,
		Heading: NormalizeAngle(p.Heading + d.Heading),
	}
}

// ToLocal expresses the global pose g in the frame whose origin is p.
// It is the inverse of Compose: p.Compose(p.ToLocal(g)) == g.
func (p Pose) ToLocal(g Pose) Pose {
	c, s := math.Cos(p.Heading), math.Sin(p.Heading)
	dx, dy := g.X-p.X, g.Y-p.Y
	return Pose{
		X:       c*dx + s*dy,
		Y:       -s*dx + c*dy,
		Heading: NormalizeAngle(g.Heading - p.Heading),
	}
}

// Offset moves the pose sideways by lateral meters along its left normal.
func (p Pose) Offset(lateral float64) Pose {
	return Pose{
		X:       p.X - lateral*math.Sin(p.Heading),
		Y:       p.Y + lateral*math.Cos(p.Heading),
		Heading: p.Heading,
	}
}

func (p Pose) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.2f°)", p.X, p.Y, p.Heading*180/math.Pi)
}
