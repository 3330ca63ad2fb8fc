package geometry

import (
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/optimize"
)

// sweepTolerance is the slack, in radians of swept angle, allowed when
// deciding whether a nearest point lies inside a variable arc.
const sweepTolerance = 1e-7

// spiral is the left-turning centerline of a VariableArc: the curvature
// center stays at (0, r0) and the distance from it grows linearly with
// the swept angle, reaching r1 after sweep radians. This is the curve
// whose end point Displacement computes.
type spiral struct {
	r0, r1 float64
	sweep  float64 // > 0
}

func (s spiral) radius(phi float64) float64 {
	return s.r0 + (s.r1-s.r0)*phi/s.sweep
}

func (s spiral) at(phi float64) r2.Point {
	r := s.radius(phi)
	return r2.Point{X: r * math.Sin(phi), Y: s.r0 - r*math.Cos(phi)}
}

// tangent is dP/dφ.
func (s spiral) tangent(phi float64) r2.Point {
	k := (s.r1 - s.r0) / s.sweep
	r := s.radius(phi)
	sin, cos := math.Sin(phi), math.Cos(phi)
	return r2.Point{X: k*sin + r*cos, Y: -k*cos + r*sin}
}

// nearest returns the swept angle of the centerline point closest to q,
// starting from the polar angle of q around the curvature center.
func (s spiral) nearest(q r2.Point) float64 {
	guess := clamp(math.Atan2(q.X, s.r0-q.Y), 0, s.sweep)
	dist2 := func(phi float64) float64 {
		d := s.at(phi).Sub(q)
		return d.Dot(d)
	}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return dist2(x[0])
		},
		Grad: func(grad, x []float64) {
			d := s.at(x[0]).Sub(q)
			grad[0] = 2 * d.Dot(s.tangent(x[0]))
		},
	}
	result, err := optimize.Minimize(problem, []float64{guess}, nil, &optimize.BFGS{})
	if result == nil || len(result.X) == 0 || math.IsNaN(result.X[0]) {
		return guess
	}
	phi := result.X[0]
	if err != nil && dist2(phi) > dist2(guess) {
		return guess
	}
	return phi
}

// Project finds the nearest point on the spiral centerline numerically.
// The heading error is measured against the swept polar angle at that
// point, not the spiral's true tangent, matching the heading convention
// of Step; the two differ where the radius changes quickly.
func (v VariableArc) Project(local Pose) (Projection, bool) {
	sign := 1.0
	q := r2.Point{X: local.X, Y: local.Y}
	heading := local.Heading
	if v.Arc < 0 {
		// Mirror a right turn onto the equivalent left turn.
		sign = -1
		q.Y = -q.Y
		heading = -heading
	}
	s := spiral{r0: v.RadiusStart, r1: v.RadiusEnd, sweep: math.Abs(v.Arc)}

	phi := s.nearest(q)
	if phi < -sweepTolerance || phi > s.sweep+sweepTolerance {
		return Projection{}, false
	}
	phi = clamp(phi, 0, s.sweep)

	foot := s.at(phi)
	d := q.Sub(foot)
	offset := d.Norm()
	if s.tangent(phi).Cross(d) < 0 {
		offset = -offset
	}
	return Projection{
		Offset:       sign * offset,
		HeadingError: NormalizeAngle(sign * (heading - phi)),
	}, true
}
