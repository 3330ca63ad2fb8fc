package geometry

import (
	"errors"
	"fmt"
	"math"
)

// Boundary slack for the longitudinal extent checks, so that the end pose
// produced by Step still projects onto its own segment.
const (
	lengthTolerance = 1e-9 // meters
	angleTolerance  = 1e-9 // radians
)

// ErrInvalidGeometry reports a segment whose dimensions cannot describe a
// path: a non-positive or non-finite length or radius, or a zero arc.
var ErrInvalidGeometry = errors.New("invalid segment geometry")

// Kind identifies the shape of a Segment.
type Kind int

const (
	KindStraight Kind = iota
	KindConstantArc
	KindVariableArc
)

func (k Kind) String() string {
	switch k {
	case KindStraight:
		return "straight"
	case KindConstantArc:
		return "arc"
	case KindVariableArc:
		return "variable_arc"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Segment is one geometric primitive of a track. The set of
// implementations is closed: Straight, ConstantArc and VariableArc.
//
// Step advances a pose across the segment. Project takes a pose expressed
// in the segment's local frame (origin at the segment start, x along the
// direction of travel) and reports the signed lateral offset and heading
// error, or false when the pose lies outside the segment's longitudinal
// extent.
type Segment interface {
	Kind() Kind
	Displacement() Pose
	Step(p Pose) Pose
	Project(local Pose) (Projection, bool)
	Validate() error

	sealed()
}

// Projection is the position of a pose relative to a segment centerline.
type Projection struct {
	Offset       float64 // signed lateral offset, positive to the left
	HeadingError float64 // pose heading minus centerline tangent, (-π, π]
}

// Straight is a straight run of the given length.
type Straight struct {
	Length float64
}

// ConstantArc is a circular turn. A positive Arc turns left around the
// local center (0, Radius); a negative Arc turns right around (0, -Radius).
type ConstantArc struct {
	Arc    float64 // radians, signed
	Radius float64 // meters
}

// VariableArc is a turn whose radius changes from RadiusStart to RadiusEnd.
// The sign of Arc carries the turn direction as for ConstantArc.
type VariableArc struct {
	Arc         float64
	RadiusStart float64
	RadiusEnd   float64
}

func (Straight) sealed()    {}
func (ConstantArc) sealed() {}
func (VariableArc) sealed() {}

func (Straight) Kind() Kind    { return KindStraight }
func (ConstantArc) Kind() Kind { return KindConstantArc }
func (VariableArc) Kind() Kind { return KindVariableArc }

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

func validArc(a float64) bool {
	return a != 0 && !math.IsNaN(a) && !math.IsInf(a, 0)
}

// Validate reports ErrInvalidGeometry for a non-positive length.
func (s Straight) Validate() error {
	if !finitePositive(s.Length) {
		return fmt.Errorf("%w: straight length %v must be positive", ErrInvalidGeometry, s.Length)
	}
	return nil
}

// Validate reports ErrInvalidGeometry for a zero arc or non-positive radius.
func (a ConstantArc) Validate() error {
	if !validArc(a.Arc) {
		return fmt.Errorf("%w: arc angle %v must be non-zero", ErrInvalidGeometry, a.Arc)
	}
	if !finitePositive(a.Radius) {
		return fmt.Errorf("%w: arc radius %v must be positive", ErrInvalidGeometry, a.Radius)
	}
	return nil
}

// Validate reports ErrInvalidGeometry for a zero arc or a non-positive
// start or end radius.
func (v VariableArc) Validate() error {
	if !validArc(v.Arc) {
		return fmt.Errorf("%w: arc angle %v must be non-zero", ErrInvalidGeometry, v.Arc)
	}
	if !finitePositive(v.RadiusStart) || !finitePositive(v.RadiusEnd) {
		return fmt.Errorf("%w: radii (%v, %v) must be positive", ErrInvalidGeometry, v.RadiusStart, v.RadiusEnd)
	}
	return nil
}

// Displacement returns (Length, 0, 0).
func (s Straight) Displacement() Pose {
	return Pose{X: s.Length}
}

// Displacement returns the chord to the arc end point and the turn angle.
func (a ConstantArc) Displacement() Pose {
	dist := 2 * a.Radius * math.Abs(math.Sin(a.Arc/2))
	angle := a.Arc / 2
	return Pose{
		X:       math.Cos(angle) * dist,
		Y:       math.Sin(angle) * dist,
		Heading: a.Arc,
	}
}

// Displacement solves the triangle formed by the start curvature center,
// the start point and the end point with the law of cosines. Equal radii
// reduce to ConstantArc.
func (v VariableArc) Displacement() Pose {
	if v.RadiusStart == v.RadiusEnd {
		return ConstantArc{Arc: v.Arc, Radius: v.RadiusStart}.Displacement()
	}
	r0, r1 := v.RadiusStart, v.RadiusEnd
	dist := math.Sqrt(r0*r0 + r1*r1 - 2*r0*r1*math.Cos(v.Arc))
	if dist == 0 {
		return Pose{Heading: v.Arc}
	}
	cosAngle0 := (r0*r0 + dist*dist - r1*r1) / (2 * r0 * dist)
	angle := math.Pi/2 - math.Acos(clamp(cosAngle0, -1, 1))
	if v.Arc < 0 {
		angle = -angle
	}
	return Pose{
		X:       math.Cos(angle) * dist,
		Y:       math.Sin(angle) * dist,
		Heading: v.Arc,
	}
}

// Step composes the segment displacement onto p.
func (s Straight) Step(p Pose) Pose { return p.Compose(s.Displacement()) }

// Step composes the segment displacement onto p.
func (a ConstantArc) Step(p Pose) Pose { return p.Compose(a.Displacement()) }

// Step composes the segment displacement onto p.
func (v VariableArc) Step(p Pose) Pose { return p.Compose(v.Displacement()) }

// Project is valid for 0 <= x <= Length; the offset is y.
func (s Straight) Project(local Pose) (Projection, bool) {
	if local.X < -lengthTolerance || local.X > s.Length+lengthTolerance {
		return Projection{}, false
	}
	return Projection{
		Offset:       local.Y,
		HeadingError: NormalizeAngle(local.Heading),
	}, true
}

// Project measures the angle swept around the turn center and the radial
// distance from the centerline circle.
func (a ConstantArc) Project(local Pose) (Projection, bool) {
	x, y := local.X, local.Y
	if a.Arc > 0 {
		angle := math.Atan2(x, a.Radius-y)
		if angle < -angleTolerance || angle > a.Arc+angleTolerance {
			return Projection{}, false
		}
		return Projection{
			Offset:       a.Radius - math.Hypot(x, y-a.Radius),
			HeadingError: NormalizeAngle(local.Heading - angle),
		}, true
	}
	angle := -math.Atan2(-x, y+a.Radius)
	if angle < -angleTolerance || angle > -a.Arc+angleTolerance {
		return Projection{}, false
	}
	return Projection{
		Offset:       math.Hypot(x, y+a.Radius) - a.Radius,
		HeadingError: NormalizeAngle(local.Heading + angle),
	}, true
}

// PathLength returns the centerline length of s.
func PathLength(s Segment) float64 {
	switch s := s.(type) {
	case Straight:
		return s.Length
	case ConstantArc:
		return math.Abs(s.Arc) * s.Radius
	case VariableArc:
		return math.Abs(s.Arc) * (s.RadiusStart + s.RadiusEnd) / 2
	default:
		panic(fmt.Sprintf("geometry: unknown segment %T", s))
	}
}

// Turn returns the heading change across s.
func Turn(s Segment) float64 {
	switch s := s.(type) {
	case Straight:
		return 0
	case ConstantArc:
		return s.Arc
	case VariableArc:
		return s.Arc
	default:
		panic(fmt.Sprintf("geometry: unknown segment %T", s))
	}
}

// Partial returns the leading part of s covering fraction t in [0, 1] of
// its swept angle (or length, for straights). Stepping across Partial(s, t)
// lands on the centerline of s.
func Partial(s Segment, t float64) Segment {
	t = clamp(t, 0, 1)
	switch s := s.(type) {
	case Straight:
		return Straight{Length: s.Length * t}
	case ConstantArc:
		return ConstantArc{Arc: s.Arc * t, Radius: s.Radius}
	case VariableArc:
		return VariableArc{
			Arc:         s.Arc * t,
			RadiusStart: s.RadiusStart,
			RadiusEnd:   s.RadiusStart + (s.RadiusEnd-s.RadiusStart)*t,
		}
	default:
		panic(fmt.Sprintf("geometry: unknown segment %T", s))
	}
}

// Describe renders s for diagnostics.
func Describe(s Segment) string {
	switch s := s.(type) {
	case Straight:
		return fmt.Sprintf("straight %.2fm", s.Length)
	case ConstantArc:
		return fmt.Sprintf("arc %.2f° r=%.2fm", s.Arc*180/math.Pi, s.Radius)
	case VariableArc:
		return fmt.Sprintf("variable arc %.2f° r=%.2f->%.2fm", s.Arc*180/math.Pi, s.RadiusStart, s.RadiusEnd)
	default:
		return fmt.Sprintf("%T", s)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
