package track

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/trackline/internal/geometry"
)

// ErrInvalidSegmentGeometry reports an incomplete or malformed section
// descriptor. Construction fails fast on it.
var ErrInvalidSegmentGeometry = errors.New("invalid segment geometry")

// DescriptorKind names the shape of a Descriptor.
type DescriptorKind string

const (
	KindStraight    DescriptorKind = "straight"
	KindArc         DescriptorKind = "arc"
	KindVariableArc DescriptorKind = "variable_arc"
)

// Descriptor is the externally parsed description of one section. Angles
// are radians, lengths meters. Only the fields relevant to Kind are read.
type Descriptor struct {
	Name        string         `json:"name,omitempty"`
	Kind        DescriptorKind `json:"kind"`
	Length      float64        `json:"length,omitempty"`
	Angle       float64        `json:"angle,omitempty"`
	Radius      float64        `json:"radius,omitempty"`
	RadiusStart float64        `json:"radius_start,omitempty"`
	RadiusEnd   float64        `json:"radius_end,omitempty"`
	StepLength  *float64       `json:"step_length,omitempty"`
}

// Spec is everything needed to build a Track.
type Spec struct {
	Name       string       `json:"name,omitempty"`
	Width      float64      `json:"width"`
	StepLength float64      `json:"step_length"`
	Sections   []Descriptor `json:"sections"`
}

// Build converts descriptors into a Track. Variable arcs longer than their
// step length are split into constant arcs by Subdivide.
func Build(descriptors []Descriptor, width, defaultStepLength float64) (*Track, error) {
	sections := make([]Section, 0, len(descriptors))
	for i, d := range descriptors {
		built, err := d.sections(defaultStepLength)
		if err != nil {
			return nil, fmt.Errorf("section %d (%q): %w", i, d.Name, err)
		}
		sections = append(sections, built...)
	}
	return New(sections, width)
}

// Build converts the spec into a Track.
func (s Spec) Build() (*Track, error) {
	return Build(s.Sections, s.Width, s.StepLength)
}

func (d Descriptor) sections(defaultStepLength float64) ([]Section, error) {
	switch d.Kind {
	case KindStraight:
		seg := geometry.Straight{Length: d.Length}
		if err := seg.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSegmentGeometry, err)
		}
		return []Section{{Name: d.Name, Segment: seg}}, nil

	case KindArc:
		seg := geometry.ConstantArc{Arc: d.Angle, Radius: d.Radius}
		if err := seg.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSegmentGeometry, err)
		}
		return []Section{{Name: d.Name, Segment: seg}}, nil

	case KindVariableArc:
		seg := geometry.VariableArc{Arc: d.Angle, RadiusStart: d.RadiusStart, RadiusEnd: d.RadiusEnd}
		if err := seg.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSegmentGeometry, err)
		}
		stepLength := defaultStepLength
		if d.StepLength != nil {
			stepLength = *d.StepLength
		}
		if !(stepLength > 0) {
			return nil, fmt.Errorf("%w: step length %v must be positive", ErrInvalidSegmentGeometry, stepLength)
		}
		n := StepCount(seg, stepLength)
		if n == 1 {
			return []Section{{Name: d.Name, Segment: seg}}, nil
		}
		arcs := Subdivide(seg, n)
		out := make([]Section, len(arcs))
		for i, a := range arcs {
			out[i] = Section{Name: fmt.Sprintf("%s.%d", d.Name, i), Segment: a}
		}
		return out, nil

	case "":
		return nil, fmt.Errorf("%w: missing kind", ErrInvalidSegmentGeometry)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidSegmentGeometry, d.Kind)
	}
}

// StepCount returns the number of constant arcs a variable arc is split
// into for the given step length: floor(length/stepLength) + 1.
func StepCount(v geometry.VariableArc, stepLength float64) int {
	length := math.Abs((v.RadiusStart + v.RadiusEnd) / 2 * v.Arc)
	return int(length/stepLength) + 1
}

// Subdivide splits v into n constant arcs. Radii interpolate linearly from
// RadiusStart to RadiusEnd and each piece turns in proportion to its
// curvature, so the angles sum to v.Arc. For n == 1 the single piece uses
// the mean radius.
func Subdivide(v geometry.VariableArc, n int) []geometry.ConstantArc {
	if n <= 1 {
		return []geometry.ConstantArc{{Arc: v.Arc, Radius: (v.RadiusStart + v.RadiusEnd) / 2}}
	}
	dr := (v.RadiusEnd - v.RadiusStart) / float64(n-1)
	radii := make([]float64, n)
	curvatures := make([]float64, n)
	for i := range radii {
		radii[i] = v.RadiusStart + float64(i)*dr
		curvatures[i] = 1 / radii[i]
	}
	average := 1 / floats.Sum(curvatures)

	arcs := make([]geometry.ConstantArc, n)
	for i, r := range radii {
		arcs[i] = geometry.ConstantArc{Arc: v.Arc * average / r, Radius: r}
	}
	return arcs
}
