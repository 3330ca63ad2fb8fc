package track

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/trackline/internal/geometry"
)

var (
	// ErrInvalidWidth reports a non-positive corridor width.
	ErrInvalidWidth = errors.New("track width must be positive")
	// ErrNotClosed reports a track whose end pose does not return to the start.
	ErrNotClosed = errors.New("track does not close")
)

// Section is a named segment of the track.
type Section struct {
	Name    string
	Segment geometry.Segment
}

func (s Section) String() string {
	return fmt.Sprintf("Segment('%s', %s)", s.Name, geometry.Describe(s.Segment))
}

// Track is an ordered loop of sections with a fixed corridor width.
type Track struct {
	sections []Section
	width    float64
}

// New validates every section and returns an immutable Track.
func New(sections []Section, width float64) (*Track, error) {
	if !(width > 0) || math.IsInf(width, 1) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidWidth, width)
	}
	for i, s := range sections {
		if s.Segment == nil {
			return nil, fmt.Errorf("%w: section %d (%q) has no segment", ErrInvalidSegmentGeometry, i, s.Name)
		}
		if err := s.Segment.Validate(); err != nil {
			return nil, fmt.Errorf("%w: section %d (%q): %v", ErrInvalidSegmentGeometry, i, s.Name, err)
		}
	}
	return &Track{
		sections: append([]Section(nil), sections...),
		width:    width,
	}, nil
}

// FromSegments builds an unnamed track; sections are named by index.
func FromSegments(width float64, segments ...geometry.Segment) (*Track, error) {
	sections := make([]Section, len(segments))
	for i, s := range segments {
		sections[i] = Section{Name: fmt.Sprintf("s%d", i), Segment: s}
	}
	return New(sections, width)
}

// Width returns the full corridor width.
func (t *Track) Width() float64 { return t.width }

// Len returns the number of sections.
func (t *Track) Len() int { return len(t.sections) }

// Section returns the i-th section.
func (t *Track) Section(i int) Section { return t.sections[i] }

// Sections returns a copy of the section list.
func (t *Track) Sections() []Section {
	return append([]Section(nil), t.sections...)
}

// fold threads the accumulated frame through the sections in order: fn
// receives each section with the frame at its start. It returns the frame
// after the last section.
func (t *Track) fold(fn func(i int, s Section, frame geometry.Pose)) geometry.Pose {
	frame := geometry.Identity
	for i, s := range t.sections {
		if fn != nil {
			fn(i, s, frame)
		}
		frame = s.Segment.Step(frame)
	}
	return frame
}

// Frames returns the start pose of every section.
func (t *Track) Frames() []geometry.Pose {
	frames := make([]geometry.Pose, 0, len(t.sections))
	t.fold(func(_ int, _ Section, frame geometry.Pose) {
		frames = append(frames, frame)
	})
	return frames
}

// EndPose returns the pose reached by stepping through every section from
// the identity pose.
func (t *Track) EndPose() geometry.Pose {
	return t.fold(nil)
}

// CheckClosed reports ErrNotClosed unless the end pose lies within
// positionTolerance (|x|+|y|) of the origin with a heading of 0 mod 2π.
// Construction never calls it.
func (t *Track) CheckClosed(positionTolerance float64) error {
	end := t.EndPose()
	if math.Abs(end.X)+math.Abs(end.Y) >= positionTolerance || math.Abs(end.Heading) > 1e-3 {
		return fmt.Errorf("%w: end pose %v", ErrNotClosed, end)
	}
	return nil
}

// PathLength returns the total centerline length.
func (t *Track) PathLength() float64 {
	var total float64
	for _, s := range t.sections {
		total += geometry.PathLength(s.Segment)
	}
	return total
}

// TotalTurn returns the summed signed heading change in radians.
func (t *Track) TotalTurn() float64 {
	var total float64
	for _, s := range t.sections {
		total += geometry.Turn(s.Segment)
	}
	return total
}
