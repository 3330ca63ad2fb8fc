package track

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/banshee-data/trackline/internal/geometry"
)

// DefaultResolution is the default sampling interval along curved sections,
// in meters.
const DefaultResolution = 2.0

// Centerline samples the track centerline. Curved sections are sampled at
// most resolution meters apart; straights contribute their end points.
func (t *Track) Centerline(resolution float64) []geometry.Pose {
	if !(resolution > 0) {
		resolution = DefaultResolution
	}
	poses := []geometry.Pose{geometry.Identity}
	t.fold(func(_ int, s Section, frame geometry.Pose) {
		n := 1
		if s.Segment.Kind() != geometry.KindStraight {
			n = int(math.Ceil(geometry.PathLength(s.Segment) / resolution))
			if n < 1 {
				n = 1
			}
		}
		for i := 1; i <= n; i++ {
			part := geometry.Partial(s.Segment, float64(i)/float64(n))
			poses = append(poses, part.Step(frame))
		}
	})
	return poses
}

// Border returns the polyline lateral meters to the left of the centerline
// (negative for the right). Border(±Width()/2, r) are the track edges.
func (t *Track) Border(lateral, resolution float64) []r2.Point {
	poses := t.Centerline(resolution)
	points := make([]r2.Point, len(poses))
	for i, p := range poses {
		points[i] = p.Offset(lateral).Point()
	}
	return points
}
