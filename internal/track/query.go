package track

import (
	"math"

	"github.com/banshee-data/trackline/internal/geometry"
)

// Status classifies the result of a Query.
type Status int

const (
	// OnTrack means a section matched and the offset is inside the corridor.
	OnTrack Status = iota
	// NoSegmentMatch means no section's longitudinal extent contains the pose.
	NoSegmentMatch
	// OffCorridor means the nearest section's offset is at least width/2.
	OffCorridor
)

func (s Status) String() string {
	switch s {
	case OnTrack:
		return "on_track"
	case NoSegmentMatch:
		return "no_segment_match"
	case OffCorridor:
		return "off_corridor"
	default:
		return "unknown"
	}
}

// Match is the section nearest to a global pose.
type Match struct {
	Index      int
	Section    Section
	Frame      geometry.Pose // global start pose of the section
	Local      geometry.Pose // queried pose in the section frame
	Projection geometry.Projection
}

// NearestSegment walks every section once and returns the one whose
// centerline is laterally closest to p among those whose longitudinal
// extent contains it. Ties keep the earlier section. It reports false
// when no section matches.
func (t *Track) NearestSegment(p geometry.Pose) (Match, bool) {
	var (
		best     Match
		bestDist = math.Inf(1)
		found    bool
	)
	t.fold(func(i int, s Section, frame geometry.Pose) {
		local := frame.ToLocal(p)
		proj, ok := s.Segment.Project(local)
		if !ok {
			return
		}
		if d := math.Abs(proj.Offset); d < bestDist {
			best = Match{Index: i, Section: s, Frame: frame, Local: local, Projection: proj}
			bestDist = d
			found = true
		}
	})
	return best, found
}

// Query locates p on the track. The match is populated for OnTrack and
// OffCorridor results.
func (t *Track) Query(p geometry.Pose) (Match, Status) {
	m, ok := t.NearestSegment(p)
	if !ok {
		return Match{}, NoSegmentMatch
	}
	proj, ok := m.Section.Segment.Project(m.Local)
	if !ok {
		return Match{}, NoSegmentMatch
	}
	m.Projection = proj
	if math.Abs(proj.Offset) >= t.width/2 {
		return m, OffCorridor
	}
	return m, OnTrack
}

// Offset returns the signed lateral offset and heading error of p, or
// false when p matches no section or lies outside the corridor.
func (t *Track) Offset(p geometry.Pose) (geometry.Projection, bool) {
	m, status := t.Query(p)
	if status != OnTrack {
		return geometry.Projection{}, false
	}
	return m.Projection, true
}
