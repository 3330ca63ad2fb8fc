// Package driver steers a simulated car around a track. A Controller turns
// each sensor packet into a command; a Loop exchanges packets with the
// simulator over UDP.
package driver

import (
	"math"

	"github.com/banshee-data/trackline/internal/config"
	"github.com/banshee-data/trackline/internal/geometry"
	"github.com/banshee-data/trackline/internal/monitoring"
	"github.com/banshee-data/trackline/internal/simlink"
	"github.com/banshee-data/trackline/internal/track"
	"github.com/banshee-data/trackline/internal/units"
)

// Params tunes the Controller.
type Params struct {
	PredictionTime   float64 // seconds
	AxleDistance     float64 // meters
	DeadBand         float64 // meters
	MaxOffsetTurnDeg float64
	NearOffset       float64
	FarOffset        float64
	ThrottleNear     float64
	ThrottleMid      float64
	ThrottleFar      float64
}

// ParamsFromConfig reads Params from cfg, using defaults for unset fields.
func ParamsFromConfig(cfg *config.DriveConfig) Params {
	return Params{
		PredictionTime:   cfg.GetPredictionTime(),
		AxleDistance:     cfg.GetAxleDistance(),
		DeadBand:         cfg.GetDeadBand(),
		MaxOffsetTurnDeg: cfg.GetMaxOffsetTurnDeg(),
		NearOffset:       cfg.GetNearOffset(),
		FarOffset:        cfg.GetFarOffset(),
		ThrottleNear:     cfg.GetThrottleNear(),
		ThrottleMid:      cfg.GetThrottleMid(),
		ThrottleFar:      cfg.GetThrottleFar(),
	}
}

// Decision is the controller output for one sensor packet.
type Decision struct {
	Sensors  simlink.Sensors
	Pose     geometry.Pose // predicted pose used for the query
	Status   track.Status
	Match    track.Match // zero for NoSegmentMatch
	Steering float64     // degrees, positive turns left
	Throttle float64
	Brake    float64
}

// Controller computes steering and throttle from the car's position
// relative to the track. It keeps the previous output, which it repeats
// when the car matches no section. A Controller is not safe for concurrent
// use.
type Controller struct {
	track  *track.Track
	params Params
	warn   *monitoring.Throttle

	steering float64
	throttle float64
}

// NewController returns a Controller for t.
func NewController(t *track.Track, params Params, warn *monitoring.Throttle) *Controller {
	return &Controller{track: t, params: params, warn: warn}
}

// Decide queries the track at the predicted pose and returns the next
// command values.
func (c *Controller) Decide(s simlink.Sensors) Decision {
	pose := s.Pose(c.params.PredictionTime)
	m, status := c.track.Query(pose)
	d := Decision{Sensors: s, Pose: pose, Status: status, Match: m}

	switch status {
	case track.NoSegmentMatch:
		c.logf("no_match", "no section matches pose %s", pose)
		d.Steering, d.Throttle = c.steering, c.throttle
		return d
	case track.OffCorridor:
		c.logf("off_corridor", "off corridor at pose %s: section %d %q offset %.2fm",
			pose, m.Index, m.Section.Name, m.Projection.Offset)
	}

	offset := m.Projection.Offset
	d.Throttle = c.throttleFor(offset)
	d.Steering = FeedForward(m.Section.Segment, c.params.AxleDistance) -
		units.RadToDeg(m.Projection.HeadingError) +
		c.offsetCorrection(offset)

	c.steering, c.throttle = d.Steering, d.Throttle
	return d
}

func (c *Controller) throttleFor(offset float64) float64 {
	a := math.Abs(offset)
	switch {
	case a < c.params.NearOffset:
		return c.params.ThrottleNear
	case a < c.params.FarOffset:
		return c.params.ThrottleMid
	default:
		return c.params.ThrottleFar
	}
}

// offsetCorrection steers back toward the centerline once the offset
// leaves the dead band, capped at MaxOffsetTurnDeg.
func (c *Controller) offsetCorrection(offset float64) float64 {
	db, limit := c.params.DeadBand, c.params.MaxOffsetTurnDeg
	switch {
	case offset < -db:
		return math.Min(limit, -db-offset)
	case offset > db:
		return math.Max(-limit, db-offset)
	default:
		return 0
	}
}

func (c *Controller) logf(key, format string, v ...interface{}) {
	if c.warn != nil {
		c.warn.Logf(key, format, v...)
	}
}

// FeedForward returns the steering angle in degrees that follows seg's
// curvature with the given wheelbase: atan2(axle, radius), negative for
// right turns. Straights need none; variable arcs use their start radius.
func FeedForward(seg geometry.Segment, axle float64) float64 {
	var arc, radius float64
	switch s := seg.(type) {
	case geometry.ConstantArc:
		arc, radius = s.Arc, s.Radius
	case geometry.VariableArc:
		arc, radius = s.Arc, s.RadiusStart
	default:
		return 0
	}
	angle := units.RadToDeg(math.Atan2(axle, radius))
	if arc < 0 {
		angle = -angle
	}
	return angle
}
