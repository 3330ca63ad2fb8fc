package units

import "math"

// Angle and length unit names as they appear in track file attributes.
const (
	Degrees = "deg"
	Radians = "rad"

	Meters      = "m"
	Centimeters = "cm"
	Millimeters = "mm"
	Kilometers  = "km"
	Feet        = "ft"
	Inches      = "in"
)

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 { return deg * math.Pi / 180 }

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 { return rad * 180 / math.Pi }

// ToRadians converts an angle in the named unit to radians. An empty unit
// means radians. ok is false for an unknown unit.
func ToRadians(value float64, unit string) (float64, bool) {
	switch unit {
	case "", Radians:
		return value, true
	case Degrees:
		return DegToRad(value), true
	default:
		return 0, false
	}
}

var metersPer = map[string]float64{
	"":          1,
	Meters:      1,
	Centimeters: 0.01,
	Millimeters: 0.001,
	Kilometers:  1000,
	Feet:        0.3048,
	Inches:      0.0254,
}

// ToMeters converts a length in the named unit to meters. An empty unit
// means meters. ok is false for an unknown unit.
func ToMeters(value float64, unit string) (float64, bool) {
	f, ok := metersPer[unit]
	if !ok {
		return 0, false
	}
	return value * f, true
}
