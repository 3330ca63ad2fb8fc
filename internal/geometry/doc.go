// Package geometry owns the planar model of a racetrack centerline.
//
// Responsibilities: pose composition, the three segment shapes (straight,
// constant-radius arc, variable-radius arc), forward stepping across a
// segment and projection of a segment-local pose onto its centerline.
// Key types: Pose, Segment, Straight, ConstantArc, VariableArc, Projection.
//
// Conventions: headings are radians normalised to (-π, π]; a positive arc
// turns left; lateral offsets are positive to the left of travel.
//
// Every function in this package is pure and safe for concurrent use.
// No logging or I/O is allowed in this package.
package geometry
