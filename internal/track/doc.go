// Package track composes geometry segments into a closed racetrack.
//
// Responsibilities: holding the ordered section list and corridor width,
// walking section frames to locate a global pose (nearest section, signed
// lateral offset, heading error), construction from descriptors including
// subdivision of variable-radius turns, and border polylines for
// rendering.
//
// A Track is immutable after construction; all queries are pure reads
// and may run concurrently. Query cost is linear in the section count.
package track
