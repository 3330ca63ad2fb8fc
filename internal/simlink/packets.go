// Package simlink encodes and decodes the fixed-layout UDP packets exchanged
// with the driving simulator.
//
// The controller sends an 18-byte command packet and the simulator answers
// with a 794-byte sensor packet. All fields are little-endian.
//
//	Command (18 bytes)
//	├── 0  f32 steering, degrees, positive turns left
//	├── 4  f32 throttle, 0..1
//	├── 8  f32 brake, 0..1
//	├── 12 i32 gear
//	├── 16 u8  mode
//	└── 17 u8  counter
//
//	Sensors (794 bytes, only the fields below are decoded)
//	├── 0   f32 simulation time, seconds
//	├── 4   f32 distance driven, meters
//	├── 44  3×f32 position x, y, z
//	├── 56  3×f32 orientation x, y, z (z is heading, radians)
//	├── 80  3×f32 velocity x, y, z, m/s
//	└── 792 u8  simulation status
package simlink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/trackline/internal/geometry"
)

// Packet layout constants.
const (
	CommandSize = 18
	SensorsSize = 794

	offsetTime        = 0
	offsetDistance    = 4
	offsetPosition    = 44
	offsetOrientation = 56
	offsetVelocity    = 80
	offsetStatus      = 792

	// DefaultGear and DefaultMode are the values the reference controller
	// sends on every command.
	DefaultGear = 1
	DefaultMode = 11

	// StatusStopped is the simulation status of a finished or paused run.
	StatusStopped = 5
)

// ErrPacketLength reports a packet whose size does not match its layout.
var ErrPacketLength = errors.New("unexpected packet length")

// Vec3 is a 3D vector as reported by the simulator.
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Command is a control packet sent to the simulator.
type Command struct {
	Steering float64
	Throttle float64
	Brake    float64
	Gear     int32
	Mode     uint8
	Counter  uint8
}

// NewCommand returns a command with the default gear and mode.
func NewCommand(steering, throttle, brake float64, counter uint8) Command {
	return Command{
		Steering: steering,
		Throttle: throttle,
		Brake:    brake,
		Gear:     DefaultGear,
		Mode:     DefaultMode,
		Counter:  counter,
	}
}

// MarshalBinary encodes the command. Floats are narrowed to float32.
func (c Command) MarshalBinary() ([]byte, error) {
	b := make([]byte, CommandSize)
	binary.LittleEndian.PutUint32(b[0:4], math.Float32bits(float32(c.Steering)))
	binary.LittleEndian.PutUint32(b[4:8], math.Float32bits(float32(c.Throttle)))
	binary.LittleEndian.PutUint32(b[8:12], math.Float32bits(float32(c.Brake)))
	binary.LittleEndian.PutUint32(b[12:16], uint32(c.Gear))
	b[16] = c.Mode
	b[17] = c.Counter
	return b, nil
}

// UnmarshalBinary decodes an 18-byte command packet.
func (c *Command) UnmarshalBinary(b []byte) error {
	if len(b) != CommandSize {
		return fmt.Errorf("%w: command has %d bytes, want %d", ErrPacketLength, len(b), CommandSize)
	}
	c.Steering = readFloat32(b, 0)
	c.Throttle = readFloat32(b, 4)
	c.Brake = readFloat32(b, 8)
	c.Gear = int32(binary.LittleEndian.Uint32(b[12:16]))
	c.Mode = b[16]
	c.Counter = b[17]
	return nil
}

func (c Command) String() string {
	return fmt.Sprintf("Command(steering=%.3f, throttle=%.3f, brake=%.3f, counter=%d)",
		c.Steering, c.Throttle, c.Brake, c.Counter)
}

// Sensors is the decoded subset of a simulator status packet.
type Sensors struct {
	Time        float64
	Distance    float64
	Position    Vec3
	Orientation Vec3
	Velocity    Vec3
	Status      uint8
}

// ParseSensors decodes a 794-byte sensor packet.
func ParseSensors(b []byte) (Sensors, error) {
	var s Sensors
	err := s.UnmarshalBinary(b)
	return s, err
}

// UnmarshalBinary decodes a 794-byte sensor packet.
func (s *Sensors) UnmarshalBinary(b []byte) error {
	if len(b) != SensorsSize {
		return fmt.Errorf("%w: sensors has %d bytes, want %d", ErrPacketLength, len(b), SensorsSize)
	}
	s.Time = readFloat32(b, offsetTime)
	s.Distance = readFloat32(b, offsetDistance)
	s.Position = readVec3(b, offsetPosition)
	s.Orientation = readVec3(b, offsetOrientation)
	s.Velocity = readVec3(b, offsetVelocity)
	s.Status = b[offsetStatus]
	return nil
}

// MarshalBinary encodes the decoded fields into a full-size packet. Bytes
// not covered by Sensors are zero.
func (s Sensors) MarshalBinary() ([]byte, error) {
	b := make([]byte, SensorsSize)
	writeFloat32(b, offsetTime, s.Time)
	writeFloat32(b, offsetDistance, s.Distance)
	writeVec3(b, offsetPosition, s.Position)
	writeVec3(b, offsetOrientation, s.Orientation)
	writeVec3(b, offsetVelocity, s.Velocity)
	b[offsetStatus] = s.Status
	return b, nil
}

// Stopped reports whether the simulation is stopped.
func (s Sensors) Stopped() bool { return s.Status == StatusStopped }

// Speed returns the magnitude of the 3D velocity in m/s.
func (s Sensors) Speed() float64 { return s.Velocity.Norm() }

// Pose returns the planar pose advanced by prediction seconds along the
// planar velocity. Heading is not extrapolated.
func (s Sensors) Pose(prediction float64) geometry.Pose {
	return geometry.Pose{
		X:       s.Position.X + prediction*s.Velocity.X,
		Y:       s.Position.Y + prediction*s.Velocity.Y,
		Heading: s.Orientation.Z,
	}
}

func (s Sensors) String() string {
	return fmt.Sprintf("Sensors(time=%.3f, dist=%.1f, pos=(%.2f, %.2f, %.2f), speed=%.2f)",
		s.Time, s.Distance, s.Position.X, s.Position.Y, s.Position.Z, s.Speed())
}

func readFloat32(b []byte, off int) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[off : off+4])))
}

func writeFloat32(b []byte, off int, v float64) {
	binary.LittleEndian.PutUint32(b[off:off+4], math.Float32bits(float32(v)))
}

func readVec3(b []byte, off int) Vec3 {
	return Vec3{readFloat32(b, off), readFloat32(b, off+4), readFloat32(b, off+8)}
}

func writeVec3(b []byte, off int, v Vec3) {
	writeFloat32(b, off, v.X)
	writeFloat32(b, off+4, v.Y)
	writeFloat32(b, off+8, v.Z)
}
