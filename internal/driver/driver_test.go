package driver

import (
	"context"
	"fmt"
	"math"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trackline/internal/config"
	"github.com/banshee-data/trackline/internal/db"
	"github.com/banshee-data/trackline/internal/geometry"
	"github.com/banshee-data/trackline/internal/monitoring"
	"github.com/banshee-data/trackline/internal/network"
	"github.com/banshee-data/trackline/internal/simlink"
	"github.com/banshee-data/trackline/internal/timeutil"
	"github.com/banshee-data/trackline/internal/track"
)

func captureLogs(t *testing.T) *[]string {
	t.Helper()
	original := monitoring.Logf
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { monitoring.SetLogger(original) })
	return &lines
}

func ovalTrack(t *testing.T, width float64) *track.Track {
	t.Helper()
	tr, err := track.FromSegments(width,
		geometry.Straight{Length: 100},
		geometry.ConstantArc{Arc: math.Pi, Radius: 50},
		geometry.Straight{Length: 100},
		geometry.ConstantArc{Arc: math.Pi, Radius: 50},
	)
	require.NoError(t, err)
	return tr
}

func defaultParams() Params {
	return ParamsFromConfig(config.EmptyDriveConfig())
}

func at(x, y, heading float64) simlink.Sensors {
	return simlink.Sensors{
		Position:    simlink.Vec3{X: x, Y: y},
		Orientation: simlink.Vec3{Z: heading},
	}
}

func TestFeedForward(t *testing.T) {
	const axle = 2.573
	left := math.Atan2(axle, 50) * 180 / math.Pi

	tests := []struct {
		name string
		seg  geometry.Segment
		want float64
	}{
		{"straight", geometry.Straight{Length: 10}, 0},
		{"left arc", geometry.ConstantArc{Arc: 1, Radius: 50}, left},
		{"right arc", geometry.ConstantArc{Arc: -1, Radius: 50}, -left},
		{"variable arc uses start radius", geometry.VariableArc{Arc: 1, RadiusStart: 50, RadiusEnd: 500}, left},
		{"right variable arc", geometry.VariableArc{Arc: -1, RadiusStart: 50, RadiusEnd: 5}, -left},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, FeedForward(tt.seg, axle), 1e-12)
		})
	}
}

func TestControllerDecide(t *testing.T) {
	tests := []struct {
		name         string
		width        float64
		sensors      simlink.Sensors
		wantStatus   track.Status
		wantSteering float64
		wantThrottle float64
	}{
		{"centered", 20, at(50, 0, 0), track.OnTrack, 0, 0.4},
		{"inside dead band", 20, at(50, -0.05, 0), track.OnTrack, 0, 0.4},
		{"right of centerline steers left", 20, at(50, -1, 0), track.OnTrack, 0.9, 0.4},
		{"left of centerline steers right", 20, at(50, 1, 0), track.OnTrack, -0.9, 0.4},
		{"mid offset", 20, at(50, -4, 0), track.OnTrack, 3.9, 0.2},
		{"heading error", 20, at(50, 0, 0.1), track.OnTrack, -0.1 * 180 / math.Pi, 0.4},
		{"correction is capped", 40, at(50, -15, 0), track.OnTrack, 10, 0.1},
		{"off corridor still steers", 20, at(50, -12, 0), track.OffCorridor, 10, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureLogs(t)
			c := NewController(ovalTrack(t, tt.width), defaultParams(), monitoring.NewThrottle(0))
			d := c.Decide(tt.sensors)
			assert.Equal(t, tt.wantStatus, d.Status)
			assert.Equal(t, 0, d.Match.Index)
			assert.InDelta(t, tt.wantSteering, d.Steering, 1e-9)
			assert.Equal(t, tt.wantThrottle, d.Throttle)
		})
	}
}

func TestControllerCurveFeedForward(t *testing.T) {
	captureLogs(t)
	c := NewController(ovalTrack(t, 20), defaultParams(), nil)
	// On the first curve's centerline, 90 degrees in, heading along it.
	d := c.Decide(at(150, 50, math.Pi/2))
	require.Equal(t, track.OnTrack, d.Status)
	assert.Equal(t, 1, d.Match.Index)
	assert.InDelta(t, FeedForward(geometry.ConstantArc{Arc: math.Pi, Radius: 50}, 2.573), d.Steering, 1e-6)
}

func TestControllerPrediction(t *testing.T) {
	captureLogs(t)
	c := NewController(ovalTrack(t, 20), defaultParams(), nil)
	s := at(50, 0, 0)
	s.Velocity = simlink.Vec3{X: 10, Y: -2}
	d := c.Decide(s)
	assert.Equal(t, geometry.Pose{X: 55, Y: -1}, d.Pose)
	assert.InDelta(t, 0.9, d.Steering, 1e-9)
}

func TestControllerNoMatchRepeatsPrevious(t *testing.T) {
	logs := captureLogs(t)
	tr, err := track.FromSegments(20, geometry.Straight{Length: 100})
	require.NoError(t, err)
	c := NewController(tr, defaultParams(), monitoring.NewThrottle(0))

	first := c.Decide(at(50, 3, 0))
	require.Equal(t, track.OnTrack, first.Status)

	lost := c.Decide(at(150, 0, 0))
	assert.Equal(t, track.NoSegmentMatch, lost.Status)
	assert.Equal(t, first.Steering, lost.Steering)
	assert.Equal(t, first.Throttle, lost.Throttle)
	require.Len(t, *logs, 1)
	assert.Contains(t, (*logs)[0], "no section matches")
}

type fakeSink struct {
	samples []db.Sample
}

func (f *fakeSink) RecordSample(s db.Sample) error {
	f.samples = append(f.samples, s)
	return nil
}

func sensorsPacket(t *testing.T, s simlink.Sensors) []byte {
	t.Helper()
	b, err := s.MarshalBinary()
	require.NoError(t, err)
	return b
}

func TestLoopRun(t *testing.T) {
	logs := captureLogs(t)
	sim := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 3001}

	sock := network.NewMockUDPSocket([]network.MockUDPPacket{
		{Data: sensorsPacket(t, at(50, -1, 0)), Addr: sim},
		{Data: sensorsPacket(t, at(150, 50, math.Pi/2)), Addr: sim},
		{Data: []byte("short"), Addr: sim},
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sock.OnRead = func(i int) {
		if i == 3 {
			cancel()
		}
	}

	sink := &fakeSink{}
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	loop := NewLoop(LoopConfig{
		Socket:      sock,
		Simulator:   sim,
		Controller:  NewController(ovalTrack(t, 20), defaultParams(), nil),
		RecvTimeout: 250 * time.Millisecond,
		Telemetry:   sink,
		SessionID:   "s1",
		Clock:       timeutil.NewMockClock(start),
	})
	err := loop.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, start.Add(250*time.Millisecond), sock.ReadDeadline)

	sent := sock.SentPackets()
	require.Len(t, sent, 4)
	var cmds []simlink.Command
	for i, p := range sent {
		assert.Equal(t, sim, p.Addr)
		var c simlink.Command
		require.NoError(t, c.UnmarshalBinary(p.Data))
		assert.Equal(t, uint8(i), c.Counter)
		assert.Equal(t, int32(simlink.DefaultGear), c.Gear)
		cmds = append(cmds, c)
	}
	assert.Equal(t, 0.0, cmds[0].Steering)
	assert.Equal(t, 0.0, cmds[0].Throttle)
	assert.InDelta(t, 0.9, cmds[1].Steering, 1e-6)
	assert.InDelta(t, 0.4, cmds[1].Throttle, 1e-6)
	assert.Greater(t, cmds[2].Steering, 2.0, "feed-forward in the curve")
	assert.Equal(t, cmds[2], withCounter(cmds[3], 2), "bad packet keeps the command")

	assert.Equal(t, Stats{Iterations: 4, Timeouts: 1, BadPackets: 1, OnTrack: 2}, loop.Stats())

	require.Len(t, sink.samples, 2)
	assert.Equal(t, 0, sink.samples[0].Seq)
	assert.Equal(t, "s1", sink.samples[0].SessionID)
	assert.Equal(t, 0, sink.samples[0].SectionIndex)
	assert.Equal(t, "s0", sink.samples[0].SectionName)
	assert.InDelta(t, -1.0, sink.samples[0].Offset, 1e-9)
	assert.Equal(t, "on_track", sink.samples[0].Status)
	assert.Equal(t, 1, sink.samples[1].Seq)
	assert.Equal(t, "s1", sink.samples[1].SectionName)

	var entered int
	for _, line := range *logs {
		if strings.HasPrefix(line, "entering section") {
			entered++
		}
	}
	assert.Equal(t, 2, entered)
}

func withCounter(c simlink.Command, counter uint8) simlink.Command {
	c.Counter = counter
	return c
}

func TestLoopExitOnStop(t *testing.T) {
	captureLogs(t)
	sim := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 3001}
	stopped := at(0, 0, 0)
	stopped.Status = simlink.StatusStopped
	sock := network.NewMockUDPSocket([]network.MockUDPPacket{{Data: sensorsPacket(t, stopped), Addr: sim}})

	loop := NewLoop(LoopConfig{
		Socket:     sock,
		Simulator:  sim,
		Controller: NewController(ovalTrack(t, 20), defaultParams(), nil),
		ExitOnStop: true,
	})
	require.NoError(t, loop.Run(context.Background()))
	assert.Equal(t, uint64(1), loop.Stats().Iterations)
}

func TestLoopCounterWraps(t *testing.T) {
	captureLogs(t)
	sock := network.NewMockUDPSocket(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reads := 0
	sock.OnRead = func(int) {
		reads++
		if reads == 300 {
			cancel()
		}
	}

	loop := NewLoop(LoopConfig{
		Socket:     sock,
		Simulator:  &net.UDPAddr{Port: 3001},
		Controller: NewController(ovalTrack(t, 20), defaultParams(), nil),
	})
	assert.ErrorIs(t, loop.Run(ctx), context.Canceled)

	sent := sock.SentPackets()
	require.Len(t, sent, 300)
	assert.Equal(t, byte(255), sent[255].Data[17])
	assert.Equal(t, byte(0), sent[256].Data[17])
	assert.Equal(t, uint64(300), loop.Stats().Timeouts)
}

func TestLoopSendError(t *testing.T) {
	captureLogs(t)
	sock := network.NewMockUDPSocket(nil)
	sock.WriteError = fmt.Errorf("network unreachable")
	loop := NewLoop(LoopConfig{
		Socket:     sock,
		Simulator:  &net.UDPAddr{Port: 3001},
		Controller: NewController(ovalTrack(t, 20), defaultParams(), nil),
	})
	err := loop.Run(context.Background())
	assert.ErrorContains(t, err, "network unreachable")
}
