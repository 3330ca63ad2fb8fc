package driver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/banshee-data/trackline/internal/db"
	"github.com/banshee-data/trackline/internal/monitoring"
	"github.com/banshee-data/trackline/internal/network"
	"github.com/banshee-data/trackline/internal/simlink"
	"github.com/banshee-data/trackline/internal/timeutil"
	"github.com/banshee-data/trackline/internal/track"
)

// TelemetrySink stores one sample per received sensor packet.
type TelemetrySink interface {
	RecordSample(s db.Sample) error
}

// LoopConfig configures a Loop.
type LoopConfig struct {
	Socket      network.UDPSocket
	Simulator   *net.UDPAddr
	Controller  *Controller
	RecvTimeout time.Duration
	// ExitOnStop ends Run when the simulator reports it has stopped.
	ExitOnStop bool
	// Telemetry and SessionID are optional.
	Telemetry TelemetrySink
	SessionID string
	// Clock sets read deadlines. Defaults to the wall clock.
	Clock timeutil.Clock
}

// Stats counts loop outcomes.
type Stats struct {
	Iterations  uint64
	Timeouts    uint64
	BadPackets  uint64
	OnTrack     uint64
	OffCorridor uint64
	NoMatch     uint64
}

// Loop sends a command, waits for the sensor reply and computes the next
// command, forever.
type Loop struct {
	cfg     LoopConfig
	counter uint8
	command simlink.Command
	section int
	seq     int

	mu    sync.Mutex
	stats Stats
}

// NewLoop returns a Loop. The first command is all zero.
func NewLoop(cfg LoopConfig) *Loop {
	if cfg.RecvTimeout <= 0 {
		cfg.RecvTimeout = time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &Loop{
		cfg:     cfg,
		command: simlink.NewCommand(0, 0, 0, 0),
		section: -1,
	}
}

// Stats returns a snapshot of the loop counters.
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Run drives until ctx is cancelled, the simulator stops (with ExitOnStop)
// or sending fails. Receive timeouts are not errors.
func (l *Loop) Run(ctx context.Context) error {
	buf := make([]byte, 2048)
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("drive loop stopping due to context cancellation")
			return ctx.Err()
		default:
		}

		l.command.Counter = l.counter
		packet, err := l.command.MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to encode command: %w", err)
		}
		if _, err := l.cfg.Socket.WriteToUDP(packet, l.cfg.Simulator); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("failed to send command: %w", err)
		}

		stop, err := l.receive(ctx, buf)
		l.counter++
		l.count(func(s *Stats) { s.Iterations++ })
		if err != nil {
			return err
		}
		if stop {
			monitoring.Logf("simulation stopped after %d iterations", l.Stats().Iterations)
			return nil
		}
	}
}

// receive waits for one sensor packet and updates the command. It reports
// whether the simulation has stopped.
func (l *Loop) receive(ctx context.Context, buf []byte) (bool, error) {
	if err := l.cfg.Socket.SetReadDeadline(l.cfg.Clock.Now().Add(l.cfg.RecvTimeout)); err != nil {
		return false, fmt.Errorf("failed to set read deadline: %w", err)
	}
	n, _, err := l.cfg.Socket.ReadFromUDP(buf)
	if err != nil {
		if network.IsTimeout(err) {
			l.count(func(s *Stats) { s.Timeouts++ })
			return false, nil
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if errors.Is(err, net.ErrClosed) {
			return false, fmt.Errorf("socket closed: %w", err)
		}
		monitoring.Logf("UDP read error: %v", err)
		return false, nil
	}

	sensors, err := simlink.ParseSensors(buf[:n])
	if err != nil {
		l.count(func(s *Stats) { s.BadPackets++ })
		monitoring.Logf("dropping packet: %v", err)
		return false, nil
	}
	if sensors.Stopped() && l.cfg.ExitOnStop {
		return true, nil
	}

	d := l.cfg.Controller.Decide(sensors)
	l.command = simlink.NewCommand(d.Steering, d.Throttle, d.Brake, l.counter)
	l.count(func(s *Stats) {
		switch d.Status {
		case track.OnTrack:
			s.OnTrack++
		case track.OffCorridor:
			s.OffCorridor++
		case track.NoSegmentMatch:
			s.NoMatch++
		}
	})

	if d.Match.Section.Segment != nil && d.Match.Index != l.section {
		monitoring.Logf("entering section %d %s at %s", d.Match.Index, d.Match.Section, d.Pose)
		l.section = d.Match.Index
	}

	if l.cfg.Telemetry != nil {
		if err := l.cfg.Telemetry.RecordSample(l.sample(d)); err != nil {
			monitoring.Logf("telemetry: %v", err)
		}
	}
	return false, nil
}

func (l *Loop) count(fn func(*Stats)) {
	l.mu.Lock()
	fn(&l.stats)
	l.mu.Unlock()
}

func (l *Loop) sample(d Decision) db.Sample {
	s := db.Sample{
		SessionID:    l.cfg.SessionID,
		Seq:          l.seq,
		SimTime:      d.Sensors.Time,
		X:            d.Pose.X,
		Y:            d.Pose.Y,
		Heading:      d.Pose.Heading,
		Speed:        d.Sensors.Speed(),
		SectionIndex: -1,
		Status:       d.Status.String(),
		Steering:     d.Steering,
		Throttle:     d.Throttle,
		Brake:        d.Brake,
	}
	if d.Status != track.NoSegmentMatch {
		s.SectionIndex = d.Match.Index
		s.SectionName = d.Match.Section.Name
		s.Offset = d.Match.Projection.Offset
		s.HeadingError = d.Match.Projection.HeadingError
	}
	l.seq++
	return s
}
