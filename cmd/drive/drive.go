package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/banshee-data/trackline/internal/config"
	"github.com/banshee-data/trackline/internal/db"
	"github.com/banshee-data/trackline/internal/driver"
	"github.com/banshee-data/trackline/internal/iolog"
	"github.com/banshee-data/trackline/internal/monitoring"
	"github.com/banshee-data/trackline/internal/network"
	"github.com/banshee-data/trackline/internal/timeutil"
	"github.com/banshee-data/trackline/internal/trackxml"
)

// closureTolerance is the |x|+|y| gap in meters tolerated at the end of
// the loop before warning that the track is open.
const closureTolerance = 1e-3

// warnInterval limits repeated controller warnings.
const warnInterval = time.Second

// loadConfig reads the drive configuration. A missing file at the default
// path falls back to the built-in defaults.
func loadConfig(path string) (*config.DriveConfig, error) {
	cfg, err := config.LoadDriveConfig(path)
	if err == nil {
		return cfg, nil
	}
	if path == config.DefaultConfigPath && errors.Is(err, os.ErrNotExist) {
		monitoring.Logf("config %s not found, using defaults", path)
		return config.DefaultDriveConfig(), nil
	}
	return nil, err
}

type overrides struct {
	Listen      string
	Simulator   string
	LogDir      string
	TelemetryDB string
	NoLog       bool
}

func applyOverrides(cfg *config.DriveConfig, o overrides) {
	if o.Listen != "" {
		cfg.ListenAddress = &o.Listen
	}
	if o.Simulator != "" {
		cfg.SimulatorAddress = &o.Simulator
	}
	if o.LogDir != "" {
		cfg.LogDir = &o.LogDir
	}
	if o.TelemetryDB != "" {
		cfg.TelemetryDB = &o.TelemetryDB
	}
	if o.NoLog {
		empty := ""
		cfg.LogDir = &empty
	}
}

// drive owns the socket, logs and telemetry of one run.
type drive struct {
	loop      *driver.Loop
	socket    network.UDPSocket
	ioLog     *iolog.Writer
	telemetry *db.DB
	sessionID string
}

func newDrive(cfg *config.DriveConfig, trackPath string, exitOnStop bool, factory network.UDPSocketFactory, clock timeutil.Clock) (*drive, error) {
	now := clock.Now()
	spec, err := trackxml.LoadSpec(trackPath)
	if err != nil {
		return nil, err
	}
	if step, ok := cfg.GetStepLength(); ok {
		spec.StepLength = step
	}
	t, err := spec.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", trackPath, err)
	}
	if err := t.CheckClosed(closureTolerance); err != nil {
		monitoring.Logf("warning: %s: %v", trackPath, err)
	}
	monitoring.Logf("loaded track %q: %d sections, %.1fm", spec.Name, t.Len(), t.PathLength())

	laddr, err := net.ResolveUDPAddr("udp", cfg.GetListenAddress())
	if err != nil {
		return nil, fmt.Errorf("invalid listen address: %w", err)
	}
	simAddr, err := net.ResolveUDPAddr("udp", cfg.GetSimulatorAddress())
	if err != nil {
		return nil, fmt.Errorf("invalid simulator address: %w", err)
	}

	d := &drive{}
	sock, err := factory.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", laddr, err)
	}
	d.socket = sock

	if dir := cfg.GetLogDir(); dir != "" {
		w, err := iolog.Create(dir, "drive", now)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.ioLog = w
		sock = iolog.NewConn(sock, w)
		monitoring.Logf("logging I/O to %s", w.Path())
	}

	var sink driver.TelemetrySink
	if path := cfg.GetTelemetryDB(); path != "" {
		database, err := db.OpenDB(path)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.telemetry = database
		id, err := database.CreateSession(spec.Name, t.Width(), t.Len(), now)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.sessionID = id
		sink = database
		monitoring.Logf("recording telemetry session %s to %s", id, path)
	}

	controller := driver.NewController(t, driver.ParamsFromConfig(cfg), monitoring.NewThrottleWithClock(warnInterval, clock))
	d.loop = driver.NewLoop(driver.LoopConfig{
		Socket:      sock,
		Simulator:   simAddr,
		Controller:  controller,
		RecvTimeout: cfg.GetRecvTimeout(),
		ExitOnStop:  exitOnStop,
		Telemetry:   sink,
		SessionID:   d.sessionID,
		Clock:       clock,
	})
	return d, nil
}

func (d *drive) Run(ctx context.Context) error { return d.loop.Run(ctx) }

func (d *drive) Stats() driver.Stats { return d.loop.Stats() }

// Close releases everything newDrive opened.
func (d *drive) Close() error {
	var errs []error
	if d.socket != nil {
		errs = append(errs, d.socket.Close())
	}
	if d.ioLog != nil {
		errs = append(errs, d.ioLog.Close())
	}
	if d.telemetry != nil {
		errs = append(errs, d.telemetry.Close())
	}
	return errors.Join(errs...)
}
