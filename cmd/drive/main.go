package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/trackline/internal/config"
	"github.com/banshee-data/trackline/internal/network"
	"github.com/banshee-data/trackline/internal/timeutil"
	"github.com/banshee-data/trackline/internal/version"
)

var (
	configFile = flag.String("config", config.DefaultConfigPath, "Drive configuration JSON")
	trackFile  = flag.String("track", "", "Track file (.xml or .json)")
	listen     = flag.String("listen", "", "Override the local listen address")
	simulator  = flag.String("sim", "", "Override the simulator address")
	logDir     = flag.String("log-dir", "", "Override the I/O log directory")
	telemetry  = flag.String("telemetry-db", "", "Override the telemetry database path")
	noLog      = flag.Bool("no-log", false, "Disable the I/O log")
	keepGoing  = flag.Bool("keep-going", false, "Keep driving after the simulator reports a stop")
)

func main() {
	flag.Parse()

	if *trackFile == "" {
		log.Fatal("Track file is required")
	}

	log.Print(version.String("drive"))

	cfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyOverrides(cfg, overrides{
		Listen:      *listen,
		Simulator:   *simulator,
		LogDir:      *logDir,
		TelemetryDB: *telemetry,
		NoLog:       *noLog,
	})

	d, err := newDrive(cfg, *trackFile, !*keepGoing, network.NewRealUDPSocketFactory(), timeutil.RealClock{})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := d.Run(ctx)
	if err := d.Close(); err != nil {
		log.Printf("Failed to close drive resources: %v", err)
	}

	s := d.Stats()
	log.Printf("Iterations: %d, timeouts: %d, bad packets: %d, on track: %d, off corridor: %d, no match: %d",
		s.Iterations, s.Timeouts, s.BadPackets, s.OnTrack, s.OffCorridor, s.NoMatch)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Printf("Drive loop failed: %v", runErr)
		os.Exit(1)
	}
}
