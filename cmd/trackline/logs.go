package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/trackline/internal/iolog"
	"github.com/banshee-data/trackline/internal/network"
	"github.com/banshee-data/trackline/internal/simlink"
	"github.com/banshee-data/trackline/internal/track"
	"github.com/banshee-data/trackline/internal/units"
)

// readSensors returns every decodable sensors packet received in an I/O
// log, stopping at the first one that reports the car stopped.
func readSensors(path string) ([]simlink.Sensors, error) {
	records, err := iolog.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []simlink.Sensors
	for _, rec := range records {
		if rec.Direction != iolog.Input {
			continue
		}
		s, err := simlink.ParseSensors(rec.Data)
		if err != nil {
			continue
		}
		if s.Stopped() {
			break
		}
		out = append(out, s)
	}
	return out, nil
}

func handleDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	trackFile := fs.String("track", "", "Annotate sensors packets with their position on this track")
	prediction := fs.Float64("prediction", 0, "Seconds to extrapolate positions before the track query")
	speedUnits := fs.String("units", units.KMPH, "Speed units: "+units.GetValidUnitsString())
	fs.Parse(args)
	if err := requireArgs(fs, 1, "at least one log file"); err != nil {
		return err
	}
	if !units.IsValid(*speedUnits) {
		return fmt.Errorf("invalid units %q, expected one of %s", *speedUnits, units.GetValidUnitsString())
	}
	opts := dumpOptions{Prediction: *prediction, Units: *speedUnits}

	if *trackFile != "" {
		var err error
		if _, opts.Track, err = loadTrack(*trackFile); err != nil {
			return err
		}
	}

	for _, path := range fs.Args() {
		if err := dumpLog(os.Stdout, path, opts); err != nil {
			return err
		}
	}
	return nil
}

// dumpOptions controls how sensors records are annotated. Track is optional.
type dumpOptions struct {
	Track      *track.Track
	Prediction float64
	Units      string
}

func dumpLog(w io.Writer, path string, opts dumpOptions) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer f.Close()

	r, err := iolog.NewReader(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	fmt.Fprintf(w, "# %s\n", path)
	for i := 0; ; i++ {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: record %d: %w", path, i, err)
		}
		fmt.Fprintf(w, "%6d %-6s %4d  %s\n", i, rec.Direction, len(rec.Data), describeRecord(rec, opts))
	}
}

func describeRecord(rec iolog.Record, opts dumpOptions) string {
	switch len(rec.Data) {
	case simlink.CommandSize:
		var c simlink.Command
		if err := c.UnmarshalBinary(rec.Data); err != nil {
			return err.Error()
		}
		return c.String()
	case simlink.SensorsSize:
		s, err := simlink.ParseSensors(rec.Data)
		if err != nil {
			return err.Error()
		}
		desc := fmt.Sprintf("%s %.1f%s", s, units.ConvertSpeed(s.Speed(), opts.Units), opts.Units)
		if opts.Track == nil {
			return desc
		}
		m, status := opts.Track.Query(s.Pose(opts.Prediction))
		if status == track.NoSegmentMatch {
			return fmt.Sprintf("%s %s", desc, status)
		}
		return fmt.Sprintf("%s %s section=%d(%s) offset=%.3f", desc, status, m.Index, m.Section.Name, m.Projection.Offset)
	default:
		return "unrecognised payload"
	}
}

func handlePCAP2Log(args []string) error {
	fs := flag.NewFlagSet("pcap2log", flag.ExitOnError)
	port := fs.Int("port", 3001, "UDP port of the simulator")
	output := fs.String("o", "", "Output log file (default: <capture>.log)")
	fs.Parse(args)
	if err := requireArgs(fs, 1, "a capture file"); err != nil {
		return err
	}

	input := fs.Arg(0)
	out := *output
	if out == "" {
		out = input + iolog.FileExtension
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, span, err := convertPCAP(ctx, input, out, *port)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %d records spanning %s to %s\n", n, span, out)
	return nil
}

// convertPCAP copies the simulator datagrams of a capture into an I/O
// log and returns the record count and the capture time they span.
// Packets from the simulator become Input records.
func convertPCAP(ctx context.Context, input, output string, simulatorPort int) (uint64, time.Duration, error) {
	in, err := os.Open(input)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open capture: %w", err)
	}
	defer in.Close()

	f, err := os.Create(output)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create log: %w", err)
	}
	w, err := iolog.NewWriter(f)
	if err != nil {
		f.Close()
		return 0, 0, err
	}

	var first, last time.Time
	_, err = network.ReadPCAP(ctx, in, simulatorPort, func(d network.Datagram) error {
		if first.IsZero() {
			first = d.Timestamp
		}
		last = d.Timestamp
		dir := iolog.Output
		if d.FromSimulator {
			dir = iolog.Input
		}
		return w.Write(dir, d.Payload)
	})
	closeErr := w.Close()
	if err == nil {
		err = closeErr
	}
	return w.Records(), last.Sub(first), err
}
