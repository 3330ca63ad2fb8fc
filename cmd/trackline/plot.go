package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/geo/r2"

	"github.com/banshee-data/trackline/internal/db"
	"github.com/banshee-data/trackline/internal/render"
	"github.com/banshee-data/trackline/internal/simlink"
	"github.com/banshee-data/trackline/internal/track"
)

func handlePlot(args []string) error {
	fs := flag.NewFlagSet("plot", flag.ExitOnError)
	output := fs.String("o", "track.png", "Output image; the extension selects the format")
	title := fs.String("title", "", "Plot title (default: track name)")
	resolution := fs.Float64("resolution", 1.0, "Border sampling distance in meters")
	fs.Parse(args)
	if err := requireArgs(fs, 1, "a track file"); err != nil {
		return err
	}

	spec, t, err := loadTrack(fs.Arg(0))
	if err != nil {
		return err
	}

	paths, err := logPaths(fs.Args()[1:])
	if err != nil {
		return err
	}

	name := *title
	if name == "" {
		name = spec.Name
	}
	if err := render.SaveTrackPlot(t, name, paths, *resolution, *output); err != nil {
		return err
	}
	fmt.Printf("Plot saved to %s\n", *output)
	return nil
}

// logPaths turns each I/O log into the path of positions it received.
func logPaths(logs []string) ([]render.Path, error) {
	paths := make([]render.Path, 0, len(logs))
	for _, path := range logs {
		sensors, err := readSensors(path)
		if err != nil {
			return nil, err
		}
		points := make([]r2.Point, len(sensors))
		for i, s := range sensors {
			points[i] = r2.Point{X: s.Position.X, Y: s.Position.Y}
		}
		paths = append(paths, render.Path{Name: baseName(path), Points: points})
	}
	return paths, nil
}

func baseName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func handleChart(args []string) error {
	fs := flag.NewFlagSet("chart", flag.ExitOnError)
	trackFile := fs.String("track", "", "Track file used to locate logged positions")
	dbPath := fs.String("db", "", "Telemetry database to chart instead of logs")
	session := fs.String("session", "", "Session ID to chart (default: every session)")
	prediction := fs.Float64("prediction", 0, "Seconds to extrapolate logged positions")
	output := fs.String("o", "offsets.html", "Output HTML file")
	title := fs.String("title", "Lateral offset", "Chart title")
	fs.Parse(args)

	var (
		series []render.OffsetSeries
		err    error
	)
	switch {
	case *dbPath != "":
		series, err = dbSeries(*dbPath, *session)
	case *trackFile != "":
		if err := requireArgs(fs, 1, "at least one log file"); err != nil {
			return err
		}
		var t *track.Track
		if _, t, err = loadTrack(*trackFile); err != nil {
			return err
		}
		series, err = logSeries(t, fs.Args(), *prediction)
	default:
		fs.Usage()
		return fmt.Errorf("chart requires -db or -track")
	}
	if err != nil {
		return err
	}

	f, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer f.Close()
	if err := render.OffsetChart(f, *title, series); err != nil {
		return err
	}
	fmt.Printf("Chart saved to %s\n", *output)
	return nil
}

// logSeries locates every logged sensors packet on t. Positions that match
// no section chart as gaps.
func logSeries(t *track.Track, logs []string, prediction float64) ([]render.OffsetSeries, error) {
	var out []render.OffsetSeries
	for _, path := range logs {
		sensors, err := readSensors(path)
		if err != nil {
			return nil, err
		}
		out = append(out, sensorSeries(t, baseName(path), sensors, prediction))
	}
	return out, nil
}

func sensorSeries(t *track.Track, name string, sensors []simlink.Sensors, prediction float64) render.OffsetSeries {
	s := render.OffsetSeries{
		Name:          name,
		Times:         make([]float64, len(sensors)),
		Offsets:       make([]float64, len(sensors)),
		HeadingErrors: make([]float64, len(sensors)),
	}
	for i, sn := range sensors {
		s.Times[i] = sn.Time
		m, status := t.Query(sn.Pose(prediction))
		if status == track.NoSegmentMatch {
			s.Offsets[i], s.HeadingErrors[i] = math.NaN(), math.NaN()
			continue
		}
		s.Offsets[i] = m.Projection.Offset
		s.HeadingErrors[i] = m.Projection.HeadingError
	}
	return s
}

func dbSeries(path, sessionID string) ([]render.OffsetSeries, error) {
	database, err := db.OpenDB(path)
	if err != nil {
		return nil, err
	}
	defer database.Close()

	sessions, err := database.Sessions()
	if err != nil {
		return nil, err
	}

	var out []render.OffsetSeries
	for _, sess := range sessions {
		if sessionID != "" && sess.ID != sessionID {
			continue
		}
		samples, err := database.Samples(sess.ID)
		if err != nil {
			return nil, err
		}
		name := fmt.Sprintf("%s %s", sess.TrackName, sess.StartedAt.Format("2006-01-02 15:04:05"))
		out = append(out, sampleSeries(name, samples))
	}
	if sessionID != "" && len(out) == 0 {
		return nil, fmt.Errorf("session %q not found in %s", sessionID, path)
	}
	return out, nil
}

func sampleSeries(name string, samples []db.Sample) render.OffsetSeries {
	s := render.OffsetSeries{
		Name:          name,
		Times:         make([]float64, len(samples)),
		Offsets:       make([]float64, len(samples)),
		HeadingErrors: make([]float64, len(samples)),
	}
	noMatch := track.NoSegmentMatch.String()
	for i, sm := range samples {
		s.Times[i] = sm.SimTime
		if sm.Status == noMatch {
			s.Offsets[i], s.HeadingErrors[i] = math.NaN(), math.NaN()
			continue
		}
		s.Offsets[i] = sm.Offset
		s.HeadingErrors[i] = sm.HeadingError
	}
	return s
}
