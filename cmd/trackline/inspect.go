package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/trackline/internal/geometry"
	"github.com/banshee-data/trackline/internal/track"
	"github.com/banshee-data/trackline/internal/trackxml"
	"github.com/banshee-data/trackline/internal/units"
)

// DefaultClosureTolerance is the |x|+|y| distance in meters within which
// a track's end pose counts as returning to the origin.
const DefaultClosureTolerance = 1e-3

func loadTrack(path string) (track.Spec, *track.Track, error) {
	spec, err := trackxml.LoadSpec(path)
	if err != nil {
		return track.Spec{}, nil, err
	}
	t, err := spec.Build()
	if err != nil {
		return track.Spec{}, nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, t, nil
}

func handleInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	verbose := fs.Bool("v", false, "List every section")
	tol := fs.Float64("tol", DefaultClosureTolerance, "Closure tolerance in meters")
	fs.Parse(args)
	if err := requireArgs(fs, 1, "a track file"); err != nil {
		return err
	}

	spec, t, err := loadTrack(fs.Arg(0))
	if err != nil {
		return err
	}
	writeInfo(os.Stdout, spec, t, *tol, *verbose)
	return nil
}

func writeInfo(w io.Writer, spec track.Spec, t *track.Track, tol float64, verbose bool) {
	lengths := make([]float64, t.Len())
	for i, s := range t.Sections() {
		lengths[i] = geometry.PathLength(s.Segment)
	}

	fmt.Fprintf(w, "Track:       %s\n", spec.Name)
	fmt.Fprintf(w, "Width:       %.2f m\n", t.Width())
	fmt.Fprintf(w, "Descriptors: %d\n", len(spec.Sections))
	fmt.Fprintf(w, "Sections:    %d\n", t.Len())
	fmt.Fprintf(w, "Path length: %.2f m\n", floats.Sum(lengths))
	fmt.Fprintf(w, "Total turn:  %.2f deg\n", units.RadToDeg(t.TotalTurn()))
	fmt.Fprintf(w, "Section length: min %.2f m, max %.2f m, mean %.2f m\n",
		floats.Min(lengths), floats.Max(lengths), stat.Mean(lengths, nil))

	if err := t.CheckClosed(tol); err != nil {
		fmt.Fprintf(w, "Closure:     open (%v)\n", err)
	} else {
		fmt.Fprintf(w, "Closure:     closed (end pose %v)\n", t.EndPose())
	}

	if !verbose {
		return
	}
	fmt.Fprintln(w)
	frames := t.Frames()
	for i, s := range t.Sections() {
		fmt.Fprintf(w, "%4d  %-24s %-52s len=%8.2f  start=%v\n",
			i, s.Name, geometry.Describe(s.Segment), lengths[i], frames[i])
	}
}

func handleCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	tol := fs.Float64("tol", DefaultClosureTolerance, "Closure tolerance in meters")
	fs.Parse(args)
	if err := requireArgs(fs, 1, "at least one track file"); err != nil {
		return err
	}

	var failed int
	for _, path := range fs.Args() {
		if err := checkTrack(os.Stdout, path, *tol); err != nil {
			fmt.Fprintf(os.Stdout, "%s: %v\n", path, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tracks failed", failed, fs.NArg())
	}
	return nil
}

func checkTrack(w io.Writer, path string, tol float64) error {
	_, t, err := loadTrack(path)
	if err != nil {
		return err
	}
	if err := t.CheckClosed(tol); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: closed, %d sections, %.2f m\n", path, t.Len(), t.PathLength())
	return nil
}
