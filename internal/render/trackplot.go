// Package render draws tracks, driven paths and offset time series.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/trackline/internal/track"
)

// Path is a named polyline, typically the positions of one drive.
type Path struct {
	Name   string
	Points []r2.Point
}

var (
	borderColor     = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	centerlineColor = color.RGBA{R: 150, G: 150, B: 150, A: 255}
)

// TrackPlot draws the track edges at ±width/2, the dashed centerline and
// each path in its own colour. resolution is the sampling interval along
// curved sections.
func TrackPlot(t *track.Track, title string, paths []Path, resolution float64) (*plot.Plot, error) {
	if t.Len() == 0 {
		return nil, errors.New("track has no sections")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"
	p.Add(plotter.NewGrid())

	half := t.Width() / 2
	var all []r2.Point
	for _, side := range []float64{half, -half} {
		border := t.Border(side, resolution)
		all = append(all, border...)
		line, err := plotter.NewLine(toXYs(border))
		if err != nil {
			return nil, fmt.Errorf("border line: %w", err)
		}
		line.Color = borderColor
		line.Width = vg.Points(1.5)
		p.Add(line)
	}

	center, err := plotter.NewLine(toXYs(t.Border(0, resolution)))
	if err != nil {
		return nil, fmt.Errorf("centerline: %w", err)
	}
	center.Color = centerlineColor
	center.Width = vg.Points(0.75)
	center.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(center)
	p.Legend.Add("centerline", center)

	colors := generateColors(len(paths))
	for i, path := range paths {
		if len(path.Points) == 0 {
			continue
		}
		all = append(all, path.Points...)
		line, err := plotter.NewLine(toXYs(path.Points))
		if err != nil {
			return nil, fmt.Errorf("path %q: %w", path.Name, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(path.Name, line)
	}

	setEqualAxes(p, all)
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// SaveTrackPlot renders TrackPlot to file. The format follows the file
// extension (png, svg, pdf).
func SaveTrackPlot(t *track.Track, title string, paths []Path, resolution float64, file string) error {
	p, err := TrackPlot(t, title, paths, resolution)
	if err != nil {
		return err
	}
	if err := p.Save(10*vg.Inch, 10*vg.Inch, file); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", file, err)
	}
	return nil
}

func toXYs(points []r2.Point) plotter.XYs {
	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}
	return xys
}

// setEqualAxes fits a square window around points so the track is not
// distorted on a square canvas.
func setEqualAxes(p *plot.Plot, points []r2.Point) {
	if len(points) == 0 {
		return
	}
	r := r2.RectFromPoints(points...)
	c := r.Center()
	size := r.Size()
	half := math.Max(size.X, size.Y)/2*1.05 + 1
	p.X.Min, p.X.Max = c.X-half, c.X+half
	p.Y.Min, p.Y.Max = c.Y-half, c.Y+half
}

func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
