package render

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trackline/internal/geometry"
	"github.com/banshee-data/trackline/internal/track"
)

func ovalTrack(t *testing.T) *track.Track {
	t.Helper()
	tr, err := track.FromSegments(20,
		geometry.Straight{Length: 100},
		geometry.ConstantArc{Arc: math.Pi, Radius: 50},
		geometry.Straight{Length: 100},
		geometry.ConstantArc{Arc: math.Pi, Radius: 50},
	)
	require.NoError(t, err)
	return tr
}

func TestTrackPlotBounds(t *testing.T) {
	tr := ovalTrack(t)
	paths := []Path{{Name: "lap 1", Points: []r2.Point{{X: 0, Y: 1}, {X: 50, Y: 2}, {X: 100, Y: 0}}}}

	p, err := TrackPlot(tr, "Oval", paths, 5)
	require.NoError(t, err)
	assert.Equal(t, "Oval", p.Title.Text)

	// Outer edges span x in [-60, 160] and y in [-10, 110].
	assert.InDelta(t, p.X.Max-p.X.Min, p.Y.Max-p.Y.Min, 1e-9, "axes are square")
	assert.Less(t, p.X.Min, -60.0)
	assert.Greater(t, p.X.Max, 160.0)
	assert.Less(t, p.Y.Min, -10.0)
	assert.Greater(t, p.Y.Max, 110.0)
}

func TestSaveTrackPlot(t *testing.T) {
	file := filepath.Join(t.TempDir(), "oval.png")
	require.NoError(t, SaveTrackPlot(ovalTrack(t), "Oval", nil, track.DefaultResolution, file))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")))
}

func TestTrackPlotEmptyTrack(t *testing.T) {
	tr, err := track.New(nil, 10)
	require.NoError(t, err)
	_, err = TrackPlot(tr, "empty", nil, 1)
	assert.Error(t, err)
}

func TestOffsetChart(t *testing.T) {
	var buf bytes.Buffer
	err := OffsetChart(&buf, "Oval run", []OffsetSeries{{
		Name:          "run-a",
		Times:         []float64{0, 0.1, 0.2},
		Offsets:       []float64{0.5, math.NaN(), -0.25},
		HeadingErrors: []float64{0.01, math.NaN(), -0.02},
	}})
	require.NoError(t, err)

	html := buf.String()
	assert.True(t, strings.Contains(html, "<html"), "renders a page")
	assert.Contains(t, html, "Oval run")
	assert.Contains(t, html, "run-a")
	assert.Contains(t, html, "Lateral offset")
	assert.Contains(t, html, "Heading error")
}

func TestOffsetChartLengthMismatch(t *testing.T) {
	var buf bytes.Buffer
	err := OffsetChart(&buf, "bad", []OffsetSeries{{Name: "x", Times: []float64{0, 1}, Offsets: []float64{0}}})
	assert.Error(t, err)
}

func TestGenerateColors(t *testing.T) {
	assert.Nil(t, generateColors(0))
	colors := generateColors(3)
	require.Len(t, colors, 3)
	assert.NotEqual(t, colors[0], colors[1])
}
