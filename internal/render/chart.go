package render

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// OffsetSeries is the lateral offset and heading error of one drive over
// simulation time. Samples without a match carry NaN and are left as gaps.
type OffsetSeries struct {
	Name          string
	Times         []float64
	Offsets       []float64
	HeadingErrors []float64 // radians
}

// OffsetChart writes an HTML page with two line charts: lateral offset and
// heading error (degrees) against simulation time.
func OffsetChart(w io.Writer, title string, series []OffsetSeries) error {
	offset := newTimeChart(title, "Lateral offset", "offset (m)")
	heading := newTimeChart(title, "Heading error", "heading error (deg)")

	for _, s := range series {
		if len(s.Offsets) != len(s.Times) || len(s.HeadingErrors) != len(s.Times) {
			return fmt.Errorf("series %q: %d times, %d offsets, %d heading errors",
				s.Name, len(s.Times), len(s.Offsets), len(s.HeadingErrors))
		}
		offsets := make([]opts.LineData, len(s.Times))
		headings := make([]opts.LineData, len(s.Times))
		for i, t := range s.Times {
			offsets[i] = lineData(t, s.Offsets[i])
			headings[i] = lineData(t, s.HeadingErrors[i]*180/math.Pi)
		}
		offset.AddSeries(s.Name, offsets, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
		heading.AddSeries(s.Name, headings, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	}

	page := components.NewPage().SetPageTitle(title)
	page.AddCharts(offset, heading)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

func newTimeChart(pageTitle, title, yName string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: pageTitle, Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: yName}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
	)
	return line
}

func lineData(x, y float64) opts.LineData {
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return opts.LineData{Value: []interface{}{x, "-"}}
	}
	return opts.LineData{Value: []interface{}{x, y}}
}
