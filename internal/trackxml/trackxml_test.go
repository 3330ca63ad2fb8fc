package trackxml

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trackline/internal/geometry"
	"github.com/banshee-data/trackline/internal/testutil"
	"github.com/banshee-data/trackline/internal/track"
)

func ptr(v float64) *float64 { return &v }

func TestParseOval(t *testing.T) {
	doc, err := Parse(strings.NewReader(testutil.OvalTrackXML))
	require.NoError(t, err)

	assert.Equal(t, "Oval", doc.Name)
	assert.Equal(t, 20.0, doc.Width)
	assert.Equal(t, 4.0, doc.StepLength)

	want := []track.Descriptor{
		{Name: "straight 1", Kind: track.KindStraight, Length: 100},
		{Name: "curve 1", Kind: track.KindArc, Angle: math.Pi, Radius: 50},
		{Name: "straight 2", Kind: track.KindStraight, Length: 100},
		{Name: "curve 2", Kind: track.KindArc, Angle: math.Pi, Radius: 50},
	}
	if diff := cmp.Diff(want, doc.Descriptors); diff != "" {
		t.Errorf("descriptors mismatch (-want +got):\n%s", diff)
	}

	tr, err := doc.Build()
	require.NoError(t, err)
	assert.Equal(t, 4, tr.Len())
	assert.NoError(t, tr.CheckClosed(1e-6))

	p, ok := tr.Offset(geometry.Pose{X: 50, Y: -5})
	require.True(t, ok)
	assert.InDelta(t, -5.0, p.Offset, 1e-9)
}

const latin1Track = `<?xml version="1.0" encoding="ISO-8859-1"?>
<params name="Kurve" type="param">
  <section name="Main Track">
    <attnum name="width" unit="m" val="12"/>
    <section name="Track Segments">
      <section name="Sch` + "\xf6" + `n">
        <attstr name="type" val="rgt"/>
        <attnum name="arc" unit="deg" val="90"/>
        <attnum name="radius" unit="m" val="40"/>
        <attnum name="end radius" unit="m" val="60"/>
        <attnum name="profil steps length" unit="m" val="10"/>
      </section>
      <section name="tiny">
        <attstr name="type" val="lft"/>
        <attnum name="arc" unit="rad" val="0.1"/>
        <attnum name="radius" unit="m" val="5"/>
        <attnum name="end radius" unit="m" val="6"/>
      </section>
    </section>
  </section>
</params>
`

func TestParseVariableArcLatin1(t *testing.T) {
	doc, err := Parse(strings.NewReader(latin1Track))
	require.NoError(t, err)

	assert.Equal(t, DefaultStepLength, doc.StepLength, "no profil steps length in Main Track")
	want := []track.Descriptor{
		{Name: "Schön", Kind: track.KindVariableArc, Angle: -math.Pi / 2, RadiusStart: 40, RadiusEnd: 60, StepLength: ptr(10)},
		{Name: "tiny", Kind: track.KindVariableArc, Angle: 0.1, RadiusStart: 5, RadiusEnd: 6},
	}
	if diff := cmp.Diff(want, doc.Descriptors); diff != "" {
		t.Errorf("descriptors mismatch (-want +got):\n%s", diff)
	}

	tr, err := doc.Build()
	require.NoError(t, err)
	// 50*π/2 ≈ 78.5m at 10m steps → 8 pieces, "tiny" stays whole.
	assert.Equal(t, 9, tr.Len())
	assert.Equal(t, "Schön.0", tr.Section(0).Name)
	assert.Equal(t, "tiny", tr.Section(8).Name)
	assert.InDelta(t, -math.Pi/2+0.1, tr.TotalTurn(), 1e-12)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		xml     string
		wantErr error
	}{
		{
			name:    "no main track",
			xml:     `<params><section name="Other"/></params>`,
			wantErr: ErrMissingSection,
		},
		{
			name:    "no segments",
			xml:     `<params><section name="Main Track"><attnum name="width" val="10"/></section></params>`,
			wantErr: ErrMissingSection,
		},
		{
			name: "no width",
			xml: `<params><section name="Main Track">
				<section name="Track Segments"/></section></params>`,
			wantErr: ErrMissingSection,
		},
		{
			name: "unsupported unit",
			xml: `<params><section name="Main Track"><attnum name="width" unit="m" val="10"/>
				<section name="Track Segments"><section name="a">
				<attstr name="type" val="str"/><attnum name="lg" unit="furlong" val="1"/>
				</section></section></section></params>`,
			wantErr: ErrUnsupportedUnit,
		},
		{
			name: "unknown type",
			xml: `<params><section name="Main Track"><attnum name="width" unit="m" val="10"/>
				<section name="Track Segments"><section name="a">
				<attstr name="type" val="loop"/></section></section></section></params>`,
			wantErr: track.ErrInvalidSegmentGeometry,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.xml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	_, err := Parse(strings.NewReader("not xml at all"))
	assert.Error(t, err)
}

func TestBuildRejectsIncompleteSection(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<params><section name="Main Track">
		<attnum name="width" unit="m" val="10"/>
		<section name="Track Segments"><section name="bad">
		<attstr name="type" val="lft"/><attnum name="arc" unit="deg" val="30"/>
		</section></section></section></params>`))
	require.NoError(t, err)

	_, err = doc.Build()
	assert.True(t, errors.Is(err, track.ErrInvalidSegmentGeometry), "got %v", err)
}

func TestLoadFile(t *testing.T) {
	path := testutil.WriteFile(t, "oval.xml", testutil.OvalTrackXML)
	doc, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, doc.Descriptors, 4)

	spec := doc.Spec()
	assert.Equal(t, "Oval", spec.Name)
	assert.Equal(t, doc.Descriptors, spec.Sections)

	_, err = LoadFile(path + ".missing")
	assert.Error(t, err)
}

func TestLoadSpec(t *testing.T) {
	xmlPath := testutil.WriteFile(t, "oval.xml", testutil.OvalTrackXML)
	fromXML, err := LoadSpec(xmlPath)
	require.NoError(t, err)

	jsonPath := testutil.WriteFile(t, "oval.json", `{
		"width": 20,
		"sections": [
			{"name": "straight 1", "kind": "straight", "length": 100},
			{"name": "curve 1", "kind": "arc", "angle": 3.141592653589793, "radius": 50},
			{"name": "straight 2", "kind": "straight", "length": 100},
			{"name": "curve 2", "kind": "arc", "angle": 3.141592653589793, "radius": 50}
		]
	}`)
	fromJSON, err := LoadSpec(jsonPath)
	require.NoError(t, err)

	assert.Equal(t, "Oval", fromXML.Name)
	assert.Equal(t, "oval", fromJSON.Name, "name defaults to the file name")
	assert.Equal(t, DefaultStepLength, fromJSON.StepLength)
	if diff := cmp.Diff(fromXML.Sections, fromJSON.Sections); diff != "" {
		t.Errorf("XML and JSON disagree (-xml +json):\n%s", diff)
	}

	bad := testutil.WriteFile(t, "bad.json", `{"width": `)
	_, err = LoadSpec(bad)
	assert.Error(t, err)
}
