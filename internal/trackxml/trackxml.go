// Package trackxml reads TORCS-style XML track descriptions.
//
// A track file is a <params> document of nested <section> elements holding
// <attnum> (numeric, with a unit) and <attstr> (string) attributes. The
// "Main Track" section carries the corridor width and the default profile
// step length; its "Track Segments" section lists the sections in travel
// order:
//
//	<section name="curve 1">
//	  <attstr name="type" val="rgt"/>
//	  <attnum name="arc" unit="deg" val="90"/>
//	  <attnum name="radius" unit="m" val="40"/>
//	  <attnum name="end radius" unit="m" val="60"/>
//	</section>
//
// A right-hand turn ("rgt") has a negative arc. A section with an end
// radius is a variable arc.
package trackxml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/banshee-data/trackline/internal/track"
	"github.com/banshee-data/trackline/internal/units"
)

// DefaultStepLength is used when the file gives no profile step length.
const DefaultStepLength = 4.0

const (
	mainTrackSection     = "Main Track"
	trackSegmentsSection = "Track Segments"
)

var (
	// ErrMissingSection reports a document without a required section or
	// attribute.
	ErrMissingSection = errors.New("missing track section")
	// ErrUnsupportedUnit reports an attnum whose unit cannot be converted.
	ErrUnsupportedUnit = errors.New("unsupported unit")
)

type attr struct {
	Name string `xml:"name,attr"`
	Unit string `xml:"unit,attr"`
	Val  string `xml:"val,attr"`
}

type section struct {
	Name     string    `xml:"name,attr"`
	Attnums  []attr    `xml:"attnum"`
	Attstrs  []attr    `xml:"attstr"`
	Sections []section `xml:"section"`
}

type params struct {
	XMLName  xml.Name  `xml:"params"`
	Name     string    `xml:"name,attr"`
	Sections []section `xml:"section"`
}

// Document is a parsed track file.
type Document struct {
	Name        string
	Width       float64
	StepLength  float64
	Descriptors []track.Descriptor
}

// Build converts the document into a Track.
func (d *Document) Build() (*track.Track, error) {
	return track.Build(d.Descriptors, d.Width, d.StepLength)
}

// Spec returns the document as a track.Spec.
func (d *Document) Spec() track.Spec {
	return track.Spec{Name: d.Name, Width: d.Width, StepLength: d.StepLength, Sections: d.Descriptors}
}

// LoadFile parses the track file at path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open track file: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse reads a track document. External entities such as
// &default-surfaces; are tolerated and ignored.
func Parse(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.CharsetReader = charset.NewReaderLabel

	var p params
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode track XML: %w", err)
	}

	main := find(p.Sections, mainTrackSection)
	if main == nil {
		return nil, fmt.Errorf("%w: %q", ErrMissingSection, mainTrackSection)
	}
	segments := find(p.Sections, trackSegmentsSection)
	if segments == nil {
		return nil, fmt.Errorf("%w: %q", ErrMissingSection, trackSegmentsSection)
	}

	doc := &Document{Name: p.Name, StepLength: DefaultStepLength}

	width, ok, err := main.length("width")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", mainTrackSection, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q has no width", ErrMissingSection, mainTrackSection)
	}
	doc.Width = width

	step, ok, err := main.length("profil steps length")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", mainTrackSection, err)
	}
	if ok {
		doc.StepLength = step
	}

	for i := range segments.Sections {
		d, err := segments.Sections[i].descriptor()
		if err != nil {
			return nil, fmt.Errorf("section %d (%q): %w", i, segments.Sections[i].Name, err)
		}
		doc.Descriptors = append(doc.Descriptors, d)
	}
	return doc, nil
}

// find returns the first section named name in a depth-first walk.
func find(sections []section, name string) *section {
	for i := range sections {
		if sections[i].Name == name {
			return &sections[i]
		}
		if s := find(sections[i].Sections, name); s != nil {
			return s
		}
	}
	return nil
}

func (s *section) attnum(name string) (attr, bool) {
	for _, a := range s.Attnums {
		if a.Name == name {
			return a, true
		}
	}
	return attr{}, false
}

func (s *section) attstr(name string) (string, bool) {
	for _, a := range s.Attstrs {
		if a.Name == name {
			return a.Val, true
		}
	}
	return "", false
}

func (s *section) number(name string, convert func(float64, string) (float64, bool)) (float64, bool, error) {
	a, ok := s.attnum(name)
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(a.Val), 64)
	if err != nil {
		return 0, false, fmt.Errorf("attnum %q: %w", name, err)
	}
	v, ok = convert(v, a.Unit)
	if !ok {
		return 0, false, fmt.Errorf("%w: attnum %q has unit %q", ErrUnsupportedUnit, name, a.Unit)
	}
	return v, true, nil
}

func (s *section) length(name string) (float64, bool, error) {
	return s.number(name, units.ToMeters)
}

func (s *section) angle(name string) (float64, bool, error) {
	return s.number(name, units.ToRadians)
}

func (s *section) descriptor() (track.Descriptor, error) {
	d := track.Descriptor{Name: s.Name}

	kind, _ := s.attstr("type")
	lg, _, err := s.length("lg")
	if err != nil {
		return d, err
	}
	arc, _, err := s.angle("arc")
	if err != nil {
		return d, err
	}
	radius, _, err := s.length("radius")
	if err != nil {
		return d, err
	}
	endRadius, hasEnd, err := s.length("end radius")
	if err != nil {
		return d, err
	}
	step, hasStep, err := s.length("profil steps length")
	if err != nil {
		return d, err
	}
	if hasStep {
		d.StepLength = &step
	}

	switch kind {
	case "str":
		d.Kind = track.KindStraight
		d.Length = lg
		return d, nil
	case "lft", "rgt":
	default:
		return d, fmt.Errorf("%w: unknown segment type %q", track.ErrInvalidSegmentGeometry, kind)
	}

	if kind == "rgt" {
		arc = -arc
	}
	d.Angle = arc
	if hasEnd {
		d.Kind = track.KindVariableArc
		d.RadiusStart = radius
		d.RadiusEnd = endRadius
	} else {
		d.Kind = track.KindArc
		d.Radius = radius
	}
	return d, nil
}
