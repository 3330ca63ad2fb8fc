// Package testutil provides shared test utilities and fixtures.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// WriteFile writes content to name inside a fresh temporary directory and
// returns the full path.
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// OvalTrackXML is a closed 200m x 100m oval: two 100m straights joined by
// left-hand 180 degree arcs of radius 50m, 20m wide.
const OvalTrackXML = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE params SYSTEM "../../../../src/libs/tgf/params.dtd" [
<!ENTITY default-surfaces SYSTEM "../../../data/tracks/surfaces.xml">
]>
<params name="Oval" type="param" mode="mw">
  <section name="Surfaces">
    &default-surfaces;
  </section>
  <section name="Main Track">
    <attnum name="width" unit="m" val="20.0"/>
    <attnum name="profil steps length" unit="m" val="4.0"/>
    <section name="Track Segments">
      <section name="straight 1">
        <attstr name="type" val="str"/>
        <attnum name="lg" unit="m" val="100.0"/>
      </section>
      <section name="curve 1">
        <attstr name="type" val="lft"/>
        <attnum name="arc" unit="deg" val="180.0"/>
        <attnum name="radius" unit="m" val="50.0"/>
      </section>
      <section name="straight 2">
        <attstr name="type" val="str"/>
        <attnum name="lg" unit="m" val="100.0"/>
      </section>
      <section name="curve 2">
        <attstr name="type" val="lft"/>
        <attnum name="arc" unit="deg" val="180.0"/>
        <attnum name="radius" unit="m" val="50.0"/>
      </section>
    </section>
  </section>
</params>
`
