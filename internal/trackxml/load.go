package trackxml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/trackline/internal/track"
)

// LoadSpec reads a track from path. Files ending in .json hold a
// track.Spec document; anything else is parsed as track XML.
func LoadSpec(path string) (track.Spec, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return track.Spec{}, fmt.Errorf("failed to read track file: %w", err)
		}
		var spec track.Spec
		if err := json.Unmarshal(data, &spec); err != nil {
			return track.Spec{}, fmt.Errorf("%s: failed to parse track JSON: %w", path, err)
		}
		if spec.StepLength == 0 {
			spec.StepLength = DefaultStepLength
		}
		if spec.Name == "" {
			spec.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		return spec, nil
	}

	doc, err := LoadFile(path)
	if err != nil {
		return track.Spec{}, err
	}
	spec := doc.Spec()
	if spec.Name == "" {
		spec.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return spec, nil
}
