package config

import (
	"errors"
	"fmt"
	"sort"
)

// Analysis presets. They only move the window size and the confidence
// requirements; every other knob keeps its default.
const (
	PresetQuick        = "quick"
	PresetDetailed     = "detailed"
	PresetProfessional = "professional"
)

// ErrUnknownPreset is returned when a preset name is not recognised.
var ErrUnknownPreset = errors.New("unknown preset")

type presetValues struct {
	smoothingWindow     int
	visibilityFloor     float64
	detectionConfidence float64
	debounceFrames      int
}

var presets = map[string]presetValues{
	PresetQuick: {
		smoothingWindow:     3,
		visibilityFloor:     0.3,
		detectionConfidence: 0.3,
		debounceFrames:      2,
	},
	PresetDetailed: {
		smoothingWindow:     5,
		visibilityFloor:     0.5,
		detectionConfidence: 0.5,
		debounceFrames:      3,
	},
	PresetProfessional: {
		smoothingWindow:     7,
		visibilityFloor:     0.65,
		detectionConfidence: 0.7,
		debounceFrames:      3,
	},
}

// PresetNames returns the recognised preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PresetTuningConfig returns a config that selects the named preset and
// leaves every other field unset.
func PresetTuningConfig(name string) (*TuningConfig, error) {
	if _, ok := presets[name]; !ok {
		return nil, fmt.Errorf("%w: %q (valid: %v)", ErrUnknownPreset, name, PresetNames())
	}
	return &TuningConfig{Preset: ptrString(name)}, nil
}

// PresetOverrides returns the JSON keys of preset-governed fields that are
// set explicitly on c. Those values win over whatever preset c names.
func (c *TuningConfig) PresetOverrides() []string {
	var keys []string
	if c.SmoothingWindow != nil {
		keys = append(keys, "smoothing_window")
	}
	if c.VisibilityFloor != nil {
		keys = append(keys, "visibility_floor")
	}
	if c.DetectionConfidence != nil {
		keys = append(keys, "detection_confidence")
	}
	if c.DebounceFrames != nil {
		keys = append(keys, "debounce_frames")
	}
	return keys
}
