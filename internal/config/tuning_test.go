package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	if cfg.SmoothingWindow == nil || *cfg.SmoothingWindow != 5 {
		t.Errorf("Expected SmoothingWindow 5, got %v", cfg.SmoothingWindow)
	}
	if cfg.LatencyBudget == nil || *cfg.LatencyBudget != "150ms" {
		t.Errorf("Expected LatencyBudget '150ms', got %v", cfg.LatencyBudget)
	}
	if cfg.Bilateral == nil || *cfg.Bilateral != true {
		t.Errorf("Expected Bilateral true, got %v", cfg.Bilateral)
	}

	if cfg.GetStrikeHighRatio() != 0.98 {
		t.Errorf("GetStrikeHighRatio() = %f, want 0.98", cfg.GetStrikeHighRatio())
	}
	if cfg.GetStrikeLowRatio() != 0.85 {
		t.Errorf("GetStrikeLowRatio() = %f, want 0.85", cfg.GetStrikeLowRatio())
	}
	if cfg.GetLatencyBudget() != 150*time.Millisecond {
		t.Errorf("GetLatencyBudget() = %s, want 150ms", cfg.GetLatencyBudget())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestDefaultsFileMatchesBuiltins(t *testing.T) {
	fromFile := MustLoadDefaultConfig()
	if diff := cmp.Diff(DefaultTuningConfig(), fromFile); diff != "" {
		t.Errorf("%s drifted from built-in defaults (-builtin +file):\n%s", DefaultConfigPath, diff)
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "preset": "professional",
  "debounce_frames": 4,
  "strike_high_ratio": 0.97,
  "latency_budget": "100ms"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetDebounceFrames() != 4 {
		t.Errorf("GetDebounceFrames() = %d, want 4", cfg.GetDebounceFrames())
	}
	if cfg.GetStrikeHighRatio() != 0.97 {
		t.Errorf("GetStrikeHighRatio() = %f, want 0.97", cfg.GetStrikeHighRatio())
	}
	if cfg.GetLatencyBudget() != 100*time.Millisecond {
		t.Errorf("GetLatencyBudget() = %s, want 100ms", cfg.GetLatencyBudget())
	}
	// Unset fields fall back to the professional preset.
	if cfg.GetSmoothingWindow() != 7 {
		t.Errorf("GetSmoothingWindow() = %d, want 7 (professional)", cfg.GetSmoothingWindow())
	}
	if cfg.GetDetectionConfidence() != 0.7 {
		t.Errorf("GetDetectionConfidence() = %f, want 0.7 (professional)", cfg.GetDetectionConfidence())
	}
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadTuningConfigWrongExtension(t *testing.T) {
	_, err := LoadTuningConfig("/tmp/config.yaml")
	if err == nil {
		t.Error("Expected error for non-json extension, got nil")
	}
}

func TestLoadTuningConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_config.json")

	invalidJSON := `{
  "smoothing_window": "invalid"
`
	if err := os.WriteFile(configPath, []byte(invalidJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{"empty config", EmptyTuningConfig(), false},
		{"defaults", DefaultTuningConfig(), false},
		{"unknown preset", &TuningConfig{Preset: ptrString("turbo")}, true},
		{"zero window", &TuningConfig{SmoothingWindow: ptrInt(0)}, true},
		{"zero debounce", &TuningConfig{DebounceFrames: ptrInt(0)}, true},
		{"negative settle", &TuningConfig{SettleFrames: ptrInt(-1)}, true},
		{"visibility floor above one", &TuningConfig{VisibilityFloor: ptrFloat64(1.5)}, true},
		{"negative speed ref", &TuningConfig{SmoothingSpeedRef: ptrFloat64(-1)}, true},
		{"inverted alpha range", &TuningConfig{SmoothingMinAlpha: ptrFloat64(0.95)}, true},
		{"enter above exit", &TuningConfig{ContactEnterVelocity: ptrFloat64(0.5)}, true},
		{"enter equals exit", &TuningConfig{ContactEnterVelocity: ptrFloat64(0.2), ContactExitVelocity: ptrFloat64(0.2)}, true},
		{"low above high", &TuningConfig{StrikeLowRatio: ptrFloat64(0.99)}, true},
		{"bad latency budget", &TuningConfig{LatencyBudget: ptrString("soon")}, true},
		{"negative latency budget", &TuningConfig{LatencyBudget: ptrString("-5ms")}, true},
		{"valid overrides", &TuningConfig{DebounceFrames: ptrInt(2), LatencyBudget: ptrString("33ms")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPresets(t *testing.T) {
	tests := []struct {
		preset     string
		window     int
		confidence float64
		debounce   int
	}{
		{PresetQuick, 3, 0.3, 2},
		{PresetDetailed, 5, 0.5, 3},
		{PresetProfessional, 7, 0.7, 3},
	}

	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			cfg, err := PresetTuningConfig(tt.preset)
			if err != nil {
				t.Fatalf("PresetTuningConfig(%q) error: %v", tt.preset, err)
			}
			if got := cfg.GetSmoothingWindow(); got != tt.window {
				t.Errorf("GetSmoothingWindow() = %d, want %d", got, tt.window)
			}
			if got := cfg.GetDetectionConfidence(); got != tt.confidence {
				t.Errorf("GetDetectionConfidence() = %f, want %f", got, tt.confidence)
			}
			if got := cfg.GetDebounceFrames(); got != tt.debounce {
				t.Errorf("GetDebounceFrames() = %d, want %d", got, tt.debounce)
			}
		})
	}

	if _, err := PresetTuningConfig("turbo"); !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("PresetTuningConfig(turbo) error = %v, want ErrUnknownPreset", err)
	}
	if diff := cmp.Diff([]string{"detailed", "professional", "quick"}, PresetNames()); diff != "" {
		t.Errorf("PresetNames() mismatch (-want +got):\n%s", diff)
	}
}

func TestPresetOverrides(t *testing.T) {
	cfg, err := PresetTuningConfig(PresetQuick)
	if err != nil {
		t.Fatalf("PresetTuningConfig error: %v", err)
	}
	if got := cfg.PresetOverrides(); len(got) != 0 {
		t.Errorf("PresetOverrides() = %v, want none", got)
	}

	window := 9
	cfg.SmoothingWindow = &window
	cfg.DebounceFrames = ptrInt(4)
	if diff := cmp.Diff([]string{"smoothing_window", "debounce_frames"}, cfg.PresetOverrides()); diff != "" {
		t.Errorf("PresetOverrides() mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.GetSmoothingWindow(); got != 9 {
		t.Errorf("GetSmoothingWindow() = %d, want the explicit 9 over the preset", got)
	}

	want := []string{"smoothing_window", "visibility_floor", "detection_confidence", "debounce_frames"}
	if diff := cmp.Diff(want, MustLoadDefaultConfig().PresetOverrides()); diff != "" {
		t.Errorf("defaults file PresetOverrides() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetLatencyBudgetFallback(t *testing.T) {
	cfg := &TuningConfig{LatencyBudget: ptrString("garbage")}
	if got := cfg.GetLatencyBudget(); got != 150*time.Millisecond {
		t.Errorf("GetLatencyBudget() = %s, want 150ms fallback", got)
	}
}
