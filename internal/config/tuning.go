package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// The values in this file must match the Get* fallbacks below.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for the gait pipeline.
// Every field is optional: a nil pointer means "use the preset/default value",
// so partial JSON files are safe.
type TuningConfig struct {
	// Preset selects the base values for fields not set explicitly.
	// One of "quick", "detailed", "professional". Empty means "detailed".
	Preset *string `json:"preset,omitempty"`

	// Smoother params
	SmoothingWindow   *int     `json:"smoothing_window,omitempty"`
	VisibilityFloor   *float64 `json:"visibility_floor,omitempty"`
	SmoothingMinAlpha *float64 `json:"smoothing_min_alpha,omitempty"`
	SmoothingMaxAlpha *float64 `json:"smoothing_max_alpha,omitempty"`
	SmoothingSpeedRef *float64 `json:"smoothing_speed_ref,omitempty"` // normalised units/s at which max alpha applies
	CarryForwardDecay *float64 `json:"carry_forward_decay,omitempty"`

	// Detection
	DetectionConfidence *float64 `json:"detection_confidence,omitempty"`

	// Velocity hysteresis (normalised units/s, upward positive)
	DescentArmVelocity   *float64 `json:"descent_arm_velocity,omitempty"`
	ContactEnterVelocity *float64 `json:"contact_enter_velocity,omitempty"`
	ContactExitVelocity  *float64 `json:"contact_exit_velocity,omitempty"`
	LiftoffVelocity      *float64 `json:"liftoff_velocity,omitempty"`
	MinAscentVelocity    *float64 `json:"min_ascent_velocity,omitempty"`

	// Phase machine
	DebounceFrames *int `json:"debounce_frames,omitempty"`
	SettleFrames   *int `json:"settle_frames,omitempty"`

	// Strike classification
	StrikeHighRatio          *float64 `json:"strike_high_ratio,omitempty"`
	StrikeLowRatio           *float64 `json:"strike_low_ratio,omitempty"`
	AngleDisagreementPenalty *float64 `json:"angle_disagreement_penalty,omitempty"`
	DegenerateAnglePenalty   *float64 `json:"degenerate_angle_penalty,omitempty"`
	InsufficientDataPenalty  *float64 `json:"insufficient_data_penalty,omitempty"`

	// Runtime
	LatencyBudget *string `json:"latency_budget,omitempty"` // duration string like "150ms"
	Bilateral     *bool   `json:"bilateral,omitempty"`
	UseDepth      *bool   `json:"use_depth,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the built-in defaults.
func DefaultTuningConfig() *TuningConfig {
	c := EmptyTuningConfig()
	return &TuningConfig{
		Preset:                   ptrString(c.GetPreset()),
		SmoothingWindow:          ptrInt(c.GetSmoothingWindow()),
		VisibilityFloor:          ptrFloat64(c.GetVisibilityFloor()),
		SmoothingMinAlpha:        ptrFloat64(c.GetSmoothingMinAlpha()),
		SmoothingMaxAlpha:        ptrFloat64(c.GetSmoothingMaxAlpha()),
		SmoothingSpeedRef:        ptrFloat64(c.GetSmoothingSpeedRef()),
		CarryForwardDecay:        ptrFloat64(c.GetCarryForwardDecay()),
		DetectionConfidence:      ptrFloat64(c.GetDetectionConfidence()),
		DescentArmVelocity:       ptrFloat64(c.GetDescentArmVelocity()),
		ContactEnterVelocity:     ptrFloat64(c.GetContactEnterVelocity()),
		ContactExitVelocity:      ptrFloat64(c.GetContactExitVelocity()),
		LiftoffVelocity:          ptrFloat64(c.GetLiftoffVelocity()),
		MinAscentVelocity:        ptrFloat64(c.GetMinAscentVelocity()),
		DebounceFrames:           ptrInt(c.GetDebounceFrames()),
		SettleFrames:             ptrInt(c.GetSettleFrames()),
		StrikeHighRatio:          ptrFloat64(c.GetStrikeHighRatio()),
		StrikeLowRatio:           ptrFloat64(c.GetStrikeLowRatio()),
		AngleDisagreementPenalty: ptrFloat64(c.GetAngleDisagreementPenalty()),
		DegenerateAnglePenalty:   ptrFloat64(c.GetDegenerateAnglePenalty()),
		InsufficientDataPenalty:  ptrFloat64(c.GetInsufficientDataPenalty()),
		LatencyBudget:            ptrString(c.GetLatencyBudget().String()),
		Bilateral:                ptrBool(c.GetBilateral()),
		UseDepth:                 ptrBool(c.GetUseDepth()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file fall back to the selected preset.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/gait/lN*/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

func checkUnit(name string, v *float64) error {
	if v != nil && (*v < 0 || *v > 1) {
		return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
	}
	return nil
}

func checkPositive(name string, v *float64) error {
	if v != nil && *v <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, *v)
	}
	return nil
}

// Validate checks that the configuration values are valid, including the
// cross-field constraints of the hysteresis band and strike thresholds.
func (c *TuningConfig) Validate() error {
	if c.Preset != nil && *c.Preset != "" {
		if _, ok := presets[*c.Preset]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownPreset, *c.Preset)
		}
	}

	if c.SmoothingWindow != nil && *c.SmoothingWindow < 1 {
		return fmt.Errorf("smoothing_window must be at least 1, got %d", *c.SmoothingWindow)
	}
	if c.DebounceFrames != nil && *c.DebounceFrames < 1 {
		return fmt.Errorf("debounce_frames must be at least 1, got %d", *c.DebounceFrames)
	}
	if c.SettleFrames != nil && *c.SettleFrames < 0 {
		return fmt.Errorf("settle_frames must be non-negative, got %d", *c.SettleFrames)
	}

	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"visibility_floor", c.VisibilityFloor},
		{"smoothing_min_alpha", c.SmoothingMinAlpha},
		{"smoothing_max_alpha", c.SmoothingMaxAlpha},
		{"carry_forward_decay", c.CarryForwardDecay},
		{"detection_confidence", c.DetectionConfidence},
		{"angle_disagreement_penalty", c.AngleDisagreementPenalty},
		{"degenerate_angle_penalty", c.DegenerateAnglePenalty},
		{"insufficient_data_penalty", c.InsufficientDataPenalty},
	} {
		if err := checkUnit(f.name, f.v); err != nil {
			return err
		}
	}

	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"smoothing_speed_ref", c.SmoothingSpeedRef},
		{"descent_arm_velocity", c.DescentArmVelocity},
		{"contact_enter_velocity", c.ContactEnterVelocity},
		{"contact_exit_velocity", c.ContactExitVelocity},
		{"liftoff_velocity", c.LiftoffVelocity},
		{"min_ascent_velocity", c.MinAscentVelocity},
		{"strike_high_ratio", c.StrikeHighRatio},
		{"strike_low_ratio", c.StrikeLowRatio},
	} {
		if err := checkPositive(f.name, f.v); err != nil {
			return err
		}
	}

	if c.GetSmoothingMinAlpha() > c.GetSmoothingMaxAlpha() {
		return fmt.Errorf("smoothing_min_alpha (%f) must not exceed smoothing_max_alpha (%f)",
			c.GetSmoothingMinAlpha(), c.GetSmoothingMaxAlpha())
	}
	if c.GetContactEnterVelocity() >= c.GetContactExitVelocity() {
		return fmt.Errorf("contact_enter_velocity (%f) must be below contact_exit_velocity (%f)",
			c.GetContactEnterVelocity(), c.GetContactExitVelocity())
	}
	if c.GetStrikeLowRatio() >= c.GetStrikeHighRatio() {
		return fmt.Errorf("strike_low_ratio (%f) must be below strike_high_ratio (%f)",
			c.GetStrikeLowRatio(), c.GetStrikeHighRatio())
	}

	if c.LatencyBudget != nil && *c.LatencyBudget != "" {
		d, err := time.ParseDuration(*c.LatencyBudget)
		if err != nil {
			return fmt.Errorf("invalid latency_budget '%s': %w", *c.LatencyBudget, err)
		}
		if d <= 0 {
			return fmt.Errorf("latency_budget must be positive, got %s", d)
		}
	}

	return nil
}

// GetPreset returns the preset name or "detailed".
func (c *TuningConfig) GetPreset() string {
	if c.Preset == nil || *c.Preset == "" {
		return PresetDetailed
	}
	return *c.Preset
}

func (c *TuningConfig) preset() presetValues {
	if p, ok := presets[c.GetPreset()]; ok {
		return p
	}
	return presets[PresetDetailed]
}

// GetSmoothingWindow returns the smoothing_window value or the preset default.
func (c *TuningConfig) GetSmoothingWindow() int {
	if c.SmoothingWindow == nil {
		return c.preset().smoothingWindow
	}
	return *c.SmoothingWindow
}

// GetVisibilityFloor returns the visibility_floor value or the preset default.
func (c *TuningConfig) GetVisibilityFloor() float64 {
	if c.VisibilityFloor == nil {
		return c.preset().visibilityFloor
	}
	return *c.VisibilityFloor
}

// GetSmoothingMinAlpha returns the smoothing_min_alpha value or the default.
func (c *TuningConfig) GetSmoothingMinAlpha() float64 {
	if c.SmoothingMinAlpha == nil {
		return 0.25
	}
	return *c.SmoothingMinAlpha
}

// GetSmoothingMaxAlpha returns the smoothing_max_alpha value or the default.
func (c *TuningConfig) GetSmoothingMaxAlpha() float64 {
	if c.SmoothingMaxAlpha == nil {
		return 0.9
	}
	return *c.SmoothingMaxAlpha
}

// GetSmoothingSpeedRef returns the smoothing_speed_ref value or the default.
func (c *TuningConfig) GetSmoothingSpeedRef() float64 {
	if c.SmoothingSpeedRef == nil {
		return 0.6
	}
	return *c.SmoothingSpeedRef
}

// GetCarryForwardDecay returns the carry_forward_decay value or the default.
func (c *TuningConfig) GetCarryForwardDecay() float64 {
	if c.CarryForwardDecay == nil {
		return 0.85
	}
	return *c.CarryForwardDecay
}

// GetDetectionConfidence returns the detection_confidence value or the preset default.
func (c *TuningConfig) GetDetectionConfidence() float64 {
	if c.DetectionConfidence == nil {
		return c.preset().detectionConfidence
	}
	return *c.DetectionConfidence
}

// GetDescentArmVelocity returns the descent_arm_velocity value or the default.
func (c *TuningConfig) GetDescentArmVelocity() float64 {
	if c.DescentArmVelocity == nil {
		return 0.3
	}
	return *c.DescentArmVelocity
}

// GetContactEnterVelocity returns the contact_enter_velocity value or the default.
func (c *TuningConfig) GetContactEnterVelocity() float64 {
	if c.ContactEnterVelocity == nil {
		return 0.15
	}
	return *c.ContactEnterVelocity
}

// GetContactExitVelocity returns the contact_exit_velocity value or the default.
func (c *TuningConfig) GetContactExitVelocity() float64 {
	if c.ContactExitVelocity == nil {
		return 0.35
	}
	return *c.ContactExitVelocity
}

// GetLiftoffVelocity returns the liftoff_velocity value or the default.
func (c *TuningConfig) GetLiftoffVelocity() float64 {
	if c.LiftoffVelocity == nil {
		return 0.35
	}
	return *c.LiftoffVelocity
}

// GetMinAscentVelocity returns the min_ascent_velocity value or the default.
func (c *TuningConfig) GetMinAscentVelocity() float64 {
	if c.MinAscentVelocity == nil {
		return 0.5
	}
	return *c.MinAscentVelocity
}

// GetDebounceFrames returns the debounce_frames value or the preset default.
func (c *TuningConfig) GetDebounceFrames() int {
	if c.DebounceFrames == nil {
		return c.preset().debounceFrames
	}
	return *c.DebounceFrames
}

// GetSettleFrames returns the settle_frames value or the default.
func (c *TuningConfig) GetSettleFrames() int {
	if c.SettleFrames == nil {
		return 2
	}
	return *c.SettleFrames
}

// GetStrikeHighRatio returns the strike_high_ratio value or the default.
func (c *TuningConfig) GetStrikeHighRatio() float64 {
	if c.StrikeHighRatio == nil {
		return 0.98
	}
	return *c.StrikeHighRatio
}

// GetStrikeLowRatio returns the strike_low_ratio value or the default.
func (c *TuningConfig) GetStrikeLowRatio() float64 {
	if c.StrikeLowRatio == nil {
		return 0.85
	}
	return *c.StrikeLowRatio
}

// GetAngleDisagreementPenalty returns the angle_disagreement_penalty value or the default.
func (c *TuningConfig) GetAngleDisagreementPenalty() float64 {
	if c.AngleDisagreementPenalty == nil {
		return 0.3
	}
	return *c.AngleDisagreementPenalty
}

// GetDegenerateAnglePenalty returns the degenerate_angle_penalty value or the default.
func (c *TuningConfig) GetDegenerateAnglePenalty() float64 {
	if c.DegenerateAnglePenalty == nil {
		return 0.15
	}
	return *c.DegenerateAnglePenalty
}

// GetInsufficientDataPenalty returns the insufficient_data_penalty value or the default.
func (c *TuningConfig) GetInsufficientDataPenalty() float64 {
	if c.InsufficientDataPenalty == nil {
		return 0.2
	}
	return *c.InsufficientDataPenalty
}

// GetLatencyBudget parses and returns the LatencyBudget as a time.Duration.
func (c *TuningConfig) GetLatencyBudget() time.Duration {
	if c.LatencyBudget == nil || *c.LatencyBudget == "" {
		return 150 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.LatencyBudget)
	if err != nil || d <= 0 {
		return 150 * time.Millisecond // default on parse error
	}
	return d
}

// GetBilateral returns the bilateral value or the default.
func (c *TuningConfig) GetBilateral() bool {
	if c.Bilateral == nil {
		return true
	}
	return *c.Bilateral
}

// GetUseDepth returns the use_depth value or the default.
func (c *TuningConfig) GetUseDepth() bool {
	if c.UseDepth == nil {
		return false
	}
	return *c.UseDepth
}
