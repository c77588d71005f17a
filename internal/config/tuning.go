package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for overlay tuning
// parameters. The schema matches the /api/hud/params endpoint so the same
// JSON can be used for both startup configuration and runtime updates.
// All fields are optional; the Get* accessors supply defaults.
type TuningConfig struct {
	// Population params
	AreaPerEntity *float64 `json:"area_per_entity,omitempty"` // viewport px² per entity
	MinEntities   *int     `json:"min_entities,omitempty"`
	MaxEntities   *int     `json:"max_entities,omitempty"`

	// Motion params
	BoundaryPolicy   *string  `json:"boundary_policy,omitempty"` // "wrap" or "bounce"
	WrapMarginPx     *float64 `json:"wrap_margin_px,omitempty"`
	SpeedMinPps      *float64 `json:"speed_min_pps,omitempty"` // pixels/second
	SpeedMaxPps      *float64 `json:"speed_max_pps,omitempty"`
	SizeRatioMin     *float64 `json:"size_ratio_min,omitempty"` // relative to min(W,H)
	SizeRatioMax     *float64 `json:"size_ratio_max,omitempty"`
	ConfidenceMin    *float64 `json:"confidence_min,omitempty"`
	ConfidenceMax    *float64 `json:"confidence_max,omitempty"`
	ConfidenceJitter *float64 `json:"confidence_jitter,omitempty"`
	MaxTickSeconds   *float64 `json:"max_tick_seconds,omitempty"`
	SwayAmplitudePx  *float64 `json:"sway_amplitude_px,omitempty"`
	SwayFrequency    *float64 `json:"sway_frequency,omitempty"`

	// Lane/slot params
	LaneSpacingPx       *float64 `json:"lane_spacing_px,omitempty"`
	MaxLanes            *int     `json:"max_lanes,omitempty"`
	LaneCongestionLimit *int     `json:"lane_congestion_limit,omitempty"`
	LanePenaltyPx       *float64 `json:"lane_penalty_px,omitempty"`
	SlotStepPx          *float64 `json:"slot_step_px,omitempty"`

	// Label/leader params
	LabelHeightPx     *float64 `json:"label_height_px,omitempty"`
	LabelCharWidthPx  *float64 `json:"label_char_width_px,omitempty"`
	LabelPaddingPx    *float64 `json:"label_padding_px,omitempty"`
	LabelMinWidthPx   *float64 `json:"label_min_width_px,omitempty"`
	LabelMaxWidthFrac *float64 `json:"label_max_width_frac,omitempty"` // fraction of viewport width
	GutterMarginPx    *float64 `json:"gutter_margin_px,omitempty"`
	ElbowMarginPx     *float64 `json:"elbow_margin_px,omitempty"`

	// Resize params
	AspectChangeThreshold *float64 `json:"aspect_change_threshold,omitempty"`

	// RNG seed (test/replay only; omit for clock seeding)
	Seed *int64 `json:"seed,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file is
// validated to ensure it has a .json extension and is under the max file
// size. Fields omitted from the JSON retain their defaults, so partial
// configs are safe.
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

// MustLoadDefaultConfig loads the canonical tuning defaults from
// DefaultConfigPath. It searches for the file in the current directory and
// common parent directories. Panics if the file cannot be loaded, intended
// for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/hud/engine/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.BoundaryPolicy != nil {
		switch *c.BoundaryPolicy {
		case "wrap", "bounce":
		default:
			return fmt.Errorf("boundary_policy must be \"wrap\" or \"bounce\", got %q", *c.BoundaryPolicy)
		}
	}

	if c.ConfidenceMin != nil && (*c.ConfidenceMin < 0 || *c.ConfidenceMin > 1) {
		return fmt.Errorf("confidence_min must be between 0 and 1, got %f", *c.ConfidenceMin)
	}
	if c.ConfidenceMax != nil && (*c.ConfidenceMax < 0 || *c.ConfidenceMax > 1) {
		return fmt.Errorf("confidence_max must be between 0 and 1, got %f", *c.ConfidenceMax)
	}
	if c.ConfidenceMin != nil && c.ConfidenceMax != nil && *c.ConfidenceMin > *c.ConfidenceMax {
		return fmt.Errorf("confidence_min %f exceeds confidence_max %f", *c.ConfidenceMin, *c.ConfidenceMax)
	}

	if c.MinEntities != nil && *c.MinEntities < 0 {
		return fmt.Errorf("min_entities must be non-negative, got %d", *c.MinEntities)
	}
	if c.MinEntities != nil && c.MaxEntities != nil && *c.MinEntities > *c.MaxEntities {
		return fmt.Errorf("min_entities %d exceeds max_entities %d", *c.MinEntities, *c.MaxEntities)
	}

	if c.SpeedMinPps != nil && c.SpeedMaxPps != nil && *c.SpeedMinPps > *c.SpeedMaxPps {
		return fmt.Errorf("speed_min_pps %f exceeds speed_max_pps %f", *c.SpeedMinPps, *c.SpeedMaxPps)
	}

	if c.MaxTickSeconds != nil && *c.MaxTickSeconds <= 0 {
		return fmt.Errorf("max_tick_seconds must be positive, got %f", *c.MaxTickSeconds)
	}

	if c.SlotStepPx != nil && c.LabelHeightPx != nil && *c.SlotStepPx < *c.LabelHeightPx {
		return fmt.Errorf("slot_step_px %f is below label_height_px %f (same-lane labels would overlap)", *c.SlotStepPx, *c.LabelHeightPx)
	}

	if c.LabelMaxWidthFrac != nil && (*c.LabelMaxWidthFrac <= 0 || *c.LabelMaxWidthFrac > 1) {
		return fmt.Errorf("label_max_width_frac must be in (0, 1], got %f", *c.LabelMaxWidthFrac)
	}

	return nil
}

// GetAreaPerEntity returns the area_per_entity value or the default.
func (c *TuningConfig) GetAreaPerEntity() float64 {
	if c.AreaPerEntity == nil {
		return 50000
	}
	return *c.AreaPerEntity
}

// GetMinEntities returns the min_entities value or the default.
func (c *TuningConfig) GetMinEntities() int {
	if c.MinEntities == nil {
		return 18
	}
	return *c.MinEntities
}

// GetMaxEntities returns the max_entities value or the default.
func (c *TuningConfig) GetMaxEntities() int {
	if c.MaxEntities == nil {
		return 36
	}
	return *c.MaxEntities
}

// GetBoundaryPolicy returns the boundary_policy value or the default.
func (c *TuningConfig) GetBoundaryPolicy() string {
	if c.BoundaryPolicy == nil {
		return "wrap"
	}
	return *c.BoundaryPolicy
}

// GetWrapMarginPx returns the wrap_margin_px value or the default.
func (c *TuningConfig) GetWrapMarginPx() float64 {
	if c.WrapMarginPx == nil {
		return 100
	}
	return *c.WrapMarginPx
}

// GetSpeedMinPps returns the speed_min_pps value or the default.
func (c *TuningConfig) GetSpeedMinPps() float64 {
	if c.SpeedMinPps == nil {
		return 30
	}
	return *c.SpeedMinPps
}

// GetSpeedMaxPps returns the speed_max_pps value or the default.
func (c *TuningConfig) GetSpeedMaxPps() float64 {
	if c.SpeedMaxPps == nil {
		return 90
	}
	return *c.SpeedMaxPps
}

// GetSizeRatioMin returns the size_ratio_min value or the default.
func (c *TuningConfig) GetSizeRatioMin() float64 {
	if c.SizeRatioMin == nil {
		return 0.05
	}
	return *c.SizeRatioMin
}

// GetSizeRatioMax returns the size_ratio_max value or the default.
func (c *TuningConfig) GetSizeRatioMax() float64 {
	if c.SizeRatioMax == nil {
		return 0.14
	}
	return *c.SizeRatioMax
}

// GetConfidenceMin returns the confidence_min value or the default.
func (c *TuningConfig) GetConfidenceMin() float64 {
	if c.ConfidenceMin == nil {
		return 0.70
	}
	return *c.ConfidenceMin
}

// GetConfidenceMax returns the confidence_max value or the default.
func (c *TuningConfig) GetConfidenceMax() float64 {
	if c.ConfidenceMax == nil {
		return 0.99
	}
	return *c.ConfidenceMax
}

// GetConfidenceJitter returns the confidence_jitter value or the default.
func (c *TuningConfig) GetConfidenceJitter() float64 {
	if c.ConfidenceJitter == nil {
		return 0.004
	}
	return *c.ConfidenceJitter
}

// GetMaxTickSeconds returns the max_tick_seconds value or the default.
func (c *TuningConfig) GetMaxTickSeconds() float64 {
	if c.MaxTickSeconds == nil {
		return 0.064
	}
	return *c.MaxTickSeconds
}

// GetSwayAmplitudePx returns the sway_amplitude_px value or the default.
func (c *TuningConfig) GetSwayAmplitudePx() float64 {
	if c.SwayAmplitudePx == nil {
		return 6.0
	}
	return *c.SwayAmplitudePx
}

// GetSwayFrequency returns the sway_frequency value or the default.
func (c *TuningConfig) GetSwayFrequency() float64 {
	if c.SwayFrequency == nil {
		return 0.008
	}
	return *c.SwayFrequency
}

// GetLaneSpacingPx returns the lane_spacing_px value or the default.
func (c *TuningConfig) GetLaneSpacingPx() float64 {
	if c.LaneSpacingPx == nil {
		return 56
	}
	return *c.LaneSpacingPx
}

// GetMaxLanes returns the max_lanes value or the default.
func (c *TuningConfig) GetMaxLanes() int {
	if c.MaxLanes == nil {
		return 24
	}
	return *c.MaxLanes
}

// GetLaneCongestionLimit returns the lane_congestion_limit value or the default.
func (c *TuningConfig) GetLaneCongestionLimit() int {
	if c.LaneCongestionLimit == nil {
		return 2
	}
	return *c.LaneCongestionLimit
}

// GetLanePenaltyPx returns the lane_penalty_px value or the default.
func (c *TuningConfig) GetLanePenaltyPx() float64 {
	if c.LanePenaltyPx == nil {
		return 48
	}
	return *c.LanePenaltyPx
}

// GetSlotStepPx returns the slot_step_px value or the default.
func (c *TuningConfig) GetSlotStepPx() float64 {
	if c.SlotStepPx == nil {
		return 24
	}
	return *c.SlotStepPx
}

// GetLabelHeightPx returns the label_height_px value or the default.
func (c *TuningConfig) GetLabelHeightPx() float64 {
	if c.LabelHeightPx == nil {
		return 20
	}
	return *c.LabelHeightPx
}

// GetLabelCharWidthPx returns the label_char_width_px value or the default.
func (c *TuningConfig) GetLabelCharWidthPx() float64 {
	if c.LabelCharWidthPx == nil {
		return 7
	}
	return *c.LabelCharWidthPx
}

// GetLabelPaddingPx returns the label_padding_px value or the default.
func (c *TuningConfig) GetLabelPaddingPx() float64 {
	if c.LabelPaddingPx == nil {
		return 10
	}
	return *c.LabelPaddingPx
}

// GetLabelMinWidthPx returns the label_min_width_px value or the default.
func (c *TuningConfig) GetLabelMinWidthPx() float64 {
	if c.LabelMinWidthPx == nil {
		return 64
	}
	return *c.LabelMinWidthPx
}

// GetLabelMaxWidthFrac returns the label_max_width_frac value or the default.
func (c *TuningConfig) GetLabelMaxWidthFrac() float64 {
	if c.LabelMaxWidthFrac == nil {
		return 0.22
	}
	return *c.LabelMaxWidthFrac
}

// GetGutterMarginPx returns the gutter_margin_px value or the default.
func (c *TuningConfig) GetGutterMarginPx() float64 {
	if c.GutterMarginPx == nil {
		return 16
	}
	return *c.GutterMarginPx
}

// GetElbowMarginPx returns the elbow_margin_px value or the default.
func (c *TuningConfig) GetElbowMarginPx() float64 {
	if c.ElbowMarginPx == nil {
		return 18
	}
	return *c.ElbowMarginPx
}

// GetAspectChangeThreshold returns the aspect_change_threshold value or the default.
func (c *TuningConfig) GetAspectChangeThreshold() float64 {
	if c.AspectChangeThreshold == nil {
		return 0.25
	}
	return *c.AspectChangeThreshold
}

// GetSeed returns the configured RNG seed, or 0 when unset. A zero seed
// means "seed from the clock" — tests set an explicit non-zero seed.
func (c *TuningConfig) GetSeed() int64 {
	if c.Seed == nil {
		return 0
	}
	return *c.Seed
}
