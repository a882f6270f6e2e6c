package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait"
)

// DefaultConfigPath is the path to the canonical engine defaults file.
const DefaultConfigPath = "config/engine.defaults.json"

// EngineConfig holds the engine's runtime settings. Every field is optional;
// the Get* methods supply defaults for fields omitted from the JSON.
type EngineConfig struct {
	// Range tables
	KinematicRangesPath *string `json:"kinematic_ranges_path,omitempty"`
	KineticRangesPath   *string `json:"kinetic_ranges_path,omitempty"`

	// Synthesis
	NumPoints         *int     `json:"num_points,omitempty"`
	SafetyMargin      *float64 `json:"safety_margin,omitempty"`
	AmplitudeFraction *float64 `json:"amplitude_fraction,omitempty"`
	NoiseFraction     *float64 `json:"noise_fraction,omitempty"`
	Seed              *uint64  `json:"seed,omitempty"`
	PerStepSeed       *bool    `json:"per_step_seed,omitempty"`

	// Tuning
	BufferFactor *float64 `json:"buffer_factor,omitempty"`

	// Service
	DBPath *string `json:"db_path,omitempty"`
	Listen *string `json:"listen,omitempty"`
	Debug  *bool   `json:"debug,omitempty"`
}

// EmptyEngineConfig returns an EngineConfig with all fields nil.
func EmptyEngineConfig() *EngineConfig {
	return &EngineConfig{}
}

// LoadEngineConfig loads an EngineConfig from a .json file of at most 1MB.
// Omitted fields keep their defaults, so partial configs are safe.
func LoadEngineConfig(fsys fsutil.FileSystem, path string) (*EngineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyEngineConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that set values are usable.
func (c *EngineConfig) Validate() error {
	if c.NumPoints != nil {
		if err := gait.CheckPoints(*c.NumPoints); err != nil {
			return err
		}
	}
	if c.SafetyMargin != nil {
		if *c.SafetyMargin < 0 || *c.SafetyMargin >= 0.5 {
			return fmt.Errorf("safety_margin must be in [0, 0.5), got %f", *c.SafetyMargin)
		}
	}
	if c.AmplitudeFraction != nil && *c.AmplitudeFraction < 0 {
		return fmt.Errorf("amplitude_fraction must be non-negative, got %f", *c.AmplitudeFraction)
	}
	if c.NoiseFraction != nil && *c.NoiseFraction < 0 {
		return fmt.Errorf("noise_fraction must be non-negative, got %f", *c.NoiseFraction)
	}
	if c.BufferFactor != nil && *c.BufferFactor < 1 {
		return fmt.Errorf("buffer_factor must be >= 1, got %f", *c.BufferFactor)
	}
	return nil
}

// RangesPaths returns the configured range table path per mode.
func (c *EngineConfig) RangesPaths() map[gait.Mode]string {
	return map[gait.Mode]string{
		gait.ModeKinematic: c.GetKinematicRangesPath(),
		gait.ModeKinetic:   c.GetKineticRangesPath(),
	}
}

// GetKinematicRangesPath returns the kinematic range table path or the default.
func (c *EngineConfig) GetKinematicRangesPath() string {
	if c.KinematicRangesPath == nil {
		return "config/kinematic_ranges.yaml"
	}
	return *c.KinematicRangesPath
}

// GetKineticRangesPath returns the kinetic range table path or the default.
func (c *EngineConfig) GetKineticRangesPath() string {
	if c.KineticRangesPath == nil {
		return "config/kinetic_ranges.yaml"
	}
	return *c.KineticRangesPath
}

// GetNumPoints returns the num_points value or the default.
func (c *EngineConfig) GetNumPoints() int {
	if c.NumPoints == nil {
		return gait.DefaultNumPoints
	}
	return *c.NumPoints
}

// GetSafetyMargin returns the safety_margin value or the default.
func (c *EngineConfig) GetSafetyMargin() float64 {
	if c.SafetyMargin == nil {
		return 0.05
	}
	return *c.SafetyMargin
}

// GetAmplitudeFraction returns the amplitude_fraction value or the default.
func (c *EngineConfig) GetAmplitudeFraction() float64 {
	if c.AmplitudeFraction == nil {
		return 0.25
	}
	return *c.AmplitudeFraction
}

// GetNoiseFraction returns the noise_fraction value or the default.
func (c *EngineConfig) GetNoiseFraction() float64 {
	if c.NoiseFraction == nil {
		return 0.05
	}
	return *c.NoiseFraction
}

// GetSeed returns the seed value or the default.
func (c *EngineConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return 42
	}
	return *c.Seed
}

// GetPerStepSeed returns the per_step_seed value or the default.
func (c *EngineConfig) GetPerStepSeed() bool {
	if c.PerStepSeed == nil {
		return true
	}
	return *c.PerStepSeed
}

// GetBufferFactor returns the buffer_factor value or the default.
func (c *EngineConfig) GetBufferFactor() float64 {
	if c.BufferFactor == nil {
		return 1.2
	}
	return *c.BufferFactor
}

// GetDBPath returns the db_path value or the default.
func (c *EngineConfig) GetDBPath() string {
	if c.DBPath == nil {
		return "gait_runs.db"
	}
	return *c.DBPath
}

// GetListen returns the listen address or the default.
func (c *EngineConfig) GetListen() string {
	if c.Listen == nil {
		return ":8080"
	}
	return *c.Listen
}

// GetDebug returns the debug value or the default.
func (c *EngineConfig) GetDebug() bool {
	if c.Debug == nil {
		return false
	}
	return *c.Debug
}
