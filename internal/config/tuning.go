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

// KnownFilters lists the noise filter names accepted in "filters".
var KnownFilters = []string{"isolated", "low_pass", "hot_pixel", "opposite_polarity"}

// KnownNeighbourIndexes lists the accepted "neighbour_index" values.
var KnownNeighbourIndexes = []string{"kdtree", "grid"}

// TuningConfig represents the root configuration for tuning parameters.
// Every field is optional; the Get* accessors fall back to the values in
// config/tuning.defaults.json.
type TuningConfig struct {
	// Window params
	TAccumUs      *int64 `json:"t_accum_us,omitempty"`
	ChunkDeltaTUs *int64 `json:"chunk_delta_t_us,omitempty"`

	// Sensor geometry
	SensorHeight *int `json:"sensor_height,omitempty"`
	SensorWidth  *int `json:"sensor_width,omitempty"`

	// Filter chain, applied in list order
	Filters        []string `json:"filters,omitempty"`
	NeighbourIndex *string  `json:"neighbour_index,omitempty"`

	// Isolated-event filter
	IsolatedSpatialRadius *float64 `json:"isolated_spatial_radius,omitempty"`
	IsolatedTimeWindowUs  *float64 `json:"isolated_time_window_us,omitempty"`
	IsolatedMinNeighbors  *int     `json:"isolated_min_neighbors,omitempty"`

	// Low-pass (flicker) filter
	LowPassMinDtUs  *float64 `json:"low_pass_min_dt_us,omitempty"`
	LowPassMinCount *int     `json:"low_pass_min_count,omitempty"`

	// Hot-pixel filter
	HotPixelMinDurationUs *int64 `json:"hot_pixel_min_duration_us,omitempty"`

	// Opposite-polarity filter
	OppositePolaritySpatialRadius *float64 `json:"opposite_polarity_spatial_radius,omitempty"`
	OppositePolarityTimeScale     *float64 `json:"opposite_polarity_time_scale,omitempty"`

	// Particle detector
	MinArea       *int `json:"min_area,omitempty"`
	DetectWorkers *int `json:"detect_workers,omitempty"`

	// Tracker
	MaxDisp    *float64 `json:"max_disp,omitempty"`
	DeltaFloor *float64 `json:"delta_floor,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
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
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/evcam/l3filters/
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
	if c.TAccumUs != nil && *c.TAccumUs <= 0 {
		return fmt.Errorf("t_accum_us must be positive, got %d", *c.TAccumUs)
	}
	if c.ChunkDeltaTUs != nil && *c.ChunkDeltaTUs <= 0 {
		return fmt.Errorf("chunk_delta_t_us must be positive, got %d", *c.ChunkDeltaTUs)
	}
	if c.SensorHeight != nil && *c.SensorHeight <= 0 {
		return fmt.Errorf("sensor_height must be positive, got %d", *c.SensorHeight)
	}
	if c.SensorWidth != nil && *c.SensorWidth <= 0 {
		return fmt.Errorf("sensor_width must be positive, got %d", *c.SensorWidth)
	}
	for _, name := range c.Filters {
		if !contains(KnownFilters, name) {
			return fmt.Errorf("unknown filter %q (known: %v)", name, KnownFilters)
		}
	}
	if c.NeighbourIndex != nil && !contains(KnownNeighbourIndexes, *c.NeighbourIndex) {
		return fmt.Errorf("unknown neighbour_index %q (known: %v)", *c.NeighbourIndex, KnownNeighbourIndexes)
	}
	if c.IsolatedSpatialRadius != nil && *c.IsolatedSpatialRadius <= 0 {
		return fmt.Errorf("isolated_spatial_radius must be positive, got %f", *c.IsolatedSpatialRadius)
	}
	if c.IsolatedTimeWindowUs != nil && *c.IsolatedTimeWindowUs <= 0 {
		return fmt.Errorf("isolated_time_window_us must be positive, got %f", *c.IsolatedTimeWindowUs)
	}
	if c.IsolatedMinNeighbors != nil && *c.IsolatedMinNeighbors < 0 {
		return fmt.Errorf("isolated_min_neighbors must be non-negative, got %d", *c.IsolatedMinNeighbors)
	}
	if c.LowPassMinCount != nil && *c.LowPassMinCount < 0 {
		return fmt.Errorf("low_pass_min_count must be non-negative, got %d", *c.LowPassMinCount)
	}
	if c.OppositePolaritySpatialRadius != nil && *c.OppositePolaritySpatialRadius <= 0 {
		return fmt.Errorf("opposite_polarity_spatial_radius must be positive, got %f", *c.OppositePolaritySpatialRadius)
	}
	if c.MinArea != nil && *c.MinArea < 0 {
		return fmt.Errorf("min_area must be non-negative, got %d", *c.MinArea)
	}
	if c.DetectWorkers != nil && *c.DetectWorkers < 1 {
		return fmt.Errorf("detect_workers must be >= 1, got %d", *c.DetectWorkers)
	}
	if c.MaxDisp != nil && *c.MaxDisp < 0 {
		return fmt.Errorf("max_disp must be non-negative, got %f", *c.MaxDisp)
	}
	if c.DeltaFloor != nil && *c.DeltaFloor <= 0 {
		return fmt.Errorf("delta_floor must be positive, got %g", *c.DeltaFloor)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// GetTAccumUs returns the t_accum_us value or the default.
func (c *TuningConfig) GetTAccumUs() int64 {
	if c.TAccumUs == nil {
		return 20000
	}
	return *c.TAccumUs
}

// GetChunkDeltaTUs returns the chunk_delta_t_us value or the default.
func (c *TuningConfig) GetChunkDeltaTUs() int64 {
	if c.ChunkDeltaTUs == nil {
		return 10000
	}
	return *c.ChunkDeltaTUs
}

// GetSensorHeight returns the sensor_height value or the default.
func (c *TuningConfig) GetSensorHeight() int {
	if c.SensorHeight == nil {
		return 720
	}
	return *c.SensorHeight
}

// GetSensorWidth returns the sensor_width value or the default.
func (c *TuningConfig) GetSensorWidth() int {
	if c.SensorWidth == nil {
		return 1280
	}
	return *c.SensorWidth
}

// GetFilters returns the ordered filter chain. The default is no filters.
func (c *TuningConfig) GetFilters() []string {
	if c.Filters == nil {
		return []string{}
	}
	out := make([]string, len(c.Filters))
	copy(out, c.Filters)
	return out
}

// GetNeighbourIndex returns the neighbour_index value or the default.
func (c *TuningConfig) GetNeighbourIndex() string {
	if c.NeighbourIndex == nil || *c.NeighbourIndex == "" {
		return "kdtree"
	}
	return *c.NeighbourIndex
}

// GetIsolatedSpatialRadius returns the isolated_spatial_radius value or the default.
func (c *TuningConfig) GetIsolatedSpatialRadius() float64 {
	if c.IsolatedSpatialRadius == nil {
		return 20
	}
	return *c.IsolatedSpatialRadius
}

// GetIsolatedTimeWindowUs returns the isolated_time_window_us value or the default.
func (c *TuningConfig) GetIsolatedTimeWindowUs() float64 {
	if c.IsolatedTimeWindowUs == nil {
		return 1000
	}
	return *c.IsolatedTimeWindowUs
}

// GetIsolatedMinNeighbors returns the isolated_min_neighbors value or the default.
func (c *TuningConfig) GetIsolatedMinNeighbors() int {
	if c.IsolatedMinNeighbors == nil {
		return 3
	}
	return *c.IsolatedMinNeighbors
}

// GetLowPassMinDtUs returns the low_pass_min_dt_us value or the default.
func (c *TuningConfig) GetLowPassMinDtUs() float64 {
	if c.LowPassMinDtUs == nil {
		return 300
	}
	return *c.LowPassMinDtUs
}

// GetLowPassMinCount returns the low_pass_min_count value or the default.
func (c *TuningConfig) GetLowPassMinCount() int {
	if c.LowPassMinCount == nil {
		return 5
	}
	return *c.LowPassMinCount
}

// GetHotPixelMinDurationUs returns the hot_pixel_min_duration_us value or the default.
func (c *TuningConfig) GetHotPixelMinDurationUs() int64 {
	if c.HotPixelMinDurationUs == nil {
		return 4000
	}
	return *c.HotPixelMinDurationUs
}

// GetOppositePolaritySpatialRadius returns the opposite_polarity_spatial_radius value or the default.
func (c *TuningConfig) GetOppositePolaritySpatialRadius() float64 {
	if c.OppositePolaritySpatialRadius == nil {
		return 20
	}
	return *c.OppositePolaritySpatialRadius
}

// GetOppositePolarityTimeScale returns the opposite_polarity_time_scale value or the default.
func (c *TuningConfig) GetOppositePolarityTimeScale() float64 {
	if c.OppositePolarityTimeScale == nil {
		return 1
	}
	return *c.OppositePolarityTimeScale
}

// GetMinArea returns the min_area value or the default.
func (c *TuningConfig) GetMinArea() int {
	if c.MinArea == nil {
		return 100
	}
	return *c.MinArea
}

// GetDetectWorkers returns the detect_workers value or the default.
func (c *TuningConfig) GetDetectWorkers() int {
	if c.DetectWorkers == nil {
		return 1
	}
	return *c.DetectWorkers
}

// GetMaxDisp returns the max_disp value or the default.
func (c *TuningConfig) GetMaxDisp() float64 {
	if c.MaxDisp == nil {
		return 8
	}
	return *c.MaxDisp
}

// GetDeltaFloor returns the delta_floor value or the default.
func (c *TuningConfig) GetDeltaFloor() float64 {
	if c.DeltaFloor == nil {
		return 1e-6
	}
	return *c.DeltaFloor
}
