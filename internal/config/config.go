// Package config loads run settings for the localization filter from JSON.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	particlefilter "github.com/jhoydich/landmark-pf"
)

// Config is the root run configuration. Every field is optional; omitted
// fields fall back to the defaults returned by the Get* accessors.
type Config struct {
	// Filter params
	Particles   *int        `json:"particles,omitempty"`
	SensorRange *float64    `json:"sensor_range,omitempty"`
	Dt          *float64    `json:"dt,omitempty"`
	PositionStd *[3]float64 `json:"position_std,omitempty"` // x, y, phi
	LandmarkStd *[2]float64 `json:"landmark_std,omitempty"` // x, y
	Epsilon     *float64    `json:"epsilon,omitempty"`
	Workers     *int        `json:"workers,omitempty"`
	Seed        *uint64     `json:"seed,omitempty"` // 0 picks a time-based seed

	// Initial pose, used when no ground truth is available
	InitialPose *[3]float64 `json:"initial_pose,omitempty"`

	// Data sources
	MapFile         *string `json:"map_file,omitempty"`
	ObservationDir  *string `json:"observation_dir,omitempty"`
	ControlsFile    *string `json:"controls_file,omitempty"`
	GroundTruthFile *string `json:"ground_truth_file,omitempty"`

	// Outputs
	OutputFile *string `json:"output_file,omitempty"`
	PlotFile   *string `json:"plot_file,omitempty"`
	ChartFile  *string `json:"chart_file,omitempty"`
	Database   *string `json:"database,omitempty"`
}

// Empty returns a Config with all fields unset.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. The file must have a .json
// extension and be at most 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the effective filter parameters.
func (c *Config) Validate() error {
	if err := c.EngineConfig().Validate(); err != nil {
		return err
	}
	if c.GetObservationDir() == "" {
		return fmt.Errorf("observation_dir must not be empty")
	}
	if c.GetMapFile() == "" {
		return fmt.Errorf("map_file must not be empty")
	}
	return nil
}

// EngineConfig converts the effective values into a filter configuration.
func (c *Config) EngineConfig() particlefilter.Config {
	return particlefilter.Config{
		Particles:   c.GetParticles(),
		PositionStd: c.GetPositionStd(),
		LandmarkStd: c.GetLandmarkStd(),
		Dt:          c.GetDt(),
		SensorRange: c.GetSensorRange(),
		Epsilon:     c.GetEpsilon(),
		Workers:     c.GetWorkers(),
	}
}

// MarshalIndent renders the effective configuration, defaults included.
func (c *Config) MarshalIndent() ([]byte, error) {
	full := Config{
		Particles:       ptr(c.GetParticles()),
		SensorRange:     ptr(c.GetSensorRange()),
		Dt:              ptr(c.GetDt()),
		PositionStd:     ptr(c.GetPositionStd()),
		LandmarkStd:     ptr(c.GetLandmarkStd()),
		Epsilon:         ptr(c.GetEpsilon()),
		Workers:         ptr(c.GetWorkers()),
		Seed:            ptr(c.GetSeed()),
		InitialPose:     c.InitialPose,
		MapFile:         ptr(c.GetMapFile()),
		ObservationDir:  ptr(c.GetObservationDir()),
		ControlsFile:    ptr(c.GetControlsFile()),
		GroundTruthFile: ptr(c.GetGroundTruthFile()),
		OutputFile:      ptr(c.GetOutputFile()),
		PlotFile:        c.PlotFile,
		ChartFile:       c.ChartFile,
		Database:        c.Database,
	}
	return json.MarshalIndent(full, "", "  ")
}

func ptr[T any](v T) *T { return &v }

// GetParticles returns the particle count or the default.
func (c *Config) GetParticles() int {
	if c.Particles == nil {
		return 42
	}
	return *c.Particles
}

// GetSensorRange returns the sensor range in meters or the default.
func (c *Config) GetSensorRange() float64 {
	if c.SensorRange == nil {
		return 50.0
	}
	return *c.SensorRange
}

// GetDt returns the control interval in seconds or the default.
func (c *Config) GetDt() float64 {
	if c.Dt == nil {
		return 0.1
	}
	return *c.Dt
}

// GetPositionStd returns the initial pose std-devs or the default.
func (c *Config) GetPositionStd() [3]float64 {
	if c.PositionStd == nil {
		return [3]float64{0.3, 0.3, 0.01}
	}
	return *c.PositionStd
}

// GetLandmarkStd returns the landmark measurement std-devs or the default.
func (c *Config) GetLandmarkStd() [2]float64 {
	if c.LandmarkStd == nil {
		return [2]float64{0.3, 0.3}
	}
	return *c.LandmarkStd
}

// GetEpsilon returns the weight floor or the default.
func (c *Config) GetEpsilon() float64 {
	if c.Epsilon == nil {
		return 1e-5
	}
	return *c.Epsilon
}

// GetWorkers returns the worker count or the default.
func (c *Config) GetWorkers() int {
	if c.Workers == nil {
		return 1
	}
	return *c.Workers
}

// GetSeed returns the random seed; 0 means unset.
func (c *Config) GetSeed() uint64 {
	if c.Seed == nil {
		return 0
	}
	return *c.Seed
}

// GetInitialPose returns the configured initial pose and whether one was set.
func (c *Config) GetInitialPose() (particlefilter.Pose, bool) {
	if c.InitialPose == nil {
		return particlefilter.Pose{}, false
	}
	p := *c.InitialPose
	return particlefilter.Pose{X: p[0], Y: p[1], Phi: p[2]}, true
}

// GetMapFile returns the landmark map path or the default.
func (c *Config) GetMapFile() string {
	if c.MapFile == nil {
		return "data/map_data.txt"
	}
	return *c.MapFile
}

// GetObservationDir returns the observation directory or the default.
func (c *Config) GetObservationDir() string {
	if c.ObservationDir == nil {
		return "data/observation/"
	}
	return *c.ObservationDir
}

// GetControlsFile returns the controls path or the default.
func (c *Config) GetControlsFile() string {
	if c.ControlsFile == nil {
		return "data/control_data.txt"
	}
	return *c.ControlsFile
}

// GetGroundTruthFile returns the ground truth path or the default. An
// explicitly empty value disables ground truth.
func (c *Config) GetGroundTruthFile() string {
	if c.GroundTruthFile == nil {
		return "data/ground_truth_data.txt"
	}
	return *c.GroundTruthFile
}

// GetOutputFile returns the CSV log path or the default.
func (c *Config) GetOutputFile() string {
	if c.OutputFile == nil {
		return "log.csv"
	}
	return *c.OutputFile
}

// GetPlotFile returns the trajectory plot path; empty disables the plot.
func (c *Config) GetPlotFile() string {
	if c.PlotFile == nil {
		return ""
	}
	return *c.PlotFile
}

// GetChartFile returns the HTML error chart path; empty disables the chart.
func (c *Config) GetChartFile() string {
	if c.ChartFile == nil {
		return ""
	}
	return *c.ChartFile
}

// GetDatabase returns the SQLite run store path; empty disables it.
func (c *Config) GetDatabase() string {
	if c.Database == nil {
		return ""
	}
	return *c.Database
}
