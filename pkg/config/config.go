// Package config provides configuration loading and management for unwbridge.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"unwbridge/pkg/conncomp"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Region cleanup parameters
	Labeling struct {
		// MinArea is the smallest region kept, in pixels
		MinArea float64 `yaml:"minArea"`

		// ErosionSize is the side of the square erosion element
		ErosionSize int `yaml:"erosionSize"`
	} `yaml:"labeling"`

	// Bridge search parameters
	Bridging struct {
		// Workers specifies how many goroutines compare region pairs
		Workers int `yaml:"workers"`

		// SpanningTree selects the MST algorithm: kruskal or prim
		SpanningTree string `yaml:"spanningTree"`
	} `yaml:"bridging"`

	// Phase correction parameters
	Stitching struct {
		// Radius is the half size of the phase sampling window in pixels
		Radius int `yaml:"radius"`

		// RampType names the ramp removed before stitching; empty disables it
		RampType string `yaml:"rampType"`
	} `yaml:"stitching"`

	// Output parameters
	Output struct {
		// SaveReport writes a YAML report next to the corrected phase
		SaveReport bool `yaml:"saveReport"`

		// SavePlot writes a PNG of the regions and bridges
		SavePlot bool `yaml:"savePlot"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Labeling.MinArea = 2500
	cfg.Labeling.ErosionSize = 5

	cfg.Bridging.Workers = runtime.NumCPU() // Use all available cores by default
	cfg.Bridging.SpanningTree = "kruskal"

	cfg.Stitching.Radius = 50
	cfg.Stitching.RampType = ""

	cfg.Output.SaveReport = true
	cfg.Output.SavePlot = false
	cfg.Output.Verbose = false

	return cfg
}

// Params converts the configuration into workflow parameters
func (c *Config) Params() conncomp.Params {
	return conncomp.Params{
		MinArea:      c.Labeling.MinArea,
		ErosionSize:  c.Labeling.ErosionSize,
		Workers:      c.Bridging.Workers,
		SpanningTree: c.Bridging.SpanningTree,
		Radius:       c.Stitching.Radius,
		RampType:     c.Stitching.RampType,
	}
}

// Validate checks the configuration for values the workflow cannot use
func (c *Config) Validate() error {
	if c.Labeling.MinArea < 0 {
		return fmt.Errorf("labeling.minArea must not be negative, got %g", c.Labeling.MinArea)
	}
	if c.Labeling.ErosionSize < 1 {
		return fmt.Errorf("labeling.erosionSize must be at least 1, got %d", c.Labeling.ErosionSize)
	}
	switch c.Bridging.SpanningTree {
	case "", "kruskal", "prim":
	default:
		return fmt.Errorf("bridging.spanningTree must be kruskal or prim, got %q", c.Bridging.SpanningTree)
	}
	if c.Stitching.Radius < 1 {
		return fmt.Errorf("stitching.radius must be at least 1, got %d", c.Stitching.Radius)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
