// Package config loads the optional YAML file holding rtssctl defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/jpfielding/rtss.go/pkg/convert"
	"github.com/jpfielding/rtss.go/pkg/geom"
	"github.com/jpfielding/rtss.go/pkg/rtstruct"
)

// Config holds the defaults command line flags fall back to
type Config struct {
	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
		// File enables a rotated log file next to stdout
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"maxSizeMB"`
		MaxBackups int    `yaml:"maxBackups"`
		MaxAgeDays int    `yaml:"maxAgeDays"`
	} `yaml:"log"`

	Encode struct {
		StructureLabel string  `yaml:"structureLabel"`
		Tolerance      float64 `yaml:"tolerance"`
		MinPoints      int     `yaml:"minPoints"`
		PerLabel       bool    `yaml:"perLabel"`
		Color          string  `yaml:"color"`
	} `yaml:"encode"`

	Decode struct {
		Exclude  []string `yaml:"exclude"`
		Separate bool     `yaml:"separate"`
		Compress bool     `yaml:"compress"`
		Holes    bool     `yaml:"holes"`
		// RAS writes masks in RAS voxel order instead of series order
		RAS bool `yaml:"ras"`
	} `yaml:"decode"`

	// Provenance writes a .rec log beside every output
	Provenance bool `yaml:"provenance"`
}

// DefaultConfig returns the built in defaults
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Log.Level = "INFO"
	cfg.Log.MaxSizeMB = 10
	cfg.Log.MaxBackups = 3
	cfg.Log.MaxAgeDays = 28

	enc := convert.DefaultEncodeOptions()
	cfg.Encode.StructureLabel = enc.StructureLabel
	cfg.Encode.Tolerance = enc.Tolerance
	cfg.Encode.MinPoints = enc.MinPoints
	cfg.Encode.Color = "0,230,0"

	cfg.Provenance = true
	return cfg
}

// LoadConfig reads path over the defaults. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg as YAML, creating the directory when needed
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// EncodeOptions returns the encode defaults
func (c *Config) EncodeOptions() (convert.EncodeOptions, error) {
	opts := convert.EncodeOptions{
		StructureLabel: c.Encode.StructureLabel,
		Tolerance:      c.Encode.Tolerance,
		MinPoints:      c.Encode.MinPoints,
		PerLabel:       c.Encode.PerLabel,
	}
	if c.Encode.Color != "" {
		color, err := rtstruct.ParseColor(c.Encode.Color)
		if err != nil {
			return opts, err
		}
		opts.Color = &color
	}
	return opts, nil
}

// DecodeOptions returns the decode defaults
func (c *Config) DecodeOptions() convert.DecodeOptions {
	opts := convert.DecodeOptions{
		Exclude:  c.Decode.Exclude,
		Separate: c.Decode.Separate,
		Compress: c.Decode.Compress,
		Holes:    c.Decode.Holes,
	}
	if c.Decode.RAS {
		opts.Convention = geom.Convention{FlipX: true, FlipY: true}
	}
	return opts
}
