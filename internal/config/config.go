// Package config handles loading and validation of svo command settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Config holds all settings of the svo command.
type Config struct {
	Build   BuildConfig   `yaml:"build"`
	Field   FieldConfig   `yaml:"field"`
	Trace   TraceConfig   `yaml:"trace"`
	Logging LoggingConfig `yaml:"logging"`
}

// BuildConfig holds octree construction settings.
type BuildConfig struct {
	MaxLevel   int        `yaml:"max_level"`
	Origin     [3]float64 `yaml:"origin"` // Minimum corner of the root cube
	Size       float64    `yaml:"size"`   // Edge length of the root cube
	Attributes bool       `yaml:"attributes"`
	Mode       string     `yaml:"mode"` // naive or compact
}

// FieldConfig selects the density field to sample.
type FieldConfig struct {
	Name   string             `yaml:"name"`
	Params map[string]float64 `yaml:"params"`
}

// TraceConfig holds ray tracing settings.
type TraceConfig struct {
	Order   string `yaml:"order"`   // front-to-back or unordered
	Workers int    `yaml:"workers"` // 0 uses all CPUs
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with default values: a radius 0.8 sphere built
// to level 5 over the [-1, 1]³ cube.
func Default() *Config {
	return &Config{
		Build: BuildConfig{
			MaxLevel: 5,
			Origin:   [3]float64{-1, -1, -1},
			Size:     2,
			Mode:     "compact",
		},
		Field: FieldConfig{
			Name:   "sphere",
			Params: map[string]float64{"radius": 0.8},
		},
		Trace: TraceConfig{
			Order: "front-to-back",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load returns the defaults overridden by the YAML file at path.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if err := loadFromFile(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	return cfg, nil
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// SaveTo writes the config to a specific path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports every invalid setting of c.
func (c *Config) Validate() error {
	var err error
	if c.Build.MaxLevel < 1 {
		err = multierr.Append(err, fmt.Errorf("build.max_level must be at least 1, got %d", c.Build.MaxLevel))
	}
	if !(c.Build.Size > 0) {
		err = multierr.Append(err, fmt.Errorf("build.size must be positive, got %g", c.Build.Size))
	}
	switch c.Build.Mode {
	case "naive", "compact":
	default:
		err = multierr.Append(err, fmt.Errorf("build.mode must be naive or compact, got %q", c.Build.Mode))
	}
	if c.Field.Name == "" {
		err = multierr.Append(err, fmt.Errorf("field.name is required"))
	}
	switch c.Trace.Order {
	case "front-to-back", "unordered":
	default:
		err = multierr.Append(err, fmt.Errorf("trace.order must be front-to-back or unordered, got %q", c.Trace.Order))
	}
	if c.Trace.Workers < 0 {
		err = multierr.Append(err, fmt.Errorf("trace.workers must not be negative, got %d", c.Trace.Workers))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("logging.level %q unknown", c.Logging.Level))
	}
	return err
}
