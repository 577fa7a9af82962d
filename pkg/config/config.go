// Package config holds the settings of a fuse run, loaded from YAML and
// overridable from the environment and the command line.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/chazu/aerofuse/pkg/boolops"
	"github.com/chazu/aerofuse/pkg/export"
	"github.com/chazu/aerofuse/pkg/fuseplane"
	"github.com/chazu/aerofuse/pkg/kernel"
)

// Config is the configuration of one fuse run.
type Config struct {
	// Mode is a fuseplane result mode name, e.g. "full-plane".
	Mode string `yaml:"mode"`

	// Tolerance classifies face central points; MergeTolerance pairs
	// interface faces during merge.
	Tolerance      float64 `yaml:"tolerance"`
	MergeTolerance float64 `yaml:"merge_tolerance"`

	Output OutputConfig `yaml:"output"`

	// DumpDir, when set, receives a DXF of every intermediate shape.
	DumpDir string `yaml:"dump_dir,omitempty"`

	LogLevel    string `yaml:"log_level"`
	EvalTimeout string `yaml:"eval_timeout"`
}

// OutputConfig names the files to write. Empty paths are skipped.
type OutputConfig struct {
	STL  string `yaml:"stl,omitempty"`
	DXF  string `yaml:"dxf,omitempty"`
	JSON string `yaml:"json,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Mode:           fuseplane.HalfPlane.String(),
		Tolerance:      kernel.Confusion,
		MergeTolerance: boolops.DefaultMergeTolerance,
		LogLevel:       "info",
		EvalTimeout:    "5s",
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if mode := os.Getenv("AEROFUSE_MODE"); mode != "" {
		c.Mode = mode
	}
	if level := os.Getenv("AEROFUSE_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if dir := os.Getenv("AEROFUSE_DUMP_DIR"); dir != "" {
		c.DumpDir = dir
	}
}

// Validate checks that every field is usable.
func (c *Config) Validate() error {
	if _, err := ParseMode(c.Mode); err != nil {
		return err
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative, got %g", c.Tolerance)
	}
	if c.MergeTolerance < 0 {
		return fmt.Errorf("merge_tolerance must not be negative, got %g", c.MergeTolerance)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	if c.EvalTimeout != "" {
		if d, err := time.ParseDuration(c.EvalTimeout); err != nil || d <= 0 {
			return fmt.Errorf("invalid eval_timeout %q", c.EvalTimeout)
		}
	}
	for _, p := range []struct{ path, ext string }{{c.Output.STL, ".stl"}, {c.Output.DXF, ".dxf"}, {c.Output.JSON, ".json"}} {
		if p.path == "" {
			continue
		}
		if f, err := export.FormatFromPath(p.path); err != nil || "."+f.String() != p.ext {
			return fmt.Errorf("output %q must have extension %s", p.path, p.ext)
		}
	}
	return nil
}

// ParseMode parses a result mode name.
func ParseMode(s string) (fuseplane.ResultMode, error) {
	return fuseplane.ParseMode(s)
}

// ResultMode returns the parsed Mode, or HalfPlane when it is invalid.
func (c *Config) ResultMode() fuseplane.ResultMode {
	m, err := ParseMode(c.Mode)
	if err != nil {
		return fuseplane.HalfPlane
	}
	return m
}

// Level returns the parsed log level, info when invalid.
func (c *Config) Level() zapcore.Level {
	l, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// GetEvalTimeout returns the script evaluation timeout as a duration.
func (c *Config) GetEvalTimeout() time.Duration {
	d, err := time.ParseDuration(c.EvalTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// Jobs lists the export jobs for the configured outputs.
func (c *Config) Jobs() []export.Job {
	var jobs []export.Job
	if c.Output.STL != "" {
		jobs = append(jobs, export.Job{Format: export.FormatSTL, Path: c.Output.STL})
	}
	if c.Output.DXF != "" {
		jobs = append(jobs, export.Job{Format: export.FormatDXF, Path: c.Output.DXF})
	}
	if c.Output.JSON != "" {
		jobs = append(jobs, export.Job{Format: export.FormatJSON, Path: c.Output.JSON})
	}
	return jobs
}

// Apply copies the tolerances into a boolean context.
func (c *Config) Apply(ctx *boolops.Context) {
	ctx.Tolerance = c.Tolerance
	ctx.MergeTolerance = c.MergeTolerance
}
