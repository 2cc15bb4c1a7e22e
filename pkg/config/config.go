// Package config loads and validates the hindsight configuration from
// viper-managed sources (config file, environment, flags). Invalid
// configuration is rejected up front; proceeding with nonsensical
// parameters would silently produce meaningless recommendations.
package config

import (
	"os"
	"path/filepath"

	"github.com/gobwas/glob"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/jingkaihe/hindsight/pkg/patterns"
)

const (
	// StoreTypeJSON persists the event snapshot as a JSON file.
	StoreTypeJSON = "json"
	// StoreTypeSQLite persists events in a SQLite database.
	StoreTypeSQLite = "sqlite"
)

// Config is the full recognized configuration surface.
type Config struct {
	LogLevel  string                    `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string                    `mapstructure:"log_format" yaml:"log_format"`
	Profile   string                    `mapstructure:"profile" yaml:"profile,omitempty"`
	Profiles  map[string]map[string]any `mapstructure:"profiles" yaml:"profiles,omitempty"`

	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Sources  SourcesConfig  `mapstructure:"sources" yaml:"sources"`
	Skills   SkillsConfig   `mapstructure:"skills" yaml:"skills"`
	Serve    ServeConfig    `mapstructure:"serve" yaml:"serve"`
	Tracing  TracingConfig  `mapstructure:"tracing" yaml:"tracing"`
}

// StoreConfig controls event persistence.
type StoreConfig struct {
	Type      string `mapstructure:"type" yaml:"type"`
	BasePath  string `mapstructure:"base_path" yaml:"base_path"`
	MaxEvents int    `mapstructure:"max_events" yaml:"max_events"`
}

// AnalysisConfig controls the pattern analysis window and thresholds.
type AnalysisConfig struct {
	WindowDays     int      `mapstructure:"window_days" yaml:"window_days"`
	MinOccurrences int      `mapstructure:"min_occurrences" yaml:"min_occurrences"`
	AutoThreshold  string   `mapstructure:"auto_threshold" yaml:"auto_threshold"`
	IgnoreTypes    []string `mapstructure:"ignore_types" yaml:"ignore_types,omitempty"`
}

// SourcesConfig selects and configures the signal sources.
type SourcesConfig struct {
	Enabled []string   `mapstructure:"enabled" yaml:"enabled"`
	Docs    DocsConfig `mapstructure:"docs" yaml:"docs"`
}

// DocsConfig configures the document task scanner.
type DocsConfig struct {
	Dirs         []string `mapstructure:"dirs" yaml:"dirs"`
	MaxFileBytes int64    `mapstructure:"max_file_bytes" yaml:"max_file_bytes"`
}

// SkillsConfig configures existing-skill discovery.
type SkillsConfig struct {
	Dirs []string `mapstructure:"dirs" yaml:"dirs,omitempty"`
}

// ServeConfig configures the local HTTP API.
type ServeConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled bool    `mapstructure:"enabled" yaml:"enabled"`
	Sampler string  `mapstructure:"sampler" yaml:"sampler"`
	Ratio   float64 `mapstructure:"ratio" yaml:"ratio"`
}

// SourceNames are the recognized source identifiers.
var SourceNames = []string{"events", "docs"}

// SetDefaults registers the default configuration values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "fmt")

	v.SetDefault("store.type", StoreTypeJSON)
	v.SetDefault("store.base_path", ".hindsight")
	v.SetDefault("store.max_events", 1000)

	v.SetDefault("analysis.window_days", 7)
	v.SetDefault("analysis.min_occurrences", 5)
	v.SetDefault("analysis.auto_threshold", "medium")
	v.SetDefault("analysis.ignore_types", []string{})

	v.SetDefault("sources.enabled", SourceNames)
	v.SetDefault("sources.docs.dirs", []string{"."})
	v.SetDefault("sources.docs.max_file_bytes", 2*1024*1024)

	v.SetDefault("skills.dirs", []string{})

	v.SetDefault("serve.host", "127.0.0.1")
	v.SetDefault("serve.port", 8280)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sampler", "ratio")
	v.SetDefault("tracing.ratio", 0.1)
}

// Load unmarshals the effective configuration from the global viper,
// applies the active profile overrides if one is selected, and validates
// the result.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal configuration")
	}

	if cfg.Profile != "" && cfg.Profile != "default" {
		profile, ok := cfg.Profiles[cfg.Profile]
		if !ok {
			return nil, errors.Errorf("profile %q not found in configuration", cfg.Profile)
		}
		if err := applyProfile(&cfg, profile); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyProfile decodes profile overrides on top of the base config,
// leaving fields the profile does not mention untouched.
func applyProfile(cfg *Config, profile map[string]any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ZeroFields:       false,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create profile decoder")
	}

	if err := decoder.Decode(profile); err != nil {
		return errors.Wrap(err, "failed to apply profile configuration")
	}

	return nil
}

// Validate rejects configuration that would make analysis meaningless.
func (c *Config) Validate() error {
	if c.Store.Type != StoreTypeJSON && c.Store.Type != StoreTypeSQLite {
		return errors.Errorf("invalid store.type: %q (valid: json, sqlite)", c.Store.Type)
	}
	if c.Store.MaxEvents <= 0 {
		return errors.Errorf("store.max_events must be positive, got %d", c.Store.MaxEvents)
	}
	if c.Analysis.WindowDays <= 0 {
		return errors.Errorf("analysis.window_days must be positive, got %d", c.Analysis.WindowDays)
	}
	if c.Analysis.MinOccurrences <= 0 {
		return errors.Errorf("analysis.min_occurrences must be positive, got %d", c.Analysis.MinOccurrences)
	}
	if _, err := patterns.ParseTier(c.Analysis.AutoThreshold); err != nil {
		return errors.Wrap(err, "invalid analysis.auto_threshold")
	}
	if _, err := c.Analysis.IgnoreGlobs(); err != nil {
		return err
	}
	for _, name := range c.Sources.Enabled {
		if !validSourceName(name) {
			return errors.Errorf("unknown source %q in sources.enabled (valid: events, docs)", name)
		}
	}
	if c.Sources.Docs.MaxFileBytes <= 0 {
		return errors.Errorf("sources.docs.max_file_bytes must be positive, got %d", c.Sources.Docs.MaxFileBytes)
	}
	if c.Serve.Port <= 0 || c.Serve.Port > 65535 {
		return errors.Errorf("serve.port must be in 1-65535, got %d", c.Serve.Port)
	}
	switch c.Tracing.Sampler {
	case "always", "never", "ratio":
	default:
		return errors.Errorf("invalid tracing.sampler: %q (valid: always, never, ratio)", c.Tracing.Sampler)
	}
	if c.Tracing.Ratio < 0 || c.Tracing.Ratio > 1 {
		return errors.Errorf("tracing.ratio must be between 0 and 1, got %f", c.Tracing.Ratio)
	}
	return nil
}

func validSourceName(name string) bool {
	for _, known := range SourceNames {
		if name == known {
			return true
		}
	}
	return false
}

// IgnoreGlobs compiles the ignore_types patterns. Events whose type
// matches any of them are excluded from analysis.
func (c *AnalysisConfig) IgnoreGlobs() ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(c.IgnoreTypes))
	for _, pattern := range c.IgnoreTypes {
		compiled, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid analysis.ignore_types pattern %q", pattern)
		}
		globs = append(globs, compiled)
	}
	return globs, nil
}

// SourceEnabled reports whether the named source is selected.
func (c *SourcesConfig) SourceEnabled(name string) bool {
	for _, enabled := range c.Enabled {
		if enabled == name {
			return true
		}
	}
	return false
}

// ResolveBasePath returns the directory holding the persisted store
// artifacts. HINDSIGHT_BASE_PATH overrides the configured path.
func (c *StoreConfig) ResolveBasePath() string {
	if basePath := os.Getenv("HINDSIGHT_BASE_PATH"); basePath != "" {
		return basePath
	}
	return c.BasePath
}

// SnapshotPath is the canonical JSON snapshot location.
func (c *StoreConfig) SnapshotPath() string {
	return filepath.Join(c.ResolveBasePath(), "events.json")
}

// DatabasePath is the SQLite database location.
func (c *StoreConfig) DatabasePath() string {
	return filepath.Join(c.ResolveBasePath(), "events.db")
}

// ActivityLogPath is the markdown activity log location.
func (c *StoreConfig) ActivityLogPath() string {
	return filepath.Join(c.ResolveBasePath(), "activity.md")
}
