// Package config loads tractfilter settings. Values are layered, last wins:
// built-in defaults, an optional YAML file, TRACTFILTER_ environment variables
// and finally command line overrides.
package config

import "time"

// Config holds every setting of a run.
type Config struct {
	Log      LogConfig      `koanf:"log"`
	Tools    ToolsConfig    `koanf:"tools"`
	Pipeline PipelineConfig `koanf:"pipeline"`
	Report   ReportConfig   `koanf:"report"`
	Store    StoreConfig    `koanf:"store"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Tracts   []TractConfig  `koanf:"tracts"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ToolsConfig names the external binaries and how they are invoked.
type ToolsConfig struct {
	TckEdit             string               `koanf:"tckedit"`
	TckResample         string               `koanf:"tckresample"`
	AntsRegistration    string               `koanf:"ants_registration"`
	AntsApplyTransforms string               `koanf:"ants_apply_transforms"`
	Threads             int                  `koanf:"threads"`
	Force               bool                 `koanf:"force"`
	Quiet               bool                 `koanf:"quiet"`
	Timeout             time.Duration        `koanf:"timeout"`
	Retry               RetryConfig          `koanf:"retry"`
	CircuitBreaker      CircuitBreakerConfig `koanf:"circuit_breaker"`
}

// RetryConfig holds the retry policy of failed tool invocations.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"`
	InitialInterval time.Duration `koanf:"initial_interval"`
	MaxInterval     time.Duration `koanf:"max_interval"`
	Multiplier      float64       `koanf:"multiplier"`
}

// CircuitBreakerConfig holds the per tool circuit breaker settings.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"`
	Timeout       time.Duration `koanf:"timeout"`
	HalfOpenLimit int           `koanf:"half_open_limit"`
}

// PipelineConfig holds the processing settings.
type PipelineConfig struct {
	Jobs          int    `koanf:"jobs"`
	KeepGoing     bool   `koanf:"keep_going"`
	DryRun        bool   `koanf:"dry_run"`
	SkipEmptyROIs bool   `koanf:"skip_empty_rois"`
	Label         string `koanf:"label"`
}

// ReportConfig lists the outputs of a run. Relative paths are resolved against
// the processed directory; empty values disable optional outputs.
type ReportConfig struct {
	Title    string `koanf:"title"`
	PDF      string `koanf:"pdf"`
	CSV      string `koanf:"csv"`
	HTML     string `koanf:"html"`
	Manifest string `koanf:"manifest"`
	Graph    string `koanf:"graph"`
}

// StoreConfig locates the run ledger. An empty path disables it.
type StoreConfig struct {
	Path string `koanf:"path"`
}

// MetricsConfig locates the Prometheus textfile. An empty path disables it.
type MetricsConfig struct {
	Textfile string `koanf:"textfile"`
}

// TractConfig is one tractogram to filter and the ROI masks it must cross.
type TractConfig struct {
	Name         string              `koanf:"name"`
	ROIs         []string            `koanf:"rois"`
	Exclude      []string            `koanf:"exclude"`
	Label        string              `koanf:"label"`
	Registration *RegistrationConfig `koanf:"registration"`
}

// RegistrationConfig brings ROI masks into the space of the tractogram before
// filtering. Either Moving is set and a registration is computed against
// Reference, or Transforms lists existing transforms to apply.
type RegistrationConfig struct {
	Reference     string   `koanf:"reference"`
	Moving        string   `koanf:"moving"`
	TransformType string   `koanf:"transform_type"`
	Transforms    []string `koanf:"transforms"`
}

// LabelFor returns the label of a tract, falling back to the pipeline label.
func (c *Config) LabelFor(tract TractConfig) string {
	if tract.Label != "" {
		return tract.Label
	}

	return c.Pipeline.Label
}
