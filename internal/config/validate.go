package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate checks every section and returns all problems at once.
func (c *Config) Validate() error {
	return errors.Join(
		c.Log.validate(),
		c.Tools.validate(),
		c.Pipeline.validate(),
		c.Report.validate(),
		validateTracts(c.Tracts),
	)
}

func (l *LogConfig) validate() error {
	var errs []error

	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", l.Level))
	}

	switch l.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be one of: json, text; got %q", l.Format))
	}

	return errors.Join(errs...)
}

func (t *ToolsConfig) validate() error {
	var errs []error

	for key, name := range map[string]string{
		"tools.tckedit":               t.TckEdit,
		"tools.tckresample":           t.TckResample,
		"tools.ants_registration":     t.AntsRegistration,
		"tools.ants_apply_transforms": t.AntsApplyTransforms,
	} {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", key))
		}
	}

	if t.Threads < 0 {
		errs = append(errs, fmt.Errorf("tools.threads must be >= 0, got %d", t.Threads))
	}

	if t.Timeout < 0 {
		errs = append(errs, errors.New("tools.timeout must not be negative"))
	}

	if t.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("tools.retry.max_attempts must be >= 1, got %d", t.Retry.MaxAttempts))
	}

	if t.Retry.Multiplier < 1 {
		errs = append(errs, fmt.Errorf("tools.retry.multiplier must be >= 1, got %f", t.Retry.Multiplier))
	}

	if t.CircuitBreaker.MaxFailures < 1 {
		errs = append(errs, fmt.Errorf("tools.circuit_breaker.max_failures must be >= 1, got %d",
			t.CircuitBreaker.MaxFailures))
	}

	return errors.Join(errs...)
}

func (p *PipelineConfig) validate() error {
	var errs []error

	if p.Jobs < 1 {
		errs = append(errs, fmt.Errorf("pipeline.jobs must be >= 1, got %d", p.Jobs))
	}

	if strings.TrimSpace(p.Label) == "" {
		errs = append(errs, errors.New("pipeline.label must not be empty"))
	}

	return errors.Join(errs...)
}

func (r *ReportConfig) validate() error {
	if filepath.Ext(r.PDF) != ".pdf" {
		return fmt.Errorf("report.pdf must end with .pdf, got %q", r.PDF)
	}

	return nil
}

func validateTracts(tracts []TractConfig) error {
	var errs []error

	seen := make(map[string]struct{}, len(tracts))

	for i, tract := range tracts {
		if filepath.Ext(tract.Name) != ".tck" {
			errs = append(errs, fmt.Errorf("tracts[%d].name must be a .tck file, got %q", i, tract.Name))
		}

		if _, ok := seen[tract.Name]; ok {
			errs = append(errs, fmt.Errorf("tracts[%d].name %q is duplicated", i, tract.Name))
		}

		seen[tract.Name] = struct{}{}

		if len(tract.ROIs) == 0 {
			errs = append(errs, fmt.Errorf("tracts[%d].rois must not be empty", i))
		}

		if reg := tract.Registration; reg != nil {
			if reg.Reference == "" {
				errs = append(errs, fmt.Errorf("tracts[%d].registration.reference must not be empty", i))
			}

			if reg.Moving == "" && len(reg.Transforms) == 0 {
				errs = append(errs, fmt.Errorf("tracts[%d].registration needs moving or transforms", i))
			}
		}
	}

	return errors.Join(errs...)
}
