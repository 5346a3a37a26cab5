package config

const (
	defaultRetryMaxAttempts          = 1
	defaultRetryMultiplier           = 2.0
	defaultCircuitBreakerMaxFailures = 3
	defaultCircuitBreakerHalfOpen    = 1

	// DefaultLabel marks filtered outputs, e.g. CST_L_ICPED.tck.
	DefaultLabel = "ICPED"
	// DefaultPDF is the report written in the processed directory.
	DefaultPDF = "fiber_counts.pdf"
)

func defaults() map[string]any {
	return map[string]any{
		"log.level":  "info",
		"log.format": "text",

		"tools.tckedit":                         "tckedit",
		"tools.tckresample":                     "tckresample",
		"tools.ants_registration":               "antsRegistrationSyNQuick.sh",
		"tools.ants_apply_transforms":           "antsApplyTransforms",
		"tools.threads":                         0,
		"tools.force":                           true,
		"tools.quiet":                           true,
		"tools.timeout":                         "0s",
		"tools.retry.max_attempts":              defaultRetryMaxAttempts,
		"tools.retry.initial_interval":          "500ms",
		"tools.retry.max_interval":              "10s",
		"tools.retry.multiplier":                defaultRetryMultiplier,
		"tools.circuit_breaker.max_failures":    defaultCircuitBreakerMaxFailures,
		"tools.circuit_breaker.timeout":         "30s",
		"tools.circuit_breaker.half_open_limit": defaultCircuitBreakerHalfOpen,

		"pipeline.jobs":            1,
		"pipeline.keep_going":      true,
		"pipeline.dry_run":         false,
		"pipeline.skip_empty_rois": false,
		"pipeline.label":           DefaultLabel,

		"report.title":    "Fiber Counts",
		"report.pdf":      DefaultPDF,
		"report.csv":      "",
		"report.html":     "",
		"report.manifest": "",
		"report.graph":    "",

		"store.path":       "",
		"metrics.textfile": "",
	}
}

// DefaultTracts are the corticospinal tracts and the internal capsule and
// cerebral peduncle masks they are filtered with.
func DefaultTracts() []TractConfig {
	return []TractConfig{
		{Name: "CST_L.tck", ROIs: []string{"LPIC_binary.nii.gz", "LCP_binary.nii.gz"}},
		{Name: "CST_R.tck", ROIs: []string{"RPIC_binary.nii.gz", "RCP_binary.nii.gz"}},
	}
}
