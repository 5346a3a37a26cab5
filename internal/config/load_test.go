package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/tractfilter/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tractfilter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "tckedit", cfg.Tools.TckEdit)
	assert.Equal(t, "tckresample", cfg.Tools.TckResample)
	assert.True(t, cfg.Tools.Force)
	assert.Equal(t, 30*time.Second, cfg.Tools.CircuitBreaker.Timeout)
	assert.Equal(t, 1, cfg.Pipeline.Jobs)
	assert.True(t, cfg.Pipeline.KeepGoing)
	assert.Equal(t, config.DefaultLabel, cfg.Pipeline.Label)
	assert.Equal(t, config.DefaultPDF, cfg.Report.PDF)

	if diff := cmp.Diff(config.DefaultTracts(), cfg.Tracts); diff != "" {
		t.Errorf("tracts mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
log:
  level: debug
pipeline:
  jobs: 3
  keep_going: false
tools:
  retry:
    max_attempts: 4
    initial_interval: 1s
tracts:
  - name: AF_L.tck
    rois: [L_arcuate.nii.gz]
    label: ARC
`)

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 3, cfg.Pipeline.Jobs)
	assert.False(t, cfg.Pipeline.KeepGoing)
	assert.Equal(t, 4, cfg.Tools.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Tools.Retry.InitialInterval)
	require.Len(t, cfg.Tracts, 1)
	assert.Equal(t, "AF_L.tck", cfg.Tracts[0].Name)
	assert.Equal(t, []string{"L_arcuate.nii.gz"}, cfg.Tracts[0].ROIs)
	assert.Equal(t, "ARC", cfg.LabelFor(cfg.Tracts[0]))
}

func TestLoadOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("", map[string]any{
		"pipeline.jobs":    2,
		"pipeline.dry_run": true,
		"report.csv":       "fiber_counts.csv",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Pipeline.Jobs)
	assert.True(t, cfg.Pipeline.DryRun)
	assert.Equal(t, "fiber_counts.csv", cfg.Report.CSV)
	assert.Equal(t, config.DefaultLabel, cfg.LabelFor(cfg.Tracts[0]))
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("TRACTFILTER_PIPELINE_KEEP_GOING", "false")
	t.Setenv("TRACTFILTER_TOOLS_TCKEDIT", "/opt/mrtrix3/bin/tckedit")

	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.False(t, cfg.Pipeline.KeepGoing)
	assert.Equal(t, "/opt/mrtrix3/bin/tckedit", cfg.Tools.TckEdit)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		mutate  func(cfg *config.Config)
		wantErr string
	}{
		"valid": {
			mutate: func(_ *config.Config) {},
		},
		"bad level": {
			mutate:  func(cfg *config.Config) { cfg.Log.Level = "loud" },
			wantErr: "log.level",
		},
		"no jobs": {
			mutate:  func(cfg *config.Config) { cfg.Pipeline.Jobs = 0 },
			wantErr: "pipeline.jobs",
		},
		"empty tool": {
			mutate:  func(cfg *config.Config) { cfg.Tools.TckResample = " " },
			wantErr: "tools.tckresample",
		},
		"not a tractogram": {
			mutate:  func(cfg *config.Config) { cfg.Tracts[0].Name = "CST_L.trk" },
			wantErr: "must be a .tck file",
		},
		"duplicated tract": {
			mutate:  func(cfg *config.Config) { cfg.Tracts[1].Name = cfg.Tracts[0].Name },
			wantErr: "duplicated",
		},
		"no roi": {
			mutate:  func(cfg *config.Config) { cfg.Tracts[0].ROIs = nil },
			wantErr: "rois must not be empty",
		},
		"registration without transforms": {
			mutate: func(cfg *config.Config) {
				cfg.Tracts[0].Registration = &config.RegistrationConfig{Reference: "b0.nii.gz"}
			},
			wantErr: "needs moving or transforms",
		},
		"report not pdf": {
			mutate:  func(cfg *config.Config) { cfg.Report.PDF = "fiber_counts.png" },
			wantErr: "report.pdf",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
