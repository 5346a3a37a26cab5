package tractfilter_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/tractfilter/internal/config"
	"github.com/askiada/tractfilter/internal/tractfilter"
)

func TestNames(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		got  string
		want string
	}{
		"filtered":          {got: tractfilter.FilteredName("CST_L.tck", "ICPED"), want: "CST_L_ICPED.tck"},
		"inverse":           {got: tractfilter.InverseName("CST_L.tck", "ICPED"), want: "CST_L_ICPED_inv.tck"},
		"endpoints":         {got: tractfilter.EndpointName("/d/CST_L_ICPED.tck"), want: "/d/CST_L_ICPED_ep.tck"},
		"inverse endpoints": {got: tractfilter.EndpointName("CST_L_ICPED_inv.tck"), want: "CST_L_ICPED_inv_ep.tck"},
		"custom label":      {got: tractfilter.FilteredName("AF_L.tck", "ARC"), want: "AF_L_ARC.tck"},
		"registered mask":   {got: tractfilter.RegisteredName("/d/LPIC_binary.nii.gz", "CST_L.tck"), want: "LPIC_binary_CST_L.nii.gz"},
		"registered nii":    {got: tractfilter.RegisteredName("mask.nii", "CST_R.tck"), want: "mask_CST_R.nii.gz"},
		"prefix":            {got: tractfilter.RegistrationPrefix("/d/CST_R.tck"), want: "CST_R_roi2tract_"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, tc.got)
		})
	}
}

func TestPlan(t *testing.T) {
	t.Parallel()

	dir := setupDir(t)
	cfg := testConfig(t)

	jobs, err := tractfilter.Plan(dir, cfg)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	job := jobs[1]
	assert.Equal(t, 1, job.Index)
	assert.Equal(t, "CST_R.tck", job.Tract)
	assert.Equal(t, "ICPED", job.Label)
	assert.Equal(t, filepath.Join(dir, "CST_R.tck"), job.Input)
	assert.Equal(t, []string{filepath.Join(dir, "RPIC_binary.nii.gz"), filepath.Join(dir, "RCP_binary.nii.gz")}, job.ROIs)
	assert.Equal(t, filepath.Join(dir, "CST_R_ICPED.tck"), job.Processed)
	assert.Equal(t, filepath.Join(dir, "CST_R_ICPED_inv.tck"), job.Inverse)
	assert.Equal(t, filepath.Join(dir, "CST_R_ICPED_ep.tck"), job.ProcessedEndpoints)
	assert.Equal(t, filepath.Join(dir, "CST_R_ICPED_inv_ep.tck"), job.InverseEndpoints)
	assert.Nil(t, job.Registration)
}

func TestPlanReportsEveryMissingFile(t *testing.T) {
	t.Parallel()

	dir := setupDir(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "CST_L.tck")))
	require.NoError(t, os.Remove(filepath.Join(dir, "RCP_binary.nii.gz")))

	_, err := tractfilter.Plan(dir, testConfig(t))
	require.ErrorIs(t, err, tractfilter.ErrMissingInput)
	assert.Contains(t, err.Error(), "CST_L.tck")
	assert.Contains(t, err.Error(), "RCP_binary.nii.gz")
}

func TestPlanErrors(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	tcs := map[string]struct {
		dir     string
		tracts  []config.TractConfig
		wantErr error
	}{
		"no tracts":     {dir: t.TempDir(), tracts: []config.TractConfig{}, wantErr: tractfilter.ErrNoTracts},
		"not directory": {dir: file, tracts: config.DefaultTracts(), wantErr: tractfilter.ErrNotDirectory},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig(t)
			cfg.Tracts = tc.tracts

			_, err := tractfilter.Plan(tc.dir, cfg)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestPlanRegistration(t *testing.T) {
	t.Parallel()

	dir := setupDir(t)
	writeMask(t, filepath.Join(dir, "b0.nii.gz"), 8)
	writeMask(t, filepath.Join(dir, "template.nii.gz"), 8)

	cfg := testConfig(t)
	cfg.Tracts[0].Registration = &config.RegistrationConfig{Reference: "b0.nii.gz", Moving: "template.nii.gz"}

	jobs, err := tractfilter.Plan(dir, cfg)
	require.NoError(t, err)

	reg := jobs[0].Registration
	require.NotNil(t, reg)
	assert.Equal(t, filepath.Join(dir, "b0.nii.gz"), reg.Reference)
	assert.Equal(t, filepath.Join(dir, "template.nii.gz"), reg.Moving)
	assert.Equal(t, filepath.Join(dir, "CST_L_roi2tract_"), reg.OutputPrefix)

	cfg.Tracts[0].Registration.Transforms = []string{"missing.mat"}
	_, err = tractfilter.Plan(dir, cfg)
	require.ErrorIs(t, err, tractfilter.ErrMissingInput)
}
