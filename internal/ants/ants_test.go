package ants_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/tractfilter/internal/ants"
	"github.com/askiada/tractfilter/internal/config"
	"github.com/askiada/tractfilter/internal/toolrun"
)

func TestRegistration(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		reg            ants.Registration
		wantArgs       []string
		wantTransforms []string
	}{
		"default syn": {
			reg: ants.Registration{Fixed: "b0.nii.gz", Moving: "T1.nii.gz", OutputPrefix: "reg/T1_to_b0_"},
			wantArgs: []string{
				"-d", "3", "-f", "b0.nii.gz", "-m", "T1.nii.gz", "-o", "reg/T1_to_b0_", "-t", "s",
			},
			wantTransforms: []string{"reg/T1_to_b0_1Warp.nii.gz", "reg/T1_to_b0_0GenericAffine.mat"},
		},
		"affine with threads": {
			reg: ants.Registration{Fixed: "b0.nii.gz", Moving: "T1.nii.gz", OutputPrefix: "x_", TransformType: "a", Threads: 8},
			wantArgs: []string{
				"-d", "3", "-f", "b0.nii.gz", "-m", "T1.nii.gz", "-o", "x_", "-t", "a", "-n", "8",
			},
			wantTransforms: []string{"x_0GenericAffine.mat"},
		},
		"syn only": {
			reg: ants.Registration{Fixed: "b0.nii.gz", Moving: "T1.nii.gz", OutputPrefix: "x_", TransformType: "so"},
			wantArgs: []string{
				"-d", "3", "-f", "b0.nii.gz", "-m", "T1.nii.gz", "-o", "x_", "-t", "so",
			},
			wantTransforms: []string{"x_0Warp.nii.gz"},
		},
		"b-spline syn only": {
			reg: ants.Registration{Fixed: "b0.nii.gz", Moving: "T1.nii.gz", OutputPrefix: "x_", TransformType: "bo"},
			wantArgs: []string{
				"-d", "3", "-f", "b0.nii.gz", "-m", "T1.nii.gz", "-o", "x_", "-t", "bo",
			},
			wantTransforms: []string{"x_0Warp.nii.gz"},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.wantArgs, tc.reg.Args())
			assert.Equal(t, tc.wantTransforms, tc.reg.Transforms())
		})
	}
}

func TestApplyArgs(t *testing.T) {
	t.Parallel()

	apply := ants.Apply{
		Input:      "LPIC_binary.nii.gz",
		Reference:  "b0.nii.gz",
		Output:     "LPIC_binary_reg.nii.gz",
		Transforms: []string{"warp.nii.gz", "affine.mat"},
	}

	assert.Equal(t, []string{
		"-d", "3",
		"-i", "LPIC_binary.nii.gz",
		"-r", "b0.nii.gz",
		"-o", "LPIC_binary_reg.nii.gz",
		"-n", "NearestNeighbor",
		"-t", "warp.nii.gz",
		"-t", "affine.mat",
	}, apply.Args())
}

func TestTools(t *testing.T) {
	t.Parallel()

	rec := toolrun.NewRecorder()
	cfg := config.Default().Tools
	cfg.Threads = 2

	tools := ants.New(rec, cfg)
	assert.Equal(t, []string{"antsRegistrationSyNQuick.sh", "antsApplyTransforms"}, tools.Binaries())

	transforms, err := tools.Register(context.Background(), ants.Registration{
		Fixed: "b0.nii.gz", Moving: "T1.nii.gz", OutputPrefix: "T1_",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"T1_1Warp.nii.gz", "T1_0GenericAffine.mat"}, transforms)

	require.NoError(t, tools.ApplyTransforms(context.Background(), ants.Apply{
		Input: "roi.nii.gz", Reference: "b0.nii.gz", Output: "roi_reg.nii.gz", Transforms: transforms,
	}))

	cmds := rec.Commands()
	require.Len(t, cmds, 2)
	assert.Contains(t, cmds[0].Args, "-n")
	assert.Equal(t, "antsApplyTransforms", cmds[1].Name)
}

func TestToolsRegisterError(t *testing.T) {
	t.Parallel()

	rec := toolrun.NewRecorder().On("antsRegistrationSyNQuick.sh", func(_ context.Context, _ toolrun.Command) (*toolrun.Result, error) {
		return nil, assert.AnError
	})

	_, err := ants.New(rec, config.Default().Tools).Register(context.Background(), ants.Registration{Fixed: "f", Moving: "m"})
	require.ErrorIs(t, err, assert.AnError)
}
