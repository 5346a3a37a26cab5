// Package ants builds and runs the ANTs commands that bring ROI masks into the
// space of a tractogram: antsRegistrationSyNQuick.sh computes the transforms
// and antsApplyTransforms resamples the masks.
package ants

import (
	"context"
	"strconv"

	"github.com/pkg/errors"

	"github.com/askiada/tractfilter/internal/config"
	"github.com/askiada/tractfilter/internal/toolrun"
)

// NearestNeighbor keeps binary masks binary when they are resampled.
const NearestNeighbor = "NearestNeighbor"

// DefaultTransformType is a rigid, affine and deformable SyN registration.
const DefaultTransformType = "s"

// Registration describes one antsRegistrationSyNQuick.sh run.
type Registration struct {
	Fixed         string
	Moving        string
	OutputPrefix  string
	TransformType string
	Threads       int
}

// Args returns the antsRegistrationSyNQuick.sh arguments.
func (r Registration) Args() []string {
	transformType := r.TransformType
	if transformType == "" {
		transformType = DefaultTransformType
	}

	args := []string{
		"-d", "3",
		"-f", r.Fixed,
		"-m", r.Moving,
		"-o", r.OutputPrefix,
		"-t", transformType,
	}

	if r.Threads > 0 {
		args = append(args, "-n", strconv.Itoa(r.Threads))
	}

	return args
}

// Transforms returns the files written by the registration, in the order
// antsApplyTransforms expects them to map moving onto fixed.
func (r Registration) Transforms() []string {
	affine := r.OutputPrefix + "0GenericAffine.mat"

	switch r.TransformType {
	case "t", "r", "a":
		return []string{affine}
	case "so", "bo":
		// deformable stage only, numbered first
		return []string{r.OutputPrefix + "0Warp.nii.gz"}
	default:
		return []string{r.OutputPrefix + "1Warp.nii.gz", affine}
	}
}

// Apply describes one antsApplyTransforms run.
type Apply struct {
	Input         string
	Reference     string
	Output        string
	Interpolation string
	Transforms    []string
}

// Args returns the antsApplyTransforms arguments.
func (a Apply) Args() []string {
	interpolation := a.Interpolation
	if interpolation == "" {
		interpolation = NearestNeighbor
	}

	args := []string{
		"-d", "3",
		"-i", a.Input,
		"-r", a.Reference,
		"-o", a.Output,
		"-n", interpolation,
	}

	for _, transform := range a.Transforms {
		args = append(args, "-t", transform)
	}

	return args
}

// Tools runs ANTs commands through a runner.
type Tools struct {
	runner          toolrun.Runner
	registration    string
	applyTransforms string
	threads         int
}

// New creates Tools from the tools section of the configuration.
func New(runner toolrun.Runner, cfg config.ToolsConfig) *Tools {
	return &Tools{
		runner:          runner,
		registration:    cfg.AntsRegistration,
		applyTransforms: cfg.AntsApplyTransforms,
		threads:         cfg.Threads,
	}
}

// Binaries lists the executables Tools needs.
func (t *Tools) Binaries() []string {
	return []string{t.registration, t.applyTransforms}
}

// Register computes the transforms mapping reg.Moving onto reg.Fixed.
func (t *Tools) Register(ctx context.Context, reg Registration) ([]string, error) {
	if reg.Threads == 0 {
		reg.Threads = t.threads
	}

	_, err := t.runner.Run(ctx, toolrun.Command{Name: t.registration, Args: reg.Args()})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to register %s to %s", reg.Moving, reg.Fixed)
	}

	return reg.Transforms(), nil
}

// ApplyTransforms resamples a.Input into the space of a.Reference.
func (t *Tools) ApplyTransforms(ctx context.Context, a Apply) error {
	_, err := t.runner.Run(ctx, toolrun.Command{Name: t.applyTransforms, Args: a.Args()})
	if err != nil {
		return errors.Wrapf(err, "unable to apply transforms to %s", a.Input)
	}

	return nil
}
