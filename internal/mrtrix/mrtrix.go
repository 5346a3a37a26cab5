// Package mrtrix builds and runs MRtrix3 commands: tckedit to filter
// streamlines by ROI masks and tckresample to reduce streamlines to their
// endpoints.
package mrtrix

import (
	"context"
	"strconv"

	"github.com/pkg/errors"

	"github.com/askiada/tractfilter/internal/config"
	"github.com/askiada/tractfilter/internal/toolrun"
)

// EditOptions are the tckedit options used by tractfilter.
type EditOptions struct {
	// Include keeps streamlines crossing every mask, one -include per mask.
	Include []string
	// Exclude drops streamlines crossing any mask.
	Exclude []string
	// Inverse keeps the streamlines the other options would drop.
	Inverse bool
	Common
}

// Common are the options every MRtrix3 command accepts.
type Common struct {
	Force   bool
	Quiet   bool
	Threads int
}

func (c Common) args() []string {
	var args []string

	if c.Force {
		args = append(args, "-force")
	}

	if c.Threads > 0 {
		args = append(args, "-nthreads", strconv.Itoa(c.Threads))
	}

	if c.Quiet {
		args = append(args, "-quiet")
	}

	return args
}

// EditArgs returns the arguments of tckedit input output [options].
func EditArgs(input, output string, opts EditOptions) []string {
	args := []string{input, output}

	for _, roi := range opts.Include {
		args = append(args, "-include", roi)
	}

	for _, roi := range opts.Exclude {
		args = append(args, "-exclude", roi)
	}

	if opts.Inverse {
		args = append(args, "-inverse")
	}

	return append(args, opts.Common.args()...)
}

// ResampleArgs returns the arguments of tckresample input output -endpoints [options].
func ResampleArgs(input, output string, opts Common) []string {
	args := []string{input, output, "-endpoints"}

	return append(args, opts.args()...)
}

// Tools runs MRtrix3 commands through a runner.
type Tools struct {
	runner      toolrun.Runner
	tckedit     string
	tckresample string
	common      Common
}

// New creates Tools from the tools section of the configuration.
func New(runner toolrun.Runner, cfg config.ToolsConfig) *Tools {
	return &Tools{
		runner:      runner,
		tckedit:     cfg.TckEdit,
		tckresample: cfg.TckResample,
		common: Common{
			Force:   cfg.Force,
			Quiet:   cfg.Quiet,
			Threads: cfg.Threads,
		},
	}
}

// Binaries lists the executables Tools needs.
func (t *Tools) Binaries() []string {
	return []string{t.tckedit, t.tckresample}
}

// Edit filters input into output. inverse keeps the streamlines that do not
// cross every include mask.
func (t *Tools) Edit(ctx context.Context, input, output string, include, exclude []string, inverse bool) error {
	args := EditArgs(input, output, EditOptions{
		Include: include,
		Exclude: exclude,
		Inverse: inverse,
		Common:  t.common,
	})

	_, err := t.runner.Run(ctx, toolrun.Command{Name: t.tckedit, Args: args})
	if err != nil {
		return errors.Wrapf(err, "unable to filter %s", input)
	}

	return nil
}

// Resample writes the endpoints of every streamline of input to output.
func (t *Tools) Resample(ctx context.Context, input, output string) error {
	_, err := t.runner.Run(ctx, toolrun.Command{Name: t.tckresample, Args: ResampleArgs(input, output, t.common)})
	if err != nil {
		return errors.Wrapf(err, "unable to resample %s", input)
	}

	return nil
}
