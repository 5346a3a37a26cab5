package tractfilter

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/askiada/tractfilter/internal/ants"
	"github.com/askiada/tractfilter/internal/nifti"
	"github.com/askiada/tractfilter/internal/report"
	"github.com/askiada/tractfilter/internal/tck"
)

func (p *Processor) prepareROIs(ctx context.Context, job *Job) (*Job, error) {
	logger := p.logger.With(slog.String("tract", job.Tract))

	if job.Registration != nil {
		err := p.register(ctx, job)
		if err != nil {
			if terr := p.tolerate(ctx, err); terr != nil {
				return nil, terr
			}

			logger.Warn("registration failed, tract is not filtered", slog.Any("error", err))
			job.Skip = err

			return job, nil
		}
	}

	for _, roi := range job.ROIs {
		stat := ROIStat{Path: roi}

		// Registered masks are not written by a dry run.
		if p.cfg.Pipeline.DryRun && job.Registration != nil {
			job.ROIStats = append(job.ROIStats, stat)

			continue
		}

		stats, err := nifti.MaskStatsFile(roi)
		if err != nil {
			logger.Warn("unable to read ROI mask", slog.String("path", roi), slog.Any("error", err))
			stat.Err = err
			job.ROIStats = append(job.ROIStats, stat)

			continue
		}

		stat.Stats = stats

		if stats.Empty() {
			logger.Warn("ROI mask is empty, no streamline can cross it", slog.String("path", roi))

			if p.cfg.Pipeline.SkipEmptyROIs && job.Skip == nil {
				job.Skip = errors.Wrap(ErrEmptyROI, filepath.Base(roi))
			}
		}

		job.ROIStats = append(job.ROIStats, stat)
	}

	return job, nil
}

// register resamples the include and exclude masks of job into the space of
// its tractogram and points the job to the resampled masks.
func (p *Processor) register(ctx context.Context, job *Job) error {
	reg := job.Registration
	transforms := reg.Transforms

	if reg.Moving != "" {
		computed, err := p.ants.Register(ctx, ants.Registration{
			Fixed:         reg.Reference,
			Moving:        reg.Moving,
			OutputPrefix:  reg.OutputPrefix,
			TransformType: reg.TransformType,
		})
		if err != nil {
			return err
		}

		transforms = computed
	}

	dir := filepath.Dir(job.Input)

	apply := func(masks []string) ([]string, error) {
		res := make([]string, 0, len(masks))

		for _, mask := range masks {
			output := filepath.Join(dir, RegisteredName(mask, job.Tract))

			err := p.ants.ApplyTransforms(ctx, ants.Apply{
				Input:      mask,
				Reference:  reg.Reference,
				Output:     output,
				Transforms: transforms,
			})
			if err != nil {
				return nil, err
			}

			res = append(res, output)
		}

		return res, nil
	}

	include, err := apply(job.ROIs)
	if err != nil {
		return err
	}

	exclude, err := apply(job.Exclude)
	if err != nil {
		return err
	}

	job.ROIs, job.Exclude = include, exclude

	return nil
}

func (p *Processor) include(ctx context.Context, job *Job) (*VariantResult, error) {
	return p.filter(ctx, job, report.VariantProcessed, job.Processed, false)
}

func (p *Processor) inverse(ctx context.Context, job *Job) (*VariantResult, error) {
	return p.filter(ctx, job, report.VariantInverseProcessed, job.Inverse, true)
}

func (p *Processor) original(_ context.Context, job *Job) (*VariantResult, error) {
	return &VariantResult{Job: job, Variant: report.VariantOriginal, Path: job.Input}, nil
}

func (p *Processor) filter(ctx context.Context, job *Job, variant, output string, inverse bool) (*VariantResult, error) {
	res := &VariantResult{Job: job, Variant: variant, Path: output}

	if job.Skip != nil {
		res.Err = job.Skip

		return res, nil
	}

	err := p.mrtrix.Edit(ctx, job.Input, output, job.ROIs, job.Exclude, inverse)
	if err != nil {
		if terr := p.tolerate(ctx, err); terr != nil {
			return nil, terr
		}

		p.logger.Warn("filter failed",
			slog.String("tract", job.Tract), slog.String("variant", variant), slog.Any("error", err))

		res.Err = err
	}

	return res, nil
}

func (p *Processor) resample(ctx context.Context, res *VariantResult) (*VariantResult, error) {
	if res.Variant == report.VariantOriginal || res.Err != nil {
		return res, nil
	}

	endpoints := res.Job.ProcessedEndpoints
	if res.Variant == report.VariantInverseProcessed {
		endpoints = res.Job.InverseEndpoints
	}

	err := p.mrtrix.Resample(ctx, res.Path, endpoints)
	if err != nil {
		if terr := p.tolerate(ctx, err); terr != nil {
			return nil, terr
		}

		p.logger.Warn("resample failed",
			slog.String("tract", res.Job.Tract), slog.String("variant", res.Variant), slog.Any("error", err))

		// the filtered tractogram is still counted
		res.EndpointsErr = err

		return res, nil
	}

	// a dry run writes no endpoint file
	if p.cfg.Pipeline.DryRun {
		return res, nil
	}

	res.Endpoints = endpoints
	p.logger.Info("Endpoint file", slog.String("path", endpoints))

	return res, nil
}

func (p *Processor) count(ctx context.Context, res *VariantResult) (*VariantResult, error) {
	if res.Err != nil {
		return res, nil
	}

	// A dry run writes no filtered tractogram.
	if p.cfg.Pipeline.DryRun && res.Variant != report.VariantOriginal {
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats, err := tck.ComputeStats(res.Path)
	if err != nil {
		if terr := p.tolerate(ctx, err); terr != nil {
			return nil, terr
		}

		p.logger.Warn("unable to count fibers", slog.String("path", res.Path), slog.Any("error", err))
		res.Err = err

		return res, nil
	}

	count := stats.Count
	res.Count = &count
	res.Stats = stats

	if stats.HeaderCount >= 0 && stats.HeaderCount != stats.Count {
		p.logger.Warn("header count differs from streamlines read",
			slog.String("path", res.Path), slog.Int("header", stats.HeaderCount), slog.Int("read", stats.Count))
	}

	if p.metrics != nil {
		p.metrics.SetFibers(res.Job.Tract, res.Variant, count)
	}

	p.logger.Info("fibers counted",
		slog.String("file", filepath.Base(res.Path)), slog.String("variant", res.Variant), slog.Int("count", count))

	return res, nil
}

func (p *Processor) record(ctx context.Context, results <-chan *VariantResult) error {
	for res := range results {
		if err := p.ledger(ctx, res); err != nil {
			return errors.Wrapf(err, "unable to record %s", filepath.Base(res.Path))
		}
	}

	return nil
}
