// Package tractfilter filters tractograms by ROI masks, reduces the filtered
// streamlines to their endpoints and counts the fibers of every stage.
package tractfilter

import (
	stderrors "errors"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/askiada/tractfilter/internal/config"
	"github.com/askiada/tractfilter/internal/nifti"
)

var (
	ErrNoTracts     = errors.New("no tracts configured")
	ErrMissingInput = errors.New("file does not exist")
	ErrNotDirectory = errors.New("not a directory")
)

// Registration holds the resolved paths bringing the masks of a job into the
// space of its tractogram.
type Registration struct {
	Reference     string
	Moving        string
	TransformType string
	Transforms    []string
	OutputPrefix  string
}

// ROIStat describes one mask of a job. Err is set when the mask could not be read.
type ROIStat struct {
	Path  string
	Stats nifti.MaskStats
	Err   error
}

// Job is one tract resolved against the processed directory.
type Job struct {
	// Index is the position of the tract in the configuration.
	Index int
	// Tract is the configured tractogram name, e.g. CST_L.tck.
	Tract string
	Label string
	Input string
	// ROIs are the include masks, in the order they are passed to tckedit.
	ROIs               []string
	Exclude            []string
	Processed          string
	Inverse            string
	ProcessedEndpoints string
	InverseEndpoints   string
	Registration       *Registration
	ROIStats           []ROIStat
	// Skip is set when the job must not be filtered, e.g. because a mask is empty.
	Skip error
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(ErrMissingInput, path)
	}

	if err != nil {
		return errors.Wrapf(err, "unable to stat %s", path)
	}

	if info.IsDir() {
		return errors.Errorf("%s is a directory", path)
	}

	return nil
}

// Plan resolves the configured tracts against dir. Every referenced input must
// exist; all missing files are reported at once.
func Plan(dir string, cfg *config.Config) ([]*Job, error) {
	if len(cfg.Tracts) == 0 {
		return nil, ErrNoTracts
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to resolve %s", dir)
	}

	info, err := os.Stat(absDir)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to stat %s", absDir)
	}

	if !info.IsDir() {
		return nil, errors.Wrap(ErrNotDirectory, absDir)
	}

	jobs := make([]*Job, 0, len(cfg.Tracts))
	errs := []error{}

	for i, tract := range cfg.Tracts {
		label := cfg.LabelFor(tract)
		input := resolve(absDir, tract.Name)
		processed := resolve(absDir, FilteredName(tract.Name, label))
		inverse := resolve(absDir, InverseName(tract.Name, label))

		job := &Job{
			Index:              i,
			Tract:              tract.Name,
			Label:              label,
			Input:              input,
			Processed:          processed,
			Inverse:            inverse,
			ProcessedEndpoints: EndpointName(processed),
			InverseEndpoints:   EndpointName(inverse),
		}

		errs = append(errs, checkFile(input))

		for _, roi := range tract.ROIs {
			path := resolve(absDir, roi)
			job.ROIs = append(job.ROIs, path)
			errs = append(errs, checkFile(path))
		}

		for _, roi := range tract.Exclude {
			path := resolve(absDir, roi)
			job.Exclude = append(job.Exclude, path)
			errs = append(errs, checkFile(path))
		}

		if reg := tract.Registration; reg != nil {
			job.Registration = &Registration{
				Reference:     resolve(absDir, reg.Reference),
				Moving:        resolve(absDir, reg.Moving),
				TransformType: reg.TransformType,
				OutputPrefix:  resolve(absDir, RegistrationPrefix(tract.Name)),
			}

			errs = append(errs, checkFile(job.Registration.Reference))

			if reg.Moving != "" {
				errs = append(errs, checkFile(job.Registration.Moving))
			}

			for _, transform := range reg.Transforms {
				path := resolve(absDir, transform)
				job.Registration.Transforms = append(job.Registration.Transforms, path)
				errs = append(errs, checkFile(path))
			}
		}

		jobs = append(jobs, job)
	}

	if err := stderrors.Join(errs...); err != nil {
		return nil, err
	}

	return jobs, nil
}
