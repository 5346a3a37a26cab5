package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/tractfilter/internal/pipeline/model"
)

func prepareMerger[I any](pipe *Pipeline, output chan I, name string, steps ...*model.Step[I]) (*model.Step[I], error) {
	outputStep := &model.Step[I]{
		Details: &model.StepInfo{
			Type:       model.MergerStepType,
			Name:       name,
			Concurrent: 1,
		},
		Output: output,
	}

	stepInfos := make([]*model.StepInfo, 0, len(steps))
	for _, step := range steps {
		if step.Details != nil {
			stepInfos = append(stepInfos, step.Details)
		}
	}

	for _, opt := range pipe.opts {
		err := opt.PrepareMerger(stepInfos, outputStep.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run prepare merger hook")
		}
	}

	return outputStep, nil
}

func runStepMerger[I any](ctx context.Context, pipe *Pipeline, errC chan<- error, step, outputStep *model.Step[I]) {
	parent := step.Details
	if parent == nil {
		parent = model.StartStep.Details
	}

	for {
		startIter := time.Now()

		select {
		case <-ctx.Done():
			reportError(errC, ctx.Err())

			return
		case entry, ok := <-step.Output:
			if !ok {
				return
			}

			err := send(ctx, outputStep.Output, entry)
			if err != nil {
				reportError(errC, err)

				return
			}

			for _, opt := range pipe.opts {
				err := opt.OnMergerOutput(parent, outputStep.Details, time.Since(startIter))
				if err != nil {
					reportError(errC, errors.Wrap(err, "unable to run merger output hook"))

					return
				}
			}
		}
	}
}

// AddMerger forwards the values of every step to a single output. The output is
// closed once all inputs are drained. Merging starts when Run is called.
func AddMerger[I any](pipe *Pipeline, name string, steps ...*model.Step[I]) (*model.Step[I], error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}

	if len(steps) == 0 {
		return nil, ErrInputMustBeSet
	}

	for _, step := range steps {
		if step == nil {
			return nil, ErrInputMustBeSet
		}
	}

	output := make(chan I)

	outputStep, err := prepareMerger(pipe, output, name, steps...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to prepare merger")
	}

	errC := make(chan error, 1)
	pipe.errcList.add(newErrorChan(name, errC))

	wgrp := &sync.WaitGroup{}
	wgrp.Add(len(steps))

	go func() {
		wgrp.Wait()
		close(errC)
		close(output)
	}()

	for _, step := range steps {
		pipe.goFn = append(pipe.goFn, func(ctx context.Context) {
			defer wgrp.Done()

			runStepMerger(ctx, pipe, errC, step, outputStep)
		})
	}

	return outputStep, nil
}
