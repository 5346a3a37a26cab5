package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/tractfilter/internal/pipeline/model"
)

func prepareSink[I any](pipe *Pipeline, name string, input *model.Step[I]) (*model.StepInfo, error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}

	if input == nil {
		return nil, ErrInputMustBeSet
	}

	details := &model.StepInfo{
		Type:       model.SinkStepType,
		Name:       name,
		Concurrent: 1,
	}

	parent := input.Details
	if parent == nil {
		parent = model.StartStep.Details
	}

	for _, opt := range pipe.opts {
		err := opt.PrepareSink(parent, details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run prepare sink hook")
		}
	}

	return details, nil
}

func afterSink(pipe *Pipeline, details *model.StepInfo) error {
	total := time.Since(pipe.startTime)

	for _, opt := range pipe.opts {
		err := opt.AfterSink(details, total)
		if err != nil {
			return errors.Wrap(err, "unable to run after sink hook")
		}
	}

	return nil
}

func consumeSink[I any](
	ctx context.Context, pipe *Pipeline, input *model.Step[I], details *model.StepInfo,
	sinkFn func(ctx context.Context, input I) error,
) error {
	parent := input.Details
	if parent == nil {
		parent = model.StartStep.Details
	}

	for {
		startIter := time.Now()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-input.Output:
			if !ok {
				return afterSink(pipe, details)
			}

			startFn := time.Now()

			err := sinkFn(ctx, in)
			if err != nil {
				return err
			}

			endFn := time.Since(startFn)

			for _, opt := range pipe.opts {
				err := opt.OnSinkOutput(parent, details, time.Since(startIter)-endFn, endFn)
				if err != nil {
					return errors.Wrap(err, "unable to run sink output hook")
				}
			}
		}
	}
}

// AddSink adds a step consuming every value of input with sinkFn.
func AddSink[I any](pipe *Pipeline, name string, input *model.Step[I], sinkFn func(ctx context.Context, input I) error) error {
	details, err := prepareSink(pipe, name, input)
	if err != nil {
		return err
	}

	errC := make(chan error, 1)
	pipe.errcList.add(newErrorChan(name, errC))

	go func() {
		defer close(errC)

		err := consumeSink(pipe.ctx, pipe, input, details, sinkFn)
		if err != nil {
			reportError(errC, err)
		}
	}()

	return nil
}

// AddSinkFromChan adds a step handing the whole input channel to stepFn.
// stepFn must drain the channel or return an error.
func AddSinkFromChan[I any](pipe *Pipeline, name string, input *model.Step[I], stepFn func(ctx context.Context, input <-chan I) error) error {
	details, err := prepareSink(pipe, name, input)
	if err != nil {
		return err
	}

	errC := make(chan error, 1)
	pipe.errcList.add(newErrorChan(name, errC))

	go func() {
		defer close(errC)

		err := stepFn(pipe.ctx, input.Output)
		if err != nil {
			reportError(errC, err)

			return
		}

		err = afterSink(pipe, details)
		if err != nil {
			reportError(errC, err)
		}
	}()

	return nil
}
