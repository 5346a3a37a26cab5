package pipeline

import (
	"context"

	"github.com/pkg/errors"

	"github.com/askiada/tractfilter/internal/pipeline/model"
)

func prepareRootStep[O any](pipe *Pipeline, step *model.Step[O], opts ...StepOption[O]) error {
	for _, opt := range opts {
		opt(step)
	}

	for _, opt := range pipe.opts {
		err := opt.PrepareStep(model.StartStep.Details, step.Details)
		if err != nil {
			return errors.Wrap(err, "unable to run prepare step hook")
		}
	}

	return nil
}

// AddRootStep adds a step producing values. stepFn pushes values to rootChan and
// returns when it is done; rootChan is then closed.
// stepFn must watch ctx when it blocks on rootChan.
func AddRootStep[O any](
	pipe *Pipeline, name string,
	stepFn func(ctx context.Context, rootChan chan<- O) error, opts ...StepOption[O],
) (*model.Step[O], error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}

	output := make(chan O)
	step := &model.Step[O]{
		Details: &model.StepInfo{
			Type:       model.RootStepType,
			Name:       name,
			Concurrent: 1,
		},
		Output: output,
	}

	err := prepareRootStep(pipe, step, opts...)
	if err != nil {
		return nil, err
	}

	errC := make(chan error, 1)
	pipe.errcList.add(newErrorChan(name, errC))

	go func() {
		defer func() {
			close(output)
			close(errC)
		}()

		err := stepFn(pipe.ctx, output)
		if err != nil {
			reportError(errC, err)
		}
	}()

	return step, nil
}

// SliceRoot is a root step function emitting values in order.
func SliceRoot[O any](values []O) func(ctx context.Context, rootChan chan<- O) error {
	return func(ctx context.Context, rootChan chan<- O) error {
		for _, v := range values {
			err := send(ctx, rootChan, v)
			if err != nil {
				return err
			}
		}

		return nil
	}
}
