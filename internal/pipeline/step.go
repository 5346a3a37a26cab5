package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/tractfilter/internal/pipeline/model"
)

func onStepOutput(opts []model.PipelineOption, parent, step *model.StepInfo, iteration, computation time.Duration) error {
	for _, opt := range opts {
		err := opt.OnStepOutput(parent, step, iteration, computation)
		if err != nil {
			return errors.Wrap(err, "unable to run step output hook")
		}
	}

	return nil
}

// send pushes out downstream unless the context is done first.
func send[O any](ctx context.Context, output chan<- O, out O) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case output <- out:
		return nil
	}
}

func sequentialOneToOne[I, O any](
	ctx context.Context, goIdx int, opts []model.PipelineOption,
	input *model.Step[I], output *model.Step[O],
	oneToOneFn func(context.Context, I) (O, error),
) error {
	for {
		startIter := time.Now()

		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "worker %d", goIdx)
		case in, ok := <-input.Output:
			if !ok {
				return nil
			}

			startFn := time.Now()

			out, err := oneToOneFn(ctx, in)
			if err != nil {
				return errors.Wrapf(err, "worker %d", goIdx)
			}

			endFn := time.Since(startFn)

			// a sibling worker may have failed while this one was computing
			err = send(ctx, output.Output, out)
			if err != nil {
				return errors.Wrapf(err, "worker %d", goIdx)
			}

			err = onStepOutput(opts, input.Details, output.Details, time.Since(startIter)-endFn, endFn)
			if err != nil {
				return err
			}
		}
	}
}

// runWorkers starts the workers of a step. With one worker no errgroup is needed.
func runWorkers(ctx context.Context, concurrent int, worker func(ctx context.Context, goIdx int) error) error {
	if concurrent <= 1 {
		return worker(ctx, 0)
	}

	errGrp, dCtx := errgroup.WithContext(ctx)
	errGrp.SetLimit(concurrent)

	for goIdx := range concurrent {
		errGrp.Go(func() error {
			return worker(dCtx, goIdx)
		})
	}

	return errGrp.Wait()
}

func concurrency(details *model.StepInfo) int {
	if details == nil || details.Concurrent < 1 {
		return 1
	}

	return details.Concurrent
}

func runOneToOne[I, O any](
	ctx context.Context, opts []model.PipelineOption,
	input *model.Step[I], output *model.Step[O],
	oneToOneFn func(context.Context, I) (O, error),
) error {
	return runWorkers(ctx, concurrency(output.Details), func(ctx context.Context, goIdx int) error {
		return sequentialOneToOne(ctx, goIdx, opts, input, output, oneToOneFn)
	})
}

func prepareStep[I, O any](pipe *Pipeline, name string, input *model.Step[I], opts ...StepOption[O]) (*model.Step[O], error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}

	if input == nil {
		return nil, ErrInputMustBeSet
	}

	step := &model.Step[O]{
		Details: &model.StepInfo{
			Type:       model.NormalStepType,
			Name:       name,
			Concurrent: 1,
		},
		Output: make(chan O),
	}

	for _, opt := range opts {
		opt(step)
	}

	parent := input.Details
	if parent == nil {
		parent = model.StartStep.Details
	}

	for _, opt := range pipe.opts {
		err := opt.PrepareStep(parent, step.Details)
		if err != nil {
			return nil, errors.Wrap(err, "unable to run prepare step hook")
		}
	}

	return step, nil
}

func addStep[I, O any](
	pipe *Pipeline, input *model.Step[I], step *model.Step[O],
	stepToStepFn func(ctx context.Context, input *model.Step[I], output *model.Step[O]) error,
) *model.Step[O] {
	errC := make(chan error, 1)
	pipe.errcList.add(newErrorChan(step.Details.Name, errC))

	go func() {
		defer func() {
			close(step.Output)
			close(errC)
		}()

		err := stepToStepFn(pipe.ctx, input, step)
		if err != nil {
			reportError(errC, err)
		}
	}()

	return step
}

// AddStepOneToOne adds a step that maps every input value to exactly one output value.
func AddStepOneToOne[I, O any](
	pipe *Pipeline, name string, input *model.Step[I],
	oneToOneFn func(context.Context, I) (O, error), opts ...StepOption[O],
) (*model.Step[O], error) {
	step, err := prepareStep(pipe, name, input, opts...)
	if err != nil {
		return nil, err
	}

	return addStep(pipe, input, step, func(ctx context.Context, in *model.Step[I], out *model.Step[O]) error {
		return runOneToOne(ctx, pipe.opts, in, out, oneToOneFn)
	}), nil
}
