package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/tractfilter/internal/pipeline/model"
)

// Pipeline is a graph of steps sharing one context.
type Pipeline struct {
	ctx       context.Context //nolint:containedctx // steps are started before Run is called
	cancel    context.CancelFunc
	errcList  *errorChans
	opts      []model.PipelineOption
	startTime time.Time
	goFn      []func(ctx context.Context)
}

// New creates a pipeline bound to ctx. Cancelling ctx stops every step.
func New(ctx context.Context, opts ...model.PipelineOption) (*Pipeline, error) {
	dCtx, cancel := context.WithCancel(ctx)
	pipe := &Pipeline{
		ctx:       dCtx,
		cancel:    cancel,
		errcList:  &errorChans{},
		startTime: time.Now(),
		opts:      opts,
	}

	for _, opt := range opts {
		err := opt.New()
		if err != nil {
			cancel()

			return nil, errors.Wrap(err, "unable to apply pipeline option")
		}
	}

	return pipe, nil
}

// waitForPipeline drains every error channel. It returns early on the first error.
func waitForPipeline(errs ...*errorChan) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}

	return nil
}

// Run waits for every step to finish. Steps already run in the background once
// they are added; Run starts the deferred ones (mergers) and collects errors.
func (p *Pipeline) Run() error {
	defer p.cancel()

	for _, fn := range p.goFn {
		go fn(p.ctx)
	}

	err := waitForPipeline(p.errcList.list...)
	if err != nil {
		p.cancel()

		return err
	}

	return p.finishRun()
}

func (p *Pipeline) finishRun() error {
	for _, opt := range p.opts {
		err := opt.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish pipeline option")
		}
	}

	return nil
}
