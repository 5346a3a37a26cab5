package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/tractfilter/internal/pipeline/model"
)

// Splitter copies every value of its input to several branches.
type Splitter[I any] struct {
	mu            sync.Mutex
	currIdx       int
	mainStep      *model.Step[I]
	splittedSteps []*model.Step[I]
	bufferSize    int
	Total         int
}

// Get returns the next unclaimed branch. It returns false once every branch was handed out.
func (s *Splitter[I]) Get() (*model.Step[I], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currIdx >= len(s.splittedSteps) {
		return nil, false
	}

	step := s.splittedSteps[s.currIdx]
	s.currIdx++

	return step, true
}

func newSplitter[I any](name string, total int, opts ...SplitterOption[I]) *Splitter[I] {
	splitter := &Splitter[I]{
		Total: total,
		mainStep: &model.Step[I]{
			Details: &model.StepInfo{
				Type:       model.SplitterStepType,
				Name:       name,
				Concurrent: 1,
			},
		},
	}

	for _, opt := range opts {
		opt(splitter)
	}

	if splitter.bufferSize < 1 {
		splitter.bufferSize = 1
	}

	splitter.mainStep.Details.BufferSize = splitter.bufferSize
	splitter.splittedSteps = make([]*model.Step[I], total)

	for i := range total {
		splitter.splittedSteps[i] = &model.Step[I]{
			Details: splitter.mainStep.Details,
			Output:  make(chan I),
		}
	}

	return splitter
}

func prepareSplitter[I any](pipe *Pipeline, input *model.Step[I], splitter *Splitter[I]) error {
	parent := input.Details
	if parent == nil {
		parent = model.StartStep.Details
	}

	for _, opt := range pipe.opts {
		err := opt.PrepareSplitter(parent, splitter.mainStep.Details)
		if err != nil {
			return errors.Wrap(err, "unable to run prepare splitter hook")
		}
	}

	return nil
}

// forwardBranch moves values from the branch buffer to the branch output.
func forwardBranch[I any](ctx context.Context, buf <-chan I, out chan<- I) {
	defer close(out)

	for elem := range buf {
		if send(ctx, out, elem) != nil {
			return
		}
	}
}

func runSplitter[I any](pipe *Pipeline, input *model.Step[I], splitter *Splitter[I], errC chan<- error, bufs []chan I) {
	parent := input.Details
	if parent == nil {
		parent = model.StartStep.Details
	}

	for {
		startIter := time.Now()

		select {
		case <-pipe.ctx.Done():
			reportError(errC, pipe.ctx.Err())

			return
		case entry, ok := <-input.Output:
			if !ok {
				return
			}

			startFn := time.Now()

			for _, buf := range bufs {
				err := send(pipe.ctx, buf, entry)
				if err != nil {
					reportError(errC, err)

					return
				}
			}

			endFn := time.Since(startFn)

			for _, opt := range pipe.opts {
				err := opt.OnSplitterOutput(parent, splitter.mainStep.Details, time.Since(startIter)-endFn, endFn)
				if err != nil {
					reportError(errC, errors.Wrap(err, "unable to run splitter output hook"))

					return
				}
			}
		}
	}
}

// AddSplitter copies every value of input to total branches.
func AddSplitter[I any](pipe *Pipeline, name string, input *model.Step[I], total int, opts ...SplitterOption[I]) (*Splitter[I], error) {
	if pipe == nil {
		return nil, ErrPipelineMustBeSet
	}

	if input == nil {
		return nil, ErrInputMustBeSet
	}

	if total <= 0 {
		return nil, ErrSplitterTotal
	}

	splitter := newSplitter(name, total, opts...)

	err := prepareSplitter(pipe, input, splitter)
	if err != nil {
		return nil, err
	}

	errC := make(chan error, 1)
	pipe.errcList.add(newErrorChan(name, errC))

	bufs := make([]chan I, total)
	for i := range bufs {
		bufs[i] = make(chan I, splitter.bufferSize)
	}

	wgrp := &sync.WaitGroup{}
	wgrp.Add(total)

	for i, buf := range bufs {
		go func() {
			defer wgrp.Done()

			forwardBranch(pipe.ctx, buf, splitter.splittedSteps[i].Output)
		}()
	}

	go func() {
		defer func() {
			for _, buf := range bufs {
				close(buf)
			}

			wgrp.Wait()
			close(errC)
		}()

		runSplitter(pipe, input, splitter, errC, bufs)
	}()

	return splitter, nil
}
