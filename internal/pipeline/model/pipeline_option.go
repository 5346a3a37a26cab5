package model

import "time"

// PipelineOption is implemented by everything that wants to observe a pipeline:
// measures, drawers, loggers and metric collectors.
type PipelineOption interface {
	// New runs when the pipeline is created.
	New() error

	pipelineStepOption
	pipelineSplitterOption
	pipelineMergerOption
	pipelineSinkOption

	// Finish runs once every step has returned without error.
	Finish() error
}

type pipelineStepOption interface {
	// PrepareStep runs when a step is added to the pipeline.
	PrepareStep(parentStep, step *StepInfo) error
	// OnStepOutput runs every time a step pushes a value downstream.
	OnStepOutput(parentStep, step *StepInfo, iterationDuration, computationDuration time.Duration) error
}

type pipelineSplitterOption interface {
	// PrepareSplitter runs when a splitter is added to the pipeline.
	PrepareSplitter(parentStep, splitterStep *StepInfo) error
	// OnSplitterOutput runs every time a value has been copied to all branches.
	OnSplitterOutput(parentStep, splitterStep *StepInfo, iterationDuration, computationDuration time.Duration) error
}

type pipelineMergerOption interface {
	// PrepareMerger runs when a merger is added to the pipeline.
	PrepareMerger(parentSteps []*StepInfo, step *StepInfo) error
	// OnMergerOutput runs every time a value is forwarded by the merger.
	OnMergerOutput(parentStep, outputStep *StepInfo, iterationDuration time.Duration) error
}

type pipelineSinkOption interface {
	// PrepareSink runs when a sink is added to the pipeline.
	PrepareSink(parentStep, step *StepInfo) error
	// OnSinkOutput runs every time the sink consumed a value.
	OnSinkOutput(parentStep, step *StepInfo, iterationDuration, computationDuration time.Duration) error
	// AfterSink runs when the sink input is drained.
	AfterSink(step *StepInfo, totalDuration time.Duration) error
}

// NopOption implements PipelineOption with no-ops. Options embed it and
// override only the hooks they care about.
type NopOption struct{}

func (NopOption) New() error    { return nil }
func (NopOption) Finish() error { return nil }

func (NopOption) PrepareStep(_, _ *StepInfo) error { return nil }

func (NopOption) OnStepOutput(_, _ *StepInfo, _, _ time.Duration) error { return nil }

func (NopOption) PrepareSplitter(_, _ *StepInfo) error { return nil }

func (NopOption) OnSplitterOutput(_, _ *StepInfo, _, _ time.Duration) error { return nil }

func (NopOption) PrepareMerger(_ []*StepInfo, _ *StepInfo) error { return nil }

func (NopOption) OnMergerOutput(_, _ *StepInfo, _ time.Duration) error { return nil }

func (NopOption) PrepareSink(_, _ *StepInfo) error { return nil }

func (NopOption) OnSinkOutput(_, _ *StepInfo, _, _ time.Duration) error { return nil }

func (NopOption) AfterSink(_ *StepInfo, _ time.Duration) error { return nil }

var _ PipelineOption = NopOption{}
