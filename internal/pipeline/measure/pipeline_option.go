package measure

import (
	"time"

	"github.com/askiada/tractfilter/internal/pipeline/model"
)

type pipelineMeasure struct {
	Measure
}

func (pm *pipelineMeasure) New() error {
	pm.AddMetric(model.StartStep.Details.Name, 1)
	pm.AddMetric(model.EndStep.Details.Name, 1)

	return nil
}

func (pm *pipelineMeasure) PrepareStep(_, step *model.StepInfo) error {
	pm.AddMetric(step.Name, step.Concurrent)

	return nil
}

func (pm *pipelineMeasure) PrepareSplitter(_, splitterStep *model.StepInfo) error {
	pm.AddMetric(splitterStep.Name, splitterStep.Concurrent)

	return nil
}

func (pm *pipelineMeasure) PrepareMerger(_ []*model.StepInfo, step *model.StepInfo) error {
	pm.AddMetric(step.Name, step.Concurrent)

	return nil
}

func (pm *pipelineMeasure) PrepareSink(_, step *model.StepInfo) error {
	pm.AddMetric(step.Name, step.Concurrent)

	return nil
}

func (pm *pipelineMeasure) Finish() error {
	return nil
}

func (pm *pipelineMeasure) record(stepName, parentName string, iteration, computation time.Duration) {
	mt := pm.GetMetric(stepName)
	if mt == nil {
		return
	}

	mt.AddDuration(computation)
	mt.AddTransportDuration(parentName, iteration)
}

func (pm *pipelineMeasure) OnStepOutput(parentStep, step *model.StepInfo, iterationDuration, computationDuration time.Duration) error {
	pm.record(step.Name, parentStep.Name, iterationDuration, computationDuration)

	return nil
}

func (pm *pipelineMeasure) OnSplitterOutput(parentStep, splitterStep *model.StepInfo, iterationDuration, computationDuration time.Duration) error {
	pm.record(splitterStep.Name, parentStep.Name, iterationDuration, computationDuration)

	return nil
}

func (pm *pipelineMeasure) OnMergerOutput(parentStep, outputStep *model.StepInfo, iterationDuration time.Duration) error {
	if mt := pm.GetMetric(outputStep.Name); mt != nil {
		mt.AddTransportDuration(parentStep.Name, iterationDuration)
	}

	return nil
}

func (pm *pipelineMeasure) OnSinkOutput(parentStep, step *model.StepInfo, iterationDuration, computationDuration time.Duration) error {
	pm.record(step.Name, parentStep.Name, iterationDuration, computationDuration)

	return nil
}

func (pm *pipelineMeasure) AfterSink(step *model.StepInfo, totalDuration time.Duration) error {
	if mt := pm.GetMetric(step.Name); mt != nil {
		mt.SetTotalDuration(totalDuration)
	}

	return nil
}

// PipelineMeasure records step timings into m.
func PipelineMeasure(m Measure) model.PipelineOption {
	return &pipelineMeasure{m}
}
