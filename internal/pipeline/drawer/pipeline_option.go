package drawer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/tractfilter/internal/pipeline/measure"
	"github.com/askiada/tractfilter/internal/pipeline/model"
)

type pipelineDrawer struct {
	model.NopOption
	Drawer
	m         measure.Measure
	startTime time.Time
}

func (pd *pipelineDrawer) New() error {
	err := pd.AddStep(model.StartStep.Details.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add start step to drawer")
	}

	err = pd.AddStep(model.EndStep.Details.Name)
	if err != nil {
		return errors.Wrap(err, "unable to add end step to drawer")
	}

	return nil
}

func (pd *pipelineDrawer) link(parentName, stepName string) error {
	err := pd.AddStep(stepName)
	if err != nil {
		return err
	}

	return pd.AddLink(parentName, stepName)
}

func (pd *pipelineDrawer) PrepareStep(parentStep, step *model.StepInfo) error {
	return pd.link(parentStep.Name, step.Name)
}

func (pd *pipelineDrawer) PrepareSplitter(parentStep, splitterStep *model.StepInfo) error {
	return pd.link(parentStep.Name, splitterStep.Name)
}

func (pd *pipelineDrawer) PrepareMerger(parentSteps []*model.StepInfo, step *model.StepInfo) error {
	err := pd.AddStep(step.Name)
	if err != nil {
		return err
	}

	for _, parentStep := range parentSteps {
		err := pd.AddLink(parentStep.Name, step.Name)
		if err != nil {
			return err
		}
	}

	return nil
}

func (pd *pipelineDrawer) PrepareSink(parentStep, step *model.StepInfo) error {
	err := pd.link(parentStep.Name, step.Name)
	if err != nil {
		return err
	}

	return pd.AddLink(step.Name, model.EndStep.Details.Name)
}

func (pd *pipelineDrawer) Finish() error {
	err := pd.SetTotalTime(model.EndStep.Details.Name, pd.startTime)
	if err != nil {
		return errors.Wrap(err, "unable to set total time")
	}

	if pd.m != nil {
		err = pd.AddMeasure(pd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err = pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

// PipelineDrawer draws the pipeline when it finishes. m may be nil; when set,
// steps and edges are labelled with its timings. PipelineMeasure(m) must come
// before the drawer in the pipeline options so the metrics exist.
func PipelineDrawer(drawer Drawer, m measure.Measure) model.PipelineOption {
	return &pipelineDrawer{Drawer: drawer, m: m, startTime: time.Now()}
}
