package metrics

import (
	"time"

	"github.com/askiada/tractfilter/internal/pipeline/model"
)

type pipelineStages struct {
	model.NopOption
	m *Metrics
}

func (ps *pipelineStages) observe(step *model.StepInfo, computation time.Duration) {
	ps.m.StageItems.WithLabelValues(step.Name).Inc()
	ps.m.StageDuration.WithLabelValues(step.Name).Observe(computation.Seconds())
}

func (ps *pipelineStages) OnStepOutput(_, step *model.StepInfo, _, computationDuration time.Duration) error {
	ps.observe(step, computationDuration)

	return nil
}

func (ps *pipelineStages) OnSinkOutput(_, step *model.StepInfo, _, computationDuration time.Duration) error {
	ps.observe(step, computationDuration)

	return nil
}

// PipelineStages counts the values of every step and sink and observes their
// computation time.
func PipelineStages(m *Metrics) model.PipelineOption {
	return &pipelineStages{m: m}
}
