package logging

import (
	"log/slog"
	"time"

	"github.com/askiada/tractfilter/internal/pipeline/model"
)

type pipelineLogger struct {
	model.NopOption
	logger *slog.Logger
}

func (pl *pipelineLogger) prepared(parent string, step *model.StepInfo) error {
	pl.logger.Debug("step added",
		slog.String("step", step.Name),
		slog.String("type", string(step.Type)),
		slog.String("parent", parent),
		slog.Int("concurrent", step.Concurrent),
	)

	return nil
}

func (pl *pipelineLogger) PrepareStep(parentStep, step *model.StepInfo) error {
	return pl.prepared(parentStep.Name, step)
}

func (pl *pipelineLogger) PrepareSplitter(parentStep, splitterStep *model.StepInfo) error {
	return pl.prepared(parentStep.Name, splitterStep)
}

func (pl *pipelineLogger) PrepareMerger(parentSteps []*model.StepInfo, step *model.StepInfo) error {
	names := make([]string, 0, len(parentSteps))
	for _, parent := range parentSteps {
		names = append(names, parent.Name)
	}

	pl.logger.Debug("step added",
		slog.String("step", step.Name),
		slog.String("type", string(step.Type)),
		slog.Any("parents", names),
	)

	return nil
}

func (pl *pipelineLogger) PrepareSink(parentStep, step *model.StepInfo) error {
	return pl.prepared(parentStep.Name, step)
}

func (pl *pipelineLogger) AfterSink(step *model.StepInfo, totalDuration time.Duration) error {
	pl.logger.Info("sink drained",
		slog.String("step", step.Name),
		slog.Duration("elapsed", totalDuration),
	)

	return nil
}

func (pl *pipelineLogger) Finish() error {
	pl.logger.Debug("pipeline finished")

	return nil
}

// PipelineLogger logs the pipeline graph as it is built and when sinks finish.
func PipelineLogger(logger *slog.Logger) model.PipelineOption {
	return &pipelineLogger{logger: logger}
}
