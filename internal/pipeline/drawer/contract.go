package drawer

import (
	"time"

	"github.com/askiada/tractfilter/internal/pipeline/measure"
)

// Drawer renders the graph of a pipeline.
type Drawer interface {
	// AddStep adds a step to the graph.
	AddStep(stepName string) error
	// AddLink adds an edge from the parent step to the child step.
	AddLink(parentStepName, childStepName string) error
	// Draw writes the graph.
	Draw() error
	// SetTotalTime labels a step with the time elapsed since startTime.
	SetTotalTime(stepName string, startTime time.Time) error
	// AddMeasure labels steps and edges with the timings of a measure.
	AddMeasure(measure measure.Measure) error
}
