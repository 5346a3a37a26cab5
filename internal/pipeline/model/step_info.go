package model

// StepType tells what kind of node a step is in the pipeline graph.
type StepType string

const (
	RootStepType     StepType = "root"
	NormalStepType   StepType = "step"
	SplitterStepType StepType = "splitter"
	MergerStepType   StepType = "merger"
	SinkStepType     StepType = "sink"
)

// StepInfo describes a step independently of the type of values it carries.
type StepInfo struct {
	Type       StepType
	Name       string
	Concurrent int
	BufferSize int
}

var (
	// StartStep is the virtual parent of every root step.
	StartStep = &Step[any]{Details: &StepInfo{Name: "start"}}
	// EndStep is the virtual child of every sink.
	EndStep = &Step[any]{Details: &StepInfo{Name: "end"}}
)

// Step is the typed output of a step. Downstream steps read from Output.
type Step[O any] struct {
	Output  chan O
	Details *StepInfo
}
