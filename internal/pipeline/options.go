package pipeline

import "github.com/askiada/tractfilter/internal/pipeline/model"

// StepOption configures a step.
type StepOption[O any] func(s *model.Step[O])

// StepConcurrency sets the number of workers of a step. Values below 1 mean 1.
func StepConcurrency[O any](concurrent int) StepOption[O] {
	return func(s *model.Step[O]) {
		s.Details.Concurrent = concurrent
	}
}

// SplitterOption configures a splitter.
type SplitterOption[I any] func(s *Splitter[I])

// SplitterBufferSize sets how many values each branch can hold before the
// splitter blocks on it. Values below 1 mean 1.
func SplitterBufferSize[I any](bufferSize int) SplitterOption[I] {
	return func(s *Splitter[I]) {
		s.bufferSize = bufferSize
	}
}
