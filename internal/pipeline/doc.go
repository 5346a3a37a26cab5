// Package pipeline runs values through a graph of steps connected by channels.
//
// A pipeline starts with one or more root steps that produce values, continues with
// steps mapping every value to one output, may fan values out with splitters and
// back in with mergers, and ends with sinks.
//
// Every step runs in its own goroutines. A step can run several workers with
// StepConcurrency; workers are managed by an errgroup so the first failing worker
// stops its siblings. The first error of any step cancels the pipeline context and
// is returned by Run, prefixed with the name of the step that failed.
//
// Options implementing model.PipelineOption observe every step, which is how
// timings are measured, graphs are drawn and progress is logged.
package pipeline
