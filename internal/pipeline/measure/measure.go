package measure

import (
	"sort"
	"sync"
	"time"
)

// DefaultMeasure keeps metrics in memory.
type DefaultMeasure struct {
	mu    sync.RWMutex
	Steps map[string]Metric
}

// NewDefaultMeasure creates an empty DefaultMeasure.
func NewDefaultMeasure() *DefaultMeasure {
	return &DefaultMeasure{
		Steps: make(map[string]Metric),
	}
}

// AddMetric registers a step. Registering a step twice keeps the first metric.
func (m *DefaultMeasure) AddMetric(name string, concurrent int) Metric {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mt, ok := m.Steps[name]; ok {
		return mt
	}

	if concurrent < 1 {
		concurrent = 1
	}

	mt := &DefaultMetric{
		mu:            &sync.Mutex{},
		allTransports: make(map[string]*TransportInfo),
		concurrent:    concurrent,
	}
	m.Steps[name] = mt

	return mt
}

// GetMetric returns the metric of a step, or nil.
func (m *DefaultMeasure) GetMetric(name string) Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.Steps[name]
}

// AllMetrics returns a copy of the step metrics keyed by step name.
func (m *DefaultMeasure) AllMetrics() map[string]Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make(map[string]Metric, len(m.Steps))
	for name, mt := range m.Steps {
		res[name] = mt
	}

	return res
}

// StepTiming is a flat view of a step metric.
type StepTiming struct {
	Step    string
	Items   int64
	Average time.Duration
	Total   time.Duration
}

// Timings lists the steps that processed at least one value, sorted by name.
func Timings(m Measure) []StepTiming {
	res := []StepTiming{}

	for name, mt := range m.AllMetrics() {
		if mt.Count() == 0 && mt.GetTotalDuration() == 0 {
			continue
		}

		res = append(res, StepTiming{
			Step:    name,
			Items:   mt.Count(),
			Average: mt.AVGDuration(),
			Total:   mt.GetTotalDuration(),
		})
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].Step < res[j].Step
	})

	return res
}

var _ Measure = (*DefaultMeasure)(nil)
