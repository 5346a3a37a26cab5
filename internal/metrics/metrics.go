// Package metrics exposes Prometheus collectors for external tool invocations,
// pipeline stages and fiber counts. A run writes them once to a textfile that
// node_exporter can pick up.
package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tractfilter"

// Metrics groups the collectors of a run on a dedicated registry.
type Metrics struct {
	Registry        *prometheus.Registry
	ToolInvocations *prometheus.CounterVec
	ToolDuration    *prometheus.HistogramVec
	StageItems      *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	Fibers          *prometheus.GaugeVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		ToolInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_invocations_total",
			Help:      "Number of external tool invocations by tool and result.",
		}, []string{"tool", "result"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Duration of external tool invocations.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"tool"}),
		StageItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_items_total",
			Help:      "Number of values processed by each pipeline stage.",
		}, []string{"stage"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent computing one value in a pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		Fibers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fibers",
			Help:      "Fiber count of the last processed tractogram per tract and variant.",
		}, []string{"tract", "variant"}),
	}

	m.Registry.MustRegister(m.ToolInvocations, m.ToolDuration, m.StageItems, m.StageDuration, m.Fibers)

	return m
}

// ObserveTool records one invocation of an external tool.
func (m *Metrics) ObserveTool(tool, result string, elapsed time.Duration) {
	m.ToolInvocations.WithLabelValues(tool, result).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// SetFibers records the fiber count of a tract variant.
func (m *Metrics) SetFibers(tract, variant string, count int) {
	m.Fibers.WithLabelValues(tract, variant).Set(float64(count))
}

// WriteTextfile writes every collector to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	err := prometheus.WriteToTextfile(path, m.Registry)
	if err != nil {
		return errors.Wrapf(err, "unable to write metrics to %s", path)
	}

	return nil
}
