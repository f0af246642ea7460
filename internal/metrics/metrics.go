// Package metrics records run and step counters for scenario runs.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/sebo/internal/harness"
)

const namespace = "sebo"

// Step outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Default histogram buckets for step duration (in seconds)
var defaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Recorder owns a private registry with the run and step collectors.
// It implements harness.Observer.
type Recorder struct {
	registry *prometheus.Registry

	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	runsTotal    *prometheus.CounterVec
}

var _ harness.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder. Nil or empty buckets use the defaults.
func NewRecorder(buckets []float64) *Recorder {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}

	r := &Recorder{
		registry: prometheus.NewRegistry(),

		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_total",
				Help:      "Total number of executed steps",
			},
			[]string{"style", "outcome"},
		),

		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of executed steps in seconds",
				Buckets:   buckets,
			},
			[]string{"style"},
		),

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of finished runs by final state",
			},
			[]string{"state"},
		),
	}

	r.registry.MustRegister(r.stepsTotal, r.stepDuration, r.runsTotal)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStep records one executed step.
func (r *Recorder) ObserveStep(step harness.Step) {
	style := string(step.Operation.Style)
	outcome := OutcomeSuccess
	if !step.Outcome.Succeeded {
		outcome = OutcomeFailure
	}
	r.stepsTotal.WithLabelValues(style, outcome).Inc()
	r.stepDuration.WithLabelValues(style).Observe(step.Duration.Seconds())
}

// ObserveRun records a finished run.
func (r *Recorder) ObserveRun(result *harness.Result) {
	r.runsTotal.WithLabelValues(string(result.State)).Inc()
}

// WriteText writes every collected metric family in the Prometheus text
// exposition format.
func (r *Recorder) WriteText(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
