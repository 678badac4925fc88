package converge

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the convergence loop.
type Metrics struct {
	IterationsTotal *prometheus.CounterVec
	RunsTotal       *prometheus.CounterVec
	RunIterations   prometheus.Histogram
}

// NewMetrics creates and registers convergence metrics once per process.
// All metrics carry the "convergd_converge_" prefix.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			IterationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "convergd_converge_iterations_total",
					Help: "Total loop iterations executed, by verdict",
				},
				[]string{"verdict"},
			),
			RunsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "convergd_converge_runs_total",
					Help: "Total convergence runs, by terminal state and escalation reason",
				},
				[]string{"state", "reason"},
			),
			RunIterations: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "convergd_converge_run_iterations",
					Help:    "Iterations used per convergence run",
					Buckets: prometheus.LinearBuckets(1, 1, 10),
				},
			),
		}
	})
	return globalMetrics
}

// RecordIteration records one evaluated iteration.
func (m *Metrics) RecordIteration(verdict string) {
	m.IterationsTotal.WithLabelValues(verdict).Inc()
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(state, reason string, iterations int) {
	m.RunsTotal.WithLabelValues(state, reason).Inc()
	m.RunIterations.Observe(float64(iterations))
}
