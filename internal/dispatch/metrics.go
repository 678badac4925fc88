package dispatch

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the dispatcher.
type Metrics struct {
	TasksExecutedTotal *prometheus.CounterVec
	TaskTimeoutsTotal  *prometheus.CounterVec
	TaskDuration       *prometheus.HistogramVec
	AbortsTotal        prometheus.Counter
}

// NewMetrics creates and registers dispatcher metrics.
//
// Registration happens once per process (sync.Once) to avoid duplicate
// collector registration panics. All metrics carry the "convergd_dispatch_"
// prefix.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			TasksExecutedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "convergd_dispatch_tasks_executed_total",
					Help: "Total number of tasks executed, by terminal status",
				},
				[]string{"status"},
			),
			TaskTimeoutsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "convergd_dispatch_task_timeouts_total",
					Help: "Total number of task timeouts",
				},
				[]string{"task"},
			),
			TaskDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "convergd_dispatch_task_duration_seconds",
					Help:    "Duration of task execution in seconds",
					Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
				},
				[]string{"status"},
			),
			AbortsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "convergd_dispatch_aborts_total",
					Help: "Total number of schedules aborted by a fatal task error",
				},
			),
		}
	})
	return globalMetrics
}

// RecordTask records one finished task.
func (m *Metrics) RecordTask(status string, seconds float64) {
	m.TasksExecutedTotal.WithLabelValues(status).Inc()
	m.TaskDuration.WithLabelValues(status).Observe(seconds)
}

// RecordTimeout records a per-task timeout.
func (m *Metrics) RecordTimeout(task string) {
	m.TaskTimeoutsTotal.WithLabelValues(task).Inc()
}

// RecordAbort records a fatal-error schedule abort.
func (m *Metrics) RecordAbort() {
	m.AbortsTotal.Inc()
}
