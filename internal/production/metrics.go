package production

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/comalice/tapemachine"
)

// PromMetrics implements core.Metrics with Prometheus collectors.
// No per-run labels: run IDs would explode cardinality.
type PromMetrics struct {
	runs     *prometheus.CounterVec
	errors   *prometheus.CounterVec
	steps    prometheus.Histogram
	duration prometheus.Histogram
}

// NewPromMetrics registers the collectors on reg.
func NewPromMetrics(reg prometheus.Registerer) *PromMetrics {
	f := promauto.With(reg)
	return &PromMetrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tapemachine_runs_total",
			Help: "Total number of halted runs, by halt status.",
		}, []string{"status"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tapemachine_run_errors_total",
			Help: "Total number of failed runs, by error kind.",
		}, []string{"kind"}),
		steps: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tapemachine_run_steps",
			Help:    "Steps executed per halted run.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tapemachine_run_duration_seconds",
			Help:    "Wall time per halted run.",
			Buckets: prometheus.ExponentialBuckets(0.000001, 10, 8),
		}),
	}
}

func (m *PromMetrics) ObserveRun(status tapemachine.Status, steps int, elapsed time.Duration) {
	m.runs.WithLabelValues(status.String()).Inc()
	m.steps.Observe(float64(steps))
	m.duration.Observe(elapsed.Seconds())
}

func (m *PromMetrics) ObserveError(kind string) {
	m.errors.WithLabelValues(kind).Inc()
}
