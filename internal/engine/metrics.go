package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "cartrecovery"
	metricsSubsystem = "engine"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	passes        prometheus.Counter
	cartsScanned  prometheus.Counter
	executions    *prometheus.CounterVec
	actionResults *prometheus.CounterVec
	passDuration  prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		passes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "passes_total",
			Help:      "Total number of completed engine sweeps",
		}),
		cartsScanned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "carts_scanned_total",
			Help:      "Total number of candidate carts examined",
		}),
		executions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "executions_total",
			Help:      "Total number of rule executions by log status",
		}, []string{"status"}),
		actionResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "action_results_total",
			Help:      "Total number of executed actions by type and status",
		}, []string{"type", "status"}),
		passDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "pass_duration_seconds",
			Help:      "Duration of engine sweeps in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
}
