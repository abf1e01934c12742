package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/moolen/riskgraph/internal/riskerr"
)

// Metrics holds the Prometheus collectors of engine operations.
type Metrics struct {
	OperationDuration *prometheus.HistogramVec
	OperationErrors   *prometheus.CounterVec
	PartialResults    *prometheus.CounterVec
}

// NewMetrics creates the engine collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "riskgraph_engine_operation_duration_seconds",
			Help:    "Duration of engine operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		OperationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "riskgraph_engine_operation_errors_total",
			Help: "Failed engine operations by error kind",
		}, []string{"operation", "kind"}),
		PartialResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "riskgraph_engine_partial_results_total",
			Help: "Operations that returned a partial result on timeout",
		}, []string{"operation"}),
	}
	if reg != nil {
		reg.MustRegister(m.OperationDuration, m.OperationErrors, m.PartialResults)
	}
	return m
}

func (m *Metrics) observe(operation string, took time.Duration, err error, partial bool) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(took.Seconds())
	if err != nil {
		m.OperationErrors.WithLabelValues(operation, string(riskerr.KindOf(err))).Inc()
	}
	if partial {
		m.PartialResults.WithLabelValues(operation).Inc()
	}
}
