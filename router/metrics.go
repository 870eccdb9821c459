package router

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all the Prometheus metrics for the router.
type Metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	swapHops          prometheus.Histogram
}

// NewMetrics creates and registers the metrics for the router.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "router_operations_total",
			Help: "Total number of router operations, labeled by operation and result.",
		}, []string{"op", "result"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "router_operation_duration_seconds",
			Help:    "Time taken to execute a router operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		swapHops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "router_swap_hops",
			Help:    "Number of hops per executed swap.",
			Buckets: []float64{1, 2, 3, 4, 5},
		}),
	}
	reg.MustRegister(m.operationsTotal, m.operationDuration, m.swapHops)
	return m
}

// observe records the outcome of one operation.
func (m *Metrics) observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.operationsTotal.WithLabelValues(op, result).Inc()
}
