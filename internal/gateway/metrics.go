package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gateway's prometheus collectors. Constructed once at
// process start and registered on an explicit registry, never on package
// globals.
type Metrics struct {
	CallsTotal      *prometheus.CounterVec
	CallLatency     *prometheus.HistogramVec
	ShadowOutcomes  *prometheus.CounterVec
	CircuitRejected *prometheus.CounterVec
}

// NewMetrics builds and registers the gateway collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "router_connector_calls_total",
			Help: "Connector calls by connector, flow, execution path and outcome.",
		}, []string{"connector", "flow", "path", "outcome"}),
		CallLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "router_connector_call_duration_seconds",
			Help:    "Connector call latency by connector and flow.",
			Buckets: prometheus.DefBuckets,
		}, []string{"connector", "flow"}),
		ShadowOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "router_ucs_shadow_outcomes_total",
			Help: "Shadow UCS dispatch outcomes compared against Direct.",
		}, []string{"connector", "result"}),
		CircuitRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "router_circuit_rejections_total",
			Help: "Direct calls short-circuited by an open connector circuit.",
		}, []string{"connector"}),
	}
	reg.MustRegister(m.CallsTotal, m.CallLatency, m.ShadowOutcomes, m.CircuitRejected)
	return m
}
