// Prometheus instrumentation for the control plane
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the control-plane collectors.
type Metrics struct {
	auditEvents      *prometheus.CounterVec
	pipelineDuration prometheus.Histogram
	emergencyHalts   prometheus.Counter
	latencyBreaches  prometheus.Counter
	livePrinters     prometheus.Gauge
}

// New registers the control-plane collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		auditEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bioprint_audit_events_total",
			Help: "Audit events recorded, tagged by outcome.",
		}, []string{"outcome"}),
		pipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bioprint_pipeline_duration_seconds",
			Help:    "End-to-end duration of one telemetry pipeline pass.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		emergencyHalts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bioprint_emergency_halts_total",
			Help: "Commands that ended in EMERGENCY_HALT.",
		}),
		latencyBreaches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bioprint_latency_breaches_total",
			Help: "Pipeline passes that exceeded the latency budget.",
		}),
		livePrinters: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bioprint_live_printers",
			Help: "Printers with a live telemetry snapshot.",
		}),
	}
	reg.MustRegister(m.auditEvents, m.pipelineDuration, m.emergencyHalts, m.latencyBreaches, m.livePrinters)
	return m
}

// IncAuditEvent counts one recorded audit event by outcome.
func (m *Metrics) IncAuditEvent(outcome string) {
	m.auditEvents.WithLabelValues(outcome).Inc()
}

// ObservePipeline records the duration of one pipeline pass.
func (m *Metrics) ObservePipeline(seconds float64) {
	m.pipelineDuration.Observe(seconds)
}

// IncEmergencyHalt counts one halting decision.
func (m *Metrics) IncEmergencyHalt() {
	m.emergencyHalts.Inc()
}

// IncLatencyBreach counts one budget breach.
func (m *Metrics) IncLatencyBreach() {
	m.latencyBreaches.Inc()
}

// SetLivePrinters publishes the snapshot cache size.
func (m *Metrics) SetLivePrinters(n int) {
	m.livePrinters.Set(float64(n))
}
