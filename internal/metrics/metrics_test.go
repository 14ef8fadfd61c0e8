package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncAuditEvent("success")
	m.IncAuditEvent("success")
	m.IncAuditEvent("warning")
	if got := testutil.ToFloat64(m.auditEvents.WithLabelValues("success")); got != 2 {
		t.Errorf("audit success counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.auditEvents.WithLabelValues("warning")); got != 1 {
		t.Errorf("audit warning counter = %v, want 1", got)
	}

	m.IncEmergencyHalt()
	if got := testutil.ToFloat64(m.emergencyHalts); got != 1 {
		t.Errorf("emergency halt counter = %v, want 1", got)
	}

	m.IncLatencyBreach()
	m.IncLatencyBreach()
	if got := testutil.ToFloat64(m.latencyBreaches); got != 2 {
		t.Errorf("latency breach counter = %v, want 2", got)
	}

	m.SetLivePrinters(5)
	if got := testutil.ToFloat64(m.livePrinters); got != 5 {
		t.Errorf("live printers gauge = %v, want 5", got)
	}
}

func TestMetricsHistogram(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObservePipeline(0.010)
	m.ObservePipeline(0.120)
	if got := testutil.CollectAndCount(m.pipelineDuration); got != 1 {
		t.Errorf("expected one histogram metric family, got %d", got)
	}
}

func TestMetricsRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	// Counters without observations are still present after registration.
	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}
	for _, name := range []string{
		"bioprint_pipeline_duration_seconds",
		"bioprint_emergency_halts_total",
		"bioprint_latency_breaches_total",
		"bioprint_live_printers",
	} {
		if !found[name] {
			t.Errorf("metric %s not registered", name)
		}
	}
}
