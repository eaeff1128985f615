package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestAnalysisMetricsObserve(t *testing.T) {
	m := NewAnalysisMetrics(prometheus.NewRegistry())
	m.ObserveRun("ok", 0.25, 1200)
	m.ObserveRun("insufficient_data", 0.01, 12)
	m.ObserveInsufficientData()
	m.ObserveHTTP("/v1/conversations", "POST", 0.05)
}

func TestAnalysisMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAnalysisMetrics(reg)
	m.ObserveRun("failed", 1.5, 300)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

func TestAnalysisMetricsNilSafe(t *testing.T) {
	var m *AnalysisMetrics
	m.ObserveRun("ok", 0.1, 50)
	m.ObserveInsufficientData()
	m.ObserveHTTP("/health", "GET", 0.01)
}
