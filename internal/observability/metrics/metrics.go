package metrics

import "github.com/prometheus/client_golang/prometheus"

// AnalysisMetrics exposes counters/histograms for the latency-analysis pipeline.
type AnalysisMetrics struct {
	analysesTotal    *prometheus.CounterVec
	insufficientData prometheus.Counter
	analysisDuration prometheus.Histogram
	analyzedMessages prometheus.Histogram
	httpLatency      *prometheus.HistogramVec
}

func NewAnalysisMetrics(reg prometheus.Registerer) *AnalysisMetrics {
	m := &AnalysisMetrics{
		analysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cadence",
			Subsystem: "analysis",
			Name:      "runs_total",
			Help:      "Total analysis runs by outcome",
		}, []string{"status"}),
		insufficientData: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cadence",
			Subsystem: "analysis",
			Name:      "insufficient_data_total",
			Help:      "Analyses gated by the low-confidence data threshold",
		}),
		analysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cadence",
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of a single analysis run",
			Buckets:   prometheus.DefBuckets,
		}),
		analyzedMessages: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cadence",
			Subsystem: "analysis",
			Name:      "messages_per_run",
			Help:      "Message count of analyzed conversations",
			Buckets:   prometheus.ExponentialBuckets(30, 4, 8),
		}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cadence",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP request handling",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.analysesTotal, m.insufficientData, m.analysisDuration,
		m.analyzedMessages, m.httpLatency)
	return m
}

func (m *AnalysisMetrics) ObserveRun(status string, seconds float64, messages int) {
	if m == nil {
		return
	}
	m.analysesTotal.WithLabelValues(status).Inc()
	m.analysisDuration.Observe(seconds)
	m.analyzedMessages.Observe(float64(messages))
}

func (m *AnalysisMetrics) ObserveInsufficientData() {
	if m == nil {
		return
	}
	m.insufficientData.Inc()
}

func (m *AnalysisMetrics) ObserveHTTP(route, method string, seconds float64) {
	if m == nil {
		return
	}
	m.httpLatency.WithLabelValues(route, method).Observe(seconds)
}
