package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline collectors on a private registry. A nil *Metrics is valid and
// records nothing, so components can take one optionally.
type Metrics struct {
	registry *prometheus.Registry

	searches          *prometheus.CounterVec
	searchDuration    prometheus.Histogram
	toolCalls         *prometheus.CounterVec
	modelCalls        *prometheus.CounterVec
	factChecks        *prometheus.CounterVec
	factCheckDuration prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truthseeker_search_requests_total",
			Help: "Search gateway calls by outcome (hit, miss, placeholder, error, cancelled)",
		}, []string{"outcome"}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "truthseeker_search_duration_seconds",
			Help:    "Wall-clock duration of search API round trips, retries included",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truthseeker_tool_calls_total",
			Help: "Tool invocations requested by the model",
		}, []string{"tool", "outcome"}),
		modelCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truthseeker_model_calls_total",
			Help: "LLM calls by mode (buffered, stream, final)",
		}, []string{"mode", "outcome"}),
		factChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "truthseeker_fact_checks_total",
			Help: "Completed fact checks by verdict",
		}, []string{"verdict"}),
		factCheckDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "truthseeker_fact_check_duration_seconds",
			Help:    "End-to-end fact check duration",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
	}

	m.registry.MustRegister(
		m.searches,
		m.searchDuration,
		m.toolCalls,
		m.modelCalls,
		m.factChecks,
		m.factCheckDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SearchOutcome(outcome string) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSearch(d time.Duration) {
	if m == nil {
		return
	}
	m.searchDuration.Observe(d.Seconds())
}

func (m *Metrics) ToolCall(tool, outcome string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
}

func (m *Metrics) ModelCall(mode, outcome string) {
	if m == nil {
		return
	}
	m.modelCalls.WithLabelValues(mode, outcome).Inc()
}

func (m *Metrics) FactCheck(verdict string, d time.Duration) {
	if m == nil {
		return
	}
	m.factChecks.WithLabelValues(verdict).Inc()
	m.factCheckDuration.Observe(d.Seconds())
}
