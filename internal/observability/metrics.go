package observability

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Metrics holds the service's counters and histograms. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	apiRequests  *CounterVec
	apiLatency   *HistogramVec
	apiInflight  *Gauge
	vectorOps    *CounterVec
	vectorLat    *HistogramVec
	askOutcomes  *CounterVec
	stageLatency *HistogramVec
	cacheLookups *CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("pb_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"pb_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("pb_api_inflight_requests", "In-flight API requests."),
		vectorOps:   NewCounterVec("pb_vector_store_operations_total", "Vector store operations by provider/operation/status.", []string{"provider", "operation", "status"}),
		vectorLat: NewHistogramVec(
			"pb_vector_store_operation_duration_seconds",
			"Vector store operation latency in seconds.",
			[]string{"provider", "operation", "status"},
			nil,
		),
		askOutcomes: NewCounterVec("pb_ask_outcomes_total", "Ask requests by outcome code.", []string{"outcome"}),
		stageLatency: NewHistogramVec(
			"pb_ask_stage_duration_seconds",
			"Ask pipeline stage latency in seconds.",
			[]string{"stage", "status"},
			[]float64{0.005, 0.05, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		),
		cacheLookups: NewCounterVec("pb_answer_cache_lookups_total", "Answer cache lookups by result.", []string{"result"}),
	}
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	code := strconv.Itoa(status)
	m.apiRequests.Inc(method, route, code)
	m.apiLatency.Observe(dur.Seconds(), method, route, code)
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveVectorStoreOperation(provider, operation string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	status := statusLabel(err)
	m.vectorOps.Inc(provider, operation, status)
	m.vectorLat.Observe(dur.Seconds(), provider, operation, status)
}

func (m *Metrics) ObserveAskStage(stage string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	m.stageLatency.Observe(dur.Seconds(), stage, statusLabel(err))
}

// IncAskOutcome counts one finished ask; outcome is "ok" or an error code.
func (m *Metrics) IncAskOutcome(outcome string) {
	if m == nil {
		return
	}
	m.askOutcomes.Inc(strings.TrimSpace(outcome))
}

func (m *Metrics) AskOutcomeCount(outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.askOutcomes.Value(outcome)
}

func (m *Metrics) IncCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.Inc("hit")
	} else {
		m.cacheLookups.Inc("miss")
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.vectorOps, m.vectorLat,
		m.askOutcomes, m.stageLatency, m.cacheLookups,
	}
	for _, mw := range writers {
		if err := mw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
