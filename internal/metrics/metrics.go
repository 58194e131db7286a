// Package metrics exposes Prometheus metrics for analyses, collaborators,
// record operations and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry. All methods are safe on a nil receiver so
// components can run without metrics in tests and one-shot modes.
type Metrics struct {
	registry *prometheus.Registry

	AnalysesTotal       *prometheus.CounterVec
	AnalysisDuration    *prometheus.HistogramVec
	ExtractionFallbacks prometheus.Counter
	OCRRequests         *prometheus.CounterVec
	ProfitPercentage    prometheus.Histogram
	RecordOps           *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
}

// New creates the collectors and registers them together with the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		AnalysesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surebet_analyses_total",
				Help: "Analyses run, by extraction source and validity",
			},
			[]string{"source", "valid"},
		),
		AnalysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "surebet_analysis_duration_seconds",
				Help:    "Wall time of one analysis including OCR and extraction",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~40s
			},
			[]string{"kind"},
		),
		ExtractionFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "surebet_extraction_fallbacks_total",
			Help: "Times the local parser replaced a failed structured extraction",
		}),
		OCRRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surebet_ocr_requests_total",
				Help: "OCR provider calls by outcome",
			},
			[]string{"status"},
		),
		ProfitPercentage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "surebet_profit_percentage",
			Help:    "Guaranteed profit percentage of valid arbitrages",
			Buckets: []float64{0.25, 0.5, 1, 2, 3, 5, 8, 13, 20},
		}),
		RecordOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surebet_record_operations_total",
				Help: "Record store operations by kind",
			},
			[]string{"op"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surebet_http_requests_total",
				Help: "HTTP requests by method, route pattern and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "surebet_http_request_duration_seconds",
				Help:    "HTTP request latency by route pattern",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.AnalysesTotal,
		m.AnalysisDuration,
		m.ExtractionFallbacks,
		m.OCRRequests,
		m.ProfitPercentage,
		m.RecordOps,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordAnalysis counts one finished analysis.
func (m *Metrics) RecordAnalysis(kind, source string, valid bool, profitPct float64, d time.Duration) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(source, strconv.FormatBool(valid)).Inc()
	m.AnalysisDuration.WithLabelValues(kind).Observe(d.Seconds())
	if valid {
		m.ProfitPercentage.Observe(profitPct)
	}
}

// RecordFallback counts a structured-extraction fallback.
func (m *Metrics) RecordFallback() {
	if m == nil {
		return
	}
	m.ExtractionFallbacks.Inc()
}

// RecordOCR counts one OCR call.
func (m *Metrics) RecordOCR(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.OCRRequests.WithLabelValues(status).Inc()
}

// RecordOp counts a record operation ("create", "update", "delete", "export").
func (m *Metrics) RecordOp(op string) {
	if m == nil {
		return
	}
	m.RecordOps.WithLabelValues(op).Inc()
}

// RecordHTTP counts one served request. route is the mux pattern, not the
// raw path, to keep label cardinality bounded.
func (m *Metrics) RecordHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}
