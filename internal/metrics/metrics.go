// Package metrics provides Prometheus metrics collection for the HealthMania API.
// It defines the model inference, HTTP and storage metrics exposed on /metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Model metrics, labelled by model name
	MLPredictions *prometheus.CounterVec   // Successful model calls
	MLFailures    *prometheus.CounterVec   // Failed model calls
	MLTimeouts    *prometheus.CounterVec   // Model calls that hit the inference timeout
	MLLatency     *prometheus.HistogramVec // End-to-end model call latency
	MLModelAge    *prometheus.GaugeVec     // Age of the artifact file at startup

	// HTTP metrics
	HTTPRequests     *prometheus.CounterVec   // Requests by route and status code
	HTTPDuration     *prometheus.HistogramVec // Handler latency by route
	ValidationErrors *prometheus.CounterVec   // Rejected requests by endpoint and kind
	RateLimited      prometheus.Counter       // Requests refused by the rate limiter
	PanicsRecovered  prometheus.Counter       // Handler panics turned into 500s

	// Storage metrics
	HistoryWrites prometheus.Counter // Prediction records persisted
	HistoryErrors prometheus.Counter // Prediction records that failed to persist
	DietTableRows prometheus.Gauge   // Rows loaded from the nutrition table

	gatherer prometheus.Gatherer
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	m := &Metrics{
		MLPredictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ml_predictions_total",
			Help: "Total number of model predictions made",
		}, []string{"model"}),
		MLFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ml_failures_total",
			Help: "Total number of model prediction failures",
		}, []string{"model"}),
		MLTimeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ml_timeouts_total",
			Help: "Total number of model prediction timeouts",
		}, []string{"model"}),
		MLLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ml_latency_seconds",
			Help:    "Model prediction latency in seconds (end-to-end)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"model"}),
		MLModelAge: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ml_model_age_seconds",
			Help: "Age of the model artifact in seconds when it was loaded",
		}, []string{"model"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP handler latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		ValidationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "validation_errors_total",
			Help: "Total number of rejected requests by endpoint and error kind",
		}, []string{"endpoint", "kind"}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Total number of requests refused by the rate limiter",
		}),
		PanicsRecovered: factory.NewCounter(prometheus.CounterOpts{
			Name: "panics_recovered_total",
			Help: "Total number of recovered handler panics",
		}),
		HistoryWrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "history_writes_total",
			Help: "Total number of prediction records persisted",
		}),
		HistoryErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "history_errors_total",
			Help: "Total number of prediction records that failed to persist",
		}),
		DietTableRows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "diet_table_rows",
			Help: "Number of foods loaded from the nutrition table",
		}),
	}

	if g, ok := registerer.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

// GetErrorRate returns the share of HTTP requests answered with a 5xx code,
// or 0 if no requests have been recorded.
func (m *Metrics) GetErrorRate() float64 {
	var total, serverErrors float64

	metricFamilies, err := m.gatherer.Gather()
	if err != nil {
		return 0
	}

	for _, mf := range metricFamilies {
		if mf.GetName() != "http_requests_total" {
			continue
		}
		for _, metric := range mf.Metric {
			v := metric.GetCounter().GetValue()
			total += v
			for _, label := range metric.GetLabel() {
				if label.GetName() != "code" {
					continue
				}
				if code, err := strconv.Atoi(label.GetValue()); err == nil && code >= 500 {
					serverErrors += v
				}
			}
		}
	}

	if total == 0 {
		return 0
	}
	return serverErrors / total
}
