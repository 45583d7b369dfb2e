package metrics

import (
	"strconv"
	"time"
)

// MetricsWrapper adapts Metrics to the narrow interfaces the ml and api
// packages depend on. A nil wrapper or a wrapper around nil Metrics is a no-op.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) enabled() bool {
	return w != nil && w.m != nil
}

func (w *MetricsWrapper) MLPredictionsInc(model string) {
	if w.enabled() {
		w.m.MLPredictions.WithLabelValues(model).Inc()
	}
}

func (w *MetricsWrapper) MLFailuresInc(model string) {
	if w.enabled() {
		w.m.MLFailures.WithLabelValues(model).Inc()
	}
}

func (w *MetricsWrapper) MLTimeoutsInc(model string) {
	if w.enabled() {
		w.m.MLTimeouts.WithLabelValues(model).Inc()
	}
}

func (w *MetricsWrapper) MLLatencyObserve(model string, seconds float64) {
	if w.enabled() {
		w.m.MLLatency.WithLabelValues(model).Observe(seconds)
	}
}

func (w *MetricsWrapper) MLModelAgeSet(model string, seconds float64) {
	if w.enabled() {
		w.m.MLModelAge.WithLabelValues(model).Set(seconds)
	}
}

func (w *MetricsWrapper) RequestObserve(route string, code int, d time.Duration) {
	if w.enabled() {
		w.m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
		w.m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
	}
}

func (w *MetricsWrapper) ValidationErrorInc(endpoint, kind string) {
	if w.enabled() {
		w.m.ValidationErrors.WithLabelValues(endpoint, kind).Inc()
	}
}

func (w *MetricsWrapper) RateLimitedInc() {
	if w.enabled() {
		w.m.RateLimited.Inc()
	}
}

func (w *MetricsWrapper) PanicRecoveredInc() {
	if w.enabled() {
		w.m.PanicsRecovered.Inc()
	}
}

func (w *MetricsWrapper) HistoryWriteInc(ok bool) {
	if !w.enabled() {
		return
	}
	if ok {
		w.m.HistoryWrites.Inc()
	} else {
		w.m.HistoryErrors.Inc()
	}
}

func (w *MetricsWrapper) DietTableRowsSet(n int) {
	if w.enabled() {
		w.m.DietTableRows.Set(float64(n))
	}
}

func (w *MetricsWrapper) ErrorRate() float64 {
	if !w.enabled() {
		return 0
	}
	return w.m.GetErrorRate()
}
