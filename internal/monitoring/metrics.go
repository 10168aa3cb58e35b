// Package monitoring exposes analyzer metrics and alerts on stored
// analysis outcomes.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process's Prometheus instruments on a private registry.
type Metrics struct {
	registry *prometheus.Registry
	analyses *prometheus.CounterVec
	duration *prometheus.HistogramVec
	quality  *prometheus.GaugeVec
	requests *prometheus.CounterVec

	windowErrors  prometheus.Gauge
	windowQuality prometheus.Gauge
	alerts        *prometheus.CounterVec
	delivered     prometheus.Counter
}

// NewMetrics registers the analyzer instruments plus the Go and process
// collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analyses_total",
			Help: "Analyzer invocations by tool and result status.",
		}, []string{"tool", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "analysis_duration_seconds",
			Help:    "Analyzer run time.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"tool"}),
		quality: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "last_quality_score",
			Help: "Quality score of the most recent successful analysis.",
		}, []string{"tool"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "API requests by route pattern and status code.",
		}, []string{"route", "code"}),
		windowErrors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "window_error_rate",
			Help: "Error rate of stored analyses in the monitoring lookback window.",
		}),
		windowQuality: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "window_avg_quality_score",
			Help: "Average quality score of scored analyses in the monitoring lookback window.",
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alerts_total",
			Help: "Alerts raised by the monitoring checker, by type.",
		}, []string{"type"}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alerts_delivered_total",
			Help: "Alerts accepted by the webhook.",
		}),
	}
	m.registry.MustRegister(
		m.analyses, m.duration, m.quality, m.requests,
		m.windowErrors, m.windowQuality, m.alerts, m.delivered,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveAnalysis records one analyzer run. The quality gauge only moves
// for successful runs that produced a score.
func (m *Metrics) ObserveAnalysis(tool, status string, elapsed time.Duration, quality float64, scored bool) {
	m.analyses.WithLabelValues(tool, status).Inc()
	m.duration.WithLabelValues(tool).Observe(elapsed.Seconds())
	if scored && status == "success" {
		m.quality.WithLabelValues(tool).Set(quality)
	}
}

// ObserveRequest counts an API request.
func (m *Metrics) ObserveRequest(route, code string) {
	m.requests.WithLabelValues(route, code).Inc()
}

// ObserveWindow publishes one monitoring window and the alerts it raised.
func (m *Metrics) ObserveWindow(snap *MetricsSnapshot, alerts []Alert, sent int) {
	m.windowErrors.Set(snap.ErrorRate)
	m.windowQuality.Set(snap.AvgQualityScore)
	for _, a := range alerts {
		m.alerts.WithLabelValues(string(a.Type)).Inc()
	}
	m.delivered.Add(float64(sent))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
