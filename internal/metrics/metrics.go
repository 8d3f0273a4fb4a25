// Package metrics holds the Prometheus collectors of the tool engine. All
// collectors live on a private registry so that tests and multiple engines
// in one process never collide.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	toolCalls      *prometheus.CounterVec
	toolDuration   *prometheus.HistogramVec
	storageRetries *prometheus.CounterVec
	activity       *prometheus.CounterVec
	queueDepth     prometheus.Gauge
}

// New creates and registers the engine collectors, plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devicedesk",
			Name:      "tool_calls_total",
			Help:      "Tool invocations by tool name and outcome kind.",
		}, []string{"tool", "outcome"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "devicedesk",
			Name:      "tool_call_duration_seconds",
			Help:      "Tool invocation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		storageRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devicedesk",
			Name:      "storage_retries_total",
			Help:      "Retries after a transient storage failure.",
		}, []string{"tool"}),
		activity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devicedesk",
			Name:      "activity_records_total",
			Help:      "Activity log writes by result (stored, failed, dropped, mirror_failed).",
		}, []string{"result"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "devicedesk",
			Name:      "activity_queue_depth",
			Help:      "Activity entries waiting to be written.",
		}),
	}
	m.registry.MustRegister(
		m.toolCalls,
		m.toolDuration,
		m.storageRetries,
		m.activity,
		m.queueDepth,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveToolCall records one finished invocation.
func (m *Metrics) ObserveToolCall(tool, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// StorageRetry counts one retry of tool.
func (m *Metrics) StorageRetry(tool string) {
	if m == nil {
		return
	}
	m.storageRetries.WithLabelValues(tool).Inc()
}

// Activity counts one activity log outcome.
func (m *Metrics) Activity(result string) {
	if m == nil {
		return
	}
	m.activity.WithLabelValues(result).Inc()
}

// SetQueueDepth reports the activity queue length.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
