// Package metrics exposes history and API activity to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/ballotdesk/internal/engine/history"
)

const namespace = "ballotdesk"

// Metrics owns a registry and the collectors registered on it.
//
// It implements history.Observer for per-command timings and
// history.Listener for cursor gauges, so one value can be passed to
// history.WithObserver and History.Subscribe.
type Metrics struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	cursor     prometheus.Gauge
	size       prometheus.Gauge
	capacity   prometheus.Gauge
	desync     prometheus.Gauge

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_operations_total",
				Help:      "Commands run, undone or redone, by outcome.",
			},
			[]string{"op", "kind", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "history_operation_duration_seconds",
				Help:      "Time spent in a command including its remote calls.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op", "kind"},
		),
		cursor: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_cursor",
			Help:      "Index of the most recently applied command, -1 when none.",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_size",
			Help:      "Number of commands on the history stack.",
		}),
		capacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_capacity",
			Help:      "Maximum number of commands kept.",
		}),
		desync: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_desynchronized",
			Help:      "1 while a failed undo or redo is unreconciled.",
		}),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Resource API requests by method and status code.",
			},
			[]string{"method", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Resource API latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "code"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.operations,
		m.latency,
		m.cursor,
		m.size,
		m.capacity,
		m.desync,
		m.requests,
		m.requestDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveOperation implements history.Observer.
func (m *Metrics) ObserveOperation(op history.Op, kind history.Kind, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.operations.WithLabelValues(string(op), string(kind), status).Inc()
	m.latency.WithLabelValues(string(op), string(kind)).Observe(elapsed.Seconds())
}

// HistoryChanged implements history.Listener.
func (m *Metrics) HistoryChanged(state history.State) {
	m.cursor.Set(float64(state.Cursor))
	m.size.Set(float64(state.Size))
	m.capacity.Set(float64(state.Capacity))
	if state.Desynchronized {
		m.desync.Set(1)
	} else {
		m.desync.Set(0)
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware counts and times requests handled by next.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(m.requestDuration,
		promhttp.InstrumentHandlerCounter(m.requests, next))
}
