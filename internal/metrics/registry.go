// Package metrics provides Prometheus metrics for the Modbus client.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics for the tool. Each Registry
// owns its own prometheus.Registry so tests can create them freely.
type Registry struct {
	reg *prometheus.Registry

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Timeouts        prometheus.Counter
	FramesDiscarded prometheus.Counter

	// Connection metrics
	ConnectionsTotal prometheus.Counter
	ConnectionErrors prometheus.Counter

	// Poll metrics
	PollsTotal      *prometheus.CounterVec
	PointsRead      prometheus.Counter
	PointsPublished prometheus.Counter
	PublishFailures prometheus.Counter
}

// NewRegistry creates a metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modbus",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Total Modbus requests by function code and status",
		}, []string{"function", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "modbus",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Request round-trip latency",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"function"}),
		Timeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "modbus",
			Subsystem: "client",
			Name:      "timeouts_total",
			Help:      "Total requests that expired without a matching response",
		}),
		FramesDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "modbus",
			Subsystem: "client",
			Name:      "frames_discarded_total",
			Help:      "Response frames discarded for transaction or unit ID mismatch",
		}),

		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "modbus",
			Subsystem: "client",
			Name:      "connections_total",
			Help:      "Total TCP connection attempts",
		}),
		ConnectionErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "modbus",
			Subsystem: "client",
			Name:      "connection_errors_total",
			Help:      "Total TCP connection failures",
		}),

		PollsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modbus",
			Subsystem: "poll",
			Name:      "polls_total",
			Help:      "Total poll cycles by status",
		}, []string{"status"}),
		PointsRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "modbus",
			Subsystem: "poll",
			Name:      "points_read_total",
			Help:      "Total values read by the poller",
		}),
		PointsPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "modbus",
			Subsystem: "poll",
			Name:      "points_published_total",
			Help:      "Total values published to MQTT",
		}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "modbus",
			Subsystem: "poll",
			Name:      "publish_failures_total",
			Help:      "Total failed MQTT publishes",
		}),
	}
}

// Handler returns an HTTP handler serving the registry in Prometheus
// exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// RecordRequest records the outcome of one client operation.
func (r *Registry) RecordRequest(function string, err error, seconds float64) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.RequestsTotal.WithLabelValues(function, status).Inc()
	r.RequestDuration.WithLabelValues(function).Observe(seconds)
}
