// Package prometheus implements the metrics contracts with Prometheus
// collectors. Constructors return nil when metrics are disabled; every
// method is nil-receiver safe so call sites stay unconditional.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rillwm/rill/pkg/metrics"
)

// compositorMetrics is the Prometheus implementation of
// metrics.CompositorMetrics.
type compositorMetrics struct {
	clientsConnected    prometheus.Counter
	clientsDisconnected prometheus.Counter
	activeClients       prometheus.Gauge
	requestsDispatched  *prometheus.CounterVec
	eventsSent          prometheus.Counter
	protocolErrors      prometheus.Counter
	slowClients         prometheus.Counter
	bytesRead           prometheus.Counter
	bytesWritten        prometheus.Counter
}

// NewCompositorMetrics creates the compositor collectors.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewCompositorMetrics() metrics.CompositorMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &compositorMetrics{
		clientsConnected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "rill_clients_connected_total",
			Help: "Total number of accepted client sessions",
		}),
		clientsDisconnected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "rill_clients_disconnected_total",
			Help: "Total number of torn-down client sessions",
		}),
		activeClients: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "rill_active_clients",
			Help: "Current number of connected clients",
		}),
		requestsDispatched: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "rill_requests_dispatched_total",
			Help: "Total requests dispatched by interface and request",
		}, []string{"interface", "request"}),
		eventsSent: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "rill_events_sent_total",
			Help: "Total events serialized to clients",
		}),
		protocolErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "rill_protocol_errors_total",
			Help: "Total clients disconnected for protocol violations",
		}),
		slowClients: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "rill_slow_clients_total",
			Help: "Total times a client entered the slow queue",
		}),
		bytesRead: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "rill_bytes_read_total",
			Help: "Total bytes received from clients",
		}),
		bytesWritten: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "rill_bytes_written_total",
			Help: "Total bytes flushed to clients",
		}),
	}
}

func (m *compositorMetrics) RecordClientConnected() {
	if m == nil {
		return
	}
	m.clientsConnected.Inc()
}

func (m *compositorMetrics) RecordClientDisconnected() {
	if m == nil {
		return
	}
	m.clientsDisconnected.Inc()
}

func (m *compositorMetrics) SetActiveClients(n int) {
	if m == nil {
		return
	}
	m.activeClients.Set(float64(n))
}

func (m *compositorMetrics) RecordRequestDispatched(iface, request string) {
	if m == nil {
		return
	}
	m.requestsDispatched.WithLabelValues(iface, request).Inc()
}

func (m *compositorMetrics) RecordEventSent() {
	if m == nil {
		return
	}
	m.eventsSent.Inc()
}

func (m *compositorMetrics) RecordProtocolError() {
	if m == nil {
		return
	}
	m.protocolErrors.Inc()
}

func (m *compositorMetrics) RecordSlowClient() {
	if m == nil {
		return
	}
	m.slowClients.Inc()
}

func (m *compositorMetrics) RecordBytesRead(n int) {
	if m == nil {
		return
	}
	m.bytesRead.Add(float64(n))
}

func (m *compositorMetrics) RecordBytesWritten(n int) {
	if m == nil {
		return
	}
	m.bytesWritten.Add(float64(n))
}
