// Package metrics defines the compositor metrics contract and the opt-in
// registry gate. Implementations live in the prometheus subpackage; when
// metrics are disabled every collector is nil and all call sites are
// nil-guarded, so the disabled path has zero overhead.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// CompositorMetrics collects protocol-level counters for the core.
type CompositorMetrics interface {
	// RecordClientConnected counts an accepted client session.
	RecordClientConnected()

	// RecordClientDisconnected counts a torn-down client session.
	RecordClientDisconnected()

	// SetActiveClients publishes the current session count.
	SetActiveClients(n int)

	// RecordRequestDispatched counts one dispatched request by interface
	// and request name.
	RecordRequestDispatched(iface, request string)

	// RecordEventSent counts one serialized event.
	RecordEventSent()

	// RecordProtocolError counts a client disconnected for a contract
	// violation.
	RecordProtocolError()

	// RecordSlowClient counts a client entering the slow queue.
	RecordSlowClient()

	// RecordBytesRead counts bytes received from clients.
	RecordBytesRead(n int)

	// RecordBytesWritten counts bytes flushed to clients.
	RecordBytesWritten(n int)
}

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry enables metrics collection. Must be called before any
// collector is constructed.
func InitRegistry() {
	mu.Lock()
	defer mu.Unlock()
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the shared registry, or nil when disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}
