// Package metrics defines the target daemon's metrics collection interface
// and a registry enable/disable switch: a protocol-agnostic interface here,
// prometheus.Registry-backed implementations in internal/metrics/prometheus,
// wired together by a constructor-registration indirection that avoids an
// import cycle between the two packages.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
	enabled  bool
)

// InitRegistry creates and installs the process-wide metrics registry.
// Must be called before any NewXMetrics constructor for metrics collection
// to be enabled; otherwise those constructors return nil for zero-overhead
// operation.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()
	registry = prometheus.NewRegistry()
	enabled = true
	return registry
}

// GetRegistry returns the process-wide metrics registry, or nil if
// InitRegistry has not been called.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Reset tears down the registry, for test isolation.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	registry = nil
	enabled = false
}
