package metrics

import "time"

// BackendMetrics provides observability for BackendBridge calls: CDB
// dispatch latency, bytes transferred, and TMR outcomes. Implementations
// are optional: pass nil to disable collection with zero overhead.
type BackendMetrics interface {
	// ObserveCDB records a HandleCDB call's opcode, duration, and outcome.
	ObserveCDB(opcode byte, duration time.Duration, err error)

	// RecordBytes records bytes transferred for a LUN read or write.
	RecordBytes(direction string, bytes int64)

	// ObserveTMR records a HandleTMR call's function and outcome.
	ObserveTMR(fn string, duration time.Duration, err error)
}

// NewBackendMetrics creates a new Prometheus-backed BackendMetrics
// instance, or nil if InitRegistry has not been called.
func NewBackendMetrics() BackendMetrics {
	if !IsEnabled() || newPrometheusBackendMetrics == nil {
		return nil
	}
	return newPrometheusBackendMetrics()
}

// newPrometheusBackendMetrics is registered by internal/metrics/prometheus's
// init(), avoiding an import cycle between the interface and
// implementation packages.
var newPrometheusBackendMetrics func() BackendMetrics

// RegisterBackendMetricsConstructor installs the Prometheus BackendMetrics
// constructor.
func RegisterBackendMetricsConstructor(constructor func() BackendMetrics) {
	newPrometheusBackendMetrics = constructor
}

// ObserveCDB is a nil-safe helper for callers holding a possibly-nil
// BackendMetrics.
func ObserveCDB(m BackendMetrics, opcode byte, duration time.Duration, err error) {
	if m != nil {
		m.ObserveCDB(opcode, duration, err)
	}
}

// RecordBackendBytes is a nil-safe helper for callers holding a
// possibly-nil BackendMetrics.
func RecordBackendBytes(m BackendMetrics, direction string, bytes int64) {
	if m != nil {
		m.RecordBytes(direction, bytes)
	}
}
