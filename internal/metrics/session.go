package metrics

import "time"

// SessionMetrics provides observability for session and connection
// lifecycle, digest validation, and error recovery. Implementations are
// optional: pass nil to disable collection with zero overhead.
type SessionMetrics interface {
	// SetActiveSessions updates the current session count.
	SetActiveSessions(count int32)

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)

	// RecordLogin records a completed login attempt, successful or not.
	RecordLogin(targetIQN string, duration time.Duration, success bool)

	// RecordLogout records a session logout.
	RecordLogout(targetIQN string, reason string)

	// RecordDigestError records a header or data digest mismatch.
	RecordDigestError(kind string)

	// SetR2TsInFlight updates the number of outstanding R2Ts across all
	// sessions.
	SetR2TsInFlight(count int32)

	// SetCmdSNWindowDepth records a session's current CmdSN window depth.
	SetCmdSNWindowDepth(sessionKey string, depth uint32)

	// RecordRecoveryEpisode records one error-recovery episode (a SNACK
	// round-trip or connection reinstatement) at a given ERL.
	RecordRecoveryEpisode(erl int, outcome string)
}

// NewSessionMetrics creates a new Prometheus-backed SessionMetrics
// instance, or nil if InitRegistry has not been called.
func NewSessionMetrics() SessionMetrics {
	if !IsEnabled() || newPrometheusSessionMetrics == nil {
		return nil
	}
	return newPrometheusSessionMetrics()
}

// newPrometheusSessionMetrics is registered by
// internal/metrics/prometheus's init(), avoiding an import cycle between
// the interface and implementation packages.
var newPrometheusSessionMetrics func() SessionMetrics

// RegisterSessionMetricsConstructor installs the Prometheus SessionMetrics
// constructor.
func RegisterSessionMetricsConstructor(constructor func() SessionMetrics) {
	newPrometheusSessionMetrics = constructor
}

// RecordLogin is a nil-safe helper for callers holding a possibly-nil
// SessionMetrics.
func RecordLogin(m SessionMetrics, targetIQN string, duration time.Duration, success bool) {
	if m != nil {
		m.RecordLogin(targetIQN, duration, success)
	}
}

// RecordDigestError is a nil-safe helper for callers holding a
// possibly-nil SessionMetrics.
func RecordDigestError(m SessionMetrics, kind string) {
	if m != nil {
		m.RecordDigestError(kind)
	}
}
