// Package prometheus implements internal/metrics's collection interfaces
// using github.com/prometheus/client_golang, registered against the
// registry internal/metrics.InitRegistry installs.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/iscsitgt/internal/metrics"
)

func init() {
	metrics.RegisterSessionMetricsConstructor(newSessionMetrics)
}

type sessionMetrics struct {
	activeSessions    prometheus.Gauge
	activeConnections prometheus.Gauge
	logins            *prometheus.CounterVec
	loginDuration     *prometheus.HistogramVec
	logouts           *prometheus.CounterVec
	digestErrors      *prometheus.CounterVec
	r2tsInFlight      prometheus.Gauge
	cmdSNWindowDepth  *prometheus.GaugeVec
	recoveryEpisodes  *prometheus.CounterVec
}

func newSessionMetrics() metrics.SessionMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	return &sessionMetrics{
		activeSessions: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "iscsitgt_active_sessions",
			Help: "Current number of logged-in iSCSI sessions.",
		}),
		activeConnections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "iscsitgt_active_connections",
			Help: "Current number of open TCP connections across all sessions.",
		}),
		logins: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "iscsitgt_logins_total",
			Help: "Total completed login attempts by target IQN and outcome.",
		}, []string{"target_iqn", "outcome"}),
		loginDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name: "iscsitgt_login_duration_milliseconds",
			Help: "Duration of a full login phase (first Login Request to final Login Response).",
			Buckets: []float64{
				0.5, 1, 5, 10, 25, 50, 100, 250, 500, 1000,
			},
		}, []string{"target_iqn"}),
		logouts: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "iscsitgt_logouts_total",
			Help: "Total session logouts by target IQN and reason.",
		}, []string{"target_iqn", "reason"}),
		digestErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "iscsitgt_digest_errors_total",
			Help: "Total header/data digest mismatches by digest kind.",
		}, []string{"kind"}),
		r2tsInFlight: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "iscsitgt_r2ts_in_flight",
			Help: "Current number of R2Ts awaiting a Data-Out response across all sessions.",
		}),
		cmdSNWindowDepth: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "iscsitgt_cmdsn_window_depth",
			Help: "Current CmdSN window depth per session.",
		}, []string{"session_key"}),
		recoveryEpisodes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "iscsitgt_recovery_episodes_total",
			Help: "Total error-recovery episodes by ERL and outcome.",
		}, []string{"erl", "outcome"}),
	}
}

func (m *sessionMetrics) SetActiveSessions(count int32) {
	m.activeSessions.Set(float64(count))
}

func (m *sessionMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}

func (m *sessionMetrics) RecordLogin(targetIQN string, duration time.Duration, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.logins.WithLabelValues(targetIQN, outcome).Inc()
	m.loginDuration.WithLabelValues(targetIQN).Observe(float64(duration.Milliseconds()))
}

func (m *sessionMetrics) RecordLogout(targetIQN string, reason string) {
	m.logouts.WithLabelValues(targetIQN, reason).Inc()
}

func (m *sessionMetrics) RecordDigestError(kind string) {
	m.digestErrors.WithLabelValues(kind).Inc()
}

func (m *sessionMetrics) SetR2TsInFlight(count int32) {
	m.r2tsInFlight.Set(float64(count))
}

func (m *sessionMetrics) SetCmdSNWindowDepth(sessionKey string, depth uint32) {
	m.cmdSNWindowDepth.WithLabelValues(sessionKey).Set(float64(depth))
}

func (m *sessionMetrics) RecordRecoveryEpisode(erl int, outcome string) {
	m.recoveryEpisodes.WithLabelValues(erlLabel(erl), outcome).Inc()
}

func erlLabel(erl int) string {
	switch erl {
	case 0:
		return "0"
	case 1:
		return "1"
	case 2:
		return "2"
	default:
		return "unknown"
	}
}
