package prometheus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/iscsitgt/internal/metrics"
)

func TestSessionMetricsRecordsWithoutPanic(t *testing.T) {
	metrics.Reset()
	defer metrics.Reset()
	metrics.InitRegistry()

	m := metrics.NewSessionMetrics()
	require.NotNil(t, m)

	assert.NotPanics(t, func() {
		m.SetActiveSessions(3)
		m.SetActiveConnections(5)
		m.RecordLogin("iqn.2026-01.org.iscsitgt:disk0", 12*time.Millisecond, true)
		m.RecordLogin("iqn.2026-01.org.iscsitgt:disk0", 3*time.Millisecond, false)
		m.RecordLogout("iqn.2026-01.org.iscsitgt:disk0", "session_closed")
		m.RecordDigestError("header")
		m.SetR2TsInFlight(2)
		m.SetCmdSNWindowDepth("000137000001:7", 12)
		m.RecordRecoveryEpisode(2, "recovered")
	})
}

func TestNewSessionMetricsNilWithoutRegistry(t *testing.T) {
	metrics.Reset()
	assert.Nil(t, newSessionMetrics())
}
