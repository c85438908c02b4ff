package prometheus

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/iscsitgt/internal/metrics"
)

func init() {
	metrics.RegisterBackendMetricsConstructor(newBackendMetrics)
}

type backendMetrics struct {
	cdbOperations *prometheus.CounterVec
	cdbDuration   *prometheus.HistogramVec
	bytes         *prometheus.CounterVec
	tmrOperations *prometheus.CounterVec
	tmrDuration   *prometheus.HistogramVec
}

func newBackendMetrics() metrics.BackendMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	reg := metrics.GetRegistry()

	return &backendMetrics{
		cdbOperations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "iscsitgt_backend_cdb_operations_total",
			Help: "Total HandleCDB calls by opcode and outcome.",
		}, []string{"opcode", "outcome"}),
		cdbDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name: "iscsitgt_backend_cdb_duration_milliseconds",
			Help: "Duration of HandleCDB calls by opcode.",
			Buckets: []float64{
				0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000, 5000,
			},
		}, []string{"opcode"}),
		bytes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "iscsitgt_backend_bytes_total",
			Help: "Total bytes transferred to/from the backend by direction.",
		}, []string{"direction"}),
		tmrOperations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "iscsitgt_backend_tmr_operations_total",
			Help: "Total HandleTMR calls by function and outcome.",
		}, []string{"function", "outcome"}),
		tmrDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name: "iscsitgt_backend_tmr_duration_milliseconds",
			Help: "Duration of HandleTMR calls by function.",
			Buckets: []float64{
				0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000,
			},
		}, []string{"function"}),
	}
}

func (m *backendMetrics) ObserveCDB(opcode byte, duration time.Duration, err error) {
	label := fmt.Sprintf("0x%02x", opcode)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.cdbOperations.WithLabelValues(label, outcome).Inc()
	m.cdbDuration.WithLabelValues(label).Observe(float64(duration.Milliseconds()))
}

func (m *backendMetrics) RecordBytes(direction string, bytes int64) {
	if bytes <= 0 {
		return
	}
	m.bytes.WithLabelValues(direction).Add(float64(bytes))
}

func (m *backendMetrics) ObserveTMR(fn string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.tmrOperations.WithLabelValues(fn, outcome).Inc()
	m.tmrDuration.WithLabelValues(fn).Observe(float64(duration.Milliseconds()))
}
