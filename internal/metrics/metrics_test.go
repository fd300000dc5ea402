package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Records(t *testing.T) {
	m := New()

	m.SnapshotApplied(10, 10, true)
	m.SnapshotApplied(11, 1, false)
	m.Evaluated(1, 0, 2, 0, 1)
	m.SinkFailed()
	m.PositionFix("accepted")

	assert.Equal(t, 11.0, testutil.ToFloat64(m.newReports))
	assert.Equal(t, 11.0, testutil.ToFloat64(m.knownReports))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.snapshots.WithLabelValues("true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.evaluations.WithLabelValues("out_of_range")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sinkFailures))

	m.AlertedReset()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.alertedReports))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SnapshotApplied(1, 1, false)
		m.Evaluated(1, 1, 1, 1, 1)
		m.SinkFailed()
		m.PositionFix("error")
		m.AlertedReset()
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.SinkFailed()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "proximity_agent_sink_failures_total 1")
}
