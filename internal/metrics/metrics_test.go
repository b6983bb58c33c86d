package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveBridge("ping", OutcomeOK, time.Millisecond)
	m.FallbackWrite()
	m.SpawnSucceeded()
	m.SpawnFailed()
	m.HandleCleared()
	m.Exited(1)
	m.Overlap()
}

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveBridge("ping", OutcomeOK, 10*time.Millisecond)
	m.ObserveBridge("ping", OutcomeOK, 10*time.Millisecond)
	m.ObserveBridge("wake", OutcomeFailed, time.Millisecond)
	m.FallbackWrite()
	m.SpawnSucceeded()
	m.Overlap()
	m.Exited(0)
	m.Exited(-1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BridgeRequests.WithLabelValues("ping", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BridgeRequests.WithLabelValues("wake", OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BridgeFallbackWrites))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Spawns))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Running))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Overlaps))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Exits.WithLabelValues("clean")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Exits.WithLabelValues("signal")))

	m.HandleCleared()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Running))
}

func TestIndependentRegistries(t *testing.T) {
	a := New()
	b := New()
	a.FallbackWrite()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.BridgeFallbackWrites))
}

func TestExitClass(t *testing.T) {
	assert.Equal(t, "clean", ExitClass(0))
	assert.Equal(t, "signal", ExitClass(-1))
	assert.Equal(t, "error", ExitClass(1))
	assert.Equal(t, "code_128", ExitClass(137))
	assert.Equal(t, "code_192", ExitClass(255))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.SpawnSucceeded()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "aurora_supervisor_spawns_total 1"), body)
}
