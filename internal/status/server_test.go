package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dgnsrekt/deckbridge/internal/bridge"
	"github.com/dgnsrekt/deckbridge/internal/metrics"
)

type fixedState bridge.Snapshot

func (f fixedState) Snapshot() bridge.Snapshot { return bridge.Snapshot(f) }

var (
	testID      = uuid.MustParse("5b0c1a62-3f0e-4c55-9a0a-6a3c1d1f9e21")
	testStarted = time.Date(2026, 10, 18, 20, 0, 0, 0, time.UTC)
)

func newTestRouter(t *testing.T, state StateSource, gatherer prometheus.Gatherer) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	return NewRouter(NewServer(state, testID, testStarted, logger), gatherer, logger)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(t, newTestRouter(t, fixedState{}, nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestStatus(t *testing.T) {
	now := time.Date(2026, 10, 18, 21, 0, 0, 0, time.UTC)
	state := fixedState{
		MasterDeck:    1,
		Playing:       true,
		LastTrack:     "Artist B - Song B",
		LastHeartbeat: now.Add(-120 * time.Millisecond),
		TakenAt:       now,
	}

	rec := get(t, newTestRouter(t, state, nil), "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, Response{
		InstanceID:     testID.String(),
		MasterDeck:     1,
		Playing:        true,
		LastTrack:      "Artist B - Song B",
		HeartbeatSeen:  true,
		HeartbeatAgeMS: 120,
		StartedAt:      testStarted,
	}, body)
}

func TestStatusNoHeartbeat(t *testing.T) {
	rec := get(t, newTestRouter(t, fixedState{TakenAt: time.Now()}, nil), "/status")

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.HeartbeatSeen)
	assert.Zero(t, body.HeartbeatAgeMS)
	assert.False(t, body.Playing)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheus(reg, "deckbridge")
	m.IncrementEmission(metrics.KindTrack)

	rec := get(t, newTestRouter(t, fixedState{}, reg), "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `deckbridge_emissions_total{kind="track"} 1`)
}

func TestMetricsUnmountedWithoutGatherer(t *testing.T) {
	rec := get(t, newTestRouter(t, fixedState{}, nil), "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
