package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"CryptoSentinel/internal/model"
	"CryptoSentinel/internal/recorder"
	"CryptoSentinel/internal/tracker"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) (http.Handler, *tracker.Manager) {
	t.Helper()
	m, err := tracker.NewManager(filepath.Join(t.TempDir(), "signals.json"), zerolog.Nop())
	require.NoError(t, err)
	return SetupRoutes(NewHandler(m, recorder.NewNoopRecorder())), m
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	h, _ := newRouter(t)
	rec := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestSignals(t *testing.T) {
	h, m := newRouter(t)
	open, err := m.Register(tracker.Candidate{Pair: "BTC/USDT", SetupID: "setup_leve", Entry: 30000, Stop: 29000, Target: 32000, Score: 7})
	require.NoError(t, err)
	pending, err := m.Stage(tracker.Candidate{Pair: "ETH/USDT", SetupID: "setup_leve", Entry: 100, Stop: 90, Target: 120, Score: 7})
	require.NoError(t, err)

	var all []model.MonitoredSignal
	rec := get(t, h, "/api/v1/signals")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	var filtered []model.MonitoredSignal
	rec = get(t, h, "/api/v1/signals?status=open")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filtered))
	require.Len(t, filtered, 1)
	assert.Equal(t, open.ID, filtered[0].ID)

	var one model.MonitoredSignal
	rec = get(t, h, "/api/v1/signals/"+pending.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &one))
	assert.Equal(t, model.SignalPending, one.Status)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/v1/signals/unknown").Code)
}

func TestStats(t *testing.T) {
	h, m := newRouter(t)
	_, err := m.Register(tracker.Candidate{Pair: "BTC/USDT", SetupID: "setup_leve", Entry: 30000, Stop: 29000, Target: 32000, Score: 7})
	require.NoError(t, err)

	rec := get(t, h, "/api/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Window      string         `json:"window"`
		Stats       recorder.Stats `json:"stats"`
		OpenSignals int            `json:"open_signals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "24h", body.Window)
	assert.Equal(t, 1, body.OpenSignals)
}
