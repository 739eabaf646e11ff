package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"CryptoSentinel/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteRecorder_Stats(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "db", "sentinel.db"), zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.RecordScan(&ScanRecord{Pair: "BTC/USDT", Timeframe: model.Timeframe1h, Status: model.StatusOK, Trend: model.TrendUp, Strength: 6, RSI: 55, Price: 30000, Matches: 1}))
	require.NoError(t, r.RecordScan(&ScanRecord{Pair: "ETH/USDT", Timeframe: model.Timeframe4h, Status: model.StatusInsufficientData}))

	s100 := 71.5
	require.NoError(t, r.RecordAlert(&AlertRecord{SignalID: "a", Pair: "BTC/USDT", SetupID: "setup_leve", Score: 8, Score100: &s100, Delivered: true, Paper: true}))
	require.NoError(t, r.RecordAlert(&AlertRecord{SignalID: "b", Pair: "BTC/USDT", SetupID: "setup_leve", Score: 8}))

	now := time.Now()
	require.NoError(t, r.RecordClosure(&model.ClosureEvent{SignalID: "a", Pair: "BTC/USDT", Outcome: model.SignalTargetHit, ClosedAt: now}))
	require.NoError(t, r.RecordClosure(&model.ClosureEvent{SignalID: "c", Pair: "ETH/USDT", Outcome: model.SignalExpired, ClosedAt: now}))
	require.NoError(t, r.RecordClosure(&model.ClosureEvent{SignalID: "d", Pair: "ETH/USDT", Outcome: model.SignalStopHit, ClosedAt: now.Add(-48 * time.Hour)}))

	s, err := r.Stats(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, Stats{Scans: 2, Alerts: 1, Closures: 2, TargetHits: 1, Expired: 1}, s)
}

func TestSQLiteRecorder_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinel.db")
	r, err := NewSQLiteRecorder(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, r.RecordScan(&ScanRecord{Pair: "BTC/USDT", Timeframe: model.Timeframe1h, Status: model.StatusOK}))
	require.NoError(t, r.Close())

	r, err = NewSQLiteRecorder(path, zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()
	s, err := r.Stats(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Scans)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordScan(&ScanRecord{}))
	s, err := r.Stats(time.Now())
	assert.NoError(t, err)
	assert.Zero(t, s)
}
