package tracker

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"CryptoSentinel/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type prices map[string]float64

func (p prices) FetchLastPrice(_ context.Context, pair string) (float64, error) {
	v, ok := p[pair]
	if !ok {
		return 0, errors.New("no ticker")
	}
	return v, nil
}

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time { return c.t }

func newManager(t *testing.T) (*Manager, *testClock, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monitored_signals.json")
	m, err := NewManager(path, zerolog.Nop())
	require.NoError(t, err)
	c := &testClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	return m.WithClock(c.now), c, path
}

func candidate() Candidate {
	return Candidate{Pair: "ETH/USDT", SetupID: "setup_leve", Entry: 100, Stop: 90, Target: 120, Score: 7.5}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Candidate)
		ok     bool
	}{
		{"valid", func(*Candidate) {}, true},
		{"missing pair", func(c *Candidate) { c.Pair = "" }, false},
		{"missing setup", func(c *Candidate) { c.SetupID = "" }, false},
		{"zero stop", func(c *Candidate) { c.Stop = 0 }, false},
		{"stop above entry", func(c *Candidate) { c.Stop = 110 }, false},
		{"target below entry", func(c *Candidate) { c.Target = 95 }, false},
		{"risk reward below minimum", func(c *Candidate) { c.Target = 114 }, false},
		{"risk reward at minimum", func(c *Candidate) { c.Target = 115 }, true},
		{"score below minimum", func(c *Candidate) { c.Score = 5.9 }, false},
		{"undefined score", func(c *Candidate) { c.Score = math.NaN() }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := candidate()
			tc.mutate(&c)
			err := Validate(c)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrRejected)
			}
		})
	}
}

func TestSweep_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		price   float64
		elapsed time.Duration
		want    model.SignalStatus
	}{
		{"target reached", 125, time.Hour, model.SignalTargetHit},
		{"stop reached", 85, time.Hour, model.SignalStopHit},
		{"inside range before expiry", 105, time.Hour, model.SignalOpen},
		{"inside range after expiry", 105, 25 * time.Hour, model.SignalExpired},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, clk, _ := newManager(t)
			s, err := m.Register(candidate())
			require.NoError(t, err)

			clk.t = clk.t.Add(tc.elapsed)
			events := m.Sweep(context.Background(), prices{"ETH/USDT": tc.price})

			got, err := m.Get(s.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Status)
			if tc.want == model.SignalOpen {
				assert.Empty(t, events)
				assert.Nil(t, got.ClosedAt)
				return
			}
			require.Len(t, events, 1)
			assert.Equal(t, tc.want, events[0].Outcome)
			assert.Equal(t, tc.elapsed, events[0].Duration)
			require.NotNil(t, got.ClosingPrice)
			assert.Equal(t, tc.price, *got.ClosingPrice)
		})
	}
}

func TestSweep_ClosedSignalsNeverChange(t *testing.T) {
	m, _, _ := newManager(t)
	s, err := m.Register(candidate())
	require.NoError(t, err)

	require.Len(t, m.Sweep(context.Background(), prices{"ETH/USDT": 85}), 1)
	closed, _ := m.Get(s.ID)

	assert.Empty(t, m.Sweep(context.Background(), prices{"ETH/USDT": 125}))
	again, _ := m.Get(s.ID)
	assert.Equal(t, closed, again)
}

func TestSweep_PriceFailureKeepsSignalOpen(t *testing.T) {
	m, clk, _ := newManager(t)
	s, err := m.Register(candidate())
	require.NoError(t, err)

	clk.t = clk.t.Add(48 * time.Hour)
	assert.Empty(t, m.Sweep(context.Background(), prices{}))

	got, _ := m.Get(s.ID)
	assert.Equal(t, model.SignalOpen, got.Status)
}

func TestEndToEnd_BTCTargetHit(t *testing.T) {
	m, _, path := newManager(t)
	s, err := m.Register(Candidate{Pair: "BTC/USDT", SetupID: "setup_rompimento", Entry: 30000, Stop: 29000, Target: 32000, Score: 8.2})
	require.NoError(t, err)
	assert.Equal(t, model.SignalOpen, s.Status)
	assert.InDelta(t, 2.0, s.RiskReward(), 1e-9)

	events := m.Sweep(context.Background(), prices{"BTC/USDT": 32500})
	require.Len(t, events, 1)
	assert.Equal(t, model.SignalTargetHit, events[0].Outcome)
	assert.Equal(t, s.ID, events[0].SignalID)
	assert.Equal(t, 32500.0, events[0].ExitPrice)

	reloaded, err := NewManager(path, zerolog.Nop())
	require.NoError(t, err)
	got, err := reloaded.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SignalTargetHit, got.Status)
	assert.Empty(t, reloaded.Open())
}

func TestStageActivateAbandon(t *testing.T) {
	m, _, _ := newManager(t)

	delivered, err := m.Stage(candidate())
	require.NoError(t, err)
	assert.Equal(t, model.SignalPending, delivered.Status)
	assert.Empty(t, m.Open(), "pending signals are not swept")

	require.NoError(t, m.Activate(delivered.ID))
	assert.Len(t, m.Open(), 1)
	assert.Error(t, m.Activate(delivered.ID), "only pending signals can be activated")

	lost, err := m.Stage(candidate())
	require.NoError(t, err)
	require.NoError(t, m.Abandon(lost.ID))
	got, _ := m.Get(lost.ID)
	assert.Equal(t, model.SignalUndelivered, got.Status)
	assert.NotNil(t, got.ClosedAt)

	assert.ErrorIs(t, m.Activate("missing"), ErrNotFound)
	assert.Len(t, m.All(), 2)
}

func TestRegister_RejectedIsNotStored(t *testing.T) {
	m, _, path := newManager(t)
	c := candidate()
	c.Score = 4

	_, err := m.Register(c)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Empty(t, m.All())

	signals, err := LoadSignals(path)
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestNewManager_ReopensInterruptedDelivery(t *testing.T) {
	m, c, path := newManager(t)
	staged, err := m.Stage(candidate())
	require.NoError(t, err)

	reloaded, err := NewManager(path, zerolog.Nop())
	require.NoError(t, err)
	c.t = c.t.Add(48 * time.Hour)
	reloaded.WithClock(c.now)

	got, err := reloaded.Get(staged.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SignalOpen, got.Status)

	events := reloaded.Sweep(context.Background(), prices{"ETH/USDT": 125})
	require.Len(t, events, 1)
	assert.Equal(t, model.SignalTargetHit, events[0].Outcome)

	signals, err := LoadSignals(path)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, model.SignalTargetHit, signals[0].Status)
}

func TestSweep_UnpersistedClosureIsRolledBack(t *testing.T) {
	m, _, _ := newManager(t)
	s, err := m.Register(candidate())
	require.NoError(t, err)

	// A regular file as parent directory makes every save fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	good := m.filePath
	m.filePath = filepath.Join(blocker, "signals.json")

	assert.Empty(t, m.Sweep(context.Background(), prices{"ETH/USDT": 125}))
	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SignalOpen, got.Status)
	assert.Nil(t, got.ClosedAt)

	m.filePath = good
	events := m.Sweep(context.Background(), prices{"ETH/USDT": 125})
	require.Len(t, events, 1)
	assert.Empty(t, m.Sweep(context.Background(), prices{"ETH/USDT": 125}))
}

type blockingPrices struct {
	release chan struct{}
	m       *Manager
	listed  int
}

func (b *blockingPrices) FetchLastPrice(_ context.Context, _ string) (float64, error) {
	b.listed = len(b.m.All())
	close(b.release)
	return 125, nil
}

func TestSweep_ReadsStayAvailableDuringPriceFetch(t *testing.T) {
	m, _, _ := newManager(t)
	_, err := m.Register(candidate())
	require.NoError(t, err)

	src := &blockingPrices{release: make(chan struct{}), m: m}
	done := make(chan []model.ClosureEvent, 1)
	go func() { done <- m.Sweep(context.Background(), src) }()

	select {
	case <-src.release:
	case <-time.After(2 * time.Second):
		t.Fatal("price fetch did not run")
	}
	select {
	case events := <-done:
		assert.Len(t, events, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("sweep deadlocked while the store was read during a price fetch")
	}
	assert.Equal(t, 1, src.listed)
}
