package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CryptoSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	mu sync.Mutex

	Bars     map[string][]model.Bar // keyed by MockKey(pair, tf)
	Prices   map[string]float64
	BarsErr  error
	PriceErr error
	PingErr  error

	PingCalls int
}

// NewMockFetcher creates an empty mock.
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		Bars:   map[string][]model.Bar{},
		Prices: map[string]float64{},
	}
}

// MockKey builds the Bars map key.
func MockKey(pair string, tf model.Timeframe) string {
	return pair + "|" + string(tf)
}

func (m *MockFetcher) Name() string { return "mock" }

// SetBars installs bars for a pair and timeframe.
func (m *MockFetcher) SetBars(pair string, tf model.Timeframe, bars []model.Bar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Bars[MockKey(pair, tf)] = bars
}

// SetPrice installs the last price for a pair.
func (m *MockFetcher) SetPrice(pair string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prices[pair] = price
}

func (m *MockFetcher) FetchBars(_ context.Context, pair string, tf model.Timeframe, limit int) ([]model.Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BarsErr != nil {
		return nil, m.BarsErr
	}
	bars, ok := m.Bars[MockKey(pair, tf)]
	if !ok {
		return nil, fmt.Errorf("mock bars %s %s: %w", pair, tf, ErrNoData)
	}
	if limit > 0 && len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	out := make([]model.Bar, len(bars))
	copy(out, bars)
	return out, nil
}

func (m *MockFetcher) FetchLastPrice(_ context.Context, pair string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PriceErr != nil {
		return 0, m.PriceErr
	}
	p, ok := m.Prices[pair]
	if !ok {
		return 0, fmt.Errorf("mock price %s: %w", pair, ErrUnknownPair)
	}
	return p, nil
}

func (m *MockFetcher) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PingCalls++
	return m.PingErr
}

// GenerateMockBars builds count hourly bars drifting around basePrice.
func GenerateMockBars(basePrice float64, count int) []model.Bar {
	bars := make([]model.Bar, count)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Bar{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
