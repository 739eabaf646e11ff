package collector

import (
	"context"
	"errors"

	"CryptoSentinel/internal/model"
)

var (
	// ErrNoData is returned when the exchange answers with an empty series.
	ErrNoData = errors.New("no data returned")
	// ErrUnknownPair is returned for pairs the exchange does not list.
	ErrUnknownPair = errors.New("unknown pair")
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	FetchBars(ctx context.Context, pair string, tf model.Timeframe, limit int) ([]model.Bar, error)
	FetchLastPrice(ctx context.Context, pair string) (float64, error)
	Ping(ctx context.Context) error
	Name() string
}
