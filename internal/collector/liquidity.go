package collector

import (
	"context"

	"CryptoSentinel/internal/model"

	"github.com/rs/zerolog"
)

const (
	liquidityBars   = 60
	liquidityWindow = 30
)

// FilterLiquid keeps the pairs whose mean daily volume over the last 30
// days reaches min. Fetch errors keep the pair in the universe.
func FilterLiquid(ctx context.Context, f Fetcher, pairs []string, min float64, logger zerolog.Logger) []string {
	log := logger.With().Str("component", "liquidity").Logger()
	kept := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		bars, err := f.FetchBars(ctx, pair, model.Timeframe1d, liquidityBars)
		if err != nil || len(bars) == 0 {
			log.Warn().Err(err).Str("pair", pair).Msg("liquidity check unavailable, keeping pair")
			kept = append(kept, pair)
			continue
		}
		avg := meanDailyVolume(bars)
		if avg >= min {
			kept = append(kept, pair)
			continue
		}
		log.Info().Str("pair", pair).Float64("avg_volume_30d", avg).Float64("min", min).Msg("pair filtered for low liquidity")
	}
	return kept
}

func meanDailyVolume(bars []model.Bar) float64 {
	if len(bars) > liquidityWindow {
		bars = bars[len(bars)-liquidityWindow:]
	}
	var sum float64
	for _, b := range bars {
		sum += b.Volume
	}
	return sum / float64(len(bars))
}
