package collector

import (
	"context"
	"fmt"

	"CryptoSentinel/internal/calculator"
	"CryptoSentinel/internal/model"
	"CryptoSentinel/internal/strategy"

	"github.com/rs/zerolog"
)

// Collector orchestrates data fetching and indicator computation for
// every configured timeframe of a pair.
type Collector struct {
	Fetcher    Fetcher
	Timeframes []model.Timeframe
	Limit      int
	MinBars    int
	Options    calculator.Options

	logger zerolog.Logger
}

// NewCollector creates a new Collector. The minimum history follows the
// number of timeframes: single-timeframe scans need less.
func NewCollector(fetcher Fetcher, timeframes []model.Timeframe, limit int, opts calculator.Options, logger zerolog.Logger) *Collector {
	minBars := MinBarsSingle
	if len(timeframes) > 1 {
		minBars = MinBarsMulti
	}
	return &Collector{
		Fetcher:    fetcher,
		Timeframes: timeframes,
		Limit:      limit,
		MinBars:    minBars,
		Options:    opts,
		logger:     logger.With().Str("component", "collector").Logger(),
	}
}

// Analyze fetches, validates and enriches every timeframe of pair.
// A failing timeframe is reported through its status and never aborts
// the others.
func (c *Collector) Analyze(ctx context.Context, pair string) *model.PairAnalysis {
	out := &model.PairAnalysis{
		Pair:       pair,
		Timeframes: make(map[model.Timeframe]*model.TimeframeAnalysis, len(c.Timeframes)),
	}
	for _, tf := range c.Timeframes {
		out.Timeframes[tf] = c.analyzeTimeframe(ctx, pair, tf)
	}
	return out
}

func (c *Collector) analyzeTimeframe(ctx context.Context, pair string, tf model.Timeframe) *model.TimeframeAnalysis {
	a := &model.TimeframeAnalysis{Pair: pair, Timeframe: tf}
	log := c.logger.With().Str("pair", pair).Str("timeframe", string(tf)).Logger()

	raw, err := c.Fetcher.FetchBars(ctx, pair, tf, c.Limit)
	if err != nil {
		log.Warn().Err(err).Msg("fetch bars failed")
		a.Status = model.StatusError
		a.Reason = fmt.Sprintf("fetch bars: %v", err)
		return a
	}

	v := ValidateAndClean(raw, c.MinBars)
	if v.Status != model.StatusOK {
		log.Warn().Str("status", string(v.Status)).Str("reason", v.Reason).Msg("timeframe skipped")
		a.Status = v.Status
		a.Reason = v.Reason
		return a
	}

	frame, errs := calculator.Compute(v.Bars, c.Options)
	for _, e := range errs {
		log.Warn().Err(e).Msg("indicator unavailable, left undefined")
	}

	a.Status = model.StatusOK
	a.Bars = v.Bars
	a.Frame = frame
	a.LastBar = v.Bars[len(v.Bars)-1]
	a.Last = frame.RowAt(-1)
	strategy.Classify(a)

	log.Debug().
		Str("trend", string(a.Trend)).
		Float64("strength", a.Strength).
		Str("volatility", string(a.Volatility)).
		Msg("timeframe analyzed")
	return a
}
