package strategy

import (
	"fmt"
	"math"

	"CryptoSentinel/internal/calculator"
	"CryptoSentinel/internal/model"
)

// Tier orders rule evaluation within a timeframe.
type Tier int

const (
	// TierAdvanced rules are all evaluated every cycle.
	TierAdvanced Tier = iota
	// TierBase rules are evaluated in order and the first match wins.
	TierBase
)

// Context is what a predicate sees. Single-timeframe rules read Analysis;
// cross-timeframe rules read Timeframes.
type Context struct {
	Pair       string
	Analysis   *model.TimeframeAnalysis
	Timeframes map[model.Timeframe]*model.TimeframeAnalysis
}

func (c *Context) bars() []model.Bar            { return c.Analysis.Bars }
func (c *Context) frame() *model.IndicatorFrame { return c.Analysis.Frame }
func (c *Context) last() model.Row              { return c.Analysis.Frame.RowAt(-1) }

// Predicate reports a match and optional details.
type Predicate func(c *Context) (bool, string)

// Rule is one entry of the setup registry.
type Rule struct {
	ID        string
	Name      string
	Priority  string
	Family    model.RuleFamily
	Tier      Tier
	BaseScore float64
	Match     Predicate
}

// DefaultRules returns the setup registry in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID: "confluencia_timeframes", Name: "Timeframe Confluence", Priority: "premium signal",
			Family: model.FamilyCross, Tier: TierAdvanced, BaseScore: 9.0, Match: timeframeConfluence,
		},
		{
			ID: "breakout_extremo", Name: "Extreme Volume Breakout", Priority: "high probability",
			Family: model.FamilySingle, Tier: TierAdvanced, BaseScore: 9.0, Match: extremeBreakout,
		},
		{
			ID: "bollinger_squeeze", Name: "Bollinger Squeeze", Priority: "imminent expansion",
			Family: model.FamilySingle, Tier: TierAdvanced, BaseScore: 8.5, Match: bollingerSqueeze,
		},
		{
			ID: "divergencia_rsi", Name: "Bearish RSI Divergence", Priority: "potential reversal",
			Family: model.FamilySingle, Tier: TierAdvanced, BaseScore: 7.5, Match: bearishDivergence,
		},
		{
			ID: "divergencia_rsi_bullish", Name: "Bullish RSI Divergence", Priority: "likely upside reversal",
			Family: model.FamilySingle, Tier: TierAdvanced, BaseScore: 8.0, Match: bullishDivergence,
		},
		{
			ID: "setup_alta_confluencia", Name: "High Confluence Setup", Priority: "maximum priority",
			Family: model.FamilySingle, Tier: TierBase, BaseScore: 7.0, Match: highConfluence,
		},
		{
			ID: "setup_rigoroso", Name: "Strict Setup", Priority: "high priority",
			Family: model.FamilySingle, Tier: TierBase, BaseScore: 7.0, Match: strict,
		},
		{
			ID: "setup_rompimento", Name: "Breakout Setup", Priority: "high opportunity",
			Family: model.FamilySingle, Tier: TierBase, BaseScore: 7.0, Match: breakout,
		},
		{
			ID: "setup_reversao_tecnica", Name: "Technical Reversal Setup", Priority: "reversal opportunity",
			Family: model.FamilySingle, Tier: TierBase, BaseScore: 7.0, Match: technicalReversal,
		},
		{
			ID: "setup_intermediario", Name: "Intermediate Setup", Priority: "medium-high priority",
			Family: model.FamilySingle, Tier: TierBase, BaseScore: 7.0, Match: intermediate,
		},
		{
			ID: "setup_leve", Name: "Light Setup", Priority: "medium priority",
			Family: model.FamilySingle, Tier: TierBase, BaseScore: 7.0, Match: light,
		},
	}
}

func count(conds ...bool) int {
	n := 0
	for _, c := range conds {
		if c {
			n++
		}
	}
	return n
}

func all(conds ...bool) bool {
	return count(conds...) == len(conds)
}

func lastVolume(bars []model.Bar) float64 {
	return bars[len(bars)-1].Volume
}

// emaCrossUp reports EMA9 crossing above EMA21 on the last bar.
func emaCrossUp(f *model.IndicatorFrame) bool {
	return calculator.At(f.EMA9, -2) < calculator.At(f.EMA21, -2) &&
		calculator.At(f.EMA9, -1) > calculator.At(f.EMA21, -1)
}

func rsiRising(f *model.IndicatorFrame) bool {
	return calculator.At(f.RSI, -1) > calculator.At(f.RSI, -2)
}

func supertrend(f *model.IndicatorFrame) bool {
	return len(f.Supertrend) > 0 && f.Supertrend[len(f.Supertrend)-1]
}

// Cross-timeframe

func timeframeConfluence(c *Context) (bool, string) {
	fast, slow := c.Timeframes[model.Timeframe1h], c.Timeframes[model.Timeframe4h]
	if !fast.OK() || !slow.OK() {
		return false, ""
	}
	fr, sr := fast.Frame.RowAt(-1), slow.Frame.RowAt(-1)

	met := count(
		fast.Trend.IsBullish() && slow.Trend.IsBullish(),
		fast.Strength >= 6 && slow.Strength >= 5,
		fr.RSI > 25 && fr.RSI < 65 && sr.RSI < 70,
		fr.MACD > fr.MACDSignal && sr.MACD > sr.MACDSignal,
		calculator.VolumeRatio(fast.Bars) > 1.2,
	)
	if met < 4 {
		return false, ""
	}
	return true, fmt.Sprintf("1h: %s (strength %.0f) | 4h: %s (strength %.0f)",
		fast.Trend, fast.Strength, slow.Trend, slow.Strength)
}

// Advanced tier

func extremeBreakout(c *Context) (bool, string) {
	bars := c.bars()
	if len(bars) < 20 {
		return false, ""
	}
	r := c.last()
	resistance := calculator.MaxHigh(bars, -15, -1)
	touches := calculator.CountNear(bars, -15, -1, resistance, 0.005)

	ok := all(
		touches >= 3,
		bars[len(bars)-1].Close > resistance*1.002,
		lastVolume(bars) > meanVolume(bars)*3.0,
		r.RSI > 40 && r.RSI < 75,
		r.MACD > r.MACDSignal,
	)
	if !ok {
		return false, ""
	}
	return true, fmt.Sprintf("resistance $%.2f tested %dx", resistance, touches)
}

func bollingerSqueeze(c *Context) (bool, string) {
	bars, f := c.bars(), c.frame()
	r := c.last()
	if r.BBMiddle == 0 {
		return false, ""
	}

	widths := calculator.NaNSeries(f.Len())
	for i := range widths {
		if f.BBMiddle[i] != 0 {
			widths[i] = (f.BBUpper[i] - f.BBLower[i]) / f.BBMiddle[i]
		}
	}
	avgWidth := calculator.At(calculator.RollingMean(widths, 20, 20), -1)
	width := (r.BBUpper - r.BBLower) / r.BBMiddle

	price := bars[len(bars)-1].Close
	distUpper := math.Abs(price-r.BBUpper) / price
	distLower := math.Abs(price-r.BBLower) / price

	return all(
		width < avgWidth*0.6,
		min(distUpper, distLower) < 0.015,
		calculator.MeanVolume(bars, -3, 0) > calculator.MeanVolume(bars, -6, -3),
		r.ADX < 20,
	), ""
}

const (
	divergenceMinBars = 30
	divergenceWindow  = 20
)

// divergence finds RSI divergences over the last 20 bars. The bearish case
// takes precedence over the bullish one.
func divergence(c *Context) (bearish, bullish bool) {
	bars, f := c.bars(), c.frame()
	if len(bars) < divergenceMinBars || len(f.RSI) != len(bars) {
		return false, false
	}
	start := len(bars) - divergenceWindow
	highs := make([]float64, 0, divergenceWindow)
	lows := make([]float64, 0, divergenceWindow)
	for _, b := range bars[start:] {
		highs = append(highs, b.High)
		lows = append(lows, b.Low)
	}
	rsi := f.RSI[start:]

	pricePeaks := extremes(highs, true)
	rsiPeaks := extremes(rsi, true)
	if len(pricePeaks) >= 2 && len(rsiPeaks) >= 2 {
		p1, p2 := pricePeaks[len(pricePeaks)-2], pricePeaks[len(pricePeaks)-1]
		r1, r2 := rsiPeaks[len(rsiPeaks)-2], rsiPeaks[len(rsiPeaks)-1]
		if p2 > p1 && r2 < r1 && r2 > 65 {
			return true, false
		}
	}

	priceLows := extremes(lows, false)
	rsiLows := extremes(rsi, false)
	if len(priceLows) >= 2 && len(rsiLows) >= 2 {
		p1, p2 := priceLows[len(priceLows)-2], priceLows[len(priceLows)-1]
		r1, r2 := rsiLows[len(rsiLows)-2], rsiLows[len(rsiLows)-1]
		if p2 < p1 && r2 > r1 && r2 < 35 {
			return false, true
		}
	}
	return false, false
}

// extremes returns the values equal to the max (or min) of their centred
// three-value window. The first and last values never qualify.
func extremes(s []float64, peaks bool) []float64 {
	var out []float64
	for i := 1; i < len(s)-1; i++ {
		a, b, v := s[i-1], s[i+1], s[i]
		if !calculator.Finite(a, b, v) {
			continue
		}
		if peaks && v >= a && v >= b {
			out = append(out, v)
		}
		if !peaks && v <= a && v <= b {
			out = append(out, v)
		}
	}
	return out
}

func bearishDivergence(c *Context) (bool, string) {
	bearish, _ := divergence(c)
	return bearish, ""
}

func bullishDivergence(c *Context) (bool, string) {
	_, bullish := divergence(c)
	return bullish, ""
}

// Base tier

func highConfluence(c *Context) (bool, string) {
	bars, f, r := c.bars(), c.frame(), c.last()
	met := count(
		r.RSI < 40,
		emaCrossUp(f),
		r.MACD > r.MACDSignal,
		r.ATR > calculator.Mean(f.ATR),
		r.OBV > calculator.Mean(f.OBV),
		r.ADX > 20,
		bars[len(bars)-1].Close > r.EMA200,
		lastVolume(bars) > meanVolume(bars),
		supertrend(f),
		calculator.IsStrongCandle(bars[len(bars)-1]),
	)
	return met >= 6, fmt.Sprintf("%d/10 conditions", met)
}

func strict(c *Context) (bool, string) {
	bars, f, r := c.bars(), c.frame(), c.last()
	if !calculator.Finite(r.RSI, r.EMA9, r.EMA21, r.MACD, r.MACDSignal, r.ADX) {
		return false, ""
	}
	return all(
		r.RSI < 40,
		emaCrossUp(f),
		r.MACD > r.MACDSignal,
		r.ADX > 20,
		lastVolume(bars) > meanVolume(bars)*1.5,
		supertrend(f),
	), ""
}

func breakout(c *Context) (bool, string) {
	bars, f, r := c.bars(), c.frame(), c.last()
	if len(bars) < 10 {
		return false, ""
	}
	resistance := calculator.MaxHigh(bars, -10, -1)
	if !calculator.Finite(resistance) {
		return false, ""
	}
	return all(
		bars[len(bars)-1].Close > resistance,
		lastVolume(bars) > meanVolume(bars),
		r.RSI > 55 && rsiRising(f),
		supertrend(f),
	), ""
}

func technicalReversal(c *Context) (bool, string) {
	bars, f, r := c.bars(), c.frame(), c.last()
	if len(bars) < 3 {
		return false, ""
	}
	prev, last := bars[len(bars)-2], bars[len(bars)-1]
	return all(
		r.OBV > calculator.Mean(f.OBV),
		prev.Close > prev.Open,
		last.Close > prev.Close,
		calculator.IsHammer(last) || calculator.IsBullishEngulfing(prev, last),
		rsiRising(f),
	), ""
}

func intermediate(c *Context) (bool, string) {
	bars, r := c.bars(), c.last()
	return all(
		r.RSI < 50,
		r.EMA9 > r.EMA21,
		r.MACD > r.MACDSignal,
		r.ADX > 15,
		lastVolume(bars) > meanVolume(bars),
	), ""
}

func light(c *Context) (bool, string) {
	bars, r := c.bars(), c.last()
	met := count(
		r.EMA9 > r.EMA21,
		r.ADX > 15,
		lastVolume(bars) > meanVolume(bars),
	)
	return met >= 2, ""
}
