package strategy

import (
	"math"

	"CryptoSentinel/internal/calculator"
	"CryptoSentinel/internal/model"
)

// emaScore rates the ordering of EMA9/21/50/200 from -2 to 2.
func emaScore(r model.Row) float64 {
	switch {
	case r.EMA9 > r.EMA21 && r.EMA21 > r.EMA50 && r.EMA50 > r.EMA200:
		return 2
	case r.EMA9 > r.EMA21 && r.EMA21 > r.EMA50:
		return 1
	case r.EMA9 < r.EMA21 && r.EMA21 < r.EMA50 && r.EMA50 < r.EMA200:
		return -2
	case r.EMA9 < r.EMA21 && r.EMA21 < r.EMA50:
		return -1
	}
	return 0
}

func adxMultiplier(adx float64) float64 {
	switch {
	case adx > 25:
		return 1.5
	case adx > 20:
		return 1.0
	}
	return 0.5
}

// ClassifyTrend reduces the latest indicator row to a trend label.
func ClassifyTrend(r model.Row) model.Trend {
	macdScore := -1.0
	if r.MACD > r.MACDSignal {
		macdScore = 1
	}
	composite := (emaScore(r) + macdScore) * adxMultiplier(r.ADX)

	switch {
	case composite >= 2.5:
		return model.TrendStrongUp
	case composite >= 1.0:
		return model.TrendUp
	case composite <= -2.5:
		return model.TrendStrongDown
	case composite <= -1.0:
		return model.TrendDown
	}
	return model.TrendFlat
}

// Strength scores trend strength from 0 to 10.
func Strength(bars []model.Bar, f *model.IndicatorFrame) float64 {
	if len(bars) == 0 || f.Len() == 0 {
		return 0
	}
	r := f.RowAt(-1)
	points := 0.0

	switch {
	case r.ADX > 40:
		points += 3
	case r.ADX > 25:
		points += 2
	case r.ADX > 20:
		points += 1
	}

	ratio := bars[len(bars)-1].Volume / meanVolume(bars)
	switch {
	case ratio > 2.0:
		points += 2
	case ratio > 1.3:
		points += 1
	}

	switch {
	case r.EMA9 > r.EMA21 && r.EMA21 > r.EMA50 && r.EMA50 > r.EMA200:
		points += 2
	case r.EMA9 > r.EMA21 && r.EMA21 > r.EMA50:
		points += 1
	}

	if len(f.RSI) >= 5 {
		delta := math.Abs(calculator.At(f.RSI, -1) - calculator.At(f.RSI, -5))
		switch {
		case delta > 15:
			points += 2
		case delta > 8:
			points += 1
		}
	}

	if r.MACD > r.MACDSignal && calculator.At(f.MACD, -1) > calculator.At(f.MACD, -2) {
		points++
	}

	return math.Min(points, 10)
}

// ClassifyVolatility compares the latest ATR with its series mean.
func ClassifyVolatility(f *model.IndicatorFrame) model.Volatility {
	last := calculator.At(f.ATR, -1)
	avg := calculator.Mean(f.ATR)
	if !calculator.Finite(last, avg) {
		return model.VolatilityUndefined
	}
	switch {
	case last > avg*1.5:
		return model.VolatilityHigh
	case last < avg*0.7:
		return model.VolatilityLow
	}
	return model.VolatilityNormal
}

// Classify fills the trend, strength and volatility of an analysis.
func Classify(a *model.TimeframeAnalysis) {
	if a.Frame == nil || a.Frame.Len() == 0 {
		return
	}
	a.Trend = ClassifyTrend(a.Frame.RowAt(-1))
	a.Strength = Strength(a.Bars, a.Frame)
	a.Volatility = ClassifyVolatility(a.Frame)
}

func meanVolume(bars []model.Bar) float64 {
	if len(bars) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, b := range bars {
		sum += b.Volume
	}
	return sum / float64(len(bars))
}
