package strategy

import (
	"math"

	"CryptoSentinel/internal/calculator"
	"CryptoSentinel/internal/model"
)

// ComponentKeys lists the auxiliary score components in display order.
var ComponentKeys = []string{"trend", "momentum", "volume", "volatility", "context"}

// AuxiliaryComponents returns the five [0,1] components of the 0-100 score
// for the latest bar of an analysis.
func AuxiliaryComponents(a *model.TimeframeAnalysis) map[string]float64 {
	r := a.Last
	price := a.LastBar.Close

	trend := mean(b2f(r.EMA9 > r.EMA21), b2f(r.EMA21 > r.EMA50), b2f(price > r.EMA50))

	rsiPart := 0.0
	if calculator.Finite(r.RSI) {
		rsiPart = calculator.Clip((r.RSI-30)/40, 0, 1)
	}
	momentum := mean(rsiPart, b2f(price > r.SMA20))

	volume := 0.0
	if r.VolumeSMA > 0 {
		volume = calculator.Clip(a.LastBar.Volume/r.VolumeSMA, 0, 2) / 2
	}

	volatility := 0.2
	if price > 0 && calculator.Finite(r.ATR) {
		switch pct := r.ATR / price; {
		case pct < 0.005:
			volatility = 0.25
		case pct < 0.015:
			volatility = 1.0
		case pct < 0.03:
			volatility = 0.6
		}
	}

	context := mean(b2f(r.VWAPOk), b2f(r.BBSqueeze))

	return map[string]float64{
		"trend":      trend,
		"momentum":   momentum,
		"volume":     volume,
		"volatility": volatility,
		"context":    context,
	}
}

// AuxiliaryScore is the weighted mean of the components scaled to 0-100
// and rounded to one decimal. Missing weights count as 1.0.
func AuxiliaryScore(components, weights map[string]float64) float64 {
	var sum, total float64
	for _, k := range ComponentKeys {
		v, ok := components[k]
		if !ok {
			continue
		}
		w, ok := weights[k]
		if !ok {
			w = 1.0
		}
		if w <= 0 {
			continue
		}
		sum += v * w
		total += w
	}
	if total == 0 {
		return 0
	}
	return math.Round(sum/total*1000) / 10
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func mean(vals ...float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s / float64(len(vals))
}
