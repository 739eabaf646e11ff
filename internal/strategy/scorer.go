package strategy

import (
	"math"

	"CryptoSentinel/internal/model"

	"github.com/shopspring/decimal"
)

const maxScore = 10.0

// Bonus labels attached to scored alerts.
const (
	BonusAllBullish     = "all timeframes bullish (+1.0)"
	BonusStrength       = "minimum strength >= 6 (+0.5)"
	BonusActiveVolatile = "active volatility (+0.3)"
)

// Score combines a match's base score with bonuses computed over the
// given resolved analyses. The result is capped at 10.
func Score(m model.SetupMatch, analyses []*model.TimeframeAnalysis) (float64, []string) {
	score := m.BaseScore
	var bonuses []string

	if len(analyses) > 0 {
		allBullish := true
		minStrength := math.Inf(1)
		active := false
		for _, a := range analyses {
			if !a.Trend.IsBullish() {
				allBullish = false
			}
			minStrength = math.Min(minStrength, a.Strength)
			if a.Volatility == model.VolatilityNormal || a.Volatility == model.VolatilityHigh {
				active = true
			}
		}
		if allBullish {
			score += 1.0
			bonuses = append(bonuses, BonusAllBullish)
		}
		if minStrength >= 6 {
			score += 0.5
			bonuses = append(bonuses, BonusStrength)
		}
		if active {
			score += 0.3
			bonuses = append(bonuses, BonusActiveVolatile)
		}
	}

	return math.Max(0, math.Min(score, maxScore)), bonuses
}

// Levels derives stop and target from the entry price and ATR. BTC/USDT
// uses tighter multiples than the other pairs.
func Levels(pair string, price, atr float64) (stop, target float64) {
	stopMult, targetMult := 1.5, 3.0
	if pair == "BTC/USDT" {
		stopMult, targetMult = 1.2, 2.5
	}
	p := decimal.NewFromFloat(price)
	a := decimal.NewFromFloat(atr)
	stop = p.Sub(a.Mul(decimal.NewFromFloat(stopMult))).Round(2).InexactFloat64()
	target = p.Add(a.Mul(decimal.NewFromFloat(targetMult))).Round(2).InexactFloat64()
	return stop, target
}
