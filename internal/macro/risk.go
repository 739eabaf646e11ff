package macro

import (
	"math"
	"time"
)

// Risk levels from lowest to highest.
const (
	LevelVeryLow  = "VERY_LOW"
	LevelLow      = "LOW"
	LevelModerate = "MODERATE"
	LevelHigh     = "HIGH"
	LevelVeryHigh = "VERY_HIGH"
)

// Component keys of MacroRisk.Components.
const (
	CompFOMC       = "fomc_proximity"
	CompFearGreed  = "fear_greed_extreme"
	CompVolatility = "session_volatility"
	CompSentiment  = "crypto_sentiment"
	CompWeekend    = "weekend"
	CompHour       = "low_liquidity_hour"
	CompRegulatory = "regulatory"
)

const maxRisk = 10.0

// NextFOMC returns the first date strictly after now.
func NextFOMC(dates []time.Time, now time.Time) (time.Time, bool) {
	var next time.Time
	found := false
	for _, d := range dates {
		if d.After(now) && (!found || d.Before(next)) {
			next, found = d, true
		}
	}
	return next, found
}

func fomcRisk(dates []time.Time, now time.Time) float64 {
	next, ok := NextFOMC(dates, now)
	if !ok {
		return 0
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	day := time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, time.UTC)
	days := int(day.Sub(today).Hours() / 24)
	switch {
	case days <= 1:
		return 3
	case days <= 3:
		return 2.5
	case days <= 7:
		return 2
	case days <= 14:
		return 1
	case days <= 21:
		return 0.5
	}
	return 0
}

// fearGreedRisk treats fear as opportunity and greed as risk.
func fearGreedRisk(value int) float64 {
	switch {
	case value >= 90:
		return 2
	case value >= 75:
		return 1.5
	case value >= 55:
		return 0.5
	}
	return 0
}

func sessionVolatilityRisk(now time.Time) float64 {
	h, wd := now.Hour(), now.Weekday()
	risk := 0.0
	if h >= 14 && h <= 16 {
		risk += 0.5
	}
	switch {
	case wd == time.Friday && h >= 20:
		risk++
	case wd == time.Monday && h <= 10:
		risk++
	}
	if wd == time.Tuesday || wd == time.Wednesday {
		risk -= 0.5
	}
	return math.Max(0, math.Min(2, risk))
}

func weekendRisk(now time.Time) float64 {
	h, wd := now.Hour(), now.Weekday()
	switch {
	case wd == time.Saturday || wd == time.Sunday:
		return 1
	case wd == time.Friday && h >= 18:
		return 0.5
	case wd == time.Monday && h <= 12:
		return 0.5
	}
	return 0
}

func hourRisk(now time.Time) float64 {
	switch h := now.Hour(); {
	case h >= 2 && h <= 6:
		return 1
	case h >= 22 || h <= 1:
		return 0.5
	}
	return 0
}

func regulatoryRisk(now time.Time) float64 {
	switch now.Month() {
	case time.March, time.June, time.September, time.December:
		return 0.5
	}
	return 0
}

// Level labels a total risk score.
func Level(total float64) string {
	switch {
	case total >= 8:
		return LevelVeryHigh
	case total >= 6:
		return LevelHigh
	case total >= 4:
		return LevelModerate
	case total >= 2:
		return LevelLow
	}
	return LevelVeryLow
}

// PositionMultiplier scales position size down as risk grows.
func PositionMultiplier(total float64) float64 {
	switch {
	case total >= 8:
		return 0.2
	case total >= 6:
		return 0.4
	case total >= 4:
		return 0.6
	case total >= 2:
		return 0.8
	}
	return 1.0
}

// Components computes every risk component for now. fearGreed < 0 means
// the index is unavailable and both sentiment components are zero.
func Components(dates []time.Time, fearGreed int, now time.Time) map[string]float64 {
	now = now.UTC()
	fg := 0.0
	if fearGreed >= 0 {
		fg = fearGreedRisk(fearGreed)
	}
	return map[string]float64{
		CompFOMC:       fomcRisk(dates, now),
		CompFearGreed:  fg,
		CompVolatility: sessionVolatilityRisk(now),
		CompSentiment:  math.Min(2, fg*1.2),
		CompWeekend:    weekendRisk(now),
		CompHour:       hourRisk(now),
		CompRegulatory: regulatoryRisk(now),
	}
}

// Total sums the components.
func Total(components map[string]float64) float64 {
	var sum float64
	for _, k := range []string{CompFOMC, CompFearGreed, CompVolatility, CompSentiment, CompWeekend, CompHour, CompRegulatory} {
		sum += components[k]
	}
	return sum
}
