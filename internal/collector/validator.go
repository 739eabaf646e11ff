package collector

import (
	"fmt"
	"math"

	"CryptoSentinel/internal/model"
)

const (
	// MinBarsSingle is the minimum history for a single-timeframe scan.
	MinBarsSingle = 50
	// MinBarsMulti is the minimum history per timeframe in multi-timeframe mode.
	MinBarsMulti = 100

	maxNonFiniteRatio = 0.10
)

// Validation is the outcome of ValidateAndClean.
type Validation struct {
	Bars   []model.Bar
	Status model.AnalysisStatus
	Reason string
}

// ValidateAndClean checks a raw bar sequence and returns the cleaned copy.
// It never fails outward: problems are reported through Status.
func ValidateAndClean(raw []model.Bar, minBars int) Validation {
	if len(raw) < minBars {
		return Validation{
			Status: model.StatusInsufficientData,
			Reason: fmt.Sprintf("%d bars, need %d", len(raw), minBars),
		}
	}

	columns := []struct {
		name string
		get  func(model.Bar) float64
	}{
		{"open", func(b model.Bar) float64 { return b.Open }},
		{"high", func(b model.Bar) float64 { return b.High }},
		{"low", func(b model.Bar) float64 { return b.Low }},
		{"close", func(b model.Bar) float64 { return b.Close }},
		{"volume", func(b model.Bar) float64 { return b.Volume }},
	}
	for _, col := range columns {
		bad := 0
		for _, b := range raw {
			v := col.get(b)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				bad++
			}
		}
		if float64(bad) > float64(len(raw))*maxNonFiniteRatio {
			return Validation{
				Status: model.StatusInvalidData,
				Reason: fmt.Sprintf("%s has %d non-finite values", col.name, bad),
			}
		}
	}

	cleaned := Clean(raw)
	if len(cleaned) < minBars {
		return Validation{
			Status: model.StatusInsufficientData,
			Reason: fmt.Sprintf("%d bars after cleaning, need %d", len(cleaned), minBars),
		}
	}

	for _, b := range cleaned {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return Validation{
				Status: model.StatusInvalidData,
				Reason: fmt.Sprintf("non-positive price at %s", b.Time.Format("2006-01-02 15:04")),
			}
		}
	}

	return Validation{Bars: cleaned, Status: model.StatusOK}
}

// Clean drops bars with non-finite fields, high below low or non-positive
// volume. The result is a new contiguous slice.
func Clean(raw []model.Bar) []model.Bar {
	out := make([]model.Bar, 0, len(raw))
	for _, b := range raw {
		if !finiteBar(b) || b.High < b.Low || b.Volume <= 0 {
			continue
		}
		out = append(out, b)
	}
	return out
}

func finiteBar(b model.Bar) bool {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
