package calculator

import (
	"math"

	"CryptoSentinel/internal/model"
)

// MaxHigh returns the highest high in bars[from:to], where negative
// indexes count from the end as in bars[len+from : len+to].
func MaxHigh(bars []model.Bar, from, to int) float64 {
	lo, hi := window(len(bars), from, to)
	if lo >= hi {
		return math.NaN()
	}
	m := math.Inf(-1)
	for _, b := range bars[lo:hi] {
		if b.High > m {
			m = b.High
		}
	}
	return m
}

// CountNear counts highs in bars[from:to] within tol (fractional) of level.
func CountNear(bars []model.Bar, from, to int, level, tol float64) int {
	lo, hi := window(len(bars), from, to)
	count := 0
	for i := lo; i < hi; i++ {
		h := bars[i].High
		if h >= level*(1-tol) && h <= level*(1+tol) {
			count++
		}
	}
	return count
}

// MeanVolume averages volume over bars[from:to].
func MeanVolume(bars []model.Bar, from, to int) float64 {
	lo, hi := window(len(bars), from, to)
	if lo >= hi {
		return math.NaN()
	}
	var sum float64
	for _, b := range bars[lo:hi] {
		sum += b.Volume
	}
	return sum / float64(hi-lo)
}

func window(n, from, to int) (int, int) {
	if from < 0 {
		from += n
	}
	if to <= 0 {
		to += n
	}
	if from < 0 {
		from = 0
	}
	if to > n {
		to = n
	}
	return from, to
}
