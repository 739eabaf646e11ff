package calculator

import (
	"math"
	"sort"
)

// Mean returns the average of the defined values in s, NaN if none.
func Mean(s []float64) float64 {
	var sum float64
	var n int
	for _, v := range s {
		if isNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// RollingMean returns the trailing mean over window values. Cells with
// fewer than minPeriods defined values are NaN.
func RollingMean(s []float64, window, minPeriods int) []float64 {
	out := NaNSeries(len(s))
	if window <= 0 {
		return out
	}
	for i := range s {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		var sum float64
		var n int
		for _, v := range s[start : i+1] {
			if !isNaN(v) {
				sum += v
				n++
			}
		}
		if n >= minPeriods && n > 0 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// RollingQuantile returns the trailing q-quantile over a full window using
// linear interpolation between order statistics. Incomplete windows are NaN.
func RollingQuantile(s []float64, window int, q float64) []float64 {
	out := NaNSeries(len(s))
	for i := window - 1; i < len(s); i++ {
		out[i] = Quantile(s[i-window+1:i+1], q)
	}
	return out
}

// Quantile returns the q-quantile of the defined values in s.
func Quantile(s []float64, q float64) float64 {
	vals := make([]float64, 0, len(s))
	for _, v := range s {
		if !isNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	pos := q * float64(len(vals)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return vals[lo]
	}
	return vals[lo] + (vals[hi]-vals[lo])*(pos-float64(lo))
}

// Median returns the 0.5 quantile of s.
func Median(s []float64) float64 {
	return Quantile(s, 0.5)
}
