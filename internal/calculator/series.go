package calculator

import (
	"fmt"
	"math"
)

// IndicatorError records an indicator that could not be computed.
// The matching series in the frame is entirely NaN.
type IndicatorError struct {
	Indicator string
	Err       error
}

func (e *IndicatorError) Error() string {
	return fmt.Sprintf("indicator %s: %v", e.Indicator, e.Err)
}

func (e *IndicatorError) Unwrap() error { return e.Err }

// NaNSeries returns n NaN values.
func NaNSeries(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// guarded runs fn and converts panics or misaligned output into an error.
func guarded(name string, n, lookback int, fn func() [][]float64) (out [][]float64, err error) {
	if n <= lookback {
		return nil, &IndicatorError{Indicator: name, Err: fmt.Errorf("need more than %d bars, have %d", lookback, n)}
	}
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &IndicatorError{Indicator: name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	out = fn()
	for _, s := range out {
		if len(s) != n {
			return nil, &IndicatorError{Indicator: name, Err: fmt.Errorf("got %d values for %d bars", len(s), n)}
		}
	}
	return out, nil
}

// MaskWarmup returns a copy of s with the first lookback values set to NaN.
func MaskWarmup(s []float64, lookback int) []float64 {
	out := make([]float64, len(s))
	copy(out, s)
	for i := 0; i < lookback && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}

// FillBackForward fills NaN cells with the next defined value, then any
// trailing NaN cells with the previous defined value. It works in place.
func FillBackForward(s []float64) []float64 {
	next := math.NaN()
	for i := len(s) - 1; i >= 0; i-- {
		if isNaN(s[i]) {
			s[i] = next
		} else {
			next = s[i]
		}
	}
	prev := math.NaN()
	for i := range s {
		if isNaN(s[i]) {
			s[i] = prev
		} else {
			prev = s[i]
		}
	}
	return s
}

// Finite reports whether every value is a real number.
func Finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// At returns s[i] with negative indexes counting from the end, or NaN when
// out of range.
func At(s []float64, i int) float64 {
	if i < 0 {
		i += len(s)
	}
	if i < 0 || i >= len(s) {
		return math.NaN()
	}
	return s[i]
}

// Clip bounds v to [lo, hi].
func Clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func isNaN(v float64) bool { return math.IsNaN(v) }
