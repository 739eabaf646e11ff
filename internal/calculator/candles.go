package calculator

import (
	"math"

	"CryptoSentinel/internal/model"
)

// IsStrongCandle reports a body larger than both shadows.
func IsStrongCandle(b model.Bar) bool {
	if !Finite(b.Open, b.High, b.Low, b.Close) {
		return false
	}
	body := math.Abs(b.Close - b.Open)
	if body == 0 {
		return false
	}
	upper := b.High - math.Max(b.Close, b.Open)
	lower := math.Min(b.Close, b.Open) - b.Low
	return body > upper && body > lower
}

// IsHammer reports a lower shadow over twice the body with a short upper shadow.
func IsHammer(b model.Bar) bool {
	body := math.Abs(b.Close - b.Open)
	upper := b.High - math.Max(b.Close, b.Open)
	lower := math.Min(b.Close, b.Open) - b.Low
	return body > 0 && lower > 2*body && upper < body
}

// IsBullishEngulfing reports a bullish last bar whose body engulfs the
// bearish previous bar.
func IsBullishEngulfing(prev, last model.Bar) bool {
	return last.Close > last.Open &&
		prev.Close < prev.Open &&
		last.Open < prev.Close &&
		last.Close > prev.Open
}
