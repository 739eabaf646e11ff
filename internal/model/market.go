package model

import "time"

// Timeframe is an exchange candle interval such as "1h" or "4h".
type Timeframe string

const (
	Timeframe1h Timeframe = "1h"
	Timeframe4h Timeframe = "4h"
	Timeframe1d Timeframe = "1d"
)

// Bar represents a single candlestick bar.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Closes returns the close column of bars.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Columns splits bars into open, high, low, close and volume series.
func Columns(bars []Bar) (o, h, l, c, v []float64) {
	n := len(bars)
	o = make([]float64, n)
	h = make([]float64, n)
	l = make([]float64, n)
	c = make([]float64, n)
	v = make([]float64, n)
	for i, b := range bars {
		o[i] = b.Open
		h[i] = b.High
		l[i] = b.Low
		c[i] = b.Close
		v[i] = b.Volume
	}
	return
}
