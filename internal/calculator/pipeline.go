package calculator

import (
	"math"

	"CryptoSentinel/internal/model"

	"github.com/markcheno/go-talib"
)

// Options toggles the optional indicator series.
type Options struct {
	BandWidth bool
	VWAP      bool
}

const (
	supertrendPeriod     = 10
	supertrendMultiplier = 3.0
	vwapMaxPremium       = 0.005
)

// Compute derives the full IndicatorFrame from cleaned bars. It is pure:
// the same bars always produce the same frame. Indicators that cannot be
// computed are returned as all-NaN series and reported in the error slice.
func Compute(bars []model.Bar, opts Options) (*model.IndicatorFrame, []error) {
	_, high, low, closes, volume := model.Columns(bars)
	n := len(bars)
	var errs []error

	series := func(name string, lookback int, fn func() [][]float64) [][]float64 {
		out, err := guarded(name, n, lookback, fn)
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		for i := range out {
			out[i] = FillBackForward(MaskWarmup(out[i], lookback))
		}
		return out
	}
	single := func(name string, lookback int, fn func() []float64) []float64 {
		out := series(name, lookback, func() [][]float64 { return [][]float64{fn()} })
		if out == nil {
			return NaNSeries(n)
		}
		return out[0]
	}
	multi := func(name string, lookback, count int, fn func() [][]float64) [][]float64 {
		out := series(name, lookback, fn)
		if out == nil {
			out = make([][]float64, count)
			for i := range out {
				out[i] = NaNSeries(n)
			}
		}
		return out
	}

	f := &model.IndicatorFrame{}
	f.EMA9 = single("ema9", 8, func() []float64 { return talib.Ema(closes, 9) })
	f.EMA21 = single("ema21", 20, func() []float64 { return talib.Ema(closes, 21) })
	f.EMA50 = single("ema50", 49, func() []float64 { return talib.Ema(closes, 50) })
	f.EMA200 = single("ema200", 199, func() []float64 { return talib.Ema(closes, 200) })
	f.SMA20 = single("sma20", 19, func() []float64 { return talib.Sma(closes, 20) })
	f.RSI = single("rsi14", 14, func() []float64 { return talib.Rsi(closes, 14) })

	macd := multi("macd", 33, 3, func() [][]float64 {
		m, s, h := talib.Macd(closes, 12, 26, 9)
		return [][]float64{m, s, h}
	})
	f.MACD, f.MACDSignal, f.MACDHist = macd[0], macd[1], macd[2]

	f.ADX = single("adx14", 27, func() []float64 { return talib.Adx(high, low, closes, 14) })
	f.ATR = single("atr14", 14, func() []float64 { return talib.Atr(high, low, closes, 14) })

	bb := multi("bbands", 19, 3, func() [][]float64 {
		u, m, l := talib.BBands(closes, 20, 2, 2, talib.SMA)
		return [][]float64{u, m, l}
	})
	f.BBUpper, f.BBMiddle, f.BBLower = bb[0], bb[1], bb[2]

	f.OBV = single("obv", 0, func() []float64 { return talib.Obv(closes, volume) })
	f.VolumeSMA = RollingMean(volume, 20, 1)

	atr10 := single("atr10", supertrendPeriod, func() []float64 {
		return talib.Atr(high, low, closes, supertrendPeriod)
	})
	f.Supertrend = Supertrend(bars, atr10, supertrendMultiplier)

	if opts.BandWidth {
		f.BBWidth, f.BBSqueeze = BandWidth(f.BBUpper, f.BBMiddle, f.BBLower)
	}
	if opts.VWAP {
		f.VWAP, f.VWAPOk = VWAP(bars)
	}
	return f, errs
}

// Supertrend flags bars closing above the lower ATR band
// (high+low)/2 - multiplier*atr.
func Supertrend(bars []model.Bar, atr []float64, multiplier float64) []bool {
	out := make([]bool, len(bars))
	for i, b := range bars {
		if i >= len(atr) || isNaN(atr[i]) {
			continue
		}
		lower := (b.High+b.Low)/2 - multiplier*atr[i]
		out[i] = b.Close > lower
	}
	return out
}

// BandWidth returns (upper-lower)/middle per bar and a squeeze flag set when
// the width is below the 20th percentile of the trailing 50 widths, or below
// the median when fewer than 50 bars are available.
func BandWidth(upper, middle, lower []float64) ([]float64, []bool) {
	n := len(middle)
	width := NaNSeries(n)
	for i := range width {
		if middle[i] != 0 && Finite(upper[i], middle[i], lower[i]) {
			width[i] = (upper[i] - lower[i]) / middle[i]
		}
	}
	var threshold float64
	if n >= 50 {
		threshold = At(RollingQuantile(width, 50, 0.2), -1)
	} else {
		threshold = Median(width)
	}
	squeeze := make([]bool, n)
	for i, w := range width {
		squeeze[i] = !isNaN(w) && !isNaN(threshold) && w < threshold
	}
	return FillBackForward(width), squeeze
}

// VWAP returns the cumulative volume-weighted close and a flag set when the
// close sits above it by less than 0.5%.
func VWAP(bars []model.Bar) ([]float64, []bool) {
	vwap := NaNSeries(len(bars))
	ok := make([]bool, len(bars))
	var pv, vv float64
	for i, b := range bars {
		pv += b.Close * b.Volume
		vv += b.Volume
		if vv == 0 {
			continue
		}
		vwap[i] = pv / vv
		ok[i] = b.Close > vwap[i] && (b.Close-vwap[i])/vwap[i] < vwapMaxPremium
	}
	return FillBackForward(vwap), ok
}

// VolumeRatio is the last volume over its trailing 20-bar mean.
func VolumeRatio(bars []model.Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	vols := make([]float64, len(bars))
	for i, b := range bars {
		vols[i] = b.Volume
	}
	avg := At(RollingMean(vols, 20, 1), -1)
	if avg == 0 || math.IsNaN(avg) {
		return 0
	}
	return vols[len(vols)-1] / avg
}
