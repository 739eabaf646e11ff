package strategy

import (
	"math"
	"testing"
	"time"

	"CryptoSentinel/internal/calculator"
	"CryptoSentinel/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// frameOf builds a frame whose every row equals r.
func frameOf(n int, r model.Row) *model.IndicatorFrame {
	f := &model.IndicatorFrame{
		EMA9: fill(n, r.EMA9), EMA21: fill(n, r.EMA21), EMA50: fill(n, r.EMA50), EMA200: fill(n, r.EMA200),
		SMA20: fill(n, r.SMA20), RSI: fill(n, r.RSI),
		MACD: fill(n, r.MACD), MACDSignal: fill(n, r.MACDSignal), MACDHist: fill(n, r.MACD-r.MACDSignal),
		ADX: fill(n, r.ADX), ATR: fill(n, r.ATR),
		BBUpper: fill(n, r.BBUpper), BBMiddle: fill(n, r.BBMiddle), BBLower: fill(n, r.BBLower),
		OBV: fill(n, r.OBV), VolumeSMA: fill(n, r.VolumeSMA),
		Supertrend: make([]bool, n),
	}
	for i := range f.Supertrend {
		f.Supertrend[i] = r.Supertrend
	}
	return f
}

func flatBars(n int, price, volume float64) []model.Bar {
	bars := make([]model.Bar, n)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = model.Bar{
			Time: start.Add(time.Duration(i) * time.Hour),
			Open: price, High: price * 1.01, Low: price * 0.99, Close: price,
			Volume: volume,
		}
	}
	return bars
}

func analysisOf(tf model.Timeframe, bars []model.Bar, f *model.IndicatorFrame) *model.TimeframeAnalysis {
	a := &model.TimeframeAnalysis{
		Pair: "BTC/USDT", Timeframe: tf, Status: model.StatusOK,
		Bars: bars, Frame: f, LastBar: bars[len(bars)-1], Last: f.RowAt(-1),
	}
	Classify(a)
	return a
}

func waveBars(n int) []model.Bar {
	bars := make([]model.Bar, n)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		p := 30000 + 400*math.Sin(float64(i)/7) + float64(i)*5
		bars[i] = model.Bar{
			Time: start.Add(time.Duration(i) * time.Hour),
			Open: p - 20, High: p + 60, Low: p - 70, Close: p,
			Volume: 1000 + 300*math.Cos(float64(i)/3),
		}
	}
	return bars
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name string
		row  model.Row
		want model.Trend
	}{
		{"full alignment with strong adx", model.Row{EMA9: 4, EMA21: 3, EMA50: 2, EMA200: 1, MACD: 1, MACDSignal: 0, ADX: 30}, model.TrendStrongUp},
		{"partial alignment", model.Row{EMA9: 4, EMA21: 3, EMA50: 2, EMA200: 5, MACD: 1, MACDSignal: 0, ADX: 22}, model.TrendUp},
		{"weak adx dampens", model.Row{EMA9: 1, EMA21: 3, EMA50: 2, EMA200: 5, MACD: 1, MACDSignal: 0, ADX: 10}, model.TrendFlat},
		{"partial downtrend", model.Row{EMA9: 1, EMA21: 2, EMA50: 3, EMA200: 0, MACD: 0, MACDSignal: 1, ADX: 22}, model.TrendDown},
		{"full downtrend", model.Row{EMA9: 1, EMA21: 2, EMA50: 3, EMA200: 4, MACD: 0, MACDSignal: 1, ADX: 30}, model.TrendStrongDown},
		{"undefined inputs", model.Row{EMA9: math.NaN(), EMA21: math.NaN(), MACD: math.NaN(), ADX: math.NaN()}, model.TrendFlat},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyTrend(tc.row))
		})
	}
}

func TestStrength_IsCappedAtTen(t *testing.T) {
	n := 50
	bars := flatBars(n, 100, 100)
	bars[n-1].Volume = 1000
	f := frameOf(n, model.Row{EMA9: 4, EMA21: 3, EMA50: 2, EMA200: 1, MACD: 2, MACDSignal: 1, ADX: 45, RSI: 50})
	f.RSI[n-1] = 80
	f.MACD[n-2] = 1.5

	assert.Equal(t, 10.0, Strength(bars, f))
}

func TestClassifyVolatility(t *testing.T) {
	f := frameOf(40, model.Row{ATR: 1})
	assert.Equal(t, model.VolatilityNormal, ClassifyVolatility(f))

	f.ATR[39] = 2
	assert.Equal(t, model.VolatilityHigh, ClassifyVolatility(f))

	f.ATR[39] = 0.5
	assert.Equal(t, model.VolatilityLow, ClassifyVolatility(f))

	f.ATR = fill(40, math.NaN())
	assert.Equal(t, model.VolatilityUndefined, ClassifyVolatility(f))
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	bars := waveBars(200)
	frame, _ := calculator.Compute(bars, calculator.Options{BandWidth: true, VWAP: true})
	p := &model.PairAnalysis{
		Pair: "BTC/USDT",
		Timeframes: map[model.Timeframe]*model.TimeframeAnalysis{
			model.Timeframe1h: analysisOf(model.Timeframe1h, bars, frame),
			model.Timeframe4h: analysisOf(model.Timeframe4h, bars, frame),
		},
	}
	e := NewEngine([]model.Timeframe{model.Timeframe1h, model.Timeframe4h}, zerolog.Nop())

	first := e.Evaluate(p)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, e.Evaluate(p))
	}
}

func TestEvaluate_FirstBaseMatchWins(t *testing.T) {
	n := 60
	bars := flatBars(n, 100, 100)
	bars[n-1].Volume = 500
	f := frameOf(n, model.Row{
		EMA9: 99, EMA21: 98, EMA50: 97, EMA200: 150, SMA20: 99,
		RSI: 45, MACD: 1, MACDSignal: 0.5, ADX: 18, ATR: 1, OBV: 10,
		BBUpper: 104, BBMiddle: 100, BBLower: 96,
	})
	p := &model.PairAnalysis{
		Pair:       "ETH/USDT",
		Timeframes: map[model.Timeframe]*model.TimeframeAnalysis{model.Timeframe1h: analysisOf(model.Timeframe1h, bars, f)},
	}
	e := NewEngine([]model.Timeframe{model.Timeframe1h, model.Timeframe4h}, zerolog.Nop())

	matches := e.Evaluate(p)

	require.Len(t, matches, 1)
	assert.Equal(t, "setup_intermediario", matches[0].SetupID)
	assert.Equal(t, model.Timeframe1h, matches[0].Timeframe)
	assert.Equal(t, 7.0, matches[0].BaseScore)
}

func TestEvaluate_PanickingPredicateIsNoMatch(t *testing.T) {
	bars := flatBars(60, 100, 100)
	f := frameOf(60, model.Row{})
	p := &model.PairAnalysis{
		Pair:       "ETH/USDT",
		Timeframes: map[model.Timeframe]*model.TimeframeAnalysis{model.Timeframe1h: analysisOf(model.Timeframe1h, bars, f)},
	}
	e := NewEngine([]model.Timeframe{model.Timeframe1h}, zerolog.Nop())
	e.Rules = []Rule{{
		ID: "broken", Family: model.FamilySingle, Tier: TierBase, BaseScore: 7,
		Match: func(c *Context) (bool, string) {
			var s []float64
			return s[3] > 0, ""
		},
	}}

	assert.NotPanics(t, func() {
		assert.Empty(t, e.Evaluate(p))
	})
}

func TestExtremeBreakout(t *testing.T) {
	n := 30
	bars := flatBars(n, 99, 100)
	for i := range bars {
		bars[i].High = 100
	}
	bars[n-1] = model.Bar{Open: 99, High: 101.5, Low: 98.9, Close: 101, Volume: 10000}
	f := frameOf(n, model.Row{RSI: 60, MACD: 1, MACDSignal: 0.2})
	c := &Context{Pair: "BTC/USDT", Analysis: analysisOf(model.Timeframe1h, bars, f)}

	ok, details := extremeBreakout(c)
	assert.True(t, ok)
	assert.Equal(t, "resistance $100.00 tested 14x", details)

	bars[n-1].Volume = 200
	ok, _ = extremeBreakout(c)
	assert.False(t, ok)

	ok, _ = extremeBreakout(&Context{Analysis: analysisOf(model.Timeframe1h, bars[:15], frameOf(15, model.Row{}))})
	assert.False(t, ok, "short history never matches")
}

func TestRSIDivergence_Bullish(t *testing.T) {
	n := 30
	bars := make([]model.Bar, n)
	rsi := make([]float64, n)
	for i := 0; i < n-20; i++ {
		bars[i] = model.Bar{Open: 131, High: 135, Low: 130, Close: 132, Volume: 100}
		rsi[i] = 50
	}
	for j := 0; j < 20; j++ {
		low := 120 - float64(j)
		r := 10 + float64(j)
		switch j {
		case 10:
			low, r = 100, 12
		case 18:
			low, r = 95, 20
		}
		bars[n-20+j] = model.Bar{Open: low + 2, High: low + 5, Low: low, Close: low + 3, Volume: 100}
		rsi[n-20+j] = r
	}
	f := frameOf(n, model.Row{})
	f.RSI = rsi
	c := &Context{Pair: "BTC/USDT", Analysis: analysisOf(model.Timeframe1h, bars, f)}

	bullish, _ := bullishDivergence(c)
	bearish, _ := bearishDivergence(c)
	assert.True(t, bullish)
	assert.False(t, bearish)
}

func TestTimeframeConfluence(t *testing.T) {
	n := 60
	bars := flatBars(n, 100, 100)
	bars[n-1].Volume = 300
	f := frameOf(n, model.Row{EMA9: 4, EMA21: 3, EMA50: 2, EMA200: 1, RSI: 55, MACD: 1, MACDSignal: 0, ADX: 30})
	fast := analysisOf(model.Timeframe1h, bars, f)
	slow := analysisOf(model.Timeframe4h, bars, f)
	fast.Strength, slow.Strength = 7, 6

	ok, details := timeframeConfluence(&Context{Timeframes: map[model.Timeframe]*model.TimeframeAnalysis{
		model.Timeframe1h: fast, model.Timeframe4h: slow,
	}})
	assert.True(t, ok)
	assert.Contains(t, details, "1h: strong_up (strength 7)")

	slow.Status = model.StatusInsufficientData
	ok, _ = timeframeConfluence(&Context{Timeframes: map[model.Timeframe]*model.TimeframeAnalysis{
		model.Timeframe1h: fast, model.Timeframe4h: slow,
	}})
	assert.False(t, ok)
}

func TestScore(t *testing.T) {
	bull := &model.TimeframeAnalysis{Trend: model.TrendStrongUp, Strength: 8, Volatility: model.VolatilityNormal}
	up := &model.TimeframeAnalysis{Trend: model.TrendUp, Strength: 6, Volatility: model.VolatilityLow}
	flat := &model.TimeframeAnalysis{Trend: model.TrendFlat, Strength: 3, Volatility: model.VolatilityLow}

	tests := []struct {
		name     string
		base     float64
		analyses []*model.TimeframeAnalysis
		want     float64
		bonuses  int
	}{
		{"capped at ten", 9.0, []*model.TimeframeAnalysis{bull, up}, 10.0, 3},
		{"all bullish without volatility", 7.0, []*model.TimeframeAnalysis{up}, 8.5, 2},
		{"one flat trend drops the bullish bonus", 7.0, []*model.TimeframeAnalysis{bull, flat}, 7.3, 1},
		{"no analyses", 7.5, nil, 7.5, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, bonuses := Score(model.SetupMatch{BaseScore: tc.base}, tc.analyses)
			assert.InDelta(t, tc.want, got, 1e-9)
			assert.Len(t, bonuses, tc.bonuses)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 10.0)
		})
	}
}

func TestScore_BullishBonusIffEveryTrendBullish(t *testing.T) {
	trends := []model.Trend{model.TrendStrongUp, model.TrendUp, model.TrendFlat, model.TrendDown, model.TrendStrongDown}
	for _, a := range trends {
		for _, b := range trends {
			analyses := []*model.TimeframeAnalysis{
				{Trend: a, Volatility: model.VolatilityLow},
				{Trend: b, Volatility: model.VolatilityLow},
			}
			got, _ := Score(model.SetupMatch{BaseScore: 7}, analyses)
			if a.IsBullish() && b.IsBullish() {
				assert.Equal(t, 8.0, got, "%s/%s", a, b)
			} else {
				assert.Equal(t, 7.0, got, "%s/%s", a, b)
			}
		}
	}
}

func TestLevels(t *testing.T) {
	stop, target := Levels("BTC/USDT", 30000, 500)
	assert.Equal(t, 29400.0, stop)
	assert.Equal(t, 31250.0, target)

	stop, target = Levels("ETH/USDT", 2000, 33.3333)
	assert.Equal(t, 1950.0, stop)
	assert.Equal(t, 2100.0, target)
}

func TestAuxiliaryScore(t *testing.T) {
	a := &model.TimeframeAnalysis{
		LastBar: model.Bar{Close: 100, Volume: 400},
		Last: model.Row{
			EMA9: 99, EMA21: 98, EMA50: 97, SMA20: 98,
			RSI: 70, ATR: 1, VolumeSMA: 200, VWAPOk: true, BBSqueeze: true,
		},
	}
	components := AuxiliaryComponents(a)
	for _, k := range ComponentKeys {
		assert.Equal(t, 1.0, components[k], k)
	}
	assert.Equal(t, 100.0, AuxiliaryScore(components, nil))

	a.Last.VWAPOk, a.Last.BBSqueeze = false, false
	components = AuxiliaryComponents(a)
	assert.Equal(t, 80.0, AuxiliaryScore(components, nil))
	assert.Equal(t, 100.0, AuxiliaryScore(components, map[string]float64{"context": 0}))
	assert.Equal(t, 66.7, AuxiliaryScore(components, map[string]float64{"context": 2}))
}
