package model

// AnalysisStatus tags the outcome of validating one timeframe.
type AnalysisStatus string

const (
	StatusOK               AnalysisStatus = "ok"
	StatusInsufficientData AnalysisStatus = "insufficient_data"
	StatusInvalidData      AnalysisStatus = "invalid_data"
	StatusError            AnalysisStatus = "error"
)

// Trend labels produced by the trend classifier.
type Trend string

const (
	TrendStrongUp   Trend = "strong_up"
	TrendUp         Trend = "up"
	TrendFlat       Trend = "flat"
	TrendDown       Trend = "down"
	TrendStrongDown Trend = "strong_down"
)

// IsBullish reports whether t is up or strong_up.
func (t Trend) IsBullish() bool {
	return t == TrendUp || t == TrendStrongUp
}

// Volatility labels produced by the trend classifier.
type Volatility string

const (
	VolatilityLow    Volatility = "low"
	VolatilityNormal Volatility = "normal"
	VolatilityHigh   Volatility = "high"
	// VolatilityUndefined is used when ATR could not be computed.
	VolatilityUndefined Volatility = "undefined"
)

// TimeframeAnalysis is the per-cycle result for one (pair, timeframe).
type TimeframeAnalysis struct {
	Pair       string
	Timeframe  Timeframe
	Status     AnalysisStatus
	Reason     string
	Trend      Trend
	Strength   float64
	Volatility Volatility
	LastBar    Bar
	Last       Row
	Bars       []Bar
	Frame      *IndicatorFrame
}

// OK reports whether the timeframe resolved.
func (a *TimeframeAnalysis) OK() bool {
	return a != nil && a.Status == StatusOK
}

// PairAnalysis groups every timeframe of a pair for one cycle.
type PairAnalysis struct {
	Pair       string
	Timeframes map[Timeframe]*TimeframeAnalysis
}

// Resolved returns the analyses with status ok, in the given order.
func (p *PairAnalysis) Resolved(order []Timeframe) []*TimeframeAnalysis {
	var out []*TimeframeAnalysis
	for _, tf := range order {
		if a := p.Timeframes[tf]; a.OK() {
			out = append(out, a)
		}
	}
	return out
}
