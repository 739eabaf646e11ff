package model

// IndicatorFrame holds one value per bar for every derived series.
// Series are aligned with the bars they were computed from.
type IndicatorFrame struct {
	EMA9   []float64
	EMA21  []float64
	EMA50  []float64
	EMA200 []float64
	SMA20  []float64
	RSI    []float64

	MACD       []float64
	MACDSignal []float64
	MACDHist   []float64

	ADX []float64
	ATR []float64

	BBUpper  []float64
	BBMiddle []float64
	BBLower  []float64

	OBV       []float64
	VolumeSMA []float64

	Supertrend []bool

	// Optional series, nil unless enabled.
	BBWidth   []float64
	BBSqueeze []bool
	VWAP      []float64
	VWAPOk    []bool
}

// Len returns the number of rows in the frame.
func (f *IndicatorFrame) Len() int {
	return len(f.EMA9)
}

// Row is a single-bar view of an IndicatorFrame.
type Row struct {
	EMA9, EMA21, EMA50, EMA200 float64
	SMA20                      float64
	RSI                        float64
	MACD, MACDSignal, MACDHist float64
	ADX, ATR                   float64
	BBUpper, BBMiddle, BBLower float64
	OBV, VolumeSMA             float64
	Supertrend                 bool
	BBWidth                    float64
	BBSqueeze                  bool
	VWAP                       float64
	VWAPOk                     bool
}

// RowAt returns the values at index i. Negative indexes count from the end.
func (f *IndicatorFrame) RowAt(i int) Row {
	n := f.Len()
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return Row{}
	}
	r := Row{
		EMA9: f.EMA9[i], EMA21: f.EMA21[i], EMA50: f.EMA50[i], EMA200: f.EMA200[i],
		SMA20: f.SMA20[i], RSI: f.RSI[i],
		MACD: f.MACD[i], MACDSignal: f.MACDSignal[i], MACDHist: f.MACDHist[i],
		ADX: f.ADX[i], ATR: f.ATR[i],
		BBUpper: f.BBUpper[i], BBMiddle: f.BBMiddle[i], BBLower: f.BBLower[i],
		OBV: f.OBV[i], VolumeSMA: f.VolumeSMA[i],
		Supertrend: f.Supertrend[i],
	}
	if f.BBWidth != nil {
		r.BBWidth = f.BBWidth[i]
	}
	if f.BBSqueeze != nil {
		r.BBSqueeze = f.BBSqueeze[i]
	}
	if f.VWAP != nil {
		r.VWAP = f.VWAP[i]
	}
	if f.VWAPOk != nil {
		r.VWAPOk = f.VWAPOk[i]
	}
	return r
}
