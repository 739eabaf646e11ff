package recorder

import (
	"time"

	"CryptoSentinel/internal/model"
)

// ScanRecord is one analyzed (pair, timeframe) of a cycle.
type ScanRecord struct {
	Pair       string
	Timeframe  model.Timeframe
	Status     model.AnalysisStatus
	Trend      model.Trend
	Strength   float64
	Volatility model.Volatility
	RSI        float64
	Price      float64
	Matches    int
}

// AlertRecord is one alert delivery attempt.
type AlertRecord struct {
	SignalID  string
	Pair      string
	SetupID   string
	Timeframe model.Timeframe
	Score     float64
	Score100  *float64
	Entry     float64
	Stop      float64
	Target    float64
	Delivered bool
	Paper     bool
}

// Stats aggregates recorded activity since a point in time.
type Stats struct {
	Scans      int `json:"scans"`
	Alerts     int `json:"alerts"`
	Closures   int `json:"closures"`
	TargetHits int `json:"target_hits"`
	StopHits   int `json:"stop_hits"`
	Expired    int `json:"expired"`
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordScan(rec *ScanRecord) error
	RecordAlert(rec *AlertRecord) error
	RecordClosure(ev *model.ClosureEvent) error
	Stats(since time.Time) (Stats, error)
	Close() error
}
