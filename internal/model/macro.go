package model

import "time"

// MacroRisk summarises the external risk context for one point in time.
type MacroRisk struct {
	Score              float64            `json:"score"`
	Level              string             `json:"level"`
	Components         map[string]float64 `json:"components"`
	PositionMultiplier float64            `json:"position_multiplier"`
	FearGreed          int                `json:"fear_greed"`
	FearGreedLabel     string             `json:"fear_greed_label"`
	NextFOMC           *time.Time         `json:"next_fomc,omitempty"`
	Degraded           bool               `json:"degraded"`
	At                 time.Time          `json:"at"`
}

// MarketSummary is the headline macro block sent once per run.
type MarketSummary struct {
	TotalMarketCapUSD float64
	BTCDominance      float64
	FearGreed         int
	FearGreedLabel    string
}
