package model

import "time"

// RuleFamily separates rules that look at one timeframe from those that
// compare several.
type RuleFamily string

const (
	FamilySingle RuleFamily = "single"
	FamilyCross  RuleFamily = "cross"
)

// SetupMatch is a rule hit produced during one cycle.
type SetupMatch struct {
	SetupID   string
	Name      string
	Priority  string
	BaseScore float64
	Family    RuleFamily
	Timeframe Timeframe // empty for cross-timeframe matches
	Details   string
}

// SignalStatus is the lifecycle state of a MonitoredSignal.
type SignalStatus string

const (
	SignalPending     SignalStatus = "pending"
	SignalOpen        SignalStatus = "open"
	SignalTargetHit   SignalStatus = "target_hit"
	SignalStopHit     SignalStatus = "stop_hit"
	SignalExpired     SignalStatus = "expired"
	SignalUndelivered SignalStatus = "undelivered"
)

// Terminal reports whether no further transition is possible.
func (s SignalStatus) Terminal() bool {
	switch s {
	case SignalTargetHit, SignalStopHit, SignalExpired, SignalUndelivered:
		return true
	}
	return false
}

// MonitoredSignal is a registered trade idea tracked until it resolves.
type MonitoredSignal struct {
	ID           string       `json:"id"`
	Pair         string       `json:"pair"`
	SetupID      string       `json:"setup_id"`
	EntryPrice   float64      `json:"entry_price"`
	StopPrice    float64      `json:"stop_price"`
	TargetPrice  float64      `json:"target_price"`
	Score        float64      `json:"score"`
	Score100     *float64     `json:"score_100,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	Status       SignalStatus `json:"status"`
	ClosedAt     *time.Time   `json:"closed_at,omitempty"`
	ClosingPrice *float64     `json:"closing_price,omitempty"`
}

// RiskReward returns (target-entry)/(entry-stop), or 0 when risk is not positive.
func (s *MonitoredSignal) RiskReward() float64 {
	risk := s.EntryPrice - s.StopPrice
	if risk <= 0 {
		return 0
	}
	return (s.TargetPrice - s.EntryPrice) / risk
}

// ClosureEvent is emitted once per terminal transition of an open signal.
type ClosureEvent struct {
	SignalID  string        `json:"signal_id"`
	Pair      string        `json:"pair"`
	SetupID   string        `json:"setup_id"`
	Entry     float64       `json:"entry"`
	ExitPrice float64       `json:"exit_price"`
	Duration  time.Duration `json:"duration"`
	Outcome   SignalStatus  `json:"outcome"`
	ClosedAt  time.Time     `json:"closed_at"`
}

// Alert is a scored, priced match ready for delivery.
type Alert struct {
	Pair        string
	Match       SetupMatch
	Score       float64
	Score100    *float64
	Components  map[string]float64
	Contexts    []string
	Bonuses     []string
	Price       float64
	Stop        float64
	Target      float64
	Analyses    []*TimeframeAnalysis
	GeneratedAt time.Time
}
