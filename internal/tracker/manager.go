package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"CryptoSentinel/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrRejected is returned when a candidate fails registration checks.
	ErrRejected = errors.New("signal rejected")
	// ErrNotFound is returned for unknown signal ids.
	ErrNotFound = errors.New("signal not found")
)

const (
	// MinRiskReward is the lowest accepted (target-entry)/(entry-stop).
	MinRiskReward = 1.5
	// MinScore is the lowest accepted 0-10 score.
	MinScore = 6.0
	// Expiry closes open signals that hit neither level.
	Expiry = 24 * time.Hour
)

// Candidate is a trade idea submitted for registration.
type Candidate struct {
	Pair     string
	SetupID  string
	Entry    float64
	Stop     float64
	Target   float64
	Score    float64
	Score100 *float64
}

// PriceSource supplies the latest traded price of a pair.
type PriceSource interface {
	FetchLastPrice(ctx context.Context, pair string) (float64, error)
}

// Manager owns the monitored signals and their persisted store.
type Manager struct {
	mu       sync.Mutex
	signals  []*model.MonitoredSignal
	filePath string
	now      func() time.Time
	logger   zerolog.Logger
}

// NewManager creates a Manager, loading existing signals from disk.
// Signals left pending by an interrupted delivery are reopened: the alert
// may have reached the operator, so they stay tracked.
func NewManager(filePath string, logger zerolog.Logger) (*Manager, error) {
	signals, err := LoadSignals(filePath)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		signals:  signals,
		filePath: filePath,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With().Str("component", "tracker").Logger(),
	}
	if err := m.recoverPending(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) recoverPending() error {
	recovered := 0
	for _, s := range m.signals {
		if s.Status != model.SignalPending {
			continue
		}
		s.Status = model.SignalOpen
		recovered++
		m.logger.Warn().Str("id", s.ID).Str("pair", s.Pair).Msg("pending signal with unknown delivery reopened")
	}
	if recovered == 0 {
		return nil
	}
	if err := m.save(); err != nil {
		return fmt.Errorf("persist recovered signals: %w", err)
	}
	return nil
}

// WithClock replaces the time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Validate applies the registration checks to c.
func Validate(c Candidate) error {
	switch {
	case c.Pair == "" || c.SetupID == "":
		return fmt.Errorf("%w: pair and setup are required", ErrRejected)
	case c.Entry <= 0 || c.Stop <= 0 || c.Target <= 0:
		return fmt.Errorf("%w: prices must be positive", ErrRejected)
	case !(c.Stop < c.Entry && c.Entry < c.Target):
		return fmt.Errorf("%w: need stop < entry < target, got %.2f/%.2f/%.2f", ErrRejected, c.Stop, c.Entry, c.Target)
	}
	if rr := (c.Target - c.Entry) / (c.Entry - c.Stop); !(rr >= MinRiskReward) {
		return fmt.Errorf("%w: risk/reward %.2f below %.1f", ErrRejected, rr, MinRiskReward)
	}
	if !(c.Score >= MinScore) {
		return fmt.Errorf("%w: score %.1f below %.1f", ErrRejected, c.Score, MinScore)
	}
	return nil
}

// Register validates c and stores it as an open signal.
func (m *Manager) Register(c Candidate) (*model.MonitoredSignal, error) {
	return m.add(c, model.SignalOpen)
}

// Stage validates c and stores it as pending until delivery is confirmed.
func (m *Manager) Stage(c Candidate) (*model.MonitoredSignal, error) {
	return m.add(c, model.SignalPending)
}

func (m *Manager) add(c Candidate, status model.SignalStatus) (*model.MonitoredSignal, error) {
	if err := Validate(c); err != nil {
		m.logger.Warn().Err(err).Str("pair", c.Pair).Str("setup", c.SetupID).Msg("signal not registered")
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s := &model.MonitoredSignal{
		ID:          uuid.NewString(),
		Pair:        c.Pair,
		SetupID:     c.SetupID,
		EntryPrice:  c.Entry,
		StopPrice:   c.Stop,
		TargetPrice: c.Target,
		Score:       c.Score,
		Score100:    c.Score100,
		CreatedAt:   m.now(),
		Status:      status,
	}
	m.signals = append(m.signals, s)
	if err := m.save(); err != nil {
		m.signals = m.signals[:len(m.signals)-1]
		return nil, fmt.Errorf("persist signal: %w", err)
	}

	m.logger.Info().
		Str("id", s.ID).
		Str("pair", s.Pair).
		Str("setup", s.SetupID).
		Str("status", string(s.Status)).
		Msg("signal registered")
	cp := *s
	return &cp, nil
}

// Activate moves a pending signal to open after successful delivery.
func (m *Manager) Activate(id string) error {
	return m.resolvePending(id, model.SignalOpen)
}

// Abandon marks a pending signal undelivered.
func (m *Manager) Abandon(id string) error {
	return m.resolvePending(id, model.SignalUndelivered)
}

func (m *Manager) resolvePending(id string, status model.SignalStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.find(id)
	if s == nil {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if s.Status != model.SignalPending {
		return fmt.Errorf("signal %s is %s, not pending", id, s.Status)
	}
	s.Status = status
	if status.Terminal() {
		now := m.now()
		s.ClosedAt = &now
	}
	return m.save()
}

// Sweep checks every open signal against the latest price and closes those
// that reached target, stop or expiry. Prices are fetched without holding
// the lock. Each closure is persisted before its event is emitted, and a
// closure that cannot be persisted is rolled back.
func (m *Manager) Sweep(ctx context.Context, prices PriceSource) []model.ClosureEvent {
	var events []model.ClosureEvent
	for _, snap := range m.Open() {
		if ctx.Err() != nil {
			break
		}

		price, err := prices.FetchLastPrice(ctx, snap.Pair)
		if err != nil {
			m.logger.Warn().Err(err).Str("id", snap.ID).Str("pair", snap.Pair).Msg("price unavailable, signal stays open")
			continue
		}
		if ev, ok := m.close(snap.ID, price); ok {
			events = append(events, ev)
		}
	}
	return events
}

func (m *Manager) close(id string, price float64) (model.ClosureEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.find(id)
	if s == nil || s.Status != model.SignalOpen {
		return model.ClosureEvent{}, false
	}

	now := m.now()
	var outcome model.SignalStatus
	switch {
	case price >= s.TargetPrice:
		outcome = model.SignalTargetHit
	case price <= s.StopPrice:
		outcome = model.SignalStopHit
	case now.Sub(s.CreatedAt) >= Expiry:
		outcome = model.SignalExpired
	default:
		return model.ClosureEvent{}, false
	}

	prev := *s
	s.Status = outcome
	s.ClosedAt = &now
	p := price
	s.ClosingPrice = &p
	if err := m.save(); err != nil {
		*s = prev
		m.logger.Error().Err(err).Str("id", s.ID).Msg("failed to persist closure, signal stays open")
		return model.ClosureEvent{}, false
	}

	m.logger.Info().
		Str("id", s.ID).
		Str("pair", s.Pair).
		Str("outcome", string(outcome)).
		Float64("price", price).
		Msg("signal closed")
	return model.ClosureEvent{
		SignalID:  s.ID,
		Pair:      s.Pair,
		SetupID:   s.SetupID,
		Entry:     s.EntryPrice,
		ExitPrice: price,
		Duration:  now.Sub(s.CreatedAt),
		Outcome:   outcome,
		ClosedAt:  now,
	}, true
}

// Open returns copies of the open signals.
func (m *Manager) Open() []model.MonitoredSignal {
	return m.filter(func(s *model.MonitoredSignal) bool { return s.Status == model.SignalOpen })
}

// All returns copies of every stored signal.
func (m *Manager) All() []model.MonitoredSignal {
	return m.filter(func(*model.MonitoredSignal) bool { return true })
}

// Get returns a copy of the signal with id.
func (m *Manager) Get(id string) (model.MonitoredSignal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.find(id)
	if s == nil {
		return model.MonitoredSignal{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return *s, nil
}

func (m *Manager) filter(keep func(*model.MonitoredSignal) bool) []model.MonitoredSignal {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.MonitoredSignal, 0, len(m.signals))
	for _, s := range m.signals {
		if keep(s) {
			out = append(out, *s)
		}
	}
	return out
}

func (m *Manager) find(id string) *model.MonitoredSignal {
	for _, s := range m.signals {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (m *Manager) save() error {
	return SaveSignals(m.filePath, m.signals)
}
