package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"CryptoSentinel/internal/collector"
	"CryptoSentinel/internal/config"
	"CryptoSentinel/internal/events"
	"CryptoSentinel/internal/ledger"
	"CryptoSentinel/internal/macro"
	"CryptoSentinel/internal/model"
	"CryptoSentinel/internal/notifier"
	"CryptoSentinel/internal/recorder"
	"CryptoSentinel/internal/strategy"
	"CryptoSentinel/internal/throttle"
	"CryptoSentinel/internal/tracker"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrCycleRunning is returned when a scan is requested while one is in progress.
var ErrCycleRunning = errors.New("scan cycle already running")

// Deps groups the collaborators of a Scheduler.
type Deps struct {
	Fetcher   collector.Fetcher
	Collector *collector.Collector
	Engine    *strategy.Engine
	Gate      *throttle.Gate
	Tracker   *tracker.Manager
	Ledger    *ledger.Ledger
	Macro     *macro.Client // optional
	Sink      notifier.Sink
	Recorder  recorder.Recorder
	Publisher events.Publisher
}

// Scheduler runs scan cycles on a cron schedule and answers operator commands.
type Scheduler struct {
	Cron *cron.Cron
	Deps

	cfg    *config.Config
	ctx    context.Context
	logger zerolog.Logger
	now    func() time.Time

	// RetryInterval is the fixed wait between exchange connectivity attempts.
	RetryInterval time.Duration

	running sync.Mutex
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, cfg *config.Config, deps Deps, logger zerolog.Logger) *Scheduler {
	log := logger.With().Str("component", "scheduler").Logger()
	cl := cronLogger{log}
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.Noop{}
	}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Deps:          deps,
		cfg:           cfg,
		ctx:           ctx,
		logger:        log,
		now:           func() time.Time { return time.Now().UTC() },
		RetryInterval: 2 * time.Second,
	}
}

// WithClock replaces the time source.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Register adds the scan cycle under spec (six-field cron with seconds).
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.scheduledCycle); err != nil {
		return fmt.Errorf("register scan cycle: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) scheduledCycle() {
	if err := s.RunCycle(s.ctx); err != nil {
		s.logger.Error().Err(err).Msg("scan cycle failed")
	}
}

// HandleCommand processes an operator command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	switch command {
	case "/status":
		return notifier.FormatStatus(s.statusReport(s.snapshot(ctx)))
	case "/signals":
		return notifier.FormatSignals(s.Tracker.Open())
	case "/scan":
		if err := s.RunCycle(ctx); err != nil {
			if errors.Is(err, ErrCycleRunning) {
				return "⏳ A scan is already running."
			}
			return notifier.FormatError(err, s.now())
		}
		return ""
	case "/macro":
		if s.Macro == nil {
			return "🌍 Macro context is disabled."
		}
		risk := s.Macro.Risk(ctx)
		summary, err := s.Macro.Summary(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("market summary unavailable")
		}
		return notifier.FormatMacro(summary, risk)
	default:
		return notifier.FormatHelp()
	}
}

// snapshot reads the 1h price and RSI of every configured pair.
func (s *Scheduler) snapshot(ctx context.Context) []notifier.PairStatus {
	out := make([]notifier.PairStatus, 0, len(s.cfg.Scan.Pairs))
	for _, pair := range s.cfg.Scan.Pairs {
		out = append(out, pairStatus(s.Collector.Analyze(ctx, pair), s.Collector.Timeframes))
	}
	return out
}

func (s *Scheduler) statusReport(pairs []notifier.PairStatus) notifier.StatusReport {
	r := notifier.StatusReport{
		Pairs:       pairs,
		OpenSignals: len(s.Tracker.Open()),
		At:          s.now(),
	}
	stats, err := s.Recorder.Stats(s.now().Add(-24 * time.Hour))
	if err != nil {
		s.logger.Warn().Err(err).Msg("read stats failed")
		return r
	}
	r.Alerts24h = stats.Alerts
	r.Closures24h = stats.Closures
	r.TargetHits24 = stats.TargetHits
	return r
}

func pairStatus(pa *model.PairAnalysis, order []model.Timeframe) notifier.PairStatus {
	st := notifier.PairStatus{Pair: pa.Pair}
	if a := primary(pa, order); a != nil {
		st.Price = a.LastBar.Close
		st.RSI = a.Last.RSI
		st.OK = true
	}
	return st
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	l zerolog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
