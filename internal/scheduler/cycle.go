package scheduler

import (
	"context"
	"fmt"
	"time"

	"CryptoSentinel/internal/collector"
	"CryptoSentinel/internal/model"
	"CryptoSentinel/internal/notifier"
	"CryptoSentinel/internal/recorder"
	"CryptoSentinel/internal/strategy"
	"CryptoSentinel/internal/tracker"

	"github.com/cenkalti/backoff/v4"
)

// connectivityRetries is the number of extra exchange ping attempts.
const connectivityRetries = 2

// CycleResult summarises one scan cycle.
type CycleResult struct {
	Pairs     int
	Matches   int
	Delivered int
	Closures  int
}

// RunCycle sweeps open signals, then scans every pair and delivers new
// alerts. Only an unreachable exchange fails the cycle.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	_, err := s.runCycle(ctx)
	return err
}

func (s *Scheduler) runCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult
	if !s.running.TryLock() {
		return res, ErrCycleRunning
	}
	defer s.running.Unlock()

	start := s.now()
	s.logger.Info().Int("pairs", len(s.cfg.Scan.Pairs)).Msg("scan cycle started")

	if err := s.ping(ctx); err != nil {
		err = fmt.Errorf("exchange unreachable: %w", err)
		s.send(ctx, notifier.FormatError(err, s.now()))
		return res, err
	}

	risk := s.macroContext(ctx)
	res.Closures = s.sweep(ctx)

	pairs := s.cfg.Scan.Pairs
	if s.cfg.Features.LiquidityFilter {
		pairs = collector.FilterLiquid(ctx, s.Fetcher, pairs, s.cfg.Features.LiquidityMin30d, s.logger)
	}

	statuses := make([]notifier.PairStatus, 0, len(pairs))
	for _, pair := range pairs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		pa := s.Collector.Analyze(ctx, pair)
		matches := s.Engine.Evaluate(pa)
		s.recordScans(pa, matches)
		statuses = append(statuses, pairStatus(pa, s.Collector.Timeframes))

		res.Pairs++
		res.Matches += len(matches)
		for _, m := range matches {
			if s.processMatch(ctx, pa, m, risk) {
				res.Delivered++
			}
		}
	}

	if res.Delivered == 0 {
		s.send(ctx, notifier.FormatStatus(s.statusReport(statuses)))
	}

	s.logger.Info().
		Int("pairs", res.Pairs).
		Int("matches", res.Matches).
		Int("delivered", res.Delivered).
		Int("closures", res.Closures).
		Dur("elapsed", s.now().Sub(start)).
		Msg("scan cycle finished")
	return res, nil
}

func (s *Scheduler) ping(ctx context.Context) error {
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.RetryInterval), connectivityRetries),
		ctx,
	)
	return backoff.RetryNotify(
		func() error { return s.Fetcher.Ping(ctx) },
		b,
		func(err error, wait time.Duration) {
			s.logger.Warn().Err(err).Dur("retry_in", wait).Msg("exchange ping failed")
		},
	)
}

// macroContext returns the risk attached to alerts. When the macro block
// is sent once per run the alerts carry no risk line.
func (s *Scheduler) macroContext(ctx context.Context) *model.MacroRisk {
	if s.Macro == nil {
		return nil
	}
	risk := s.Macro.Risk(ctx)
	if !s.cfg.Features.MacroOnce {
		return &risk
	}
	if s.Macro.TryMarkSent() {
		summary, err := s.Macro.Summary(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("market summary unavailable")
		}
		s.send(ctx, notifier.FormatMacro(summary, risk))
	}
	return nil
}

func (s *Scheduler) sweep(ctx context.Context) int {
	closures := s.Tracker.Sweep(ctx, s.Fetcher)
	for i := range closures {
		ev := closures[i]
		s.send(ctx, notifier.FormatClosure(ev))
		if s.Ledger != nil {
			if err := s.Ledger.Close(ev); err != nil {
				s.logger.Error().Err(err).Str("signal_id", ev.SignalID).Msg("ledger update failed")
			}
		}
		if err := s.Recorder.RecordClosure(&ev); err != nil {
			s.logger.Error().Err(err).Msg("record closure failed")
		}
		if err := s.Publisher.PublishClosed(ctx, ev); err != nil {
			s.logger.Warn().Err(err).Msg("publish closure failed")
		}
	}
	return len(closures)
}

// processMatch scores and prices a match, then runs the persist-first
// delivery. It reports whether an alert was delivered.
func (s *Scheduler) processMatch(ctx context.Context, pa *model.PairAnalysis, m model.SetupMatch, risk *model.MacroRisk) bool {
	log := s.logger.With().Str("pair", pa.Pair).Str("setup", m.SetupID).Logger()

	base := primary(pa, s.Collector.Timeframes)
	if base == nil {
		log.Warn().Msg("no resolved timeframe to price the match")
		return false
	}
	scope := s.Engine.Scope(m, pa)
	score, bonuses := strategy.Score(m, scope)
	price := base.LastBar.Close
	stop, target := strategy.Levels(pa.Pair, price, base.Last.ATR)

	alert := &model.Alert{
		Pair:        pa.Pair,
		Match:       m,
		Score:       score,
		Bonuses:     bonuses,
		Price:       price,
		Stop:        stop,
		Target:      target,
		Analyses:    pa.Resolved(s.Collector.Timeframes),
		GeneratedAt: s.now(),
	}
	if s.cfg.Features.Score100 {
		src := base
		if a, ok := pa.Timeframes[m.Timeframe]; ok && a.OK() {
			src = a
		}
		alert.Components = strategy.AuxiliaryComponents(src)
		v := strategy.AuxiliaryScore(alert.Components, s.cfg.Weights)
		alert.Score100 = &v
		alert.Contexts = contexts(src.Last)
	}

	if !s.Gate.Allow(ctx, pa.Pair, m.SetupID) {
		return false
	}

	sig, err := s.Tracker.Stage(tracker.Candidate{
		Pair:     pa.Pair,
		SetupID:  m.SetupID,
		Entry:    price,
		Stop:     stop,
		Target:   target,
		Score:    score,
		Score100: alert.Score100,
	})
	if err != nil {
		s.Gate.Release(ctx, pa.Pair, m.SetupID)
		return false
	}

	rec := &recorder.AlertRecord{
		SignalID:  sig.ID,
		Pair:      pa.Pair,
		SetupID:   m.SetupID,
		Timeframe: m.Timeframe,
		Score:     score,
		Score100:  alert.Score100,
		Entry:     price,
		Stop:      stop,
		Target:    target,
		Paper:     s.cfg.PaperMode(),
	}

	if err := s.Sink.Send(ctx, notifier.FormatAlert(alert, risk, s.cfg.PaperMode())); err != nil {
		log.Error().Err(err).Msg("alert delivery failed")
		if err := s.Tracker.Abandon(sig.ID); err != nil {
			log.Error().Err(err).Msg("mark signal undelivered failed")
		}
		s.Gate.Release(ctx, pa.Pair, m.SetupID)
		s.record(rec)
		return false
	}

	if err := s.Tracker.Activate(sig.ID); err != nil {
		log.Error().Err(err).Msg("activate signal failed")
	}
	s.Gate.Commit(ctx, pa.Pair, m.SetupID)
	rec.Delivered = true
	s.record(rec)

	opened, err := s.Tracker.Get(sig.ID)
	if err != nil {
		log.Error().Err(err).Msg("read activated signal failed")
		return true
	}
	if s.Ledger != nil {
		if err := s.Ledger.Append(opened, m.Name); err != nil {
			log.Error().Err(err).Msg("ledger append failed")
		}
	}
	if err := s.Publisher.PublishOpened(ctx, opened); err != nil {
		log.Warn().Err(err).Msg("publish signal failed")
	}
	log.Info().Str("signal_id", sig.ID).Float64("score", score).Msg("alert delivered")
	return true
}

func (s *Scheduler) recordScans(pa *model.PairAnalysis, matches []model.SetupMatch) {
	for _, tf := range s.Collector.Timeframes {
		a, ok := pa.Timeframes[tf]
		if !ok {
			continue
		}
		rec := &recorder.ScanRecord{
			Pair:       pa.Pair,
			Timeframe:  tf,
			Status:     a.Status,
			Trend:      a.Trend,
			Strength:   a.Strength,
			Volatility: a.Volatility,
		}
		if a.OK() {
			rec.RSI = a.Last.RSI
			rec.Price = a.LastBar.Close
		}
		for _, m := range matches {
			if m.Timeframe == tf || m.Family == model.FamilyCross {
				rec.Matches++
			}
		}
		if err := s.Recorder.RecordScan(rec); err != nil {
			s.logger.Error().Err(err).Msg("record scan failed")
		}
	}
}

func (s *Scheduler) record(rec *recorder.AlertRecord) {
	if err := s.Recorder.RecordAlert(rec); err != nil {
		s.logger.Error().Err(err).Msg("record alert failed")
	}
}

func (s *Scheduler) send(ctx context.Context, text string) {
	if err := s.Sink.Send(ctx, text); err != nil {
		s.logger.Error().Err(err).Msg("send notification failed")
	}
}

// primary returns the 1h analysis, falling back to the first resolved
// timeframe in scan order when 1h is unavailable.
func primary(pa *model.PairAnalysis, order []model.Timeframe) *model.TimeframeAnalysis {
	if a := pa.Timeframes[model.Timeframe1h]; a.OK() {
		return a
	}
	for _, tf := range order {
		if a := pa.Timeframes[tf]; a.OK() {
			return a
		}
	}
	return nil
}

func contexts(r model.Row) []string {
	var out []string
	if r.VWAPOk {
		out = append(out, "price above VWAP")
	}
	if r.BBSqueeze {
		out = append(out, "band squeeze")
	}
	if r.Supertrend {
		out = append(out, "supertrend up")
	}
	return out
}
