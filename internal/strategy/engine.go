package strategy

import (
	"fmt"

	"CryptoSentinel/internal/model"

	"github.com/rs/zerolog"
)

// Engine evaluates the setup registry against a pair analysis.
type Engine struct {
	Rules      []Rule
	Timeframes []model.Timeframe

	logger zerolog.Logger
}

// NewEngine creates an Engine over the default registry. Timeframes fixes
// the evaluation order so results are deterministic.
func NewEngine(timeframes []model.Timeframe, logger zerolog.Logger) *Engine {
	return &Engine{
		Rules:      DefaultRules(),
		Timeframes: timeframes,
		logger:     logger.With().Str("component", "strategy").Logger(),
	}
}

// Evaluate returns every match for the pair: cross-timeframe rules first,
// then per resolved timeframe all advanced matches and at most one base match.
func (e *Engine) Evaluate(p *model.PairAnalysis) []model.SetupMatch {
	var matches []model.SetupMatch

	cross := &Context{Pair: p.Pair, Timeframes: p.Timeframes}
	for _, r := range e.Rules {
		if r.Family != model.FamilyCross {
			continue
		}
		if m, ok := e.apply(r, cross, ""); ok {
			matches = append(matches, m)
		}
	}

	for _, a := range p.Resolved(e.Timeframes) {
		if a.Frame == nil || len(a.Bars) == 0 {
			continue
		}
		single := &Context{Pair: p.Pair, Analysis: a, Timeframes: p.Timeframes}
		for _, r := range e.Rules {
			if r.Family != model.FamilySingle || r.Tier != TierAdvanced {
				continue
			}
			if m, ok := e.apply(r, single, a.Timeframe); ok {
				matches = append(matches, m)
			}
		}
		for _, r := range e.Rules {
			if r.Family != model.FamilySingle || r.Tier != TierBase {
				continue
			}
			if m, ok := e.apply(r, single, a.Timeframe); ok {
				matches = append(matches, m)
				break
			}
		}
	}
	return matches
}

// apply runs one predicate, turning a panic into a no-match.
func (e *Engine) apply(r Rule, c *Context, tf model.Timeframe) (m model.SetupMatch, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Warn().
				Str("rule", r.ID).
				Str("pair", c.Pair).
				Err(fmt.Errorf("%v", rec)).
				Msg("rule predicate failed")
			ok = false
		}
	}()

	matched, details := r.Match(c)
	if !matched {
		return model.SetupMatch{}, false
	}
	return model.SetupMatch{
		SetupID:   r.ID,
		Name:      r.Name,
		Priority:  r.Priority,
		BaseScore: r.BaseScore,
		Family:    r.Family,
		Timeframe: tf,
		Details:   details,
	}, true
}

// Scope returns the analyses a match is scored against: every resolved
// timeframe for cross matches, the match's own timeframe otherwise.
func (e *Engine) Scope(m model.SetupMatch, p *model.PairAnalysis) []*model.TimeframeAnalysis {
	if m.Family == model.FamilyCross {
		return p.Resolved(e.Timeframes)
	}
	if a := p.Timeframes[m.Timeframe]; a.OK() {
		return []*model.TimeframeAnalysis{a}
	}
	return nil
}
