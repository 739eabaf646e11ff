package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"CryptoSentinel/internal/model"
)

// PaperPrefix marks alerts produced in paper-trading mode.
const PaperPrefix = "🧪 <b>[PAPER]</b> "

var trendEmoji = map[model.Trend]string{
	model.TrendStrongUp:   "🚀",
	model.TrendUp:         "📈",
	model.TrendFlat:       "➡️",
	model.TrendDown:       "📉",
	model.TrendStrongDown: "💥",
}

var volatilityEmoji = map[model.Volatility]string{
	model.VolatilityHigh:   "🔥",
	model.VolatilityNormal: "🟡",
	model.VolatilityLow:    "😴",
}

// FormatAlert formats a scored alert. risk may be nil when the macro
// context is delivered separately.
func FormatAlert(a *model.Alert, risk *model.MacroRisk, paper bool) string {
	var b strings.Builder

	if paper {
		b.WriteString(PaperPrefix)
	}
	b.WriteString(fmt.Sprintf("🔔 <b>%s</b>\n", html.EscapeString(a.Match.Name)))
	b.WriteString(fmt.Sprintf("%s\n\n", html.EscapeString(a.Match.Priority)))

	b.WriteString(fmt.Sprintf("📊 Pair: <code>%s</code>", a.Pair))
	if a.Match.Timeframe != "" {
		b.WriteString(fmt.Sprintf(" (%s)", a.Match.Timeframe))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("💰 Price: <code>$%s</code>\n", money(a.Price)))
	b.WriteString(fmt.Sprintf("🎯 Target: <code>$%s</code>\n", money(a.Target)))
	b.WriteString(fmt.Sprintf("🛑 Stop: <code>$%s</code>\n", money(a.Stop)))
	if span := a.Price - a.Stop; span > 0 {
		b.WriteString(fmt.Sprintf("⚖️ R:R 1:%.2f\n", (a.Target-a.Price)/span))
	}
	b.WriteString(fmt.Sprintf("\n📊 <b>Score:</b> %.1f/10 %s\n\n", a.Score, scoreBar(a.Score)))

	b.WriteString("📈 <b>Timeframes:</b>\n")
	for _, tf := range a.Analyses {
		if !tf.OK() {
			continue
		}
		b.WriteString(fmt.Sprintf("• %s: %s %s (strength %.0f/10, vol %s) RSI %.1f\n",
			tf.Timeframe, trendEmoji[tf.Trend], tf.Trend, tf.Strength, volatilityEmoji[tf.Volatility], tf.Last.RSI))
	}

	if len(a.Bonuses) > 0 {
		b.WriteString("\n🎁 <b>Confluence bonus:</b>\n")
		for _, bonus := range a.Bonuses {
			b.WriteString(fmt.Sprintf("• %s\n", html.EscapeString(bonus)))
		}
	}

	if a.Match.Details != "" {
		b.WriteString(fmt.Sprintf("\n📋 <b>Details:</b> %s\n", html.EscapeString(a.Match.Details)))
	}

	if a.Score100 != nil {
		b.WriteString(fmt.Sprintf("\n🧮 Score: %.1f/100\n", *a.Score100))
		parts := make([]string, 0, len(a.Components))
		for _, k := range []string{"trend", "momentum", "volume", "volatility", "context"} {
			if v, ok := a.Components[k]; ok {
				parts = append(parts, fmt.Sprintf("%s %.2f", k, v))
			}
		}
		b.WriteString(fmt.Sprintf("📎 Components: %s\n", strings.Join(parts, " | ")))
		if len(a.Contexts) > 0 {
			b.WriteString(fmt.Sprintf("🔎 Context: %s\n", html.EscapeString(strings.Join(a.Contexts, ", "))))
		}
	}

	if risk != nil {
		b.WriteString(fmt.Sprintf("\n🌍 Macro risk: %.1f/10 %s (position x%.1f)\n", risk.Score, risk.Level, risk.PositionMultiplier))
	}

	b.WriteString(fmt.Sprintf("\n🕘 %s UTC\n", a.GeneratedAt.UTC().Format("02/01 15:04")))
	b.WriteString(fmt.Sprintf("📉 <a href=\"https://www.tradingview.com/chart/?symbol=BINANCE:%s\">TradingView</a>\n",
		strings.ReplaceAll(a.Pair, "/", "")))
	return b.String()
}

// FormatClosure formats a signal closure.
func FormatClosure(ev model.ClosureEvent) string {
	var b strings.Builder
	icon := "⏰"
	switch ev.Outcome {
	case model.SignalTargetHit:
		icon = "✅"
	case model.SignalStopHit:
		icon = "❌"
	}
	change := 0.0
	if ev.Entry > 0 {
		change = (ev.ExitPrice - ev.Entry) / ev.Entry * 100
	}
	b.WriteString(fmt.Sprintf("%s <b>Signal closed: %s</b>\n\n", icon, ev.Outcome))
	b.WriteString(fmt.Sprintf("📊 Pair: <code>%s</code>\n", ev.Pair))
	b.WriteString(fmt.Sprintf("🧩 Setup: %s\n", ev.SetupID))
	b.WriteString(fmt.Sprintf("💰 Entry: $%s → Exit: $%s (%+.2f%%)\n", money(ev.Entry), money(ev.ExitPrice), change))
	b.WriteString(fmt.Sprintf("⏱ Duration: %s\n", ev.Duration.Round(time.Minute)))
	return b.String()
}

// PairStatus is one line of the status report.
type PairStatus struct {
	Pair  string
	Price float64
	RSI   float64
	OK    bool
}

// StatusReport summarises a cycle that delivered no alerts.
type StatusReport struct {
	Pairs        []PairStatus
	OpenSignals  int
	Alerts24h    int
	Closures24h  int
	TargetHits24 int
	At           time.Time
}

// RSIBucket labels an RSI value for the status report.
func RSIBucket(rsi float64) string {
	switch {
	case rsi < 25:
		return "🟢 extreme oversold"
	case rsi < 35:
		return "🟢 oversold"
	case rsi > 75:
		return "🔴 extreme overbought"
	case rsi > 65:
		return "🟠 overbought"
	}
	return "⚪ neutral"
}

// FormatStatus formats the no-alert status report.
func FormatStatus(r StatusReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📡 <b>Scan status</b> | %s UTC\n\n", r.At.UTC().Format("2006-01-02 15:04")))
	b.WriteString("No setups confirmed this cycle.\n\n")
	for _, p := range r.Pairs {
		if !p.OK {
			b.WriteString(fmt.Sprintf("• %s: data unavailable\n", p.Pair))
			continue
		}
		b.WriteString(fmt.Sprintf("• %s: $%s | RSI 1h %.1f %s\n", p.Pair, money(p.Price), p.RSI, RSIBucket(p.RSI)))
	}
	b.WriteString(fmt.Sprintf("\n📌 Open signals: %d\n", r.OpenSignals))
	b.WriteString(fmt.Sprintf("📈 Last 24h: %d alerts, %d closed (%d on target)\n", r.Alerts24h, r.Closures24h, r.TargetHits24))
	return b.String()
}

// FormatMacro formats the once-per-run macro block.
func FormatMacro(s model.MarketSummary, r model.MacroRisk) string {
	var b strings.Builder
	b.WriteString("🌍 <b>Macro context</b>\n\n")
	if s.TotalMarketCapUSD > 0 {
		b.WriteString(fmt.Sprintf("• Total cap: $%.2fT\n", s.TotalMarketCapUSD/1e12))
		b.WriteString(fmt.Sprintf("• BTC dominance: %.1f%%\n", s.BTCDominance))
	}
	if s.FearGreed >= 0 && s.FearGreedLabel != "" {
		b.WriteString(fmt.Sprintf("• Fear &amp; Greed: %d (%s)\n", s.FearGreed, html.EscapeString(s.FearGreedLabel)))
	} else {
		b.WriteString("• Fear &amp; Greed: unavailable\n")
	}
	if r.NextFOMC != nil {
		b.WriteString(fmt.Sprintf("• Next FOMC: %s\n", r.NextFOMC.Format("2006-01-02")))
	}
	b.WriteString(fmt.Sprintf("\n🎲 Risk: %.1f/10 %s | position x%.1f\n", r.Score, r.Level, r.PositionMultiplier))
	if r.Degraded {
		b.WriteString("⚠️ Partial data, defaults applied\n")
	}
	return b.String()
}

// FormatError formats a fatal cycle error for the operator.
func FormatError(err error, at time.Time) string {
	return fmt.Sprintf("🚨 <b>Scanner error</b> | %s UTC\n\n<code>%s</code>\n",
		at.UTC().Format("2006-01-02 15:04"), html.EscapeString(err.Error()))
}

// FormatSignals lists open signals.
func FormatSignals(signals []model.MonitoredSignal) string {
	if len(signals) == 0 {
		return "📭 No open signals."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📌 <b>Open signals (%d)</b>\n\n", len(signals)))
	for _, s := range signals {
		b.WriteString(fmt.Sprintf("• %s %s: entry $%s, stop $%s, target $%s (score %.1f, %s)\n",
			s.Pair, s.SetupID, money(s.EntryPrice), money(s.StopPrice), money(s.TargetPrice),
			s.Score, s.CreatedAt.UTC().Format("02/01 15:04")))
	}
	return b.String()
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "🤖 <b>Commands</b>\n\n" +
		"/status - scanner status\n" +
		"/signals - open signals\n" +
		"/scan - run a scan now\n" +
		"/macro - macro context"
}

func scoreBar(score float64) string {
	filled := int(score + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > 10 {
		filled = 10
	}
	return strings.Repeat("🟩", filled) + strings.Repeat("⬜", 10-filled)
}

// money renders a price with thousands separators and two decimals.
func money(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")
	var out strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(r)
	}
	res := out.String() + "." + frac
	if neg {
		return "-" + res
	}
	return res
}
