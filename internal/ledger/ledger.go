package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"CryptoSentinel/internal/model"

	"github.com/shopspring/decimal"
)

// Columns is the ledger header.
var Columns = []string{
	"id", "created_at", "pair", "setup", "score", "entry", "stop", "target", "rr_ratio",
	"status", "closed_at", "close_price", "outcome", "roi_pct", "duration_hours", "notes",
}

const (
	colID = iota
	colCreatedAt
	colPair
	colSetup
	colScore
	colEntry
	colStop
	colTarget
	colRR
	colStatus
	colClosedAt
	colClosePrice
	colOutcome
	colROI
	colDuration
	colNotes
)

// Ledger is an append-mostly CSV audit trail of activated signals.
type Ledger struct {
	mu       sync.Mutex
	filePath string
}

// New opens the ledger at filePath, writing the header when the file is new.
func New(filePath string) (*Ledger, error) {
	l := &Ledger{filePath: filePath}
	if _, err := os.Stat(filePath); err == nil {
		return l, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat ledger: %w", err)
	}
	if err := l.writeAll([][]string{Columns}); err != nil {
		return nil, fmt.Errorf("create ledger: %w", err)
	}
	return l, nil
}

// Append adds a row for an activated signal.
func (l *Ledger) Append(s model.MonitoredSignal, notes string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	row := make([]string, len(Columns))
	row[colID] = s.ID
	row[colCreatedAt] = s.CreatedAt.UTC().Format(time.RFC3339)
	row[colPair] = s.Pair
	row[colSetup] = s.SetupID
	row[colScore] = strconv.FormatFloat(s.Score, 'f', 1, 64)
	row[colEntry] = price(s.EntryPrice)
	row[colStop] = price(s.StopPrice)
	row[colTarget] = price(s.TargetPrice)
	row[colRR] = decimal.NewFromFloat(s.RiskReward()).StringFixed(2)
	row[colStatus] = string(s.Status)
	row[colNotes] = notes

	f, err := os.OpenFile(l.filePath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Close fills the closing columns of the signal's row in place.
func (l *Ledger) Close(ev model.ClosureEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.readAll()
	if err != nil {
		return err
	}
	found := false
	for _, row := range rows[1:] {
		if len(row) != len(Columns) || row[colID] != ev.SignalID {
			continue
		}
		row[colStatus] = string(ev.Outcome)
		row[colClosedAt] = ev.ClosedAt.UTC().Format(time.RFC3339)
		row[colClosePrice] = price(ev.ExitPrice)
		row[colOutcome] = string(ev.Outcome)
		row[colROI] = ROI(ev.Entry, ev.ExitPrice)
		row[colDuration] = strconv.FormatFloat(ev.Duration.Hours(), 'f', 1, 64)
		found = true
		break
	}
	if !found {
		return fmt.Errorf("ledger row %s not found", ev.SignalID)
	}
	return l.writeAll(rows)
}

// Rows returns every data row keyed by column name.
func (l *Ledger) Rows() ([]map[string]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.readAll()
	if err != nil {
		return nil, err
	}
	out := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		m := make(map[string]string, len(Columns))
		for i, col := range Columns {
			if i < len(row) {
				m[col] = row[i]
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// ROI formats the percentage return from entry to exit with an explicit sign.
func ROI(entry, exit float64) string {
	if entry == 0 {
		return ""
	}
	e := decimal.NewFromFloat(entry)
	roi := decimal.NewFromFloat(exit).Sub(e).Div(e).Mul(decimal.NewFromInt(100)).Round(2)
	if roi.IsNegative() {
		return roi.StringFixed(2)
	}
	return "+" + roi.StringFixed(2)
}

func price(v float64) string {
	return decimal.NewFromFloat(v).String()
}

func (l *Ledger) readAll() ([][]string, error) {
	f, err := os.Open(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(rows) == 0 {
		rows = [][]string{Columns}
	}
	return rows, nil
}

func (l *Ledger) writeAll(rows [][]string) error {
	dir := filepath.Dir(l.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(l.filePath)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), l.filePath)
}
