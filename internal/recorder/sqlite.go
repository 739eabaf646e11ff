package recorder

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"CryptoSentinel/internal/model"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the status API read while the scanner writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scans (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			pair        TEXT NOT NULL,
			timeframe   TEXT NOT NULL,
			status      TEXT NOT NULL,
			trend       TEXT,
			strength    REAL,
			volatility  TEXT,
			rsi         REAL,
			price       REAL,
			matches     INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scans_ts ON scans(timestamp)`,

		`CREATE TABLE IF NOT EXISTS alerts (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			signal_id   TEXT,
			pair        TEXT NOT NULL,
			setup_id    TEXT NOT NULL,
			timeframe   TEXT,
			score       REAL,
			score_100   REAL,
			entry       REAL,
			stop        REAL,
			target      REAL,
			delivered   INTEGER,
			paper       INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(timestamp)`,

		`CREATE TABLE IF NOT EXISTS closures (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			signal_id      TEXT NOT NULL,
			pair           TEXT NOT NULL,
			setup_id       TEXT,
			entry          REAL,
			exit_price     REAL,
			outcome        TEXT NOT NULL,
			duration_secs  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_closures_ts ON closures(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordScan(rec *ScanRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO scans
		(timestamp, pair, timeframe, status, trend, strength, volatility, rsi, price, matches)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), rec.Pair, string(rec.Timeframe), string(rec.Status),
		string(rec.Trend), finite(rec.Strength), string(rec.Volatility),
		finite(rec.RSI), finite(rec.Price), rec.Matches,
	)
	return err
}

func (r *SQLiteRecorder) RecordAlert(rec *AlertRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var score100 any
	if rec.Score100 != nil {
		score100 = *rec.Score100
	}
	_, err := r.db.Exec(`INSERT INTO alerts
		(timestamp, signal_id, pair, setup_id, timeframe, score, score_100, entry, stop, target, delivered, paper)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), rec.SignalID, rec.Pair, rec.SetupID, string(rec.Timeframe),
		rec.Score, score100, rec.Entry, rec.Stop, rec.Target,
		boolInt(rec.Delivered), boolInt(rec.Paper),
	)
	return err
}

func (r *SQLiteRecorder) RecordClosure(ev *model.ClosureEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO closures
		(timestamp, signal_id, pair, setup_id, entry, exit_price, outcome, duration_secs)
		VALUES (?,?,?,?,?,?,?,?)`,
		ev.ClosedAt.Unix(), ev.SignalID, ev.Pair, ev.SetupID,
		ev.Entry, ev.ExitPrice, string(ev.Outcome), int64(ev.Duration.Seconds()),
	)
	return err
}

// Stats counts scans, delivered alerts and closures recorded since the given time.
func (r *SQLiteRecorder) Stats(since time.Time) (Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := since.Unix()
	var s Stats
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM scans WHERE timestamp >= ?`, ts).Scan(&s.Scans); err != nil {
		return Stats{}, fmt.Errorf("count scans: %w", err)
	}
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM alerts WHERE timestamp >= ? AND delivered = 1`, ts).Scan(&s.Alerts); err != nil {
		return Stats{}, fmt.Errorf("count alerts: %w", err)
	}

	rows, err := r.db.Query(`SELECT outcome, COUNT(*) FROM closures WHERE timestamp >= ? GROUP BY outcome`, ts)
	if err != nil {
		return Stats{}, fmt.Errorf("count closures: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return Stats{}, err
		}
		s.Closures += n
		switch model.SignalStatus(outcome) {
		case model.SignalTargetHit:
			s.TargetHits = n
		case model.SignalStopHit:
			s.StopHits = n
		case model.SignalExpired:
			s.Expired = n
		}
	}
	return s, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// finite maps NaN to NULL.
func finite(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
