package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at        INTEGER NOT NULL,
	label             TEXT    NOT NULL,
	strategy          TEXT    NOT NULL,
	mode              TEXT    NOT NULL,
	market            TEXT    NOT NULL,
	symbols           TEXT    NOT NULL,
	start_date        TEXT    NOT NULL,
	end_date          TEXT    NOT NULL,
	initial_capital   REAL    NOT NULL,
	shares_per_trade  INTEGER NOT NULL,
	cost_rate         REAL    NOT NULL,
	final_value       REAL    NOT NULL,
	total_return      REAL    NOT NULL,
	cagr              REAL    NOT NULL,
	sharpe            REAL    NOT NULL,
	volatility        REAL    NOT NULL,
	max_drawdown      REAL    NOT NULL,
	max_drawdown_days INTEGER NOT NULL,
	fills             INTEGER NOT NULL,
	total_cost        REAL    NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);
`

const runColumns = `id, created_at, label, strategy, mode, market, symbols, start_date, end_date,
	initial_capital, shares_per_trade, cost_rate, final_value, total_return, cagr, sharpe,
	volatility, max_drawdown, max_drawdown_days, fills, total_cost`

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, creates the
// schema if needed and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// RunStore implementation
// ---------------------------------------------------------------------------

// SaveRun inserts a run. A zero CreatedAt is set to the current time.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *RunRecord) (int64, error) {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO runs (
		created_at, label, strategy, mode, market, symbols, start_date, end_date,
		initial_capital, shares_per_trade, cost_rate, final_value, total_return, cagr, sharpe,
		volatility, max_drawdown, max_drawdown_days, fills, total_cost
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.CreatedAt.UnixMilli(), run.Label, run.Strategy, run.Mode, run.Market,
		strings.Join(run.Symbols, ","), run.Start.Format(time.DateOnly), run.End.Format(time.DateOnly),
		run.InitialCapital, run.SharesPerTrade, run.CostRate, run.FinalValue, run.TotalReturn,
		run.CAGR, run.Sharpe, run.Volatility, run.MaxDrawdown, run.MaxDrawdownDays,
		run.Fills, run.TotalCost,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run %q: %w", run.Label, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	run.ID = id
	return id, nil
}

// GetRun retrieves a single run by its ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id int64) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first, up to limit. A
// non-positive limit returns every run.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*RunRecord, error) {
	var (
		r          RunRecord
		createdAt  int64
		symbols    string
		start, end string
	)
	err := sc.Scan(
		&r.ID, &createdAt, &r.Label, &r.Strategy, &r.Mode, &r.Market, &symbols, &start, &end,
		&r.InitialCapital, &r.SharesPerTrade, &r.CostRate, &r.FinalValue, &r.TotalReturn,
		&r.CAGR, &r.Sharpe, &r.Volatility, &r.MaxDrawdown, &r.MaxDrawdownDays, &r.Fills, &r.TotalCost,
	)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = time.UnixMilli(createdAt).UTC()
	if symbols != "" {
		r.Symbols = strings.Split(symbols, ",")
	}
	if r.Start, err = time.Parse(time.DateOnly, start); err != nil {
		return nil, fmt.Errorf("run %d start date: %w", r.ID, err)
	}
	if r.End, err = time.Parse(time.DateOnly, end); err != nil {
		return nil, fmt.Errorf("run %d end date: %w", r.ID, err)
	}
	return &r, nil
}
