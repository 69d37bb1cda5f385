// Package store defines storage interfaces for persisting and retrieving
// daily bars and backtest run summaries.
package store

import (
	"context"
	"errors"
	"time"

	"quantsim/internal/domain"
)

var (
	ErrNoData      = errors.New("no bar data")
	ErrRunNotFound = errors.New("run not found")
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars under the given market.
	WriteBars(ctx context.Context, market domain.Market, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within [start, end],
	// ordered by timestamp.
	ReadBars(ctx context.Context, symbol string, market domain.Market, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market domain.Market) ([]string, error)
}

// RunRecord is the persisted summary of one backtest run.
type RunRecord struct {
	ID              int64
	CreatedAt       time.Time
	Label           string
	Strategy        string
	Mode            string
	Market          string
	Symbols         []string
	Start           time.Time
	End             time.Time
	InitialCapital  float64
	SharesPerTrade  int64
	CostRate        float64
	FinalValue      float64
	TotalReturn     float64
	CAGR            float64
	Sharpe          float64
	Volatility      float64
	MaxDrawdown     float64
	MaxDrawdownDays int
	Fills           int
	TotalCost       float64
}

// RunStore persists and retrieves backtest run summaries.
type RunStore interface {
	// SaveRun inserts a run and returns its assigned ID.
	SaveRun(ctx context.Context, run *RunRecord) (int64, error)

	// GetRun retrieves a single run by its ID.
	GetRun(ctx context.Context, id int64) (*RunRecord, error)

	// ListRuns returns the most recent runs, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
