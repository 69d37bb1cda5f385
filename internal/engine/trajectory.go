package engine

import (
	"slices"
	"time"

	"quantsim/internal/domain"
)

// Side is the direction of an executed fill.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Fill is one executed trade.
type Fill struct {
	Day        int
	Date       time.Time
	AssetIndex int
	Asset      string
	Side       Side
	Qty        int64
	Price      float64
	// Cost is the transaction cost paid on this fill.
	Cost float64
}

// Trajectory is the read-only result of a simulation run.
type Trajectory struct {
	mode      Mode
	cfg       Config
	axes      domain.Index
	positions [][]int64
	cash      []float64
	value     []float64
	pnl       []float64
	signals   *domain.SignalMatrix
	fills     []Fill
}

// Mode reports which simulator produced the trajectory.
func (t *Trajectory) Mode() Mode { return t.mode }

// Config returns the parameters the run used.
func (t *Trajectory) Config() Config { return t.cfg }

// Axes returns the shared day and asset index.
func (t *Trajectory) Axes() domain.Index { return t.axes }

// Len returns the number of days.
func (t *Trajectory) Len() int { return len(t.cash) }

// Position returns the share count of asset at the close of day.
func (t *Trajectory) Position(day, asset int) int64 { return t.positions[day][asset] }

// Positions returns a copy of the holdings row for day.
func (t *Trajectory) Positions(day int) []int64 { return slices.Clone(t.positions[day]) }

func (t *Trajectory) Cash(day int) float64  { return t.cash[day] }
func (t *Trajectory) Value(day int) float64 { return t.value[day] }
func (t *Trajectory) PnL(day int) float64   { return t.pnl[day] }

// CashSeries returns a copy of the daily cash balances.
func (t *Trajectory) CashSeries() []float64 { return slices.Clone(t.cash) }

// ValueSeries returns a copy of the daily portfolio values.
func (t *Trajectory) ValueSeries() []float64 { return slices.Clone(t.value) }

// PnLSeries returns a copy of the daily cumulative profit and loss.
func (t *Trajectory) PnLSeries() []float64 { return slices.Clone(t.pnl) }

// Signals returns the signal matrix the run was driven by.
func (t *Trajectory) Signals() *domain.SignalMatrix { return t.signals }

// Fills returns a copy of every executed fill in execution order.
func (t *Trajectory) Fills() []Fill { return slices.Clone(t.fills) }

// TotalCost sums the transaction costs paid over the run.
func (t *Trajectory) TotalCost() float64 {
	var total float64
	for _, f := range t.fills {
		total += f.Cost
	}
	return total
}
