// Package engine simulates a long-only portfolio day by day from a price
// matrix and a signal matrix, producing positions, cash, value and
// cumulative PnL under no-shorting, no-leverage and proportional-cost rules.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"quantsim/internal/domain"
)

var (
	ErrShapeMismatch = errors.New("price and signal indices differ")
	ErrEmptyInput    = errors.New("simulation needs at least two days and one asset")
)

// Mode selects how a Simulator opens the portfolio and whether it trades
// after day 0.
type Mode int

const (
	// Active starts flat and executes every signal with a one-day lag.
	Active Mode = iota
	// Benchmark splits capital equally across assets on day 0 and holds.
	Benchmark
)

func (m Mode) String() string {
	switch m {
	case Active:
		return "active"
	case Benchmark:
		return "benchmark"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Simulator runs one trajectory per Simulate call. It keeps no state between
// calls and is safe for concurrent use.
type Simulator struct {
	mode Mode
	cfg  Config
	log  *slog.Logger
}

// NewSimulator creates a Simulator for the given mode and parameters.
func NewSimulator(mode Mode, cfg Config) *Simulator {
	return &Simulator{
		mode: mode,
		cfg:  cfg,
		log:  slog.Default().With("component", "engine", "mode", mode.String()),
	}
}

// NewActive creates a Simulator that trades on signals.
func NewActive(cfg Config) *Simulator { return NewSimulator(Active, cfg) }

// NewBenchmark creates an equal-weight buy-and-hold Simulator.
func NewBenchmark(cfg Config) *Simulator { return NewSimulator(Benchmark, cfg) }

// Mode returns the simulator's mode.
func (s *Simulator) Mode() Mode { return s.mode }

// Config returns the simulator's parameters.
func (s *Simulator) Config() Config { return s.cfg }

// Simulate walks prices and signals forward in time. The trade executed on
// day t is driven by signals[t-1] and priced at prices[t]. Inputs are not
// modified. On error no Trajectory is returned.
func (s *Simulator) Simulate(prices *domain.PriceMatrix, signals *domain.SignalMatrix) (*Trajectory, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if prices == nil || signals == nil {
		return nil, ErrEmptyInput
	}
	if !prices.Axes().Equal(signals.Axes()) {
		return nil, ErrShapeMismatch
	}
	if prices.NumDays() < 2 || prices.NumAssets() == 0 {
		return nil, fmt.Errorf("%d days, %d assets: %w", prices.NumDays(), prices.NumAssets(), ErrEmptyInput)
	}

	n := prices.NumDays()
	axes := prices.Axes()
	assets := axes.Assets()

	traj := &Trajectory{
		mode:      s.mode,
		cfg:       s.cfg,
		axes:      axes,
		positions: make([][]int64, n),
		cash:      make([]float64, n),
		value:     make([]float64, n),
		pnl:       make([]float64, n),
		signals:   signals,
	}

	row := prices.Row(0)
	traj.positions[0], traj.cash[0] = s.open(row)
	traj.value[0] = markToMarket(traj.positions[0], traj.cash[0], row)
	traj.pnl[0] = traj.value[0] - s.cfg.InitialCapital

	for t := 1; t < n; t++ {
		row = prices.Row(t)

		switch s.mode {
		case Benchmark:
			traj.positions[t] = slices.Clone(traj.positions[t-1])
			traj.cash[t] = traj.cash[t-1]
		default:
			var fills []Fill
			traj.positions[t], traj.cash[t], fills = step(traj.positions[t-1], traj.cash[t-1], signals.Row(t-1), row, s.cfg)
			for _, f := range fills {
				f.Day = t
				f.Date = axes.Day(t)
				f.Asset = assets[f.AssetIndex]
				traj.fills = append(traj.fills, f)
			}
		}

		traj.value[t] = markToMarket(traj.positions[t], traj.cash[t], row)
		traj.pnl[t] = traj.value[t] - s.cfg.InitialCapital
	}

	s.log.Debug("simulation complete",
		"days", n,
		"assets", len(assets),
		"fills", len(traj.fills),
		"final_value", traj.value[n-1],
	)
	return traj, nil
}

// open returns the day-0 holdings and cash.
func (s *Simulator) open(prices []float64) ([]int64, float64) {
	positions := make([]int64, len(prices))
	cash := s.cfg.InitialCapital
	if s.mode != Benchmark {
		return positions, cash
	}

	budget := s.cfg.InitialCapital / float64(len(prices))
	var spent float64
	for a, p := range prices {
		if !tradable(p) {
			continue
		}
		// A share count past the int64 range cannot be held.
		q := math.Floor(budget / p)
		if !finite(q) || q >= math.MaxInt64 {
			continue
		}
		qty := int64(q)
		positions[a] = qty
		spent += float64(qty) * p
	}
	return positions, cash - spent
}
