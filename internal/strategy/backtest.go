package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"quantsim/internal/domain"
	"quantsim/internal/engine"
	"quantsim/internal/report"
	"quantsim/internal/store"
)

// BenchmarkLabel names benchmark runs in results and reports.
const BenchmarkLabel = "benchmark"

// Request describes one backtest run.
type Request struct {
	// Strategy is the registry name of the signal source. Benchmark runs use
	// it only to produce a correctly shaped signal matrix.
	Strategy string
	Mode     engine.Mode
	Config   engine.Config
	// Label overrides the display name. Empty means the strategy name, or
	// BenchmarkLabel in Benchmark mode.
	Label string
}

// Name returns the display label of the run.
func (r Request) Name() string {
	switch {
	case r.Label != "":
		return r.Label
	case r.Mode == engine.Benchmark:
		return BenchmarkLabel
	default:
		return r.Strategy
	}
}

// BacktestResult holds the trajectory and summary metrics of one run.
type BacktestResult struct {
	Request    Request
	Trajectory *engine.Trajectory
	Summary    report.Summary
	Elapsed    time.Duration
}

// Backtester replays historical closes through strategies and the
// simulation engine.
type Backtester struct {
	store       store.BarStore
	registry    *Registry
	maxParallel int
	log         *slog.Logger
}

// NewBacktester creates a Backtester that reads bars from the given store and
// looks up strategies in the provided registry. maxParallel bounds Compare;
// values below 1 mean 1.
func NewBacktester(barStore store.BarStore, registry *Registry, maxParallel int) *Backtester {
	return &Backtester{
		store:       barStore,
		registry:    registry,
		maxParallel: max(maxParallel, 1),
		log:         slog.Default().With("component", "backtester"),
	}
}

// LoadPrices loads the close matrix for symbols over [start, end].
func (bt *Backtester) LoadPrices(ctx context.Context, market domain.Market, symbols []string, start, end time.Time) (*domain.PriceMatrix, error) {
	prices, err := store.LoadCloseMatrix(ctx, bt.store, market, symbols, start, end)
	if err != nil {
		return nil, err
	}
	bt.log.Info("prices loaded",
		"market", market,
		"assets", prices.NumAssets(),
		"days", prices.NumDays(),
	)
	return prices, nil
}

// Run computes the strategy's signals over prices and simulates them.
func (bt *Backtester) Run(ctx context.Context, req Request, prices *domain.PriceMatrix) (*BacktestResult, error) {
	began := time.Now()

	s, err := bt.registry.Lookup(req.Strategy)
	if err != nil {
		return nil, err
	}
	signals, err := s.Signals(ctx, prices)
	if err != nil {
		return nil, fmt.Errorf("%s signals: %w", s.Name(), err)
	}
	traj, err := engine.NewSimulator(req.Mode, req.Config).Simulate(prices, signals)
	if err != nil {
		return nil, fmt.Errorf("%s simulation: %w", req.Name(), err)
	}

	res := &BacktestResult{
		Request:    req,
		Trajectory: traj,
		Summary:    report.Summarize(req.Name(), traj),
		Elapsed:    time.Since(began),
	}
	bt.log.Info("run complete",
		"run", req.Name(),
		"mode", req.Mode.String(),
		"final_value", res.Summary.FinalValue,
		"fills", res.Summary.Fills,
		"elapsed", res.Elapsed,
	)
	return res, nil
}

// Compare runs every request against the same prices concurrently, at most
// maxParallel at a time. Results are returned in request order. The first
// failing run cancels the rest.
func (bt *Backtester) Compare(ctx context.Context, prices *domain.PriceMatrix, reqs []Request) ([]*BacktestResult, error) {
	results := make([]*BacktestResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, bt.maxParallel)

	for i, req := range reqs {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			res, err := bt.Run(gctx, req, prices)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Record converts a result into the row persisted by a RunStore.
func (r *BacktestResult) Record(market domain.Market) *store.RunRecord {
	s := r.Summary
	cfg := r.Request.Config
	return &store.RunRecord{
		Label:           r.Request.Name(),
		Strategy:        r.Request.Strategy,
		Mode:            r.Request.Mode.String(),
		Market:          string(market),
		Symbols:         r.Trajectory.Axes().Assets(),
		Start:           s.Start,
		End:             s.End,
		InitialCapital:  cfg.InitialCapital,
		SharesPerTrade:  cfg.SharesPerTrade,
		CostRate:        cfg.TransactionCostRate,
		FinalValue:      s.FinalValue,
		TotalReturn:     s.TotalReturn,
		CAGR:            s.CAGR,
		Sharpe:          s.Sharpe,
		Volatility:      s.Volatility,
		MaxDrawdown:     s.MaxDrawdown,
		MaxDrawdownDays: s.MaxDrawdownDays,
		Fills:           s.Fills,
		TotalCost:       s.TotalCost,
	}
}
