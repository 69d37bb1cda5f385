package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"quantsim/internal/config"
	"quantsim/internal/domain"
	"quantsim/internal/engine"
	"quantsim/internal/report"
	"quantsim/internal/store"
	"quantsim/internal/strategy"
	"quantsim/internal/strategy/builtins"
	"quantsim/internal/util"
)

func main() {
	cfgFlag := flag.String("config", "", "path to config file (default $QUANTSIM_CONFIG)")
	noSave := flag.Bool("no-save", false, "do not record runs in the SQLite database")
	flag.Parse()

	cfgPath := config.ResolvePath(*cfgFlag)
	if cfgPath == "" {
		cfgPath = "config/quantsim.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	bc := cfg.Backtest
	if err := bc.Validate(); err != nil {
		log.Fatalf("invalid backtest config: %v", err)
	}
	start, end, _ := bc.Period()
	market := domain.Market(bc.Market)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	registry := builtins.NewRegistry()
	bt := strategy.NewBacktester(pstore, registry, bc.MaxParallel)

	prices, err := bt.LoadPrices(ctx, market, bc.Symbols, start, end)
	if err != nil {
		log.Fatalf("loading prices: %v", err)
	}

	reqs, err := buildRequests(bc, registry)
	if err != nil {
		log.Fatalf("%v", err)
	}

	results, err := bt.Compare(ctx, prices, reqs)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	summaries := make([]report.Summary, len(results))
	for i, res := range results {
		summaries[i] = res.Summary
	}
	fmt.Printf("\n%s %s..%s, %d symbols, %d days\n\n", strings.ToUpper(bc.Market),
		start.Format("2006-01-02"), end.Format("2006-01-02"), prices.NumAssets(), prices.NumDays())
	if err := report.WriteSummaryTable(os.Stdout, summaries); err != nil {
		log.Fatalf("writing summary: %v", err)
	}

	if err := writeOutputs(bc, results); err != nil {
		log.Fatalf("writing outputs: %v", err)
	}

	if *noSave {
		return
	}
	runs, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening run database: %v", err)
	}
	defer runs.Close()
	for _, res := range results {
		id, err := runs.SaveRun(ctx, res.Record(market))
		if err != nil {
			slog.Error("saving run failed", "run", res.Request.Name(), "error", err)
			continue
		}
		slog.Info("run saved", "run", res.Request.Name(), "id", id)
	}
}

// buildRequests turns the configured strategies, plus the benchmark when
// enabled, into backtest requests.
func buildRequests(bc config.BacktestConfig, registry *strategy.Registry) ([]strategy.Request, error) {
	var reqs []strategy.Request
	used := map[string]bool{strategy.BenchmarkLabel: true}
	for i, run := range bc.Strategies {
		if _, err := registry.Lookup(run.Name); err != nil {
			return nil, fmt.Errorf("strategy %q: %w (available: %s)", run.Name, err, strings.Join(registry.List(), ", "))
		}
		req := strategy.Request{
			Strategy: run.Name,
			Mode:     engine.Active,
			Config:   bc.EngineConfig(run),
		}
		// Output files are named after the label, so labels must be unique.
		if used[req.Name()] {
			req.Label = fmt.Sprintf("%s-%d", run.Name, req.Config.SharesPerTrade)
		}
		if used[req.Name()] {
			req.Label = fmt.Sprintf("%s-%d-%d", run.Name, req.Config.SharesPerTrade, i+1)
		}
		used[req.Name()] = true
		reqs = append(reqs, req)
	}
	if *bc.Benchmark {
		reqs = append(reqs, strategy.Request{
			Strategy: builtins.NewBuyAndHold().Name(),
			Mode:     engine.Benchmark,
			Config:   bc.EngineConfig(config.StrategyRun{SharesPerTrade: engine.DefaultSharesPerTrade}),
		})
	}
	return reqs, nil
}

// writeOutputs writes per-run trajectory and fill CSVs and the optional
// equity chart into the output directory.
func writeOutputs(bc config.BacktestConfig, results []*strategy.BacktestResult) error {
	if err := os.MkdirAll(bc.OutputDir, 0o755); err != nil {
		return err
	}
	curves := make([]report.Curve, 0, len(results))
	for _, res := range results {
		name := res.Request.Name()
		if err := report.WriteTrajectoryCSVFile(filepath.Join(bc.OutputDir, name+".csv"), res.Trajectory); err != nil {
			return err
		}
		if err := report.WriteFillsCSVFile(filepath.Join(bc.OutputDir, name+"-fills.csv"), res.Trajectory); err != nil {
			return err
		}
		curves = append(curves, report.CurveOf(name, res.Trajectory))
	}
	if bc.Plot {
		path := filepath.Join(bc.OutputDir, "equity.png")
		if err := report.PlotEquity(path, "Portfolio value", curves); err != nil {
			return err
		}
		slog.Info("chart written", "path", path)
	}
	slog.Info("outputs written", "dir", bc.OutputDir, "runs", len(results))
	return nil
}
