package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"quantsim/internal/config"
	"quantsim/internal/domain"
	"quantsim/internal/report"
	"quantsim/internal/store"
	"quantsim/internal/strategy/builtins"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quantsim-cli <command> [args]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version          Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  strategies       List built-in strategies\n")
		fmt.Fprintf(os.Stderr, "  symbols [market] List symbols in the bar store (default us)\n")
		fmt.Fprintf(os.Stderr, "  runs [limit]     List recorded backtest runs (default 20)\n")
		fmt.Fprintf(os.Stderr, "  run <id>         Show one recorded run\n")
		fmt.Fprintf(os.Stderr, "\nThe config file is read from $%s (default config/quantsim.yaml).\n", config.EnvPath)
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}
	args := os.Args[2:]
	ctx := context.Background()

	switch os.Args[1] {
	case "version":
		fmt.Printf("quantsim-cli %s\n", version)

	case "strategies":
		for _, name := range builtins.NewRegistry().List() {
			fmt.Println(name)
		}

	case "symbols":
		market := domain.MarketUS
		if len(args) > 0 {
			market = domain.Market(strings.ToLower(args[0]))
		}
		cfg := loadConfig()
		symbols, err := store.NewParquetStore(cfg.Storage.DataDir).ListSymbols(ctx, market)
		if err != nil {
			log.Fatalf("listing symbols: %v", err)
		}
		for _, s := range symbols {
			fmt.Println(s)
		}
		fmt.Fprintf(os.Stderr, "%s symbols\n", report.FormatInt(int64(len(symbols))))

	case "runs":
		limit := 20
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				log.Fatalf("invalid limit %q", args[0])
			}
			limit = n
		}
		runs := openRuns()
		defer runs.Close()
		list, err := runs.ListRuns(ctx, limit)
		if err != nil {
			log.Fatalf("listing runs: %v", err)
		}
		fmt.Printf("%6s  %-19s  %-20s  %-9s  %16s  %9s  %7s\n", "ID", "Created", "Run", "Mode", "Final Value", "Return", "Sharpe")
		for _, r := range list {
			fmt.Printf("%6d  %-19s  %-20s  %-9s  %16s  %9s  %7s\n",
				r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Label, r.Mode,
				report.FormatMoney(r.FinalValue), report.FormatPercent(r.TotalReturn), report.FormatRatio(r.Sharpe))
		}

	case "run":
		if len(args) == 0 {
			log.Fatal("usage: quantsim-cli run <id>")
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			log.Fatalf("invalid id %q", args[0])
		}
		runs := openRuns()
		defer runs.Close()
		r, err := runs.GetRun(ctx, id)
		if err != nil {
			log.Fatalf("run %d: %v", id, err)
		}
		printRun(r)

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	path := config.ResolvePath("")
	if path == "" {
		path = "config/quantsim.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func openRuns() *store.SQLiteStore {
	runs, err := store.NewSQLiteStore(loadConfig().Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening run database: %v", err)
	}
	return runs
}

func printRun(r *store.RunRecord) {
	rows := []struct{ k, v string }{
		{"ID", strconv.FormatInt(r.ID, 10)},
		{"Created", r.CreatedAt.Local().Format("2006-01-02 15:04:05")},
		{"Run", r.Label},
		{"Strategy", r.Strategy},
		{"Mode", r.Mode},
		{"Market", r.Market},
		{"Period", r.Start.Format("2006-01-02") + " .. " + r.End.Format("2006-01-02")},
		{"Symbols", strings.Join(r.Symbols, ",")},
		{"Initial capital", report.FormatMoney(r.InitialCapital)},
		{"Shares per trade", report.FormatInt(r.SharesPerTrade)},
		{"Cost rate", report.FormatPercent(r.CostRate)},
		{"Final value", report.FormatMoney(r.FinalValue)},
		{"Total return", report.FormatPercent(r.TotalReturn)},
		{"CAGR", report.FormatPercent(r.CAGR)},
		{"Sharpe", report.FormatRatio(r.Sharpe)},
		{"Volatility", report.FormatPercent(r.Volatility)},
		{"Max drawdown", fmt.Sprintf("%s (%d days)", report.FormatPercent(r.MaxDrawdown), r.MaxDrawdownDays)},
		{"Fills", report.FormatInt(int64(r.Fills))},
		{"Costs", report.FormatMoney(r.TotalCost)},
	}
	for _, row := range rows {
		fmt.Printf("%-17s %s\n", row.k+":", row.v)
	}
}
