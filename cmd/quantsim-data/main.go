package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quantsim/internal/config"
	"quantsim/internal/gather/us"
	"quantsim/internal/store"
	"quantsim/internal/util"
)

func main() {
	cfgFlag := flag.String("config", "", "path to config file (default $QUANTSIM_CONFIG)")
	universe := flag.String("universe", "", "CSV file listing symbols (overrides gather.us_daily.universe_csv)")
	quiet := flag.Bool("quiet", false, "hide the progress bar")
	flag.Parse()

	cfgPath := config.ResolvePath(*cfgFlag)
	if cfgPath == "" {
		cfgPath = "config/quantsim.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Dual logger: stderr + /tmp log file.
	logFileName := fmt.Sprintf("/tmp/quantsim-data-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.Create(logFileName)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()
	util.SetDefault(util.NewLoggerTo(io.MultiWriter(os.Stderr, logFile), cfg.Logging.Level, cfg.Logging.Format))

	job := cfg.Gather.USDaily
	csvPath := job.UniverseCSV
	if *universe != "" {
		csvPath = *universe
	}
	if csvPath == "" {
		log.Fatal("no universe CSV: set gather.us_daily.universe_csv or -universe")
	}
	symbols, err := us.LoadCSVSymbols(csvPath)
	if err != nil {
		log.Fatalf("loading universe: %v", err)
	}

	start, end, err := job.Dates()
	if err != nil {
		log.Fatalf("invalid gather dates: %v", err)
	}
	delay, err := job.Delay()
	if err != nil {
		log.Fatalf("invalid gather delay: %v", err)
	}

	var progress io.Writer = os.Stderr
	if *quiet {
		progress = nil
	}

	gatherer := us.NewDailyBarGatherer(
		us.NewMarketDataClient(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL),
		store.NewParquetStore(cfg.Storage.DataDir),
		symbols,
		us.DailyBarOptions{
			DataDir:    cfg.Storage.DataDir,
			BatchSize:  job.BatchSize,
			MaxWorkers: job.MaxWorkers,
			Limiter:    util.NewRateLimiter(job.RateLimitPerMin),
			BatchDelay: delay,
			Start:      start,
			End:        end,
			EndFunc: func() (time.Time, error) {
				return us.LatestFinishedTradingDay(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
			},
			Feed:     cfg.Alpaca.Feed,
			Progress: progress,
		},
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting quantsim-data", "logFile", logFileName, "symbols", len(symbols), "feed", cfg.Alpaca.Feed)
	if err := gatherer.Run(ctx); err != nil {
		log.Fatalf("%s: %v", gatherer.Name(), err)
	}
}
