package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"quantsim/internal/domain"
	"quantsim/internal/engine"
)

var ErrInvalid = errors.New("invalid configuration")

// EnvPath names the environment variable that points at the config file when
// no -config flag is given.
const EnvPath = "QUANTSIM_CONFIG"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for quantsim.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
	Gather   GatherConfig   `yaml:"gather"`
	Backtest BacktestConfig `yaml:"backtest"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca market data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
	// Feed is the data feed, "iex" or "sip".
	Feed string `yaml:"feed"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GatherConfig controls data gathering behaviour.
type GatherConfig struct {
	USDaily GatherJobConfig `yaml:"us_daily"`
}

// GatherJobConfig holds parameters for a single data gathering job.
type GatherJobConfig struct {
	StartDate       string `yaml:"start_date"`
	EndDate         string `yaml:"end_date"`
	BatchSize       int    `yaml:"batch_size"`
	MaxWorkers      int    `yaml:"max_workers"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	// BatchDelay pauses each worker between batches, e.g. "2s".
	BatchDelay string `yaml:"batch_delay"`
	// UniverseCSV is a CSV file whose first column lists the symbols to fetch.
	UniverseCSV string `yaml:"universe_csv"`
}

// BacktestConfig defines the universe, period and runs of a backtest.
type BacktestConfig struct {
	Market         string   `yaml:"market"`
	StartDate      string   `yaml:"start_date"`
	EndDate        string   `yaml:"end_date"`
	Symbols        []string `yaml:"symbols"`
	InitialCapital float64  `yaml:"initial_capital"`
	// TransactionCostRate is a pointer so an explicit 0 is kept.
	TransactionCostRate *float64      `yaml:"transaction_cost_rate"`
	MaxParallel         int           `yaml:"max_parallel"`
	OutputDir           string        `yaml:"output_dir"`
	Plot                bool          `yaml:"plot"`
	Benchmark           *bool         `yaml:"benchmark"`
	Strategies          []StrategyRun `yaml:"strategies"`
}

// StrategyRun selects a registered strategy and its trade size.
type StrategyRun struct {
	Name           string `yaml:"name"`
	SharesPerTrade int64  `yaml:"shares_per_trade"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// ResolvePath returns flagPath when set, otherwise $QUANTSIM_CONFIG.
func ResolvePath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	return os.Getenv(EnvPath)
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority: canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "quantsim.db"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Alpaca.Feed == "" {
		cfg.Alpaca.Feed = "iex"
	}

	g := &cfg.Gather.USDaily
	if g.BatchSize <= 0 {
		g.BatchSize = 100
	}
	if g.MaxWorkers <= 0 {
		g.MaxWorkers = 4
	}
	if g.RateLimitPerMin <= 0 {
		g.RateLimitPerMin = 200
	}

	b := &cfg.Backtest
	if b.Market == "" {
		b.Market = string(domain.MarketUS)
	}
	if b.InitialCapital == 0 {
		b.InitialCapital = engine.DefaultInitialCapital
	}
	if b.TransactionCostRate == nil {
		rate := engine.DefaultTransactionCostRate
		b.TransactionCostRate = &rate
	}
	if b.MaxParallel <= 0 {
		b.MaxParallel = 4
	}
	if b.OutputDir == "" {
		b.OutputDir = "out"
	}
	if b.Benchmark == nil {
		on := true
		b.Benchmark = &on
	}
	for i := range b.Strategies {
		if b.Strategies[i].SharesPerTrade == 0 {
			b.Strategies[i].SharesPerTrade = engine.DefaultSharesPerTrade
		}
	}
}

// ---------------------------------------------------------------------------
// Derived values
// ---------------------------------------------------------------------------

// Period parses the backtest start and end dates. An empty end date means
// today.
func (b BacktestConfig) Period() (start, end time.Time, err error) {
	if b.StartDate == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("backtest.start_date is required: %w", ErrInvalid)
	}
	if start, err = time.Parse(time.DateOnly, b.StartDate); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("backtest.start_date: %w", err)
	}
	end = time.Now().UTC().Truncate(24 * time.Hour)
	if b.EndDate != "" {
		if end, err = time.Parse(time.DateOnly, b.EndDate); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("backtest.end_date: %w", err)
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("backtest period %s..%s is reversed: %w", b.StartDate, b.EndDate, ErrInvalid)
	}
	return start, end, nil
}

// EngineConfig builds the simulation parameters of one strategy run.
func (b BacktestConfig) EngineConfig(run StrategyRun) engine.Config {
	cfg := engine.Config{
		InitialCapital:      b.InitialCapital,
		SharesPerTrade:      run.SharesPerTrade,
		TransactionCostRate: engine.DefaultTransactionCostRate,
	}
	if b.TransactionCostRate != nil {
		cfg.TransactionCostRate = *b.TransactionCostRate
	}
	return cfg
}

// Validate checks the backtest section for errors that would only surface
// mid-run.
func (b BacktestConfig) Validate() error {
	if _, _, err := b.Period(); err != nil {
		return err
	}
	if len(b.Strategies) == 0 {
		return fmt.Errorf("backtest.strategies is empty: %w", ErrInvalid)
	}
	for _, s := range b.Strategies {
		if s.Name == "" {
			return fmt.Errorf("backtest.strategies: entry without name: %w", ErrInvalid)
		}
		if err := b.EngineConfig(s).Validate(); err != nil {
			return fmt.Errorf("strategy %s: %w", s.Name, err)
		}
	}
	return nil
}

// Dates parses the gather job's start and end dates. An empty end date means
// the zero time, which callers resolve to the latest finished trading day.
func (g GatherJobConfig) Dates() (start, end time.Time, err error) {
	if g.StartDate == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("gather start_date is required: %w", ErrInvalid)
	}
	if start, err = time.Parse(time.DateOnly, g.StartDate); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("gather start_date: %w", err)
	}
	if g.EndDate != "" {
		if end, err = time.Parse(time.DateOnly, g.EndDate); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("gather end_date: %w", err)
		}
	}
	return start, end, nil
}

// Delay parses BatchDelay; empty means no delay.
func (g GatherJobConfig) Delay() (time.Duration, error) {
	if g.BatchDelay == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(g.BatchDelay)
	if err != nil {
		return 0, fmt.Errorf("gather batch_delay: %w", err)
	}
	return d, nil
}
