package engine

import (
	"errors"
	"fmt"
	"math"
)

// Default run parameters.
const (
	DefaultInitialCapital      = 1_000_000.0
	DefaultSharesPerTrade      = 1
	DefaultTransactionCostRate = 0.0035
)

var ErrInvalidConfig = errors.New("invalid simulation config")

// Config holds the execution parameters of one simulation run.
type Config struct {
	// InitialCapital is the cash balance on day 0.
	InitialCapital float64
	// SharesPerTrade is the fixed quantity offered per BUY or SELL signal.
	SharesPerTrade int64
	// TransactionCostRate is charged proportionally on both buys and sells
	// (e.g. 0.0035 for 35 bps).
	TransactionCostRate float64
}

// DefaultConfig returns the standard parameter set.
func DefaultConfig() Config {
	return Config{
		InitialCapital:      DefaultInitialCapital,
		SharesPerTrade:      DefaultSharesPerTrade,
		TransactionCostRate: DefaultTransactionCostRate,
	}
}

// Validate checks that the config describes a feasible run.
func (c Config) Validate() error {
	if !finite(c.InitialCapital) || c.InitialCapital < 0 {
		return fmt.Errorf("initial capital %v is not a finite non-negative amount: %w", c.InitialCapital, ErrInvalidConfig)
	}
	if c.SharesPerTrade < 0 {
		return fmt.Errorf("shares per trade %d is negative: %w", c.SharesPerTrade, ErrInvalidConfig)
	}
	if !finite(c.TransactionCostRate) || c.TransactionCostRate < 0 || c.TransactionCostRate >= 1 {
		return fmt.Errorf("transaction cost rate %v outside [0, 1): %w", c.TransactionCostRate, ErrInvalidConfig)
	}
	return nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
