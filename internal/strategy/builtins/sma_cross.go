// Package builtins provides built-in strategy implementations that ship with
// quantsim.
package builtins

import (
	"context"

	"quantsim/internal/domain"
	"quantsim/internal/indicators"
	"quantsim/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACross implements a simple moving average trend strategy. It emits BUY on
// every day the short-period SMA is above the long-period SMA and HOLD
// otherwise, including during warmup.
type SMACross struct {
	shortPeriod int
	longPeriod  int
}

// NewSMACross creates a new SMACross strategy with the specified short and
// long moving average periods.
func NewSMACross(short, long int) *SMACross {
	return &SMACross{
		shortPeriod: short,
		longPeriod:  long,
	}
}

// Name returns "sma-cross".
func (s *SMACross) Name() string {
	return "sma-cross"
}

// Signals computes the crossover state for every asset.
func (s *SMACross) Signals(ctx context.Context, prices *domain.PriceMatrix) (*domain.SignalMatrix, error) {
	return strategy.ApplyColumns(ctx, prices, func(closes []float64) []domain.Signal {
		short := indicators.SMA(closes, s.shortPeriod)
		long := indicators.SMA(closes, s.longPeriod)
		return mapDays(len(closes), func(i int) domain.Signal {
			if short[i] > long[i] {
				return domain.Buy
			}
			return domain.Hold
		})
	})
}

// mapDays builds a signal column of length n from a per-day rule.
func mapDays(n int, rule func(i int) domain.Signal) []domain.Signal {
	out := make([]domain.Signal, n)
	for i := range out {
		out[i] = rule(i)
	}
	return out
}
