package builtins

import (
	"context"

	"quantsim/internal/domain"
	"quantsim/internal/indicators"
	"quantsim/internal/strategy"
)

var _ strategy.Strategy = (*VolBreakout)(nil)

// VolBreakout compares each daily return with the rolling standard deviation
// of returns: BUY when the return exceeds one deviation, SELL when it falls
// below minus one deviation.
type VolBreakout struct {
	window int
}

// NewVolBreakout creates a VolBreakout over a rolling window of returns.
func NewVolBreakout(window int) *VolBreakout {
	return &VolBreakout{window: window}
}

// Name returns "vol-breakout".
func (v *VolBreakout) Name() string { return "vol-breakout" }

// Signals computes breakout signals for every asset.
func (v *VolBreakout) Signals(ctx context.Context, prices *domain.PriceMatrix) (*domain.SignalMatrix, error) {
	return strategy.ApplyColumns(ctx, prices, func(closes []float64) []domain.Signal {
		returns := indicators.PctChange(closes)
		vol := indicators.RollingStd(returns, v.window)
		return mapDays(len(closes), func(i int) domain.Signal {
			switch {
			case returns[i] > vol[i]:
				return domain.Buy
			case returns[i] < -vol[i]:
				return domain.Sell
			default:
				return domain.Hold
			}
		})
	})
}
