package builtins

import (
	"context"

	"quantsim/internal/domain"
	"quantsim/internal/indicators"
	"quantsim/internal/strategy"
)

var _ strategy.Strategy = (*RSIThreshold)(nil)

// RSIThreshold buys on the day RSI crosses below the oversold level and sells
// on the day it crosses above the overbought level.
type RSIThreshold struct {
	window     int
	oversold   float64
	overbought float64
}

// NewRSIThreshold creates an RSIThreshold over window price changes.
func NewRSIThreshold(window int, oversold, overbought float64) *RSIThreshold {
	return &RSIThreshold{window: window, oversold: oversold, overbought: overbought}
}

// Name returns "rsi-threshold".
func (r *RSIThreshold) Name() string { return "rsi-threshold" }

// Signals computes RSI crossings for every asset.
func (r *RSIThreshold) Signals(ctx context.Context, prices *domain.PriceMatrix) (*domain.SignalMatrix, error) {
	return strategy.ApplyColumns(ctx, prices, func(closes []float64) []domain.Signal {
		rsi := indicators.RSI(closes, r.window)
		return mapDays(len(closes), func(i int) domain.Signal {
			switch {
			case indicators.CrossedBelow(rsi, i, r.oversold):
				return domain.Buy
			case indicators.CrossedAbove(rsi, i, r.overbought):
				return domain.Sell
			default:
				return domain.Hold
			}
		})
	})
}
