package builtins

import (
	"context"

	"quantsim/internal/domain"
	"quantsim/internal/strategy"
)

var _ strategy.Strategy = (*BuyAndHold)(nil)

// BuyAndHold emits BUY for every asset on the first day and HOLD afterwards.
// It also serves as the signal source of benchmark runs.
type BuyAndHold struct{}

// NewBuyAndHold creates a BuyAndHold strategy.
func NewBuyAndHold() *BuyAndHold { return &BuyAndHold{} }

// Name returns "buy-and-hold".
func (*BuyAndHold) Name() string { return "buy-and-hold" }

// Signals returns BUY on day 0 for every asset.
func (*BuyAndHold) Signals(ctx context.Context, prices *domain.PriceMatrix) (*domain.SignalMatrix, error) {
	return strategy.ApplyColumns(ctx, prices, func(closes []float64) []domain.Signal {
		out := make([]domain.Signal, len(closes))
		if len(out) > 0 {
			out[0] = domain.Buy
		}
		return out
	})
}
