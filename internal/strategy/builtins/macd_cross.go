package builtins

import (
	"context"

	"quantsim/internal/domain"
	"quantsim/internal/indicators"
	"quantsim/internal/strategy"
)

var _ strategy.Strategy = (*MACDCross)(nil)

// MACDCross emits BUY while the MACD line (fast EMA minus slow EMA) is above
// its signal line (an EMA of the MACD line), and HOLD otherwise.
type MACDCross struct {
	fast, slow, signal int
}

// NewMACDCross creates a MACDCross with the given EMA spans.
func NewMACDCross(fast, slow, signal int) *MACDCross {
	return &MACDCross{fast: fast, slow: slow, signal: signal}
}

// Name returns "macd-cross".
func (m *MACDCross) Name() string { return "macd-cross" }

// Signals computes the MACD state for every asset.
func (m *MACDCross) Signals(ctx context.Context, prices *domain.PriceMatrix) (*domain.SignalMatrix, error) {
	return strategy.ApplyColumns(ctx, prices, func(closes []float64) []domain.Signal {
		fast := indicators.EMA(closes, m.fast)
		slow := indicators.EMA(closes, m.slow)
		macd := make([]float64, len(closes))
		for i := range macd {
			macd[i] = fast[i] - slow[i]
		}
		line := indicators.EMA(macd, m.signal)
		return mapDays(len(closes), func(i int) domain.Signal {
			if macd[i] > line[i] {
				return domain.Buy
			}
			return domain.Hold
		})
	})
}
