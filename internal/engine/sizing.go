package engine

import "math"

// tradable reports whether a trade may be priced at p. Missing, non-finite
// and non-positive prices are never traded against.
func tradable(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p > 0
}

// buyCost is the cash a buy of qty shares at price consumes, cost included.
func buyCost(qty int64, price, rate float64) float64 {
	return float64(qty) * price * (1 + rate)
}

// sellProceeds is the cash a sale of qty shares at price returns, net of cost.
func sellProceeds(qty int64, price, rate float64) float64 {
	return float64(qty) * price * (1 - rate)
}

// buyQuantity caps a BUY at cfg.SharesPerTrade and at the largest whole share
// count whose cost, transaction cost included, fits in cash.
func buyQuantity(cash, price float64, cfg Config) int64 {
	if !tradable(price) || cash <= 0 || cfg.SharesPerTrade <= 0 {
		return 0
	}
	affordable := math.Floor(cash / (price * (1 + cfg.TransactionCostRate)))
	qty := cfg.SharesPerTrade
	if affordable < float64(qty) {
		qty = int64(affordable)
	}
	// Rounding in the division may overshoot by one share.
	for qty > 0 && buyCost(qty, price, cfg.TransactionCostRate) > cash {
		qty--
	}
	return qty
}

// sellQuantity caps a SELL at cfg.SharesPerTrade and at the shares held.
func sellQuantity(held int64, cfg Config) int64 {
	if held <= 0 || cfg.SharesPerTrade <= 0 {
		return 0
	}
	return min(cfg.SharesPerTrade, held)
}
