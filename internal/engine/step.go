package engine

import (
	"math"
	"slices"

	"quantsim/internal/domain"
)

// step advances the portfolio by one day. prev is yesterday's holdings,
// acting is yesterday's signal row and prices is today's price row. Assets
// are processed in index order against a single running cash balance, so a
// sell earlier in the row funds buys later in the same row.
//
// The returned fills carry AssetIndex, Side, Qty, Price and Cost only.
func step(prev []int64, cash float64, acting []domain.Signal, prices []float64, cfg Config) ([]int64, float64, []Fill) {
	next := slices.Clone(prev)
	var fills []Fill

	for a := range next {
		price := prices[a]
		if !tradable(price) {
			continue
		}

		switch {
		case acting[a] == domain.Sell && prev[a] > 0:
			qty := sellQuantity(prev[a], cfg)
			if qty == 0 {
				continue
			}
			cash += sellProceeds(qty, price, cfg.TransactionCostRate)
			next[a] -= qty
			fills = append(fills, Fill{
				AssetIndex: a,
				Side:       SideSell,
				Qty:        qty,
				Price:      price,
				Cost:       float64(qty) * price * cfg.TransactionCostRate,
			})

		case acting[a] == domain.Buy:
			qty := buyQuantity(cash, price, cfg)
			if qty == 0 {
				continue
			}
			cash -= buyCost(qty, price, cfg.TransactionCostRate)
			next[a] += qty
			fills = append(fills, Fill{
				AssetIndex: a,
				Side:       SideBuy,
				Qty:        qty,
				Price:      price,
				Cost:       float64(qty) * price * cfg.TransactionCostRate,
			})
		}
	}
	return next, cash, fills
}

// markToMarket values holdings at prices plus cash. Assets without a finite
// price contribute nothing.
func markToMarket(positions []int64, cash float64, prices []float64) float64 {
	value := cash
	for a, qty := range positions {
		p := prices[a]
		if math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		value += float64(qty) * p
	}
	return value
}
