// Package indicators computes per-series technical indicators. Every function
// returns a slice aligned with its input; warmup and undefined cells are NaN.
package indicators

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// nan fills a fresh slice of length n with NaN.
func nan(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// rolling applies fn to each full window of n points. A window holding any
// NaN yields NaN.
func rolling(x []float64, n int, fn func(window []float64) float64) []float64 {
	if n <= 0 {
		return nil
	}
	out := nan(len(x))
	missing := 0
	for i, v := range x {
		if math.IsNaN(v) {
			missing++
		}
		if i >= n && math.IsNaN(x[i-n]) {
			missing--
		}
		if i < n-1 || missing > 0 {
			continue
		}
		out[i] = fn(x[i-n+1 : i+1])
	}
	return out
}

// SMA is the simple moving average over the last n points.
func SMA(x []float64, n int) []float64 {
	return rolling(x, n, func(w []float64) float64 { return stat.Mean(w, nil) })
}

// RollingStd is the sample standard deviation over the last n points.
func RollingStd(x []float64, n int) []float64 {
	if n < 2 {
		return nan(len(x))
	}
	return rolling(x, n, func(w []float64) float64 { return stat.StdDev(w, nil) })
}

// EMA is the recursive exponential moving average with α = 2/(span+1),
// seeded with the first defined value. NaN inputs produce NaN outputs and
// leave the recursion state untouched.
func EMA(x []float64, span int) []float64 {
	if span <= 0 {
		return nil
	}
	out := nan(len(x))
	alpha := 2.0 / float64(span+1)
	prev, seeded := 0.0, false
	for i, v := range x {
		if math.IsNaN(v) {
			continue
		}
		if !seeded {
			prev, seeded = v, true
		} else {
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}

// Diff is x[i] - x[i-1]; the first element is NaN.
func Diff(x []float64) []float64 {
	out := nan(len(x))
	for i := 1; i < len(x); i++ {
		out[i] = x[i] - x[i-1]
	}
	return out
}

// PctChange is x[i]/x[i-1] - 1; the first element and any change from a zero
// base are NaN.
func PctChange(x []float64) []float64 {
	out := nan(len(x))
	for i := 1; i < len(x); i++ {
		if x[i-1] == 0 {
			continue
		}
		out[i] = x[i]/x[i-1] - 1
	}
	return out
}

// RSI is the relative strength index over n price changes, using simple
// rolling means of gains and losses. The first defined value is at index n.
// A window with no losses reads 100; a flat window is NaN.
func RSI(x []float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	delta := Diff(x)
	gains := make([]float64, len(delta))
	losses := make([]float64, len(delta))
	for i, d := range delta {
		switch {
		case math.IsNaN(d):
			gains[i], losses[i] = math.NaN(), math.NaN()
		case d > 0:
			gains[i] = d
		case d < 0:
			losses[i] = -d
		}
	}
	avgGain := SMA(gains, n)
	avgLoss := SMA(losses, n)

	out := nan(len(x))
	for i := range out {
		g, l := avgGain[i], avgLoss[i]
		if math.IsNaN(g) || math.IsNaN(l) || (g == 0 && l == 0) {
			continue
		}
		if l == 0 {
			out[i] = 100
			continue
		}
		out[i] = 100 - 100/(1+g/l)
	}
	return out
}

// CrossedBelow reports whether x moved from at or above level at i-1 to below
// it at i.
func CrossedBelow(x []float64, i int, level float64) bool {
	return i > 0 && x[i] < level && x[i-1] >= level
}

// CrossedAbove reports whether x moved from at or below level at i-1 to above
// it at i.
func CrossedAbove(x []float64, i int, level float64) bool {
	return i > 0 && x[i] > level && x[i-1] <= level
}
