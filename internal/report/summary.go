// Package report turns simulation trajectories into performance summaries,
// console tables, CSV exports and equity charts.
package report

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"quantsim/internal/engine"
)

// TradingDaysPerYear annualises daily return statistics.
const TradingDaysPerYear = 252

// Summary holds the headline metrics of one simulation run. Return-type
// fields are fractions (0.05 = 5%).
type Summary struct {
	Label string
	Mode  string

	Start time.Time
	End   time.Time
	Days  int

	InitialCapital float64
	FinalValue     float64
	FinalCash      float64
	PnL            float64

	TotalReturn float64
	CAGR        float64
	Sharpe      float64
	Volatility  float64

	MaxDrawdown     float64
	MaxDrawdownDays int

	Fills     int
	TotalCost float64
}

// Summarize computes the performance summary of traj.
func Summarize(label string, traj *engine.Trajectory) Summary {
	n := traj.Len()
	axes := traj.Axes()
	values := traj.ValueSeries()
	capital := traj.Config().InitialCapital

	s := Summary{
		Label:          label,
		Mode:           traj.Mode().String(),
		Days:           n,
		InitialCapital: capital,
		Fills:          len(traj.Fills()),
		TotalCost:      traj.TotalCost(),
	}
	if n == 0 {
		return s
	}
	s.Start = axes.Day(0)
	s.End = axes.Day(n - 1)
	s.FinalValue = values[n-1]
	s.FinalCash = traj.Cash(n - 1)
	s.PnL = traj.PnL(n - 1)

	if capital > 0 {
		s.TotalReturn = s.FinalValue/capital - 1
		s.CAGR = cagr(capital, s.FinalValue, s.End.Sub(s.Start))
	}

	returns := DailyReturns(values)
	if len(returns) >= 2 {
		sd := stat.StdDev(returns, nil)
		s.Volatility = sd * math.Sqrt(TradingDaysPerYear)
		if sd > 0 {
			s.Sharpe = stat.Mean(returns, nil) / sd * math.Sqrt(TradingDaysPerYear)
		}
	}

	s.MaxDrawdown, s.MaxDrawdownDays = maxDrawdown(axes.Days(), values)
	return s
}

// DailyReturns converts a value curve into simple day-over-day returns. Days
// following a non-positive value are skipped.
func DailyReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] <= 0 {
			continue
		}
		out = append(out, values[i]/values[i-1]-1)
	}
	return out
}

func cagr(start, end float64, span time.Duration) float64 {
	years := span.Hours() / (24 * 365.25)
	if years <= 0 || start <= 0 || end <= 0 {
		return 0
	}
	return math.Pow(end/start, 1/years) - 1
}

// maxDrawdown returns the largest peak-to-trough decline as a fraction of the
// peak, and the calendar days between that peak and trough.
func maxDrawdown(days []time.Time, values []float64) (float64, int) {
	var (
		peak     = math.Inf(-1)
		peakDay  time.Time
		worst    float64
		worstLen int
	)
	for i, v := range values {
		if v > peak {
			peak, peakDay = v, days[i]
			continue
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak; dd > worst {
			worst = dd
			worstLen = int(days[i].Sub(peakDay).Hours() / 24)
		}
	}
	return worst, worstLen
}
