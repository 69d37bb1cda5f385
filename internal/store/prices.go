package store

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"quantsim/internal/domain"
)

// LoadCloseMatrix assembles the daily closes of symbols in [start, end] into
// a PriceMatrix. Days are the union of every symbol's trading days, keyed by
// UTC calendar date; a symbol without a bar on a given day gets NaN. Assets
// are declared in ascending symbol order. Symbols with no bars in range are
// left out. An empty symbols list loads every symbol in the market.
func LoadCloseMatrix(ctx context.Context, bars BarStore, market domain.Market, symbols []string, start, end time.Time) (*domain.PriceMatrix, error) {
	if len(symbols) == 0 {
		var err error
		if symbols, err = bars.ListSymbols(ctx, market); err != nil {
			return nil, fmt.Errorf("listing %s symbols: %w", market, err)
		}
	}
	symbols = normalizeSymbols(symbols)

	// Inclusive of every bar stamped on the end date.
	until := dateOf(end).AddDate(0, 0, 1).Add(-time.Nanosecond)

	closes := make(map[string]map[time.Time]float64, len(symbols))
	daySet := make(map[time.Time]struct{})
	var assets []string
	for _, sym := range symbols {
		series, err := bars.ReadBars(ctx, sym, market, dateOf(start), until)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", sym, err)
		}
		if len(series) == 0 {
			continue
		}
		byDay := make(map[time.Time]float64, len(series))
		for _, b := range series {
			d := dateOf(b.Timestamp)
			byDay[d] = b.Close
			daySet[d] = struct{}{}
		}
		closes[sym] = byDay
		assets = append(assets, sym)
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("%s %s..%s: %w", market, start.Format("2006-01-02"), end.Format("2006-01-02"), ErrNoData)
	}

	days := make([]time.Time, 0, len(daySet))
	for d := range daySet {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	values := make([][]float64, len(days))
	for i, d := range days {
		row := make([]float64, len(assets))
		for a, sym := range assets {
			if p, ok := closes[sym][d]; ok {
				row[a] = p
			} else {
				row[a] = math.NaN()
			}
		}
		values[i] = row
	}
	return domain.NewPriceMatrix(days, assets, values)
}

// normalizeSymbols upper-cases, de-duplicates and sorts symbols.
func normalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
