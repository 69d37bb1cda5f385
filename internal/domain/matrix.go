package domain

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"
)

var (
	ErrRaggedMatrix   = errors.New("matrix shape does not match its index")
	ErrUnorderedDays  = errors.New("days must be strictly increasing")
	ErrDuplicateAsset = errors.New("duplicate asset in index")
	ErrInvalidSignal  = errors.New("signal must be -1, 0 or 1")
)

// Index is the shared (day, asset) axis pair of a matrix. Days are strictly
// increasing; assets keep their declared order, which is also the order in
// which the engine processes them within a day.
type Index struct {
	days   []time.Time
	assets []string
}

// NewIndex validates and copies the given axes.
func NewIndex(days []time.Time, assets []string) (Index, error) {
	for i := 1; i < len(days); i++ {
		if !days[i].After(days[i-1]) {
			return Index{}, fmt.Errorf("day %d (%s): %w", i, days[i].Format("2006-01-02"), ErrUnorderedDays)
		}
	}
	seen := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		if _, dup := seen[a]; dup {
			return Index{}, fmt.Errorf("asset %q: %w", a, ErrDuplicateAsset)
		}
		seen[a] = struct{}{}
	}
	return Index{days: slices.Clone(days), assets: slices.Clone(assets)}, nil
}

// Days returns a copy of the day axis.
func (ix Index) Days() []time.Time { return slices.Clone(ix.days) }

// Assets returns a copy of the asset axis.
func (ix Index) Assets() []string { return slices.Clone(ix.assets) }

// Day returns the i-th day.
func (ix Index) Day(i int) time.Time { return ix.days[i] }

func (ix Index) NumDays() int   { return len(ix.days) }
func (ix Index) NumAssets() int { return len(ix.assets) }

// Equal reports whether both axes are identical.
func (ix Index) Equal(other Index) bool {
	if len(ix.days) != len(other.days) || !slices.Equal(ix.assets, other.assets) {
		return false
	}
	for i := range ix.days {
		if !ix.days[i].Equal(other.days[i]) {
			return false
		}
	}
	return true
}

func (ix Index) checkShape(rows int, width func(int) int) error {
	if rows != len(ix.days) {
		return fmt.Errorf("%d rows for %d days: %w", rows, len(ix.days), ErrRaggedMatrix)
	}
	for i := 0; i < rows; i++ {
		if w := width(i); w != len(ix.assets) {
			return fmt.Errorf("row %d has %d columns for %d assets: %w", i, w, len(ix.assets), ErrRaggedMatrix)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// PriceMatrix
// ---------------------------------------------------------------------------

// PriceMatrix maps (day, asset) to a price. Missing prices are stored as NaN
// and are never reported as zero.
type PriceMatrix struct {
	Index
	values [][]float64
}

// NewPriceMatrix builds an immutable PriceMatrix. values is indexed
// [day][asset] and is deep-copied.
func NewPriceMatrix(days []time.Time, assets []string, values [][]float64) (*PriceMatrix, error) {
	ix, err := NewIndex(days, assets)
	if err != nil {
		return nil, err
	}
	if err := ix.checkShape(len(values), func(i int) int { return len(values[i]) }); err != nil {
		return nil, err
	}
	rows := make([][]float64, len(values))
	for i, row := range values {
		rows[i] = slices.Clone(row)
	}
	return &PriceMatrix{Index: ix, values: rows}, nil
}

// Axes returns the matrix axes.
func (m *PriceMatrix) Axes() Index { return m.Index }

// At returns the price of asset on day. ok is false when the price is missing
// or not a finite number.
func (m *PriceMatrix) At(day, asset int) (price float64, ok bool) {
	p := m.values[day][asset]
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return math.NaN(), false
	}
	return p, true
}

// Row returns a copy of one day's prices.
func (m *PriceMatrix) Row(day int) []float64 {
	return slices.Clone(m.values[day])
}

// Column returns a copy of one asset's price history.
func (m *PriceMatrix) Column(asset int) []float64 {
	col := make([]float64, len(m.values))
	for i, row := range m.values {
		col[i] = row[asset]
	}
	return col
}

// ---------------------------------------------------------------------------
// SignalMatrix
// ---------------------------------------------------------------------------

// SignalMatrix maps (day, asset) to a Signal.
type SignalMatrix struct {
	Index
	values [][]Signal
}

// NewSignalMatrix builds an immutable SignalMatrix. values is indexed
// [day][asset] and is deep-copied.
func NewSignalMatrix(days []time.Time, assets []string, values [][]Signal) (*SignalMatrix, error) {
	ix, err := NewIndex(days, assets)
	if err != nil {
		return nil, err
	}
	return newSignalMatrix(ix, values)
}

// NewSignalMatrixLike builds a SignalMatrix over the axes of prices.
func NewSignalMatrixLike(prices *PriceMatrix, values [][]Signal) (*SignalMatrix, error) {
	return newSignalMatrix(prices.Index, values)
}

func newSignalMatrix(ix Index, values [][]Signal) (*SignalMatrix, error) {
	if err := ix.checkShape(len(values), func(i int) int { return len(values[i]) }); err != nil {
		return nil, err
	}
	rows := make([][]Signal, len(values))
	for i, row := range values {
		for j, s := range row {
			if !s.Valid() {
				return nil, fmt.Errorf("day %d asset %q value %d: %w", i, ix.assets[j], int8(s), ErrInvalidSignal)
			}
		}
		rows[i] = slices.Clone(row)
	}
	return &SignalMatrix{Index: ix, values: rows}, nil
}

// Axes returns the matrix axes.
func (m *SignalMatrix) Axes() Index { return m.Index }

// At returns the signal of asset on day.
func (m *SignalMatrix) At(day, asset int) Signal {
	return m.values[day][asset]
}

// Row returns a copy of one day's signals.
func (m *SignalMatrix) Row(day int) []Signal {
	return slices.Clone(m.values[day])
}

// Column returns a copy of one asset's signal history.
func (m *SignalMatrix) Column(asset int) []Signal {
	col := make([]Signal, len(m.values))
	for i, row := range m.values {
		col[i] = row[asset]
	}
	return col
}
