// Package strategy defines the Strategy interface for signal generators and
// provides a Registry for managing multiple strategy implementations.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"quantsim/internal/domain"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy is the interface that all signal generators must implement.
//
// Signals must return a matrix over exactly the axes of prices. Each column
// may depend only on the same column's price history, and the result must be
// deterministic for a given input. Days without enough defined history are
// Hold.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// Signals computes a BUY/HOLD/SELL decision for every (day, asset) cell.
	Signals(ctx context.Context, prices *domain.PriceMatrix) (*domain.SignalMatrix, error)
}

// ColumnRule maps one asset's price history to its signal history. The
// returned slice must have the same length as closes.
type ColumnRule func(closes []float64) []domain.Signal

// ApplyColumns builds a SignalMatrix by running rule over every asset column
// of prices. It stops early if ctx is cancelled.
func ApplyColumns(ctx context.Context, prices *domain.PriceMatrix, rule ColumnRule) (*domain.SignalMatrix, error) {
	rows := make([][]domain.Signal, prices.NumDays())
	for d := range rows {
		rows[d] = make([]domain.Signal, prices.NumAssets())
	}
	for a := 0; a < prices.NumAssets(); a++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		col := rule(prices.Column(a))
		if len(col) != len(rows) {
			return nil, fmt.Errorf("column %d: rule returned %d signals for %d days: %w",
				a, len(col), len(rows), domain.ErrRaggedMatrix)
		}
		for d, s := range col {
			rows[d][a] = s
		}
	}
	return domain.NewSignalMatrixLike(prices, rows)
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name(). A later
// registration under the same name replaces the earlier one.
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// Lookup is Get with an ErrUnknownStrategy error for missing names.
func (r *Registry) Lookup(name string) (Strategy, error) {
	s, ok := r.strategies[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownStrategy)
	}
	return s, nil
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
