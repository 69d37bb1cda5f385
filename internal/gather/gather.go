// Package gather defines the contract shared by market-data downloaders.
package gather

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidRange = errors.New("invalid date range")

// Gatherer is the interface for all data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run performs one gathering pass. It returns early when ctx is cancelled.
	Run(ctx context.Context) error
}

// DateRange represents an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Validate rejects a missing start or an end before the start.
func (r DateRange) Validate() error {
	if r.Start.IsZero() {
		return fmt.Errorf("missing start date: %w", ErrInvalidRange)
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("%s: end before start: %w", r, ErrInvalidRange)
	}
	return nil
}

// String formats the range as "YYYY-MM-DD..YYYY-MM-DD".
func (r DateRange) String() string {
	return r.Start.Format(time.DateOnly) + ".." + r.End.Format(time.DateOnly)
}
