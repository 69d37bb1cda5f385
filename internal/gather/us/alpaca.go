// Package us downloads daily US equity bars from the Alpaca market-data API
// into the bar store.
package us

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/schollz/progressbar/v3"

	"quantsim/internal/domain"
	"quantsim/internal/gather"
	"quantsim/internal/store"
	"quantsim/internal/util"
)

// ErrIncomplete is returned when some batches could not be fetched or
// written. A later run retries exactly those symbols.
var ErrIncomplete = errors.New("download incomplete")

const (
	fetchAttempts  = 3
	fetchBaseDelay = 2 * time.Second
)

// ---------------------------------------------------------------------------
// Compile-time interface checks
// ---------------------------------------------------------------------------

var _ gather.Gatherer = (*DailyBarGatherer)(nil)
var _ BarsClient = (*marketdata.Client)(nil)

// BarsClient is the subset of the Alpaca market-data client the gatherer
// needs.
type BarsClient interface {
	GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error)
}

// NewMarketDataClient creates an Alpaca market-data client. An empty dataURL
// selects the SDK default.
func NewMarketDataClient(apiKey, apiSecret, dataURL string) *marketdata.Client {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return marketdata.NewClient(opts)
}

// ---------------------------------------------------------------------------
// DailyBarGatherer
// ---------------------------------------------------------------------------

// DailyBarOptions configures a DailyBarGatherer.
type DailyBarOptions struct {
	// DataDir holds the progress files under <DataDir>/us/daily.
	DataDir    string
	BatchSize  int // symbols per API call
	MaxWorkers int
	// Limiter throttles API calls across all workers; nil means unlimited.
	Limiter *util.RateLimiter
	// BatchDelay pauses each worker after every batch.
	BatchDelay time.Duration
	Start      time.Time
	// End is inclusive. When zero, EndFunc resolves it at run time.
	End     time.Time
	EndFunc func() (time.Time, error)
	// Feed is "iex" or "sip".
	Feed string
	// Progress receives the progress bar; nil hides it.
	Progress io.Writer
}

// DailyBarGatherer downloads split- and dividend-adjusted daily bars for a
// fixed symbol universe and writes them to a BarStore, one batch of symbols
// per API call.
type DailyBarGatherer struct {
	client  BarsClient
	store   store.BarStore
	symbols []string
	opts    DailyBarOptions
	// retryDelay is the first backoff between fetch attempts.
	retryDelay time.Duration
	log        *slog.Logger
}

// NewDailyBarGatherer creates a DailyBarGatherer for the given universe.
func NewDailyBarGatherer(client BarsClient, s store.BarStore, symbols []string, opts DailyBarOptions) *DailyBarGatherer {
	opts.BatchSize = max(opts.BatchSize, 1)
	opts.MaxWorkers = max(opts.MaxWorkers, 1)
	if opts.Limiter == nil {
		opts.Limiter = util.NewRateLimiter(0)
	}
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	return &DailyBarGatherer{
		client:     client,
		store:      s,
		symbols:    symbols,
		opts:       opts,
		retryDelay: fetchBaseDelay,
		log:        slog.Default().With("gatherer", "us-daily"),
	}
}

// Name returns the gatherer identifier.
func (g *DailyBarGatherer) Name() string { return "us-daily" }

// Run downloads bars for every symbol not yet done in the current window.
// It is resumable after a crash and a no-op once the window is complete.
func (g *DailyBarGatherer) Run(ctx context.Context) error {
	// 1. Resolve the window.
	end := g.opts.End
	if end.IsZero() {
		if g.opts.EndFunc == nil {
			return fmt.Errorf("no end date and no end resolver: %w", gather.ErrInvalidRange)
		}
		var err error
		if end, err = g.opts.EndFunc(); err != nil {
			return fmt.Errorf("determining end date: %w", err)
		}
	}
	window := gather.DateRange{Start: g.opts.Start, End: end}
	if err := window.Validate(); err != nil {
		return err
	}
	key := window.String()

	// 2. Set up progress tracker.
	tracker, err := newProgressTracker(filepath.Join(g.opts.DataDir, string(domain.MarketUS), "daily"))
	if err != nil {
		return fmt.Errorf("creating progress tracker: %w", err)
	}
	defer tracker.Close()

	if tracker.IsCompleted(key) {
		g.log.Info("already completed", "window", key)
		return nil
	}
	if err := tracker.Begin(key); err != nil {
		return fmt.Errorf("starting window: %w", err)
	}

	// 3. Filter out symbols already handled in this window.
	var remaining []string
	seen := make(map[string]struct{}, len(g.symbols))
	for _, sym := range g.symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		if !tracker.IsDone(sym) {
			remaining = append(remaining, sym)
		}
	}

	batches := splitBatches(remaining, g.opts.BatchSize)
	g.log.Info("starting us-daily",
		"window", key,
		"total", len(seen),
		"remaining", len(remaining),
		"batches", len(batches),
	)

	if len(batches) == 0 {
		return tracker.MarkCompleted(key)
	}

	// 4. Feed batches to workers.
	batchCh := make(chan int, len(batches))
	for i := range batches {
		batchCh <- i
	}
	close(batchCh)

	bar := newProgressBar(g.opts.Progress, len(batches))

	var (
		wg        sync.WaitGroup
		totalHits atomic.Int64
		totalMiss atomic.Int64
		failed    atomic.Int64
		runStart  = time.Now()
	)

	workers := min(g.opts.MaxWorkers, len(batches))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batchIdx := range batchCh {
				if ctx.Err() != nil {
					return
				}
				label := fmt.Sprintf("%d/%d", batchIdx+1, len(batches))
				hits, misses, err := g.processBatch(ctx, tracker, batches[batchIdx], window)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					failed.Add(1)
					g.log.Error("batch failed", "batch", label, "err", err)
				} else {
					totalHits.Add(int64(hits))
					totalMiss.Add(int64(misses))
					g.log.Debug("batch done", "batch", label, "hits", hits, "empty", misses)
				}
				bar.Add(1)

				if g.opts.BatchDelay > 0 {
					select {
					case <-ctx.Done():
						return
					case <-time.After(g.opts.BatchDelay):
					}
				}
			}
		}()
	}

	wg.Wait()
	bar.Finish()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d batches failed: %w", n, len(batches), ErrIncomplete)
	}
	if err := tracker.MarkCompleted(key); err != nil {
		return fmt.Errorf("marking completed: %w", err)
	}

	g.log.Info("complete",
		"hits", totalHits.Load(),
		"empty", totalMiss.Load(),
		"elapsed", time.Since(runStart).Round(time.Second),
	)
	return nil
}

// processBatch fetches, stores and records one batch of symbols.
func (g *DailyBarGatherer) processBatch(ctx context.Context, tracker *progressTracker, batch []string, window gather.DateRange) (hits, misses int, err error) {
	var bars []domain.Bar
	err = util.Retry(ctx, fetchAttempts, g.retryDelay, func() error {
		if err := g.opts.Limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		var ferr error
		bars, ferr = g.fetchMultiBars(batch, window)
		return ferr
	})
	if err != nil {
		return 0, 0, err
	}

	hitSet := make(map[string]struct{})
	for _, b := range bars {
		hitSet[b.Symbol] = struct{}{}
	}
	var hitSymbols, emptySymbols []string
	for _, sym := range batch {
		if _, hit := hitSet[sym]; hit {
			hitSymbols = append(hitSymbols, sym)
		} else {
			emptySymbols = append(emptySymbols, sym)
		}
	}

	if len(bars) > 0 {
		if err := g.store.WriteBars(ctx, domain.MarketUS, bars); err != nil {
			return 0, 0, fmt.Errorf("writing bars: %w", err)
		}
		if err := tracker.MarkFetched(hitSymbols); err != nil {
			return 0, 0, fmt.Errorf("marking fetched: %w", err)
		}
	}
	if len(emptySymbols) > 0 {
		if err := tracker.MarkEmpty(emptySymbols); err != nil {
			return 0, 0, fmt.Errorf("marking empty: %w", err)
		}
	}
	return len(hitSymbols), len(emptySymbols), nil
}

// fetchMultiBars fetches adjusted daily bars for several symbols in a single
// API call. The end date is inclusive.
func (g *DailyBarGatherer) fetchMultiBars(symbols []string, window gather.DateRange) ([]domain.Bar, error) {
	multiBars, err := g.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
		TimeFrame:  marketdata.OneDay,
		Adjustment: marketdata.All,
		Start:      window.Start,
		End:        window.End.AddDate(0, 0, 1),
		Feed:       g.opts.Feed,
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	var bars []domain.Bar
	for symbol, alpacaBars := range multiBars {
		for _, ab := range alpacaBars {
			bars = append(bars, domain.Bar{
				Symbol:     strings.ToUpper(symbol),
				Timestamp:  ab.Timestamp,
				Open:       ab.Open,
				High:       ab.High,
				Low:        ab.Low,
				Close:      ab.Close,
				Volume:     int64(ab.Volume),
				TradeCount: int64(ab.TradeCount),
				VWAP:       ab.VWAP,
			})
		}
	}
	return bars, nil
}

func splitBatches(symbols []string, size int) [][]string {
	var batches [][]string
	for i := 0; i < len(symbols); i += size {
		batches = append(batches, symbols[i:min(i+size, len(symbols))])
	}
	return batches
}

func newProgressBar(w io.Writer, batches int) *progressbar.ProgressBar {
	return progressbar.NewOptions(batches,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("Downloading daily bars..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
