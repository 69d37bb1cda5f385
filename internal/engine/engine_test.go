package engine

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"quantsim/internal/domain"
)

const eps = 1e-6

var nan = math.NaN()

func testDays(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
	}
	return out
}

func mustPrices(t *testing.T, assets []string, rows [][]float64) *domain.PriceMatrix {
	t.Helper()
	m, err := domain.NewPriceMatrix(testDays(len(rows)), assets, rows)
	if err != nil {
		t.Fatalf("NewPriceMatrix: %v", err)
	}
	return m
}

func mustSignals(t *testing.T, prices *domain.PriceMatrix, rows [][]domain.Signal) *domain.SignalMatrix {
	t.Helper()
	m, err := domain.NewSignalMatrixLike(prices, rows)
	if err != nil {
		t.Fatalf("NewSignalMatrixLike: %v", err)
	}
	return m
}

// column builds a one-asset matrix row set from a single series.
func column[T any](xs ...T) [][]T {
	rows := make([][]T, len(xs))
	for i, x := range xs {
		rows[i] = []T{x}
	}
	return rows
}

func TestSimulateScenarioTwoAssets(t *testing.T) {
	prices := mustPrices(t, []string{"A", "B"}, [][]float64{
		{10, 20}, {10, 20}, {10, 20}, {10, 20},
	})
	signals := mustSignals(t, prices, [][]domain.Signal{
		{domain.Buy, domain.Buy},
		{domain.Hold, domain.Hold},
		{domain.Hold, domain.Hold},
		{domain.Hold, domain.Hold},
	})
	cfg := Config{InitialCapital: 1_000_000, SharesPerTrade: 5, TransactionCostRate: 0}

	traj, err := NewActive(cfg).Simulate(prices, signals)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	if got := traj.Positions(0); got[0] != 0 || got[1] != 0 {
		t.Errorf("position[0] = %v, want [0 0]", got)
	}
	for day := 1; day < 4; day++ {
		if got := traj.Positions(day); got[0] != 5 || got[1] != 5 {
			t.Errorf("position[%d] = %v, want [5 5]", day, got)
		}
		if traj.Cash(day) != 999_850 {
			t.Errorf("cash[%d] = %v, want 999850", day, traj.Cash(day))
		}
		if traj.Value(day) != 1_000_000 {
			t.Errorf("port_val[%d] = %v, want 1000000", day, traj.Value(day))
		}
		if traj.PnL(day) != 0 {
			t.Errorf("cum_pnl[%d] = %v, want 0", day, traj.PnL(day))
		}
	}
	if len(traj.Fills()) != 2 {
		t.Errorf("got %d fills, want 2", len(traj.Fills()))
	}
}

func TestSimulateRoundTripChargesCostTwice(t *testing.T) {
	prices := mustPrices(t, []string{"A"}, column(100.0, 100, 100, 100))
	signals := mustSignals(t, prices, column(domain.Buy, domain.Sell, domain.Hold, domain.Hold))
	cfg := Config{InitialCapital: 1_000_000, SharesPerTrade: 10, TransactionCostRate: 0.01}

	traj, err := NewActive(cfg).Simulate(prices, signals)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	if traj.Position(1, 0) != 10 {
		t.Errorf("position after buy = %d, want 10", traj.Position(1, 0))
	}
	if traj.Position(2, 0) != 0 {
		t.Errorf("position after sell = %d, want 0", traj.Position(2, 0))
	}
	want := 1_000_000 - 10*100*0.01 - 10*100*0.01
	if math.Abs(traj.Cash(2)-want) > eps {
		t.Errorf("cash after round trip = %v, want %v", traj.Cash(2), want)
	}
	if math.Abs(traj.TotalCost()-20) > eps {
		t.Errorf("TotalCost() = %v, want 20", traj.TotalCost())
	}
}

func TestSimulateInsufficientCashClamp(t *testing.T) {
	prices := mustPrices(t, []string{"A"}, column(100.0, 100))
	signals := mustSignals(t, prices, column(domain.Buy, domain.Hold))
	cfg := Config{InitialCapital: 150, SharesPerTrade: 1_000_000, TransactionCostRate: DefaultTransactionCostRate}

	traj, err := NewActive(cfg).Simulate(prices, signals)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if traj.Position(1, 0) != 1 {
		t.Errorf("buy_qty = %d, want 1", traj.Position(1, 0))
	}
	if traj.Cash(1) < 0 {
		t.Errorf("cash went negative: %v", traj.Cash(1))
	}
}

func TestSimulateCostIncludedInAffordability(t *testing.T) {
	// 100 cash buys 0 shares at 100 once a 1% cost is added.
	prices := mustPrices(t, []string{"A"}, column(100.0, 100))
	signals := mustSignals(t, prices, column(domain.Buy, domain.Hold))
	cfg := Config{InitialCapital: 100, SharesPerTrade: 5, TransactionCostRate: 0.01}

	traj, err := NewActive(cfg).Simulate(prices, signals)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if traj.Position(1, 0) != 0 || traj.Cash(1) != 100 {
		t.Errorf("position=%d cash=%v, want 0 and 100", traj.Position(1, 0), traj.Cash(1))
	}
}

func TestSimulateMissingPriceSkips(t *testing.T) {
	prices := mustPrices(t, []string{"A", "B"}, [][]float64{
		{10, 10},
		{nan, 10},
		{10, 10},
	})
	signals := mustSignals(t, prices, [][]domain.Signal{
		{domain.Buy, domain.Buy},
		{domain.Buy, domain.Hold},
		{domain.Hold, domain.Hold},
	})
	cfg := Config{InitialCapital: 1000, SharesPerTrade: 2, TransactionCostRate: 0}

	traj, err := NewActive(cfg).Simulate(prices, signals)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if traj.Position(1, 0) != 0 {
		t.Errorf("missing-price asset traded on day 1: position %d", traj.Position(1, 0))
	}
	if traj.Position(1, 1) != 2 {
		t.Errorf("other asset must still trade: position %d, want 2", traj.Position(1, 1))
	}
	if traj.Position(2, 0) != 2 {
		t.Errorf("asset A should buy on day 2: position %d, want 2", traj.Position(2, 0))
	}
	// A's missing price contributes nothing to day-1 value.
	if want := traj.Cash(1) + 2*10; traj.Value(1) != want {
		t.Errorf("value[1] = %v, want %v", traj.Value(1), want)
	}
}

func TestSimulateNonPositivePriceSkips(t *testing.T) {
	prices := mustPrices(t, []string{"A"}, column(10.0, 10, 0, -5, 10))
	signals := mustSignals(t, prices, column(domain.Buy, domain.Buy, domain.Sell, domain.Buy, domain.Hold))
	cfg := Config{InitialCapital: 1000, SharesPerTrade: 1, TransactionCostRate: 0}

	traj, err := NewActive(cfg).Simulate(prices, signals)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	// Day 2 buys at 0 and day 3 sells at -5: both are skipped.
	want := []int64{0, 1, 1, 1, 2}
	for day, w := range want {
		if got := traj.Position(day, 0); got != w {
			t.Errorf("position[%d] = %d, want %d", day, got, w)
		}
	}
}

func TestSimulateSellCappedAtHoldings(t *testing.T) {
	prices := mustPrices(t, []string{"A"}, column(10.0, 10, 10, 10))
	signals := mustSignals(t, prices, column(domain.Buy, domain.Sell, domain.Sell, domain.Hold))
	cfg := Config{InitialCapital: 1000, SharesPerTrade: 3, TransactionCostRate: 0}

	traj, err := NewActive(cfg).Simulate(prices, signals)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if traj.Position(2, 0) != 0 || traj.Position(3, 0) != 0 {
		t.Errorf("positions = %d,%d, want 0,0", traj.Position(2, 0), traj.Position(3, 0))
	}
	if traj.Cash(3) != 1000 {
		t.Errorf("cash[3] = %v, want 1000", traj.Cash(3))
	}
	if n := len(traj.Fills()); n != 2 {
		t.Errorf("got %d fills, want 2 (sell with nothing held is not a fill)", n)
	}
}

func TestSimulateAssetOrderFundsLaterBuys(t *testing.T) {
	// A sells first in declared order, freeing the cash B needs.
	prices := mustPrices(t, []string{"A", "B"}, [][]float64{
		{10, 10},
		{10, 10},
		{10, 10},
	})
	signals := mustSignals(t, prices, [][]domain.Signal{
		{domain.Buy, domain.Hold},
		{domain.Sell, domain.Buy},
		{domain.Hold, domain.Hold},
	})
	cfg := Config{InitialCapital: 10, SharesPerTrade: 1, TransactionCostRate: 0}

	traj, err := NewActive(cfg).Simulate(prices, signals)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if got := traj.Positions(2); got[0] != 0 || got[1] != 1 {
		t.Errorf("position[2] = %v, want [0 1]", got)
	}

	// Reversing the declared order starves the buy.
	reversed := mustPrices(t, []string{"B", "A"}, [][]float64{{10, 10}, {10, 10}, {10, 10}})
	revSignals := mustSignals(t, reversed, [][]domain.Signal{
		{domain.Hold, domain.Buy},
		{domain.Buy, domain.Sell},
		{domain.Hold, domain.Hold},
	})
	traj, err = NewActive(cfg).Simulate(reversed, revSignals)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if got := traj.Positions(2); got[0] != 0 || got[1] != 0 {
		t.Errorf("reversed position[2] = %v, want [0 0]", got)
	}
}

func TestSimulateIdempotentHold(t *testing.T) {
	prices := mustPrices(t, []string{"A", "B"}, [][]float64{
		{10, 20}, {11, 19}, {12, nan}, {9, 25},
	})
	rows := make([][]domain.Signal, 4)
	for i := range rows {
		rows[i] = []domain.Signal{domain.Hold, domain.Hold}
	}
	traj, err := NewActive(DefaultConfig()).Simulate(prices, mustSignals(t, prices, rows))
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	for day := 0; day < traj.Len(); day++ {
		if p := traj.Positions(day); p[0] != 0 || p[1] != 0 {
			t.Errorf("position[%d] = %v, want zeros", day, p)
		}
		if traj.Cash(day) != DefaultInitialCapital {
			t.Errorf("cash[%d] = %v, want %v", day, traj.Cash(day), DefaultInitialCapital)
		}
	}
}

func TestSimulateDayZeroRow(t *testing.T) {
	prices := mustPrices(t, []string{"A"}, column(10.0, 10))
	signals := mustSignals(t, prices, column(domain.Sell, domain.Buy))
	traj, err := NewActive(DefaultConfig()).Simulate(prices, signals)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if traj.Position(0, 0) != 0 || traj.Cash(0) != DefaultInitialCapital ||
		traj.Value(0) != DefaultInitialCapital || traj.PnL(0) != 0 {
		t.Errorf("day 0 = pos %d cash %v value %v pnl %v",
			traj.Position(0, 0), traj.Cash(0), traj.Value(0), traj.PnL(0))
	}
	// The day-1 signal has no day to act on.
	if traj.Position(1, 0) != 0 {
		t.Errorf("position[1] = %d, want 0", traj.Position(1, 0))
	}
}

func TestSimulateErrors(t *testing.T) {
	one := mustPrices(t, []string{"A"}, column(10.0))
	two := mustPrices(t, []string{"A"}, column(10.0, 11))
	otherAsset := mustPrices(t, []string{"B"}, column(10.0, 11))
	noAssets := mustPrices(t, []string{}, [][]float64{{}, {}})

	tests := []struct {
		name    string
		cfg     Config
		prices  *domain.PriceMatrix
		signals *domain.SignalMatrix
		wantErr error
	}{
		{"single day", DefaultConfig(), one, mustSignals(t, one, column(domain.Buy)), ErrEmptyInput},
		{"no assets", DefaultConfig(), noAssets, mustSignals(t, noAssets, [][]domain.Signal{{}, {}}), ErrEmptyInput},
		{"asset mismatch", DefaultConfig(), two, mustSignals(t, otherAsset, column(domain.Buy, domain.Hold)), ErrShapeMismatch},
		{"day mismatch", DefaultConfig(), two, mustSignals(t, one, column(domain.Buy)), ErrShapeMismatch},
		{"nil signals", DefaultConfig(), two, nil, ErrEmptyInput},
		{"negative capital", Config{InitialCapital: -1, SharesPerTrade: 1}, two, mustSignals(t, two, column(domain.Buy, domain.Hold)), ErrInvalidConfig},
		{"cost rate of one", Config{InitialCapital: 1, SharesPerTrade: 1, TransactionCostRate: 1}, two, mustSignals(t, two, column(domain.Buy, domain.Hold)), ErrInvalidConfig},
		{"nan capital", Config{InitialCapital: math.NaN(), SharesPerTrade: 1}, two, mustSignals(t, two, column(domain.Buy, domain.Hold)), ErrInvalidConfig},
		{"infinite capital", Config{InitialCapital: math.Inf(1), SharesPerTrade: 1}, two, mustSignals(t, two, column(domain.Buy, domain.Hold)), ErrInvalidConfig},
		{"nan cost rate", Config{InitialCapital: 150, SharesPerTrade: 1_000_000, TransactionCostRate: math.NaN()}, two, mustSignals(t, two, column(domain.Buy, domain.Hold)), ErrInvalidConfig},
		{"negative infinite cost rate", Config{InitialCapital: 150, SharesPerTrade: 1, TransactionCostRate: math.Inf(-1)}, two, mustSignals(t, two, column(domain.Buy, domain.Hold)), ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, sim := range []*Simulator{NewActive(tt.cfg), NewBenchmark(tt.cfg)} {
				traj, err := sim.Simulate(tt.prices, tt.signals)
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("%s: error = %v, want %v", sim.Mode(), err, tt.wantErr)
				}
				if traj != nil {
					t.Errorf("%s: got a trajectory alongside an error", sim.Mode())
				}
			}
		})
	}
}

func TestSimulateDoesNotMutateInputs(t *testing.T) {
	prices := mustPrices(t, []string{"A"}, column(10.0, 12, 11))
	signals := mustSignals(t, prices, column(domain.Buy, domain.Sell, domain.Buy))
	before := prices.Column(0)
	beforeSig := signals.Column(0)

	if _, err := NewActive(DefaultConfig()).Simulate(prices, signals); err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	for i, p := range prices.Column(0) {
		if p != before[i] {
			t.Errorf("price[%d] changed from %v to %v", i, before[i], p)
		}
	}
	for i, s := range signals.Column(0) {
		if s != beforeSig[i] {
			t.Errorf("signal[%d] changed from %v to %v", i, beforeSig[i], s)
		}
	}
}

func TestBenchmarkAllocatesEquallyAndHolds(t *testing.T) {
	prices := mustPrices(t, []string{"A", "B", "C"}, [][]float64{
		{10, 30, nan},
		{20, 15, 5},
		{5, 60, 5},
	})
	rows := [][]domain.Signal{
		{domain.Buy, domain.Buy, domain.Buy},
		{domain.Sell, domain.Sell, domain.Buy},
		{domain.Hold, domain.Hold, domain.Hold},
	}
	cfg := Config{InitialCapital: 900, SharesPerTrade: 1, TransactionCostRate: 0.5}

	traj, err := NewBenchmark(cfg).Simulate(prices, mustSignals(t, prices, rows))
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	// Budget is 300 per asset: 30 A, 10 B, none of C (missing price).
	wantPos := []int64{30, 10, 0}
	wantCash := 900.0 - 30*10 - 10*30
	for day := 0; day < traj.Len(); day++ {
		got := traj.Positions(day)
		for a := range wantPos {
			if got[a] != wantPos[a] {
				t.Errorf("position[%d] = %v, want %v", day, got, wantPos)
				break
			}
		}
		if traj.Cash(day) != wantCash {
			t.Errorf("cash[%d] = %v, want %v", day, traj.Cash(day), wantCash)
		}
	}
	if want := wantCash + 30*20 + 10*15; traj.Value(1) != want {
		t.Errorf("value[1] = %v, want %v", traj.Value(1), want)
	}
	if want := wantCash + 30*5 + 10*60 - 900; traj.PnL(2) != want {
		t.Errorf("pnl[2] = %v, want %v", traj.PnL(2), want)
	}
	if traj.Value(0) != 900 {
		t.Errorf("value[0] = %v, want 900", traj.Value(0))
	}
	if len(traj.Fills()) != 0 {
		t.Errorf("benchmark should record no post-day-0 fills, got %d", len(traj.Fills()))
	}
}

func TestBenchmarkSkipsUnrepresentableAllocation(t *testing.T) {
	prices := mustPrices(t, []string{"A", "B"}, [][]float64{
		{1e-15, 10},
		{1e-15, 10},
	})
	rows := [][]domain.Signal{
		{domain.Hold, domain.Hold},
		{domain.Hold, domain.Hold},
	}
	cfg := DefaultConfig()

	traj, err := NewBenchmark(cfg).Simulate(prices, mustSignals(t, prices, rows))
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	for day := 0; day < traj.Len(); day++ {
		pos := traj.Positions(day)
		if pos[0] != 0 {
			t.Errorf("position[%d][A] = %d, want 0", day, pos[0])
		}
		if pos[1] != 50_000 {
			t.Errorf("position[%d][B] = %d, want 50000", day, pos[1])
		}
		if traj.Cash(day) < 0 || traj.Cash(day) > cfg.InitialCapital {
			t.Errorf("cash[%d] = %v, want within [0, %v]", day, traj.Cash(day), cfg.InitialCapital)
		}
	}
}

// randomRun builds a reproducible random universe with gaps.
func randomRun(t *testing.T, seed uint64, days, assets int) (*domain.PriceMatrix, *domain.SignalMatrix) {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed*7+1))
	names := make([]string, assets)
	for a := range names {
		names[a] = string(rune('A' + a))
	}
	prices := make([][]float64, days)
	signals := make([][]domain.Signal, days)
	last := make([]float64, assets)
	for a := range last {
		last[a] = 5 + rng.Float64()*200
	}
	for d := range prices {
		prices[d] = make([]float64, assets)
		signals[d] = make([]domain.Signal, assets)
		for a := range prices[d] {
			last[a] *= 1 + (rng.Float64()-0.5)*0.1
			prices[d][a] = last[a]
			if rng.IntN(15) == 0 {
				prices[d][a] = nan
			}
			signals[d][a] = domain.Signal(rng.IntN(3) - 1)
		}
	}
	pm := mustPrices(t, names, prices)
	return pm, mustSignals(t, pm, signals)
}

func TestSimulateInvariants(t *testing.T) {
	cfgs := []Config{
		DefaultConfig(),
		{InitialCapital: 500, SharesPerTrade: 3, TransactionCostRate: 0.01},
		{InitialCapital: 50_000, SharesPerTrade: 100, TransactionCostRate: 0},
	}
	for seed := uint64(1); seed <= 5; seed++ {
		prices, signals := randomRun(t, seed, 120, 6)
		for _, cfg := range cfgs {
			traj, err := NewActive(cfg).Simulate(prices, signals)
			if err != nil {
				t.Fatalf("Simulate: %v", err)
			}
			for day := 0; day < traj.Len(); day++ {
				pos := traj.Positions(day)
				for a, q := range pos {
					if q < 0 {
						t.Fatalf("seed %d day %d asset %d: negative position %d", seed, day, a, q)
					}
				}
				if traj.Cash(day) < 0 {
					t.Fatalf("seed %d day %d: negative cash %v", seed, day, traj.Cash(day))
				}
				if want := markToMarket(pos, traj.Cash(day), prices.Row(day)); traj.Value(day) != want {
					t.Fatalf("seed %d day %d: value %v, want %v", seed, day, traj.Value(day), want)
				}
				if traj.PnL(day) != traj.Value(day)-cfg.InitialCapital {
					t.Fatalf("seed %d day %d: pnl %v does not match value", seed, day, traj.PnL(day))
				}
			}
		}
	}
}

func TestSimulateLagProperty(t *testing.T) {
	prices, signals := randomRun(t, 42, 60, 4)
	base, err := NewActive(DefaultConfig()).Simulate(prices, signals)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	for _, day := range []int{1, 17, 59} {
		rows := make([][]domain.Signal, signals.NumDays())
		for d := range rows {
			rows[d] = signals.Row(d)
		}
		for a := range rows[day] {
			rows[day][a] = -rows[day][a]
			if rows[day][a] == domain.Hold {
				rows[day][a] = domain.Buy
			}
		}
		traj, err := NewActive(DefaultConfig()).Simulate(prices, mustSignals(t, prices, rows))
		if err != nil {
			t.Fatalf("Simulate: %v", err)
		}
		if traj.Cash(day) != base.Cash(day) {
			t.Errorf("mutating signals[%d] changed cash[%d]: %v vs %v", day, day, traj.Cash(day), base.Cash(day))
		}
		got, want := traj.Positions(day), base.Positions(day)
		for a := range got {
			if got[a] != want[a] {
				t.Errorf("mutating signals[%d] changed position[%d] = %v, want %v", day, day, got, want)
				break
			}
		}
	}
}

func TestStepIsPure(t *testing.T) {
	cfg := Config{InitialCapital: 0, SharesPerTrade: 2, TransactionCostRate: 0}
	prev := []int64{4, 0, 1}
	acting := []domain.Signal{domain.Sell, domain.Buy, domain.Buy}
	prices := []float64{10, 15, nan}

	next, cash, fills := step(prev, 5, acting, prices, cfg)

	if prev[0] != 4 || prev[1] != 0 {
		t.Errorf("step mutated prev: %v", prev)
	}
	// Sell 2 at 10 (+20), then buy 1 at 15 with 25 cash; C has no price.
	if next[0] != 2 || next[1] != 1 || next[2] != 1 {
		t.Errorf("next = %v, want [2 1 1]", next)
	}
	if cash != 10 {
		t.Errorf("cash = %v, want 10", cash)
	}
	if len(fills) != 2 || fills[0].Side != SideSell || fills[1].Side != SideBuy {
		t.Errorf("fills = %+v", fills)
	}
}

func TestBuyQuantity(t *testing.T) {
	tests := []struct {
		name  string
		cash  float64
		price float64
		cfg   Config
		want  int64
	}{
		{"capped by shares per trade", 1e6, 10, Config{SharesPerTrade: 5}, 5},
		{"capped by cash", 150, 100, Config{SharesPerTrade: 1_000_000}, 1},
		{"cost pushes below one share", 100, 100, Config{SharesPerTrade: 1, TransactionCostRate: 0.001}, 0},
		{"zero price", 100, 0, Config{SharesPerTrade: 1}, 0},
		{"negative price", 100, -1, Config{SharesPerTrade: 1}, 0},
		{"missing price", 100, nan, Config{SharesPerTrade: 1}, 0},
		{"no cash", 0, 10, Config{SharesPerTrade: 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buyQuantity(tt.cash, tt.price, tt.cfg); got != tt.want {
				t.Errorf("buyQuantity() = %d, want %d", got, tt.want)
			}
		})
	}
}
