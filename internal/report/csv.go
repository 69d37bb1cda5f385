package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"quantsim/internal/engine"
)

// WriteTrajectoryCSVFile writes the daily trajectory to a CSV file at path.
func WriteTrajectoryCSVFile(path string, traj *engine.Trajectory) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trajectory file: %w", err)
	}
	defer f.Close()

	if err := WriteTrajectoryCSV(f, traj); err != nil {
		return err
	}
	return f.Close()
}

// WriteTrajectoryCSV writes one row per day: date, cash, value, pnl, then the
// share count of every asset in axis order.
func WriteTrajectoryCSV(w io.Writer, traj *engine.Trajectory) error {
	cw := csv.NewWriter(w)
	axes := traj.Axes()
	assets := axes.Assets()

	header := append([]string{"date", "cash", "value", "pnl"}, assets...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(header))
	for day := 0; day < traj.Len(); day++ {
		record[0] = axes.Day(day).Format("2006-01-02")
		record[1] = money(traj.Cash(day))
		record[2] = money(traj.Value(day))
		record[3] = money(traj.PnL(day))
		for a, qty := range traj.Positions(day) {
			record[4+a] = strconv.FormatInt(qty, 10)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write day %d: %w", day, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteFillsCSVFile writes the executed fills to a CSV file at path.
func WriteFillsCSVFile(path string, traj *engine.Trajectory) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create fills file: %w", err)
	}
	defer f.Close()

	if err := WriteFillsCSV(f, traj); err != nil {
		return err
	}
	return f.Close()
}

// WriteFillsCSV writes one row per executed fill in execution order.
func WriteFillsCSV(w io.Writer, traj *engine.Trajectory) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "asset", "side", "qty", "price", "cost"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, f := range traj.Fills() {
		record := []string{
			f.Date.Format("2006-01-02"),
			f.Asset,
			string(f.Side),
			strconv.FormatInt(f.Qty, 10),
			decimal.NewFromFloat(f.Price).StringFixed(4),
			money(f.Cost),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write fill %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// money renders an amount with exactly two decimals and no separators.
func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
