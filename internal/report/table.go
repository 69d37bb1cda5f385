package report

import (
	"fmt"
	"io"
	"strings"
)

// WriteSummaryTable prints a fixed-width comparison table, one row per run.
func WriteSummaryTable(w io.Writer, summaries []Summary) error {
	width := len("Run")
	for _, s := range summaries {
		width = max(width, len(s.Label))
	}

	header := fmt.Sprintf("%-*s %10s %16s %16s %9s %9s %7s %7s %9s %6s %7s %12s",
		width, "Run", "Mode", "Final Value", "PnL", "Return", "CAGR",
		"Sharpe", "Vol", "MaxDD", "DDays", "Fills", "Costs")
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", len(header))); err != nil {
		return err
	}

	for _, s := range summaries {
		_, err := fmt.Fprintf(w, "%-*s %10s %16s %16s %9s %9s %7s %7s %9s %6d %7s %12s\n",
			width, s.Label,
			s.Mode,
			FormatMoney(s.FinalValue),
			FormatMoney(s.PnL),
			FormatPercent(s.TotalReturn),
			FormatPercent(s.CAGR),
			FormatRatio(s.Sharpe),
			FormatRatio(s.Volatility),
			FormatPercent(-s.MaxDrawdown),
			s.MaxDrawdownDays,
			FormatInt(int64(s.Fills)),
			FormatMoney(s.TotalCost),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
