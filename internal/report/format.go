package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return sign + s
	}
	var b strings.Builder
	b.WriteString(sign)
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatMoney renders an amount rounded to cents with comma separators, e.g.
// 1234567.891 -> "1,234,567.89". Non-finite amounts render as "-".
func FormatMoney(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	cents := decimal.NewFromFloat(v).Round(2)
	whole := cents.Truncate(0)
	frac := cents.Sub(whole).Abs().StringFixed(2)[1:] // ".xx"
	if cents.IsNegative() && whole.IsZero() {
		return "-0" + frac
	}
	return FormatInt(whole.IntPart()) + frac
}

// FormatPercent renders a fraction as a signed percentage with two decimals,
// e.g. 0.0123 -> "+1.23%".
func FormatPercent(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "-"
	}
	d := decimal.NewFromFloat(f).Mul(decimal.NewFromInt(100)).Round(2)
	if d.IsPositive() {
		return "+" + d.StringFixed(2) + "%"
	}
	return d.StringFixed(2) + "%"
}

// FormatRatio renders a dimensionless ratio with two decimals.
func FormatRatio(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "-"
	}
	return decimal.NewFromFloat(f).StringFixed(2)
}
