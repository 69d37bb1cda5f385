package domain

import "fmt"

// Signal is a per-asset, per-day trading decision.
type Signal int8

const (
	Sell Signal = -1
	Hold Signal = 0
	Buy  Signal = 1
)

// Valid reports whether s is one of Sell, Hold or Buy.
func (s Signal) Valid() bool {
	return s == Sell || s == Hold || s == Buy
}

func (s Signal) String() string {
	switch s {
	case Sell:
		return "SELL"
	case Hold:
		return "HOLD"
	case Buy:
		return "BUY"
	default:
		return fmt.Sprintf("Signal(%d)", int8(s))
	}
}
