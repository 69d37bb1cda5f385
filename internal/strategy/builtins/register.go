package builtins

import "quantsim/internal/strategy"

// Default indicator parameters.
const (
	SMAShort = 20
	SMALong  = 50

	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9

	RSIWindow     = 14
	RSIOversold   = 30.0
	RSIOverbought = 80.0

	VolWindow = 20
)

// Register adds every built-in strategy with its default parameters.
func Register(r *strategy.Registry) {
	r.Register(NewSMACross(SMAShort, SMALong))
	r.Register(NewMACDCross(MACDFast, MACDSlow, MACDSignal))
	r.Register(NewRSIThreshold(RSIWindow, RSIOversold, RSIOverbought))
	r.Register(NewVolBreakout(VolWindow))
	r.Register(NewBuyAndHold())
}

// NewRegistry returns a registry holding every built-in strategy.
func NewRegistry() *strategy.Registry {
	r := strategy.NewRegistry()
	Register(r)
	return r
}
