package mc

import "math"

func CallPayoff(forwardPrice, strike float64) float64 {
	return math.Max(forwardPrice-strike, 0)
}

// PayoffEvaluator turns a terminal price into a call payoff. Payoffs are
// undiscounted unless discounting was requested.
type PayoffEvaluator struct {
	strike   float64
	discount float64
}

func NewPayoffEvaluator(p Parameters, discount bool) PayoffEvaluator {
	df := 1.0
	if discount {
		df = math.Exp(-p.InterestRate * p.Expiry)
	}
	return PayoffEvaluator{strike: p.ForwardStrikePrice, discount: df}
}

func (e PayoffEvaluator) Payoff(forwardPrice float64) float64 {
	return CallPayoff(forwardPrice, e.strike) * e.discount
}

func (e PayoffEvaluator) DiscountFactor() float64 {
	return e.discount
}
