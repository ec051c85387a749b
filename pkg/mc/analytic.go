package mc

import "math"

// ForwardCallExpectation is the closed-form E[max(F_T-K, 0)] under GBM,
// without discounting: F0*N(d1) - K*N(d2) with F0 = S*exp(r*T).
func ForwardCallExpectation(p Parameters) float64 {
	f0 := p.Spot * math.Exp(p.InterestRate*p.Expiry)
	if p.Volatility == 0 {
		return CallPayoff(f0, p.ForwardStrikePrice)
	}
	if p.ForwardStrikePrice == 0 {
		return f0
	}

	sd := p.Volatility * math.Sqrt(p.Expiry)
	d1 := (math.Log(f0/p.ForwardStrikePrice) + 0.5*sd*sd) / sd
	d2 := d1 - sd
	return f0*normCDF(d1) - p.ForwardStrikePrice*normCDF(d2)
}

// BlackScholesCall is ForwardCallExpectation discounted by exp(-r*T).
func BlackScholesCall(p Parameters) float64 {
	return math.Exp(-p.InterestRate*p.Expiry) * ForwardCallExpectation(p)
}

func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}
