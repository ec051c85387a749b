package mc

import "math"

// PathGenerator maps a standard normal draw onto a GBM terminal forward
// price. Drift and diffusion are precomputed once per batch.
type PathGenerator struct {
	spot      float64
	drift     float64
	diffusion float64
}

func NewPathGenerator(p Parameters) (*PathGenerator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &PathGenerator{
		spot:      p.Spot,
		drift:     (p.InterestRate - 0.5*math.Pow(p.Volatility, 2)) * p.Expiry,
		diffusion: p.Volatility * math.Sqrt(p.Expiry),
	}, nil
}

// Deterministic reports whether the path ignores its draw (zero volatility).
func (g *PathGenerator) Deterministic() bool {
	return g.diffusion == 0
}

// Terminal returns spot * exp(drift + diffusion*z).
func (g *PathGenerator) Terminal(z float64) float64 {
	if g.diffusion == 0 {
		return g.spot * math.Exp(g.drift)
	}
	return g.spot * math.Exp(g.drift+g.diffusion*z)
}

func TerminalForwardPrice(p Parameters, z float64) (float64, error) {
	g, err := NewPathGenerator(p)
	if err != nil {
		return 0, err
	}
	return g.Terminal(z), nil
}
