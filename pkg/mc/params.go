package mc

import (
	"math"

	"github.com/shopspring/decimal"
)

// DefaultTrials is the trial count used when a request does not carry one.
const DefaultTrials = 5000

// Parameters describes one forward call pricing request. It is passed by
// value into a worker and never mutated.
type Parameters struct {
	ForwardStrikePrice float64 `json:"forwardStrikePrice" yaml:"forwardStrikePrice"`
	Spot               float64 `json:"spot" yaml:"spot"`
	Volatility         float64 `json:"volatility" yaml:"volatility"`
	Expiry             float64 `json:"expiry" yaml:"expiry"`
	InterestRate       float64 `json:"interestRate" yaml:"interestRate"`
}

func (p Parameters) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"forwardStrikePrice", p.ForwardStrikePrice},
		{"spot", p.Spot},
		{"volatility", p.Volatility},
		{"expiry", p.Expiry},
		{"interestRate", p.InterestRate},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return invalid(f.name, f.value, "must be finite")
		}
	}

	switch {
	case p.Expiry <= 0:
		return invalid("expiry", p.Expiry, "must be > 0")
	case p.Spot <= 0:
		return invalid("spot", p.Spot, "must be > 0")
	case p.ForwardStrikePrice < 0:
		return invalid("forwardStrikePrice", p.ForwardStrikePrice, "must be >= 0")
	case p.Volatility < 0:
		return invalid("volatility", p.Volatility, "must be >= 0")
	}
	return nil
}

func ValidateTrials(trials int) error {
	if trials < 1 {
		return invalid("trials", trials, "must be >= 1")
	}
	return nil
}

// SimulationResult is the estimate of one batch together with the
// parameters that produced it.
type SimulationResult struct {
	Parameters Parameters `json:"parameters"`
	Estimate   float64    `json:"result"`
	Trials     int        `json:"trials,omitempty"`
	StdErr     float64    `json:"stdErr,omitempty"`
}

// Rounded returns the estimate as a decimal rounded half away from zero.
func (r SimulationResult) Rounded(places int32) decimal.Decimal {
	return decimal.NewFromFloat(r.Estimate).Round(places)
}
