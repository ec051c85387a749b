package report

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"github.com/ib-77/fwdmc/pkg/mc"
	"github.com/ib-77/fwdmc/pkg/rop"
	"github.com/ib-77/fwdmc/pkg/worker"
)

// Field names a parameter that a sweep varies.
type Field string

const (
	ForwardStrikePrice Field = "forwardStrikePrice"
	Spot               Field = "spot"
	Volatility         Field = "volatility"
	Expiry             Field = "expiry"
	InterestRate       Field = "interestRate"
)

func (f Field) ptr(p *mc.Parameters) (*float64, error) {
	switch f {
	case ForwardStrikePrice:
		return &p.ForwardStrikePrice, nil
	case Spot:
		return &p.Spot, nil
	case Volatility:
		return &p.Volatility, nil
	case Expiry:
		return &p.Expiry, nil
	case InterestRate:
		return &p.InterestRate, nil
	}
	return nil, fmt.Errorf("unknown field %q", string(f))
}

func (f Field) Of(p mc.Parameters) (float64, error) {
	v, err := f.ptr(&p)
	if err != nil {
		return 0, err
	}
	return *v, nil
}

// Sweep builds one request per value, each a copy of base with field set
// to that value.
func Sweep(base mc.Parameters, field Field, values []float64, trials int) ([]worker.Request, error) {
	reqs := make([]worker.Request, 0, len(values))
	for _, v := range values {
		p := base
		dst, err := field.ptr(&p)
		if err != nil {
			return nil, err
		}
		*dst = v
		reqs = append(reqs, worker.NewRequest(p, trials))
	}
	return reqs, nil
}

type Point struct {
	ID       uuid.UUID
	X        float64
	Estimate decimal.Decimal
	StdErr   float64
}

// Series turns successful results into points ordered by the swept field.
// Failed and cancelled results are left out.
func Series(field Field, results []rop.Result[mc.SimulationResult], places int32) ([]Point, error) {
	points := make([]Point, 0, len(results))
	for _, r := range results {
		if !r.IsSuccess() {
			continue
		}
		x, err := field.Of(r.Result().Parameters)
		if err != nil {
			return nil, err
		}
		points = append(points, Point{
			ID:       r.Id(),
			X:        x,
			Estimate: r.Result().Rounded(places),
			StdErr:   r.Result().StdErr,
		})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].X < points[j].X })
	return points, nil
}

type Summary struct {
	Count     int
	Failed    int
	Cancelled int
	Mean      decimal.Decimal
	StdDev    decimal.Decimal
	Min       decimal.Decimal
	Max       decimal.Decimal
	Median    decimal.Decimal
	P95       decimal.Decimal
}

// Summarize describes the spread of the estimates of a batch.
func Summarize(results []rop.Result[mc.SimulationResult], places int32) (Summary, error) {
	var s Summary
	estimates := make([]float64, 0, len(results))
	for _, r := range results {
		switch {
		case r.IsSuccess():
			estimates = append(estimates, r.Result().Estimate)
		case r.IsCancel():
			s.Cancelled++
		default:
			s.Failed++
		}
	}
	s.Count = len(estimates)
	if s.Count == 0 {
		return s, nil
	}

	round := func(v float64) decimal.Decimal { return decimal.NewFromFloat(v).Round(places) }

	mean, err := stats.Mean(estimates)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to calculate mean: %v", err)
	}
	lo, err := stats.Min(estimates)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to calculate min: %v", err)
	}
	hi, err := stats.Max(estimates)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to calculate max: %v", err)
	}
	median, err := stats.Median(estimates)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to calculate median: %v", err)
	}
	p95 := estimates[0]
	if s.Count > 1 {
		if p95, err = stats.Percentile(estimates, 95); err != nil {
			return Summary{}, fmt.Errorf("failed to calculate percentile: %v", err)
		}
	}
	s.Mean, s.Min, s.Max, s.Median, s.P95 = round(mean), round(lo), round(hi), round(median), round(p95)

	if s.Count > 1 {
		sd, err := stats.StandardDeviationSample(estimates)
		if err != nil {
			return Summary{}, fmt.Errorf("failed to calculate the standard deviation: %v", err)
		}
		s.StdDev = round(sd)
	}
	return s, nil
}
