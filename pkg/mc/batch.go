package mc

import (
	"context"
	"fmt"
	"math"
)

// checkEvery is how many trials run between context checks.
const checkEvery = 4096

type BatchOptions struct {
	// Discount multiplies every payoff by exp(-r*T). The historical
	// behaviour, and the default, is the undiscounted mean.
	Discount bool
}

type BatchStats struct {
	Mean   float64
	StdDev float64
	StdErr float64
	Trials int
}

// Run draws trials independent terminal prices and returns the mean
// undiscounted call payoff.
func Run(p Parameters, trials int, sampler Sampler) (float64, error) {
	st, err := RunWithOptions(context.Background(), p, trials, sampler, BatchOptions{})
	if err != nil {
		return 0, err
	}
	return st.Mean, nil
}

// RunWithOptions is Run with cancellation, optional discounting and
// dispersion statistics. The mean is a Neumaier-compensated sum divided by
// trials, the variance a Welford running update.
func RunWithOptions(ctx context.Context, p Parameters, trials int, sampler Sampler,
	opts BatchOptions) (BatchStats, error) {

	if err := ValidateTrials(trials); err != nil {
		return BatchStats{}, err
	}
	gen, err := NewPathGenerator(p)
	if err != nil {
		return BatchStats{}, err
	}
	eval := NewPayoffEvaluator(p, opts.Discount)

	if gen.Deterministic() {
		v := eval.Payoff(gen.Terminal(0))
		if !finite(v) {
			return BatchStats{}, fmt.Errorf("%w: non-finite payoff %v", ErrWorkerFailure, v)
		}
		return BatchStats{Mean: v, Trials: trials}, nil
	}

	var (
		sum, comp float64
		mean, m2  float64
	)
	for i := 0; i < trials; i++ {
		if i%checkEvery == 0 {
			if err := ContextErr(ctx); err != nil {
				return BatchStats{}, err
			}
		}

		f := gen.Terminal(sampler.StandardNormal())
		if !finite(f) {
			return BatchStats{}, fmt.Errorf("%w: non-finite forward price %v at trial %d",
				ErrWorkerFailure, f, i)
		}
		x := eval.Payoff(f)

		t := sum + x
		if math.Abs(sum) >= math.Abs(x) {
			comp += (sum - t) + x
		} else {
			comp += (x - t) + sum
		}
		sum = t

		delta := x - mean
		mean += delta / float64(i+1)
		m2 += delta * (x - mean)
	}

	total := sum + comp
	if !finite(total) {
		return BatchStats{}, fmt.Errorf("%w: non-finite accumulation over %d trials", ErrWorkerFailure, trials)
	}

	st := BatchStats{Mean: total / float64(trials), Trials: trials}
	switch {
	case trials < 2:
	case !finite(m2):
		// squared deviations overflowed while the mean did not
		st.StdDev, st.StdErr = math.Inf(1), math.Inf(1)
	default:
		st.StdDev = math.Sqrt(m2 / float64(trials-1))
		st.StdErr = st.StdDev / math.Sqrt(float64(trials))
	}
	return st, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
