package worker

import (
	"time"

	"github.com/google/uuid"

	"github.com/ib-77/fwdmc/pkg/mc"
)

// Request is the only message a Unit receives. It is copied into the unit,
// never shared.
type Request struct {
	ID         uuid.UUID
	Parameters mc.Parameters
	Trials     int
	// Seed makes the run reproducible. Nil means OS entropy.
	Seed *uint64
}

func NewRequest(p mc.Parameters, trials int) Request {
	return Request{ID: uuid.New(), Parameters: p, Trials: trials}
}

func (r Request) WithSeed(seed uint64) Request {
	r.Seed = &seed
	return r
}

func (r Request) Validate() error {
	if err := mc.ValidateTrials(r.Trials); err != nil {
		return err
	}
	return r.Parameters.Validate()
}

// Response is the only message a Unit sends back on success.
type Response struct {
	ID      uuid.UUID
	Result  mc.SimulationResult
	Seed    uint64
	Elapsed time.Duration
}
