package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ib-77/fwdmc/pkg/mc"
	"github.com/ib-77/fwdmc/pkg/rop"
)

type UnitOptions struct {
	Discount bool
	Normal   mc.NormalMethod
	Logger   *logrus.Entry
}

// Unit runs one batch per request. Everything a run touches is built from
// the request itself: the sampler is created per run and dropped afterwards.
type Unit struct {
	discount bool
	normal   mc.NormalMethod
	log      *logrus.Entry
	// process is Process unless replaced in tests
	process func(ctx context.Context, req Request) (Response, error)
}

// FailedError ties a run failure to its request.
type FailedError struct {
	ID         uuid.UUID
	Parameters mc.Parameters
	Err        error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("request %s: %v", e.ID, e.Err)
}

func (e *FailedError) Unwrap() error {
	return e.Err
}

func NewUnit(opts UnitOptions) *Unit {
	l := opts.Logger
	if l == nil {
		l = logrus.NewEntry(logrus.StandardLogger())
	}
	u := &Unit{discount: opts.Discount, normal: opts.Normal, log: l}
	u.process = u.Process
	return u
}

// Process runs the batch for req to completion.
func (u *Unit) Process(ctx context.Context, req Request) (Response, error) {
	fail := func(err error) (Response, error) {
		return Response{}, &FailedError{ID: req.ID, Parameters: req.Parameters, Err: err}
	}

	var sampler *mc.RandSampler
	if req.Seed != nil {
		sampler = mc.NewSampler(*req.Seed, u.normal)
	} else {
		s, err := mc.NewEntropySampler(u.normal)
		if err != nil {
			return fail(fmt.Errorf("%w: %w", mc.ErrWorkerFailure, err))
		}
		sampler = s
	}

	start := time.Now()
	st, err := mc.RunWithOptions(ctx, req.Parameters, req.Trials, sampler, mc.BatchOptions{Discount: u.discount})
	if err != nil {
		return fail(err)
	}
	elapsed := time.Since(start)

	u.log.WithFields(logrus.Fields{
		"request_id": req.ID,
		"trials":     st.Trials,
		"estimate":   st.Mean,
		"elapsed":    elapsed,
	}).Debug("batch finished")

	return Response{
		ID: req.ID,
		Result: mc.SimulationResult{
			Parameters: req.Parameters,
			Estimate:   st.Mean,
			Trials:     st.Trials,
			StdErr:     st.StdErr,
		},
		Seed:    sampler.Seed(),
		Elapsed: elapsed,
	}, nil
}

// Handle runs Process for one request message and answers with exactly one
// result message. If ctx ends first the answer is a cancellation and a late
// batch result is dropped.
func (u *Unit) Handle(ctx context.Context, input rop.Result[Request]) <-chan rop.Result[Response] {
	ch := make(chan rop.Result[Response], 1)
	out := make(chan rop.Result[Response], 1)

	go func() {
		defer close(ch)

		if ctx.Err() == nil {
			ch <- rop.Try(ctx, input, mc.ErrWorkerFailure, u.process)
		}
	}()

	go func() {
		defer close(out)

		select {
		case pr, ok := <-ch:
			if ok && ctx.Err() == nil {
				out <- pr
				return
			}
			out <- rop.CancelFrom[Request, Response](input, u.stopped(ctx, input))
		case <-ctx.Done():
			out <- rop.CancelFrom[Request, Response](input, u.stopped(ctx, input))
		}
	}()

	return out
}

func (u *Unit) stopped(ctx context.Context, input rop.Result[Request]) error {
	err := mc.ContextErr(ctx)
	if err == nil {
		err = mc.ErrCancelled
	}
	return &FailedError{ID: input.Id(), Parameters: input.Result().Parameters, Err: err}
}
