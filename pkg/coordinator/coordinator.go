package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ib-77/fwdmc/pkg/mc"
	"github.com/ib-77/fwdmc/pkg/rop"
	"github.com/ib-77/fwdmc/pkg/worker"
)

// seedStride spreads derived seeds over the PCG state space.
const seedStride uint64 = 0x9E3779B97F4A7C15

// Coordinator validates pricing requests, hands each one to its own worker
// unit and gathers the answers.
type Coordinator struct {
	opts   Options
	unit   *worker.Unit
	log    *logrus.Entry
	bus    EventBus.Bus
	tracer trace.Tracer
}

func New(opts Options) *Coordinator {
	opts = opts.withDefaults()
	return &Coordinator{
		opts: opts,
		unit: worker.NewUnit(worker.UnitOptions{
			Discount: opts.Discount,
			Normal:   opts.Normal,
			Logger:   opts.Logger.WithField("component", "worker"),
		}),
		log:    opts.Logger,
		bus:    opts.Bus,
		tracer: otel.Tracer("github.com/ib-77/fwdmc/pkg/coordinator"),
	}
}

// Price runs a single request and returns its estimate or its failure.
func (c *Coordinator) Price(ctx context.Context, p mc.Parameters, trials int) (mc.SimulationResult, error) {
	results, err := c.PriceBatch(ctx, []worker.Request{worker.NewRequest(p, trials)})
	if err != nil {
		return mc.SimulationResult{}, err
	}
	r := results[0]
	if !r.IsSuccess() {
		return mc.SimulationResult{}, r.Err()
	}
	return r.Result(), nil
}

// PriceBatch runs every request on its own unit and returns one outcome per
// request in completion order. Outcome ids are the request ids. Invalid
// requests fail the whole call before anything is dispatched.
func (c *Coordinator) PriceBatch(ctx context.Context, reqs []worker.Request) ([]rop.Result[mc.SimulationResult], error) {
	prepared, err := c.prepare(reqs)
	if err != nil {
		return nil, err
	}

	results := make([]rop.Result[mc.SimulationResult], 0, len(prepared))
	for r := range c.dispatch(ctx, prepared) {
		results = append(results, r)
	}
	return results, nil
}

// PriceBatchOrdered is PriceBatch resequenced into submission order.
func (c *Coordinator) PriceBatchOrdered(ctx context.Context, reqs []worker.Request) ([]rop.Result[mc.SimulationResult], error) {
	prepared, err := c.prepare(reqs)
	if err != nil {
		return nil, err
	}

	byID := rop.Collect(c.dispatch(ctx, prepared))
	ordered := make([]rop.Result[mc.SimulationResult], 0, len(prepared))
	for _, req := range prepared {
		r, ok := byID[req.ID.String()]
		if !ok {
			r = rop.FailFor[mc.SimulationResult](req.ID, fmt.Errorf("%w: no answer for request %s", mc.ErrWorkerFailure, req.ID))
		}
		ordered = append(ordered, r)
	}
	return ordered, nil
}

// Encode writes an outcome as a worker result message, echoing the
// parameters when the coordinator is configured to.
func (c *Coordinator) Encode(r rop.Result[mc.SimulationResult]) ([]byte, error) {
	return worker.EncodeResult(r, c.opts.EchoParameters)
}

// prepare validates, assigns missing ids and derives seeds. It works on a
// copy so callers' requests are left untouched.
func (c *Coordinator) prepare(reqs []worker.Request) ([]worker.Request, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: empty batch", mc.ErrInvalidParameter)
	}

	prepared := make([]worker.Request, len(reqs))
	seen := make(map[uuid.UUID]struct{}, len(reqs))
	var errs []error

	for i, req := range reqs {
		if req.ID == uuid.Nil {
			req.ID = uuid.New()
		}
		if _, dup := seen[req.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate request id %s", mc.ErrInvalidParameter, req.ID))
		}
		seen[req.ID] = struct{}{}

		if err := req.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("request %d: %w", i, err))
		}

		if req.Seed == nil && c.opts.Seed != nil {
			req = req.WithSeed(*c.opts.Seed + uint64(i)*seedStride)
		}
		prepared[i] = req
	}

	if err := errors.Join(errs...); err != nil {
		c.log.WithError(err).WithField("requests", len(reqs)).Info("batch rejected")
		return nil, err
	}
	return prepared, nil
}
