package coordinator

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ib-77/fwdmc/pkg/mc"
	"github.com/ib-77/fwdmc/pkg/rop"
	"github.com/ib-77/fwdmc/pkg/worker"
)

// feed queues every request message up front so no line ever waits on the
// producer.
func feed(reqs []worker.Request) <-chan rop.Result[worker.Request] {
	in := make(chan rop.Result[worker.Request], len(reqs))
	for _, r := range reqs {
		in <- rop.SuccessFor(r.ID, r)
	}
	close(in)
	return in
}

// dispatch fans requests out over a bounded number of lines. Every request
// produces exactly one outcome on the returned channel, which is closed once
// all lines are done.
func (c *Coordinator) dispatch(ctx context.Context, reqs []worker.Request) <-chan rop.Result[mc.SimulationResult] {
	lines := min(GetWorkerMaxCount(ctx, c.opts.Workers), len(reqs))
	in := feed(reqs)
	out := make(chan rop.Result[mc.SimulationResult], len(reqs))
	wg := &sync.WaitGroup{}

	c.log.WithFields(logrus.Fields{"requests": len(reqs), "lines": lines}).Debug("dispatching batch")

	for i := 0; i < lines; i++ {
		wg.Add(1)
		go c.line(ctx, in, out, wg)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

// line runs requests one at a time until the input is drained. After ctx
// ends the remaining requests are answered as cancelled without dispatch.
func (c *Coordinator) line(ctx context.Context, inputCh <-chan rop.Result[worker.Request],
	outCh chan<- rop.Result[mc.SimulationResult], wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			c.cancelRemaining(ctx, inputCh, outCh)
			return
		case in, ok := <-inputCh:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				outCh <- c.cancelled(ctx, in)
				c.cancelRemaining(ctx, inputCh, outCh)
				return
			}
			outCh <- c.run(ctx, in)
		}
	}
}

func (c *Coordinator) cancelRemaining(ctx context.Context, inputCh <-chan rop.Result[worker.Request],
	outCh chan<- rop.Result[mc.SimulationResult]) {
	for in := range inputCh {
		outCh <- c.cancelled(ctx, in)
	}
}

func (c *Coordinator) cancelled(ctx context.Context, in rop.Result[worker.Request]) rop.Result[mc.SimulationResult] {
	err := mc.ContextErr(ctx)
	if err == nil {
		err = mc.ErrCancelled
	}
	req := in.Result()
	c.publish(TopicFailed, Event{ID: in.Id(), Parameters: req.Parameters, Trials: req.Trials, Err: err})
	return rop.CancelFrom[worker.Request, mc.SimulationResult](in,
		&worker.FailedError{ID: in.Id(), Parameters: req.Parameters, Err: err})
}

// run hands one request to a fresh unit invocation and waits for its single
// answer, bounded by the request timeout.
func (c *Coordinator) run(ctx context.Context, in rop.Result[worker.Request]) rop.Result[mc.SimulationResult] {
	req := in.Result()

	reqCtx := ctx
	if c.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()
	}

	reqCtx, span := c.tracer.Start(reqCtx, "fwdmc.worker",
		trace.WithAttributes(
			attribute.String("request.id", req.ID.String()),
			attribute.Int("request.trials", req.Trials),
		))
	defer span.End()

	log := c.log.WithFields(logrus.Fields{"request_id": req.ID, "trials": req.Trials})
	log.Debug("dispatched")
	c.publish(TopicDispatched, Event{ID: req.ID, Parameters: req.Parameters, Trials: req.Trials})

	answer := <-c.unit.Handle(reqCtx, in)

	if answer.IsSuccess() {
		res := answer.Result().Result
		log.WithFields(logrus.Fields{"estimate": res.Estimate, "elapsed": answer.Result().Elapsed}).Debug("completed")
		c.publish(TopicCompleted, Event{ID: req.ID, Parameters: req.Parameters, Trials: req.Trials, Result: &res})
		return rop.SuccessFor(answer.Id(), res)
	}

	err := answer.Err()
	span.RecordError(err)
	span.SetStatus(codes.Error, mc.Kind(err))
	switch {
	case errors.Is(err, mc.ErrTimeout):
		log.WithError(err).Warn("request timed out")
	case errors.Is(err, mc.ErrCancelled):
		log.WithError(err).Debug("request cancelled")
	default:
		log.WithError(err).Warn("worker failed")
	}
	c.publish(TopicFailed, Event{ID: req.ID, Parameters: req.Parameters, Trials: req.Trials, Err: err})
	return rop.Carry[worker.Response, mc.SimulationResult](answer)
}
