package coordinator

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/fwdmc/pkg/config"
	"github.com/ib-77/fwdmc/pkg/mc"
	"github.com/ib-77/fwdmc/pkg/rop"
	"github.com/ib-77/fwdmc/pkg/worker"
)

var atm = mc.Parameters{ForwardStrikePrice: 100, Spot: 100, Volatility: 0.2, Expiry: 1, InterestRate: 0.05}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newCoordinator(opts Options) *Coordinator {
	opts.Logger = quietLogger()
	return New(opts)
}

func seed(v uint64) *uint64 {
	return &v
}

func strikes(n, trials int) []worker.Request {
	reqs := make([]worker.Request, n)
	for i := range reqs {
		p := atm
		p.ForwardStrikePrice = 80 + float64(i)*5
		reqs[i] = worker.NewRequest(p, trials)
	}
	return reqs
}

func TestPrice_EndToEnd(t *testing.T) {
	t.Parallel()

	c := newCoordinator(Options{Seed: seed(20240601)})
	res, err := c.Price(context.Background(), atm, 200_000)
	require.NoError(t, err)

	assert.Equal(t, atm, res.Parameters)
	assert.Equal(t, 200_000, res.Trials)
	assert.InDelta(t, mc.ForwardCallExpectation(atm), res.Estimate, 0.2)
}

func TestPrice_Invalid(t *testing.T) {
	t.Parallel()

	c := newCoordinator(Options{})
	var dispatched atomic.Int32
	require.NoError(t, c.Subscribe(TopicDispatched, func(Event) { dispatched.Add(1) }))

	_, err := c.Price(context.Background(), atm, 0)
	assert.ErrorIs(t, err, mc.ErrInvalidParameter)

	p := atm
	p.Expiry = 0
	_, err = c.Price(context.Background(), p, 100)
	assert.ErrorIs(t, err, mc.ErrInvalidParameter)

	assert.Zero(t, dispatched.Load())
}

func TestPriceBatch_InvalidRequestBlocksWholeBatch(t *testing.T) {
	t.Parallel()

	c := newCoordinator(Options{})
	var dispatched atomic.Int32
	require.NoError(t, c.Subscribe(TopicDispatched, func(Event) { dispatched.Add(1) }))

	reqs := strikes(5, 100)
	reqs[3].Parameters.Spot = -1
	reqs[4].Trials = 0

	results, err := c.PriceBatch(context.Background(), reqs)
	require.Error(t, err)
	assert.Nil(t, results)
	assert.ErrorIs(t, err, mc.ErrInvalidParameter)
	assert.Contains(t, err.Error(), "request 3")
	assert.Contains(t, err.Error(), "request 4")
	assert.Zero(t, dispatched.Load())

	dup := strikes(2, 100)
	dup[1].ID = dup[0].ID
	_, err = c.PriceBatch(context.Background(), dup)
	assert.ErrorIs(t, err, mc.ErrInvalidParameter)

	_, err = c.PriceBatch(context.Background(), nil)
	assert.ErrorIs(t, err, mc.ErrInvalidParameter)
	assert.Zero(t, dispatched.Load())
}

func TestPriceBatch_TenRequestsCorrelated(t *testing.T) {
	t.Parallel()

	c := newCoordinator(Options{Workers: 4, Seed: seed(1)})
	reqs := strikes(10, 20_000)

	results, err := c.PriceBatch(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, results, 10)

	byID := map[uuid.UUID]worker.Request{}
	for _, r := range reqs {
		byID[r.ID] = r
	}
	seen := map[uuid.UUID]bool{}
	for _, r := range results {
		require.True(t, r.IsSuccess(), "unexpected error: %v", r.Err())
		req, ok := byID[r.Id()]
		require.True(t, ok, "result id %s matches no request", r.Id())
		assert.Equal(t, req.Parameters, r.Result().Parameters)
		assert.GreaterOrEqual(t, r.Result().Estimate, 0.0)
		seen[r.Id()] = true
	}
	assert.Len(t, seen, 10)
}

func TestPriceBatchOrdered(t *testing.T) {
	t.Parallel()

	c := newCoordinator(Options{Workers: 3, Seed: seed(7)})
	reqs := strikes(8, 5_000)

	results, err := c.PriceBatchOrdered(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, results, len(reqs))

	prev := math.Inf(1)
	for i, r := range results {
		require.True(t, r.IsSuccess())
		assert.Equal(t, reqs[i].ID, r.Id())
		assert.Equal(t, reqs[i].Parameters, r.Result().Parameters)
		// higher strikes are worth less
		assert.Less(t, r.Result().Estimate, prev+0.5)
		prev = r.Result().Estimate
	}
}

func TestPriceBatch_ReproducibleWithSeed(t *testing.T) {
	t.Parallel()

	reqs := strikes(6, 10_000)
	a, err := newCoordinator(Options{Workers: 2, Seed: seed(42)}).PriceBatchOrdered(context.Background(), reqs)
	require.NoError(t, err)
	b, err := newCoordinator(Options{Workers: 5, Seed: seed(42)}).PriceBatchOrdered(context.Background(), reqs)
	require.NoError(t, err)

	for i := range reqs {
		assert.Equal(t, math.Float64bits(a[i].Result().Estimate), math.Float64bits(b[i].Result().Estimate))
	}
	for _, r := range reqs {
		assert.Nil(t, r.Seed, "caller requests must not be modified")
	}
}

func TestPriceBatch_WorkerFailureIsolated(t *testing.T) {
	t.Parallel()

	c := newCoordinator(Options{Workers: 2})
	var failed atomic.Int32
	require.NoError(t, c.Subscribe(TopicFailed, func(Event) { failed.Add(1) }))

	reqs := strikes(4, 1000)
	reqs[2].Parameters = mc.Parameters{ForwardStrikePrice: 1, Spot: 1e300, Volatility: 1, Expiry: 1, InterestRate: 700}

	results, err := c.PriceBatchOrdered(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i, r := range results {
		if i == 2 {
			assert.True(t, r.IsFailure())
			assert.ErrorIs(t, r.Err(), mc.ErrWorkerFailure)
			continue
		}
		assert.True(t, r.IsSuccess(), "request %d: %v", i, r.Err())
	}
	assert.Equal(t, int32(1), failed.Load())
}

func TestPriceBatch_Timeout(t *testing.T) {
	t.Parallel()

	c := newCoordinator(Options{Workers: 2, RequestTimeout: 20 * time.Millisecond})
	slow := worker.NewRequest(atm, 2_000_000_000)
	fast := worker.NewRequest(atm, 100)

	results, err := c.PriceBatchOrdered(context.Background(), []worker.Request{slow, fast})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.True(t, results[0].IsCancel())
	assert.ErrorIs(t, results[0].Err(), mc.ErrTimeout)
	assert.False(t, errors.Is(results[0].Err(), mc.ErrWorkerFailure))
	assert.True(t, results[1].IsSuccess(), "fast request: %v", results[1].Err())
}

func TestPriceBatch_CancelledBeforeDispatch(t *testing.T) {
	t.Parallel()

	c := newCoordinator(Options{Workers: 2})
	var dispatched atomic.Int32
	require.NoError(t, c.Subscribe(TopicDispatched, func(Event) { dispatched.Add(1) }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := c.PriceBatch(ctx, strikes(5, 100))
	require.NoError(t, err)
	require.Len(t, results, 5)
	for _, r := range results {
		assert.True(t, r.IsCancel())
		assert.ErrorIs(t, r.Err(), mc.ErrCancelled)
	}
	assert.Zero(t, dispatched.Load())
}

func TestPriceBatch_CancelledMidway(t *testing.T) {
	t.Parallel()

	c := newCoordinator(Options{Workers: 1})
	ctx, cancel := context.WithCancel(context.Background())

	reqs := []worker.Request{
		worker.NewRequest(atm, 100),
		worker.NewRequest(atm, 2_000_000_000),
		worker.NewRequest(atm, 100),
	}
	require.NoError(t, c.Subscribe(TopicCompleted, func(Event) { cancel() }))

	results, err := c.PriceBatchOrdered(ctx, reqs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].IsSuccess())
	assert.True(t, results[1].IsCancel())
	assert.True(t, results[2].IsCancel())
	assert.ErrorIs(t, results[2].Err(), mc.ErrCancelled)
}

func TestPriceBatch_WorkerLimitFromContext(t *testing.T) {
	t.Parallel()

	c := newCoordinator(Options{Workers: 8})
	var (
		mu       sync.Mutex
		inFlight int
		peak     int
	)
	done := func(Event) {
		mu.Lock()
		inFlight--
		mu.Unlock()
	}
	require.NoError(t, c.Subscribe(TopicDispatched, func(Event) {
		mu.Lock()
		inFlight++
		peak = max(peak, inFlight)
		mu.Unlock()
	}))
	require.NoError(t, c.Subscribe(TopicCompleted, done))
	require.NoError(t, c.Subscribe(TopicFailed, done))

	results, err := c.PriceBatch(WithWorkerLimit(context.Background(), 2), strikes(12, 20_000))
	require.NoError(t, err)
	assert.Len(t, results, 12)
	assert.LessOrEqual(t, peak, 2)
	assert.Equal(t, 2, GetWorkerMaxCount(WithWorkerLimit(context.Background(), 2), 8))
	assert.Equal(t, 8, GetWorkerMaxCount(context.Background(), 8))
}

func TestPrice_DiscountOption(t *testing.T) {
	t.Parallel()

	plain, err := newCoordinator(Options{Seed: seed(9)}).Price(context.Background(), atm, 50_000)
	require.NoError(t, err)
	disc, err := newCoordinator(Options{Seed: seed(9), Discount: true}).Price(context.Background(), atm, 50_000)
	require.NoError(t, err)

	assert.InDelta(t, plain.Estimate*math.Exp(-atm.InterestRate*atm.Expiry), disc.Estimate, 1e-9)
}

func TestOptionsFromConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Workers = 3
	cfg.RequestTimeout = time.Second
	cfg.Discount = true
	cfg.Normal = "boxmuller"
	cfg.Seed = seed(5)

	l := logrus.New()
	l.SetOutput(io.Discard)
	opts := OptionsFromConfig(cfg, l)

	assert.Equal(t, 3, opts.Workers)
	assert.Equal(t, time.Second, opts.RequestTimeout)
	assert.True(t, opts.Discount)
	assert.Equal(t, mc.BoxMuller, opts.Normal)
	require.NotNil(t, opts.Seed)
	assert.Equal(t, uint64(5), *opts.Seed)

	res, err := New(opts).Price(context.Background(), atm, 1000)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Estimate, 0.0)
}

func TestResultsAreTagged(t *testing.T) {
	t.Parallel()

	var _ rop.Tagged[mc.SimulationResult] = rop.Success(mc.SimulationResult{})
}

func TestEncode(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	echo := newCoordinator(Options{EchoParameters: true, Seed: seed(3)})
	results, err := echo.PriceBatch(ctx, strikes(1, 100))
	require.NoError(t, err)
	data, err := echo.Encode(results[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"cancelled"`)
	assert.Contains(t, string(data), `"parameters"`)

	short := newCoordinator(Options{Seed: seed(3)})
	results, err = short.PriceBatch(context.Background(), strikes(1, 100))
	require.NoError(t, err)
	data, err = short.Encode(results[0])
	require.NoError(t, err)
	msg, err := worker.DecodeResult(data)
	require.NoError(t, err)
	assert.Nil(t, msg.Parameters)
	assert.Equal(t, results[0].Id().String(), msg.ID)
	assert.Equal(t, results[0].Result().Estimate, msg.Result)
}

func TestSubscribeAsync_SlowHandlerDoesNotStallLines(t *testing.T) {
	t.Parallel()

	c := newCoordinator(Options{Workers: 4, Seed: seed(11)})
	var completed atomic.Int32
	require.NoError(t, c.SubscribeAsync(TopicCompleted, func(Event) {
		time.Sleep(200 * time.Millisecond)
		completed.Add(1)
	}))

	start := time.Now()
	results, err := c.PriceBatch(context.Background(), strikes(8, 100))
	require.NoError(t, err)
	require.Len(t, results, 8)
	assert.Less(t, time.Since(start), 800*time.Millisecond)

	c.WaitAsync()
	assert.Equal(t, int32(8), completed.Load())
}
