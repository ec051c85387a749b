package coordinator

import (
	"context"
	"runtime"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/sirupsen/logrus"

	"github.com/ib-77/fwdmc/pkg/config"
	"github.com/ib-77/fwdmc/pkg/mc"
)

type OptionKey string

const WorkerOptionKey OptionKey = "worker_options"

type MaxLimitOption struct {
	Value int
}

type WorkerOptions struct {
	MaxCount MaxLimitOption
}

// WithWorkerLimit caps the number of concurrently running units for calls
// made with the returned context.
func WithWorkerLimit(ctx context.Context, maxWorkers int) context.Context {
	return context.WithValue(ctx, WorkerOptionKey, WorkerOptions{MaxLimitOption{Value: maxWorkers}})
}

func GetWorkerMaxCount(ctx context.Context, defaultMaxWorkers int) int {
	options, ok := ctx.Value(WorkerOptionKey).(WorkerOptions)
	if ok && options.MaxCount.Value > 0 {
		return options.MaxCount.Value
	}
	return defaultMaxWorkers
}

type Options struct {
	// Workers is the default number of units running at once.
	Workers int
	// RequestTimeout bounds each dispatched request. Zero waits forever.
	RequestTimeout time.Duration
	Discount       bool
	// EchoParameters selects the long result message form in Encode.
	EchoParameters bool
	Normal         mc.NormalMethod
	// Seed, when set, derives a reproducible seed for every request that
	// does not carry its own.
	Seed   *uint64
	Logger *logrus.Entry
	Bus    EventBus.Bus
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Normal == "" {
		o.Normal = mc.Ziggurat
	}
	if o.Logger == nil {
		o.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if o.Bus == nil {
		o.Bus = EventBus.New()
	}
	return o
}

// OptionsFromConfig maps a loaded configuration onto coordinator options.
func OptionsFromConfig(cfg config.Config, logger *logrus.Logger) Options {
	o := Options{
		Workers:        cfg.Workers,
		RequestTimeout: cfg.RequestTimeout,
		Discount:       cfg.Discount,
		EchoParameters: cfg.EchoParameters,
		Normal:         mc.NormalMethod(cfg.Normal),
		Seed:           cfg.Seed,
	}
	if logger != nil {
		o.Logger = logger.WithField("component", "coordinator")
	}
	return o
}
