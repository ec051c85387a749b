package coordinator

import (
	"time"

	"github.com/google/uuid"

	"github.com/ib-77/fwdmc/pkg/mc"
)

const (
	TopicDispatched = "simulation:dispatched"
	TopicCompleted  = "simulation:completed"
	TopicFailed     = "simulation:failed"
)

// Event is published on the coordinator bus for every request lifecycle
// step. Result is set on completion, Err on failure.
type Event struct {
	ID         uuid.UUID
	Parameters mc.Parameters
	Trials     int
	Result     *mc.SimulationResult
	Err        error
	At         time.Time
}

// Subscribe registers fn for one of the Topic* names. fn runs on the
// dispatch line while the bus lock is held, so it must return quickly; a
// slow handler stalls every line. Use SubscribeAsync for anything heavier.
func (c *Coordinator) Subscribe(topic string, fn func(Event)) error {
	return c.bus.Subscribe(topic, fn)
}

// SubscribeAsync registers fn to run on its own goroutine per event.
// WaitAsync blocks until all such handlers have returned.
func (c *Coordinator) SubscribeAsync(topic string, fn func(Event)) error {
	return c.bus.SubscribeAsync(topic, fn, false)
}

func (c *Coordinator) WaitAsync() {
	c.bus.WaitAsync()
}

func (c *Coordinator) publish(topic string, ev Event) {
	ev.At = time.Now().UTC()
	c.bus.Publish(topic, ev)
}
