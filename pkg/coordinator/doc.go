// Package coordinator dispatches pricing requests to worker units and
// collects their answers.
//
// Each request is validated at the boundary, then handed to exactly one unit
// invocation; a unit never holds more than one request. Answers come back as
// rop.Result values tagged with the request id:
// - success: the SimulationResult
// - fail: mc.ErrWorkerFailure (or whatever the batch reported)
// - cancel: mc.ErrTimeout when the request deadline passed, mc.ErrCancelled
//   when the caller's context ended
//
// PriceBatch returns answers as they complete; PriceBatchOrdered resequences
// them by request id into submission order. Lifecycle events are published on
// an EventBus (see Topic* constants).
package coordinator
