// Package worker is the isolated execution unit of the pricer. A Unit takes
// exactly one Request message, runs its batch with a sampler it creates for
// that run, and answers with exactly one message: a Response on success, or
// a failed or cancelled rop.Result otherwise.
//
// The wire forms mirror the messages the original worker scripts exchanged:
// - request: {"parameters": {...}, "trials": n}; trials defaults to 5000
// - result: {"parameters": {...}, "result": x}, or {"result": x} without echo
// - failure: {"error": "...", "kind": "..."}
package worker
