package rop

import (
	"context"
	"errors"
	"fmt"
)

func IsCancellationError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// Try runs f on a successful input and keeps the input id on the output.
// Context errors returned by f become cancellations, a panic inside f
// becomes a failure wrapping panicErr.
func Try[In, Out any](ctx context.Context, input Result[In], panicErr error,
	f func(ctx context.Context, in In) (Out, error)) (out Result[Out]) {

	if !input.IsSuccess() {
		return Carry[In, Out](input)
	}

	defer func() {
		if r := recover(); r != nil {
			out = FailFrom[In, Out](input, fmt.Errorf("%w: panic: %v", panicErr, r))
		}
	}()

	v, err := f(ctx, input.Result())
	if err != nil {
		if IsCancellationError(err) {
			return CancelFrom[In, Out](input, err)
		}
		return FailFrom[In, Out](input, err)
	}
	return SuccessFor(input.id, v)
}

// Collect gathers every result of ch keyed by id.
func Collect[T any](ch <-chan Result[T]) map[string]Result[T] {
	out := make(map[string]Result[T])
	for r := range ch {
		out[r.id.String()] = r
	}
	return out
}
