package mc

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrWorkerFailure    = errors.New("worker failure")
	ErrTimeout          = errors.New("timeout")
	ErrCancelled        = errors.New("cancelled")
)

func invalid(field string, value any, reason string) error {
	return fmt.Errorf("%w: %s=%v %s", ErrInvalidParameter, field, value, reason)
}

// ContextErr maps a done context onto ErrTimeout or ErrCancelled.
func ContextErr(ctx context.Context) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}

// Kind names the error class for wire messages and logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidParameter):
		return "invalid_parameter"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	default:
		return "worker_failure"
	}
}
