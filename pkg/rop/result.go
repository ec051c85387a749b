package rop

import (
	"time"

	"github.com/google/uuid"
)

// Result is the outcome of one pricing request as it travels between the
// coordinator and a worker. The id is the request identifier and survives
// every stage, so outcomes can be matched to their requests in any order.
type Result[T any] struct {
	id        uuid.UUID
	createdAt time.Time
	result    T
	err       error
	isSuccess bool
	isCancel  bool
	hasResult bool
}

func Success[T any](r T) Result[T] {
	return SuccessFor(uuid.New(), r)
}

func Fail[T any](err error) Result[T] {
	return FailFor[T](uuid.New(), err)
}

func Cancel[T any](err error) Result[T] {
	return CancelFor[T](uuid.New(), err)
}

func SuccessFor[T any](id uuid.UUID, r T) Result[T] {
	return Result[T]{
		id:        id,
		createdAt: time.Now().UTC(),
		result:    r,
		isSuccess: true,
		hasResult: true,
	}
}

func FailFor[T any](id uuid.UUID, err error) Result[T] {
	return Result[T]{
		id:        id,
		createdAt: time.Now().UTC(),
		err:       err,
	}
}

func CancelFor[T any](id uuid.UUID, err error) Result[T] {
	return Result[T]{
		id:        id,
		createdAt: time.Now().UTC(),
		err:       err,
		isCancel:  true,
	}
}

// FailFrom keeps the id of from and carries err as a failure.
func FailFrom[In, Out any](from Result[In], err error) Result[Out] {
	return FailFor[Out](from.id, err)
}

// CancelFrom keeps the id of from and carries err as a cancellation.
func CancelFrom[In, Out any](from Result[In], err error) Result[Out] {
	return CancelFor[Out](from.id, err)
}

// Carry moves a failed or cancelled result to another value type.
func Carry[In, Out any](from Result[In]) Result[Out] {
	return Result[Out]{
		id:        from.id,
		createdAt: from.createdAt,
		err:       from.err,
		isCancel:  from.isCancel,
	}
}

func (r Result[T]) Result() T {
	return r.result
}

func (r Result[T]) Err() error {
	return r.err
}

func (r Result[T]) IsSuccess() bool {
	return r.isSuccess
}

func (r Result[T]) IsCancel() bool {
	return r.isCancel
}

func (r Result[T]) IsFailure() bool {
	return !r.isSuccess && !r.isCancel && r.err != nil
}

func (r Result[T]) HasResult() bool {
	return r.hasResult
}

func (r Result[T]) CreatedAt() time.Time {
	return r.createdAt
}

func (r Result[T]) Id() uuid.UUID {
	return r.id
}
