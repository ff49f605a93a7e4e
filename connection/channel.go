package connection

import (
	"context"
	"sync/atomic"
)

// signalChannel is a buffered channel bound to the manager's lifetime.
// Send gives up when either the caller's or the manager's context ends, so a
// reader goroutine never outlives Shutdown.
type signalChannel[T any] struct {
	channel chan T
	context context.Context
	closed  atomic.Int32
}

func newSignalChannel[T any](ctx context.Context, bufferSize int) *signalChannel[T] {
	return &signalChannel[T]{
		channel: make(chan T, bufferSize),
		context: ctx,
	}
}

func (sc *signalChannel[T]) Send(ctx context.Context, message T) error {
	select {
	case sc.channel <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-sc.context.Done():
		return sc.context.Err()
	}
}

func (sc *signalChannel[T]) Receive(ctx context.Context) (T, error) {
	select {
	case message, ok := <-sc.channel:
		if !ok {
			var zero T
			return zero, ErrShutdown
		}
		return message, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (sc *signalChannel[T]) C() <-chan T {
	return sc.channel
}

// Close must only be called once no goroutine can Send.
func (sc *signalChannel[T]) Close() {
	if sc.closed.CompareAndSwap(0, 1) {
		close(sc.channel)
	}
}
