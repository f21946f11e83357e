package optimistic

import (
	"context"
)

// Pending is the deferred result of a pipeline operation. It settles exactly
// once, after the store has been reconciled or rolled back.
type Pending[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newPending[T any]() *Pending[T] {
	return &Pending[T]{done: make(chan struct{})}
}

// Resolved returns a Pending that has already settled.
func Resolved[T any](value T, err error) *Pending[T] {
	p := newPending[T]()
	p.resolve(value, err)
	return p
}

func (p *Pending[T]) resolve(value T, err error) {
	p.value = value
	p.err = err
	close(p.done)
}

// Done is closed once the result is available.
func (p *Pending[T]) Done() <-chan struct{} {
	return p.done
}

// Ready reports whether the result is available without blocking.
func (p *Pending[T]) Ready() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the operation settles or ctx is done. Giving up on the
// wait does not cancel the operation.
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Err waits for the operation and returns only its error.
func (p *Pending[T]) Err(ctx context.Context) error {
	_, err := p.Wait(ctx)
	return err
}

// Go runs fn on its own goroutine and settles the returned Pending with its
// result. It is used for remote calls that have no optimistic step.
func Go[T any](fn func() (T, error)) *Pending[T] {
	p := newPending[T]()
	go func() {
		value, err := fn()
		p.resolve(value, err)
	}()
	return p
}
