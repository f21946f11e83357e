package optimistic

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/five82/basket/internal/state"
)

// ErrUnchanged is returned by Mutation.Apply when the mutation has nothing to
// do (for example its target is absent). The pipeline then skips both the
// publish and the remote call.
var ErrUnchanged = errors.New("unchanged")

// Mutation describes one optimistic change.
type Mutation[T any] struct {
	// Name labels the mutation in logs.
	Name string
	// Apply is the pure local transform. It must not modify current.
	Apply func(current T) (T, error)
	// Commit issues the remote call and returns the canonical snapshot.
	Commit func(ctx context.Context, provisional T) (T, error)
}

// Pipeline applies mutations to a store optimistically and reconciles them
// with the remote system.
type Pipeline[T any] struct {
	store       *state.Store[T]
	lg          *zap.Logger
	onCanonical func(T)

	mu      sync.Mutex
	issued  uint64
	applied uint64

	inflight sync.WaitGroup
}

// New builds a pipeline writing to store. onCanonical, when set, is called
// with every value confirmed by the remote side, in confirmation order.
func New[T any](store *state.Store[T], lg *zap.Logger, onCanonical func(T)) *Pipeline[T] {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Pipeline[T]{
		store:       store,
		lg:          lg,
		onCanonical: onCanonical,
	}
}

// Store returns the store the pipeline writes to.
func (p *Pipeline[T]) Store() *state.Store[T] {
	return p.store
}

// Mutate publishes m's provisional value, then commits it remotely in the
// background. On success the canonical value replaces the provisional one; on
// failure the exact pre-mutation value is restored and the error is returned
// through the Pending.
//
// Observers of the store run while the pipeline lock is held and must not
// call back into the pipeline synchronously.
func (p *Pipeline[T]) Mutate(ctx context.Context, m Mutation[T]) *Pending[T] {
	p.mu.Lock()
	before := p.store.Current()
	provisional, err := m.Apply(p.store.Current())
	if err != nil {
		p.mu.Unlock()
		if errors.Is(err, ErrUnchanged) {
			p.lg.Debug("Mutation skipped", zap.String("op", m.Name), zap.Error(err))
			return Resolved(before, nil)
		}
		p.lg.Debug("Mutation rejected", zap.String("op", m.Name), zap.Error(err))
		return Resolved(before, err)
	}
	p.issued++
	seq := p.issued
	p.store.Publish(provisional)
	p.mu.Unlock()

	p.lg.Debug("Mutation applied", zap.String("op", m.Name), zap.Uint64("seq", seq))

	pending := newPending[T]()
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()

		canonical, err := m.Commit(ctx, provisional)
		if err != nil {
			p.rollback(seq, m.Name, before, err)
			pending.resolve(before, err)
			return
		}
		p.commit(seq, m.Name, canonical)
		pending.resolve(canonical, nil)
	}()
	return pending
}

// Replace fetches a fresh canonical snapshot without an optimistic step. A
// failed fetch leaves the store untouched.
func (p *Pipeline[T]) Replace(ctx context.Context, name string, fetch func(ctx context.Context) (T, error)) *Pending[T] {
	p.mu.Lock()
	p.issued++
	seq := p.issued
	p.mu.Unlock()

	pending := newPending[T]()
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()

		value, err := fetch(ctx)
		if err != nil {
			p.lg.Warn("Fetch failed", zap.String("op", name), zap.Uint64("seq", seq), zap.Error(err))
			pending.resolve(value, err)
			return
		}
		p.commit(seq, name, value)
		pending.resolve(value, nil)
	}()
	return pending
}

// Drain blocks until every in-flight remote call has been reconciled.
func (p *Pipeline[T]) Drain() {
	p.inflight.Wait()
}

// commit publishes a canonical value unless a later operation has already
// been confirmed.
func (p *Pipeline[T]) commit(seq uint64, name string, canonical T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if seq < p.applied {
		p.lg.Info("Discarding stale response",
			zap.String("op", name),
			zap.Uint64("seq", seq),
			zap.Uint64("applied", p.applied),
		)
		return
	}
	p.applied = seq
	p.store.Publish(canonical)
	if p.onCanonical != nil {
		p.onCanonical(canonical)
	}
	p.lg.Debug("Canonical snapshot applied", zap.String("op", name), zap.Uint64("seq", seq))
}

// rollback restores before unless a later operation has already been
// confirmed, in which case that confirmation is authoritative. A rollback
// does not advance the applied mark.
func (p *Pipeline[T]) rollback(seq uint64, name string, before T, cause error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if seq < p.applied {
		p.lg.Info("Discarding stale rollback",
			zap.String("op", name),
			zap.Uint64("seq", seq),
			zap.Uint64("applied", p.applied),
			zap.Error(cause),
		)
		return
	}
	p.store.Publish(before)
	p.lg.Warn("Mutation rolled back", zap.String("op", name), zap.Uint64("seq", seq), zap.Error(cause))
}
