package state

import (
	"sync"
)

// Store holds the latest snapshot of type T and broadcasts every change to
// its observers.
type Store[T any] struct {
	// pubMu serialises Publish and Subscribe so observers see values in
	// publication order. mu guards the value and observer list.
	pubMu sync.Mutex
	mu    sync.RWMutex

	value     T
	clone     func(T) T
	version   uint64
	observers []observer[T]
	nextID    uint64
}

type observer[T any] struct {
	id uint64
	fn func(T)
}

// Subscription is an observer registration returned by Subscribe.
type Subscription struct {
	release func()
	once    sync.Once
}

// Unsubscribe stops delivery. Calling it more than once is harmless.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.release == nil {
		return
	}
	s.once.Do(s.release)
}

// NewStore creates a store seeded with initial. When clone is non-nil every
// value handed in or out is copied with it so callers can't alias the stored
// snapshot.
func NewStore[T any](initial T, clone func(T) T) *Store[T] {
	s := &Store[T]{clone: clone}
	s.value = s.copy(initial)
	return s
}

// Current returns the latest snapshot.
func (s *Store[T]) Current() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copy(s.value)
}

// Version counts publishes since creation.
func (s *Store[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Publish replaces the snapshot and notifies observers synchronously in
// subscription order. Observers must not Publish to the same store.
func (s *Store[T]) Publish(next T) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	s.value = s.copy(next)
	s.version++
	observers := make([]observer[T], len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, o := range observers {
		o.fn(s.Current())
	}
}

// Subscribe registers fn. It is called immediately with the current value
// and then once per Publish until the subscription is released.
func (s *Store[T]) Subscribe(fn func(T)) *Subscription {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, observer[T]{id: id, fn: fn})
	s.mu.Unlock()

	fn(s.Current())
	return &Subscription{release: func() { s.unsubscribe(id) }}
}

func (s *Store[T]) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.observers {
		if o.id == id {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

func (s *Store[T]) copy(v T) T {
	if s.clone == nil {
		return v
	}
	return s.clone(v)
}
