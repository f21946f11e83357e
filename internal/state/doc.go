// Package state provides the observable snapshot store shared by the cart and
// order services and the UI.
//
// # Overview
//
// Store[T] is a single mutable cell holding the latest snapshot of a logical
// store (the cart, or a list of orders). It is a pure broadcast primitive: it
// never validates what it is given. The services that write to it are
// responsible for keeping their invariants (no zero-quantity lines, unique
// product IDs).
//
// # Contract
//
//	store := state.NewStore(shop.Cart{}, shop.Cart.Clone)
//
//	store.Current()        // synchronous read of the latest value
//	store.Publish(next)    // replace and notify every observer, in order
//	sub := store.Subscribe(func(c shop.Cart) { ... })
//	defer sub.Unsubscribe()
//
// Subscribe delivers the current value immediately, then every later Publish.
// Every observer sees the same sequence of values in publication order.
//
// # Concurrency Model
//
//	Writer (pipeline):                 Readers (UI, tests):
//	┌───────────────────┐              ┌───────────────────┐
//	│ Publish(next)     │──pubMu──────→│ observer(next)    │
//	│   value = next    │              │ Current()         │
//	│   notify in order │              └───────────────────┘
//	└───────────────────┘
//
// Two locks are used:
//
//   - pubMu serialises Publish and Subscribe, so a notification round for one
//     value finishes before the next value is stored
//   - mu (RWMutex) guards the value and the observer list, so Current() and
//     Unsubscribe() never wait on a slow observer
//
// Observers run on the publisher's goroutine. They may call Current and
// Unsubscribe but must not Publish to the same store.
//
// # Defensive Copying
//
// When NewStore is given a clone function, values are copied on the way in and
// on the way out. A subscriber mutating the slice it was handed cannot corrupt
// the stored snapshot or what other subscribers see.
//
// # Lifecycle
//
// A store is created per session by whoever composes the system (see
// internal/app) and is simply dropped at session end after releasing its
// subscriptions. There is no package-level instance.
package state
