// Package app provides the orchestration layer for the basket application.
//
// # Overview
//
// This package wires together configuration, logging, the shop client, the
// local mirror, the cart and order services and the UI. It is the composition
// root: every store is created here per session and nothing is global.
//
// # Components
//
//   - app.go: Run, which loads config, builds the file logger and starts the UI
//   - session.go: Session, which owns the services and the search debouncer
//   - refresher.go: background order refresh with exponential backoff
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()        Read ~/.config/basket/config.toml
//	       ├─────> newLogger()          JSON log file (the TUI owns stdout)
//	       ├─────> shop.NewClient()     HTTP client for the order service
//	       ├─────> mirror.Open()        Cart snapshot directory
//	       ├─────> NewSession()         Cart + order services, debouncer
//	       ├─────> Session.Start()      Mirror seed, cart load, unfiltered orders
//	       └─────> errgroup
//	                ├── runRefresher()  Re-run the current order query
//	                └── ui.Run()        Bubble Tea program (blocks)
//
// # Refresh Behavior
//
// The refresher re-runs the order listing the user is looking at, filtered or
// not, every refresh interval (default 30 seconds). Concurrent refreshes share
// one remote call. On failure the wait doubles per consecutive failure up to
// five minutes and resets after the next success. A refresh interval of zero
// disables it. The cart is not refreshed in the background; it only changes
// through the user's own mutations.
//
// # Shutdown
//
// Quitting the UI cancels the session context. Close then stops the debouncer
// and waits for every in-flight remote call to be reconciled, so the mirror
// never misses a confirmed cart.
package app
