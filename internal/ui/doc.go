// Package ui provides the Bubble Tea terminal interface for basket.
//
// # Views
//
// Two views share the screen and tab switches between them:
//
//   - Cart: the lines of the cart with quantity, subtotal and total. Quantity
//     changes, removal, clear and checkout are optimistic; the table changes
//     on the keypress and reverts if the server refuses.
//   - Orders: the buyer's orders, or the seller's sales when started with
//     -seller. "/" opens the search box; each keystroke goes to the search
//     debouncer and the listing follows once typing pauses.
//
// # Data Flow
//
// The model holds no domain state beyond the latest snapshots. It subscribes
// to the cart and order stores and receives every publish as a cartMsg or
// ordersMsg:
//
//	store.Publish ──> feed (1-slot, newest wins) ──> listen cmd ──> Update
//
// User actions call the services and return an await command, which turns the
// settled result into an opResultMsg for the status line. Failures of calls
// started elsewhere (initial load, search, refresh) arrive on the session's
// error channel.
//
// # Files
//
//   - app.go: Model, Update, View and Run
//   - bridge.go: store feeds and the command helpers
//   - cart_view.go, orders_view.go: per-view keys and rendering
//   - header.go, help.go, activity.go: chrome, the help overlay and the
//     recent-activity overlay (L)
//   - format.go: money, dates and error text for the status line
//   - keys.go, theme.go: key bindings and color themes
package ui
