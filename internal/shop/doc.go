// Package shop defines the cart and order domain types and the HTTP client for
// the order-service API.
//
// # Overview
//
// The package is split into three files:
//
//   - types.go: LineItem, Cart, Order, OrderItem and OrderStatus with the pure
//     helpers the optimistic transforms are built from
//   - errors.go: the error taxonomy shared by every layer above
//   - client.go: the Remote interface and its HTTP implementation
//
// # Endpoints
//
//	GET    /api/cart
//	POST   /api/cart/items/{productId}         add (server merges quantity)
//	PUT    /api/cart/items/{productId}         set absolute quantity
//	DELETE /api/cart/items/{productId}
//	DELETE /api/cart
//	GET    /api/orders
//	GET    /api/orders/search?query=
//	GET    /api/orders/seller
//	GET    /api/orders/seller/search?query=
//	GET    /api/orders/{orderId}
//	POST   /api/orders/checkout
//	PATCH  /api/orders/{orderId}/cancel
//	PATCH  /api/orders/{orderId}/items/{productId}/status
//	POST   /api/orders/{orderId}/redo-to-cart
//
// # Error Handling
//
// Every failure leaving the client is a *TransportError carrying the
// operation name and, when the server answered, the HTTP status:
//
//   - "read cart: execute request: dial tcp: connection refused"
//   - "cancel order: status 409: api /api/orders/o1/cancel returned status 409"
//   - "read orders: status 200: decode response: unexpected EOF"
//
// A 404 also matches ErrNotFound through errors.Is.
//
// # Idempotency
//
// Mutating calls are not assumed idempotent. Each one carries a fresh
// Idempotency-Key header so a server that deduplicates can do so, but the
// client itself never retries.
//
// # Money
//
// Prices are decimal.Decimal. The API sends JSON numbers; decimal accepts both
// numbers and quoted strings, so no float64 ever touches a price.
package shop
