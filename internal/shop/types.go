package shop

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Product is the catalog view of something that can be put in a cart.
type Product struct {
	ID       string          `json:"id"`
	SellerID string          `json:"sellerId"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"quantity"`
	ImageURL string          `json:"imageUrl,omitempty"`
}

// LineItem is one product line in a cart. Quantity is always >= 1 while the
// line is present.
type LineItem struct {
	ProductID         string          `json:"productId"`
	SellerID          string          `json:"sellerId"`
	Name              string          `json:"productName"`
	Price             decimal.Decimal `json:"priceSnapshot"`
	Quantity          int             `json:"quantity"`
	AvailableQuantity int             `json:"availableQuantity,omitempty"`
	ImageURL          string          `json:"imageUrl,omitempty"`
}

// Subtotal returns price times quantity.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an ordered set of line items keyed by product ID.
type Cart struct {
	UserID string     `json:"userId"`
	Items  []LineItem `json:"items"`
}

// Find returns the index of the line for productID.
func (c Cart) Find(productID string) (int, bool) {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i, true
		}
	}
	return -1, false
}

// Total sums the subtotals of every line.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Count returns the number of units across all lines.
func (c Cart) Count() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Clone returns a copy that shares no slice memory with c.
func (c Cart) Clone() Cart {
	dup := Cart{UserID: c.UserID}
	if len(c.Items) > 0 {
		dup.Items = make([]LineItem, len(c.Items))
		copy(dup.Items, c.Items)
	}
	return dup
}

// OrderStatus is the lifecycle state of an order or of one of its items.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusShipped   OrderStatus = "SHIPPED"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// ParseOrderStatus accepts any casing and surrounding whitespace.
func ParseOrderStatus(value string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(value)))
	if !status.Valid() {
		return "", errors.Errorf("unknown order status %q", value)
	}
	return status, nil
}

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Next returns the status that follows s in the seller workflow. Delivered
// and cancelled are terminal.
func (s OrderStatus) Next() OrderStatus {
	switch s {
	case StatusPending:
		return StatusConfirmed
	case StatusConfirmed:
		return StatusShipped
	case StatusShipped:
		return StatusDelivered
	default:
		return s
	}
}

// OrderItem is a purchased line with its own seller-controlled status.
type OrderItem struct {
	ProductID string          `json:"productId"`
	SellerID  string          `json:"sellerId"`
	Name      string          `json:"productName"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Status    OrderStatus     `json:"status"`
	ImageURL  string          `json:"imageUrl,omitempty"`
}

// Order mirrors the order-service representation.
type Order struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Status      OrderStatus     `json:"status"`
	PaymentMode string          `json:"paymentMode"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Items       []OrderItem     `json:"items"`
}

// Cancellable reports whether the buyer may still cancel the order.
func (o Order) Cancellable() bool {
	return o.Status == StatusPending
}

// FindItem returns the index of the item for productID.
func (o Order) FindItem(productID string) (int, bool) {
	for i, item := range o.Items {
		if item.ProductID == productID {
			return i, true
		}
	}
	return -1, false
}

// DeriveStatus computes the order status from its item statuses. When every
// item shares one of pending/confirmed/shipped/delivered the order takes that
// status; mixed items keep the current order status.
func (o Order) DeriveStatus() OrderStatus {
	if len(o.Items) == 0 {
		return o.Status
	}
	first := o.Items[0].Status
	if first == StatusCancelled {
		return o.Status
	}
	for _, item := range o.Items[1:] {
		if item.Status != first {
			return o.Status
		}
	}
	return first
}

// Clone returns a deep copy of o.
func (o Order) Clone() Order {
	dup := o
	if len(o.Items) > 0 {
		dup.Items = make([]OrderItem, len(o.Items))
		copy(dup.Items, o.Items)
	}
	return dup
}

// CloneOrders deep-copies a list of orders.
func CloneOrders(orders []Order) []Order {
	if len(orders) == 0 {
		return nil
	}
	dup := make([]Order, len(orders))
	for i, o := range orders {
		dup[i] = o.Clone()
	}
	return dup
}

// FindOrder returns the index of the order with id.
func FindOrder(orders []Order, id string) (int, bool) {
	for i, o := range orders {
		if o.ID == id {
			return i, true
		}
	}
	return -1, false
}

// ReplaceOrder returns a copy of orders with the order of the same ID
// replaced by updated. Unknown orders are prepended.
func ReplaceOrder(orders []Order, updated Order) []Order {
	out := CloneOrders(orders)
	if i, ok := FindOrder(out, updated.ID); ok {
		out[i] = updated.Clone()
		return out
	}
	return append([]Order{updated.Clone()}, out...)
}
