package shop

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Remote is the order-service capability consumed by the cart and order
// services. It is implemented by *Client and faked in tests.
type Remote interface {
	ReadCart(ctx context.Context) (Cart, error)
	AddCartItem(ctx context.Context, productID string, quantity int) (Cart, error)
	UpsertCartItem(ctx context.Context, productID string, quantity int) (Cart, error)
	DeleteCartItem(ctx context.Context, productID string) (Cart, error)
	ClearCart(ctx context.Context) error

	ReadOrders(ctx context.Context) ([]Order, error)
	SearchOrders(ctx context.Context, term string) ([]Order, error)
	ReadSellerOrders(ctx context.Context) ([]Order, error)
	SearchSellerOrders(ctx context.Context, term string) ([]Order, error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	Checkout(ctx context.Context) (Order, error)
	CancelOrder(ctx context.Context, orderID string) (Order, error)
	UpdateOrderItemStatus(ctx context.Context, orderID, productID string, status OrderStatus) (Order, error)
	RedoToCart(ctx context.Context, orderID string) (Order, error)
}

// Ensure Client implements Remote at compile time.
var _ Remote = (*Client)(nil)

// IdempotencyHeader is set on every mutating request.
const IdempotencyHeader = "Idempotency-Key"

const (
	defaultAPIURL    = "127.0.0.1:8080"
	defaultUserAgent = "basket/0.1"
	defaultTimeout   = 5 * time.Second
)

// Client talks to the order-service HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	token     string
}

// Option customises a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// NewClient builds a Client for apiURL, which may be a bare host:port.
func NewClient(apiURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		http: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// cartResponse mirrors the /api/cart payload.
type cartResponse struct {
	UserID string     `json:"userId"`
	Items  []LineItem `json:"items"`
}

func (r cartResponse) cart() Cart {
	return Cart{UserID: r.UserID, Items: r.Items}
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type statusRequest struct {
	Status OrderStatus `json:"status"`
}

// ReadCart fetches the server cart.
func (c *Client) ReadCart(ctx context.Context) (Cart, error) {
	var payload cartResponse
	if err := c.do(ctx, "read cart", http.MethodGet, "/api/cart", nil, nil, &payload); err != nil {
		return Cart{}, err
	}
	return payload.cart(), nil
}

// AddCartItem adds quantity units of productID; the server merges with an
// existing line.
func (c *Client) AddCartItem(ctx context.Context, productID string, quantity int) (Cart, error) {
	var payload cartResponse
	err := c.do(ctx, "add cart item", http.MethodPost, "/api/cart/items/"+url.PathEscape(productID),
		nil, quantityRequest{Quantity: quantity}, &payload)
	if err != nil {
		return Cart{}, err
	}
	return payload.cart(), nil
}

// UpsertCartItem sets the absolute quantity of productID.
func (c *Client) UpsertCartItem(ctx context.Context, productID string, quantity int) (Cart, error) {
	var payload cartResponse
	err := c.do(ctx, "update cart item", http.MethodPut, "/api/cart/items/"+url.PathEscape(productID),
		nil, quantityRequest{Quantity: quantity}, &payload)
	if err != nil {
		return Cart{}, err
	}
	return payload.cart(), nil
}

// DeleteCartItem removes the line for productID.
func (c *Client) DeleteCartItem(ctx context.Context, productID string) (Cart, error) {
	var payload cartResponse
	err := c.do(ctx, "delete cart item", http.MethodDelete, "/api/cart/items/"+url.PathEscape(productID),
		nil, nil, &payload)
	if err != nil {
		return Cart{}, err
	}
	return payload.cart(), nil
}

// ClearCart deletes every line.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, "clear cart", http.MethodDelete, "/api/cart", nil, nil, nil)
}

// ReadOrders lists the caller's orders.
func (c *Client) ReadOrders(ctx context.Context) ([]Order, error) {
	return c.listOrders(ctx, "read orders", "/api/orders", nil)
}

// SearchOrders lists the caller's orders matching term.
func (c *Client) SearchOrders(ctx context.Context, term string) ([]Order, error) {
	return c.listOrders(ctx, "search orders", "/api/orders/search", url.Values{"query": {term}})
}

// ReadSellerOrders lists orders containing the caller's products.
func (c *Client) ReadSellerOrders(ctx context.Context) ([]Order, error) {
	return c.listOrders(ctx, "read seller orders", "/api/orders/seller", nil)
}

// SearchSellerOrders lists seller orders matching term.
func (c *Client) SearchSellerOrders(ctx context.Context, term string) ([]Order, error) {
	return c.listOrders(ctx, "search seller orders", "/api/orders/seller/search", url.Values{"query": {term}})
}

func (c *Client) listOrders(ctx context.Context, op, path string, query url.Values) ([]Order, error) {
	var payload []Order
	if err := c.do(ctx, op, http.MethodGet, path, query, nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// GetOrder fetches a single order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (Order, error) {
	return c.orderCall(ctx, "get order", http.MethodGet, "/api/orders/"+url.PathEscape(orderID), nil)
}

// Checkout turns the server cart into a new order.
func (c *Client) Checkout(ctx context.Context) (Order, error) {
	return c.orderCall(ctx, "checkout", http.MethodPost, "/api/orders/checkout", struct{}{})
}

// CancelOrder cancels a pending order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (Order, error) {
	return c.orderCall(ctx, "cancel order", http.MethodPatch, "/api/orders/"+url.PathEscape(orderID)+"/cancel", struct{}{})
}

// UpdateOrderItemStatus moves one item of an order to status (seller only).
func (c *Client) UpdateOrderItemStatus(ctx context.Context, orderID, productID string, status OrderStatus) (Order, error) {
	path := "/api/orders/" + url.PathEscape(orderID) + "/items/" + url.PathEscape(productID) + "/status"
	return c.orderCall(ctx, "update order item status", http.MethodPatch, path, statusRequest{Status: status})
}

// RedoToCart copies the items of a past order back into the server cart.
func (c *Client) RedoToCart(ctx context.Context, orderID string) (Order, error) {
	return c.orderCall(ctx, "redo to cart", http.MethodPost, "/api/orders/"+url.PathEscape(orderID)+"/redo-to-cart", struct{}{})
}

func (c *Client) orderCall(ctx context.Context, op, method, path string, body any) (Order, error) {
	var payload Order
	if err := c.do(ctx, op, method, path, nil, body, &payload); err != nil {
		return Order{}, err
	}
	return payload, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, dest any) error {
	if c == nil {
		return &TransportError{Op: op, Err: errors.New("client is nil")}
	}
	rel := &url.URL{Path: path}
	if len(query) > 0 {
		rel.RawQuery = query.Encode()
	}
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Err: errors.Wrap(err, "encode request")}
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return &TransportError{Op: op, Err: errors.Wrap(err, "create request")}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if method != http.MethodGet {
		req.Header.Set(IdempotencyHeader, uuid.NewString())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: errors.Wrap(err, "execute request")}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return &TransportError{
			Op:     op,
			Status: resp.StatusCode,
			Err:    errors.Errorf("api %s returned status %d", rel.Path, resp.StatusCode),
		}
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: errors.Wrap(err, "decode response")}
	}
	return nil
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, errors.Wrapf(err, "parse api url %q", apiURL)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
