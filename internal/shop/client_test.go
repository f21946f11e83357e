package shop

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" {
		t.Fatalf("scheme = %q, want http", u.Scheme)
	}
	if u.Host != defaultAPIURL {
		t.Fatalf("host = %q, want %q", u.Host, defaultAPIURL)
	}

	u, err = parseBaseURL("https://shop.example.com:8443/base?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
	if u.Scheme != "https" {
		t.Fatalf("scheme = %q, want https", u.Scheme)
	}
}

type recordedRequest struct {
	Method      string
	Path        string
	Query       string
	Body        string
	Auth        string
	Idempotency string
}

func TestClient_CartEndpoints(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	cart := cartResponse{
		UserID: "u1",
		Items: []LineItem{{
			ProductID: "p1",
			SellerID:  "s1",
			Name:      "Mug",
			Price:     decimal.RequireFromString("12.50"),
			Quantity:  2,
		}},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			Body:        strings.TrimSpace(string(body)),
			Auth:        r.Header.Get("Authorization"),
			Idempotency: r.Header.Get(IdempotencyHeader),
		})
		mu.Unlock()

		if r.Method == http.MethodDelete && r.URL.Path == "/api/cart" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(cart)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, WithToken(" secret "), WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()

	got, err := c.ReadCart(ctx)
	if err != nil {
		t.Fatalf("ReadCart returned error: %v", err)
	}
	if got.UserID != "u1" || len(got.Items) != 1 || !got.Items[0].Price.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("ReadCart = %#v, want one line priced 12.50", got)
	}
	if _, err := c.AddCartItem(ctx, "p1", 3); err != nil {
		t.Fatalf("AddCartItem returned error: %v", err)
	}
	if _, err := c.UpsertCartItem(ctx, "p1", 7); err != nil {
		t.Fatalf("UpsertCartItem returned error: %v", err)
	}
	if _, err := c.DeleteCartItem(ctx, "p1"); err != nil {
		t.Fatalf("DeleteCartItem returned error: %v", err)
	}
	if err := c.ClearCart(ctx); err != nil {
		t.Fatalf("ClearCart returned error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []recordedRequest{
		{Method: http.MethodGet, Path: "/api/cart"},
		{Method: http.MethodPost, Path: "/api/cart/items/p1", Body: `{"quantity":3}`},
		{Method: http.MethodPut, Path: "/api/cart/items/p1", Body: `{"quantity":7}`},
		{Method: http.MethodDelete, Path: "/api/cart/items/p1"},
		{Method: http.MethodDelete, Path: "/api/cart"},
	}
	if len(reqs) != len(want) {
		t.Fatalf("got %d requests, want %d", len(reqs), len(want))
	}
	for i, w := range want {
		r := reqs[i]
		if r.Method != w.Method || r.Path != w.Path || r.Body != w.Body {
			t.Fatalf("request %d = %s %s %q, want %s %s %q", i, r.Method, r.Path, r.Body, w.Method, w.Path, w.Body)
		}
		if r.Auth != "Bearer secret" {
			t.Fatalf("request %d Authorization = %q, want bearer token", i, r.Auth)
		}
		if w.Method == http.MethodGet && r.Idempotency != "" {
			t.Fatalf("GET request carried %s header", IdempotencyHeader)
		}
		if w.Method != http.MethodGet && r.Idempotency == "" {
			t.Fatalf("%s %s missing %s header", r.Method, r.Path, IdempotencyHeader)
		}
	}
	if reqs[1].Idempotency == reqs[2].Idempotency {
		t.Fatalf("idempotency keys should differ per request")
	}
}

func TestClient_OrderEndpoints(t *testing.T) {
	t.Parallel()

	var gotPaths []string
	var gotQueries []string
	var gotStatusBody string
	order := Order{
		ID:         "o1",
		UserID:     "u1",
		Status:     StatusPending,
		TotalPrice: decimal.RequireFromString("25"),
		Items:      []OrderItem{{ProductID: "p1", Quantity: 2, Status: StatusPending}},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPaths = append(gotPaths, r.Method+" "+r.URL.Path)
		gotQueries = append(gotQueries, r.URL.Query().Get("query"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/status"):
			body, _ := io.ReadAll(r.Body)
			gotStatusBody = strings.TrimSpace(string(body))
			_ = json.NewEncoder(w).Encode(order)
		case r.Method == http.MethodGet && (r.URL.Path == "/api/orders" ||
			strings.HasSuffix(r.URL.Path, "/search") || r.URL.Path == "/api/orders/seller"):
			_ = json.NewEncoder(w).Encode([]Order{order})
		default:
			_ = json.NewEncoder(w).Encode(order)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()

	if list, err := c.ReadOrders(ctx); err != nil || len(list) != 1 {
		t.Fatalf("ReadOrders = %v, %v; want one order", list, err)
	}
	if _, err := c.SearchOrders(ctx, "mug & tea"); err != nil {
		t.Fatalf("SearchOrders returned error: %v", err)
	}
	if _, err := c.ReadSellerOrders(ctx); err != nil {
		t.Fatalf("ReadSellerOrders returned error: %v", err)
	}
	if _, err := c.SearchSellerOrders(ctx, "x"); err != nil {
		t.Fatalf("SearchSellerOrders returned error: %v", err)
	}
	if got, err := c.GetOrder(ctx, "o1"); err != nil || got.ID != "o1" {
		t.Fatalf("GetOrder = %v, %v", got, err)
	}
	if _, err := c.Checkout(ctx); err != nil {
		t.Fatalf("Checkout returned error: %v", err)
	}
	if _, err := c.CancelOrder(ctx, "o1"); err != nil {
		t.Fatalf("CancelOrder returned error: %v", err)
	}
	if _, err := c.UpdateOrderItemStatus(ctx, "o1", "p1", StatusShipped); err != nil {
		t.Fatalf("UpdateOrderItemStatus returned error: %v", err)
	}
	if _, err := c.RedoToCart(ctx, "o1"); err != nil {
		t.Fatalf("RedoToCart returned error: %v", err)
	}

	wantPaths := []string{
		"GET /api/orders",
		"GET /api/orders/search",
		"GET /api/orders/seller",
		"GET /api/orders/seller/search",
		"GET /api/orders/o1",
		"POST /api/orders/checkout",
		"PATCH /api/orders/o1/cancel",
		"PATCH /api/orders/o1/items/p1/status",
		"POST /api/orders/o1/redo-to-cart",
	}
	if strings.Join(gotPaths, "\n") != strings.Join(wantPaths, "\n") {
		t.Fatalf("paths =\n%s\nwant\n%s", strings.Join(gotPaths, "\n"), strings.Join(wantPaths, "\n"))
	}
	if gotQueries[1] != "mug & tea" || gotQueries[3] != "x" {
		t.Fatalf("search queries = %q, want encoded terms", gotQueries)
	}
	if gotStatusBody != `{"status":"SHIPPED"}` {
		t.Fatalf("status body = %q", gotStatusBody)
	}
}

func TestClient_ErrorsAreTransportErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/cart":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("{not-json"))
		case "/api/orders":
			http.Error(w, "nope", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := context.Background()

	_, err = c.ReadCart(ctx)
	var te *TransportError
	if !errors.As(err, &te) || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("ReadCart error = %v, want decode TransportError", err)
	}
	if te.Op != "read cart" {
		t.Fatalf("Op = %q, want read cart", te.Op)
	}

	_, err = c.ReadOrders(ctx)
	if !errors.As(err, &te) || te.Status != http.StatusInternalServerError {
		t.Fatalf("ReadOrders error = %v, want status 500", err)
	}
	if !IsRecoverable(err) {
		t.Fatalf("IsRecoverable(%v) = false, want true", err)
	}

	_, err = c.GetOrder(ctx, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetOrder error = %v, want ErrNotFound", err)
	}
}

func TestClient_ConnectionRefusedIsRecoverable(t *testing.T) {
	c, err := NewClient("127.0.0.1:1", WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = c.ReadCart(context.Background())
	if err == nil {
		t.Fatalf("ReadCart returned nil error, want transport error")
	}
	if !IsRecoverable(err) {
		t.Fatalf("IsRecoverable(%v) = false, want true", err)
	}
	if IsRecoverable(&ValidationError{Op: "add", Field: "quantity", Reason: "must be positive"}) {
		t.Fatalf("validation errors are not recoverable transport errors")
	}
}
