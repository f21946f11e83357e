package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/go-faster/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/five82/basket/internal/shop"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

// fakeRemote keeps a server-side cart and applies the API semantics to it.
type fakeRemote struct {
	mu    sync.Mutex
	cart  shop.Cart
	stock map[string]shop.Product
	calls []string
	fail  map[string]error
	gates map[string]chan struct{}
	order shop.Order
}

func newFakeRemote(products ...shop.Product) *fakeRemote {
	r := &fakeRemote{
		cart:  shop.Cart{UserID: "u-1"},
		stock: make(map[string]shop.Product),
		fail:  make(map[string]error),
		gates: make(map[string]chan struct{}),
		order: shop.Order{ID: "o-1", Status: shop.StatusPending},
	}
	for _, p := range products {
		r.stock[p.ID] = p
	}
	return r
}

// gate makes op block until the returned channel is closed.
func (r *fakeRemote) gate(op string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan struct{})
	r.gates[op] = ch
	return ch
}

func (r *fakeRemote) enter(ctx context.Context, op string) error {
	r.mu.Lock()
	r.calls = append(r.calls, op)
	gate := r.gates[op]
	err := r.fail[op]
	r.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (r *fakeRemote) callLog() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *fakeRemote) seed(items ...shop.LineItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cart.Items = append(r.cart.Items, items...)
}

func (r *fakeRemote) snapshot() shop.Cart {
	return r.cart.Clone()
}

func (r *fakeRemote) ReadCart(ctx context.Context) (shop.Cart, error) {
	if err := r.enter(ctx, "read"); err != nil {
		return shop.Cart{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot(), nil
}

func (r *fakeRemote) AddCartItem(ctx context.Context, productID string, quantity int) (shop.Cart, error) {
	if err := r.enter(ctx, "add"); err != nil {
		return shop.Cart{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.cart.Find(productID); ok {
		r.cart.Items[i].Quantity += quantity
		return r.snapshot(), nil
	}
	p := r.stock[productID]
	r.cart.Items = append(r.cart.Items, shop.LineItem{
		ProductID: p.ID, SellerID: p.SellerID, Name: p.Name, Price: p.Price,
		Quantity: quantity, AvailableQuantity: p.Stock,
	})
	return r.snapshot(), nil
}

func (r *fakeRemote) UpsertCartItem(ctx context.Context, productID string, quantity int) (shop.Cart, error) {
	if err := r.enter(ctx, "upsert"); err != nil {
		return shop.Cart{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.cart.Find(productID); ok {
		r.cart.Items[i].Quantity = quantity
	}
	return r.snapshot(), nil
}

func (r *fakeRemote) DeleteCartItem(ctx context.Context, productID string) (shop.Cart, error) {
	if err := r.enter(ctx, "delete"); err != nil {
		return shop.Cart{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.cart.Find(productID); ok {
		r.cart.Items = append(r.cart.Items[:i:i], r.cart.Items[i+1:]...)
	}
	return r.snapshot(), nil
}

func (r *fakeRemote) ClearCart(ctx context.Context) error {
	if err := r.enter(ctx, "clear"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cart.Items = nil
	return nil
}

func (r *fakeRemote) Checkout(ctx context.Context) (shop.Order, error) {
	if err := r.enter(ctx, "checkout"); err != nil {
		return shop.Order{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	order := r.order
	order.TotalPrice = r.cart.Total()
	return order, nil
}

func (r *fakeRemote) RedoToCart(ctx context.Context, orderID string) (shop.Order, error) {
	if err := r.enter(ctx, "redo"); err != nil {
		return shop.Order{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cart.Items = append(r.cart.Items, shop.LineItem{ProductID: "from-" + orderID, Name: "Reordered", Price: decimal.NewFromInt(3), Quantity: 1})
	return r.order, nil
}

type fakeMirror struct {
	mu     sync.Mutex
	stored *shop.Cart
	saves  []shop.Cart
	err    error
}

func (m *fakeMirror) SaveCart(c shop.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = append(m.saves, c.Clone())
	stored := c.Clone()
	m.stored = &stored
	return nil
}

func (m *fakeMirror) LoadCart() (shop.Cart, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return shop.Cart{}, false, m.err
	}
	if m.stored == nil {
		return shop.Cart{}, false, nil
	}
	return m.stored.Clone(), true, nil
}

func (m *fakeMirror) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saves)
}

func fakeProduct(stock int) shop.Product {
	return shop.Product{
		ID:       gofakeit.UUID(),
		SellerID: gofakeit.UUID(),
		Name:     gofakeit.ProductName(),
		Price:    decimal.NewFromFloat(gofakeit.Price(1, 200)).Round(2),
		Stock:    stock,
	}
}

func lineFor(p shop.Product, qty int) shop.LineItem {
	return shop.LineItem{ProductID: p.ID, SellerID: p.SellerID, Name: p.Name, Price: p.Price, Quantity: qty, AvailableQuantity: p.Stock}
}

// newLoadedService returns a service whose store already holds the server
// cart built from items.
func newLoadedService(t *testing.T, remote *fakeRemote, items ...shop.LineItem) (*Service, *fakeMirror) {
	t.Helper()
	remote.seed(items...)
	m := &fakeMirror{}
	svc := NewService(remote, m, zaptest.NewLogger(t))
	_, err := svc.Load(context.Background()).Wait(context.Background())
	require.NoError(t, err)
	return svc, m
}

func TestAdd_FailureRestoresExactSnapshot(t *testing.T) {
	a, b := fakeProduct(10), fakeProduct(10)
	remote := newFakeRemote(a, b)
	svc, m := newLoadedService(t, remote, lineFor(a, 2))
	before := svc.Current()
	savesBefore := m.saveCount()

	remote.fail["add"] = &shop.TransportError{Op: "add cart item", Status: 500, Err: errors.New("boom")}
	_, err := svc.Add(context.Background(), b, 1).Wait(context.Background())

	require.Error(t, err)
	assert.True(t, shop.IsRecoverable(err))
	require.Equal(t, before, svc.Current(), "rollback must restore the pre-mutation value exactly")
	assert.Equal(t, savesBefore, m.saveCount(), "failed mutations are not mirrored")
}

func TestAdd_MergesExistingLine(t *testing.T) {
	p := fakeProduct(0)
	remote := newFakeRemote(p)
	svc, _ := newLoadedService(t, remote, lineFor(p, 2))

	var seen []shop.Cart
	var mu sync.Mutex
	sub := svc.Store().Subscribe(func(c shop.Cart) { mu.Lock(); seen = append(seen, c); mu.Unlock() })
	defer sub.Unsubscribe()

	pending := svc.Add(context.Background(), p, 3)
	provisional := svc.Current()
	require.Len(t, provisional.Items, 1)
	assert.Equal(t, 5, provisional.Items[0].Quantity, "provisional value is visible before the remote call resolves")

	got, err := pending.Wait(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 5, got.Items[0].Quantity)

	mu.Lock()
	defer mu.Unlock()
	for _, c := range seen {
		require.LessOrEqual(t, len(c.Items), 1, "a product never appears on two lines")
	}
}

func TestAdd_NewLineCarriesProductDetails(t *testing.T) {
	p := fakeProduct(4)
	svc, m := newLoadedService(t, newFakeRemote(p))

	got, err := svc.Add(context.Background(), p, 2).Wait(context.Background())
	require.NoError(t, err)

	want := shop.Cart{UserID: "u-1", Items: []shop.LineItem{lineFor(p, 2)}}
	if diff := cmp.Diff(want, got, decimalEqual); diff != "" {
		t.Fatalf("cart mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, svc.Total().Equal(p.Price.Mul(decimal.NewFromInt(2))))
	assert.Equal(t, 2, svc.Count())

	stored, ok, err := m.LoadCart()
	require.NoError(t, err)
	require.True(t, ok)
	if diff := cmp.Diff(want, stored, decimalEqual); diff != "" {
		t.Fatalf("mirror mismatch (-want +got):\n%s", diff)
	}
}

func TestAdd_ValidationRejectsBeforePublish(t *testing.T) {
	p := fakeProduct(3)
	remote := newFakeRemote(p)
	svc, _ := newLoadedService(t, remote, lineFor(p, 2))
	version := svc.Store().Version()

	tests := []struct {
		name    string
		product shop.Product
		qty     int
		field   string
	}{
		{"zero quantity", p, 0, "quantity"},
		{"negative quantity", p, -1, "quantity"},
		{"missing id", shop.Product{Name: "ghost"}, 1, "product"},
		{"above stock after merge", p, 2, "quantity"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Add(context.Background(), tc.product, tc.qty).Err(context.Background())
			var ve *shop.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
			assert.False(t, shop.IsRecoverable(err))
		})
	}
	assert.Equal(t, version, svc.Store().Version(), "nothing may be published for rejected input")
	assert.NotContains(t, remote.callLog(), "add")
}

func TestRemove_AbsentProductIsNoop(t *testing.T) {
	p := fakeProduct(5)
	remote := newFakeRemote(p)
	svc, _ := newLoadedService(t, remote, lineFor(p, 1))
	version := svc.Store().Version()

	got, err := svc.Remove(context.Background(), "missing").Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, svc.Current(), got)
	assert.Equal(t, version, svc.Store().Version())
	assert.Equal(t, []string{"read"}, remote.callLog(), "no remote call for an absent product")
}

func TestSetQuantity_ZeroOrLessRemovesLine(t *testing.T) {
	for _, qty := range []int{0, -3} {
		p, q := fakeProduct(5), fakeProduct(5)
		remote := newFakeRemote(p, q)
		svc, _ := newLoadedService(t, remote, lineFor(p, 2), lineFor(q, 1))

		pending := svc.SetQuantity(context.Background(), p.ID, qty)
		_, present := svc.Current().Find(p.ID)
		require.False(t, present, "line must be gone from the provisional snapshot")

		got, err := pending.Wait(context.Background())
		require.NoError(t, err)
		_, present = got.Find(p.ID)
		assert.False(t, present)
		for _, it := range got.Items {
			assert.Positive(t, it.Quantity)
		}
		assert.Contains(t, remote.callLog(), "delete")
		assert.NotContains(t, remote.callLog(), "upsert")
	}
}

func TestSetQuantity_UpdatesAndChecksStock(t *testing.T) {
	p := fakeProduct(4)
	remote := newFakeRemote(p)
	svc, _ := newLoadedService(t, remote, lineFor(p, 1))

	got, err := svc.SetQuantity(context.Background(), p.ID, 3).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, got.Items[0].Quantity)

	err = svc.SetQuantity(context.Background(), p.ID, 9).Err(context.Background())
	var ve *shop.ValidationError
	require.ErrorAs(t, err, &ve)

	got, err = svc.Increment(context.Background(), p.ID, -1).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, got.Items[0].Quantity)

	err = svc.SetQuantity(context.Background(), "missing", 2).Err(context.Background())
	require.NoError(t, err, "absent product is a silent no-op")
}

func TestClear_PublishesEmptyThenRestoresOnFailure(t *testing.T) {
	items := []shop.LineItem{lineFor(fakeProduct(9), 1), lineFor(fakeProduct(9), 2), lineFor(fakeProduct(9), 3)}
	remote := newFakeRemote()
	svc, _ := newLoadedService(t, remote, items...)
	before := svc.Current()
	require.Len(t, before.Items, 3)

	release := remote.gate("clear")
	remote.fail["clear"] = &shop.TransportError{Op: "clear cart", Err: errors.New("connection reset")}

	var observed []shop.Cart
	var mu sync.Mutex
	sub := svc.Store().Subscribe(func(c shop.Cart) { mu.Lock(); observed = append(observed, c); mu.Unlock() })
	defer sub.Unsubscribe()

	pending := svc.Clear(context.Background())

	mu.Lock()
	require.Len(t, observed, 2)
	assert.True(t, observed[1].IsEmpty(), "empty snapshot is published before the remote call resolves")
	mu.Unlock()
	assert.False(t, pending.Ready())

	close(release)
	require.Error(t, pending.Err(context.Background()))
	require.Equal(t, before, svc.Current(), "all three lines restored, not a partial state")
}

func TestClear_EmptyCartIsNoop(t *testing.T) {
	remote := newFakeRemote()
	svc, _ := newLoadedService(t, remote)

	require.NoError(t, svc.Clear(context.Background()).Err(context.Background()))
	assert.NotContains(t, remote.callLog(), "clear")
}

func TestCheckout_OnlyClearMutatesCart(t *testing.T) {
	p := fakeProduct(5)
	remote := newFakeRemote(p)
	svc, m := newLoadedService(t, remote, lineFor(p, 2))
	before := svc.Current()
	version := svc.Store().Version()

	release := remote.gate("checkout")
	pending := svc.Checkout(context.Background())
	assert.Equal(t, version, svc.Store().Version(), "checkout publishes nothing optimistically")
	assert.Equal(t, before, svc.Current())

	close(release)
	order, err := pending.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "o-1", order.ID)
	assert.True(t, svc.Current().IsEmpty())
	assert.Equal(t, []string{"read", "checkout", "clear"}, remote.callLog())

	stored, ok, err := m.LoadCart()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, stored.IsEmpty())
}

func TestCheckout_FailureLeavesCartUntouched(t *testing.T) {
	p := fakeProduct(5)
	remote := newFakeRemote(p)
	svc, _ := newLoadedService(t, remote, lineFor(p, 2))
	before := svc.Current()
	version := svc.Store().Version()

	remote.fail["checkout"] = &shop.TransportError{Op: "checkout", Status: 409, Err: errors.New("stock changed")}
	_, err := svc.Checkout(context.Background()).Wait(context.Background())

	require.Error(t, err)
	assert.Equal(t, before, svc.Current())
	assert.Equal(t, version, svc.Store().Version())
	assert.NotContains(t, remote.callLog(), "clear")
}

func TestCheckout_EmptyCartIsRejected(t *testing.T) {
	remote := newFakeRemote()
	svc, _ := newLoadedService(t, remote)

	err := svc.Checkout(context.Background()).Err(context.Background())
	var ve *shop.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.NotContains(t, remote.callLog(), "checkout")
}

func TestLoad_FallsBackToMirrorWhenOffline(t *testing.T) {
	p := fakeProduct(5)
	cached := shop.Cart{UserID: "u-1", Items: []shop.LineItem{lineFor(p, 4)}}
	m := &fakeMirror{stored: &cached}
	remote := newFakeRemote(p)
	remote.fail["read"] = &shop.TransportError{Op: "read cart", Err: errors.New("connection refused")}

	svc := NewService(remote, m, zaptest.NewLogger(t))
	err := svc.Load(context.Background()).Err(context.Background())

	require.Error(t, err)
	assert.True(t, shop.IsRecoverable(err))
	if diff := cmp.Diff(cached, svc.Current(), decimalEqual); diff != "" {
		t.Fatalf("seed mismatch (-want +got):\n%s", diff)
	}
	assert.Zero(t, m.saveCount())
}

func TestLoad_UnreadableMirrorIsIgnored(t *testing.T) {
	p := fakeProduct(5)
	remote := newFakeRemote(p)
	remote.seed(lineFor(p, 1))
	m := &fakeMirror{err: errors.New("decode cart record")}

	svc := NewService(remote, m, zaptest.NewLogger(t))
	got, err := svc.Load(context.Background()).Wait(context.Background())
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, 1, m.saveCount(), "the fetched cart becomes the new mirror record")
}

func TestMirror_WrittenOnlyOnConfirmation(t *testing.T) {
	p := fakeProduct(5)
	remote := newFakeRemote(p)
	svc, m := newLoadedService(t, remote)
	saves := m.saveCount()

	release := remote.gate("add")
	pending := svc.Add(context.Background(), p, 1)
	assert.Len(t, svc.Current().Items, 1)
	assert.Equal(t, saves, m.saveCount(), "provisional state is never mirrored")

	close(release)
	require.NoError(t, pending.Err(context.Background()))
	assert.Equal(t, saves+1, m.saveCount())
}

func TestReorder_ReloadsCart(t *testing.T) {
	remote := newFakeRemote()
	svc, _ := newLoadedService(t, remote)

	got, err := svc.Reorder(context.Background(), "o-7").Wait(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "from-o-7", got.Items[0].ProductID)
	assert.Equal(t, got, svc.Current())
	assert.Equal(t, []string{"read", "redo", "read"}, remote.callLog())
}
