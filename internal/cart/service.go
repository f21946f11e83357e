package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/five82/basket/internal/optimistic"
	"github.com/five82/basket/internal/shop"
	"github.com/five82/basket/internal/state"
)

// Remote is the part of the shop API the cart needs.
type Remote interface {
	ReadCart(ctx context.Context) (shop.Cart, error)
	AddCartItem(ctx context.Context, productID string, quantity int) (shop.Cart, error)
	UpsertCartItem(ctx context.Context, productID string, quantity int) (shop.Cart, error)
	DeleteCartItem(ctx context.Context, productID string) (shop.Cart, error)
	ClearCart(ctx context.Context) error
	Checkout(ctx context.Context) (shop.Order, error)
	RedoToCart(ctx context.Context, orderID string) (shop.Order, error)
}

// Mirror persists confirmed carts between sessions.
type Mirror interface {
	SaveCart(cart shop.Cart) error
	LoadCart() (shop.Cart, bool, error)
}

// Service owns the cart store and every mutation applied to it.
type Service struct {
	remote Remote
	mirror Mirror
	pipe   *optimistic.Pipeline[shop.Cart]
	lg     *zap.Logger
}

// NewService builds a cart service with an empty store. mirror may be nil.
func NewService(remote Remote, mirror Mirror, lg *zap.Logger) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}
	s := &Service{
		remote: remote,
		mirror: mirror,
		lg:     lg,
	}
	store := state.NewStore(shop.Cart{}, shop.Cart.Clone)
	s.pipe = optimistic.New(store, lg, s.persist)
	return s
}

// Store exposes the cart store for subscribers.
func (s *Service) Store() *state.Store[shop.Cart] {
	return s.pipe.Store()
}

// Current returns the latest cart snapshot.
func (s *Service) Current() shop.Cart {
	return s.pipe.Store().Current()
}

// Total is the sum of line subtotals in the current snapshot.
func (s *Service) Total() decimal.Decimal {
	return s.Current().Total()
}

// Count is the number of units in the current snapshot.
func (s *Service) Count() int {
	return s.Current().Count()
}

// Drain waits for every in-flight cart call to be reconciled.
func (s *Service) Drain() {
	s.pipe.Drain()
}

// Load seeds the store from the mirror, when one is stored and nothing has
// been published yet, and then fetches the server cart. If the fetch fails
// the seed stays in place and the error is returned through the Pending.
func (s *Service) Load(ctx context.Context) *optimistic.Pending[shop.Cart] {
	if s.mirror != nil && s.Store().Version() == 0 {
		cached, ok, err := s.mirror.LoadCart()
		switch {
		case err != nil:
			s.lg.Warn("Ignoring unreadable cart mirror", zap.Error(err))
		case ok:
			s.Store().Publish(cached)
			s.lg.Info("Cart seeded from mirror", zap.Int("lines", len(cached.Items)))
		}
	}
	return s.pipe.Replace(ctx, "read cart", s.remote.ReadCart)
}

// Add puts qty units of product in the cart, merging with an existing line.
func (s *Service) Add(ctx context.Context, product shop.Product, qty int) *optimistic.Pending[shop.Cart] {
	const op = "add to cart"
	return s.pipe.Mutate(ctx, optimistic.Mutation[shop.Cart]{
		Name: op,
		Apply: func(cur shop.Cart) (shop.Cart, error) {
			if strings.TrimSpace(product.ID) == "" {
				return cur, &shop.ValidationError{Op: op, Field: "product", Reason: "id is empty"}
			}
			if qty <= 0 {
				return cur, &shop.ValidationError{Op: op, Field: "quantity", Reason: fmt.Sprintf("%d is not positive", qty)}
			}

			next := cur.Clone()
			if i, ok := next.Find(product.ID); ok {
				total := next.Items[i].Quantity + qty
				if err := checkStock(op, product.Stock, total); err != nil {
					return cur, err
				}
				next.Items[i].Quantity = total
				return next, nil
			}
			if err := checkStock(op, product.Stock, qty); err != nil {
				return cur, err
			}
			next.Items = append(next.Items, shop.LineItem{
				ProductID:         product.ID,
				SellerID:          product.SellerID,
				Name:              product.Name,
				Price:             product.Price,
				Quantity:          qty,
				AvailableQuantity: product.Stock,
				ImageURL:          product.ImageURL,
			})
			return next, nil
		},
		Commit: func(ctx context.Context, _ shop.Cart) (shop.Cart, error) {
			return s.remote.AddCartItem(ctx, product.ID, qty)
		},
	})
}

// SetQuantity sets the absolute quantity of a line. A quantity of zero or
// less removes the line.
func (s *Service) SetQuantity(ctx context.Context, productID string, qty int) *optimistic.Pending[shop.Cart] {
	if qty <= 0 {
		return s.Remove(ctx, productID)
	}

	const op = "set quantity"
	return s.pipe.Mutate(ctx, optimistic.Mutation[shop.Cart]{
		Name: op,
		Apply: func(cur shop.Cart) (shop.Cart, error) {
			i, ok := cur.Find(productID)
			if !ok {
				return cur, errors.Wrapf(optimistic.ErrUnchanged, "product %s not in cart", productID)
			}
			if cur.Items[i].Quantity == qty {
				return cur, optimistic.ErrUnchanged
			}
			if err := checkStock(op, cur.Items[i].AvailableQuantity, qty); err != nil {
				return cur, err
			}
			next := cur.Clone()
			next.Items[i].Quantity = qty
			return next, nil
		},
		Commit: func(ctx context.Context, _ shop.Cart) (shop.Cart, error) {
			return s.remote.UpsertCartItem(ctx, productID, qty)
		},
	})
}

// Increment changes a line's quantity by delta. Reaching zero removes it.
func (s *Service) Increment(ctx context.Context, productID string, delta int) *optimistic.Pending[shop.Cart] {
	cur := s.Current()
	i, ok := cur.Find(productID)
	if !ok {
		return optimistic.Resolved(cur, nil)
	}
	return s.SetQuantity(ctx, productID, cur.Items[i].Quantity+delta)
}

// Remove deletes a line. Removing an absent product does nothing.
func (s *Service) Remove(ctx context.Context, productID string) *optimistic.Pending[shop.Cart] {
	return s.pipe.Mutate(ctx, optimistic.Mutation[shop.Cart]{
		Name: "remove from cart",
		Apply: func(cur shop.Cart) (shop.Cart, error) {
			i, ok := cur.Find(productID)
			if !ok {
				return cur, errors.Wrapf(optimistic.ErrUnchanged, "product %s not in cart", productID)
			}
			next := cur.Clone()
			next.Items = append(next.Items[:i:i], next.Items[i+1:]...)
			return next, nil
		},
		Commit: func(ctx context.Context, _ shop.Cart) (shop.Cart, error) {
			cart, err := s.remote.DeleteCartItem(ctx, productID)
			if errors.Is(err, shop.ErrNotFound) {
				// Already gone on the server.
				return s.remote.ReadCart(ctx)
			}
			return cart, err
		},
	})
}

// Clear empties the cart with a single bulk delete.
func (s *Service) Clear(ctx context.Context) *optimistic.Pending[shop.Cart] {
	return s.pipe.Mutate(ctx, optimistic.Mutation[shop.Cart]{
		Name: "clear cart",
		Apply: func(cur shop.Cart) (shop.Cart, error) {
			if cur.IsEmpty() {
				return cur, optimistic.ErrUnchanged
			}
			return shop.Cart{UserID: cur.UserID}, nil
		},
		Commit: func(ctx context.Context, provisional shop.Cart) (shop.Cart, error) {
			if err := s.remote.ClearCart(ctx); err != nil {
				return shop.Cart{}, err
			}
			return provisional, nil
		},
	})
}

// Checkout places an order for the current cart. The cart store is only
// touched by the Clear that follows a successful checkout.
func (s *Service) Checkout(ctx context.Context) *optimistic.Pending[shop.Order] {
	if s.Current().IsEmpty() {
		return optimistic.Resolved[shop.Order](shop.Order{}, &shop.ValidationError{Op: "checkout", Field: "cart", Reason: "cart is empty"})
	}
	return optimistic.Go(func() (shop.Order, error) {
		order, err := s.remote.Checkout(ctx)
		if err != nil {
			s.lg.Warn("Checkout failed", zap.Error(err))
			return shop.Order{}, err
		}
		s.lg.Info("Order placed", zap.String("order_id", order.ID), zap.String("total", order.TotalPrice.String()))

		if err := s.Clear(ctx).Err(ctx); err != nil {
			s.lg.Warn("Clearing cart after checkout failed", zap.String("order_id", order.ID), zap.Error(err))
		}
		return order, nil
	})
}

// Reorder copies the items of a past order back into the cart and reloads
// the cart from the server.
func (s *Service) Reorder(ctx context.Context, orderID string) *optimistic.Pending[shop.Cart] {
	return optimistic.Go(func() (shop.Cart, error) {
		if _, err := s.remote.RedoToCart(ctx, orderID); err != nil {
			return shop.Cart{}, err
		}
		return s.pipe.Replace(ctx, "read cart", s.remote.ReadCart).Wait(ctx)
	})
}

func (s *Service) persist(cart shop.Cart) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.SaveCart(cart); err != nil {
		s.lg.Warn("Cart mirror write failed", zap.Error(err))
	}
}

// checkStock rejects quantities above a known stock level. A stock of zero
// means unknown.
func checkStock(op string, stock, qty int) error {
	if stock > 0 && qty > stock {
		return &shop.ValidationError{Op: op, Field: "quantity", Reason: fmt.Sprintf("only %d in stock", stock)}
	}
	return nil
}
