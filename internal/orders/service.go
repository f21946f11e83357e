package orders

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/five82/basket/internal/optimistic"
	"github.com/five82/basket/internal/shop"
	"github.com/five82/basket/internal/state"
)

// Scope selects which order listing the service projects.
type Scope int

const (
	// Buyer lists the orders placed by the current user.
	Buyer Scope = iota
	// Seller lists orders containing the current user's products.
	Seller
)

func (s Scope) String() string {
	if s == Seller {
		return "seller"
	}
	return "buyer"
}

// Remote is the part of the shop API the order views need.
type Remote interface {
	ReadOrders(ctx context.Context) ([]shop.Order, error)
	SearchOrders(ctx context.Context, term string) ([]shop.Order, error)
	ReadSellerOrders(ctx context.Context) ([]shop.Order, error)
	SearchSellerOrders(ctx context.Context, term string) ([]shop.Order, error)
	GetOrder(ctx context.Context, orderID string) (shop.Order, error)
	CancelOrder(ctx context.Context, orderID string) (shop.Order, error)
	UpdateOrderItemStatus(ctx context.Context, orderID, productID string, status shop.OrderStatus) (shop.Order, error)
}

// Service owns the projected order list for one scope.
type Service struct {
	remote Remote
	scope  Scope
	pipe   *optimistic.Pipeline[[]shop.Order]
	lg     *zap.Logger

	refresh singleflight.Group

	mu   sync.Mutex
	term string
}

// NewService builds an order service with an empty list.
func NewService(remote Remote, scope Scope, lg *zap.Logger) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}
	lg = lg.With(zap.Stringer("scope", scope))
	store := state.NewStore[[]shop.Order](nil, shop.CloneOrders)
	return &Service{
		remote: remote,
		scope:  scope,
		pipe:   optimistic.New(store, lg, nil),
		lg:     lg,
	}
}

// Store exposes the order list store for subscribers.
func (s *Service) Store() *state.Store[[]shop.Order] {
	return s.pipe.Store()
}

// Current returns the displayed order list.
func (s *Service) Current() []shop.Order {
	return s.pipe.Store().Current()
}

// Scope reports which listing the service projects.
func (s *Service) Scope() Scope {
	return s.scope
}

// Term returns the filter of the most recent listing request.
func (s *Service) Term() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.term
}

// Drain waits for every in-flight order call to be reconciled.
func (s *Service) Drain() {
	s.pipe.Drain()
}

// Load replaces the projection with the unfiltered listing.
func (s *Service) Load(ctx context.Context) *optimistic.Pending[[]shop.Order] {
	s.setTerm("")
	if s.scope == Seller {
		return s.pipe.Replace(ctx, "read seller orders", s.remote.ReadSellerOrders)
	}
	return s.pipe.Replace(ctx, "read orders", s.remote.ReadOrders)
}

// Search replaces the projection with the orders matching term. An empty
// term is the unfiltered listing.
func (s *Service) Search(ctx context.Context, term string) *optimistic.Pending[[]shop.Order] {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.Load(ctx)
	}
	s.setTerm(term)

	search := s.remote.SearchOrders
	name := "search orders"
	if s.scope == Seller {
		search = s.remote.SearchSellerOrders
		name = "search seller orders"
	}
	return s.pipe.Replace(ctx, name, func(ctx context.Context) ([]shop.Order, error) {
		return search(ctx, term)
	})
}

// Query handles one effective search event: one remote read per call.
func (s *Service) Query(ctx context.Context, term string) *optimistic.Pending[[]shop.Order] {
	s.lg.Debug("Order query", zap.String("term", term))
	return s.Search(ctx, term)
}

// Refresh re-runs the current listing. Overlapping refreshes share one call.
func (s *Service) Refresh(ctx context.Context) ([]shop.Order, error) {
	v, err, shared := s.refresh.Do("refresh", func() (any, error) {
		return s.Search(ctx, s.Term()).Wait(ctx)
	})
	if shared {
		s.lg.Debug("Refresh joined in-flight call")
	}
	if err != nil {
		return nil, err
	}
	return shop.CloneOrders(v.([]shop.Order)), nil
}

// Get fetches one order and merges it into the projection.
func (s *Service) Get(ctx context.Context, orderID string) *optimistic.Pending[shop.Order] {
	return optimistic.Go(func() (shop.Order, error) {
		order, err := s.remote.GetOrder(ctx, orderID)
		if err != nil {
			return shop.Order{}, err
		}
		_, err = s.pipe.Replace(ctx, "get order", func(context.Context) ([]shop.Order, error) {
			return shop.ReplaceOrder(s.Current(), order), nil
		}).Wait(ctx)
		return order, err
	})
}

// Cancel marks a pending order and all of its items cancelled. Unknown
// orders are ignored.
func (s *Service) Cancel(ctx context.Context, orderID string) *optimistic.Pending[[]shop.Order] {
	const op = "cancel order"
	return s.pipe.Mutate(ctx, optimistic.Mutation[[]shop.Order]{
		Name: op,
		Apply: func(cur []shop.Order) ([]shop.Order, error) {
			i, ok := shop.FindOrder(cur, orderID)
			if !ok {
				return cur, errors.Wrapf(optimistic.ErrUnchanged, "order %s not listed", orderID)
			}
			if !cur[i].Cancellable() {
				return cur, &shop.ValidationError{Op: op, Field: "status", Reason: fmt.Sprintf("order is %s", cur[i].Status)}
			}
			next := shop.CloneOrders(cur)
			next[i].Status = shop.StatusCancelled
			for j := range next[i].Items {
				next[i].Items[j].Status = shop.StatusCancelled
			}
			return next, nil
		},
		Commit: func(ctx context.Context, _ []shop.Order) ([]shop.Order, error) {
			order, err := s.remote.CancelOrder(ctx, orderID)
			if err != nil {
				return nil, err
			}
			s.lg.Info("Order cancelled", zap.String("order_id", orderID))
			return mergeListed(s.Current(), order), nil
		},
	})
}

// UpdateItemStatus moves one item of an order to status and recomputes the
// order status. Only sellers may do this.
func (s *Service) UpdateItemStatus(ctx context.Context, orderID, productID string, status shop.OrderStatus) *optimistic.Pending[[]shop.Order] {
	const op = "update item status"
	return s.pipe.Mutate(ctx, optimistic.Mutation[[]shop.Order]{
		Name: op,
		Apply: func(cur []shop.Order) ([]shop.Order, error) {
			if s.scope != Seller {
				return cur, &shop.ValidationError{Op: op, Field: "scope", Reason: "only sellers update item status"}
			}
			if !status.Valid() {
				return cur, &shop.ValidationError{Op: op, Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
			}
			i, ok := shop.FindOrder(cur, orderID)
			if !ok {
				return cur, errors.Wrapf(optimistic.ErrUnchanged, "order %s not listed", orderID)
			}
			j, ok := cur[i].FindItem(productID)
			if !ok {
				return cur, errors.Wrapf(optimistic.ErrUnchanged, "product %s not in order %s", productID, orderID)
			}
			item := cur[i].Items[j]
			if item.Status == status {
				return cur, optimistic.ErrUnchanged
			}
			if item.Status == shop.StatusCancelled {
				return cur, &shop.ValidationError{Op: op, Field: "status", Reason: "item is cancelled"}
			}

			next := shop.CloneOrders(cur)
			next[i].Items[j].Status = status
			next[i].Status = next[i].DeriveStatus()
			return next, nil
		},
		Commit: func(ctx context.Context, _ []shop.Order) ([]shop.Order, error) {
			order, err := s.remote.UpdateOrderItemStatus(ctx, orderID, productID, status)
			if err != nil {
				return nil, err
			}
			s.lg.Info("Order item status updated",
				zap.String("order_id", orderID),
				zap.String("product_id", productID),
				zap.String("status", string(status)),
			)
			return mergeListed(s.Current(), order), nil
		},
	})
}

func (s *Service) setTerm(term string) {
	s.mu.Lock()
	s.term = term
	s.mu.Unlock()
}

// mergeListed replaces order in list when it is listed. An order that has
// dropped out of the projection in the meantime is not re-added.
func mergeListed(list []shop.Order, order shop.Order) []shop.Order {
	if _, ok := shop.FindOrder(list, order.ID); !ok {
		return list
	}
	return shop.ReplaceOrder(list, order)
}
