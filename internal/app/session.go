package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/basket/internal/cart"
	"github.com/five82/basket/internal/optimistic"
	"github.com/five82/basket/internal/orders"
	"github.com/five82/basket/internal/search"
	"github.com/five82/basket/internal/shop"
)

const errorBuffer = 16

// Session owns the stores and services for one run of basket.
type Session struct {
	Cart   *cart.Service
	Orders *orders.Service
	Search *search.Debouncer

	ctx  context.Context
	lg   *zap.Logger
	errs chan error
	wg   sync.WaitGroup
}

// NewSession wires the cart and order services to remote. Background calls
// started by the session use ctx.
func NewSession(ctx context.Context, remote shop.Remote, m cart.Mirror, scope orders.Scope, debounce time.Duration, lg *zap.Logger, opts ...search.Option) *Session {
	if lg == nil {
		lg = zap.NewNop()
	}
	s := &Session{
		Cart:   cart.NewService(remote, m, lg.Named("cart")),
		Orders: orders.NewService(remote, scope, lg.Named("orders")),
		ctx:    ctx,
		lg:     lg,
		errs:   make(chan error, errorBuffer),
	}
	opts = append([]search.Option{search.WithLogger(lg.Named("search"))}, opts...)
	s.Search = search.New(debounce, s.query, opts...)
	return s
}

// Start issues the initial cart load and the unfiltered order listing.
func (s *Session) Start() {
	watch(s, "load cart", s.Cart.Load(s.ctx))
	s.Search.Seed("")
}

// Errors delivers failures of background calls. Errors are dropped when
// nobody is reading.
func (s *Session) Errors() <-chan error {
	return s.errs
}

// Refresh re-runs the current order listing.
func (s *Session) Refresh(ctx context.Context) error {
	_, err := s.Orders.Refresh(ctx)
	return err
}

// Close stops the debouncer and waits for in-flight background work.
func (s *Session) Close() {
	s.Search.Stop()
	s.wg.Wait()
	s.Cart.Drain()
	s.Orders.Drain()
}

func (s *Session) query(term string) {
	watch(s, "query orders", s.Orders.Query(s.ctx, term))
}

func (s *Session) report(op string, err error) {
	s.lg.Warn("Background call failed", zap.String("op", op), zap.Error(err))
	select {
	case s.errs <- err:
	default:
		s.lg.Debug("Error channel full, dropping", zap.String("op", op))
	}
}

// watch reports the outcome of p once it settles.
func watch[T any](s *Session, op string, p *optimistic.Pending[T]) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := p.Err(context.Background()); err != nil {
			s.report(op, err)
		}
	}()
}
