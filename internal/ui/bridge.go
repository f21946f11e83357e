package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/basket/internal/optimistic"
	"github.com/five82/basket/internal/shop"
	"github.com/five82/basket/internal/state"
)

// Messages

type cartMsg shop.Cart

type ordersMsg []shop.Order

// backgroundErrMsg carries a failure of a call the UI did not start itself.
type backgroundErrMsg struct{ err error }

// opResultMsg reports how a user-initiated operation settled.
type opResultMsg struct {
	op  string
	err error
}

// feed forwards store publishes into the Bubble Tea loop. It buffers one
// message and a newer publish replaces an unread one, so a slow render never
// blocks the publisher and never shows anything older than the latest value.
type feed struct {
	ch  chan tea.Msg
	sub *state.Subscription
}

func subscribe[T any](store *state.Store[T], wrap func(T) tea.Msg) *feed {
	f := &feed{ch: make(chan tea.Msg, 1)}
	f.sub = store.Subscribe(func(v T) { f.offer(wrap(v)) })
	return f
}

func (f *feed) offer(msg tea.Msg) {
	for {
		select {
		case f.ch <- msg:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

// close stops delivery. Pending messages are dropped.
func (f *feed) close() {
	if f != nil {
		f.sub.Unsubscribe()
	}
}

// listen waits for the next message on f. The caller re-arms it after every
// message it receives.
func (f *feed) listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-f.ch:
			return msg
		case <-ctx.Done():
			return nil
		}
	}
}

func listenErrors(ctx context.Context, errs <-chan error) tea.Cmd {
	if errs == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			return backgroundErrMsg{err: err}
		case <-ctx.Done():
			return nil
		}
	}
}

// await turns a pending result into an opResultMsg once it settles.
func await[T any](ctx context.Context, op string, p *optimistic.Pending[T]) tea.Cmd {
	return func() tea.Msg {
		_, err := p.Wait(ctx)
		return opResultMsg{op: op, err: err}
	}
}
