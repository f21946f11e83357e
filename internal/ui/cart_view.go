package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/basket/internal/shop"
)

type checkoutMsg struct {
	order shop.Order
	err   error
}

// handleCartKey processes keys for the cart view.
func (m Model) handleCartKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.cart == nil {
		return m, nil
	}
	line, hasLine := m.selectedLine()

	switch {
	case key.Matches(msg, m.keys.Increment):
		if !hasLine {
			return m, nil
		}
		return m, await(m.ctx, "set quantity", m.cart.Increment(m.ctx, line.ProductID, 1))

	case key.Matches(msg, m.keys.Decrement):
		if !hasLine {
			return m, nil
		}
		return m, await(m.ctx, "set quantity", m.cart.Increment(m.ctx, line.ProductID, -1))

	case key.Matches(msg, m.keys.Remove):
		if !hasLine {
			return m, nil
		}
		return m, await(m.ctx, "remove from cart", m.cart.Remove(m.ctx, line.ProductID))

	case key.Matches(msg, m.keys.Clear):
		return m, await(m.ctx, "clear cart", m.cart.Clear(m.ctx))

	case key.Matches(msg, m.keys.Checkout):
		m.setStatus("Placing order...")
		pending := m.cart.Checkout(m.ctx)
		ctx := m.ctx
		return m, func() tea.Msg {
			order, err := pending.Wait(ctx)
			return checkoutMsg{order: order, err: err}
		}
	}
	return m, nil
}

func (m Model) selectedLine() (shop.LineItem, bool) {
	if m.cartRow < 0 || m.cartRow >= len(m.cartSnap.Items) {
		return shop.LineItem{}, false
	}
	return m.cartSnap.Items[m.cartRow], true
}

// renderCart renders the cart lines and the total.
func (m Model) renderCart() string {
	styles := m.theme.Styles()
	height := m.contentHeight()

	if m.cartSnap.IsEmpty() {
		empty := styles.MutedText.Render("Cart is empty. Press tab and a on an order to add its first item.")
		return lipgloss.NewStyle().Height(height).Render(empty)
	}

	nameWidth := max(12, m.width-40)
	var b strings.Builder
	b.WriteString(styles.MutedText.Render(fmt.Sprintf("  %-*s %10s %5s %12s", nameWidth, "Item", "Price", "Qty", "Subtotal")))
	b.WriteString("\n")

	first, last := visibleRange(m.cartRow, len(m.cartSnap.Items), height-3)
	for i := first; i < last; i++ {
		item := m.cartSnap.Items[i]
		row := fmt.Sprintf("  %-*s %10s %5d %12s",
			nameWidth, truncate(item.Name, nameWidth),
			formatMoney(item.Price),
			item.Quantity,
			formatMoney(item.Subtotal()),
		)
		if i == m.cartRow {
			row = styles.Selected.Width(m.width).Render(row)
		} else {
			row = styles.Text.Render(row)
		}
		b.WriteString(row)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	total := fmt.Sprintf("%d items  Total %s", m.cartSnap.Count(), formatMoney(m.cartSnap.Total()))
	b.WriteString(styles.SuccessText.Render("  " + total))

	return lipgloss.NewStyle().Height(height).Render(b.String())
}
