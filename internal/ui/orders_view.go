package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/basket/internal/orders"
	"github.com/five82/basket/internal/shop"
)

// handleSearchKey feeds the search box. Every edit is pushed to the
// debouncer; the order listing follows once typing settles.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.searching = false
		m.input.Blur()
		if m.input.Value() != "" {
			m.input.SetValue("")
			m.pushSearch("")
		}
		return m, nil
	case tea.KeyEnter:
		m.searching = false
		m.input.Blur()
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.pushSearch(m.input.Value())
	}
	return m, cmd
}

func (m Model) pushSearch(term string) {
	if m.search != nil {
		m.search.Push(term)
	}
}

// handleOrdersKey processes keys for the order view.
func (m Model) handleOrdersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.orders == nil {
		return m, nil
	}

	if key.Matches(msg, m.keys.Search) {
		m.searching = true
		cmd := m.input.Focus()
		return m, cmd
	}
	if key.Matches(msg, m.keys.Refresh) {
		ctx, svc := m.ctx, m.orders
		return m, func() tea.Msg {
			_, err := svc.Refresh(ctx)
			return opResultMsg{op: "refresh orders", err: err}
		}
	}

	order, ok := m.selectedOrder()
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Confirm):
		return m, await(m.ctx, "reload order", m.orders.Get(m.ctx, order.ID))

	case key.Matches(msg, m.keys.Cancel):
		return m, await(m.ctx, "cancel order", m.orders.Cancel(m.ctx, order.ID))

	case key.Matches(msg, m.keys.Reorder):
		if m.cart == nil {
			return m, nil
		}
		return m, await(m.ctx, "reorder", m.cart.Reorder(m.ctx, order.ID))

	case key.Matches(msg, m.keys.AddToCart):
		if m.cart == nil || len(order.Items) == 0 {
			return m, nil
		}
		item := order.Items[0]
		product := shop.Product{
			ID:       item.ProductID,
			SellerID: item.SellerID,
			Name:     item.Name,
			Price:    item.UnitPrice,
			ImageURL: item.ImageURL,
		}
		return m, await(m.ctx, "add to cart", m.cart.Add(m.ctx, product, 1))

	case key.Matches(msg, m.keys.CycleStatus):
		if m.orders.Scope() != orders.Seller {
			return m, nil
		}
		item, ok := nextAdvanceable(order)
		if !ok {
			m.setStatus("Nothing left to advance on " + shortID(order.ID))
			return m, nil
		}
		return m, await(m.ctx, "update item status",
			m.orders.UpdateItemStatus(m.ctx, order.ID, item.ProductID, item.Status.Next()))
	}
	return m, nil
}

// nextAdvanceable returns the first item whose status can still move forward.
func nextAdvanceable(order shop.Order) (shop.OrderItem, bool) {
	for _, item := range order.Items {
		if item.Status.Next() != item.Status {
			return item, true
		}
	}
	return shop.OrderItem{}, false
}

func (m Model) selectedOrder() (shop.Order, bool) {
	if m.orderRow < 0 || m.orderRow >= len(m.orderList) {
		return shop.Order{}, false
	}
	return m.orderList[m.orderRow], true
}

// renderOrders renders the search box, the order list and the items of the
// selected order.
func (m Model) renderOrders() string {
	styles := m.theme.Styles()
	height := m.contentHeight()

	var b strings.Builder
	switch {
	case m.searching:
		b.WriteString(m.input.View())
	case m.orders != nil && m.orders.Term() != "":
		b.WriteString(styles.AccentText.Render("/ " + m.orders.Term()))
		b.WriteString(styles.MutedText.Render("  (/ to edit, esc in search clears)"))
	default:
		b.WriteString(styles.MutedText.Render("/ to search orders"))
	}
	b.WriteString("\n")

	if len(m.orderList) == 0 {
		b.WriteString(styles.MutedText.Render("No orders"))
		return lipgloss.NewStyle().Height(height).Render(b.String())
	}

	order, _ := m.selectedOrder()
	detailHeight := min(len(order.Items)+2, height/2)
	listHeight := max(1, height-detailHeight-1)

	first, last := visibleRange(m.orderRow, len(m.orderList), listHeight)
	for i := first; i < last; i++ {
		o := m.orderList[i]
		badge := styles.StatusStyle(o.Status).Render(fmt.Sprintf("%-9s", o.Status))
		row := fmt.Sprintf(" %-10s %s %3d items %12s  %s",
			shortID(o.ID),
			badge,
			len(o.Items),
			formatMoney(o.TotalPrice),
			formatDate(o.CreatedAt),
		)
		if i == m.orderRow {
			row = styles.Selected.Width(m.width).Render(row)
		}
		b.WriteString(row)
		b.WriteString("\n")
	}

	b.WriteString(m.renderOrderItems(order, styles))
	return lipgloss.NewStyle().Height(height).Render(b.String())
}

func (m Model) renderOrderItems(order shop.Order, styles Styles) string {
	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render("Order " + shortID(order.ID)))
	if order.PaymentMode != "" {
		b.WriteString(styles.MutedText.Render("  " + order.PaymentMode))
	}
	b.WriteString("\n")

	nameWidth := max(12, m.width-44)
	for _, item := range order.Items {
		b.WriteString(fmt.Sprintf("  %-*s %3d x %10s  ",
			nameWidth, truncate(item.Name, nameWidth),
			item.Quantity,
			formatMoney(item.UnitPrice),
		))
		b.WriteString(styles.StatusStyle(item.Status).Render(string(item.Status)))
		b.WriteString("\n")
	}
	return b.String()
}
