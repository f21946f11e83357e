package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/basket/internal/orders"
)

// chrome is the number of lines outside the content area: header, status
// line and command bar.
const chrome = 3

func (m Model) contentHeight() int {
	return max(3, m.height-chrome)
}

// renderHeader renders the logo, view tabs and sync info.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()

	cartTab := fmt.Sprintf("Cart (%d)", m.cartSnap.Count())
	ordersTab := fmt.Sprintf("Orders (%d)", len(m.orderList))
	if m.orders != nil && m.orders.Scope() == orders.Seller {
		ordersTab = fmt.Sprintf("Sales (%d)", len(m.orderList))
	}

	tabs := []string{styles.Tab.Render(cartTab), styles.Tab.Render(ordersTab)}
	tabs[m.currentView] = styles.TabOn.Render([]string{cartTab, ordersTab}[m.currentView])

	refresh := "refresh off"
	if m.interval > 0 {
		refresh = "refresh " + m.interval.String()
	}
	info := styles.MutedText.Render(fmt.Sprintf("updated %s  %s  %s",
		formatAge(m.lastUpdated, m.now), refresh, m.theme.Name))

	left := lipgloss.JoinHorizontal(lipgloss.Center,
		styles.Logo.Render("basket"), " ", strings.Join(tabs, " "))
	gap := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(info)-2)

	return styles.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + info)
}

// renderStatusLine shows the outcome of the last operation.
func (m Model) renderStatusLine() string {
	styles := m.theme.Styles()
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return styles.DangerText.Render(truncate(m.status, m.width))
	}
	return styles.SuccessText.Render(truncate(m.status, m.width))
}

// renderCommandBar lists the keys that apply to the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles()
	bindings := m.keys.cartHelp()
	if m.currentView == ViewOrders {
		bindings = m.keys.ordersHelp(m.orders != nil && m.orders.Scope() == orders.Seller)
	}
	return styles.Footer.Width(m.width).Render(m.help.ShortHelpView(bindings))
}
