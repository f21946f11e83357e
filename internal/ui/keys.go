package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	Refresh    key.Binding
	Activity   key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	// Cart
	Increment key.Binding
	Decrement key.Binding
	Remove    key.Binding
	Clear     key.Binding
	Checkout  key.Binding

	// Orders
	Search      key.Binding
	Escape      key.Binding
	Confirm     key.Binding
	Cancel      key.Binding
	Reorder     key.Binding
	AddToCart   key.Binding
	CycleStatus key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Cart/Orders"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Refresh"),
		),

		Activity: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Recent activity"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),

		Increment: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "Quantity +1"),
		),
		Decrement: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "Quantity -1"),
		),
		Remove: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "Remove line"),
		),
		Clear: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Clear cart"),
		),
		Checkout: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Checkout"),
		),

		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search orders"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Leave search"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Reload order"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Cancel order"),
		),
		Reorder: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Reorder to cart"),
		),
		AddToCart: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Add first item to cart"),
		),
		CycleStatus: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Advance item status"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Up, k.Down, k.Top, k.Bottom},
		{k.Increment, k.Decrement, k.Remove, k.Clear, k.Checkout},
		{k.Search, k.Escape, k.Confirm, k.Cancel, k.Reorder, k.AddToCart, k.CycleStatus},
		{k.Refresh, k.Activity, k.CycleTheme, k.Help, k.Quit},
	}
}

// cartHelp and ordersHelp feed the command bar.
func (k keyMap) cartHelp() []key.Binding {
	return []key.Binding{k.Increment, k.Decrement, k.Remove, k.Clear, k.Checkout, k.Tab, k.Help}
}

func (k keyMap) ordersHelp(seller bool) []key.Binding {
	bindings := []key.Binding{k.Search, k.Cancel, k.Reorder, k.AddToCart}
	if seller {
		bindings = append(bindings, k.CycleStatus)
	}
	return append(bindings, k.Refresh, k.Tab, k.Help)
}
