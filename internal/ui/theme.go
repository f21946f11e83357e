package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/basket/internal/shop"
)

// Theme defines colors for the UI.
type Theme struct {
	Name string

	Background  string
	Surface     string
	SelectionBg string
	Border      string

	Text    string
	Muted   string
	Accent  string
	Success string
	Warning string
	Danger  string

	StatusColors map[shop.OrderStatus]string
}

// Styles contains pre-built Lipgloss styles for a theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style

	Header   lipgloss.Style
	Footer   lipgloss.Style
	Logo     lipgloss.Style
	Selected lipgloss.Style
	Tab      lipgloss.Style
	TabOn    lipgloss.Style
	Panel    lipgloss.Style

	statusColors map[shop.OrderStatus]string
	background   string
	muted        string
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		MutedText:   lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		AccentText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent)),
		SuccessText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Success)).Bold(true),
		WarningText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		DangerText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Danger)).Bold(true),

		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),
		Footer: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Muted)).
			Padding(0, 1),
		Logo: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Warning)).
			Bold(true),
		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SelectionBg)).
			Foreground(lipgloss.Color(t.Text)),
		Tab: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Muted)).
			Padding(0, 1),
		TabOn: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Background)).
			Background(lipgloss.Color(t.Accent)).
			Bold(true).
			Padding(0, 1),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(t.Border)).
			Padding(0, 1),

		statusColors: t.StatusColors,
		background:   t.Background,
		muted:        t.Muted,
	}
}

// StatusStyle returns a badge style for an order status.
func (s Styles) StatusStyle(status shop.OrderStatus) lipgloss.Style {
	color := s.statusColors[status]
	if color == "" {
		color = s.muted
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.background)).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

var themes = map[string]Theme{
	"Nightfox": nightfoxTheme(),
	"Kanagawa": kanagawaTheme(),
	"Slate":    slateTheme(),
}

var themeOrder = []string{"Nightfox", "Kanagawa", "Slate"}

// GetTheme returns a theme by name, falling back to Nightfox.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return nightfoxTheme()
}

// NextTheme returns the next theme name in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

func nightfoxTheme() Theme {
	// https://github.com/EdenEast/nightfox.nvim
	return Theme{
		Name:        "Nightfox",
		Background:  "#131a24",
		Surface:     "#192330",
		SelectionBg: "#2b3b51",
		Border:      "#39506d",
		Text:        "#cdcecf",
		Muted:       "#738091",
		Accent:      "#719cd6",
		Success:     "#81b29a",
		Warning:     "#dbc074",
		Danger:      "#c94f6d",
		StatusColors: map[shop.OrderStatus]string{
			shop.StatusPending:   "#738091",
			shop.StatusConfirmed: "#63cdcf",
			shop.StatusShipped:   "#719cd6",
			shop.StatusDelivered: "#81b29a",
			shop.StatusCancelled: "#c94f6d",
		},
	}
}

func kanagawaTheme() Theme {
	// https://github.com/rebelot/kanagawa.nvim
	return Theme{
		Name:        "Kanagawa",
		Background:  "#16161D",
		Surface:     "#1F1F28",
		SelectionBg: "#2D4F67",
		Border:      "#54546D",
		Text:        "#DCD7BA",
		Muted:       "#C8C093",
		Accent:      "#7E9CD8",
		Success:     "#98BB6C",
		Warning:     "#E6C384",
		Danger:      "#E46876",
		StatusColors: map[shop.OrderStatus]string{
			shop.StatusPending:   "#727169",
			shop.StatusConfirmed: "#7FB4CA",
			shop.StatusShipped:   "#957FB8",
			shop.StatusDelivered: "#98BB6C",
			shop.StatusCancelled: "#E46876",
		},
	}
}

func slateTheme() Theme {
	// Tailwind CSS slate/sky palette
	return Theme{
		Name:        "Slate",
		Background:  "#020617",
		Surface:     "#0f172a",
		SelectionBg: "#0284c7",
		Border:      "#334155",
		Text:        "#f1f5f9",
		Muted:       "#94a3b8",
		Accent:      "#38bdf8",
		Success:     "#22c55e",
		Warning:     "#f59e0b",
		Danger:      "#ef4444",
		StatusColors: map[shop.OrderStatus]string{
			shop.StatusPending:   "#64748b",
			shop.StatusConfirmed: "#06b6d4",
			shop.StatusShipped:   "#0ea5e9",
			shop.StatusDelivered: "#16a34a",
			shop.StatusCancelled: "#dc2626",
		},
	}
}
