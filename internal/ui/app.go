package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/five82/basket/internal/activity"
	"github.com/five82/basket/internal/cart"
	"github.com/five82/basket/internal/orders"
	"github.com/five82/basket/internal/search"
	"github.com/five82/basket/internal/shop"
)

// View represents the current active view.
type View int

const (
	ViewCart View = iota
	ViewOrders
)

// Options configures the UI.
type Options struct {
	Cart      *cart.Service
	Orders    *orders.Service
	Search    *search.Debouncer
	Errors    <-chan error
	Logger    *zap.Logger
	Interval  time.Duration // background refresh period, for display only
	LogPath   string        // source of the activity overlay
	ThemeName string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx      context.Context
	cart     *cart.Service
	orders   *orders.Service
	search   *search.Debouncer
	errs     <-chan error
	lg       *zap.Logger
	interval time.Duration
	logPath  string

	cartFeed   *feed
	ordersFeed *feed

	// UI state
	theme       Theme
	keys        keyMap
	help        help.Model
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool

	// Activity overlay
	showActivity bool
	activityLog  []activity.Entry

	// Data state
	cartSnap    shop.Cart
	orderList   []shop.Order
	lastUpdated time.Time
	now         time.Time

	// Selection
	cartRow  int
	orderRow int

	// Search
	input     textinput.Model
	searching bool

	// Status line
	status    string
	statusErr bool
}

// New creates a new Bubble Tea model subscribed to the cart and order stores.
// Call Close when the program exits.
func New(ctx context.Context, opts Options) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	lg := opts.Logger
	if lg == nil {
		lg = zap.NewNop()
	}
	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Nightfox"
	}

	input := textinput.New()
	input.Prompt = "/ "
	input.Placeholder = "search orders"
	input.CharLimit = 128

	m := Model{
		ctx:         ctx,
		cart:        opts.Cart,
		orders:      opts.Orders,
		search:      opts.Search,
		errs:        opts.Errors,
		lg:          lg,
		interval:    opts.Interval,
		logPath:     opts.LogPath,
		theme:       GetTheme(themeName),
		keys:        DefaultKeyMap(),
		help:        help.New(),
		currentView: ViewCart,
		input:       input,
		now:         time.Now(),
	}
	if m.cart != nil {
		m.cartSnap = m.cart.Current()
		m.cartFeed = subscribe(m.cart.Store(), func(c shop.Cart) tea.Msg { return cartMsg(c) })
	}
	if m.orders != nil {
		m.orderList = m.orders.Current()
		m.ordersFeed = subscribe(m.orders.Store(), func(o []shop.Order) tea.Msg { return ordersMsg(o) })
	}
	return m
}

// Close releases the store subscriptions.
func (m Model) Close() {
	m.cartFeed.close()
	m.ordersFeed.close()
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(), listenErrors(m.ctx, m.errs)}
	if m.cartFeed != nil {
		cmds = append(cmds, m.cartFeed.listen(m.ctx))
	}
	if m.ordersFeed != nil {
		cmds = append(cmds, m.ordersFeed.listen(m.ctx))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.input.Width = max(10, msg.Width-6)
		m.ready = true
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()

	case cartMsg:
		m.cartSnap = shop.Cart(msg)
		m.cartRow = clampRow(m.cartRow, len(m.cartSnap.Items))
		m.lastUpdated = time.Now()
		return m, m.cartFeed.listen(m.ctx)

	case ordersMsg:
		m.orderList = []shop.Order(msg)
		m.orderRow = clampRow(m.orderRow, len(m.orderList))
		m.lastUpdated = time.Now()
		return m, m.ordersFeed.listen(m.ctx)

	case backgroundErrMsg:
		m.setError(msg.err)
		return m, listenErrors(m.ctx, m.errs)

	case opResultMsg:
		m.handleResult(msg)
		return m, nil

	case activityMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.activityLog = msg.entries
		m.showActivity = true
		return m, nil

	case checkoutMsg:
		if msg.err != nil {
			m.handleResult(opResultMsg{op: "checkout", err: msg.err})
			return m, nil
		}
		m.setStatus("Order " + shortID(msg.order.ID) + " placed")
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.showActivity {
		return m.renderActivity()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}
	if m.showActivity {
		m.showActivity = false
		return m, nil
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.Activity):
		return m, loadActivity(m.logPath)

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		if m.currentView == ViewCart {
			m.currentView = ViewOrders
		} else {
			m.currentView = ViewCart
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.moveSelection(-len(m.orderList) - len(m.cartSnap.Items))
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.moveSelection(len(m.orderList) + len(m.cartSnap.Items))
		return m, nil
	}

	switch m.currentView {
	case ViewCart:
		return m.handleCartKey(msg)
	case ViewOrders:
		return m.handleOrdersKey(msg)
	}
	return m, nil
}

func (m *Model) moveSelection(delta int) {
	switch m.currentView {
	case ViewCart:
		m.cartRow = clampRow(m.cartRow+delta, len(m.cartSnap.Items))
	case ViewOrders:
		m.orderRow = clampRow(m.orderRow+delta, len(m.orderList))
	}
}

// handleResult updates the status line once an operation settles.
func (m *Model) handleResult(msg opResultMsg) {
	if msg.err == nil {
		m.lg.Debug("Operation confirmed", zap.String("op", msg.op))
		m.setStatus(opLabel(msg.op) + " confirmed")
		return
	}
	if errors.Is(msg.err, context.Canceled) {
		return
	}
	m.lg.Info("Operation failed", zap.String("op", msg.op), zap.Error(msg.err))
	m.setError(msg.err)
}

func (m *Model) setStatus(text string) {
	m.status = text
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = describeError(err)
	m.statusErr = true
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	content := m.renderCart()
	if m.currentView == ViewOrders {
		content = m.renderOrders()
	}
	b.WriteString(content)
	b.WriteString("\n")

	b.WriteString(m.renderStatusLine())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())

	return b.String()
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, opts Options) error {
	m := New(ctx, opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
