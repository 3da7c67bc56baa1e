package ui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/washbook/internal/api"
	"github.com/five82/washbook/internal/flows"
	"github.com/five82/washbook/internal/prefs"
	"github.com/five82/washbook/internal/query"
	"github.com/five82/washbook/internal/state"
)

// Pane identifies the focused half of the screen.
type Pane int

const (
	PaneList Pane = iota
	PaneDetail
)

// SortMode orders the station list.
type SortMode int

const (
	SortByName SortMode = iota
	SortByDistance
)

// Options configures the UI.
type Options struct {
	Flows     *flows.Flows
	Stores    *state.Stores
	Cache     *query.Cache
	Prefs     prefs.Prefs
	PrefsPath string
	Logger    *slog.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	flows     *flows.Flows
	stores    *state.Stores
	cache     *query.Cache
	logger    *slog.Logger
	prefs     prefs.Prefs
	prefsPath string
	keys      keyMap
	events    *eventBridge
	now       func() time.Time

	// UI state
	theme       Theme
	width       int
	height      int
	ready       bool
	focusedPane Pane
	showHelp    bool
	modal       Modal
	errorMsg    string
	spinner     spinner.Model

	// Data state, re-read on every changedMsg
	session  state.Session
	location state.Location
	sync     state.Sync
	stations query.InfiniteResult[api.CarwashSummary]
	detail   detailSnapshot

	// List state
	selectedRow int
	sortMode    SortMode
	searching   bool
	searchInput textinput.Model
	searchQuery string

	detailViewport viewport.Model
}

// New creates the model and subscribes it to the stores and the station
// list. Call Close when the program ends.
func New(ctx context.Context, opts Options) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "name or address"
	ti.CharLimit = 64

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	m := Model{
		flows:       opts.Flows,
		stores:      opts.Stores,
		cache:       opts.Cache,
		logger:      logger,
		prefs:       opts.Prefs,
		prefsPath:   prefsPath,
		keys:        DefaultKeyMap(),
		events:      newEventBridge(ctx),
		now:         time.Now,
		theme:       GetTheme(opts.Prefs.Theme),
		focusedPane: PaneList,
		spinner:     sp,
		searchInput: ti,
	}

	m.events.watch(m.stores.Session.Subscribe(m.events.changed))
	m.events.watch(m.stores.Location.Subscribe(m.events.changed))
	m.events.watch(m.stores.Sync.Subscribe(m.events.changed))
	m.events.watch(m.flows.Catalog.Search().Subscribe(m.events.changed))
	m.refreshSnapshots()
	return m
}

// Close releases the subscriptions taken by New.
func (m Model) Close() {
	m.events.close()
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	search := m.flows.Catalog.Search()
	cmds := []tea.Cmd{
		m.events.wait(),
		m.spinner.Tick,
		clockCmd(),
		m.fetch("load stations", func(ctx context.Context) error {
			return search.Load(ctx).Err
		}),
		m.fetch("locate", func(ctx context.Context) error {
			m.stores.Location.EnsureLocation(ctx)
			return nil
		}),
	}
	if m.session.SignedIn() {
		cmds = append(cmds, m.fetch("load profile", func(ctx context.Context) error {
			return m.flows.Auth.Profile(ctx).Err
		}))
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
		m.ready = true
		m.resizeDetail()
		m.updateDetailViewport()
		return m, nil

	case changedMsg:
		m.refreshSnapshots()
		m.keepSelection()
		return m, tea.Batch(m.events.wait(), m.reloadInvalidated(), m.syncSelection())

	case prefsChangedMsg:
		m.prefs = prefs.Prefs(msg)
		m.theme = GetTheme(m.prefs.Theme)
		m.resizeDetail()
		m.updateDetailViewport()
		return m, m.events.wait()

	case locationSubmittedMsg:
		coords := [2]float64{msg.Latitude, msg.Longitude}
		return m, m.fetch("set location", func(ctx context.Context) error {
			return m.stores.Location.SetManualLocation(ctx, coords)
		})

	case fetchDoneMsg:
		if msg.err != nil {
			m.errorMsg = msg.label + ": " + api.Message(msg.err)
		} else if strings.HasPrefix(m.errorMsg, msg.label+":") {
			m.errorMsg = ""
		}
		return m, nil

	case clockMsg:
		return m, clockCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.detail.products.Status == query.StatusPending || m.detail.feedback.Status == query.StatusPending {
			m.updateDetailViewport()
		}
		return m, cmd
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
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderStations())
	return b.String()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		modal, cmd, done := m.modal.Update(msg, m.keys)
		if done {
			m.modal = nil
		} else {
			m.modal = modal
		}
		return m, cmd
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

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
			m.logger.Warn("save preferences failed", slog.String("error", err.Error()))
		}
		m.updateDetailViewport()
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		if m.focusedPane == PaneList {
			m.focusedPane = PaneDetail
		} else {
			m.focusedPane = PaneList
		}
		m.updateDetailViewport()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.searchQuery = ""
		m.searchInput.SetValue("")
		m.focusedPane = PaneList
		return m, m.syncSelection()

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.searchInput.SetValue(m.searchQuery)
		m.searchInput.CursorEnd()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.SetLocation):
		lat, lon, ok := m.location.Coordinates()
		m.modal = newLocationModal(lat, lon, ok)
		return m, nil

	case key.Matches(msg, m.keys.NextPage):
		return m, m.fetchNextPage()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()

	case key.Matches(msg, m.keys.ToggleSort):
		return m, m.toggleSort()
	}

	if m.focusedPane == PaneDetail {
		return m.handleDetailKey(msg)
	}
	return m.handleListKey(msg)
}

// handleListKey moves the selection. Reaching the last row loads the next
// page when there is one.
func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.rows()
	if len(rows) == 0 {
		return m, nil
	}
	half := max(m.listHeight()/2, 1)

	switch {
	case key.Matches(msg, m.keys.Down):
		m.selectedRow = min(m.selectedRow+1, len(rows)-1)
	case key.Matches(msg, m.keys.Up):
		m.selectedRow = max(m.selectedRow-1, 0)
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = len(rows) - 1
	case key.Matches(msg, m.keys.HalfPageDown):
		m.selectedRow = min(m.selectedRow+half, len(rows)-1)
	case key.Matches(msg, m.keys.HalfPageUp):
		m.selectedRow = max(m.selectedRow-half, 0)
	default:
		return m, nil
	}

	cmds := []tea.Cmd{m.syncSelection()}
	if m.selectedRow == len(rows)-1 && m.stations.HasNextPage() && m.searchQuery == "" {
		cmds = append(cmds, m.fetchNextPage())
	}
	return m, tea.Batch(cmds...)
}

// handleDetailKey scrolls the detail pane.
func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Down):
		m.detailViewport.ScrollDown(1)
	case key.Matches(msg, m.keys.Up):
		m.detailViewport.ScrollUp(1)
	case key.Matches(msg, m.keys.Top):
		m.detailViewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.detailViewport.GotoBottom()
	case key.Matches(msg, m.keys.HalfPageDown):
		m.detailViewport.HalfPageDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		m.detailViewport.HalfPageUp()
	}
	return m, nil
}

// handleSearchKey feeds the search input. The list filters as the user
// types; esc restores the previous query.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Escape):
		m.searching = false
		m.searchInput.Blur()
		m.searchQuery = ""
		m.searchInput.SetValue("")
		return m, m.syncSelection()
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.searchQuery = strings.TrimSpace(m.searchInput.Value())
	m.selectedRow = 0
	return m, tea.Batch(cmd, m.syncSelection())
}

func (m *Model) toggleSort() tea.Cmd {
	if m.sortMode == SortByName {
		m.sortMode = SortByDistance
	} else {
		m.sortMode = SortByName
	}
	m.keepSelection()
	cmds := []tea.Cmd{m.syncSelection()}
	if m.sortMode == SortByDistance {
		if _, _, ok := m.location.Coordinates(); !ok {
			cmds = append(cmds, m.fetch("locate", func(ctx context.Context) error {
				m.stores.Location.EnsureLocation(ctx)
				return nil
			}))
		}
	}
	return tea.Batch(cmds...)
}

func (m Model) fetchNextPage() tea.Cmd {
	search := m.flows.Catalog.Search()
	return m.fetch("load more", func(ctx context.Context) error {
		return search.FetchNextPage(ctx).Err
	})
}

// refresh drops cached station data and loads it again, including the
// open station's products and reviews.
func (m Model) refresh() tea.Cmd {
	catalog := m.flows.Catalog
	id := m.detail.id
	cmds := []tea.Cmd{
		m.fetch("refresh", func(ctx context.Context) error {
			if err := catalog.RefreshCarwashes(ctx).Err; err != nil {
				return err
			}
			return catalog.Search().Refetch(ctx).Err
		}),
	}
	if id != 0 {
		cmds = append(cmds, m.fetch("refresh station", func(ctx context.Context) error {
			m.cache.Invalidate(query.K("carwash", id))
			return errors.Join(catalog.Products(ctx, id).Err, catalog.Feedback(ctx, id).Err)
		}))
	}
	location := m.stores.Location
	cmds = append(cmds, m.fetch("locate", func(ctx context.Context) error {
		location.CurrentLocation(ctx)
		return nil
	}))
	return tea.Batch(cmds...)
}

// reloadInvalidated reloads the visible queries that someone invalidated,
// such as the poller or a booking. Failed entries stay as they are until
// the next explicit refresh.
func (m Model) reloadInvalidated() tea.Cmd {
	var cmds []tea.Cmd
	search := m.flows.Catalog.Search()
	if st := m.cache.Peek(search.Key()); st.Invalidated && st.Status == query.StatusSuccess {
		cmds = append(cmds, m.fetch("reload stations", func(ctx context.Context) error {
			return search.Load(ctx).Err
		}))
	}
	if id := m.detail.id; id != 0 {
		for _, k := range []query.Key{flows.KeyProducts(id), flows.KeyFeedback(id)} {
			if st := m.cache.Peek(k); st.Invalidated && st.Status == query.StatusSuccess {
				cmds = append(cmds, m.loadDetail(id))
				break
			}
		}
	}
	return tea.Batch(cmds...)
}

// refreshSnapshots re-reads every store and watched cache entry.
func (m *Model) refreshSnapshots() {
	m.session = m.stores.Session.Get()
	m.location = m.stores.Location.Get()
	m.sync = m.stores.Sync.Get()
	m.stations = m.flows.Catalog.Search().Result()
	if m.detail.id != 0 {
		m.detail = m.readDetail(m.detail.id)
	}
	m.updateDetailViewport()
}

// fetchDoneMsg reports the outcome of a command started by fetch.
type fetchDoneMsg struct {
	label string
	err   error
}

// fetch runs fn off the UI goroutine with a timeout. Results reach the
// model through the subscriptions; only the error travels back.
func (m Model) fetch(label string, fn func(ctx context.Context) error) tea.Cmd {
	parent := m.events.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, FetchTimeout)
		defer cancel()
		return fetchDoneMsg{label: label, err: fn(ctx)}
	}
}

type clockMsg time.Time

func clockCmd() tea.Cmd {
	return tea.Tick(ClockTick, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, opts Options) error {
	m := New(ctx, opts)
	defer m.Close()

	err := prefs.Watch(m.events.ctx, m.prefsPath, func(p prefs.Prefs) {
		m.events.send(prefsChangedMsg(p))
	})
	if err != nil {
		m.logger.Warn("preferences watch disabled", slog.String("error", err.Error()))
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}

// listHeight is the number of station rows that fit on screen.
func (m Model) listHeight() int {
	h := m.height - 2 // header + command bar
	if compactLayout(m.prefs.Layout, m.width) {
		h = h * 2 / 5
	}
	return max(h-2, 1) // borders
}
