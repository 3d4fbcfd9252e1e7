// Package monitor implements the live dtf dashboard: forwarded autofill
// events, the request blocking pane and the bounce tracking mitigations view.
package monitor

import (
	"context"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/marcus/dtf/internal/autofill"
	"github.com/marcus/dtf/internal/bouncetracking"
	"github.com/marcus/dtf/internal/models"
	"github.com/marcus/dtf/internal/network"
	"github.com/marcus/dtf/internal/targets"
	"github.com/marcus/dtf/pkg/monitor/keymap"
)

// Model is the main Bubble Tea model for the dashboard
type Model struct {
	deps   Deps
	keymap *keymap.Registry

	// Window dimensions
	Width  int
	Height int

	// Panel data
	Events          []models.AddressFormFilledEvent // newest first
	Rows            []network.Row
	BlockedURLs     []string
	BlockingEnabled bool
	Scope           targets.Target // zero when nothing is in scope
	bounceTable     table.Model
	BounceRuns      int // runs completed since the dashboard started
	LastBounceRun   models.BounceRun

	// Filter state
	Filtering   bool
	filterInput textinput.Model
	filtered    []int // indices into Events; nil when no filter is set

	// UI state
	ActivePanel Panel
	Cursor      map[Panel]int
	ShowHelp    bool
	Status      string
	Err         error
	LastRefresh time.Time

	RefreshInterval time.Duration
}

// NewModel creates a dashboard over deps
func NewModel(deps Deps) Model {
	km := deps.Keymap
	if km == nil {
		km = keymap.NewRegistry()
		keymap.RegisterDefaults(km)
	}
	interval := deps.Interval
	if interval <= 0 {
		interval = time.Second
	}

	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "filter autofill events"
	ti.CharLimit = 128

	m := Model{
		deps:            deps,
		keymap:          km,
		Events:          append([]models.AddressFormFilledEvent(nil), deps.History...),
		filterInput:     ti,
		Cursor:          make(map[Panel]int),
		RefreshInterval: interval,
		bounceTable: table.New(
			table.WithColumns([]table.Column{{Title: bouncetracking.DeletedSitesColumn, Width: 40}}),
			table.WithHeight(5),
		),
	}
	if len(m.Events) > maxEvents {
		m.Events = m.Events[:maxEvents]
	}
	m.refresh()
	return m
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForAutofill(), m.waitForScope(), m.waitForBounceRun(), m.scheduleTick())
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.bounceTable.SetWidth(max(msg.Width-6, 10))
		m.bounceTable.SetColumns([]table.Column{{Title: bouncetracking.DeletedSitesColumn, Width: max(msg.Width-10, 10)}})
		return m, nil

	case TickMsg:
		m.refresh()
		return m, m.scheduleTick()

	case PaneUpdatedMsg:
		m.refresh()
		return m, nil

	case AutofillMsg:
		m.addEvent(models.AddressFormFilledEvent(msg))
		return m, m.waitForAutofill()

	case autofillClosedMsg, scopeClosedMsg, bounceRunsClosedMsg:
		return m, nil

	case ScopeChangedMsg:
		m.setScope(msg.Current)
		m.refresh()
		return m, m.waitForScope()

	case BounceRanMsg:
		m.BounceRuns++
		m.LastBounceRun = models.BounceRun(msg)
		m.refresh()
		return m, m.waitForBounceRun()

	case BlockingChangedMsg:
		m.Err = msg.Err
		if msg.Err == nil {
			m.Status = "Blocked patterns applied"
		}
		m.refresh()
		return m, nil

	case BounceRunMsg:
		m.Err = msg.Err
		if msg.Err == nil {
			m.Status = "Mitigations ran"
		}
		m.refresh()
		return m, nil

	case ShowViewMsg:
		if msg.ViewID == autofill.ViewID {
			m.ActivePanel = PanelAutofill
		}
		return m, nil

	case ConfigReloadedMsg:
		cmd := m.applyConfig(msg.Config)
		return m, cmd
	}

	return m, nil
}

// handleKey processes key input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.Filtering {
		// Printable keys always go to the input.
		if !keymap.IsPrintable(msg) {
			if cmd, ok := m.keymap.Lookup(msg, keymap.ContextFilter); ok {
				return m.executeCommand(cmd)
			}
		}
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.setFilter(m.filterInput.Value())
		return m, cmd
	}

	ctx := keymap.ContextMain
	if m.ShowHelp {
		ctx = keymap.ContextHelp
	}
	cmd, ok := m.keymap.Lookup(msg, ctx)
	if !ok {
		return m, nil
	}
	return m.executeCommand(cmd)
}

// executeCommand runs a keymap command
func (m Model) executeCommand(cmd keymap.Command) (tea.Model, tea.Cmd) {
	switch cmd {
	case keymap.CmdQuit:
		return m, tea.Quit

	case keymap.CmdToggleHelp:
		m.ShowHelp = !m.ShowHelp

	case keymap.CmdRefresh:
		m.refresh()

	case keymap.CmdNextPanel:
		m.ActivePanel = (m.ActivePanel + 1) % panelCount
	case keymap.CmdPrevPanel:
		m.ActivePanel = (m.ActivePanel + panelCount - 1) % panelCount
	case keymap.CmdPanelOne:
		m.ActivePanel = PanelAutofill
	case keymap.CmdPanelTwo:
		m.ActivePanel = PanelBlocking
	case keymap.CmdPanelThree:
		m.ActivePanel = PanelBounce

	case keymap.CmdCursorDown:
		m.moveCursor(1)
	case keymap.CmdCursorUp:
		m.moveCursor(-1)
	case keymap.CmdCursorTop:
		m.moveCursor(-m.rowCount(m.ActivePanel))
	case keymap.CmdCursorBottom:
		m.moveCursor(m.rowCount(m.ActivePanel))

	case keymap.CmdTogglePattern:
		if pattern, ok := m.selectedPattern(); ok {
			if _, err := m.deps.Blocking.Toggle(pattern); err != nil {
				m.Err = err
				return m, nil
			}
			cmd := m.persistBlocking()
			return m, cmd
		}
	case keymap.CmdRemovePattern:
		if pattern, ok := m.selectedPattern(); ok {
			if err := m.deps.Blocking.Remove(pattern); err != nil {
				m.Err = err
				return m, nil
			}
			cmd := m.persistBlocking()
			return m, cmd
		}
	case keymap.CmdToggleBlocking:
		if m.deps.Blocking != nil {
			m.deps.Blocking.SetEnabled(!m.deps.Blocking.Enabled())
			cmd := m.persistBlocking()
			return m, cmd
		}
	case keymap.CmdClearLog:
		if m.deps.ClearLog != nil {
			m.deps.ClearLog()
			m.Status = "Log cleared"
		}

	case keymap.CmdForceRun:
		cmd := m.forceRun()
		return m, cmd

	case keymap.CmdFilter:
		m.Filtering = true
		m.ActivePanel = PanelAutofill
		cmd := m.filterInput.Focus()
		return m, cmd
	case keymap.CmdFilterConfirm:
		m.Filtering = false
		m.filterInput.Blur()
	case keymap.CmdFilterCancel, keymap.CmdFilterClear:
		m.Filtering = false
		m.filterInput.Blur()
		m.filterInput.SetValue("")
		m.setFilter("")
	}
	m.clampCursor(m.ActivePanel)
	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	return m.renderView()
}

// scheduleTick returns a command that sends a TickMsg after the refresh interval
func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.RefreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// waitForAutofill returns a command that delivers the next forwarded event
func (m Model) waitForAutofill() tea.Cmd {
	ch := m.deps.Autofill
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return autofillClosedMsg{}
		}
		return AutofillMsg(ev)
	}
}

// waitForScope returns a command that delivers the next scope change
func (m Model) waitForScope() tea.Cmd {
	ch := m.deps.Scope
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return scopeClosedMsg{}
		}
		return ScopeChangedMsg(c)
	}
}

// waitForBounceRun returns a command that delivers the next mitigations run
func (m Model) waitForBounceRun() tea.Cmd {
	ch := m.deps.BounceRuns
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return bounceRunsClosedMsg{}
		}
		return BounceRanMsg(r)
	}
}

// setScope looks up the details of the target now in scope
func (m *Model) setScope(id string) {
	m.Scope = targets.Target{ID: id}
	if id == "" || m.deps.Targets == nil {
		return
	}
	if t, ok := m.deps.Targets.Get(id); ok {
		m.Scope = t
	}
}

// refresh re-reads the pane rows and bounce state
func (m *Model) refresh() {
	if m.deps.Pane != nil {
		m.Rows = m.deps.Pane.Rows()
		m.BlockedURLs = m.deps.Pane.BlockedURLs()
	}
	if m.deps.Targets != nil && m.Scope.ID != m.deps.Targets.ScopeTarget() {
		m.setScope(m.deps.Targets.ScopeTarget())
	}
	if m.deps.Blocking != nil {
		m.BlockingEnabled = m.deps.Blocking.Enabled()
	}
	if m.deps.Bounce != nil {
		raw := m.deps.Bounce.Rows()
		rows := make([]table.Row, len(raw))
		for i, r := range raw {
			rows[i] = table.Row(r)
		}
		m.bounceTable.SetRows(rows)
	}
	m.LastRefresh = time.Now()
	m.clampCursor(m.ActivePanel)
}

func (m *Model) addEvent(ev models.AddressFormFilledEvent) {
	m.Events = append([]models.AddressFormFilledEvent{ev}, m.Events...)
	if len(m.Events) > maxEvents {
		m.Events = m.Events[:maxEvents]
	}
	m.setFilter(m.filterInput.Value())
}

func (m *Model) setFilter(query string) {
	m.filtered = filterEvents(m.Events, query)
	m.clampCursor(PanelAutofill)
}

// visibleEvents returns the events shown in the autofill panel
func (m Model) visibleEvents() []models.AddressFormFilledEvent {
	if m.filterInput.Value() == "" {
		return m.Events
	}
	out := make([]models.AddressFormFilledEvent, len(m.filtered))
	for i, idx := range m.filtered {
		out[i] = m.Events[idx]
	}
	return out
}

// selectedEvent returns the event under the autofill cursor
func (m Model) selectedEvent() (models.AddressFormFilledEvent, bool) {
	events := m.visibleEvents()
	c := m.Cursor[PanelAutofill]
	if c < 0 || c >= len(events) {
		return models.AddressFormFilledEvent{}, false
	}
	return events[c], true
}

// urlsBlockedBy returns the blocked URLs that pattern matched
func (m Model) urlsBlockedBy(pattern string) []string {
	var urls []string
	for _, u := range m.BlockedURLs {
		if network.MatchPattern(pattern, u) {
			urls = append(urls, u)
		}
	}
	return urls
}

func (m Model) selectedPattern() (string, bool) {
	if m.ActivePanel != PanelBlocking || m.deps.Blocking == nil {
		return "", false
	}
	c := m.Cursor[PanelBlocking]
	if c < 0 || c >= len(m.Rows) {
		return "", false
	}
	return m.Rows[c].Pattern, true
}

// rowCount returns the number of selectable rows in a panel
func (m Model) rowCount(p Panel) int {
	switch p {
	case PanelAutofill:
		return len(m.visibleEvents())
	case PanelBlocking:
		return len(m.Rows)
	case PanelBounce:
		return len(m.bounceTable.Rows())
	}
	return 0
}

func (m *Model) moveCursor(delta int) {
	m.Cursor[m.ActivePanel] += delta
	m.clampCursor(m.ActivePanel)
	if m.ActivePanel == PanelBounce {
		m.bounceTable.SetCursor(m.Cursor[PanelBounce])
	}
}

// clampCursor keeps the cursor of p within its rows
func (m *Model) clampCursor(p Panel) {
	n := m.rowCount(p)
	c := m.Cursor[p]
	if c >= n {
		c = n - 1
	}
	if c < 0 {
		c = 0
	}
	m.Cursor[p] = c
}

// persistBlocking saves the current patterns and pushes them to the browser
func (m *Model) persistBlocking() tea.Cmd {
	patterns := m.deps.Blocking.Patterns()
	enabled := m.deps.Blocking.Enabled()
	save, apply := m.deps.SaveBlocking, m.deps.ApplyBlocking
	return func() tea.Msg {
		if save != nil {
			if err := save(patterns, enabled); err != nil {
				return BlockingChangedMsg{Err: err}
			}
		}
		if apply != nil {
			return BlockingChangedMsg{Err: apply()}
		}
		return BlockingChangedMsg{}
	}
}

// applyConfig adopts blocking settings edited outside the dashboard
func (m *Model) applyConfig(cfg *models.Config) tea.Cmd {
	b := m.deps.Blocking
	if cfg == nil || b == nil {
		return nil
	}
	if slices.Equal(b.Patterns(), cfg.BlockedPatterns) && b.Enabled() == cfg.RequestBlockingEnabled {
		return nil
	}
	b.SetPatterns(cfg.BlockedPatterns)
	b.SetEnabled(cfg.RequestBlockingEnabled)
	m.refresh()
	m.Status = "Config reloaded"

	apply := m.deps.ApplyBlocking
	if apply == nil {
		return nil
	}
	return func() tea.Msg { return BlockingChangedMsg{Err: apply()} }
}

// forceRun starts a mitigations run unless one is in flight
func (m *Model) forceRun() tea.Cmd {
	run := m.deps.ForceRun
	if run == nil || m.deps.Bounce == nil || m.deps.Bounce.State() == bouncetracking.StateRunning {
		return nil
	}
	m.ActivePanel = PanelBounce
	m.Status = bouncetracking.ForceRunningLabel
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), forceRunTimeout)
		defer cancel()
		r, err := run(ctx)
		return BounceRunMsg{Run: r, Err: err}
	}
}
