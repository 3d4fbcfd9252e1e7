package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/google/go-cmp/cmp"
	"github.com/marcus/dtf/internal/autofill"
	"github.com/marcus/dtf/internal/bouncetracking"
	"github.com/marcus/dtf/internal/cdp/cdptest"
	"github.com/marcus/dtf/internal/models"
	"github.com/marcus/dtf/internal/network"
	"github.com/marcus/dtf/internal/targets"
)

const bounceMethod = "Storage.runBounceTrackingMitigations"

type fixture struct {
	model    Model
	blocking *network.Blocking
	pane     *network.BlockedURLsPane
	targets  *targets.Manager
	client   *cdptest.Client
	saved    [][]models.BlockedPattern
}

func newFixture(t *testing.T, history ...models.AddressFormFilledEvent) *fixture {
	t.Helper()
	f := &fixture{}

	tm := targets.NewManager(nil)
	tm.Add(targets.Target{ID: "T1", Type: targets.TypePage, URL: "https://shop.example/checkout", Title: "Checkout"})
	tm.Add(targets.Target{ID: "T2", Type: targets.TypePage, URL: "https://news.example/"})
	tm.SetScopeTarget("T1")
	f.targets = tm
	f.blocking = network.NewBlocking(true, []models.BlockedPattern{
		{URL: "*.js", Enabled: true},
		{URL: "ads", Enabled: true},
	}, nil)
	f.pane = network.NewBlockedURLsPane(f.blocking, tm, nil)
	f.pane.Update()

	f.client = cdptest.New("S1")
	f.client.Respond(bounceMethod, map[string]any{"deletedSites": []string{"tracker.example"}})
	view := bouncetracking.NewView(nil, nil, nil)

	f.model = NewModel(Deps{
		History:  history,
		Blocking: f.blocking,
		Pane:     f.pane,
		Bounce:   view,
		Targets:  tm,
		ForceRun: func(ctx context.Context) (models.BounceRun, error) {
			return view.ForceRun(ctx, f.client)
		},
		SaveBlocking: func(p []models.BlockedPattern, _ bool) error {
			f.saved = append(f.saved, p)
			return nil
		},
		ApplyBlocking: func() error { return f.blocking.Apply(f.client) },
	})
	f.send(tea.WindowSizeMsg{Width: 120, Height: 48})
	return f
}

// send feeds msg to the model and returns the command it produced.
func (f *fixture) send(msg tea.Msg) tea.Cmd {
	m, cmd := f.model.Update(msg)
	f.model = m.(Model)
	return cmd
}

func (f *fixture) press(keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		cmd = f.send(msg)
	}
	return cmd
}

func event(id, address string) models.AddressFormFilledEvent {
	return models.AddressFormFilledEvent{
		ID:           id,
		TargetID:     "T1",
		Address:      address,
		FilledFields: []models.FilledField{{Name: "city", Value: address, AutofillType: "ADDRESS_HOME_CITY"}},
		Matches:      []models.Match{{StartIndex: 0, EndIndex: len(address)}},
		Timestamp:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestPanelNavigation(t *testing.T) {
	f := newFixture(t)
	if f.model.ActivePanel != PanelAutofill {
		t.Fatalf("initial panel = %v", f.model.ActivePanel)
	}
	f.press("tab")
	if f.model.ActivePanel != PanelBlocking {
		t.Errorf("after tab panel = %v, want blocking", f.model.ActivePanel)
	}
	f.press("tab", "tab")
	if f.model.ActivePanel != PanelAutofill {
		t.Errorf("tab should wrap around, got %v", f.model.ActivePanel)
	}
	f.press("3")
	if f.model.ActivePanel != PanelBounce {
		t.Errorf("3 should jump to bounce panel, got %v", f.model.ActivePanel)
	}
}

func TestShowView(t *testing.T) {
	f := newFixture(t)
	f.press("3")
	f.send(ShowViewMsg{ViewID: "elements"})
	if f.model.ActivePanel != PanelBounce {
		t.Error("unknown views should be ignored")
	}
	f.send(ShowViewMsg{ViewID: autofill.ViewID})
	if f.model.ActivePanel != PanelAutofill {
		t.Errorf("autofill view should focus the autofill panel, got %v", f.model.ActivePanel)
	}
}

func TestAutofillEventsArrive(t *testing.T) {
	f := newFixture(t)
	ch := make(chan models.AddressFormFilledEvent, 1)
	f.model.deps.Autofill = ch
	ch <- event("e1", "Munich")

	msg := f.model.waitForAutofill()()
	if next := f.send(msg); next == nil {
		t.Error("model should keep listening after an event")
	}
	if len(f.model.Events) != 1 || f.model.Events[0].ID != "e1" {
		t.Fatalf("Events = %+v", f.model.Events)
	}

	close(ch)
	if _, ok := f.model.waitForAutofill()().(autofillClosedMsg); !ok {
		t.Error("closed channel should yield autofillClosedMsg")
	}

	view := ansi.Strip(f.model.View())
	if !strings.Contains(view, "1/1 matched") || !strings.Contains(view, "ADDRESS_HOME_CITY") {
		t.Errorf("view missing autofill details:\n%s", view)
	}
}

func TestFuzzyFilter(t *testing.T) {
	f := newFixture(t, event("e2", "Berlin"), event("e1", "Munich"))

	f.press("/", "m", "u", "n")
	if !f.model.Filtering {
		t.Fatal("/ should start filtering")
	}
	got := f.model.visibleEvents()
	if len(got) != 1 || got[0].ID != "e1" {
		t.Errorf("visible events = %+v, want only e1", got)
	}

	f.press("enter")
	if f.model.Filtering || len(f.model.visibleEvents()) != 1 {
		t.Error("enter should keep the filter and leave input mode")
	}

	f.press("esc")
	if len(f.model.visibleEvents()) != 2 {
		t.Errorf("esc should clear the filter, got %d events", len(f.model.visibleEvents()))
	}
}

func TestFilterIgnoresDashboardKeys(t *testing.T) {
	f := newFixture(t)
	f.press("/", "f")
	if f.model.deps.Bounce.State() != bouncetracking.StateInitial {
		t.Error("f typed into the filter must not force a run")
	}
	if f.model.filterInput.Value() != "f" {
		t.Errorf("filter value = %q", f.model.filterInput.Value())
	}
}

func TestTogglePatternPersistsAndApplies(t *testing.T) {
	f := newFixture(t)
	cmd := f.press("2", "space")
	if cmd == nil {
		t.Fatal("toggle should return a persist command")
	}
	msg, ok := cmd().(BlockingChangedMsg)
	if !ok || msg.Err != nil {
		t.Fatalf("persist result = %#v", msg)
	}
	f.send(msg)

	want := []models.BlockedPattern{{URL: "*.js", Enabled: false}, {URL: "ads", Enabled: true}}
	if len(f.saved) != 1 {
		t.Fatalf("saved %d times, want 1", len(f.saved))
	}
	if diff := cmp.Diff(want, f.saved[0]); diff != "" {
		t.Errorf("saved patterns mismatch (-want +got):\n%s", diff)
	}

	calls := f.client.CallsTo("Network.setBlockedURLs")
	if len(calls) != 1 {
		t.Fatalf("got %d setBlockedURLs calls", len(calls))
	}
	var params struct {
		Urls []string `json:"urls"`
	}
	if err := json.Unmarshal(calls[0].Params, &params); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"ads"}, params.Urls); diff != "" {
		t.Errorf("applied urls mismatch (-want +got):\n%s", diff)
	}
}

func TestToggleOutsideBlockingPanelDoesNothing(t *testing.T) {
	f := newFixture(t)
	if cmd := f.press("space"); cmd != nil {
		t.Error("space outside the blocking panel should not persist")
	}
	if len(f.saved) != 0 {
		t.Errorf("saved = %v", f.saved)
	}
}

func TestToggleBlockingEnabled(t *testing.T) {
	f := newFixture(t)
	cmd := f.press("b")
	if cmd == nil {
		t.Fatal("b should return a persist command")
	}
	f.send(cmd())
	if f.blocking.Enabled() || f.model.BlockingEnabled {
		t.Error("blocking should be disabled")
	}
	if !strings.Contains(ansi.Strip(f.model.View()), "[ ] Enable network request blocking") {
		t.Error("view should show blocking disabled")
	}
}

func TestPersistErrorShown(t *testing.T) {
	f := newFixture(t)
	f.model.deps.SaveBlocking = func([]models.BlockedPattern, bool) error { return errors.New("disk full") }
	f.send(f.press("b")())
	if f.model.Err == nil || !strings.Contains(ansi.Strip(f.model.View()), "disk full") {
		t.Errorf("persist error should be shown, Err = %v", f.model.Err)
	}
}

func TestPaneUpdateRefreshesRows(t *testing.T) {
	f := newFixture(t)
	f.pane.HandleRequestFinished(models.NetworkRequest{TargetID: "T1", URL: "https://cdn/app.js", WasBlocked: true})
	if f.model.Rows[0].Blocked != 0 {
		t.Fatalf("rows refreshed before PaneUpdatedMsg: %+v", f.model.Rows)
	}
	f.send(PaneUpdatedMsg{})
	want := []network.Row{{Pattern: "*.js", Enabled: true, Blocked: 1}, {Pattern: "ads", Enabled: true}}
	if diff := cmp.Diff(want, f.model.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestBlockedURLsListedUnderSelectedPattern(t *testing.T) {
	f := newFixture(t)
	f.pane.HandleRequestFinished(models.NetworkRequest{TargetID: "T1", URL: "https://cdn/app.js", WasBlocked: true})
	f.pane.HandleRequestFinished(models.NetworkRequest{TargetID: "T1", URL: "https://ads.example/pixel", WasBlocked: true})
	f.send(PaneUpdatedMsg{})

	if diff := cmp.Diff([]string{"https://ads.example/pixel", "https://cdn/app.js"}, f.model.BlockedURLs); diff != "" {
		t.Errorf("BlockedURLs mismatch (-want +got):\n%s", diff)
	}

	f.press("2")
	view := ansi.Strip(f.model.View())
	if !strings.Contains(view, "blocked https://cdn/app.js") {
		t.Errorf("view should list the URL blocked by *.js:\n%s", view)
	}
	if strings.Contains(view, "blocked https://ads.example/pixel") {
		t.Errorf("view lists a URL the selected pattern did not block:\n%s", view)
	}

	f.press("j")
	view = ansi.Strip(f.model.View())
	if !strings.Contains(view, "blocked https://ads.example/pixel") {
		t.Errorf("view should list the URL blocked by ads:\n%s", view)
	}
}

func TestScopeChangeShownAndResetsPane(t *testing.T) {
	f := newFixture(t)
	if view := ansi.Strip(f.model.View()); !strings.Contains(view, "Scope: Checkout") {
		t.Errorf("view should name the scope target:\n%s", view)
	}

	f.pane.HandleRequestFinished(models.NetworkRequest{TargetID: "T1", URL: "https://cdn/app.js", WasBlocked: true})
	f.send(PaneUpdatedMsg{})
	if f.model.Rows[0].Blocked != 1 {
		t.Fatalf("rows = %+v, want one blocked", f.model.Rows)
	}

	ch := make(chan targets.ScopeChange, 1)
	f.model.deps.Scope = ch
	f.targets.SetScopeTarget("T2")
	f.pane.HandleScopeChange(targets.ScopeChange{Previous: "T1", Current: "T2"})
	ch <- targets.ScopeChange{Previous: "T1", Current: "T2"}

	msg := f.model.waitForScope()()
	if next := f.send(msg); next == nil {
		t.Error("model should keep listening after a scope change")
	}
	if f.model.Scope.ID != "T2" {
		t.Errorf("Scope = %+v, want T2", f.model.Scope)
	}
	if f.model.Rows[0].Blocked != 0 {
		t.Errorf("rows after scope change = %+v, want counts reset", f.model.Rows)
	}
	if view := ansi.Strip(f.model.View()); !strings.Contains(view, "Scope: https://news.example/") {
		t.Errorf("view should name the new scope target:\n%s", view)
	}

	close(ch)
	if _, ok := f.model.waitForScope()().(scopeClosedMsg); !ok {
		t.Error("closed channel should yield scopeClosedMsg")
	}
}

func TestScopeClearedShown(t *testing.T) {
	f := newFixture(t)
	f.targets.Remove("T1")
	f.send(ScopeChangedMsg{Previous: "T1", Current: ""})
	if view := ansi.Strip(f.model.View()); !strings.Contains(view, "Scope: no target") {
		t.Errorf("view should show that nothing is in scope:\n%s", view)
	}
}

func TestBounceRunsCounted(t *testing.T) {
	f := newFixture(t)
	ch := make(chan models.BounceRun, 2)
	f.model.deps.BounceRuns = ch
	ranAt := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	ch <- models.BounceRun{ID: "r1", RanAt: ranAt.Add(-time.Minute)}
	ch <- models.BounceRun{ID: "r2", DeletedSites: []string{"tracker.example"}, RanAt: ranAt}

	for range 2 {
		if next := f.send(f.model.waitForBounceRun()()); next == nil {
			t.Fatal("model should keep listening after a run")
		}
	}
	if f.model.BounceRuns != 2 || f.model.LastBounceRun.ID != "r2" {
		t.Errorf("BounceRuns = %d, LastBounceRun = %+v", f.model.BounceRuns, f.model.LastBounceRun)
	}
	if view := ansi.Strip(f.model.View()); !strings.Contains(view, "Runs this session: 2, last at 10:30:00") {
		t.Errorf("view should show the run count:\n%s", view)
	}

	close(ch)
	if _, ok := f.model.waitForBounceRun()().(bounceRunsClosedMsg); !ok {
		t.Error("closed channel should yield bounceRunsClosedMsg")
	}
}

func TestForceRun(t *testing.T) {
	f := newFixture(t)
	view := ansi.Strip(f.model.View())
	if !strings.Contains(view, bouncetracking.ForceRunLabel) || !strings.Contains(view, bouncetracking.LearnMoreLabel) {
		t.Errorf("initial bounce panel missing sections:\n%s", view)
	}

	cmd := f.press("f")
	if cmd == nil {
		t.Fatal("f should start a run")
	}
	if f.model.ActivePanel != PanelBounce {
		t.Errorf("force run should focus the bounce panel")
	}
	msg, ok := cmd().(BounceRunMsg)
	if !ok || msg.Err != nil {
		t.Fatalf("run result = %#v", msg)
	}
	f.send(msg)

	if got := f.model.rowCount(PanelBounce); got != 1 {
		t.Errorf("bounce rows = %d, want 1", got)
	}
	if view := ansi.Strip(f.model.View()); !strings.Contains(view, "tracker.example") {
		t.Errorf("view missing deleted site:\n%s", view)
	}
}

func TestConfigReload(t *testing.T) {
	f := newFixture(t)
	cfg := &models.Config{BlockedPatterns: []models.BlockedPattern{{URL: "cdn", Enabled: true}}}
	cmd := f.send(ConfigReloadedMsg{Config: cfg})
	if cmd == nil {
		t.Fatal("changed config should re-apply patterns")
	}
	if f.blocking.Enabled() {
		t.Error("reloaded config disables blocking")
	}
	if diff := cmp.Diff(cfg.BlockedPatterns, f.blocking.Patterns()); diff != "" {
		t.Errorf("patterns mismatch (-want +got):\n%s", diff)
	}
	if cmd := f.send(ConfigReloadedMsg{Config: cfg}); cmd != nil {
		t.Error("unchanged config should not re-apply")
	}
}

func TestHelpAndQuit(t *testing.T) {
	f := newFixture(t)
	f.press("?")
	if !f.model.ShowHelp || !strings.Contains(f.model.View(), "DTF MONITOR") {
		t.Error("? should show help")
	}
	f.press("esc")
	if f.model.ShowHelp {
		t.Error("esc should close help")
	}
	cmd := f.press("q")
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should produce tea.QuitMsg")
	}
}

func TestClampCursor(t *testing.T) {
	tests := []struct {
		name  string
		start int
		want  int
	}{
		{"beyond end", 5, 1},
		{"in range", 1, 1},
		{"negative", -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.model.Cursor[PanelBlocking] = tt.start
			f.model.clampCursor(PanelBlocking)
			if got := f.model.Cursor[PanelBlocking]; got != tt.want {
				t.Errorf("clampCursor: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCompactView(t *testing.T) {
	f := newFixture(t)
	f.send(tea.WindowSizeMsg{Width: 30, Height: 10})
	if !strings.Contains(f.model.View(), "resize for full view") {
		t.Error("small terminals should get the compact view")
	}
}
