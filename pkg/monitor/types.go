package monitor

import (
	"context"
	"time"

	"github.com/marcus/dtf/internal/bouncetracking"
	"github.com/marcus/dtf/internal/models"
	"github.com/marcus/dtf/internal/network"
	"github.com/marcus/dtf/internal/targets"
	"github.com/marcus/dtf/pkg/monitor/keymap"
)

// Panel represents which panel is active
type Panel int

const (
	PanelAutofill Panel = iota
	PanelBlocking
	PanelBounce
)

const panelCount = 3

// MinWidth is the minimum terminal width for proper display
const MinWidth = 40

// MinHeight is the minimum terminal height for proper display
const MinHeight = 15

// maxEvents caps the autofill history kept in memory.
const maxEvents = 200

// forceRunTimeout bounds one mitigations run started from the dashboard.
const forceRunTimeout = 30 * time.Second

// Deps are the live components the dashboard drives. Any func may be nil.
type Deps struct {
	Autofill <-chan models.AddressFormFilledEvent
	History  []models.AddressFormFilledEvent // newest first

	Blocking *network.Blocking
	Pane     *network.BlockedURLsPane
	Bounce   *bouncetracking.View
	Targets  *targets.Manager

	Scope      <-chan targets.ScopeChange
	BounceRuns <-chan models.BounceRun // every completed run, forced or not

	ForceRun      func(ctx context.Context) (models.BounceRun, error)
	SaveBlocking  func(patterns []models.BlockedPattern, enabled bool) error
	ApplyBlocking func() error
	ClearLog      func()

	Keymap   *keymap.Registry
	Interval time.Duration
	Version  string
}

// TickMsg triggers a refresh of the pane rows and bounce state
type TickMsg time.Time

// PaneUpdatedMsg reports that the blocked URLs pane rebuilt its rows
type PaneUpdatedMsg struct{}

// AutofillMsg carries one forwarded address-form-filled event
type AutofillMsg models.AddressFormFilledEvent

type autofillClosedMsg struct{}

// ScopeChangedMsg reports that another target came into scope
type ScopeChangedMsg targets.ScopeChange

// BounceRanMsg carries one completed mitigations run
type BounceRanMsg models.BounceRun

type scopeClosedMsg struct{}

type bounceRunsClosedMsg struct{}

// BlockingChangedMsg reports the outcome of persisting and applying patterns
type BlockingChangedMsg struct {
	Err error
}

// BounceRunMsg reports the outcome of a forced mitigations run
type BounceRunMsg struct {
	Run models.BounceRun
	Err error
}

// ShowViewMsg asks the dashboard to reveal a view
type ShowViewMsg struct {
	ViewID string
}

// ConfigReloadedMsg carries a config re-read after it changed on disk
type ConfigReloadedMsg struct {
	Config *models.Config
}
