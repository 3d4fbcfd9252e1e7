// Package bouncetracking implements the bounce tracking mitigations view:
// a force-run button that asks the browser to clear state for sites it
// classified as bounce trackers, and the list of sites it cleared.
package bouncetracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"github.com/marcus/dtf/internal/events"
	"github.com/marcus/dtf/internal/models"
	"go.uber.org/zap"
)

// Section texts, in display order.
const (
	ForceRunLabel     = "Force run"
	ForceRunningLabel = "Running"
	LearnMoreLabel    = "Learn more: Bounce Tracking Mitigations"
	LearnMoreURL      = "https://privacycg.github.io/nav-tracking-mitigations/#bounce-tracking-mitigations"
	NoSitesMessage    = "State was not cleared for any potential bounce tracking sites. Either none were identified, bounce tracking mitigations are not enabled, or third-party cookies are not blocked."
)

// DeletedSitesColumn is the title of the deleted sites table column.
const DeletedSitesColumn = "Sites"

// ErrRunning is returned when a force run is already in flight.
var ErrRunning = errors.New("mitigations already running")

// State is the view state.
type State int

const (
	StateInitial State = iota
	StateRunning
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Recorder persists completed runs.
type Recorder interface {
	RecordBounceRun(run models.BounceRun) error
}

// View holds the state of the bounce tracking mitigations view.
type View struct {
	logger   *zap.Logger
	bus      *events.Bus[models.BounceRun]
	recorder Recorder
	now      func() time.Time

	mu      sync.Mutex
	state   State
	sites   []string
	lastErr error
	lastRun models.BounceRun
}

// NewView creates a view. bus and recorder may be nil.
func NewView(bus *events.Bus[models.BounceRun], recorder Recorder, logger *zap.Logger) *View {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &View{
		logger:   logger,
		bus:      bus,
		recorder: recorder,
		now:      time.Now,
	}
}

// State returns the current state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Err returns the error from the last failed run, if any.
func (v *View) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}

// ForceRun runs Storage.runBounceTrackingMitigations through client and
// stores the deleted sites. A failed call leaves the view in the state it
// had before the run, with the error recorded.
func (v *View) ForceRun(ctx context.Context, client proto.Client) (models.BounceRun, error) {
	v.mu.Lock()
	if v.state == StateRunning {
		v.mu.Unlock()
		return models.BounceRun{}, ErrRunning
	}
	prev := v.state
	v.state = StateRunning
	v.lastErr = nil
	v.mu.Unlock()

	res, err := proto.StorageRunBounceTrackingMitigations{}.Call(contextClient{ctx: ctx, Client: client})
	if err != nil {
		err = fmt.Errorf("run bounce tracking mitigations: %w", err)
		v.mu.Lock()
		v.state = prev
		v.lastErr = err
		v.mu.Unlock()
		v.logger.Warn("bounce tracking mitigations failed", zap.Error(err))
		return models.BounceRun{}, err
	}

	run := models.BounceRun{
		ID:           uuid.NewString(),
		DeletedSites: append([]string{}, res.DeletedSites...),
		RanAt:        v.now(),
	}

	v.mu.Lock()
	v.state = StateDone
	v.sites = run.DeletedSites
	v.lastRun = run
	v.mu.Unlock()

	v.logger.Debug("bounce tracking mitigations ran", zap.Int("deleted_sites", len(run.DeletedSites)))
	if v.bus != nil {
		v.bus.Publish(run)
	}
	if v.recorder != nil {
		if err := v.recorder.RecordBounceRun(run); err != nil {
			v.logger.Warn("record bounce run", zap.Error(err))
		}
	}
	return run, nil
}

// Restore shows a previous run without contacting the browser.
func (v *View) Restore(run models.BounceRun) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = StateDone
	v.sites = append([]string{}, run.DeletedSites...)
	v.lastRun = run
}

// LastRun returns the most recent completed run.
func (v *View) LastRun() (models.BounceRun, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastRun, v.state == StateDone
}

// Sections returns the text of each report section in display order.
func (v *View) Sections() []string {
	v.mu.Lock()
	defer v.mu.Unlock()

	button := ForceRunLabel
	if v.state == StateRunning {
		button = ForceRunningLabel
	}
	sections := []string{button}
	if v.state == StateDone && len(v.sites) == 0 {
		sections = append(sections, NoSitesMessage)
	}
	return append(sections, LearnMoreLabel)
}

// ShowsTable reports whether the deleted sites table is shown.
func (v *View) ShowsTable() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state == StateDone && len(v.sites) > 0
}

// Rows returns one single-column row per deleted site, or nil when the
// table is hidden.
func (v *View) Rows() [][]string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state != StateDone || len(v.sites) == 0 {
		return nil
	}
	rows := make([][]string, len(v.sites))
	for i, site := range v.sites {
		rows[i] = []string{site}
	}
	return rows
}

// contextClient binds a context to calls made through a plain client.
type contextClient struct {
	proto.Client
	ctx context.Context
}

func (c contextClient) GetContext() context.Context {
	return c.ctx
}

func (c contextClient) GetSessionID() proto.TargetSessionID {
	if s, ok := c.Client.(proto.Sessionable); ok {
		return s.GetSessionID()
	}
	return ""
}
