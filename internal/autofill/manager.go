package autofill

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/marcus/dtf/internal/events"
	"github.com/marcus/dtf/internal/models"
	"go.uber.org/zap"
)

// ViewID is the view revealed when an address form is filled.
const ViewID = "autofill-view"

// ViewShower reveals a view in the UI layer.
type ViewShower interface {
	ShowView(ctx context.Context, viewID string) error
}

// Recorder persists forwarded events.
type Recorder interface {
	RecordAddressFormFilled(ev models.AddressFormFilledEvent) error
}

// Manager forwards address-form-filled notifications to the view layer.
type Manager struct {
	bus      *events.Bus[models.AddressFormFilledEvent]
	views    ViewShower
	recorder Recorder
	matcher  Matcher
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures a Manager.
type Option func(*Manager)

// WithRecorder records every forwarded event.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithMatcher replaces the default matcher, which folds separators.
func WithMatcher(matcher Matcher) Option {
	return func(m *Manager) { m.matcher = matcher }
}

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator sets the event id source.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newID = gen }
}

// NewManager creates a manager publishing to bus. views may be nil.
func NewManager(bus *events.Bus[models.AddressFormFilledEvent], views ViewShower, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		bus:     bus,
		views:   views,
		logger:  logger,
		matcher: Matcher{FoldSeparators: true},
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handle transforms one notification, reveals the autofill view and
// publishes the result. The returned event is what subscribers receive.
func (m *Manager) Handle(ctx context.Context, in models.AddressFormFilled) models.AddressFormFilledEvent {
	address := CanonicalAddress(in.AddressUI)
	ev := models.AddressFormFilledEvent{
		ID:           m.newID(),
		TargetID:     in.TargetID,
		Address:      address,
		FilledFields: append([]models.FilledField(nil), in.FilledFields...),
		Matches:      m.matcher.Compute(address, in.FilledFields),
		Timestamp:    m.now(),
	}

	if m.views != nil {
		if err := m.views.ShowView(ctx, ViewID); err != nil {
			m.logger.Warn("show view failed", zap.String("view", ViewID), zap.Error(err))
		}
	}

	delivered := m.bus.Publish(ev)
	m.logger.Debug("address form filled",
		zap.String("kind", m.bus.Kind().String()),
		zap.String("target", ev.TargetID),
		zap.Int("fields", len(ev.FilledFields)),
		zap.Int("matches", len(ev.Matches)),
		zap.Int("delivered", delivered),
	)

	if m.recorder != nil {
		if err := m.recorder.RecordAddressFormFilled(ev); err != nil {
			m.logger.Warn("record address form filled", zap.Error(err))
		}
	}
	return ev
}

// Run handles notifications until ctx is done or in is closed.
func (m *Manager) Run(ctx context.Context, in <-chan models.AddressFormFilled) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-in:
			if !ok {
				return nil
			}
			m.Handle(ctx, ev)
		}
	}
}
