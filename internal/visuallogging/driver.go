package visuallogging

import (
	"errors"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNotStarted is returned by Log while logging is stopped.
var ErrNotStarted = errors.New("visual logging not started")

// EventKind is a logged interaction.
type EventKind string

const (
	EventImpression EventKind = "impression"
	EventClick      EventKind = "click"
	EventDblClick   EventKind = "dblclick"
	EventHover      EventKind = "hover"
	EventDrag       EventKind = "drag"
	EventChange     EventKind = "change"
	EventKeyDown    EventKind = "keydown"
	EventResize     EventKind = "resize"
)

// Element is a UI element that may carry a logging config.
type Element struct {
	ID     string
	Config string
	Parent *Element
	Attrs  map[string]string
}

// ContextProvider computes an element's context value.
type ContextProvider func(el *Element) (int64, bool)

// ParentProvider finds the logical parent of an element.
type ParentProvider func(el *Element) *Element

// Entry is one logged event.
type Entry struct {
	Kind      EventKind
	ElementID string
	VE        VisualElement
	Context   int64
	ParentID  string
	ParentVE  VisualElement
	Key       string
	Time      time.Time
}

// Driver logs impressions and interactions of elements with a config.
type Driver struct {
	logger *zap.Logger
	now    func() time.Time

	mu               sync.RWMutex
	started          bool
	contextProviders map[string]ContextProvider
	parentProviders  map[string]ParentProvider
	logged           int
	sink             func(Entry)
}

// NewDriver creates a stopped driver.
func NewDriver(logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		logger:           logger,
		now:              time.Now,
		contextProviders: make(map[string]ContextProvider),
		parentProviders:  make(map[string]ParentProvider),
	}
}

// Start begins logging.
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started = true
}

// Stop ends logging.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started = false
}

// Started reports whether logging is on.
func (d *Driver) Started() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.started
}

// OnEntry sets a callback receiving every logged entry.
func (d *Driver) OnEntry(fn func(Entry)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sink = fn
}

// RegisterContextProvider makes "context: name" resolve through p.
func (d *Driver) RegisterContextProvider(name string, p ContextProvider) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.contextProviders[name] = p
}

// RegisterParentProvider makes "parent: name" resolve through p.
func (d *Driver) RegisterParentProvider(name string, p ParentProvider) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.parentProviders[name] = p
}

// Logged returns how many entries were logged.
func (d *Driver) Logged() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.logged
}

// Log records kind for el. Interactions the element's config does not track
// are skipped and return ok=false. Impressions are always logged.
func (d *Driver) Log(kind EventKind, el *Element, key string) (Entry, bool, error) {
	d.mu.RLock()
	started := d.started
	d.mu.RUnlock()
	if !started {
		return Entry{}, false, ErrNotStarted
	}

	cfg, err := ParseConfig(el.Config)
	if err != nil {
		return Entry{}, false, err
	}
	if !tracks(cfg.Track, kind, key) {
		return Entry{}, false, nil
	}

	entry := Entry{
		Kind:      kind,
		ElementID: el.ID,
		VE:        cfg.VE,
		Context:   d.resolveContext(cfg.Context, el),
		Key:       key,
		Time:      d.now(),
	}
	if parent := d.resolveParent(cfg.Parent, el); parent != nil {
		entry.ParentID = parent.ID
		if pc, err := ParseConfig(parent.Config); err == nil {
			entry.ParentVE = pc.VE
		}
	}

	d.mu.Lock()
	d.logged++
	sink := d.sink
	d.mu.Unlock()

	d.logger.Debug("visual log",
		zap.String("event", string(kind)),
		zap.String("ve", entry.VE.String()),
		zap.String("element", entry.ElementID),
		zap.Int64("context", entry.Context),
		zap.String("parent", entry.ParentID),
	)
	if sink != nil {
		sink(entry)
	}
	return entry, true, nil
}

func tracks(o TrackOptions, kind EventKind, key string) bool {
	switch kind {
	case EventImpression:
		return true
	case EventClick:
		return o.Click
	case EventDblClick:
		return o.DblClick
	case EventHover:
		return o.Hover
	case EventDrag:
		return o.Drag
	case EventChange:
		return o.Change
	case EventResize:
		return o.Resize
	case EventKeyDown:
		if !o.KeyDown {
			return false
		}
		if o.Keys == "" {
			return true
		}
		for _, k := range strings.Split(o.Keys, "|") {
			if k == key {
				return true
			}
		}
		return false
	}
	return false
}

// resolveContext returns the provider value for a registered name, the
// number itself for a numeric context, or a hash of the string otherwise.
func (d *Driver) resolveContext(context string, el *Element) int64 {
	if context == "" {
		return 0
	}
	d.mu.RLock()
	p := d.contextProviders[context]
	d.mu.RUnlock()
	if p != nil {
		if v, ok := p(el); ok {
			return v
		}
		return 0
	}
	if n, err := strconv.ParseInt(context, 10, 64); err == nil {
		return n
	}
	h := fnv.New32a()
	h.Write([]byte(context))
	return int64(h.Sum32())
}

// resolveParent uses the named provider when one is registered, otherwise
// the nearest ancestor with a config.
func (d *Driver) resolveParent(name string, el *Element) *Element {
	if name != "" {
		d.mu.RLock()
		p := d.parentProviders[name]
		d.mu.RUnlock()
		if p != nil {
			return p(el)
		}
	}
	for p := el.Parent; p != nil; p = p.Parent {
		if p.Config != "" {
			return p
		}
	}
	return nil
}
