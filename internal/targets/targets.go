// Package targets tracks inspected targets and which one is in scope.
package targets

import (
	"sort"
	"sync"

	"github.com/marcus/dtf/internal/events"
)

// Type is the kind of inspected target
type Type string

const (
	TypePage          Type = "page"
	TypeIframe        Type = "iframe"
	TypeServiceWorker Type = "service_worker"
	TypeWorker        Type = "worker"
	TypeBrowser       Type = "browser"
	TypeOther         Type = "other"
)

// Target is one inspected context
type Target struct {
	ID       string
	Type     Type
	URL      string
	Title    string
	ParentID string // target whose session attached this one; "" for top level
}

// ScopeChange is published when the in-scope target changes
type ScopeChange struct {
	Previous string
	Current  string
}

// Manager holds the known targets and the in-scope target.
type Manager struct {
	mu      sync.RWMutex
	targets map[string]Target
	scope   string
	changes *events.Bus[ScopeChange]
}

// NewManager creates a target manager. changes may be nil.
func NewManager(changes *events.Bus[ScopeChange]) *Manager {
	return &Manager{
		targets: make(map[string]Target),
		changes: changes,
	}
}

// Add registers or updates a target. The first page target added becomes
// the scope target when none is set.
func (m *Manager) Add(t Target) {
	m.mu.Lock()
	m.targets[t.ID] = t
	var change *ScopeChange
	if m.scope == "" && t.Type == TypePage {
		change = &ScopeChange{Previous: "", Current: t.ID}
		m.scope = t.ID
	}
	m.mu.Unlock()

	if change != nil && m.changes != nil {
		m.changes.Publish(*change)
	}
}

// Remove forgets a target. Removing the scope target clears the scope.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.targets, id)
	var change *ScopeChange
	if m.scope == id {
		change = &ScopeChange{Previous: id, Current: ""}
		m.scope = ""
	}
	m.mu.Unlock()

	if change != nil && m.changes != nil {
		m.changes.Publish(*change)
	}
}

// Get returns a known target.
func (m *Manager) Get(id string) (Target, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.targets[id]
	return t, ok
}

// Targets returns the known targets sorted by ID.
func (m *Manager) Targets() []Target {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Target, 0, len(m.targets))
	for _, t := range m.targets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetScopeTarget makes id the in-scope target. An empty id clears the scope.
// The id does not need to be known yet.
func (m *Manager) SetScopeTarget(id string) {
	m.mu.Lock()
	prev := m.scope
	m.scope = id
	m.mu.Unlock()

	if prev != id && m.changes != nil {
		m.changes.Publish(ScopeChange{Previous: prev, Current: id})
	}
}

// ScopeTarget returns the in-scope target id, or "" when none.
func (m *Manager) ScopeTarget() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scope
}

// InScope reports whether id is the in-scope target or one of its
// descendants, such as an out-of-process iframe. Nothing is in scope when no
// scope target is set.
func (m *Manager) InScope(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.scope == "" {
		return false
	}
	// The hop limit guards against a parent cycle.
	for hops := 0; id != "" && hops <= len(m.targets); hops++ {
		if id == m.scope {
			return true
		}
		t, ok := m.targets[id]
		if !ok {
			return false
		}
		id = t.ParentID
	}
	return false
}
