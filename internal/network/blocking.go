// Package network holds network request blocking: the blocked URL patterns,
// the pane that counts blocked requests, and the tracker that turns protocol
// events into finished requests.
package network

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-rod/rod/lib/proto"
	"github.com/marcus/dtf/internal/events"
	"github.com/marcus/dtf/internal/models"
)

var (
	ErrEmptyPattern     = errors.New("pattern is empty")
	ErrDuplicatePattern = errors.New("pattern already exists")
	ErrPatternNotFound  = errors.New("pattern not found")
)

// Blocking owns the request blocking patterns for all targets.
type Blocking struct {
	mu       sync.RWMutex
	enabled  bool
	patterns []models.BlockedPattern
	changes  *events.Bus[[]models.BlockedPattern]
}

// NewBlocking creates a blocking manager. changes may be nil.
func NewBlocking(enabled bool, patterns []models.BlockedPattern, changes *events.Bus[[]models.BlockedPattern]) *Blocking {
	return &Blocking{
		enabled:  enabled,
		patterns: append([]models.BlockedPattern(nil), patterns...),
		changes:  changes,
	}
}

// Enabled reports whether request blocking is on.
func (b *Blocking) Enabled() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.enabled
}

// Patterns returns a copy of the configured patterns.
func (b *Blocking) Patterns() []models.BlockedPattern {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]models.BlockedPattern(nil), b.patterns...)
}

// SetEnabled turns request blocking on or off.
func (b *Blocking) SetEnabled(enabled bool) {
	b.mu.Lock()
	changed := b.enabled != enabled
	b.enabled = enabled
	b.mu.Unlock()
	if changed {
		b.notify()
	}
}

// SetPatterns replaces all patterns.
func (b *Blocking) SetPatterns(patterns []models.BlockedPattern) {
	b.mu.Lock()
	b.patterns = append([]models.BlockedPattern(nil), patterns...)
	b.mu.Unlock()
	b.notify()
}

// Add appends an enabled pattern.
func (b *Blocking) Add(url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return ErrEmptyPattern
	}
	b.mu.Lock()
	for _, p := range b.patterns {
		if p.URL == url {
			b.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrDuplicatePattern, url)
		}
	}
	b.patterns = append(b.patterns, models.BlockedPattern{URL: url, Enabled: true})
	b.mu.Unlock()
	b.notify()
	return nil
}

// Remove deletes a pattern.
func (b *Blocking) Remove(url string) error {
	b.mu.Lock()
	for i, p := range b.patterns {
		if p.URL == url {
			b.patterns = append(b.patterns[:i], b.patterns[i+1:]...)
			b.mu.Unlock()
			b.notify()
			return nil
		}
	}
	b.mu.Unlock()
	return fmt.Errorf("%w: %s", ErrPatternNotFound, url)
}

// Toggle flips a pattern's enabled flag and returns the new state.
func (b *Blocking) Toggle(url string) (bool, error) {
	b.mu.Lock()
	for i, p := range b.patterns {
		if p.URL == url {
			b.patterns[i].Enabled = !p.Enabled
			enabled := b.patterns[i].Enabled
			b.mu.Unlock()
			b.notify()
			return enabled, nil
		}
	}
	b.mu.Unlock()
	return false, fmt.Errorf("%w: %s", ErrPatternNotFound, url)
}

// Clear removes every pattern.
func (b *Blocking) Clear() {
	b.SetPatterns(nil)
}

// Effective returns the patterns the browser should block right now:
// none when blocking is off, otherwise the enabled patterns in order.
func (b *Blocking) Effective() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	urls := []string{}
	if !b.enabled {
		return urls
	}
	for _, p := range b.patterns {
		if p.Enabled {
			urls = append(urls, p.URL)
		}
	}
	return urls
}

// IsBlocked reports whether url matches an effective pattern.
func (b *Blocking) IsBlocked(url string) bool {
	return b.MatchingPattern(url) != ""
}

// MatchingPattern returns the first effective pattern matching url, or "".
func (b *Blocking) MatchingPattern(url string) string {
	for _, p := range b.Effective() {
		if MatchPattern(p, url) {
			return p
		}
	}
	return ""
}

// Apply sends the effective patterns to each client with Network.setBlockedURLs.
func (b *Blocking) Apply(clients ...proto.Client) error {
	req := proto.NetworkSetBlockedURLs{Urls: b.Effective()}
	var errs []error
	for _, c := range clients {
		if err := req.Call(c); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", req.ProtoReq(), err))
		}
	}
	return errors.Join(errs...)
}

func (b *Blocking) notify() {
	if b.changes != nil {
		b.changes.Publish(b.Patterns())
	}
}

// MatchPattern reports whether url contains the '*'-separated parts of
// pattern in order. The match is not anchored.
func MatchPattern(pattern, url string) bool {
	pos := 0
	for _, part := range strings.Split(pattern, "*") {
		if part == "" {
			continue
		}
		idx := strings.Index(url[pos:], part)
		if idx < 0 {
			return false
		}
		pos += idx + len(part)
	}
	return true
}
