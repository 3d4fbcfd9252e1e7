package network

import (
	"context"
	"sort"
	"sync"

	"github.com/marcus/dtf/internal/models"
	"github.com/marcus/dtf/internal/targets"
	"go.uber.org/zap"
)

// ScopeChecker reports whether a target is the in-scope target.
type ScopeChecker interface {
	InScope(targetID string) bool
}

// Row is one rendered line of the blocked URLs pane.
type Row struct {
	Pattern string
	Enabled bool
	Blocked int
}

// BlockedURLsPane lists the blocking patterns with how many requests each
// one has blocked since the last log reset.
type BlockedURLsPane struct {
	blocking *Blocking
	scope    ScopeChecker
	logger   *zap.Logger

	mu       sync.Mutex
	counts   map[string]int // blocked requests per URL
	rows     []Row
	updates  int
	onUpdate func([]Row)
}

// NewBlockedURLsPane creates the pane.
func NewBlockedURLsPane(blocking *Blocking, scope ScopeChecker, logger *zap.Logger) *BlockedURLsPane {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlockedURLsPane{
		blocking: blocking,
		scope:    scope,
		logger:   logger,
		counts:   make(map[string]int),
	}
}

// OnUpdate registers the callback invoked after every Update with the new rows.
func (p *BlockedURLsPane) OnUpdate(fn func([]Row)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onUpdate = fn
}

// HandleRequestFinished updates the pane for a request finished on the
// in-scope target. Requests from other targets are ignored.
func (p *BlockedURLsPane) HandleRequestFinished(req models.NetworkRequest) {
	if p.scope == nil || !p.scope.InScope(req.TargetID) {
		return
	}
	if req.WasBlocked {
		p.mu.Lock()
		p.counts[req.URL]++
		p.mu.Unlock()
	}
	p.Update()
}

// HandleReset clears the blocked counts and updates the pane.
func (p *BlockedURLsPane) HandleReset(reset models.LogReset) {
	p.mu.Lock()
	p.counts = make(map[string]int)
	p.mu.Unlock()
	p.logger.Debug("blocked urls reset", zap.Bool("clear_if_preserved", reset.ClearIfPreserved))
	p.Update()
}

// HandleScopeChange drops the counts gathered for the previous scope target
// and updates the pane.
func (p *BlockedURLsPane) HandleScopeChange(change targets.ScopeChange) {
	p.mu.Lock()
	p.counts = make(map[string]int)
	p.mu.Unlock()
	p.logger.Debug("blocked urls scope changed",
		zap.String("previous", change.Previous),
		zap.String("current", change.Current))
	p.Update()
}

// Update rebuilds the rows and notifies the renderer.
func (p *BlockedURLsPane) Update() {
	patterns := p.blocking.Patterns()

	p.mu.Lock()
	rows := make([]Row, len(patterns))
	for i, pat := range patterns {
		rows[i] = Row{
			Pattern: pat.URL,
			Enabled: pat.Enabled,
			Blocked: p.blockedCountLocked(pat.URL),
		}
	}
	p.rows = rows
	p.updates++
	fn := p.onUpdate
	p.mu.Unlock()

	if fn != nil {
		fn(append([]Row(nil), rows...))
	}
}

// Rows returns the rows built by the last Update.
func (p *BlockedURLsPane) Rows() []Row {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Row(nil), p.rows...)
}

// Updates returns how many times the pane has been updated.
func (p *BlockedURLsPane) Updates() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updates
}

// BlockedCount returns how many blocked requests matched pattern.
func (p *BlockedURLsPane) BlockedCount(pattern string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.blockedCountLocked(pattern)
}

// BlockedURLs returns the blocked URLs seen since the last reset, sorted.
func (p *BlockedURLsPane) BlockedURLs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	urls := make([]string, 0, len(p.counts))
	for u := range p.counts {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

func (p *BlockedURLsPane) blockedCountLocked(pattern string) int {
	if pattern == "" {
		return 0
	}
	total := 0
	for url, n := range p.counts {
		if MatchPattern(pattern, url) {
			total += n
		}
	}
	return total
}

// Sources are the channels Run feeds the pane from. Nil channels are skipped.
type Sources struct {
	Requests <-chan models.NetworkRequest
	Resets   <-chan models.LogReset
	Patterns <-chan []models.BlockedPattern
	Scopes   <-chan targets.ScopeChange
}

// Run feeds the pane from src until ctx is done or every channel is closed.
func (p *BlockedURLsPane) Run(ctx context.Context, src Sources) error {
	requests, resets, patterns, scopes := src.Requests, src.Resets, src.Patterns, src.Scopes
	for requests != nil || resets != nil || patterns != nil || scopes != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-requests:
			if !ok {
				requests = nil
				continue
			}
			p.HandleRequestFinished(req)
		case r, ok := <-resets:
			if !ok {
				resets = nil
				continue
			}
			p.HandleReset(r)
		case _, ok := <-patterns:
			if !ok {
				patterns = nil
				continue
			}
			p.Update()
		case c, ok := <-scopes:
			if !ok {
				scopes = nil
				continue
			}
			p.HandleScopeChange(c)
		}
	}
	return nil
}
