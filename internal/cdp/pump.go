package cdp

import (
	"sync"

	"github.com/go-rod/rod/lib/proto"
	"github.com/marcus/dtf/internal/autofill"
	"github.com/marcus/dtf/internal/models"
	"github.com/marcus/dtf/internal/network"
	"github.com/marcus/dtf/internal/targets"
	"go.uber.org/zap"
)

// AttachHook prepares a newly attached target session.
type AttachHook func(client proto.Client, target targets.Target) error

// ClientFactory returns a client bound to one session.
type ClientFactory func(sessionID proto.TargetSessionID) proto.Client

// Pump routes protocol events from every attached session to the
// autofill manager, the request tracker and the target manager.
type Pump struct {
	autofill  chan<- models.AddressFormFilled
	tracker   *network.RequestTracker
	targets   *targets.Manager
	clientFor ClientFactory
	onAttach  AttachHook
	logger    *zap.Logger

	mu       sync.RWMutex
	sessions map[proto.TargetSessionID]string // session id to target id
}

// NewPump creates a pump. clientFor and onAttach may be nil.
func NewPump(autofillIn chan<- models.AddressFormFilled, tracker *network.RequestTracker, tm *targets.Manager, clientFor ClientFactory, onAttach AttachHook, logger *zap.Logger) *Pump {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pump{
		autofill:  autofillIn,
		tracker:   tracker,
		targets:   tm,
		clientFor: clientFor,
		onAttach:  onAttach,
		logger:    logger,
		sessions:  make(map[proto.TargetSessionID]string),
	}
}

// Callbacks returns the event handlers in the form rod's EachEvent takes.
func (p *Pump) Callbacks() []interface{} {
	return []interface{}{
		p.OnAttached,
		p.OnDetached,
		p.OnTargetInfoChanged,
		p.OnAddressFormFilled,
		p.OnRequestWillBeSent,
		p.OnLoadingFinished,
		p.OnLoadingFailed,
		p.OnFrameNavigated,
	}
}

// TargetID returns the target behind a session, or "" when unknown.
func (p *Pump) TargetID(sid proto.TargetSessionID) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sessions[sid]
}

// Sessions returns the attached session ids.
func (p *Pump) Sessions() []proto.TargetSessionID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]proto.TargetSessionID, 0, len(p.sessions))
	for sid := range p.sessions {
		out = append(out, sid)
	}
	return out
}

func targetType(t proto.TargetTargetInfoType) targets.Type {
	switch t {
	case proto.TargetTargetInfoTypePage:
		return targets.TypePage
	case proto.TargetTargetInfoTypeServiceWorker:
		return targets.TypeServiceWorker
	case proto.TargetTargetInfoTypeSharedWorker, "worker":
		return targets.TypeWorker
	case proto.TargetTargetInfoTypeBrowser:
		return targets.TypeBrowser
	case "iframe":
		return targets.TypeIframe
	default:
		return targets.TypeOther
	}
}

func toTarget(info *proto.TargetTargetInfo) targets.Target {
	return targets.Target{
		ID:    string(info.TargetID),
		Type:  targetType(info.Type),
		URL:   info.URL,
		Title: info.Title,
	}
}

// OnAttached records a new session and prepares it. A target attached
// through another target's session is recorded as that target's child.
func (p *Pump) OnAttached(e *proto.TargetAttachedToTarget, sid proto.TargetSessionID) {
	if e.TargetInfo == nil {
		return
	}
	t := toTarget(e.TargetInfo)
	t.ParentID = p.TargetID(sid)

	p.mu.Lock()
	p.sessions[e.SessionID] = t.ID
	p.mu.Unlock()
	p.targets.Add(t)
	p.logger.Debug("target attached", zap.String("target", t.ID), zap.String("type", string(t.Type)))

	if p.onAttach != nil && p.clientFor != nil {
		if err := p.onAttach(p.clientFor(e.SessionID), t); err != nil {
			p.logger.Warn("prepare target", zap.String("target", t.ID), zap.Error(err))
		}
	}
}

// OnDetached forgets a session and its target.
func (p *Pump) OnDetached(e *proto.TargetDetachedFromTarget, _ proto.TargetSessionID) {
	p.mu.Lock()
	id, ok := p.sessions[e.SessionID]
	delete(p.sessions, e.SessionID)
	p.mu.Unlock()
	if !ok {
		id = string(e.TargetID)
	}
	if id == "" {
		return
	}
	p.targets.Remove(id)
	p.logger.Debug("target detached", zap.String("target", id))
}

// OnTargetInfoChanged keeps target titles and URLs current.
func (p *Pump) OnTargetInfoChanged(e *proto.TargetTargetInfoChanged, _ proto.TargetSessionID) {
	if e.TargetInfo == nil {
		return
	}
	if prev, known := p.targets.Get(string(e.TargetInfo.TargetID)); known {
		t := toTarget(e.TargetInfo)
		t.ParentID = prev.ParentID
		p.targets.Add(t)
	}
}

// OnAddressFormFilled forwards autofill notifications.
func (p *Pump) OnAddressFormFilled(e *proto.AutofillAddressFormFilled, sid proto.TargetSessionID) {
	if p.autofill == nil {
		return
	}
	ev := autofill.FromProto(p.TargetID(sid), e)
	select {
	case p.autofill <- ev:
	default:
		p.logger.Warn("autofill queue full, dropping event", zap.String("target", ev.TargetID))
	}
}

// OnRequestWillBeSent starts tracking a request.
func (p *Pump) OnRequestWillBeSent(e *proto.NetworkRequestWillBeSent, sid proto.TargetSessionID) {
	if e.Request == nil {
		return
	}
	p.tracker.WillBeSent(p.TargetID(sid), string(e.RequestID), e.Request.URL)
}

// OnLoadingFinished completes a request.
func (p *Pump) OnLoadingFinished(e *proto.NetworkLoadingFinished, sid proto.TargetSessionID) {
	p.tracker.Finished(p.TargetID(sid), string(e.RequestID))
}

// OnLoadingFailed completes a failed or blocked request.
func (p *Pump) OnLoadingFailed(e *proto.NetworkLoadingFailed, sid proto.TargetSessionID) {
	p.tracker.Failed(p.TargetID(sid), string(e.RequestID), string(e.BlockedReason))
}

// OnFrameNavigated resets the log on main-frame navigations.
func (p *Pump) OnFrameNavigated(e *proto.PageFrameNavigated, sid proto.TargetSessionID) {
	if e.Frame == nil || e.Frame.ParentID != "" {
		return
	}
	p.tracker.MainFrameNavigated(p.TargetID(sid))
}
