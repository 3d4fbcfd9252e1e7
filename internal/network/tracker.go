package network

import (
	"sync"
	"time"

	"github.com/marcus/dtf/internal/events"
	"github.com/marcus/dtf/internal/models"
)

type requestKey struct {
	targetID  string
	requestID string
}

// RequestTracker correlates request start and end notifications into
// finished requests and turns main-frame navigations into log resets.
type RequestTracker struct {
	requests *events.Bus[models.NetworkRequest]
	resets   *events.Bus[models.LogReset]
	now      func() time.Time

	mu          sync.Mutex
	pending     map[requestKey]string // url by request
	preserveLog bool
}

// NewRequestTracker creates a tracker publishing to the given buses.
func NewRequestTracker(requests *events.Bus[models.NetworkRequest], resets *events.Bus[models.LogReset], preserveLog bool) *RequestTracker {
	return &RequestTracker{
		requests:    requests,
		resets:      resets,
		now:         time.Now,
		pending:     make(map[requestKey]string),
		preserveLog: preserveLog,
	}
}

// SetPreserveLog controls whether navigations reset the log.
func (t *RequestTracker) SetPreserveLog(preserve bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.preserveLog = preserve
}

// WillBeSent records the URL of a request. A redirect reuses the request id
// and replaces the URL.
func (t *RequestTracker) WillBeSent(targetID, requestID, url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[requestKey{targetID, requestID}] = url
}

// Finished publishes a request that loaded.
func (t *RequestTracker) Finished(targetID, requestID string) {
	t.finish(targetID, requestID, "")
}

// Failed publishes a request that failed. A non-empty blockedReason marks
// it as blocked.
func (t *RequestTracker) Failed(targetID, requestID, blockedReason string) {
	t.finish(targetID, requestID, blockedReason)
}

func (t *RequestTracker) finish(targetID, requestID, blockedReason string) {
	key := requestKey{targetID, requestID}
	t.mu.Lock()
	url, ok := t.pending[key]
	delete(t.pending, key)
	t.mu.Unlock()
	if !ok {
		return
	}
	t.requests.Publish(models.NetworkRequest{
		RequestID:     requestID,
		TargetID:      targetID,
		URL:           url,
		WasBlocked:    blockedReason != "",
		BlockedReason: blockedReason,
		FinishedAt:    t.now(),
	})
}

// MainFrameNavigated resets the log for targetID unless the log is preserved.
func (t *RequestTracker) MainFrameNavigated(targetID string) {
	t.mu.Lock()
	if t.preserveLog {
		t.mu.Unlock()
		return
	}
	for k := range t.pending {
		if k.targetID == targetID {
			delete(t.pending, k)
		}
	}
	t.mu.Unlock()
	t.resets.Publish(models.LogReset{TargetID: targetID})
}

// Clear resets the log on user request, even when the log is preserved.
func (t *RequestTracker) Clear() {
	t.mu.Lock()
	t.pending = make(map[requestKey]string)
	t.mu.Unlock()
	t.resets.Publish(models.LogReset{ClearIfPreserved: true})
}

// Pending returns how many requests are in flight.
func (t *RequestTracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
