// Package cdptest provides an in-memory protocol client for tests.
package cdptest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-rod/rod/lib/proto"
)

// Call is one recorded protocol call.
type Call struct {
	SessionID string
	Method    string
	Params    json.RawMessage
}

// Handler answers a call. The returned value is marshaled as the result.
type Handler func(params json.RawMessage) (any, error)

// Client records calls and answers them from registered handlers.
// Methods without a handler succeed with an empty result.
type Client struct {
	ctx       context.Context
	sessionID proto.TargetSessionID

	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Call
}

var (
	_ proto.Client      = (*Client)(nil)
	_ proto.Sessionable = (*Client)(nil)
	_ proto.Contextable = (*Client)(nil)
)

// New creates a client bound to sessionID.
func New(sessionID string) *Client {
	return &Client{
		ctx:       context.Background(),
		sessionID: proto.TargetSessionID(sessionID),
		handlers:  make(map[string]Handler),
	}
}

// Handle registers h for method.
func (c *Client) Handle(method string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[method] = h
}

// Respond makes method return result.
func (c *Client) Respond(method string, result any) {
	c.Handle(method, func(json.RawMessage) (any, error) { return result, nil })
}

// Fail makes method return err.
func (c *Client) Fail(method string, err error) {
	c.Handle(method, func(json.RawMessage) (any, error) { return nil, err })
}

// Call implements proto.Client.
func (c *Client) Call(ctx context.Context, sessionID, method string, params interface{}) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.calls = append(c.calls, Call{SessionID: sessionID, Method: method, Params: raw})
	h := c.handlers[method]
	c.mu.Unlock()

	if h == nil {
		return []byte("{}"), nil
	}
	res, err := h(raw)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(res)
}

// GetSessionID implements proto.Sessionable.
func (c *Client) GetSessionID() proto.TargetSessionID {
	return c.sessionID
}

// GetContext implements proto.Contextable.
func (c *Client) GetContext() context.Context {
	return c.ctx
}

// Calls returns every recorded call.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// CallsTo returns the recorded calls to method.
func (c *Client) CallsTo(method string) []Call {
	var out []Call
	for _, call := range c.Calls() {
		if call.Method == method {
			out = append(out, call)
		}
	}
	return out
}
