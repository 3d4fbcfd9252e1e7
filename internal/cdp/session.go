// Package cdp connects to a browser over the DevTools protocol and routes
// its events into the rest of dtf.
package cdp

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// ErrNoEndpoint is returned when no debugger URL is given and launching is off.
var ErrNoEndpoint = errors.New("no debugger url; pass --url or --launch")

// Options controls how a session is opened.
type Options struct {
	URL      string // ws:// or http:// debugger endpoint
	Launch   bool   // start a local browser when URL is empty
	Headless bool
	Logger   *zap.Logger
}

// Session is a connection to one browser.
type Session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	logger   *zap.Logger
}

// Connect opens a session. The connection lives until ctx is done or Close
// is called.
func Connect(ctx context.Context, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Session{logger: logger}
	u := opts.URL
	if u == "" {
		if !opts.Launch {
			return nil, ErrNoEndpoint
		}
		s.launcher = launcher.New().Context(ctx).Headless(opts.Headless)
		var err error
		if u, err = s.launcher.Launch(); err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		logger.Debug("browser launched", zap.String("url", u), zap.Int("pid", s.launcher.PID()))
	} else if resolved, err := launcher.ResolveURL(u); err == nil {
		u = resolved
	} else {
		return nil, fmt.Errorf("resolve %s: %w", u, err)
	}

	s.browser = rod.New().Context(ctx).ControlURL(u)
	if err := s.browser.Connect(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("connect %s: %w", u, err)
	}
	logger.Debug("connected", zap.String("url", u))
	return s, nil
}

// Client returns the browser-level client.
func (s *Session) Client() proto.Client {
	return s.browser
}

// SessionClient returns a client bound to an attached target session.
func (s *Session) SessionClient(sid proto.TargetSessionID) proto.Client {
	return s.browser.PageFromSession(sid)
}

// Run auto-attaches to every target and feeds pump until ctx is done.
func (s *Session) Run(ctx context.Context, pump *Pump) error {
	b := s.browser.Context(ctx)
	wait := b.EachEvent(pump.Callbacks()...)

	err := proto.TargetSetAutoAttach{
		AutoAttach:             true,
		WaitForDebuggerOnStart: false,
		Flatten:                true,
	}.Call(b)
	if err != nil {
		return fmt.Errorf("auto attach: %w", err)
	}

	wait()
	return ctx.Err()
}

// Close disconnects and stops a launched browser.
func (s *Session) Close() error {
	var err error
	if s.launcher != nil {
		err = s.browser.Close()
	}
	s.cleanup()
	return err
}

func (s *Session) cleanup() {
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
}

// PrepareTarget enables the domains dtf listens to on a new session.
// Domains a target does not support are skipped.
func PrepareTarget(client proto.Client) error {
	var errs []error
	if err := (proto.NetworkEnable{}).Call(client); err != nil {
		errs = append(errs, err)
	}
	if err := (proto.PageEnable{}).Call(client); err != nil {
		errs = append(errs, err)
	}
	// Autofill is page-only and experimental.
	_ = proto.AutofillEnable{}.Call(client)
	return errors.Join(errs...)
}
