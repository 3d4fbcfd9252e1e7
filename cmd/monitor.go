package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-rod/rod/lib/proto"
	"github.com/marcus/dtf/internal/autofill"
	"github.com/marcus/dtf/internal/bouncetracking"
	"github.com/marcus/dtf/internal/cdp"
	"github.com/marcus/dtf/internal/config"
	"github.com/marcus/dtf/internal/db"
	"github.com/marcus/dtf/internal/events"
	"github.com/marcus/dtf/internal/models"
	"github.com/marcus/dtf/internal/network"
	"github.com/marcus/dtf/internal/output"
	"github.com/marcus/dtf/internal/targets"
	"github.com/marcus/dtf/pkg/monitor"
	"github.com/marcus/dtf/pkg/monitor/keymap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// programViews reveals views by sending them to the running dashboard.
type programViews struct {
	p *tea.Program
}

func (v programViews) ShowView(_ context.Context, viewID string) error {
	v.p.Send(monitor.ShowViewMsg{ViewID: viewID})
	return nil
}

var monitorCmd = &cobra.Command{
	Use:     "monitor",
	Aliases: []string{"m"},
	Short:   "Live dashboard attached to a browser",
	Long: `Attach to a browser and show, as they happen:
- Autofill: filled address forms with the text each field produced
- Blocking: request blocking patterns and how many requests each blocked
- Bounce: forced bounce tracking mitigations runs

Key bindings:
  Tab/Shift+Tab  Switch panels
  1/2/3          Jump to panel
  j/k            Move selection
  /              Filter autofill events
  space          Toggle the selected pattern
  x              Remove the selected pattern
  b              Toggle request blocking
  c              Clear the network log
  f              Force bounce tracking mitigations
  ?              Toggle help
  q              Quit

Key bindings can be overridden in .dtf/keymap.json.`,
	GroupID: "core",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := getBaseDir()

		cfg, debug, err := loadConfig(cmd)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		logger, err := newLogger(debug, true)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer logger.Sync()

		database, err := db.Initialize(baseDir)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer database.Close()

		interval, _ := cmd.Flags().GetDuration("interval")
		if !cmd.Flags().Changed("interval") {
			interval = config.RefreshInterval(cfg)
		}
		if interval < 100*time.Millisecond {
			interval = config.DefaultRefreshInterval
		}

		queue := config.BusQueueSize(cfg)
		autofillBus := events.NewBus[models.AddressFormFilledEvent](events.KindAddressFormFilled, queue)
		requestBus := events.NewBus[models.NetworkRequest](events.KindRequestFinished, queue)
		resetBus := events.NewBus[models.LogReset](events.KindLogReset, queue)
		scopeBus := events.NewBus[targets.ScopeChange](events.KindScopeChanged, queue)
		patternBus := events.NewBus[[]models.BlockedPattern](events.KindBlockedPatternsSet, queue)
		bounceBus := events.NewBus[models.BounceRun](events.KindMitigationsRan, queue)
		defer func() {
			for _, metrics := range []func() events.Metrics{autofillBus.Metrics, requestBus.Metrics, resetBus.Metrics, scopeBus.Metrics, patternBus.Metrics, bounceBus.Metrics} {
				logBusMetrics(logger, metrics())
			}
			for _, closeBus := range []func(){autofillBus.Close, requestBus.Close, resetBus.Close, scopeBus.Close, patternBus.Close, bounceBus.Close} {
				closeBus()
			}
		}()

		// Subscribe before anything publishes.
		autofillSub := autofillBus.Subscribe("dashboard")
		paneRequests := requestBus.Subscribe("pane")
		recorderRequests := requestBus.Subscribe("recorder")
		paneResets := resetBus.Subscribe("pane")
		panePatterns := patternBus.Subscribe("pane")
		paneScopes := scopeBus.Subscribe("pane")
		dashboardScopes := scopeBus.Subscribe("dashboard")
		dashboardRuns := bounceBus.Subscribe("dashboard")

		tm := targets.NewManager(scopeBus)
		blocking := network.NewBlocking(cfg.RequestBlockingEnabled, cfg.BlockedPatterns, patternBus)
		pane := network.NewBlockedURLsPane(blocking, tm, logger)
		pane.Update()
		tracker := network.NewRequestTracker(requestBus, resetBus, cfg.PreserveLog)

		view := bouncetracking.NewView(bounceBus, database, logger)
		if last, ok, err := database.LastBounceRun(); err != nil {
			logger.Warn("load last bounce run", zap.Error(err))
		} else if ok {
			view.Restore(last)
		}

		history, err := database.ListAddressFormFilled(50)
		if err != nil {
			logger.Warn("load autofill history", zap.Error(err))
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		opts := connectOptions(cmd, cfg.DebuggerURL, cfg.Headless)
		opts.Logger = logger
		session, err := cdp.Connect(ctx, opts)
		if err != nil {
			output.Error("%v", err)
			return err
		}
		defer session.Close()

		autofillIn := make(chan models.AddressFormFilled, queue)
		pump := cdp.NewPump(autofillIn, tracker, tm, session.SessionClient,
			func(client proto.Client, t targets.Target) error {
				if err := cdp.PrepareTarget(client); err != nil {
					logger.Debug("prepare target", zap.String("target", t.ID), zap.Error(err))
				}
				return blocking.Apply(client)
			}, logger)

		applyAll := func() error {
			sids := pump.Sessions()
			clients := make([]proto.Client, 0, len(sids))
			for _, sid := range sids {
				clients = append(clients, session.SessionClient(sid))
			}
			return blocking.Apply(clients...)
		}

		km := keymap.NewRegistry()
		keymap.RegisterDefaults(km)
		if kcfg, err := keymap.LoadConfig(keymap.ConfigPath(baseDir)); err != nil {
			logger.Warn("load keymap", zap.Error(err))
		} else if skipped := keymap.ApplyConfig(km, kcfg); len(skipped) > 0 {
			logger.Warn("ignored keymap entries", zap.Strings("entries", skipped))
		}

		model := monitor.NewModel(monitor.Deps{
			Autofill: autofillSub.C(),
			History:  history,
			Blocking: blocking,
			Pane:     pane,
			Bounce:   view,
			Targets:  tm,

			Scope:      dashboardScopes.C(),
			BounceRuns: dashboardRuns.C(),

			ForceRun: func(ctx context.Context) (models.BounceRun, error) {
				return view.ForceRun(ctx, session.Client())
			},
			SaveBlocking: func(patterns []models.BlockedPattern, enabled bool) error {
				return config.Update(baseDir, func(c *models.Config) error {
					c.BlockedPatterns = patterns
					c.RequestBlockingEnabled = enabled
					return nil
				})
			},
			ApplyBlocking: applyAll,
			ClearLog:      tracker.Clear,
			Keymap:        km,
			Interval:      interval,
			Version:       versionStr,
		})

		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		pane.OnUpdate(func([]network.Row) { p.Send(monitor.PaneUpdatedMsg{}) })
		manager := autofill.NewManager(autofillBus, programViews{p}, logger,
			autofill.WithRecorder(database),
			autofill.WithMatcher(autofill.Matcher{FoldSeparators: !cfg.LiteralMatches}),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return session.Run(gctx, pump) })
		g.Go(func() error { return manager.Run(gctx, autofillIn) })
		g.Go(func() error {
			return pane.Run(gctx, network.Sources{
				Requests: paneRequests.C(),
				Resets:   paneResets.C(),
				Patterns: panePatterns.C(),
				Scopes:   paneScopes.C(),
			})
		})
		g.Go(func() error { return recordBlocked(gctx, database, blocking, recorderRequests.C(), logger) })
		g.Go(func() error {
			err := monitor.WatchConfig(gctx, baseDir, logger, func(c *models.Config) {
				tracker.SetPreserveLog(c.PreserveLog)
				p.Send(monitor.ConfigReloadedMsg{Config: c})
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				// The dashboard still works without live reload.
				logger.Warn("config watch stopped", zap.Error(err))
			}
			return nil
		})
		g.Go(func() error {
			defer cancel()
			if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return fmt.Errorf("error running monitor: %w", err)
			}
			return nil
		})
		go func() {
			// A browser that goes away ends the dashboard too.
			<-gctx.Done()
			p.Quit()
		}()

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			output.Error("%v", err)
			return err
		}
		return nil
	},
}

// logBusMetrics reports how many events a bus carried and dropped.
func logBusMetrics(logger *zap.Logger, m events.Metrics) {
	fields := []zap.Field{
		zap.String("kind", string(m.Kind)),
		zap.Uint64("published", m.Published),
		zap.Uint64("dropped", m.Dropped),
	}
	if m.Dropped == 0 {
		logger.Debug("event bus", fields...)
		return
	}
	for name, n := range m.Subscribers {
		if n > 0 {
			fields = append(fields, zap.Uint64("dropped_"+name, n))
		}
	}
	logger.Warn("event bus dropped events", fields...)
}

// recordBlocked stores every blocked request with the pattern that matched it.
func recordBlocked(ctx context.Context, database *db.DB, blocking *network.Blocking, requests <-chan models.NetworkRequest, logger *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-requests:
			if !ok {
				return nil
			}
			if !req.WasBlocked {
				continue
			}
			if err := database.RecordBlockedRequest(req, blocking.MatchingPattern(req.URL)); err != nil {
				logger.Warn("record blocked request", zap.String("url", req.URL), zap.Error(err))
			}
		}
	}
}

func init() {
	addConnectFlags(monitorCmd)
	monitorCmd.Flags().Duration("interval", config.DefaultRefreshInterval, "Refresh interval")
	rootCmd.AddCommand(monitorCmd)
}
