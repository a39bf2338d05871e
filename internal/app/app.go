// Package app provides the main application structure for staywatch.
// It wires the portal client, session manager, report pipeline,
// delivery channels, scheduler, and operator console together and
// manages their lifecycle.
package app

import (
	"context"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/paradisestayz/staywatch/internal/config"
	"github.com/paradisestayz/staywatch/internal/console"
	"github.com/paradisestayz/staywatch/internal/fetcher"
	"github.com/paradisestayz/staywatch/internal/logger"
	"github.com/paradisestayz/staywatch/internal/notify"
	"github.com/paradisestayz/staywatch/internal/pipeline"
	"github.com/paradisestayz/staywatch/internal/portal"
	"github.com/paradisestayz/staywatch/internal/runlog"
	"github.com/paradisestayz/staywatch/internal/scheduler"
	"github.com/paradisestayz/staywatch/internal/session"
)

// Options tweak how the daemon runs.
type Options struct {
	// TestMode replaces the daily schedule with a short fixed interval
	// so a deployment can be verified without waiting for morning.
	TestMode bool

	// Console attaches the interactive operator console to stdin.
	Console bool

	// RunOnStart queues the named job immediately after startup.
	RunOnStart scheduler.JobKind

	// Metrics overrides the Prometheus registry; nil means the default
	// registerer.
	Metrics prometheus.Registerer
}

// App holds references to all major components and manages their
// lifecycle.
type App struct {
	config  *config.Config
	logger  *logger.Logger
	options Options

	portal     *portal.Client
	sessions   *session.Manager
	fetcher    *fetcher.Fetcher
	dispatcher *notify.Dispatcher
	pipeline   *pipeline.Pipeline
	runLog     *runlog.Log
	scheduler  *scheduler.Scheduler
	console    *console.Console

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
}

// New creates an App. Components are built in Initialize.
func New(cfg *config.Config, log *logger.Logger, opts Options) *App {
	return &App{
		config:  cfg,
		logger:  log,
		options: opts,
	}
}

// Run starts the daemon and blocks until the context is cancelled, then
// shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if err := a.Initialize(ctx); err != nil {
		return err
	}

	if a.options.RunOnStart != "" {
		a.scheduler.Trigger(a.options.RunOnStart)
	}

	if a.options.Console {
		go a.console.Run(a.ctx)
	}

	a.logger.Info("staywatch is running")

	<-ctx.Done()
	return a.Shutdown()
}

// RunOnce executes a single report job and exits without starting the
// scheduler. Used by the run subcommand.
func (a *App) RunOnce(ctx context.Context, kind scheduler.JobKind) error {
	if err := a.buildCore(ctx); err != nil {
		return err
	}
	return a.pipeline.RunJob(ctx, kind)
}

// Sessions exposes the session manager for the login subcommand.
func (a *App) Sessions(ctx context.Context) (*session.Manager, error) {
	if err := a.buildCore(ctx); err != nil {
		return nil, err
	}
	return a.sessions, nil
}

// Stdin is the console input; a variable so tests can swap it.
var Stdin = os.Stdin
