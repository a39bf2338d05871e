package app

import (
	"context"
	"fmt"
	"os"
	"time"

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

// buildCore constructs everything needed to run one report job: portal
// client, session manager, fetcher, delivery channels, and pipeline.
func (a *App) buildCore(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.portal != nil {
		return nil
	}

	// 1. Portal client
	client, err := portal.New(portal.Config{
		BaseURL:        a.config.Portal.BaseURL,
		CustomerID:     a.config.Portal.CustomerID,
		TimeoutSeconds: a.config.Portal.TimeoutSeconds,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create portal client: %w", err)
	}
	a.portal = client

	// 2. Session manager, restored from disk if a previous run left state
	a.sessions = session.NewManager(client, a.config.Session.StatePath, session.Credentials{
		Username: a.config.Credentials.Username,
		Password: a.config.Credentials.Password,
	}, a.logger)

	result, err := a.sessions.Restore()
	if err != nil {
		a.logger.Warn("session state not restored",
			logger.Field{Key: "result", Value: result.String()},
			logger.Field{Key: "error", Value: err.Error()})
	} else {
		a.logger.Info("session state restored", logger.Field{Key: "result", Value: result.String()})
	}

	if !a.sessions.Alive() && a.sessions.HasCredentials() {
		if err := a.sessions.Login(ctx); err != nil {
			// Not fatal: the heartbeat keeps retrying and escalates if
			// the portal stays unreachable.
			a.logger.Warn("startup login failed", logger.Field{Key: "error", Value: err.Error()})
		}
	}

	// 3. Report fetcher
	a.fetcher = fetcher.New(a.sessions, fetcher.Config{
		DownloadDir: a.config.Downloads.Dir,
		MaxAttempts: a.config.Downloads.MaxAttempts,
		Backoff:     time.Duration(a.config.Downloads.BackoffSeconds) * time.Second,
		MaxBackoff:  time.Duration(a.config.Downloads.MaxBackoffSeconds) * time.Second,
	}, a.logger)

	// 4. Delivery channels
	dispatcher, err := buildDispatcher(a.config, a.logger)
	if err != nil {
		return err
	}
	a.dispatcher = dispatcher

	// 5. Pipeline
	loc, err := a.config.Schedule.Location()
	if err != nil {
		return fmt.Errorf("failed to load timezone: %w", err)
	}
	a.pipeline = pipeline.New(a.fetcher, a.dispatcher, loc, a.logger)

	return nil
}

// Initialize builds the full daemon on top of the core: run log,
// scheduler, and operator console.
func (a *App) Initialize(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(ctx)

	if err := a.buildCore(a.ctx); err != nil {
		return err
	}

	// 6. Run outcome log
	runLog, err := runlog.New(a.config.RunLog.Path)
	if err != nil {
		return fmt.Errorf("failed to create run log: %w", err)
	}
	a.runLog = runLog

	// 7. Scheduler
	loc, err := a.config.Schedule.Location()
	if err != nil {
		return fmt.Errorf("failed to load timezone: %w", err)
	}

	dailySpec, err := a.config.Schedule.DailyCronSpec()
	if err != nil {
		return fmt.Errorf("invalid daily schedule: %w", err)
	}
	weeklySpec, err := a.config.Schedule.WeeklyCronSpec()
	if err != nil {
		return fmt.Errorf("invalid weekly schedule: %w", err)
	}
	if a.options.TestMode {
		// Accelerated verification schedule: the daily job fires every
		// few minutes and the weekly job stays quiet.
		dailySpec = a.config.Schedule.TestCronSpec()
		weeklySpec = ""
		a.logger.Warn("test mode: daily job runs on interval", logger.Field{Key: "spec", Value: dailySpec})
	}

	metrics := scheduler.InitMetrics("staywatch", a.options.Metrics)
	a.scheduler = scheduler.NewScheduler(scheduler.Config{
		DailySpec:         dailySpec,
		WeeklySpec:        weeklySpec,
		Location:          loc,
		HeartbeatInterval: time.Duration(a.config.Session.HeartbeatMinutes) * time.Minute,
	}, a.pipeline, a.sessions, a.dispatcher, a.runLog, metrics, a.logger)

	if err := a.scheduler.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// 8. Operator console
	if a.options.Console {
		a.console = console.New(Stdin, os.Stdout, a.scheduler, a.sessions, a.logger)
	}

	a.mu.Lock()
	a.started = true
	a.mu.Unlock()

	return nil
}

// buildDispatcher assembles the enabled sinks and the escalation lane.
func buildDispatcher(cfg *config.Config, log *logger.Logger) (*notify.Dispatcher, error) {
	var sinks []notify.Sink

	if cfg.Notify.Email.Enabled {
		sinks = append(sinks, notify.NewEmailSink(notify.EmailConfig{
			SMTPHost: cfg.Notify.Email.SMTPHost,
			SMTPPort: cfg.Notify.Email.SMTPPort,
			From:     cfg.Notify.Email.From,
			Password: cfg.Notify.Email.Password,
			To:       cfg.Notify.Email.To,
			CC:       cfg.Notify.Email.CC,
		}, log))
	}

	if cfg.Notify.SMS.Enabled {
		sinks = append(sinks, notify.NewSMSSink(notify.SMSConfig{
			APIURL:         cfg.Notify.SMS.APIURL,
			APIKey:         cfg.Notify.SMS.APIKey,
			Recipients:     cfg.Notify.SMS.Recipients,
			TimeoutSeconds: cfg.Notify.SMS.TimeoutSeconds,
		}, log))
	}

	if cfg.Notify.Telegram.Enabled {
		tg, err := notify.NewTelegramSink(notify.TelegramConfig{
			Token:              cfg.Notify.Telegram.Token,
			ChatIDs:            cfg.Notify.Telegram.ChatIDs,
			SendTimeoutSeconds: cfg.Notify.Telegram.SendTimeoutSeconds,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create telegram sink: %w", err)
		}
		sinks = append(sinks, tg)
	}

	var escalation []notify.Sink
	if len(cfg.Escalation.Recipients) > 0 {
		escalation = append(escalation, notify.NewSMSSink(notify.SMSConfig{
			APIURL:         cfg.Notify.SMS.APIURL,
			APIKey:         cfg.Notify.SMS.APIKey,
			Recipients:     cfg.Escalation.Recipients,
			TimeoutSeconds: cfg.Notify.SMS.TimeoutSeconds,
		}, log))
	}

	return notify.NewDispatcher(sinks, cfg.Notify.PrimaryChannel(), escalation, log), nil
}
