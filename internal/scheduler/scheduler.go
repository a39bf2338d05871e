// Package scheduler fires the daily and weekly report jobs on a cron
// schedule, keeps the portal session alive with a heartbeat, and
// coalesces overlapping triggers so at most one run per job is ever in
// flight.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/paradisestayz/staywatch/internal/logger"
	"github.com/paradisestayz/staywatch/internal/runlog"
	"github.com/paradisestayz/staywatch/internal/session"
)

// Runner executes one report job end to end.
type Runner interface {
	RunJob(ctx context.Context, kind JobKind) error
}

// SessionKeeper is the slice of session.Manager the scheduler drives.
type SessionKeeper interface {
	Heartbeat(ctx context.Context) (bool, error)
	Alive() bool
}

// Escalator pages the on-call contact. Delivery is best effort.
type Escalator interface {
	Escalate(ctx context.Context, reason string)
}

// Config sets the cron expressions and heartbeat cadence. Specs are
// interpreted in Location.
type Config struct {
	DailySpec         string
	WeeklySpec        string
	Location          *time.Location
	HeartbeatInterval time.Duration
}

// Scheduler owns the cron entries, the trigger queue, and the heartbeat
// loop. All job executions happen on a single run loop goroutine, so two
// jobs never overlap each other either.
type Scheduler struct {
	cfg       Config
	runner    Runner
	keeper    SessionKeeper
	escalator Escalator
	runLog    *runlog.Log
	metrics   *Metrics
	logger    *logger.Logger

	cron     *cron.Cron
	triggers chan JobKind
	jobs     map[JobKind]*jobState

	// expiredEscalated makes the dead-session page fire once per
	// outage rather than once per heartbeat tick.
	expiredEscalated bool

	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	mu      sync.Mutex
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler. Start must be called before triggers
// are accepted.
func NewScheduler(cfg Config, runner Runner, keeper SessionKeeper, escalator Escalator, runLog *runlog.Log, metrics *Metrics, log *logger.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 10 * time.Minute
	}

	return &Scheduler{
		cfg:       cfg,
		runner:    runner,
		keeper:    keeper,
		escalator: escalator,
		runLog:    runLog,
		metrics:   metrics,
		logger:    log,
		triggers:  make(chan JobKind, 4),
		jobs: map[JobKind]*jobState{
			JobDaily:  newJobState(JobDaily),
			JobWeekly: newJobState(JobWeekly),
		},
	}
}

// Start registers the cron entries and launches the run and heartbeat
// loops. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	s.cron = cron.New(cron.WithLocation(s.cfg.Location))
	if _, err := s.cron.AddFunc(s.cfg.DailySpec, func() { s.Trigger(JobDaily) }); err != nil {
		return fmt.Errorf("invalid daily cron expression: %w", err)
	}
	if s.cfg.WeeklySpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.WeeklySpec, func() { s.Trigger(JobWeekly) }); err != nil {
			return fmt.Errorf("invalid weekly cron expression: %w", err)
		}
	}
	s.cron.Start()
	s.started = true

	s.wg.Add(2)
	go s.runLoop()
	go s.heartbeatLoop()

	s.logger.Info("scheduler started",
		logger.Field{Key: "daily", Value: s.cfg.DailySpec},
		logger.Field{Key: "weekly", Value: s.cfg.WeeklySpec},
		logger.Field{Key: "timezone", Value: s.cfg.Location.String()})

	return nil
}

// Stop cancels the loops and waits for any in-flight run to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("scheduler not started")
	}
	s.started = false
	s.cancel()
	cronCtx := s.cron.Stop()
	s.mu.Unlock()

	<-cronCtx.Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
	return nil
}

// Trigger requests a run of the given job. If the job is already queued
// or running, the trigger is coalesced into that run and Trigger
// returns false.
func (s *Scheduler) Trigger(kind JobKind) bool {
	s.mu.Lock()
	ctx, started := s.ctx, s.started
	s.mu.Unlock()

	job, ok := s.jobs[kind]
	if !ok || !started {
		s.logger.Warn("trigger ignored",
			logger.Field{Key: "kind", Value: string(kind)},
			logger.Field{Key: "started", Value: started})
		return false
	}

	if !job.state.CompareAndSwap(stateIdle, stateQueued) {
		s.logger.Info("trigger coalesced",
			logger.Field{Key: "kind", Value: string(kind)},
			logger.Field{Key: "state", Value: stateName(job.state.Load())})
		s.metrics.RecordCoalesced(kind)
		s.appendRunLog(runlog.Entry{
			Time:    time.Now(),
			Job:     string(kind),
			Outcome: runlog.OutcomeCoalesced,
			Detail:  "run already " + stateName(job.state.Load()),
		})
		return false
	}

	select {
	case s.triggers <- kind:
		return true
	case <-ctx.Done():
		job.state.Store(stateIdle)
		return false
	}
}

// Status reports the current state of every job.
func (s *Scheduler) Status() []JobStatus {
	return []JobStatus{
		s.jobs[JobDaily].snapshot(),
		s.jobs[JobWeekly].snapshot(),
	}
}

func (s *Scheduler) runLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case kind := <-s.triggers:
			s.execute(kind)
		}
	}
}

func (s *Scheduler) execute(kind JobKind) {
	job := s.jobs[kind]
	job.state.Store(stateRunning)
	defer job.state.Store(stateIdle)

	runID := uuid.NewString()
	s.logger.Info("job run started",
		logger.Field{Key: "kind", Value: string(kind)},
		logger.Field{Key: "run_id", Value: runID})

	start := time.Now()
	err := s.runJob(kind)
	duration := time.Since(start)

	if err != nil {
		s.logger.Error("job run failed", err,
			logger.Field{Key: "kind", Value: string(kind)},
			logger.Field{Key: "run_id", Value: runID},
			logger.Field{Key: "duration", Value: duration})
		job.recordOutcome(start, "failed: "+err.Error())
		s.metrics.RecordRun(kind, "failed", duration)
		s.appendRunLog(runlog.Entry{
			Time: start, Job: string(kind),
			Outcome: runlog.OutcomeFailed, Duration: duration, Detail: err.Error(),
		})
		s.escalate(fmt.Sprintf("%s report run failed: %v", kind, err))
		return
	}

	s.logger.Info("job run completed",
		logger.Field{Key: "kind", Value: string(kind)},
		logger.Field{Key: "run_id", Value: runID},
		logger.Field{Key: "duration", Value: duration})
	job.recordOutcome(start, "success")
	s.metrics.RecordRun(kind, "success", duration)
	s.appendRunLog(runlog.Entry{
		Time: start, Job: string(kind),
		Outcome: runlog.OutcomeSuccess, Duration: duration,
	})
}

// runJob isolates panics from the pipeline so one bad run cannot take
// the daemon down.
func (s *Scheduler) runJob(kind JobKind) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return s.runner.RunJob(s.ctx, kind)
}

func (s *Scheduler) heartbeatLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.heartbeat()
		}
	}
}

func (s *Scheduler) heartbeat() {
	alive, err := s.keeper.Heartbeat(s.ctx)
	s.metrics.SetSessionAlive(alive)

	switch {
	case err == nil && alive:
		s.metrics.RecordHeartbeat("alive")
		s.mu.Lock()
		s.expiredEscalated = false
		s.mu.Unlock()

	case errors.Is(err, session.ErrNoCredentials):
		s.metrics.RecordHeartbeat("expired")
		s.escalateOnce("portal session expired and no stored credentials; manual login required")

	case errors.Is(err, session.ErrAuth):
		s.metrics.RecordHeartbeat("expired")
		s.escalateOnce("portal session expired and stored credentials were rejected; manual login required")

	case err != nil:
		// Probe failure; the session belief is unchanged, retry next tick.
		s.metrics.RecordHeartbeat("error")
		s.logger.Warn("heartbeat probe failed", logger.Field{Key: "error", Value: err.Error()})
	}
}

// escalateOnce pages at most once per session outage; a later live
// heartbeat re-arms it.
func (s *Scheduler) escalateOnce(reason string) {
	s.mu.Lock()
	already := s.expiredEscalated
	s.expiredEscalated = true
	s.mu.Unlock()

	if !already {
		s.escalate(reason)
	}
}

func (s *Scheduler) escalate(reason string) {
	s.metrics.RecordEscalation()
	s.escalator.Escalate(s.ctx, reason)
}

func (s *Scheduler) appendRunLog(e runlog.Entry) {
	if s.runLog == nil {
		return
	}
	if err := s.runLog.Append(e); err != nil {
		s.logger.Warn("failed to append run log", logger.Field{Key: "error", Value: err.Error()})
	}
}
