package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paradisestayz/staywatch/internal/logger"
	"github.com/paradisestayz/staywatch/internal/runlog"
	"github.com/paradisestayz/staywatch/internal/session"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   []JobKind
	started chan struct{}
	release chan struct{}
	err     error
	panics  bool
}

func (r *fakeRunner) RunJob(ctx context.Context, kind JobKind) error {
	r.mu.Lock()
	r.calls = append(r.calls, kind)
	r.mu.Unlock()

	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.release != nil {
		<-r.release
	}
	if r.panics {
		panic("report pipeline blew up")
	}
	return r.err
}

func (r *fakeRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type fakeKeeper struct {
	mu    sync.Mutex
	alive bool
	err   error
}

func (k *fakeKeeper) Heartbeat(ctx context.Context) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.alive, k.err
}

func (k *fakeKeeper) Alive() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.alive
}

func (k *fakeKeeper) set(alive bool, err error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.alive = alive
	k.err = err
}

type fakeEscalator struct {
	mu      sync.Mutex
	reasons []string
}

func (e *fakeEscalator) Escalate(ctx context.Context, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reasons = append(e.reasons, reason)
}

func (e *fakeEscalator) all() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.reasons...)
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	return log
}

// neverSpec keeps cron quiet so tests drive runs through Trigger only.
const neverSpec = "0 0 1 1 *"

func newTestScheduler(t *testing.T, runner Runner, keeper SessionKeeper, esc Escalator, heartbeat time.Duration, runLog *runlog.Log) *Scheduler {
	t.Helper()
	metrics := InitMetrics("staywatch_test", prometheus.NewRegistry())
	s := NewScheduler(Config{
		DailySpec:         neverSpec,
		WeeklySpec:        neverSpec,
		Location:          time.UTC,
		HeartbeatInterval: heartbeat,
	}, runner, keeper, esc, runLog, metrics, testLogger(t))

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func waitIdle(t *testing.T, s *Scheduler, kind JobKind) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, st := range s.Status() {
			if st.Kind == kind {
				return st.State == "idle" && st.LastOutcome != ""
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_CoalescesOverlappingTriggers(t *testing.T) {
	runner := &fakeRunner{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	s := newTestScheduler(t, runner, &fakeKeeper{alive: true}, &fakeEscalator{}, time.Hour, nil)

	assert.True(t, s.Trigger(JobDaily))
	<-runner.started

	// The job is running; these collapse into the in-flight run.
	assert.False(t, s.Trigger(JobDaily))
	assert.False(t, s.Trigger(JobDaily))

	close(runner.release)
	waitIdle(t, s, JobDaily)

	assert.Equal(t, 1, runner.callCount())

	// Once idle again, a fresh trigger is accepted.
	runner.release = nil
	runner.started = nil
	assert.True(t, s.Trigger(JobDaily))
}

func TestScheduler_JobsRunIndependently(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestScheduler(t, runner, &fakeKeeper{alive: true}, &fakeEscalator{}, time.Hour, nil)

	assert.True(t, s.Trigger(JobDaily))
	assert.True(t, s.Trigger(JobWeekly))

	waitIdle(t, s, JobDaily)
	waitIdle(t, s, JobWeekly)
	assert.Equal(t, 2, runner.callCount())
}

func TestScheduler_FailedRunEscalatesAndStaysEligible(t *testing.T) {
	runner := &fakeRunner{err: assert.AnError}
	esc := &fakeEscalator{}
	path := filepath.Join(t.TempDir(), "runs.log")
	runLog, err := runlog.New(path)
	require.NoError(t, err)

	s := newTestScheduler(t, runner, &fakeKeeper{alive: true}, esc, time.Hour, runLog)

	require.True(t, s.Trigger(JobDaily))
	waitIdle(t, s, JobDaily)

	reasons := esc.all()
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "daily report run failed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "outcome=failed")

	// Failure does not wedge the job.
	runner.err = nil
	require.True(t, s.Trigger(JobDaily))
	require.Eventually(t, func() bool { return runner.callCount() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_RecoversFromPanic(t *testing.T) {
	runner := &fakeRunner{panics: true}
	esc := &fakeEscalator{}
	s := newTestScheduler(t, runner, &fakeKeeper{alive: true}, esc, time.Hour, nil)

	require.True(t, s.Trigger(JobWeekly))
	waitIdle(t, s, JobWeekly)

	reasons := esc.all()
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "job panicked")

	for _, st := range s.Status() {
		if st.Kind == JobWeekly {
			assert.Contains(t, st.LastOutcome, "failed")
		}
	}
}

func TestScheduler_HeartbeatEscalatesOncePerOutage(t *testing.T) {
	keeper := &fakeKeeper{alive: false, err: session.ErrNoCredentials}
	esc := &fakeEscalator{}
	newTestScheduler(t, &fakeRunner{}, keeper, esc, 10*time.Millisecond, nil)

	require.Eventually(t, func() bool { return len(esc.all()) == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, esc.all(), 1, "repeated expired heartbeats must not re-page")

	// Recovery re-arms the page.
	keeper.set(true, nil)
	time.Sleep(50 * time.Millisecond)
	keeper.set(false, session.ErrNoCredentials)

	require.Eventually(t, func() bool { return len(esc.all()) == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_RunLogRecordsCoalescedTriggers(t *testing.T) {
	runner := &fakeRunner{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	path := filepath.Join(t.TempDir(), "runs.log")
	runLog, err := runlog.New(path)
	require.NoError(t, err)

	s := newTestScheduler(t, runner, &fakeKeeper{alive: true}, &fakeEscalator{}, time.Hour, runLog)

	require.True(t, s.Trigger(JobDaily))
	<-runner.started
	require.False(t, s.Trigger(JobDaily))
	close(runner.release)
	waitIdle(t, s, JobDaily)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "outcome=coalesced"))
	assert.True(t, strings.Contains(string(data), "outcome=success"))
}
