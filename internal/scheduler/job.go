package scheduler

import (
	"sync"
	"sync/atomic"
	"time"
)

// JobKind identifies one of the scheduled report jobs.
type JobKind string

const (
	JobDaily  JobKind = "daily"
	JobWeekly JobKind = "weekly"
)

// Job execution states. Transitions are strictly
// idle -> queued -> running -> idle; a trigger arriving outside the
// idle state is coalesced into the pending or in-flight run.
const (
	stateIdle int32 = iota
	stateQueued
	stateRunning
)

func stateName(s int32) string {
	switch s {
	case stateQueued:
		return "queued"
	case stateRunning:
		return "running"
	default:
		return "idle"
	}
}

// jobState tracks one job's execution state and last outcome.
type jobState struct {
	kind  JobKind
	state atomic.Int32

	mu          sync.Mutex
	lastRunAt   time.Time
	lastOutcome string
}

func newJobState(kind JobKind) *jobState {
	return &jobState{kind: kind}
}

func (j *jobState) recordOutcome(at time.Time, outcome string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.lastRunAt = at
	j.lastOutcome = outcome
}

// JobStatus is a point-in-time snapshot of one job, for the status
// console command.
type JobStatus struct {
	Kind        JobKind
	State       string
	LastRunAt   time.Time
	LastOutcome string
}

func (j *jobState) snapshot() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobStatus{
		Kind:        j.kind,
		State:       stateName(j.state.Load()),
		LastRunAt:   j.lastRunAt,
		LastOutcome: j.lastOutcome,
	}
}
