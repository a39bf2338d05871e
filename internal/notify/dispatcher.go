package notify

import (
	"context"
	"strings"

	"github.com/paradisestayz/staywatch/internal/logger"
)

// Dispatcher fans one message out to every configured channel. Channel
// attempts are independent: one failure never prevents the others. When
// the primary channel fails, the escalation path is notified exactly
// once with the failure reason.
type Dispatcher struct {
	sinks      []Sink
	primary    string
	escalation []Sink
	logger     *logger.Logger
}

// NewDispatcher builds a dispatcher. primary names the sink whose
// failure triggers escalation; escalation sinks are operator-facing and
// are attempted even when no regular sink is configured.
func NewDispatcher(sinks []Sink, primary string, escalation []Sink, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		sinks:      sinks,
		primary:    primary,
		escalation: escalation,
		logger:     log,
	}
}

// Dispatch sends msg on every channel and returns one Result per
// channel. A primary-channel failure escalates once, inside this call,
// unless every channel failed: total failure is reported by the caller
// as a run failure, which carries its own escalation.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) []Result {
	results := make([]Result, 0, len(d.sinks))

	var primaryErr error
	for _, sink := range d.sinks {
		err := sink.Send(ctx, msg)
		results = append(results, Result{
			Channel: sink.Name(),
			Sent:    err == nil,
			Err:     err,
		})

		if err != nil {
			d.logger.Error("channel delivery failed", err,
				logger.Field{Key: "channel", Value: sink.Name()})
			if sink.Name() == d.primary {
				primaryErr = err
			}
		} else {
			d.logger.Info("channel delivery succeeded",
				logger.Field{Key: "channel", Value: sink.Name()})
		}
	}

	// When every channel failed the caller fails the whole run, and the
	// run failure pages the operator. Escalating here as well would page
	// twice for the same outage.
	if primaryErr != nil && !AllFailed(results) {
		d.Escalate(ctx, "primary channel "+d.primary+" failed: "+primaryErr.Error())
	}

	return results
}

// Escalate notifies the operator on every escalation sink. Best effort:
// escalation failures are logged, never propagated, since there is
// nobody further to tell.
func (d *Dispatcher) Escalate(ctx context.Context, reason string) {
	msg := BuildEscalationMessage(reason)

	for _, sink := range d.escalation {
		if err := sink.Send(ctx, msg); err != nil {
			d.logger.Error("escalation delivery failed", err,
				logger.Field{Key: "channel", Value: sink.Name()})
			continue
		}
		d.logger.Warn("escalation sent",
			logger.Field{Key: "channel", Value: sink.Name()},
			logger.Field{Key: "reason", Value: reason})
	}
}

// AllFailed reports whether every channel attempt in results failed;
// total delivery failure fails the job.
func AllFailed(results []Result) bool {
	if len(results) == 0 {
		return true
	}
	for _, r := range results {
		if r.Sent {
			return false
		}
	}
	return true
}

// Summarize renders results as a short status line for the run log.
func Summarize(results []Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		status := "sent"
		if !r.Sent {
			status = "failed"
		}
		parts = append(parts, r.Channel+"="+status)
	}
	return strings.Join(parts, " ")
}
