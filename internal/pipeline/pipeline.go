// Package pipeline runs one report job end to end: compute the date
// window, pull both movement reports from the portal, parse them, and
// hand the formatted result to the delivery channels.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/paradisestayz/staywatch/internal/fetcher"
	"github.com/paradisestayz/staywatch/internal/logger"
	"github.com/paradisestayz/staywatch/internal/notify"
	"github.com/paradisestayz/staywatch/internal/report"
	"github.com/paradisestayz/staywatch/internal/scheduler"
)

// Fetcher downloads one movement report as a raw payload.
type Fetcher interface {
	Fetch(ctx context.Context, req fetcher.Request) ([]byte, error)
}

// Dispatcher delivers the assembled message across the channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg notify.Message) []notify.Result
}

// Pipeline assembles and delivers occupancy reports. Clock is injectable
// for tests; nil means time.Now.
type Pipeline struct {
	fetcher    Fetcher
	dispatcher Dispatcher
	location   *time.Location
	logger     *logger.Logger
	now        func() time.Time
}

func New(f Fetcher, d Dispatcher, loc *time.Location, log *logger.Logger) *Pipeline {
	if loc == nil {
		loc = time.Local
	}
	return &Pipeline{
		fetcher:    f,
		dispatcher: d,
		location:   loc,
		logger:     log,
		now:        time.Now,
	}
}

// RunJob executes the daily or weekly report run. It returns an error
// when the report could not be fetched or parsed, or when every delivery
// channel failed; partial delivery failure is handled downstream by the
// dispatcher's escalation and is not an error here.
func (p *Pipeline) RunJob(ctx context.Context, kind scheduler.JobKind) error {
	from, to := p.window(kind)
	label := dateLabel(from, to)

	p.logger.Info("report run started",
		logger.Field{Key: "kind", Value: string(kind)},
		logger.Field{Key: "from", Value: from.Format("2006-01-02")},
		logger.Field{Key: "to", Value: to.Format("2006-01-02")})

	arrivals, arrivalsCSV, err := p.pull(ctx, report.Arrivals, from, to)
	if err != nil {
		return err
	}
	departures, departuresCSV, err := p.pull(ctx, report.Departures, from, to)
	if err != nil {
		return err
	}

	msg := notify.BuildReportMessage(label, arrivals, departures, []notify.Attachment{
		{
			Filename:    fetcher.AuditFilename(fetcher.Request{Movement: report.Arrivals, From: from, To: to}),
			ContentType: "text/csv",
			Data:        arrivalsCSV,
		},
		{
			Filename:    fetcher.AuditFilename(fetcher.Request{Movement: report.Departures, From: from, To: to}),
			ContentType: "text/csv",
			Data:        departuresCSV,
		},
	})

	results := p.dispatcher.Dispatch(ctx, msg)
	if notify.AllFailed(results) {
		return fmt.Errorf("all delivery channels failed: %s", notify.Summarize(results))
	}

	p.logger.Info("report delivered",
		logger.Field{Key: "kind", Value: string(kind)},
		logger.Field{Key: "arrivals", Value: len(arrivals)},
		logger.Field{Key: "departures", Value: len(departures)},
		logger.Field{Key: "channels", Value: notify.Summarize(results)})

	return nil
}

func (p *Pipeline) pull(ctx context.Context, movement report.Movement, from, to time.Time) ([]report.Record, []byte, error) {
	payload, err := p.fetcher.Fetch(ctx, fetcher.Request{Movement: movement, From: from, To: to})
	if err != nil {
		return nil, nil, fmt.Errorf("download %s: %w", movement, err)
	}

	records, err := report.Parse(payload, movement)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", movement, err)
	}

	return records, payload, nil
}

// window returns the inclusive date range a job covers. The daily job
// reports tomorrow; the weekly job reports the seven days starting
// tomorrow. Dates are computed on the property's wall clock.
func (p *Pipeline) window(kind scheduler.JobKind) (from, to time.Time) {
	now := p.now().In(p.location)
	tomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, p.location).AddDate(0, 0, 1)

	if kind == scheduler.JobWeekly {
		return tomorrow, tomorrow.AddDate(0, 0, 6)
	}
	return tomorrow, tomorrow
}

func dateLabel(from, to time.Time) string {
	if from.Equal(to) {
		return from.Format("2006-01-02")
	}
	return from.Format("2006-01-02") + " to " + to.Format("2006-01-02")
}
