package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paradisestayz/staywatch/internal/fetcher"
	"github.com/paradisestayz/staywatch/internal/logger"
	"github.com/paradisestayz/staywatch/internal/notify"
	"github.com/paradisestayz/staywatch/internal/report"
	"github.com/paradisestayz/staywatch/internal/scheduler"
)

const csvHeader = "Property,Room,Room Type,Guest,Adults,Children,Infants,Time\n"

type fakeFetcher struct {
	requests []fetcher.Request
	payloads map[report.Movement][]byte
	err      error
}

func (f *fakeFetcher) Fetch(ctx context.Context, req fetcher.Request) ([]byte, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.payloads[req.Movement], nil
}

type fakeDispatcher struct {
	messages []notify.Message
	results  []notify.Result
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, msg notify.Message) []notify.Result {
	d.messages = append(d.messages, msg)
	return d.results
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func newTestPipeline(t *testing.T, f *fakeFetcher, d *fakeDispatcher, now time.Time) *Pipeline {
	t.Helper()
	loc, err := time.LoadLocation("Australia/Brisbane")
	require.NoError(t, err)

	p := New(f, d, loc, testLogger(t))
	p.now = func() time.Time { return now }
	return p
}

func okPayloads() map[report.Movement][]byte {
	return map[report.Movement][]byte{
		report.Arrivals: []byte(csvHeader +
			"Paradise Stayz,12,Studio,Alice Chen,2,0,0,2:00 PM\n" +
			"Paradise Stayz,14,King Suite,Raj Patel,2,1,0,3:00 PM\n"),
		report.Departures: []byte(csvHeader +
			"Paradise Stayz,7,Studio,Morgan Lee,1,0,0,10:00 AM\n"),
	}
}

func TestRunJob_DailyWindowAndDelivery(t *testing.T) {
	f := &fakeFetcher{payloads: okPayloads()}
	d := &fakeDispatcher{results: []notify.Result{{Channel: "email", Sent: true}}}

	// 2026-08-29 23:30 Brisbane; tomorrow is the 30th.
	now := time.Date(2026, 8, 29, 23, 30, 0, 0, time.FixedZone("AEST", 10*3600))
	p := newTestPipeline(t, f, d, now)

	require.NoError(t, p.RunJob(context.Background(), scheduler.JobDaily))

	require.Len(t, f.requests, 2)
	assert.Equal(t, report.Arrivals, f.requests[0].Movement)
	assert.Equal(t, report.Departures, f.requests[1].Movement)
	for _, req := range f.requests {
		assert.Equal(t, "2026-08-30", req.From.Format("2006-01-02"))
		assert.Equal(t, "2026-08-30", req.To.Format("2006-01-02"))
	}

	require.Len(t, d.messages, 1)
	msg := d.messages[0]
	assert.Equal(t, "Tomorrow's Cleaning 2026-08-30: 2 checking in, 1 checking out", msg.Subject)

	require.Len(t, msg.Attachments, 2)
	assert.Equal(t, "arrivals_20260830.csv", msg.Attachments[0].Filename)
	assert.Equal(t, "departures_20260830.csv", msg.Attachments[1].Filename)
	assert.Equal(t, f.payloads[report.Arrivals], msg.Attachments[0].Data)
}

func TestRunJob_WeeklyWindow(t *testing.T) {
	f := &fakeFetcher{payloads: okPayloads()}
	d := &fakeDispatcher{results: []notify.Result{{Channel: "email", Sent: true}}}

	now := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)
	p := newTestPipeline(t, f, d, now)

	require.NoError(t, p.RunJob(context.Background(), scheduler.JobWeekly))

	require.Len(t, f.requests, 2)
	assert.Equal(t, "2026-08-30", f.requests[0].From.Format("2006-01-02"))
	assert.Equal(t, "2026-09-05", f.requests[0].To.Format("2006-01-02"))

	require.Len(t, d.messages, 1)
	assert.Contains(t, d.messages[0].Subject, "2026-08-30 to 2026-09-05")
}

func TestRunJob_FetchFailure(t *testing.T) {
	f := &fakeFetcher{err: fmt.Errorf("connection refused")}
	d := &fakeDispatcher{}
	p := newTestPipeline(t, f, d, time.Now())

	err := p.RunJob(context.Background(), scheduler.JobDaily)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download arrivals")
	assert.Empty(t, d.messages, "nothing is delivered on fetch failure")
}

func TestRunJob_ParseFailure(t *testing.T) {
	f := &fakeFetcher{payloads: map[report.Movement][]byte{
		report.Arrivals:   []byte("Room,Guest\n12,Alice\n"),
		report.Departures: []byte(csvHeader),
	}}
	d := &fakeDispatcher{}
	p := newTestPipeline(t, f, d, time.Now())

	err := p.RunJob(context.Background(), scheduler.JobDaily)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse arrivals")
	assert.Empty(t, d.messages)
}

func TestRunJob_AllChannelsFailed(t *testing.T) {
	f := &fakeFetcher{payloads: okPayloads()}
	d := &fakeDispatcher{results: []notify.Result{
		{Channel: "email", Sent: false, Err: fmt.Errorf("smtp down")},
		{Channel: "sms", Sent: false, Err: fmt.Errorf("api down")},
	}}
	p := newTestPipeline(t, f, d, time.Now())

	err := p.RunJob(context.Background(), scheduler.JobDaily)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all delivery channels failed")
}

func TestRunJob_PartialDeliveryIsNotAnError(t *testing.T) {
	f := &fakeFetcher{payloads: okPayloads()}
	d := &fakeDispatcher{results: []notify.Result{
		{Channel: "email", Sent: false, Err: fmt.Errorf("smtp down")},
		{Channel: "sms", Sent: true},
	}}
	p := newTestPipeline(t, f, d, time.Now())

	require.NoError(t, p.RunJob(context.Background(), scheduler.JobDaily))
}
