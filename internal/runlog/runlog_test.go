package runlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "staywatch.log")
	log, err := New(path)
	require.NoError(t, err)

	when := time.Date(2026, 8, 30, 8, 0, 12, 0, time.UTC)
	require.NoError(t, log.Append(Entry{
		Time:     when,
		Job:      "daily",
		Outcome:  OutcomeSuccess,
		Duration: 2500 * time.Millisecond,
	}))
	require.NoError(t, log.Append(Entry{
		Time:    when.Add(time.Minute),
		Job:     "weekly",
		Outcome: OutcomeFailed,
		Detail:  "download arrivals: connection refused",
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2026-08-30T08:00:12Z\tjob=daily\toutcome=success\tduration=2.5s", lines[0])
	assert.Equal(t, "2026-08-30T08:01:12Z\tjob=weekly\toutcome=failed\tdetail=download arrivals: connection refused", lines[1])
}

func TestLog_DetailStaysOneLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staywatch.log")
	log, err := New(path)
	require.NoError(t, err)

	require.NoError(t, log.Append(Entry{
		Job:     "daily",
		Outcome: OutcomeCoalesced,
		Detail:  "trigger dropped\nwhile run in progress",
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(string(data), "\n"))
	assert.Contains(t, string(data), "trigger dropped while run in progress")
}
