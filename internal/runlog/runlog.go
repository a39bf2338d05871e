// Package runlog appends a one-line outcome record for every job run,
// so operators can reconstruct what the daemon did after the fact.
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Outcome is the terminal state of a single job run.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailed    Outcome = "failed"
	OutcomeCoalesced Outcome = "coalesced"
)

// Entry describes one completed (or dropped) run.
type Entry struct {
	Time     time.Time
	Job      string
	Outcome  Outcome
	Duration time.Duration
	Detail   string
}

// Log appends entries to a plain-text file, one line per run.
// Writes are serialized; a Log is safe for concurrent use.
type Log struct {
	mu   sync.Mutex
	path string
}

// New creates the run log, making the parent directory if needed.
func New(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create runlog dir: %w", err)
	}
	return &Log{path: path}, nil
}

// Append writes one entry. The file is opened per call so log rotation
// by external tooling never holds a stale handle.
func (l *Log) Append(e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open runlog: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatEntry(e)); err != nil {
		return fmt.Errorf("append runlog: %w", err)
	}
	return nil
}

func formatEntry(e Entry) string {
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\tjob=%s\toutcome=%s", ts.Format(time.RFC3339), e.Job, e.Outcome)
	if e.Duration > 0 {
		fmt.Fprintf(&b, "\tduration=%s", e.Duration.Round(time.Millisecond))
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, "\tdetail=%s", sanitizeDetail(e.Detail))
	}
	b.WriteByte('\n')
	return b.String()
}

// sanitizeDetail keeps the one-line-per-run property even when the
// detail came from a multi-line error.
func sanitizeDetail(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\t", " ")
}
