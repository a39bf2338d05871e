// Package console gives the operator a tiny line-based control surface
// on the daemon's stdin: trigger runs, check status, re-login when the
// portal session has expired.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/paradisestayz/staywatch/internal/logger"
	"github.com/paradisestayz/staywatch/internal/scheduler"
)

// Triggerer is the slice of the scheduler the console drives.
type Triggerer interface {
	Trigger(kind scheduler.JobKind) bool
	Status() []scheduler.JobStatus
}

// SessionControl is the slice of the session manager the console drives.
type SessionControl interface {
	LoginWith(ctx context.Context, username, password string) error
	Alive() bool
	LastChecked() time.Time
}

// Console reads commands line by line until its input closes or the
// context is cancelled.
type Console struct {
	in       *bufio.Scanner
	out      io.Writer
	sched    Triggerer
	sessions SessionControl
	logger   *logger.Logger
}

func New(in io.Reader, out io.Writer, sched Triggerer, sessions SessionControl, log *logger.Logger) *Console {
	return &Console{
		in:       bufio.NewScanner(in),
		out:      out,
		sched:    sched,
		sessions: sessions,
		logger:   log,
	}
}

// Run processes commands until EOF. A bare ENTER triggers the daily run,
// matching what night staff expect from the terminal.
func (c *Console) Run(ctx context.Context) {
	fmt.Fprintln(c.out, "staywatch console ready (type 'help' for commands, ENTER to run the daily report)")

	for c.in.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := strings.TrimSpace(c.in.Text())
		switch {
		case line == "" || line == "run daily now":
			c.trigger(scheduler.JobDaily)
		case line == "run weekly now":
			c.trigger(scheduler.JobWeekly)
		case line == "status":
			c.printStatus()
		case line == "login":
			c.login(ctx)
		case line == "help":
			c.printHelp()
		default:
			fmt.Fprintf(c.out, "unknown command: %q\n", line)
			c.printHelp()
		}
	}
}

func (c *Console) trigger(kind scheduler.JobKind) {
	if c.sched.Trigger(kind) {
		fmt.Fprintf(c.out, "%s run queued\n", kind)
	} else {
		fmt.Fprintf(c.out, "%s run already queued or running\n", kind)
	}
}

func (c *Console) printStatus() {
	if c.sessions.Alive() {
		fmt.Fprintf(c.out, "session: alive (last checked %s)\n", formatChecked(c.sessions.LastChecked()))
	} else {
		fmt.Fprintf(c.out, "session: expired (last checked %s)\n", formatChecked(c.sessions.LastChecked()))
	}

	for _, st := range c.sched.Status() {
		last := "never"
		if !st.LastRunAt.IsZero() {
			last = fmt.Sprintf("%s (%s)", st.LastRunAt.Format(time.RFC3339), st.LastOutcome)
		}
		fmt.Fprintf(c.out, "%-7s %-8s last run: %s\n", st.Kind, st.State, last)
	}
}

func formatChecked(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(time.RFC3339)
}

// login prompts for credentials on the same terminal. The password is
// echoed; this runs on an operations box, not a shared shell.
func (c *Console) login(ctx context.Context) {
	username, ok := c.prompt("username: ")
	if !ok {
		return
	}
	password, ok := c.prompt("password: ")
	if !ok {
		return
	}

	if err := c.sessions.LoginWith(ctx, username, password); err != nil {
		fmt.Fprintf(c.out, "login failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "login succeeded, session saved")
}

func (c *Console) prompt(label string) (string, bool) {
	fmt.Fprint(c.out, label)
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

func (c *Console) printHelp() {
	fmt.Fprint(c.out, `commands:
  run daily now    queue the daily report run (ENTER does the same)
  run weekly now   queue the weekly report run
  status           show session and job state
  login            re-authenticate with the portal
  help             show this help
`)
}
