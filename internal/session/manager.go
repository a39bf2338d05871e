// Package session owns the authenticated portal session: it restores
// persisted state on startup, logs in, checks liveness, and serializes
// every use of the underlying session through one mutex lane, since the
// portal session handle is not safe for concurrent use.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/paradisestayz/staywatch/internal/logger"
	"github.com/paradisestayz/staywatch/internal/portal"
	"github.com/paradisestayz/staywatch/internal/report"
)

var (
	// ErrAuth marks authentication failures. Callers must never retry
	// through it; re-login or escalation is the session manager's job.
	ErrAuth = errors.New("portal authentication failed")

	// ErrExpired is returned to fetch callers when the session is known
	// to be dead, so in-flight work fails fast instead of retrying.
	ErrExpired = errors.New("portal session expired")

	// ErrNoCredentials signals that automatic re-login is impossible and
	// an interactive console login is required.
	ErrNoCredentials = errors.New("no portal credentials configured")
)

// RestoreResult classifies what Restore found on disk.
type RestoreResult int

const (
	RestoreMissing RestoreResult = iota
	RestoreCorrupt
	RestoreValid
)

func (r RestoreResult) String() string {
	switch r {
	case RestoreValid:
		return "valid"
	case RestoreCorrupt:
		return "corrupt"
	default:
		return "missing"
	}
}

// Portal is the external collaborator the manager drives.
type Portal interface {
	Login(ctx context.Context, username, password string) error
	IsAlive(ctx context.Context) (bool, error)
	Download(ctx context.Context, movement report.Movement, from, to time.Time) ([]byte, error)
	Cookies() []*http.Cookie
	SetCookies(cookies []*http.Cookie)
}

// Credentials optionally enables automatic (re-)login. An empty username
// means only interactive console login is available.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) configured() bool {
	return c.Username != ""
}

// Manager is the process-wide singleton holding the authenticated
// session. All exported methods serialize on one mutex: a heartbeat can
// never interleave with a fetch on the same session.
type Manager struct {
	mu        sync.Mutex
	portal    Portal
	statePath string
	creds     Credentials
	logger    *logger.Logger

	alive       bool
	lastChecked time.Time
}

// NewManager creates a session manager persisting state at statePath.
func NewManager(portal Portal, statePath string, creds Credentials, log *logger.Logger) *Manager {
	return &Manager{
		portal:    portal,
		statePath: statePath,
		creds:     creds,
		logger:    log,
	}
}

// HasCredentials reports whether automatic re-login is possible.
func (m *Manager) HasCredentials() bool {
	return m.creds.configured()
}

// Restore loads persisted session state from disk and injects it into
// the portal client. It does not touch the network, so a Valid result
// is provisional until the first heartbeat confirms it. Restoring the
// same unmodified file twice yields the same outcome.
func (m *Manager) Restore() (RestoreResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := loadState(m.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			m.alive = false
			return RestoreMissing, nil
		}
		m.alive = false
		m.logger.Warn("session state unreadable, fresh login required",
			logger.Field{Key: "path", Value: m.statePath},
			logger.Field{Key: "reason", Value: err.Error()})
		return RestoreCorrupt, nil
	}

	m.portal.SetCookies(st.httpCookies())
	m.alive = true
	m.logger.Info("session state restored",
		logger.Field{Key: "account", Value: st.Account},
		logger.Field{Key: "saved_at", Value: st.SavedAt})
	return RestoreValid, nil
}

// Login authenticates with the configured credentials and persists the
// new session state. Returns ErrNoCredentials when none are configured.
func (m *Manager) Login(ctx context.Context) error {
	if !m.creds.configured() {
		return ErrNoCredentials
	}
	return m.LoginWith(ctx, m.creds.Username, m.creds.Password)
}

// LoginWith authenticates with explicit credentials (console login) and
// persists the new session state. The previous session is replaced
// wholesale.
func (m *Manager) LoginWith(ctx context.Context, username, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.portal.Login(ctx, username, password); err != nil {
		m.alive = false
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}

	m.alive = true
	m.lastChecked = time.Now()

	st := stateFromCookies(username, m.portal.Cookies())
	if err := saveState(m.statePath, st); err != nil {
		// The session itself is live; losing persistence only costs a
		// re-login after the next restart.
		m.logger.Error("failed to persist session state", err,
			logger.Field{Key: "path", Value: m.statePath})
	}

	return nil
}

// Heartbeat performs a cheap authenticated probe. On expiry it attempts
// one automatic re-login when credentials are configured; otherwise it
// reports dead and leaves escalation to the caller.
func (m *Manager) Heartbeat(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	alive, err := m.portal.IsAlive(ctx)
	m.lastChecked = time.Now()
	if err != nil {
		// Probe failure is a network problem, not proof of expiry; keep
		// the current liveness belief.
		return m.alive, err
	}

	if alive {
		m.alive = true
		return true, nil
	}

	m.alive = false
	m.logger.Warn("session heartbeat: expired")

	if !m.creds.configured() {
		return false, ErrNoCredentials
	}

	if err := m.portal.Login(ctx, m.creds.Username, m.creds.Password); err != nil {
		return false, fmt.Errorf("%w: %v", ErrAuth, err)
	}

	m.alive = true
	st := stateFromCookies(m.creds.Username, m.portal.Cookies())
	if err := saveState(m.statePath, st); err != nil {
		m.logger.Error("failed to persist session state", err,
			logger.Field{Key: "path", Value: m.statePath})
	}
	m.logger.Info("session heartbeat: re-login succeeded")
	return true, nil
}

// Download runs a report export on the session lane. A dead session
// fails fast with ErrExpired; an auth rejection from the portal marks
// the session dead and surfaces as ErrAuth so the fetcher never retries
// it.
func (m *Manager) Download(ctx context.Context, movement report.Movement, from, to time.Time) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.alive {
		return nil, ErrExpired
	}

	payload, err := m.portal.Download(ctx, movement, from, to)
	if err != nil {
		if isAuthFailure(err) {
			m.alive = false
			return nil, fmt.Errorf("%w: %v", ErrAuth, err)
		}
		return nil, err
	}

	return payload, nil
}

// Alive reports the last known liveness without touching the network.
func (m *Manager) Alive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alive
}

// LastChecked returns when liveness was last verified.
func (m *Manager) LastChecked() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastChecked
}

func isAuthFailure(err error) bool {
	return errors.Is(err, portal.ErrLoginFailed)
}
