// Package fetcher retrieves raw report payloads through the session
// manager, applying bounded retry to transient failures and keeping a
// best-effort audit copy of everything it downloads.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/paradisestayz/staywatch/internal/logger"
	"github.com/paradisestayz/staywatch/internal/portal"
	"github.com/paradisestayz/staywatch/internal/report"
	"github.com/paradisestayz/staywatch/internal/retry"
	"github.com/paradisestayz/staywatch/internal/session"
)

// Request names one report to fetch. Requests are ephemeral, created
// per job run.
type Request struct {
	Movement report.Movement
	From     time.Time
	To       time.Time
}

// Session is the slice of the session manager the fetcher needs.
type Session interface {
	Download(ctx context.Context, movement report.Movement, from, to time.Time) ([]byte, error)
}

// Fetcher downloads report payloads with bounded retry.
type Fetcher struct {
	session     Session
	downloadDir string
	retryCfg    retry.Config
	logger      *logger.Logger
}

// Config tunes the fetcher.
type Config struct {
	DownloadDir string
	MaxAttempts int
	Backoff     time.Duration
	MaxBackoff  time.Duration
}

// New creates a fetcher over the given session lane.
func New(sess Session, cfg Config, log *logger.Logger) *Fetcher {
	return &Fetcher{
		session:     sess,
		downloadDir: cfg.DownloadDir,
		retryCfg: retry.Config{
			MaxAttempts:    cfg.MaxAttempts,
			InitialBackoff: cfg.Backoff,
			MaxBackoff:     cfg.MaxBackoff,
		},
		logger: log,
	}
}

// Fetch downloads one report payload. Transient navigation and network
// errors are retried with backoff; authentication failures and expired
// sessions abort immediately and are left to the session manager. On
// success the raw payload is written to the download directory as an
// audit artifact; that write is best-effort and never fails the fetch.
func (f *Fetcher) Fetch(ctx context.Context, req Request) ([]byte, error) {
	payload, err := retry.Do(ctx, f.retryCfg, retryable, func() ([]byte, error) {
		return f.session.Download(ctx, req.Movement, req.From, req.To)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s report: %w", req.Movement, err)
	}

	f.audit(req, payload)

	return payload, nil
}

// retryable allows retry only for transient errors. Auth failures and
// dead sessions never fix themselves inside a fetch; a portal 5xx or a
// network hiccup usually does.
func retryable(err error) bool {
	if errors.Is(err, session.ErrAuth) || errors.Is(err, session.ErrExpired) {
		return false
	}
	if errors.Is(err, portal.ErrUnavailable) {
		return true
	}
	return retry.IsNetworkError(err)
}

// audit writes the raw payload next to previous downloads, named by
// report and date, e.g. arrivals_20260830.csv.
func (f *Fetcher) audit(req Request, payload []byte) {
	if f.downloadDir == "" {
		return
	}

	if err := os.MkdirAll(f.downloadDir, 0755); err != nil {
		f.logger.Warn("audit copy skipped: cannot create download dir",
			logger.Field{Key: "dir", Value: f.downloadDir},
			logger.Field{Key: "reason", Value: err.Error()})
		return
	}

	path := filepath.Join(f.downloadDir, AuditFilename(req))
	if err := os.WriteFile(path, payload, 0644); err != nil {
		f.logger.Warn("audit copy failed",
			logger.Field{Key: "path", Value: path},
			logger.Field{Key: "reason", Value: err.Error()})
		return
	}

	f.logger.Info("report saved",
		logger.Field{Key: "report", Value: string(req.Movement)},
		logger.Field{Key: "path", Value: path})
}

// AuditFilename is the on-disk name of the raw payload artifact.
func AuditFilename(req Request) string {
	return fmt.Sprintf("%s_%s.csv", req.Movement, req.From.Format("20060102"))
}
