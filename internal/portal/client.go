// Package portal implements the HTTP client for the property-management
// portal: form login, a cheap liveness probe, and report CSV export
// downloads. Every call is unreliable I/O and may fail transiently.
package portal

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"context"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/paradisestayz/staywatch/internal/logger"
	"github.com/paradisestayz/staywatch/internal/report"
)

// ErrLoginFailed is returned when the portal rejects the supplied
// credentials or the login flow does not land on an authenticated page.
var ErrLoginFailed = errors.New("portal login failed")

// ErrUnavailable is returned when the portal answers with a server-side
// failure (5xx). Those clear on their own; callers may retry.
var ErrUnavailable = errors.New("portal unavailable")

const defaultTimeoutSeconds = 30

// Config describes how to reach the portal.
type Config struct {
	BaseURL        string
	CustomerID     string
	TimeoutSeconds int
}

// Client talks to the portal over HTTP with a cookie jar holding the
// authenticated session.
type Client struct {
	baseURL    *url.URL
	http       *resty.Client
	customerID string
	logger     *logger.Logger
}

// New creates a portal client. The cookie jar starts empty; the session
// manager injects restored cookies before first use.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid portal base url: %w", err)
	}

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = defaultTimeoutSeconds
	}

	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseURL.Hostname()))
	client.SetTimeout(time.Duration(timeout) * time.Second)

	return &Client{
		baseURL:    baseURL,
		http:       client,
		customerID: cfg.CustomerID,
		logger:     log,
	}, nil
}

// Cookies returns the portal cookies currently held for the base URL.
func (c *Client) Cookies() []*http.Cookie {
	return c.http.GetClient().Jar.Cookies(c.baseURL)
}

// SetCookies replaces the portal cookies for the base URL.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.http.GetClient().Jar.SetCookies(c.baseURL, cookies)
}

// Login performs the form login flow: fetch the login page, lift the
// request verification token, post the credentials, and verify the
// response landed on an authenticated page.
func (c *Client) Login(ctx context.Context, username, password string) error {
	res, err := c.http.R().
		SetContext(ctx).
		Get("/Account/Login")
	if err != nil {
		return fmt.Errorf("fetch login page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return fmt.Errorf("parse login page: %w", err)
	}

	token := doc.Find("input[name=__RequestVerificationToken]").AttrOr("value", "")
	if token == "" {
		return fmt.Errorf("%w: login page has no verification token", ErrLoginFailed)
	}

	res, err = c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"__RequestVerificationToken": token,
			"UserName":                   username,
			"Password":                   password,
		}).
		Post("/Account/Login")
	if err != nil {
		return fmt.Errorf("post login form: %w", err)
	}

	if !c.looksAuthenticated(res) {
		return ErrLoginFailed
	}

	c.logger.Info("portal login succeeded", logger.Field{Key: "user", Value: username})
	return nil
}

// IsAlive performs a cheap, side-effect-free authenticated request
// against the dashboard and reports whether the session is still
// accepted. It never mutates portal state.
func (c *Client) IsAlive(ctx context.Context) (bool, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("reicid", c.customerID).
		Get("/Customers/Dashboard")
	if err != nil {
		return false, fmt.Errorf("dashboard probe: %w", err)
	}
	if res.StatusCode() >= http.StatusInternalServerError {
		// A broken portal is not an expired session; report a probe
		// failure so the caller keeps its current liveness belief.
		return false, fmt.Errorf("dashboard probe: %w: status %d", ErrUnavailable, res.StatusCode())
	}

	return c.looksAuthenticated(res), nil
}

// Download fetches the CSV export for one report over the given date
// range. The caller is responsible for retry policy.
func (c *Client) Download(ctx context.Context, movement report.Movement, from, to time.Time) ([]byte, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"reicid": c.customerID,
			"report": reportName(movement),
			"format": "csv",
			"from":   from.Format("2006-01-02"),
			"to":     to.Format("2006-01-02"),
		}).
		Get("/report/export")
	if err != nil {
		return nil, fmt.Errorf("download %s report: %w", movement, err)
	}

	if res.StatusCode() == http.StatusUnauthorized || res.StatusCode() == http.StatusForbidden {
		return nil, fmt.Errorf("%w: export returned %d", ErrLoginFailed, res.StatusCode())
	}
	if res.StatusCode() >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: export returned %d %s", ErrUnavailable,
			res.StatusCode(), http.StatusText(res.StatusCode()))
	}
	if looksLikeLoginPage(res) {
		return nil, fmt.Errorf("%w: export redirected to login", ErrLoginFailed)
	}
	if res.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("download %s report: unexpected status %d", movement, res.StatusCode())
	}

	return res.Body(), nil
}

func reportName(movement report.Movement) string {
	if movement == report.Departures {
		return "departure"
	}
	return "arrival"
}

// looksAuthenticated distinguishes an authenticated page from the login
// form the portal serves (with a 200) when the session has expired.
func (c *Client) looksAuthenticated(res *resty.Response) bool {
	if res.StatusCode() != http.StatusOK {
		return false
	}
	return !looksLikeLoginPage(res)
}

func looksLikeLoginPage(res *resty.Response) bool {
	if req := res.RawResponse.Request; req != nil && req.URL != nil {
		path := strings.ToLower(req.URL.Path)
		if strings.Contains(path, "login") {
			return true
		}
	}
	body := res.Body()
	if len(body) > 0 && bytes.Contains(body, []byte("__RequestVerificationToken")) {
		return bytes.Contains(bytes.ToLower(body), []byte("password"))
	}
	return false
}
