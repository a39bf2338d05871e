package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paradisestayz/staywatch/internal/logger"
	"github.com/paradisestayz/staywatch/internal/report"
)

const loginPage = `<html><body><form action="/Account/Login" method="post">
<input name="__RequestVerificationToken" type="hidden" value="tok-123"/>
<input name="UserName"/><input name="Password" type="password"/>
</form></body></html>`

// fakePortal mimics the portal: form login sets a session cookie, the
// dashboard and export require it, everything else serves the login form.
type fakePortal struct {
	user, pass string
	csv        string
	loginHits  int
	probeHits  int
	outage     int // non-zero: dashboard and export answer with this status
}

func (f *fakePortal) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /Account/Login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, loginPage)
	})

	mux.HandleFunc("POST /Account/Login", func(w http.ResponseWriter, r *http.Request) {
		f.loginHits++
		if r.FormValue("__RequestVerificationToken") != "tok-123" ||
			r.FormValue("UserName") != f.user || r.FormValue("Password") != f.pass {
			fmt.Fprint(w, loginPage)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: ".REIAUTH", Value: "session-1", Path: "/"})
		fmt.Fprint(w, `<html><body><h1>Dashboard</h1></body></html>`)
	})

	authed := func(r *http.Request) bool {
		c, err := r.Cookie(".REIAUTH")
		return err == nil && c.Value == "session-1"
	}

	mux.HandleFunc("GET /Customers/Dashboard", func(w http.ResponseWriter, r *http.Request) {
		f.probeHits++
		if f.outage != 0 {
			w.WriteHeader(f.outage)
			return
		}
		if !authed(r) {
			fmt.Fprint(w, loginPage)
			return
		}
		fmt.Fprint(w, `<html><body><h1>Dashboard</h1></body></html>`)
	})

	mux.HandleFunc("GET /report/export", func(w http.ResponseWriter, r *http.Request) {
		if f.outage != 0 {
			w.WriteHeader(f.outage)
			return
		}
		if !authed(r) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprintf(w, "%s", f.csv)
	})

	return mux
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)

	client, err := New(Config{BaseURL: srv.URL, CustomerID: "758", TimeoutSeconds: 5}, log)
	require.NoError(t, err)
	return client
}

func TestLogin_Success(t *testing.T) {
	fake := &fakePortal{user: "ops", pass: "secret"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv)

	err := client.Login(context.Background(), "ops", "secret")
	require.NoError(t, err)
	assert.Equal(t, 1, fake.loginHits)
	assert.NotEmpty(t, client.Cookies())
}

func TestLogin_BadCredentials(t *testing.T) {
	fake := &fakePortal{user: "ops", pass: "secret"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv)

	err := client.Login(context.Background(), "ops", "wrong")
	require.ErrorIs(t, err, ErrLoginFailed)
}

func TestIsAlive(t *testing.T) {
	fake := &fakePortal{user: "ops", pass: "secret"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv)

	alive, err := client.IsAlive(context.Background())
	require.NoError(t, err)
	assert.False(t, alive, "no session yet")

	require.NoError(t, client.Login(context.Background(), "ops", "secret"))

	alive, err = client.IsAlive(context.Background())
	require.NoError(t, err)
	assert.True(t, alive)
}

func TestDownload(t *testing.T) {
	csv := "Property,Room,Room Type,Guest,Adults,Children,Infants,Time\nP,101,Q,Smith,2,0,0,2:00 PM\n"
	fake := &fakePortal{user: "ops", pass: "secret", csv: csv}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv)
	require.NoError(t, client.Login(context.Background(), "ops", "secret"))

	from := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	payload, err := client.Download(context.Background(), report.Arrivals, from, from)
	require.NoError(t, err)
	assert.Equal(t, csv, string(payload))
}

func TestDownload_ExpiredSessionIsAuthError(t *testing.T) {
	fake := &fakePortal{user: "ops", pass: "secret"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv)

	from := time.Now()
	_, err := client.Download(context.Background(), report.Departures, from, from)
	require.ErrorIs(t, err, ErrLoginFailed)
}

func TestDownload_ServerErrorIsUnavailable(t *testing.T) {
	fake := &fakePortal{user: "ops", pass: "secret"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv)
	require.NoError(t, client.Login(context.Background(), "ops", "secret"))

	fake.outage = http.StatusBadGateway

	from := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	_, err := client.Download(context.Background(), report.Arrivals, from, from)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrLoginFailed)
}

func TestIsAlive_ServerErrorIsProbeFailure(t *testing.T) {
	fake := &fakePortal{user: "ops", pass: "secret"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	client := newTestClient(t, srv)
	require.NoError(t, client.Login(context.Background(), "ops", "secret"))

	fake.outage = http.StatusServiceUnavailable

	_, err := client.IsAlive(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestSetCookies_RestoresSession(t *testing.T) {
	fake := &fakePortal{user: "ops", pass: "secret"}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	first := newTestClient(t, srv)
	require.NoError(t, first.Login(context.Background(), "ops", "secret"))

	second := newTestClient(t, srv)
	second.SetCookies(first.Cookies())

	alive, err := second.IsAlive(context.Background())
	require.NoError(t, err)
	assert.True(t, alive)
}
