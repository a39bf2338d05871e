package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// State is the serialized proof-of-authentication artifact. It is
// written whole after a successful login and read back on startup;
// it is never partially mutated.
type State struct {
	Account string        `json:"account,omitempty"`
	SavedAt time.Time     `json:"saved_at"`
	Cookies []StateCookie `json:"cookies"`
}

// StateCookie is the subset of an HTTP cookie worth persisting.
type StateCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"http_only,omitempty"`
}

func stateFromCookies(account string, cookies []*http.Cookie) State {
	st := State{
		Account: account,
		SavedAt: time.Now(),
		Cookies: make([]StateCookie, 0, len(cookies)),
	}
	for _, c := range cookies {
		st.Cookies = append(st.Cookies, StateCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		})
	}
	return st
}

func (s State) httpCookies() []*http.Cookie {
	cookies := make([]*http.Cookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		cookies = append(cookies, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	return cookies
}

// saveState writes the state file atomically: the payload goes to a
// temporary file which is fsynced and renamed over the real path, so a
// crash mid-write can never leave a half-written file behind.
func saveState(path string, st State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create session state directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create temporary session state file: %w", err)
	}

	if _, err := file.Write(append(data, '\n')); err != nil {
		file.Close()
		return fmt.Errorf("write session state: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("sync session state: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close session state: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename session state into place: %w", err)
	}

	return nil
}

// loadState reads and validates a persisted state file.
func loadState(path string) (State, error) {
	var st State

	data, err := os.ReadFile(path)
	if err != nil {
		return st, err
	}

	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("unmarshal session state: %w", err)
	}
	if len(st.Cookies) == 0 {
		return st, fmt.Errorf("session state has no cookies")
	}

	return st, nil
}
