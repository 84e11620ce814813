// package testing contains shared testing utilities
package testing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/spotx/internal/models"
)

// FakeClock is a settable time source for expiry tests.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SleepRecorder records requested backoff delays instead of sleeping.
type SleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *SleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *SleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

// FakePrompter answers credential and redirect prompts from fixed values.
//
// Redirect receives the authorization URL so tests can echo its state parameter back.
type FakePrompter struct {
	Creds       *models.Credentials
	CredsErr    error
	Redirect    func(authURL string) (string, error)
	CredsCalls  int
	LastAuthURL string // last authorization URL shown
}

func (p *FakePrompter) Credentials(ctx context.Context) (*models.Credentials, error) {
	p.CredsCalls++
	if p.CredsErr != nil {
		return nil, p.CredsErr
	}
	return p.Creds, nil
}

func (p *FakePrompter) RedirectURL(ctx context.Context, authURL string) (string, error) {
	p.LastAuthURL = authURL
	if p.Redirect == nil {
		return "", errors.New("no redirect configured")
	}
	return p.Redirect(authURL)
}

// EchoRedirect returns a redirect handler that answers with code and the state from the authorization URL.
func EchoRedirect(redirectURI, code string) func(string) (string, error) {
	return func(authURL string) (string, error) {
		u, err := url.Parse(authURL)
		if err != nil {
			return "", err
		}
		q := url.Values{"code": {code}, "state": {u.Query().Get("state")}}
		return redirectURI + "?" + q.Encode(), nil
	}
}

// EventLog is an in-memory security event recorder.
type EventLog struct {
	mu     sync.Mutex
	Events []*models.SecurityEvent
}

func (l *EventLog) Record(event *models.SecurityEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Events = append(l.Events, event)
	return nil
}

// TokenServer is an httptest token endpoint that records every form it receives.
type TokenServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []url.Values
	handler  func(w http.ResponseWriter, form url.Values)
}

// NewTokenServer starts a [TokenServer] answering with handler. It is closed when the test ends.
func NewTokenServer(t *testing.T, handler func(w http.ResponseWriter, form url.Values)) *TokenServer {
	t.Helper()

	s := &TokenServer{handler: handler}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		s.requests = append(s.requests, r.PostForm)
		handler := s.handler
		s.mu.Unlock()

		handler(w, r.PostForm)
	}))
	t.Cleanup(s.Close)
	return s
}

// SetHandler swaps the response handler.
func (s *TokenServer) SetHandler(handler func(w http.ResponseWriter, form url.Values)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

// Requests returns the forms received so far.
func (s *TokenServer) Requests() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.requests...)
}

// Count returns how many requests used grantType.
func (s *TokenServer) Count(grantType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, form := range s.requests {
		if form.Get("grant_type") == grantType {
			n++
		}
	}
	return n
}

// WriteToken writes a token endpoint success body. An empty refresh token is omitted.
func WriteToken(w http.ResponseWriter, access, refresh string, expiresIn int) {
	body := map[string]any{
		"access_token": access,
		"token_type":   "Bearer",
		"expires_in":   expiresIn,
		"scope":        "user-read-playback-state user-modify-playback-state",
	}
	if refresh != "" {
		body["refresh_token"] = refresh
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

// WriteOAuthError writes an RFC 6749 error body with status.
func WriteOAuthError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "error_description": description})
}

// FailingStore is a [models.KeyValueStore] whose writes fail.
type FailingStore struct {
	Err error
}

func (f *FailingStore) Get(key string) ([]byte, error)     { return nil, models.ErrNotFound }
func (f *FailingStore) Set(key string, value []byte) error { return f.Err }
func (f *FailingStore) Delete(key string) error            { return f.Err }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	mu       sync.Mutex
	response *http.Response
	err      error
	calls    int
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.response, m.err
}

// Calls returns how many requests were attempted.
func (m *MockRoundTripper) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
