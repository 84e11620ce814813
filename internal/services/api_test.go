package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/spotx/internal/shared"
	tu "github.com/desertthunder/spotx/internal/testing"
)

func TestRaw(t *testing.T) {
	t.Run("JSON Response", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("expected GET method, got %s", r.Method)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"display_name":"listener"}`))
		}, nil)

		resp, err := client.Raw(context.Background(), http.MethodGet, "/me", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", resp.StatusCode)
		}
		if !resp.IsJSON || resp.JSONData == nil {
			t.Error("expected JSON data to be populated")
		}
		if resp.Headers.Get("Content-Type") != "application/json" {
			t.Errorf("expected headers to be kept, got %v", resp.Headers)
		}
	})

	t.Run("Non-2xx Is Returned As-Is", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("plain text"))
		}, nil)

		resp, err := client.Raw(context.Background(), http.MethodGet, "/me", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.StatusCode != http.StatusForbidden || resp.IsJSON {
			t.Errorf("unexpected response %+v", resp)
		}
		if string(resp.Body) != "plain text" {
			t.Errorf("expected body 'plain text', got %s", resp.Body)
		}
	})

	t.Run("Sends Body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("expected JSON content type, got %q", r.Header.Get("Content-Type"))
			}
			data, _ := io.ReadAll(r.Body)
			if string(data) != `{"play":false}` {
				t.Errorf("unexpected body %s", data)
			}
			w.WriteHeader(http.StatusNoContent)
		}, nil)

		if _, err := client.Raw(context.Background(), http.MethodPut, "/me/player", []byte(`{"play":false}`)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("Failed Request Creation", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, nil)

		_, err := client.Raw(context.Background(), http.MethodGet, "/test\x00invalid", nil)
		if err == nil || !strings.Contains(err.Error(), "failed to create request") {
			t.Errorf("expected 'failed to create request' error, got %v", err)
		}
	})

	t.Run("Failed HTTP Request", func(t *testing.T) {
		transport := tu.NewMockRoundTripper(nil, errors.New("connection failed"))
		client, err := NewSpotifyClient(SpotifyClientOpts{
			Tokens:     &stubTokens{tokens: []string{"t"}},
			BaseURL:    "http://example.com",
			HTTPClient: &http.Client{Transport: transport},
		})
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}

		_, err = client.Raw(context.Background(), http.MethodGet, "/me", nil)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
		if transport.Calls() != 1 {
			t.Errorf("expected 1 attempt, got %d", transport.Calls())
		}
	})

	t.Run("Failed Response Read", func(t *testing.T) {
		transport := tu.NewMockRoundTripper(&http.Response{
			StatusCode: http.StatusOK,
			Body:       &tu.FCloser{},
			Header:     make(http.Header),
		}, nil)
		client, _ := NewSpotifyClient(SpotifyClientOpts{
			Tokens:     &stubTokens{tokens: []string{"t"}},
			BaseURL:    "http://example.com",
			HTTPClient: &http.Client{Transport: transport},
		})

		_, err := client.Raw(context.Background(), http.MethodGet, "/me", nil)
		if err == nil || !strings.Contains(err.Error(), "failed to read response") {
			t.Errorf("expected read error, got %v", err)
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer server.Close()
		client, _ := NewSpotifyClient(SpotifyClientOpts{Tokens: &stubTokens{tokens: []string{"t"}}, BaseURL: server.URL})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := client.Raw(ctx, http.MethodGet, "/me", nil); err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, shared.ErrAPIRequest},
		{http.StatusForbidden, shared.ErrAPIRequest},
		{http.StatusTooManyRequests, shared.ErrServiceUnavailable},
		{http.StatusInternalServerError, shared.ErrServiceUnavailable},
	}

	for _, tc := range tests {
		err := &APIError{StatusCode: tc.status}
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: expected %v", tc.status, tc.want)
		}
	}

	if got := (&APIError{StatusCode: 404, Message: "missing"}).Error(); got != "spotify API error: status 404: missing" {
		t.Errorf("unexpected message %q", got)
	}
}
