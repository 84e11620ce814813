// Request plumbing for the Spotify Web API: throttling, bearer tokens, the single 401 retry and error mapping.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/desertthunder/spotx/internal/shared"
)

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// APIError is a non-2xx response from the Web API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("spotify API error: status %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps throttling and server errors to [shared.ErrServiceUnavailable], everything else to [shared.ErrAPIRequest].
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500 {
		return shared.ErrServiceUnavailable
	}
	return shared.ErrAPIRequest
}

// Raw performs an authenticated request against path and returns the response as-is, whatever its status.
func (c *SpotifyClient) Raw(ctx context.Context, method, path string, body []byte) (*APIResponse, error) {
	resp, err := c.send(ctx, method, path, nil, body)
	if err != nil {
		return nil, err
	}

	var jsonData any
	if err := json.Unmarshal(resp.Body, &jsonData); err == nil {
		resp.IsJSON = true
		resp.JSONData = jsonData
	}
	return resp, nil
}

// do sends a request and decodes a JSON body into result.
//
// It reports false when Spotify answered 204 or with an empty body.
func (c *SpotifyClient) do(ctx context.Context, method, path string, query url.Values, body, result any) (bool, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("failed to encode request: %w", err)
		}
		payload = data
	}

	resp, err := c.send(ctx, method, path, query, payload)
	if err != nil {
		return false, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, apiError(resp)
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(resp.Body)) == 0 {
		return false, nil
	}

	if result != nil {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return false, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return true, nil
}

// send performs the request with a fresh token, retrying once with a new token on 401.
func (c *SpotifyClient) send(ctx context.Context, method, path string, query url.Values, payload []byte) (*APIResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	resp, err := c.roundTrip(ctx, method, fullURL, payload, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Debug("access token rejected, retrying once", "path", path)

		if token, err = c.refreshedToken(ctx, token); err != nil {
			return nil, err
		}
		if resp, err = c.roundTrip(ctx, method, fullURL, payload, token); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (c *SpotifyClient) token(ctx context.Context) (string, error) {
	token, err := c.tokens.GetValidAccessToken(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", shared.ErrNotAuthenticated
	}
	return token, nil
}

func (c *SpotifyClient) refreshedToken(ctx context.Context, rejected string) (string, error) {
	token, err := c.tokens.RefreshAccessToken(ctx, rejected)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", shared.ErrNotAuthenticated
	}
	return token, nil
}

func (c *SpotifyClient) roundTrip(ctx context.Context, method, fullURL string, payload []byte, token string) (*APIResponse, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &APIResponse{StatusCode: resp.StatusCode, Headers: resp.Header, Body: data}, nil
}

// apiError builds an [APIError] from Spotify's {"error": {"status", "message"}} body when present.
func apiError(resp *APIResponse) error {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	e := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(resp.Body, &envelope); err == nil {
		e.Message = envelope.Error.Message
	}
	return e
}

// noDevice maps 404 from a player endpoint to [shared.ErrNoActiveDevice].
func noDevice(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", shared.ErrNoActiveDevice, err)
	}
	return err
}
