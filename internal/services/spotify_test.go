package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/desertthunder/spotx/internal/shared"
)

// stubTokens hands out tokens in order, repeating the last one.
type stubTokens struct {
	mu       sync.Mutex
	tokens   []string
	err      error
	calls    int
	rejected []string
}

func (s *stubTokens) GetValidAccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next()
}

func (s *stubTokens) RefreshAccessToken(ctx context.Context, rejected string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected = append(s.rejected, rejected)
	return s.next()
}

func (s *stubTokens) next() (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	i := min(s.calls, len(s.tokens)) - 1
	return s.tokens[i], nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens *stubTokens) *SpotifyClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	if tokens == nil {
		tokens = &stubTokens{tokens: []string{"token-1"}}
	}

	client, err := NewSpotifyClient(SpotifyClientOpts{Tokens: tokens, BaseURL: server.URL})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestSpotifyClient(t *testing.T) {
	t.Run("NewSpotifyClient", func(t *testing.T) {
		t.Run("Requires Token Provider", func(t *testing.T) {
			_, err := NewSpotifyClient(SpotifyClientOpts{})
			if !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("Defaults", func(t *testing.T) {
			client, err := NewSpotifyClient(SpotifyClientOpts{
				Tokens: &stubTokens{tokens: []string{"t"}},
				Config: shared.APIConfig{RequestsPerSecond: 5},
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if client.baseURL != spotifyBaseURL {
				t.Errorf("expected default base URL, got %s", client.baseURL)
			}
			if client.limiter.Burst() != 5 {
				t.Errorf("expected burst 5, got %d", client.limiter.Burst())
			}
		})
	})

	t.Run("CurrentlyPlaying", func(t *testing.T) {
		t.Run("Sends Bearer Token", func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/me/player/currently-playing" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
					t.Errorf("expected bearer token, got %q", got)
				}
				json.NewEncoder(w).Encode(map[string]any{
					"is_playing":  true,
					"progress_ms": 1500,
					"item": map[string]any{
						"id": "t1", "name": "Song", "type": "track",
						"artists": []map[string]string{{"name": "Artist"}},
					},
				})
			}, nil)

			current, err := client.CurrentlyPlaying(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !current.IsPlaying || current.Item == nil || current.Item.Name != "Song" {
				t.Errorf("unexpected result %+v", current)
			}
			if current.Item.Artists[0].Name != "Artist" {
				t.Errorf("expected artist, got %+v", current.Item.Artists)
			}
		})

		t.Run("Nothing Playing", func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}, nil)

			current, err := client.CurrentlyPlaying(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if current != nil {
				t.Errorf("expected nil for 204, got %+v", current)
			}
		})
	})

	t.Run("Token Handling", func(t *testing.T) {
		t.Run("Retries Once On 401", func(t *testing.T) {
			var seen []string
			tokens := &stubTokens{tokens: []string{"stale", "fresh"}}
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				seen = append(seen, r.Header.Get("Authorization"))
				if r.Header.Get("Authorization") == "Bearer stale" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				json.NewEncoder(w).Encode(map[string]any{"is_playing": false, "repeat_state": "off"})
			}, tokens)

			state, err := client.PlaybackState(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if state.RepeatState != "off" {
				t.Errorf("unexpected state %+v", state)
			}
			if len(seen) != 2 || seen[1] != "Bearer fresh" {
				t.Errorf("expected retry with fresh token, got %v", seen)
			}
			if tokens.calls != 2 {
				t.Errorf("expected 2 token lookups, got %d", tokens.calls)
			}
			if len(tokens.rejected) != 1 || tokens.rejected[0] != "stale" {
				t.Errorf("expected the rejected token to be handed back for refresh, got %v", tokens.rejected)
			}
		})

		t.Run("Second 401 Is Returned", func(t *testing.T) {
			requests := 0
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				requests++
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":{"status":401,"message":"The access token expired"}}`))
			}, nil)

			_, err := client.Queue(context.Background())
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
				t.Fatalf("expected 401 APIError, got %v", err)
			}
			if apiErr.Message != "The access token expired" {
				t.Errorf("expected message from body, got %q", apiErr.Message)
			}
			if requests != 2 {
				t.Errorf("expected exactly 2 requests, got %d", requests)
			}
		})

		t.Run("No Session", func(t *testing.T) {
			called := false
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				called = true
			}, &stubTokens{err: shared.ErrNotAuthenticated})

			_, err := client.Queue(context.Background())
			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
			if called {
				t.Error("no request may be sent without a token")
			}
		})

		t.Run("Empty Token", func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, &stubTokens{tokens: []string{""}})

			if err := client.Pause(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("Player Controls", func(t *testing.T) {
		type call struct {
			method, path, query string
			body                map[string]any
		}

		record := func(t *testing.T, got *call) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				got.method, got.path, got.query = r.Method, r.URL.Path, r.URL.RawQuery
				if data, _ := io.ReadAll(r.Body); len(data) > 0 {
					if err := json.Unmarshal(data, &got.body); err != nil {
						t.Errorf("body is not JSON: %v", err)
					}
				}
				w.WriteHeader(http.StatusNoContent)
			}
		}

		offset := 3
		tests := []struct {
			name   string
			run    func(c *SpotifyClient) error
			method string
			path   string
			query  string
			body   map[string]any
		}{
			{"Resume", func(c *SpotifyClient) error { return c.Play(context.Background(), PlayOptions{}) },
				http.MethodPut, "/me/player/play", "", nil},
			{"Play Track On Device", func(c *SpotifyClient) error {
				return c.Play(context.Background(), PlayOptions{DeviceID: "d1", TrackURI: "spotify:track:1"})
			}, http.MethodPut, "/me/player/play", "device_id=d1", map[string]any{"uris": []any{"spotify:track:1"}}},
			{"Play Playlist", func(c *SpotifyClient) error {
				return c.Play(context.Background(), PlayOptions{ContextURI: "spotify:playlist:p", Offset: &offset})
			}, http.MethodPut, "/me/player/play", "", map[string]any{
				"context_uri": "spotify:playlist:p", "offset": map[string]any{"position": float64(3)},
			}},
			{"Pause", func(c *SpotifyClient) error { return c.Pause(context.Background()) },
				http.MethodPut, "/me/player/pause", "", nil},
			{"Next", func(c *SpotifyClient) error { return c.Next(context.Background()) },
				http.MethodPost, "/me/player/next", "", nil},
			{"Previous", func(c *SpotifyClient) error { return c.Previous(context.Background()) },
				http.MethodPost, "/me/player/previous", "", nil},
			{"Add To Queue", func(c *SpotifyClient) error { return c.AddToQueue(context.Background(), "spotify:track:2") },
				http.MethodPost, "/me/player/queue", "uri=spotify%3Atrack%3A2", nil},
			{"Shuffle", func(c *SpotifyClient) error { return c.SetShuffle(context.Background(), true) },
				http.MethodPut, "/me/player/shuffle", "state=true", nil},
			{"Repeat", func(c *SpotifyClient) error { return c.SetRepeat(context.Background(), RepeatTrack) },
				http.MethodPut, "/me/player/repeat", "state=track", nil},
			{"Transfer", func(c *SpotifyClient) error { return c.TransferPlayback(context.Background(), "d2", true) },
				http.MethodPut, "/me/player", "", map[string]any{"device_ids": []any{"d2"}, "play": true}},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				var got call
				client := newTestClient(t, record(t, &got), nil)

				if err := tc.run(client); err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if got.method != tc.method || got.path != tc.path || got.query != tc.query {
					t.Errorf("got %s %s?%s, want %s %s?%s", got.method, got.path, got.query, tc.method, tc.path, tc.query)
				}
				if tc.body != nil {
					want, _ := json.Marshal(tc.body)
					have, _ := json.Marshal(got.body)
					if string(want) != string(have) {
						t.Errorf("body = %s, want %s", have, want)
					}
				}
			})
		}

		t.Run("No Active Device", func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"error":{"status":404,"message":"Player command failed: No active device found"}}`))
			}, nil)

			err := client.Next(context.Background())
			if !errors.Is(err, shared.ErrNoActiveDevice) {
				t.Errorf("expected ErrNoActiveDevice, got %v", err)
			}
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest in chain, got %v", err)
			}
		})

		t.Run("Invalid Repeat Mode", func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				t.Error("no request expected")
			}, nil)

			if err := client.SetRepeat(context.Background(), "forever"); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})

		t.Run("Volume Is Clamped", func(t *testing.T) {
			var volumeQuery string
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/me/player":
					json.NewEncoder(w).Encode(map[string]any{"device": map[string]any{"id": "d1", "is_active": true}})
				case "/me/player/volume":
					volumeQuery = r.URL.RawQuery
					w.WriteHeader(http.StatusNoContent)
				}
			}, nil)

			if err := client.SetVolume(context.Background(), 150); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if volumeQuery != "volume_percent=100" {
				t.Errorf("expected clamped volume, got %q", volumeQuery)
			}
		})

		t.Run("Volume Without Device", func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			}, nil)

			if err := client.SetVolume(context.Background(), 50); !errors.Is(err, shared.ErrNoActiveDevice) {
				t.Errorf("expected ErrNoActiveDevice, got %v", err)
			}
		})

		t.Run("Toggles Follow Playback State", func(t *testing.T) {
			type request struct{ method, path, query string }

			var mu sync.Mutex
			playing := true
			var got []request

			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				defer mu.Unlock()

				if r.Method == http.MethodGet && r.URL.Path == "/me/player" {
					json.NewEncoder(w).Encode(map[string]any{
						"is_playing":    playing,
						"shuffle_state": false,
						"repeat_state":  "context",
						"device":        map[string]any{"id": "d1", "is_active": true},
					})
					return
				}
				got = append(got, request{r.Method, r.URL.Path, r.URL.RawQuery})
				w.WriteHeader(http.StatusNoContent)
			}, nil)

			nowPlaying, err := client.TogglePlayback(context.Background())
			if err != nil || nowPlaying {
				t.Fatalf("expected pause, got playing=%v err=%v", nowPlaying, err)
			}
			shuffle, err := client.ToggleShuffle(context.Background())
			if err != nil || !shuffle {
				t.Fatalf("expected shuffle on, got %v err=%v", shuffle, err)
			}
			mode, err := client.CycleRepeat(context.Background())
			if err != nil || mode != RepeatTrack {
				t.Fatalf("expected repeat track, got %q err=%v", mode, err)
			}

			mu.Lock()
			playing = false
			mu.Unlock()
			if nowPlaying, err := client.TogglePlayback(context.Background()); err != nil || !nowPlaying {
				t.Errorf("expected resume, got playing=%v err=%v", nowPlaying, err)
			}

			want := []request{
				{http.MethodPut, "/me/player/pause", ""},
				{http.MethodPut, "/me/player/shuffle", "state=true"},
				{http.MethodPut, "/me/player/repeat", "state=track"},
				{http.MethodPut, "/me/player/play", ""},
			}

			mu.Lock()
			defer mu.Unlock()
			if len(got) != len(want) {
				t.Fatalf("expected %v, got %v", want, got)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("request %d: expected %v, got %v", i, want[i], got[i])
				}
			}
		})

		t.Run("Toggles Without Device", func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
				}
				w.WriteHeader(http.StatusNoContent)
			}, nil)

			if _, err := client.TogglePlayback(context.Background()); !errors.Is(err, shared.ErrNoActiveDevice) {
				t.Errorf("expected ErrNoActiveDevice, got %v", err)
			}
			if _, err := client.CycleRepeat(context.Background()); !errors.Is(err, shared.ErrNoActiveDevice) {
				t.Errorf("expected ErrNoActiveDevice, got %v", err)
			}
		})
	})

	t.Run("NextRepeatMode", func(t *testing.T) {
		tests := map[string]string{
			RepeatOff:     RepeatContext,
			RepeatContext: RepeatTrack,
			RepeatTrack:   RepeatOff,
			"":            RepeatOff,
		}
		for mode, want := range tests {
			if got := NextRepeatMode(mode); got != want {
				t.Errorf("NextRepeatMode(%q) = %q, want %q", mode, got, want)
			}
		}
	})

	t.Run("Library", func(t *testing.T) {
		t.Run("RecentlyPlayed Limit", func(t *testing.T) {
			var limit string
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				limit = r.URL.Query().Get("limit")
				json.NewEncoder(w).Encode(map[string]any{
					"items": []map[string]any{{"track": map[string]any{"name": "Old Song"}, "played_at": "2025-01-01T00:00:00Z"}},
				})
			}, nil)

			recent, err := client.RecentlyPlayed(context.Background(), 500)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if limit != "50" {
				t.Errorf("expected limit clamped to 50, got %s", limit)
			}
			if len(recent.Items) != 1 || recent.Items[0].Track.Name != "Old Song" {
				t.Errorf("unexpected items %+v", recent.Items)
			}
		})

		t.Run("AllPlaylists Follows Pages", func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				offset := r.URL.Query().Get("offset")
				page := map[string]any{"items": []map[string]any{{"id": "p-" + offset, "name": "List " + offset}}}
				if offset == "0" {
					page["next"] = "https://api.spotify.com/v1/me/playlists?offset=50"
				}
				json.NewEncoder(w).Encode(page)
			}, nil)

			playlists, err := client.AllPlaylists(context.Background())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(playlists) != 2 || playlists[1].ID != "p-50" {
				t.Errorf("unexpected playlists %+v", playlists)
			}
		})
	})

	t.Run("Server Errors", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, nil)

		_, err := client.Devices(context.Background())
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}
