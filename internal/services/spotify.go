// Spotify Web API playback client
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotx/internal/shared"
	"golang.org/x/time/rate"
)

const spotifyBaseURL = "https://api.spotify.com/v1"

// SpotifyClientOpts configures a [SpotifyClient]. Tokens is required.
type SpotifyClientOpts struct {
	Tokens     TokenProvider
	BaseURL    string
	Config     shared.APIConfig
	HTTPClient *http.Client
	Logger     *log.Logger
}

// SpotifyClient calls the Spotify Web API on behalf of the signed-in user.
//
// Every request asks the [TokenProvider] for a token first, so expiring tokens are refreshed before use.
type SpotifyClient struct {
	tokens     TokenProvider
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewSpotifyClient creates a new [SpotifyClient].
func NewSpotifyClient(opts SpotifyClientOpts) (*SpotifyClient, error) {
	if opts.Tokens == nil {
		return nil, fmt.Errorf("%w: spotify client requires a token provider", shared.ErrInvalidConfig)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Config.Timeout.Duration}
	}

	limit := rate.Inf
	burst := 1
	if rps := opts.Config.RequestsPerSecond; rps > 0 {
		limit = rate.Limit(rps)
		burst = max(1, int(rps))
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &SpotifyClient{
		tokens:     opts.Tokens,
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
		logger:     logger,
	}, nil
}

// CurrentlyPlaying returns the item playing on the active device, or nil when nothing is playing.
func (c *SpotifyClient) CurrentlyPlaying(ctx context.Context) (*CurrentlyPlaying, error) {
	var current CurrentlyPlaying
	ok, err := c.do(ctx, http.MethodGet, "/me/player/currently-playing", nil, nil, &current)
	if err != nil || !ok {
		return nil, err
	}
	return &current, nil
}

// PlaybackState returns the player state, or nil when no device is active.
func (c *SpotifyClient) PlaybackState(ctx context.Context) (*PlaybackState, error) {
	var state PlaybackState
	ok, err := c.do(ctx, http.MethodGet, "/me/player", nil, nil, &state)
	if err != nil || !ok {
		return nil, err
	}
	return &state, nil
}

// Queue returns the user's playback queue, or nil when no device is active.
func (c *SpotifyClient) Queue(ctx context.Context) (*Queue, error) {
	var queue Queue
	ok, err := c.do(ctx, http.MethodGet, "/me/player/queue", nil, nil, &queue)
	if err != nil || !ok {
		return nil, err
	}
	return &queue, nil
}

// Devices lists the user's available Spotify Connect devices.
func (c *SpotifyClient) Devices(ctx context.Context) (*Devices, error) {
	var devices Devices
	if _, err := c.do(ctx, http.MethodGet, "/me/player/devices", nil, nil, &devices); err != nil {
		return nil, err
	}
	return &devices, nil
}

// PlayOptions selects what to start. The zero value resumes playback.
type PlayOptions struct {
	DeviceID   string
	TrackURI   string // play a single track
	ContextURI string // play a playlist or album
	Offset     *int   // position within ContextURI
}

// Play starts or resumes playback.
func (c *SpotifyClient) Play(ctx context.Context, opts PlayOptions) error {
	var query url.Values
	if opts.DeviceID != "" {
		query = url.Values{"device_id": {opts.DeviceID}}
	}

	var body any
	switch {
	case opts.ContextURI != "":
		playContext := map[string]any{"context_uri": opts.ContextURI}
		if opts.Offset != nil {
			playContext["offset"] = map[string]int{"position": *opts.Offset}
		}
		body = playContext
	case opts.TrackURI != "":
		body = map[string]any{"uris": []string{opts.TrackURI}}
	}

	_, err := c.do(ctx, http.MethodPut, "/me/player/play", query, body, nil)
	return noDevice(err)
}

// Pause pauses playback on the active device.
func (c *SpotifyClient) Pause(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPut, "/me/player/pause", nil, nil, nil)
	return noDevice(err)
}

// Next skips to the next item.
func (c *SpotifyClient) Next(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/me/player/next", nil, nil, nil)
	return noDevice(err)
}

// Previous skips to the previous item.
func (c *SpotifyClient) Previous(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/me/player/previous", nil, nil, nil)
	return noDevice(err)
}

// AddToQueue appends uri to the queue.
func (c *SpotifyClient) AddToQueue(ctx context.Context, uri string) error {
	if uri == "" {
		return fmt.Errorf("%w: uri", shared.ErrMissingArgument)
	}
	_, err := c.do(ctx, http.MethodPost, "/me/player/queue", url.Values{"uri": {uri}}, nil, nil)
	return noDevice(err)
}

// SetShuffle toggles shuffle.
func (c *SpotifyClient) SetShuffle(ctx context.Context, on bool) error {
	_, err := c.do(ctx, http.MethodPut, "/me/player/shuffle", url.Values{"state": {strconv.FormatBool(on)}}, nil, nil)
	return noDevice(err)
}

// SetRepeat sets the repeat mode to one of [RepeatOff], [RepeatContext] or [RepeatTrack].
func (c *SpotifyClient) SetRepeat(ctx context.Context, mode string) error {
	switch mode {
	case RepeatOff, RepeatContext, RepeatTrack:
	default:
		return fmt.Errorf("%w: repeat mode %q", shared.ErrInvalidArgument, mode)
	}
	_, err := c.do(ctx, http.MethodPut, "/me/player/repeat", url.Values{"state": {mode}}, nil, nil)
	return noDevice(err)
}

// TogglePlayback pauses when something is playing and resumes otherwise. It reports whether playback is now running.
func (c *SpotifyClient) TogglePlayback(ctx context.Context) (bool, error) {
	state, err := c.activeState(ctx)
	if err != nil {
		return false, err
	}
	if state.IsPlaying {
		return false, c.Pause(ctx)
	}
	return true, c.Play(ctx, PlayOptions{})
}

// ToggleShuffle flips the current shuffle state and returns the new one.
func (c *SpotifyClient) ToggleShuffle(ctx context.Context) (bool, error) {
	state, err := c.activeState(ctx)
	if err != nil {
		return false, err
	}
	on := !state.ShuffleState
	return on, c.SetShuffle(ctx, on)
}

// CycleRepeat advances the repeat mode with [NextRepeatMode] and returns the new mode.
func (c *SpotifyClient) CycleRepeat(ctx context.Context) (string, error) {
	state, err := c.activeState(ctx)
	if err != nil {
		return "", err
	}
	mode := NextRepeatMode(state.RepeatState)
	return mode, c.SetRepeat(ctx, mode)
}

// NextRepeatMode cycles off, context, track and back to off. Unknown modes restart at off.
func NextRepeatMode(mode string) string {
	switch mode {
	case RepeatOff:
		return RepeatContext
	case RepeatContext:
		return RepeatTrack
	default:
		return RepeatOff
	}
}

func (c *SpotifyClient) activeState(ctx context.Context) (*PlaybackState, error) {
	state, err := c.PlaybackState(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil || state.Device == nil {
		return nil, shared.ErrNoActiveDevice
	}
	return state, nil
}

// SetVolume sets the active device's volume, clamped to 0..100.
func (c *SpotifyClient) SetVolume(ctx context.Context, percent int) error {
	percent = min(max(percent, 0), 100)

	if _, err := c.activeState(ctx); err != nil {
		return err
	}

	query := url.Values{"volume_percent": {strconv.Itoa(percent)}}
	_, err := c.do(ctx, http.MethodPut, "/me/player/volume", query, nil, nil)
	return noDevice(err)
}

// TransferPlayback moves playback to deviceID.
func (c *SpotifyClient) TransferPlayback(ctx context.Context, deviceID string, play bool) error {
	if deviceID == "" {
		return fmt.Errorf("%w: device id", shared.ErrMissingArgument)
	}
	body := map[string]any{"device_ids": []string{deviceID}, "play": play}
	_, err := c.do(ctx, http.MethodPut, "/me/player", nil, body, nil)
	return noDevice(err)
}

// RecentlyPlayed returns up to limit (1..50, default 20) recently played tracks.
func (c *SpotifyClient) RecentlyPlayed(ctx context.Context, limit int) (*RecentlyPlayed, error) {
	limit = clampLimit(limit)

	var recent RecentlyPlayed
	query := url.Values{"limit": {strconv.Itoa(limit)}}
	if _, err := c.do(ctx, http.MethodGet, "/me/player/recently-played", query, nil, &recent); err != nil {
		return nil, err
	}
	return &recent, nil
}

// Playlists retrieves the current user's playlists with pagination.
func (c *SpotifyClient) Playlists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	limit = clampLimit(limit)

	query := url.Values{"limit": {strconv.Itoa(limit)}, "offset": {strconv.Itoa(max(offset, 0))}}

	var response SpotifyPaginatedPlaylists
	if _, err := c.do(ctx, http.MethodGet, "/me/playlists", query, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// AllPlaylists follows pagination until every playlist is loaded.
func (c *SpotifyClient) AllPlaylists(ctx context.Context) ([]SpotifySimplePlaylist, error) {
	var all []SpotifySimplePlaylist
	limit := 50
	offset := 0

	for {
		page, err := c.Playlists(ctx, limit, offset)
		if err != nil {
			return nil, err
		}

		all = append(all, page.Items...)
		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += limit
	}
	return all, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return min(limit, 50)
}
