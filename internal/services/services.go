package services

import "context"

// TokenProvider hands out access tokens that are safe to send. Implemented by the auth manager.
type TokenProvider interface {
	GetValidAccessToken(ctx context.Context) (string, error)
	// RefreshAccessToken replaces a token the Web API rejected with 401.
	RefreshAccessToken(ctx context.Context, rejected string) (string, error)
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// SpotifyTrack represents a playable item. Episodes decode into the same shape with Type "episode".
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	URI        string          `json:"uri"`
}

// SpotifyDevice is a Spotify Connect target.
type SpotifyDevice struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"is_active"`
	VolumePercent *int   `json:"volume_percent"`
}

// SpotifyContext is the playlist, album or artist playback started from.
type SpotifyContext struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
}

// CurrentlyPlaying is the item on the user's active device.
type CurrentlyPlaying struct {
	IsPlaying  bool            `json:"is_playing"`
	ProgressMS int             `json:"progress_ms"`
	Item       *SpotifyTrack   `json:"item"`
	Context    *SpotifyContext `json:"context"`
	Device     *SpotifyDevice  `json:"device,omitempty"`
}

// PlaybackState is the full player state.
type PlaybackState struct {
	CurrentlyPlaying
	ShuffleState bool   `json:"shuffle_state"`
	RepeatState  string `json:"repeat_state"`
}

// Queue lists the current item and what plays next.
type Queue struct {
	CurrentlyPlaying *SpotifyTrack  `json:"currently_playing"`
	Queue            []SpotifyTrack `json:"queue"`
}

// PlayHistory is one recently played track.
type PlayHistory struct {
	Track    SpotifyTrack    `json:"track"`
	PlayedAt string          `json:"played_at"`
	Context  *SpotifyContext `json:"context"`
}

// RecentlyPlayed is a page of play history.
type RecentlyPlayed struct {
	Items []PlayHistory `json:"items"`
	Limit int           `json:"limit"`
	Next  *string       `json:"next"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Owner       Owner               `json:"owner"`
	Public      bool                `json:"public"`
	Tracks      simplePlaylistTrack `json:"tracks"`
	Images      []SpotifyImage      `json:"images"`
	URI         string              `json:"uri"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items    []SpotifySimplePlaylist `json:"items"`
	Total    int                     `json:"total"`
	Limit    int                     `json:"limit"`
	Offset   int                     `json:"offset"`
	Next     *string                 `json:"next"`
	Previous *string                 `json:"previous"`
}

// Devices lists the user's available devices.
type Devices struct {
	Devices []SpotifyDevice `json:"devices"`
}

// Repeat modes accepted by [SpotifyClient.SetRepeat].
const (
	RepeatOff     = "off"
	RepeatContext = "context"
	RepeatTrack   = "track"
)
