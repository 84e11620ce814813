package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Storage backends accepted by [StorageConfig.Backend].
const (
	StorageSQLite  = "sqlite"
	StorageKeyring = "keyring"
	StorageFile    = "file"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Auth    AuthConfig    `toml:"auth"`
	Storage StorageConfig `toml:"storage"`
	API     APIConfig     `toml:"api"`
	Log     LogConfig     `toml:"log"`
}

// SpotifyConfig contains the Spotify accounts and Web API endpoints.
type SpotifyConfig struct {
	AuthURL     string   `toml:"auth_url"`
	TokenURL    string   `toml:"token_url"`
	APIURL      string   `toml:"api_url"`
	RedirectURI string   `toml:"redirect_uri"`
	Scopes      []string `toml:"scopes"`
}

// AuthConfig tunes the token lifecycle.
type AuthConfig struct {
	RefreshTimeout   Duration `toml:"refresh_timeout"`
	ExchangeTimeout  Duration `toml:"exchange_timeout"`
	RefreshWindow    Duration `toml:"refresh_window"`
	AutoAuthAttempts int      `toml:"auto_auth_attempts"`
	BackoffBase      Duration `toml:"backoff_base"`
	PromptTimeout    Duration `toml:"prompt_timeout"`
}

// StorageConfig selects where credentials and tokens are persisted.
type StorageConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"` // sqlite database file
	Dir     string `toml:"dir"`  // file backend directory
}

// APIConfig contains Spotify Web API client settings.
type APIConfig struct {
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Timeout           Duration `toml:"timeout"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"` // append logs here instead of stderr
}

// Duration is a [time.Duration] written as a Go duration string ("10s") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports configuration values the application cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageSQLite, StorageKeyring, StorageFile:
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}

	if c.Spotify.TokenURL == "" || c.Spotify.AuthURL == "" {
		return fmt.Errorf("%w: spotify auth_url and token_url are required", ErrInvalidConfig)
	}
	if c.Spotify.RedirectURI == "" {
		return fmt.Errorf("%w: spotify redirect_uri is required", ErrInvalidConfig)
	}
	if c.Auth.AutoAuthAttempts < 1 {
		return fmt.Errorf("%w: auto_auth_attempts must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// SaveConfig writes config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
