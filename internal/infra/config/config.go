// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Playback     PlaybackConfig     `yaml:"playback"`
	Audio        AudioConfig        `yaml:"audio"`
	Notification NotificationConfig `yaml:"notification"`
	Library      LibraryConfig      `yaml:"library"`
	Catalog      CatalogConfig      `yaml:"catalog"`
	Spotify      SpotifyConfig      `yaml:"spotify"`
	Lastfm       LastfmConfig       `yaml:"lastfm"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Token string      `yaml:"token" validate:"required"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// PlaybackConfig represents playback session configuration.
type PlaybackConfig struct {
	InboxSize          int `yaml:"inbox_size" default:"64" validate:"gte=1,lte=4096"`
	OperationTimeoutMs int `yaml:"operation_timeout_ms" default:"10000" validate:"gte=100,lte=120000"`
	SubscriberBuffer   int `yaml:"subscriber_buffer" default:"32" validate:"gte=1,lte=1024"`
}

// AudioConfig represents audio output configuration.
type AudioConfig struct {
	SampleRate    int `yaml:"sample_rate" default:"44100" validate:"oneof=22050 32000 44100 48000 96000"`
	BufferMs      int `yaml:"buffer_ms" default:"100" validate:"gte=10,lte=2000"`
	MaxDownloadMB int `yaml:"max_download_mb" default:"64" validate:"gte=1,lte=1024"`
}

// NotificationConfig represents now playing surface configuration.
type NotificationConfig struct {
	Backend      string `yaml:"backend" default:"desktop" validate:"oneof=desktop mpris none"`
	AppName      string `yaml:"app_name" default:"CloudTune"`
	Icon         string `yaml:"icon" default:"audio-x-generic"`
	TimeoutMs    int    `yaml:"timeout_ms" default:"0" validate:"gte=0"`
	Recreate     bool   `yaml:"recreate"`
	ForwardSkips bool   `yaml:"forward_skips"`
}

// LibraryConfig represents the local library database configuration.
type LibraryConfig struct {
	Path string `yaml:"path"` // Empty uses the XDG data directory
}

// CatalogConfig represents track catalog configuration.
type CatalogConfig struct {
	Sources []SourceConfig `yaml:"sources" validate:"dive"`
}

// SourceConfig represents a single catalog source configuration.
type SourceConfig struct {
	Type        string         `yaml:"type" validate:"required,oneof=library spotify"`
	DisplayName string         `yaml:"display_name" validate:"required"`
	Settings    map[string]any `yaml:"settings"`
}

// SpotifyConfig represents Spotify API configuration.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
}

// LastfmConfig represents Last.fm scrobbling configuration.
// Scrobbling is enabled when all three values are set.
type LastfmConfig struct {
	APIKey     string `yaml:"api_key"`
	APISecret  string `yaml:"api_secret"`
	SessionKey string `yaml:"session_key"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if len(cfg.Catalog.Sources) == 0 {
		cfg.Catalog.Sources = []SourceConfig{{Type: "library", DisplayName: "Library"}}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REFRESH_TOKEN"); v != "" {
		c.Spotify.RefreshToken = v
	}
	if v := os.Getenv("LASTFM_API_KEY"); v != "" {
		c.Lastfm.APIKey = v
	}
	if v := os.Getenv("LASTFM_API_SECRET"); v != "" {
		c.Lastfm.APISecret = v
	}
	if v := os.Getenv("LASTFM_SESSION_KEY"); v != "" {
		c.Lastfm.SessionKey = v
	}
	if v := os.Getenv("PLAYERD_TOKEN"); v != "" {
		c.Server.Token = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.UsesSource("spotify") && !c.Spotify.HasCredentials() {
		return errors.New("spotify catalog source requires client_id, client_secret and refresh_token")
	}

	return nil
}

// UsesSource reports whether a catalog source of the given type is configured.
func (c *Config) UsesSource(sourceType string) bool {
	for _, s := range c.Catalog.Sources {
		if s.Type == sourceType {
			return true
		}
	}
	return false
}

// HasCredentials reports whether all Spotify credentials are set.
func (s SpotifyConfig) HasCredentials() bool {
	return s.ClientID != "" && s.ClientSecret != "" && s.RefreshToken != ""
}

// Enabled reports whether scrobbling is configured.
func (l LastfmConfig) Enabled() bool {
	return l.APIKey != "" && l.APISecret != "" && l.SessionKey != ""
}

// OperationTimeout returns the adapter call deadline.
func (p PlaybackConfig) OperationTimeout() time.Duration {
	return time.Duration(p.OperationTimeoutMs) * time.Millisecond
}

// Buffer returns the audio output buffer length.
func (a AudioConfig) Buffer() time.Duration {
	return time.Duration(a.BufferMs) * time.Millisecond
}

// DBPath returns the library database path, creating the XDG data
// directory when no path is configured.
func (l LibraryConfig) DBPath() (string, error) {
	if l.Path != "" {
		return l.Path, nil
	}
	path, err := xdg.DataFile(filepath.Join("cloudtune", "library.db"))
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve library path")
	}
	return path, nil
}

// Timeout returns the notification expiry; zero lets the server decide.
func (n NotificationConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutMs) * time.Millisecond
}
