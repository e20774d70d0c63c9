// Package lastfm reports what the session plays to Last.fm.
package lastfm

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shkh/lastfm-go/lastfm"
)

// Play is one listen of a track.
type Play struct {
	Artist    string
	Title     string
	StartedAt time.Time
}

// Client wraps the Last.fm API for scrobbling operations.
type Client struct {
	api *lastfm.Api
}

// Config represents Last.fm client configuration.
type Config struct {
	APIKey     string
	APISecret  string
	SessionKey string
}

// New creates an authenticated client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" || cfg.SessionKey == "" {
		return nil, errors.New("lastfm api key, secret and session key are required")
	}
	api := lastfm.New(cfg.APIKey, cfg.APISecret)
	api.SetSession(cfg.SessionKey)
	return &Client{api: api}, nil
}

// UpdateNowPlaying sends a "now playing" notification to Last.fm.
func (c *Client) UpdateNowPlaying(p Play) error {
	_, err := c.api.Track.UpdateNowPlaying(lastfm.P{
		"artist": p.Artist,
		"track":  p.Title,
	})
	return errors.Wrap(err, "update now playing")
}

// Scrobble submits a finished listen.
func (c *Client) Scrobble(p Play) error {
	_, err := c.api.Track.Scrobble(lastfm.P{
		"artist":    p.Artist,
		"track":     p.Title,
		"timestamp": p.StartedAt.Unix(),
	})
	return errors.Wrap(err, "scrobble")
}
