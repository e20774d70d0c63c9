// Package spotify provides a client for the Spotify API.
package spotify

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/epitaph76/cloudtune/internal/domain/track"
)

// Client is a Spotify API client.
type Client struct {
	client     *spotify.Client
	market     string
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Market       string
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
	)

	// Create token from refresh token
	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	// Get HTTP client with auto-refresh capability
	return newClient(auth.Client(ctx, token), cfg.Market), nil
}

func newClient(httpClient *http.Client, market string, opts ...spotify.ClientOption) *Client {
	if market == "" {
		market = "JP"
	}
	return &Client{
		client:     spotify.New(httpClient, opts...),
		market:     market,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

var bareTrackID = regexp.MustCompile(`^[0-9A-Za-z]{22}$`)

// IsTrackReference reports whether id looks like a Spotify track id, URI or URL.
func (c *Client) IsTrackReference(id string) bool {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "spotify:track:") {
		return true
	}
	if strings.Contains(id, "open.spotify.com") && strings.Contains(id, "/track/") {
		return true
	}
	return bareTrackID.MatchString(id)
}

// ResolveTrack retrieves a track and returns its preview stream as a playable reference.
// Tracks without a preview stream, and ids Spotify does not know, are reported
// with track.ErrNotFound.
func (c *Client) ResolveTrack(ctx context.Context, trackID string, market string) (track.Ref, error) {
	// Extract track ID from URL/URI if necessary
	id := extractTrackID(trackID)
	if id == "" {
		return track.Ref{}, errors.Mark(errors.New("empty spotify track id"), track.ErrNotFound)
	}

	if market == "" {
		market = c.market
	}

	var result *spotify.FullTrack
	err := c.retry(ctx, func() error {
		t, err := c.client.GetTrack(ctx, spotify.ID(id), spotify.Market(market))
		if err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		if isNotFound(err) {
			return track.Ref{}, errors.Mark(errors.Wrapf(err, "spotify track %s", id), track.ErrNotFound)
		}
		return track.Ref{}, errors.Wrap(err, "failed to get track")
	}

	if result.PreviewURL == "" {
		return track.Ref{}, errors.Mark(errors.Newf("spotify track %s has no preview stream", id), track.ErrNotFound)
	}
	return convertTrack(result), nil
}

// convertTrack converts a Spotify FullTrack to a playable reference.
func convertTrack(t *spotify.FullTrack) track.Ref {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}
	return track.Ref{
		ID:     "spotify:track:" + string(t.ID),
		Source: t.PreviewURL,
		Title:  t.Name,
		Artist: strings.Join(artists, ", "),
	}
}

// GetTrackURL returns the Spotify URL for a track.
func GetTrackURL(trackID string) string {
	return "https://open.spotify.com/track/" + extractTrackID(trackID)
}

// retry retries an operation with linear backoff.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			select {
			case <-ctx.Done():
				return errors.WithSecondaryError(ctx.Err(), lastErr)
			case <-time.After(c.retryDelay * time.Duration(i+1)):
			}
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if status, ok := statusOf(err); ok {
		return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

// isNotFound reports errors that mean the id is unknown or malformed.
func isNotFound(err error) bool {
	if status, ok := statusOf(err); ok {
		return status == http.StatusNotFound || status == http.StatusBadRequest
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "404") || strings.Contains(errStr, "non existing id") || strings.Contains(errStr, "invalid id")
}

func statusOf(err error) (int, bool) {
	var se spotify.Error
	if errors.As(err, &se) && se.Status != 0 {
		return se.Status, true
	}
	var sp *spotify.Error
	if errors.As(err, &sp) && sp != nil && sp.Status != 0 {
		return sp.Status, true
	}
	return 0, false
}

// extractTrackID extracts the track ID from a Spotify track URL or URI.
func extractTrackID(input string) string {
	input = strings.TrimSpace(input)
	// Handle Spotify URI format: spotify:track:TRACK_ID
	if strings.HasPrefix(input, "spotify:track:") {
		return strings.TrimPrefix(input, "spotify:track:")
	}

	// Handle URL format: https://open.spotify.com/track/TRACK_ID or https://open.spotify.com/intl-XX/track/TRACK_ID
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/track/") {
		parts := strings.Split(input, "/track/")
		if len(parts) >= 2 {
			// Remove query parameters and trailing slashes
			id := strings.Split(parts[len(parts)-1], "?")[0]
			id = strings.TrimRight(id, "/")
			return id
		}
	}

	// Assume it's already a track ID
	return input
}
