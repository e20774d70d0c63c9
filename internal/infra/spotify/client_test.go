package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	crerrors "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zmb3/spotify/v2"

	"github.com/epitaph76/cloudtune/internal/domain/track"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := newClient(srv.Client(), "US", spotify.WithBaseURL(srv.URL+"/"))
	c.retryDelay = 0
	return c
}

func TestResolveTrack(t *testing.T) {
	var market atomic.Value
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		market.Store(r.URL.Query().Get("market"))
		switch r.URL.Path {
		case "/tracks/4uLU6hMCjMI75M1A2tKUQC":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":"4uLU6hMCjMI75M1A2tKUQC","name":"Never Gonna Give You Up",
				"artists":[{"name":"Rick Astley"}],
				"preview_url":"https://p.scdn.co/mp3-preview/abc"}`)
		case "/tracks/noPreview0000000000000":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":"noPreview0000000000000","name":"Silent","artists":[]}`)
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"status":404,"message":"non existing id"}}`)
		}
	})
	ctx := context.Background()

	ref, err := c.ResolveTrack(ctx, "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=x", "")
	require.NoError(t, err)
	assert.Equal(t, "spotify:track:4uLU6hMCjMI75M1A2tKUQC", ref.ID)
	assert.Equal(t, "https://p.scdn.co/mp3-preview/abc", ref.Source)
	assert.Equal(t, "Never Gonna Give You Up", ref.Title)
	assert.Equal(t, "Rick Astley", ref.Artist)
	assert.Equal(t, "US", market.Load())

	_, err = c.ResolveTrack(ctx, "spotify:track:4uLU6hMCjMI75M1A2tKUQC", "JP")
	require.NoError(t, err)
	assert.Equal(t, "JP", market.Load())

	_, err = c.ResolveTrack(ctx, "noPreview0000000000000", "")
	require.Error(t, err)
	assert.True(t, crerrors.Is(err, track.ErrNotFound), "missing preview is not found")

	_, err = c.ResolveTrack(ctx, "unknown000000000000000", "")
	require.Error(t, err)
	assert.True(t, crerrors.Is(err, track.ErrNotFound), "unknown id is not found")
}

func TestResolveTrack_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":{"status":503,"message":"service unavailable"}}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"4uLU6hMCjMI75M1A2tKUQC","name":"Song","preview_url":"https://p.scdn.co/x"}`)
	})

	ref, err := c.ResolveTrack(context.Background(), "4uLU6hMCjMI75M1A2tKUQC", "")
	require.NoError(t, err)
	assert.Equal(t, "Song", ref.Title)
	assert.Equal(t, int32(3), calls.Load())
}

func TestResolveTrack_GivesUp(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"error":{"status":502,"message":"bad gateway"}}`)
	})

	_, err := c.ResolveTrack(context.Background(), "4uLU6hMCjMI75M1A2tKUQC", "")
	require.Error(t, err)
	assert.False(t, crerrors.Is(err, track.ErrNotFound))
	assert.Equal(t, int32(3), calls.Load())
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{ClientID: "id"})
	assert.Error(t, err)

	c, err := New(context.Background(), Config{ClientID: "id", ClientSecret: "s", RefreshToken: "r"})
	require.NoError(t, err)
	assert.Equal(t, "JP", c.market)
}

func TestIsTrackReference(t *testing.T) {
	c := &Client{}
	tests := []struct {
		input    string
		expected bool
	}{
		{"spotify:track:4uLU6hMCjMI75M1A2tKUQC", true},
		{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", true},
		{"https://open.spotify.com/intl-ja/track/4uLU6hMCjMI75M1A2tKUQC?si=abc", true},
		{"4uLU6hMCjMI75M1A2tKUQC", true},
		{"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M", false},
		{"0d6f7a52-5a0e-4a51-9d0b-3f1d3c1f5d3e", false},
		{"/music/song.mp3", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.IsTrackReference(tt.input))
		})
	}
}

func TestExtractTrackID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Spotify URI format",
			input:    "spotify:track:4uLU6hMCjMI75M1A2tKUQC",
			expected: "4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:     "Spotify URL format",
			input:    "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC",
			expected: "4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:     "Spotify URL with query params",
			input:    "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc123",
			expected: "4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:     "Localized URL",
			input:    "https://open.spotify.com/intl-ja/track/4uLU6hMCjMI75M1A2tKUQC/",
			expected: "4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:     "Plain track ID",
			input:    " 4uLU6hMCjMI75M1A2tKUQC ",
			expected: "4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := extractTrackID(tt.input)
			assert.Equal(t, tt.expected, result,
				"extractTrackID(%s) should return %s", tt.input, tt.expected)
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "api rate limit",
			err:      spotify.Error{Status: http.StatusTooManyRequests, Message: "API rate limit exceeded"},
			expected: true,
		},
		{
			name:     "api server error",
			err:      spotify.Error{Status: http.StatusBadGateway, Message: "bad gateway"},
			expected: true,
		},
		{
			name:     "api not found",
			err:      spotify.Error{Status: http.StatusNotFound, Message: "non existing id"},
			expected: false,
		},
		{
			name:     "rate limit text",
			err:      errors.New("rate limit exceeded"),
			expected: true,
		},
		{
			name:     "server error 503",
			err:      errors.New("503 Service Unavailable"),
			expected: true,
		},
		{
			name:     "client error 400",
			err:      errors.New("400 Bad Request"),
			expected: false,
		},
		{
			name:     "generic error",
			err:      errors.New("something went wrong"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isRetryable(tt.err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetTrackURL(t *testing.T) {
	assert.Equal(t, "https://open.spotify.com/track/abc", GetTrackURL("spotify:track:abc"))
}
