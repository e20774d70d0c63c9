package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("server:\n  token: secret\n"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 64, cfg.Playback.InboxSize)
	assert.Equal(t, 10*time.Second, cfg.Playback.OperationTimeout())
	assert.Equal(t, 32, cfg.Playback.SubscriberBuffer)
	assert.Equal(t, 44100, cfg.Audio.SampleRate)
	assert.Equal(t, 100*time.Millisecond, cfg.Audio.Buffer())
	assert.Equal(t, "desktop", cfg.Notification.Backend)
	assert.Equal(t, "CloudTune", cfg.Notification.AppName)
	assert.Empty(t, cfg.Library.Path)
	assert.Equal(t, "JP", cfg.Spotify.Market)
	require.Len(t, cfg.Catalog.Sources, 1)
	assert.Equal(t, "library", cfg.Catalog.Sources[0].Type)
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{
			name:    "missing token",
			yaml:    "server:\n  addr: \":9000\"\n",
			wantErr: true,
		},
		{
			name:    "unknown notification backend",
			yaml:    "server:\n  token: t\nnotification:\n  backend: toast\n",
			wantErr: true,
		},
		{
			name:    "unsupported sample rate",
			yaml:    "server:\n  token: t\naudio:\n  sample_rate: 12345\n",
			wantErr: true,
		},
		{
			name:    "spotify source without credentials",
			yaml:    "server:\n  token: t\ncatalog:\n  sources:\n    - type: spotify\n      display_name: Spotify\n",
			wantErr: true,
		},
		{
			name:    "source without display name",
			yaml:    "server:\n  token: t\ncatalog:\n  sources:\n    - type: library\n",
			wantErr: true,
		},
		{
			name: "spotify source with credentials",
			yaml: `server:
  token: t
spotify:
  client_id: id
  client_secret: secret
  refresh_token: refresh
catalog:
  sources:
    - type: library
      display_name: Library
      settings:
        verify_files: true
    - type: spotify
      display_name: Spotify
      settings:
        market: US
`,
		},
		{
			name:    "invalid yaml",
			yaml:    "server: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("PLAYERD_TOKEN", "from-env")
	t.Setenv("SPOTIFY_CLIENT_ID", "id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")
	t.Setenv("SPOTIFY_REFRESH_TOKEN", "refresh")

	cfg, err := Parse([]byte("server:\n  token: from-file\ncatalog:\n  sources:\n    - type: spotify\n      display_name: Spotify\n"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Server.Token)
	assert.False(t, cfg.Lastfm.Enabled())
	assert.True(t, cfg.Spotify.HasCredentials())
	assert.True(t, cfg.UsesSource("spotify"))
	assert.False(t, cfg.UsesSource("library"))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playerd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  token: t\nnotification:\n  backend: none\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.Notification.Backend)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_SampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "..", "config", "playerd.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "desktop", cfg.Notification.Backend)
	assert.False(t, cfg.Notification.ForwardSkips)
	require.Len(t, cfg.Catalog.Sources, 1)
	assert.Equal(t, true, cfg.Catalog.Sources[0].Settings["verify_files"])
}

func TestLibraryConfig_DBPath(t *testing.T) {
	path, err := LibraryConfig{Path: "/tmp/lib.db"}.DBPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/lib.db", path)

	t.Setenv("XDG_DATA_HOME", t.TempDir())
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	path, err = LibraryConfig{}.DBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(os.Getenv("XDG_DATA_HOME"), "cloudtune", "library.db"), path)
	assert.DirExists(t, filepath.Dir(path))
}

func TestParse_LastfmFromEnv(t *testing.T) {
	t.Setenv("LASTFM_API_KEY", "key")
	t.Setenv("LASTFM_API_SECRET", "secret")

	cfg, err := Parse([]byte("server:\n  token: t\nlastfm:\n  session_key: sk\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Lastfm.Enabled())
	assert.Equal(t, "key", cfg.Lastfm.APIKey)
	assert.Equal(t, "sk", cfg.Lastfm.SessionKey)
}
