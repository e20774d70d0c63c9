package mpris

import (
	"testing"

	"github.com/quarckster/go-mpris-server/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epitaph76/cloudtune/internal/domain/nowplaying"
)

func newTestPlayer() *playerAdapter {
	return &playerAdapter{surface: &surface{}, actions: make(chan nowplaying.Action, 4)}
}

func TestSurface_Set(t *testing.T) {
	s := &surface{}
	info := nowplaying.Info{Title: "Song", Artist: "Band"}
	actions := nowplaying.Actions{Toggle: true}

	meta, status := s.set(info, false, actions)
	assert.True(t, meta)
	assert.True(t, status)

	meta, status = s.set(info, true, actions)
	assert.False(t, meta)
	assert.True(t, status)

	meta, status = s.set(nowplaying.Info{Title: "Other"}, true, actions)
	assert.True(t, meta)
	assert.False(t, status)

	assert.True(t, s.clear())
	assert.False(t, s.clear())
	visible, _, _, _ := s.snapshot()
	assert.False(t, visible)
}

func TestPlayerAdapter_Status(t *testing.T) {
	p := newTestPlayer()

	status, err := p.PlaybackStatus()
	require.NoError(t, err)
	assert.Equal(t, types.PlaybackStatusStopped, status)

	p.surface.set(nowplaying.Info{Title: "Song"}, false, nowplaying.Actions{Toggle: true})
	status, _ = p.PlaybackStatus()
	assert.Equal(t, types.PlaybackStatusPaused, status)

	p.surface.set(nowplaying.Info{Title: "Song"}, true, nowplaying.Actions{Toggle: true})
	status, _ = p.PlaybackStatus()
	assert.Equal(t, types.PlaybackStatusPlaying, status)
}

func TestPlayerAdapter_Commands(t *testing.T) {
	p := newTestPlayer()

	// Nothing visible: commands are ignored.
	require.NoError(t, p.PlayPause())
	require.NoError(t, p.Next())
	assert.Empty(t, p.actions)

	p.surface.set(nowplaying.Info{Title: "Song"}, true, nowplaying.Actions{Toggle: true})
	require.NoError(t, p.Play())
	assert.Empty(t, p.actions, "play while playing is a no-op")

	require.NoError(t, p.Pause())
	assert.Equal(t, nowplaying.ActionToggle, <-p.actions)

	require.NoError(t, p.Next())
	assert.Empty(t, p.actions, "skip buttons are hidden")

	p.surface.set(nowplaying.Info{Title: "Song"}, false, nowplaying.Actions{Toggle: true, Next: true, Previous: true})
	require.NoError(t, p.Play())
	require.NoError(t, p.Next())
	require.NoError(t, p.Previous())
	assert.Equal(t, nowplaying.ActionToggle, <-p.actions)
	assert.Equal(t, nowplaying.ActionNext, <-p.actions)
	assert.Equal(t, nowplaying.ActionPrevious, <-p.actions)

	canNext, _ := p.CanGoNext()
	assert.True(t, canNext)
}

func TestPlayerAdapter_DropsWhenFull(t *testing.T) {
	p := &playerAdapter{surface: &surface{}, actions: make(chan nowplaying.Action, 1)}
	p.surface.set(nowplaying.Info{Title: "Song"}, true, nowplaying.Actions{Toggle: true})

	require.NoError(t, p.PlayPause())
	require.NoError(t, p.PlayPause())
	assert.Len(t, p.actions, 1)
}

func TestPlayerAdapter_Metadata(t *testing.T) {
	p := newTestPlayer()

	meta, err := p.Metadata()
	require.NoError(t, err)
	assert.Empty(t, meta.Title)

	p.surface.set(nowplaying.Info{Title: "Song", Artist: "Band"}, true, nowplaying.Actions{})
	meta, err = p.Metadata()
	require.NoError(t, err)
	assert.Equal(t, "Song", meta.Title)
	assert.Equal(t, []string{"Band"}, meta.Artist)
	assert.Contains(t, string(meta.TrackId), "/org/mpris/MediaPlayer2/Track/")
}

func TestRootAdapter(t *testing.T) {
	r := &rootAdapter{identity: "CloudTune"}
	id, err := r.Identity()
	require.NoError(t, err)
	assert.Equal(t, "CloudTune", id)

	canQuit, _ := r.CanQuit()
	assert.False(t, canQuit)
}
