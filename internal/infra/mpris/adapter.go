// Package mpris exposes the now playing surface as an MPRIS media player.
package mpris

import (
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/types"
	zlog "github.com/rs/zerolog/log"

	"github.com/epitaph76/cloudtune/internal/domain/nowplaying"
)

// surfaceHandle is the single handle of the in-place MPRIS surface.
const surfaceHandle nowplaying.Handle = "mpris"

// surface is what MPRIS clients currently see.
type surface struct {
	mu      sync.RWMutex
	visible bool
	info    nowplaying.Info
	playing bool
	actions nowplaying.Actions
}

// set updates the surface and reports which property groups changed.
func (s *surface) set(info nowplaying.Info, playing bool, actions nowplaying.Actions) (metadataChanged, statusChanged bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	metadataChanged = !s.visible || s.info != info || s.actions != actions
	statusChanged = !s.visible || s.playing != playing
	s.visible = true
	s.info = info
	s.playing = playing
	s.actions = actions
	return metadataChanged, statusChanged
}

// clear hides the surface. It reports whether anything was visible.
func (s *surface) clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	was := s.visible
	s.visible = false
	s.info = nowplaying.Info{}
	s.playing = false
	s.actions = nowplaying.Actions{}
	return was
}

func (s *surface) snapshot() (visible bool, info nowplaying.Info, playing bool, actions nowplaying.Actions) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visible, s.info, s.playing, s.actions
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct {
	identity string
}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // The daemon manages its own lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil
}

func (r *rootAdapter) Identity() (string, error) {
	return r.identity, nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file", "http", "https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{"audio/mpeg", "audio/flac", "audio/wav"}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter.
// Transport commands become surface taps; nothing is controlled directly.
type playerAdapter struct {
	surface *surface
	actions chan nowplaying.Action
}

func (p *playerAdapter) tap(a nowplaying.Action) error {
	select {
	case p.actions <- a:
	default:
		zlog.Warn().Msgf("mpris action dropped: action=%s", a)
	}
	return nil
}

func (p *playerAdapter) Next() error {
	if _, _, _, actions := p.surface.snapshot(); !actions.Next {
		return nil
	}
	return p.tap(nowplaying.ActionNext)
}

func (p *playerAdapter) Previous() error {
	if _, _, _, actions := p.surface.snapshot(); !actions.Previous {
		return nil
	}
	return p.tap(nowplaying.ActionPrevious)
}

func (p *playerAdapter) PlayPause() error {
	if visible, _, _, _ := p.surface.snapshot(); !visible {
		return nil
	}
	return p.tap(nowplaying.ActionToggle)
}

func (p *playerAdapter) Play() error {
	if visible, _, playing, _ := p.surface.snapshot(); !visible || playing {
		return nil
	}
	return p.tap(nowplaying.ActionToggle)
}

func (p *playerAdapter) Pause() error {
	if _, _, playing, _ := p.surface.snapshot(); !playing {
		return nil
	}
	return p.tap(nowplaying.ActionToggle)
}

func (p *playerAdapter) Stop() error {
	return p.Pause()
}

func (p *playerAdapter) Seek(_ types.Microseconds) error {
	return nil // Not supported
}

func (p *playerAdapter) SetPosition(_ string, _ types.Microseconds) error {
	return nil // Not supported
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(_ string) error {
	return nil // Not supported
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	visible, _, playing, _ := p.surface.snapshot()
	switch {
	case !visible:
		return types.PlaybackStatusStopped, nil
	case playing:
		return types.PlaybackStatusPlaying, nil
	default:
		return types.PlaybackStatusPaused, nil
	}
}

func (p *playerAdapter) Rate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetRate(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	visible, info, _, _ := p.surface.snapshot()
	if !visible {
		return types.Metadata{}, nil
	}

	meta := types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(info)),
		Title:   info.Title,
	}
	if info.Artist != "" {
		meta.Artist = []string{info.Artist}
	}
	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetVolume(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Position() (int64, error) {
	return 0, nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	_, _, _, actions := p.surface.snapshot()
	return actions.Next, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	_, _, _, actions := p.surface.snapshot()
	return actions.Previous, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	visible, _, _, actions := p.surface.snapshot()
	return visible && actions.Toggle, nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	visible, _, _, actions := p.surface.snapshot()
	return visible && actions.Toggle, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return false, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

func formatTrackID(info nowplaying.Info) string {
	h := fnv.New64a()
	h.Write([]byte(info.Artist + "\x00" + info.Title))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
