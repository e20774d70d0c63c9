package main

import (
	"io"

	zlog "github.com/rs/zerolog/log"

	"github.com/epitaph76/cloudtune/internal/app/playback"
	"github.com/epitaph76/cloudtune/internal/domain/nowplaying"
	"github.com/epitaph76/cloudtune/internal/infra/config"
	"github.com/epitaph76/cloudtune/internal/infra/desktop"
	"github.com/epitaph76/cloudtune/internal/infra/mpris"
)

type closingNotifier interface {
	nowplaying.Notifier
	io.Closer
}

type discard struct {
	nowplaying.Discard
}

func (discard) Close() error { return nil }

// newNotifier builds the configured now playing surface.
// An unavailable surface is logged and playback continues without one.
func newNotifier(cfg config.NotificationConfig) closingNotifier {
	var (
		n   closingNotifier
		err error
	)
	switch cfg.Backend {
	case "desktop":
		n, err = desktopNotifier(cfg)
	case "mpris":
		n, err = mprisNotifier(cfg)
	default:
		return discard{}
	}
	if err != nil {
		zlog.Warn().Msgf("Now playing surface unavailable, continuing without it: backend=%s error=%v", cfg.Backend, err)
		return discard{}
	}
	zlog.Info().Msgf("Now playing surface ready: backend=%s", cfg.Backend)
	return n
}

// desktopNotifier and mprisNotifier return untyped nil on failure so the
// interface never wraps a nil pointer.
func desktopNotifier(cfg config.NotificationConfig) (closingNotifier, error) {
	n, err := desktop.New(desktop.Config{
		AppName:  cfg.AppName,
		Icon:     cfg.Icon,
		Timeout:  cfg.Timeout(),
		Recreate: cfg.Recreate,
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

func mprisNotifier(cfg config.NotificationConfig) (closingNotifier, error) {
	n, err := mpris.New(cfg.AppName, cfg.AppName)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func logStatus(s playback.Snapshot) {
	ev := zlog.Info().Str("state", s.State.String()).Uint64("generation", s.Generation)
	if s.Track != nil {
		ev = ev.Str("track_id", s.Track.ID).Str("title", s.Track.DisplayTitle())
	}
	if s.Err != nil {
		ev = ev.Str("error", s.Err.Error())
	}
	ev.Msg("Playback status")
}
