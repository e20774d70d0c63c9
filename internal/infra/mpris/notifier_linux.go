//go:build linux

package mpris

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/quarckster/go-mpris-server/pkg/events"
	"github.com/quarckster/go-mpris-server/pkg/server"
	zlog "github.com/rs/zerolog/log"

	"github.com/epitaph76/cloudtune/internal/domain/nowplaying"
)

const actionBuffer = 16

// Notifier publishes the now playing surface over MPRIS.
// The surface is updated in place, so Show always returns the same handle.
type Notifier struct {
	server  *server.Server
	events  *events.EventHandler
	surface *surface
	actions chan nowplaying.Action

	listenErr chan error
	closeOnce sync.Once
}

var _ nowplaying.Notifier = (*Notifier)(nil)

// New registers org.mpris.MediaPlayer2.<name> on the session bus.
func New(name, identity string) (*Notifier, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, errors.New("mpris bus name is required")
	}

	n := &Notifier{
		surface:   &surface{},
		actions:   make(chan nowplaying.Action, actionBuffer),
		listenErr: make(chan error, 1),
	}
	player := &playerAdapter{surface: n.surface, actions: n.actions}
	n.server = server.NewServer(name, &rootAdapter{identity: identity}, player)
	n.events = events.NewEventHandler(n.server)

	// Start the server in background
	go func() {
		if err := n.server.Listen(); err != nil {
			zlog.Error().Err(err).Msg("mpris server stopped")
			n.listenErr <- err
		}
	}()

	zlog.Info().Msgf("mpris surface registered: name=%s", name)
	return n, nil
}

// Show updates the surface in place.
func (n *Notifier) Show(_ context.Context, info nowplaying.Info, playing bool, actions nowplaying.Actions) (nowplaying.Handle, error) {
	if err := n.failed(); err != nil {
		return "", nowplaying.NotificationError(err, "mpris server unavailable")
	}

	metadataChanged, statusChanged := n.surface.set(info, playing, actions)
	if metadataChanged {
		n.emit(n.events.Player.OnTitle)
	}
	if statusChanged {
		n.emit(n.events.Player.OnPlayPause)
	}
	return surfaceHandle, nil
}

// Dismiss clears the surface.
func (n *Notifier) Dismiss(_ context.Context, h nowplaying.Handle) error {
	if h != surfaceHandle {
		return nil
	}
	if n.surface.clear() {
		n.emit(n.events.Player.OnTitle)
		n.emit(n.events.Player.OnPlayPause)
	}
	return nil
}

// Actions returns the transport command feed.
func (n *Notifier) Actions() <-chan nowplaying.Action {
	return n.actions
}

// Close releases the bus name.
func (n *Notifier) Close() error {
	var err error
	n.closeOnce.Do(func() {
		err = n.server.Stop()
	})
	return errors.Wrap(err, "failed to stop mpris server")
}

func (n *Notifier) failed() error {
	select {
	case err := <-n.listenErr:
		n.listenErr <- err
		return err
	default:
		return nil
	}
}

// emit sends PropertiesChanged. Signals before the bus connection is up are dropped.
func (n *Notifier) emit(fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Debug().Msgf("mpris signal skipped: %v", r)
		}
	}()
	if err := fn(); err != nil {
		zlog.Debug().Msgf("mpris signal failed: %v", err)
	}
}
