// Package session provides the public entry point to the playback session.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/epitaph76/cloudtune/internal/app/notification"
	"github.com/epitaph76/cloudtune/internal/app/playback"
	"github.com/epitaph76/cloudtune/internal/domain/audio"
	"github.com/epitaph76/cloudtune/internal/domain/nowplaying"
	"github.com/epitaph76/cloudtune/internal/domain/track"
)

// Resolver turns catalog ids into playable references.
type Resolver interface {
	Resolve(ctx context.Context, id string) (track.Ref, error)
}

// Config represents coordinator configuration.
type Config struct {
	InboxSize        int
	OperationTimeout time.Duration
	SubscriberBuffer int
	ForwardSkips     bool // Offer Next/Previous on the surface and forward taps to subscribers
}

// Coordinator serializes UI requests into the playback session and fans its
// snapshots out to listeners.
type Coordinator struct {
	session  *playback.Session
	hub      *notification.Manager
	resolver Resolver

	listeners sync.WaitGroup
}

// NewCoordinator creates a coordinator owning a fresh playback session.
// resolver may be nil, in which case only fully resolved references can be played.
func NewCoordinator(engine audio.Engine, notifier nowplaying.Notifier, resolver Resolver, cfg Config) *Coordinator {
	hub := notification.NewManager(cfg.SubscriberBuffer)

	pcfg := playback.Config{
		InboxSize:        cfg.InboxSize,
		OperationTimeout: cfg.OperationTimeout,
		Publisher:        hub,
	}
	if cfg.ForwardSkips {
		pcfg.Forwarder = hub
	}

	return &Coordinator{
		session:  playback.NewSession(engine, notifier, pcfg),
		hub:      hub,
		resolver: resolver,
	}
}

// Start starts the underlying session.
func (c *Coordinator) Start() {
	c.session.Start()
}

// Close stops playback, releases all handles and closes every subscription.
func (c *Coordinator) Close(ctx context.Context) error {
	zlog.Info().Msgf("closing coordinator: subscribers=%d", c.hub.SubscriberCount())
	err := c.session.Close(ctx)
	c.hub.Close()
	c.listeners.Wait()
	return err
}

// PlayTrack plays ref. A reference without a source locator is resolved by id first.
func (c *Coordinator) PlayTrack(ctx context.Context, ref track.Ref) error {
	if ref.Source == "" && ref.ID != "" {
		resolved, err := c.resolve(ctx, ref.ID)
		if err != nil {
			return err
		}
		ref = resolved
	}
	zlog.Info().Msgf("play requested: track_id=%s title=%s", ref.ID, ref.DisplayTitle())
	return c.session.Play(ctx, ref)
}

// PlayTrackID resolves id through the catalog and plays it.
// Unknown ids fail with an error marked track.ErrNotFound.
func (c *Coordinator) PlayTrackID(ctx context.Context, id string) error {
	ref, err := c.resolve(ctx, id)
	if err != nil {
		return err
	}
	return c.PlayTrack(ctx, ref)
}

// Pause pauses playback. It is a no-op unless playing.
func (c *Coordinator) Pause(ctx context.Context) error {
	return c.session.Pause(ctx)
}

// Resume resumes playback. It is a no-op unless paused.
func (c *Coordinator) Resume(ctx context.Context) error {
	return c.session.Resume(ctx)
}

// Stop stops playback. It is a no-op when idle.
func (c *Coordinator) Stop(ctx context.Context) error {
	return c.session.Stop(ctx)
}

// Status returns the current snapshot.
func (c *Coordinator) Status() playback.Snapshot {
	return c.session.Status()
}

// Subscribe returns a stream of updates, starting with the current snapshot.
func (c *Coordinator) Subscribe() (string, <-chan notification.Update) {
	return c.hub.Subscribe()
}

// Unsubscribe closes the stream with the given id.
func (c *Coordinator) Unsubscribe(id string) {
	c.hub.Unsubscribe(id)
}

// OnStateChange calls fn with the current snapshot and then with every change,
// in order, from a dedicated goroutine. The returned function unsubscribes.
func (c *Coordinator) OnStateChange(fn func(playback.Snapshot)) (unsubscribe func()) {
	id, ch := c.hub.Subscribe()

	c.listeners.Add(1)
	go func() {
		defer c.listeners.Done()
		for u := range ch {
			if u.Type == notification.UpdateAction {
				continue
			}
			fn(u.Snapshot)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { c.hub.Unsubscribe(id) })
	}
}

func (c *Coordinator) resolve(ctx context.Context, id string) (track.Ref, error) {
	if c.resolver == nil {
		return track.Ref{}, errors.Mark(errors.Newf("no catalog to resolve %s", id), track.ErrNotFound)
	}
	ref, err := c.resolver.Resolve(ctx, id)
	if err != nil {
		if errors.Is(err, track.ErrNotFound) {
			zlog.Warn().Msgf("play rejected: track_id=%s code=track_not_found", id)
		}
		return track.Ref{}, err
	}
	return ref, nil
}
