package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epitaph76/cloudtune/internal/app/notification"
	"github.com/epitaph76/cloudtune/internal/app/playback"
	"github.com/epitaph76/cloudtune/internal/app/playback/playbacktest"
	"github.com/epitaph76/cloudtune/internal/domain/nowplaying"
	"github.com/epitaph76/cloudtune/internal/domain/track"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type mapResolver map[string]track.Ref

func (m mapResolver) Resolve(_ context.Context, id string) (track.Ref, error) {
	ref, ok := m[id]
	if !ok {
		return track.Ref{}, errors.Mark(errors.Newf("unknown id %s", id), track.ErrNotFound)
	}
	return ref, nil
}

var catalog = mapResolver{
	"a": {ID: "a", Source: "/music/a.mp3", Title: "Song A", Artist: "Artist A"},
	"b": {ID: "b", Source: "/music/b.mp3", Title: "Song B"},
}

type fixture struct {
	coord    *Coordinator
	engine   *playbacktest.Engine
	notifier *playbacktest.Notifier
}

func newFixture(t *testing.T, resolver Resolver, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		engine:   playbacktest.NewEngine(),
		notifier: playbacktest.NewNotifier(),
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = time.Second
	}
	f.coord = NewCoordinator(f.engine, f.notifier, resolver, cfg)
	f.coord.Start()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		_ = f.coord.Close(ctx)
	})
	return f
}

func (f *fixture) waitState(t *testing.T, st playback.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.coord.Status().State == st
	}, waitFor, tick, "expected state %s, got %s", st, f.coord.Status().State)
}

type stateLog struct {
	mu     sync.Mutex
	states []playback.State
}

func (l *stateLog) record(s playback.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := len(l.states); n > 0 && l.states[n-1] == s.State {
		return
	}
	l.states = append(l.states, s.State)
}

func (l *stateLog) get() []playback.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]playback.State(nil), l.states...)
}

func TestCoordinator_PlayTrackID(t *testing.T) {
	f := newFixture(t, catalog, Config{})
	log := &stateLog{}
	unsubscribe := f.coord.OnStateChange(log.record)
	defer unsubscribe()

	require.NoError(t, f.coord.PlayTrackID(context.Background(), "a"))
	f.waitState(t, playback.StatePlaying)

	snap := f.coord.Status()
	require.NotNil(t, snap.Track)
	assert.Equal(t, "a", snap.Track.ID)
	assert.Equal(t, "/music/a.mp3", snap.Track.Source)

	require.Eventually(t, func() bool {
		got := log.get()
		return len(got) == 3 && got[2] == playback.StatePlaying
	}, waitFor, tick)
	assert.Equal(t, []playback.State{playback.StateIdle, playback.StateLoading, playback.StatePlaying}, log.get())

	shown, ok := f.notifier.LastShown()
	require.True(t, ok)
	assert.Equal(t, "Song A", shown.Info.Title)
}

func TestCoordinator_PlayTrackIDNotFound(t *testing.T) {
	f := newFixture(t, catalog, Config{})

	err := f.coord.PlayTrackID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, track.ErrNotFound))
	assert.Empty(t, f.engine.Calls())
	assert.Equal(t, playback.StateIdle, f.coord.Status().State)
}

func TestCoordinator_NoResolver(t *testing.T) {
	f := newFixture(t, nil, Config{})

	err := f.coord.PlayTrackID(context.Background(), "a")
	assert.True(t, errors.Is(err, track.ErrNotFound))

	require.NoError(t, f.coord.PlayTrack(context.Background(), catalog["b"]))
	f.waitState(t, playback.StatePlaying)
}

func TestCoordinator_PlayTrackResolvesBareReference(t *testing.T) {
	f := newFixture(t, catalog, Config{})

	require.NoError(t, f.coord.PlayTrack(context.Background(), track.Ref{ID: "b"}))
	f.waitState(t, playback.StatePlaying)
	assert.Equal(t, "/music/b.mp3", f.coord.Status().Track.Source)

	err := f.coord.PlayTrack(context.Background(), track.Ref{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, track.ErrInvalid))
}

func TestCoordinator_ControlsAreNoOpsWhenIdle(t *testing.T) {
	f := newFixture(t, catalog, Config{})
	ctx := context.Background()

	require.NoError(t, f.coord.Pause(ctx))
	require.NoError(t, f.coord.Resume(ctx))
	require.NoError(t, f.coord.Stop(ctx))
	require.NoError(t, f.coord.Stop(ctx))

	assert.Equal(t, playback.StateIdle, f.coord.Status().State)
	assert.Empty(t, f.engine.Calls())
}

func TestCoordinator_RequestsAppliedInOrder(t *testing.T) {
	f := newFixture(t, catalog, Config{})
	ctx := context.Background()

	require.NoError(t, f.coord.PlayTrackID(ctx, "a"))
	f.waitState(t, playback.StatePlaying)

	require.NoError(t, f.coord.Pause(ctx))
	require.NoError(t, f.coord.Pause(ctx))
	f.waitState(t, playback.StatePaused)
	require.NoError(t, f.coord.Resume(ctx))
	f.waitState(t, playback.StatePlaying)
	require.NoError(t, f.coord.PlayTrackID(ctx, "b"))
	require.NoError(t, f.coord.Stop(ctx))
	f.waitState(t, playback.StateIdle)

	require.Eventually(t, func() bool {
		return len(f.engine.Loaded()) == 0 && f.notifier.Visible() == 0
	}, waitFor, tick)
	assert.Nil(t, f.coord.Status().Track)
}

func TestCoordinator_ForwardsSkipsToSubscribers(t *testing.T) {
	f := newFixture(t, catalog, Config{ForwardSkips: true})
	_, updates := f.coord.Subscribe()

	first := <-updates
	assert.Equal(t, notification.UpdateInitialState, first.Type)

	require.NoError(t, f.coord.PlayTrackID(context.Background(), "a"))
	f.waitState(t, playback.StatePlaying)
	require.Eventually(t, func() bool {
		shown, ok := f.notifier.LastShown()
		return ok && shown.Playing
	}, waitFor, tick)

	shown, _ := f.notifier.LastShown()
	assert.True(t, shown.Actions.Next)
	assert.True(t, shown.Actions.Previous)

	f.notifier.Tap(nowplaying.ActionNext)

	deadline := time.After(waitFor)
	for {
		select {
		case u := <-updates:
			if u.Type == notification.UpdateAction {
				assert.Equal(t, nowplaying.ActionNext, u.Action)
				assert.Equal(t, playback.StatePlaying, u.Snapshot.State)
				return
			}
		case <-deadline:
			t.Fatal("no action update")
		}
	}
}

func TestCoordinator_NoSkipButtonsWithoutForwarding(t *testing.T) {
	f := newFixture(t, catalog, Config{})

	require.NoError(t, f.coord.PlayTrackID(context.Background(), "a"))
	f.waitState(t, playback.StatePlaying)
	require.Eventually(t, func() bool {
		_, ok := f.notifier.LastShown()
		return ok
	}, waitFor, tick)

	shown, _ := f.notifier.LastShown()
	assert.True(t, shown.Actions.Toggle)
	assert.False(t, shown.Actions.Next)
	assert.False(t, shown.Actions.Previous)
}

func TestCoordinator_CloseReleasesEverything(t *testing.T) {
	engine := playbacktest.NewEngine()
	notifier := playbacktest.NewNotifier()
	coord := NewCoordinator(engine, notifier, catalog, Config{OperationTimeout: time.Second})
	coord.Start()

	listenerDone := make(chan struct{})
	var once sync.Once
	coord.OnStateChange(func(playback.Snapshot) {})
	_, updates := coord.Subscribe()
	go func() {
		for range updates {
		}
		once.Do(func() { close(listenerDone) })
	}()

	require.NoError(t, coord.PlayTrackID(context.Background(), "a"))
	require.Eventually(t, func() bool {
		return coord.Status().State == playback.StatePlaying && coord.Status().NotificationHandle != ""
	}, waitFor, tick)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, coord.Close(ctx))

	assert.Empty(t, engine.Loaded())
	assert.Zero(t, notifier.Visible())
	select {
	case <-listenerDone:
	case <-time.After(waitFor):
		t.Fatal("subscription not closed")
	}

	err := coord.Pause(context.Background())
	assert.True(t, errors.Is(err, playback.ErrClosed))
}

func TestCoordinator_UnsubscribeStopsCallbacks(t *testing.T) {
	f := newFixture(t, catalog, Config{})
	log := &stateLog{}
	unsubscribe := f.coord.OnStateChange(log.record)

	require.Eventually(t, func() bool { return len(log.get()) == 1 }, waitFor, tick)
	unsubscribe()
	unsubscribe()

	require.NoError(t, f.coord.PlayTrackID(context.Background(), "a"))
	f.waitState(t, playback.StatePlaying)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []playback.State{playback.StateIdle}, log.get())
}
