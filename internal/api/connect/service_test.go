package connect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	playerv1 "github.com/epitaph76/cloudtune/internal/api/playerv1"
	"github.com/epitaph76/cloudtune/internal/api/playerv1/playerv1connect"
	"github.com/epitaph76/cloudtune/internal/app/catalog"
	"github.com/epitaph76/cloudtune/internal/app/playback/playbacktest"
	"github.com/epitaph76/cloudtune/internal/app/session"
	"github.com/epitaph76/cloudtune/internal/domain/track"
	"github.com/epitaph76/cloudtune/internal/infra/library"
)

const (
	testToken = "secret"
	waitFor   = 2 * time.Second
	tick      = 5 * time.Millisecond
)

type testServer struct {
	player   playerv1connect.PlayerServiceClient
	library  playerv1connect.LibraryServiceClient
	url      string
	store    *library.Store
	engine   *playbacktest.Engine
	notifier *playbacktest.Notifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := library.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	libSource, err := catalog.NewLibrarySource(store, nil)
	require.NoError(t, err)
	chain := catalog.NewChain([]catalog.SourceWithMetadata{{Source: libSource, DisplayName: "Library"}})

	ts := &testServer{
		store:    store,
		engine:   playbacktest.NewEngine(),
		notifier: playbacktest.NewNotifier(),
	}
	coord := session.NewCoordinator(ts.engine, ts.notifier, chain, session.Config{OperationTimeout: time.Second})
	coord.Start()

	interceptors := connect.WithInterceptors(NewTokenInterceptor(testToken))
	mux := http.NewServeMux()
	mux.Handle(playerv1connect.NewPlayerServiceHandler(NewPlayerService(coord), interceptors))
	mux.Handle(playerv1connect.NewLibraryServiceHandler(NewLibraryService(store), interceptors))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		_ = coord.Close(ctx)
	})

	opts := connect.WithInterceptors(NewClientTokenInterceptor(testToken))
	ts.url = srv.URL
	ts.player = playerv1connect.NewPlayerServiceClient(srv.Client(), srv.URL, opts)
	ts.library = playerv1connect.NewLibraryServiceClient(srv.Client(), srv.URL, opts)
	return ts
}

func (ts *testServer) waitState(t *testing.T, st playerv1.PlaybackState) *playerv1.PlaybackStatus {
	t.Helper()
	var last *playerv1.PlaybackStatus
	require.Eventually(t, func() bool {
		res, err := ts.player.GetStatus(context.Background(), connect.NewRequest(&playerv1.GetStatusRequest{}))
		if err != nil {
			return false
		}
		last = res.Msg.Status
		return last.State == st
	}, waitFor, tick)
	return last
}

func (ts *testServer) addTrack(t *testing.T, name string) *playerv1.LibraryItem {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0o600))

	res, err := ts.library.AddTracks(context.Background(), connect.NewRequest(&playerv1.AddTracksRequest{
		Locators: []string{path},
	}))
	require.NoError(t, err)
	require.Len(t, res.Msg.Items, 1)
	return res.Msg.Items[0]
}

func TestPlayerService_PlayLibraryTrack(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	item := ts.addTrack(t, "song.mp3")

	_, err := ts.player.Play(ctx, connect.NewRequest(&playerv1.PlayRequest{TrackID: item.ID}))
	require.NoError(t, err)

	status := ts.waitState(t, playerv1.PlaybackStatePlaying)
	require.NotNil(t, status.Track)
	assert.Equal(t, item.ID, status.Track.ID)
	assert.Equal(t, "song.mp3", status.Track.Title)
	assert.Greater(t, status.Generation, uint64(0))

	_, err = ts.player.Pause(ctx, connect.NewRequest(&playerv1.PauseRequest{}))
	require.NoError(t, err)
	ts.waitState(t, playerv1.PlaybackStatePaused)

	_, err = ts.player.Resume(ctx, connect.NewRequest(&playerv1.ResumeRequest{}))
	require.NoError(t, err)
	ts.waitState(t, playerv1.PlaybackStatePlaying)

	_, err = ts.player.Stop(ctx, connect.NewRequest(&playerv1.StopRequest{}))
	require.NoError(t, err)
	status = ts.waitState(t, playerv1.PlaybackStateIdle)
	assert.Nil(t, status.Track)
	assert.Eventually(t, func() bool { return len(ts.engine.Loaded()) == 0 }, waitFor, tick)
}

func TestPlayerService_PlayErrors(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *playerv1.PlayRequest
		code connect.Code
	}{
		{"unknown id", &playerv1.PlayRequest{TrackID: "missing"}, connect.CodeNotFound},
		{"empty request", &playerv1.PlayRequest{}, connect.CodeInvalidArgument},
		{"track without source or id", &playerv1.PlayRequest{Track: &playerv1.Track{Title: "x"}}, connect.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.player.Play(ctx, connect.NewRequest(tt.req))
			require.Error(t, err)
			assert.Equal(t, tt.code, connect.CodeOf(err))
		})
	}
}

func TestPlayerService_PlayDirectTrack(t *testing.T) {
	ts := newTestServer(t)

	_, err := ts.player.Play(context.Background(), connect.NewRequest(&playerv1.PlayRequest{
		Track: &playerv1.Track{ID: "x", Source: "https://example.com/x.mp3", Title: "X"},
	}))
	require.NoError(t, err)

	status := ts.waitState(t, playerv1.PlaybackStatePlaying)
	assert.Equal(t, "https://example.com/x.mp3", status.Track.Source)
	shown, ok := ts.notifier.LastShown()
	require.True(t, ok)
	assert.Equal(t, "X", shown.Info.Title)
}

func TestPlayerService_Watch(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := ts.player.Watch(ctx, connect.NewRequest(&playerv1.WatchRequest{}))
	require.NoError(t, err)
	defer stream.Close()

	require.True(t, stream.Receive())
	first := stream.Msg()
	assert.Equal(t, playerv1.EventTypeInitialState, first.Type)
	assert.Equal(t, playerv1.PlaybackStateIdle, first.Status.State)

	_, err = ts.player.Play(ctx, connect.NewRequest(&playerv1.PlayRequest{
		Track: &playerv1.Track{ID: "x", Source: "/music/x.mp3"},
	}))
	require.NoError(t, err)

	var states []playerv1.PlaybackState
	for stream.Receive() {
		ev := stream.Msg()
		assert.Equal(t, playerv1.EventTypeStateChanged, ev.Type)
		assert.Greater(t, ev.SequenceNo, first.SequenceNo)
		if n := len(states); n == 0 || states[n-1] != ev.Status.State {
			states = append(states, ev.Status.State)
		}
		if ev.Status.State == playerv1.PlaybackStatePlaying {
			break
		}
	}
	assert.Equal(t, []playerv1.PlaybackState{playerv1.PlaybackStateLoading, playerv1.PlaybackStatePlaying}, states)
}

func TestTokenInterceptor(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	anonymousPlayer := playerv1connect.NewPlayerServiceClient(http.DefaultClient, ts.url)
	anonymousLibrary := playerv1connect.NewLibraryServiceClient(http.DefaultClient, ts.url)
	wrongPlayer := playerv1connect.NewPlayerServiceClient(http.DefaultClient, ts.url,
		connect.WithInterceptors(NewClientTokenInterceptor("wrong")))

	_, err := anonymousPlayer.GetStatus(ctx, connect.NewRequest(&playerv1.GetStatusRequest{}))
	assert.NoError(t, err)
	_, err = anonymousLibrary.ListTracks(ctx, connect.NewRequest(&playerv1.ListTracksRequest{}))
	assert.NoError(t, err)

	_, err = anonymousPlayer.Stop(ctx, connect.NewRequest(&playerv1.StopRequest{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	_, err = wrongPlayer.Stop(ctx, connect.NewRequest(&playerv1.StopRequest{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	_, err = anonymousLibrary.AddTracks(ctx, connect.NewRequest(&playerv1.AddTracksRequest{Locators: []string{"https://example.com/a.mp3"}}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestLibraryService(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	a := ts.addTrack(t, "a.flac")
	res, err := ts.library.AddTracks(ctx, connect.NewRequest(&playerv1.AddTracksRequest{
		Locators: []string{"https://example.com/radio/b.mp3"},
	}))
	require.NoError(t, err)
	b := res.Msg.Items[0]
	assert.Equal(t, "b.mp3", b.DisplayName)

	list, err := ts.library.ListTracks(ctx, connect.NewRequest(&playerv1.ListTracksRequest{}))
	require.NoError(t, err)
	require.Len(t, list.Msg.Items, 2)
	assert.Equal(t, a.ID, list.Msg.Items[0].ID)
	assert.Equal(t, int64(5), list.Msg.Items[0].Size)
	assert.False(t, list.Msg.Items[0].AddedAt.IsZero())

	_, err = ts.library.RemoveTrack(ctx, connect.NewRequest(&playerv1.RemoveTrackRequest{ID: a.ID}))
	require.NoError(t, err)
	_, err = ts.library.RemoveTrack(ctx, connect.NewRequest(&playerv1.RemoveTrackRequest{ID: a.ID}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	_, err = ts.library.RemoveTrack(ctx, connect.NewRequest(&playerv1.RemoveTrackRequest{}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = ts.library.AddTracks(ctx, connect.NewRequest(&playerv1.AddTracksRequest{}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	_, err = ts.library.AddTracks(ctx, connect.NewRequest(&playerv1.AddTracksRequest{
		Locators: []string{filepath.Join(t.TempDir(), "missing.mp3")},
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestToConnectError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code connect.Code
	}{
		{"not found", errors.Mark(errors.New("x"), track.ErrNotFound), connect.CodeNotFound},
		{"invalid", errors.Wrap(track.ErrInvalid, "x"), connect.CodeInvalidArgument},
		{"deadline", errors.Wrap(context.DeadlineExceeded, "x"), connect.CodeDeadlineExceeded},
		{"other", errors.New("boom"), connect.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, connect.CodeOf(toConnectError(tt.err)))
		})
	}
}
