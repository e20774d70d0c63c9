// Package playerv1connect wires the cloudtune.player.v1 services to connect.
package playerv1connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	playerv1 "github.com/epitaph76/cloudtune/internal/api/playerv1"
)

const (
	// PlayerServiceName is the fully-qualified name of the PlayerService service.
	PlayerServiceName = "cloudtune.player.v1.PlayerService"
	// LibraryServiceName is the fully-qualified name of the LibraryService service.
	LibraryServiceName = "cloudtune.player.v1.LibraryService"
)

const (
	PlayerServicePlayProcedure      = "/cloudtune.player.v1.PlayerService/Play"
	PlayerServicePauseProcedure     = "/cloudtune.player.v1.PlayerService/Pause"
	PlayerServiceResumeProcedure    = "/cloudtune.player.v1.PlayerService/Resume"
	PlayerServiceStopProcedure      = "/cloudtune.player.v1.PlayerService/Stop"
	PlayerServiceGetStatusProcedure = "/cloudtune.player.v1.PlayerService/GetStatus"
	PlayerServiceWatchProcedure     = "/cloudtune.player.v1.PlayerService/Watch"

	LibraryServiceAddTracksProcedure   = "/cloudtune.player.v1.LibraryService/AddTracks"
	LibraryServiceListTracksProcedure  = "/cloudtune.player.v1.LibraryService/ListTracks"
	LibraryServiceRemoveTrackProcedure = "/cloudtune.player.v1.LibraryService/RemoveTrack"
)

// PlayerServiceHandler is implemented by the playback RPC server.
type PlayerServiceHandler interface {
	Play(context.Context, *connect.Request[playerv1.PlayRequest]) (*connect.Response[playerv1.PlayResponse], error)
	Pause(context.Context, *connect.Request[playerv1.PauseRequest]) (*connect.Response[playerv1.PauseResponse], error)
	Resume(context.Context, *connect.Request[playerv1.ResumeRequest]) (*connect.Response[playerv1.ResumeResponse], error)
	Stop(context.Context, *connect.Request[playerv1.StopRequest]) (*connect.Response[playerv1.StopResponse], error)
	GetStatus(context.Context, *connect.Request[playerv1.GetStatusRequest]) (*connect.Response[playerv1.GetStatusResponse], error)
	Watch(context.Context, *connect.Request[playerv1.WatchRequest], *connect.ServerStream[playerv1.Event]) error
}

// LibraryServiceHandler is implemented by the library RPC server.
type LibraryServiceHandler interface {
	AddTracks(context.Context, *connect.Request[playerv1.AddTracksRequest]) (*connect.Response[playerv1.AddTracksResponse], error)
	ListTracks(context.Context, *connect.Request[playerv1.ListTracksRequest]) (*connect.Response[playerv1.ListTracksResponse], error)
	RemoveTrack(context.Context, *connect.Request[playerv1.RemoveTrackRequest]) (*connect.Response[playerv1.RemoveTrackResponse], error)
}

// NewPlayerServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewPlayerServiceHandler(svc PlayerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	handlers := map[string]http.Handler{
		PlayerServicePlayProcedure:      connect.NewUnaryHandler(PlayerServicePlayProcedure, svc.Play, opts...),
		PlayerServicePauseProcedure:     connect.NewUnaryHandler(PlayerServicePauseProcedure, svc.Pause, opts...),
		PlayerServiceResumeProcedure:    connect.NewUnaryHandler(PlayerServiceResumeProcedure, svc.Resume, opts...),
		PlayerServiceStopProcedure:      connect.NewUnaryHandler(PlayerServiceStopProcedure, svc.Stop, opts...),
		PlayerServiceGetStatusProcedure: connect.NewUnaryHandler(PlayerServiceGetStatusProcedure, svc.GetStatus, opts...),
		PlayerServiceWatchProcedure:     connect.NewServerStreamHandler(PlayerServiceWatchProcedure, svc.Watch, opts...),
	}
	return "/" + PlayerServiceName + "/", route(handlers)
}

// NewLibraryServiceHandler builds an HTTP handler from the service implementation.
func NewLibraryServiceHandler(svc LibraryServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	handlers := map[string]http.Handler{
		LibraryServiceAddTracksProcedure:   connect.NewUnaryHandler(LibraryServiceAddTracksProcedure, svc.AddTracks, opts...),
		LibraryServiceListTracksProcedure:  connect.NewUnaryHandler(LibraryServiceListTracksProcedure, svc.ListTracks, opts...),
		LibraryServiceRemoveTrackProcedure: connect.NewUnaryHandler(LibraryServiceRemoveTrackProcedure, svc.RemoveTrack, opts...),
	}
	return "/" + LibraryServiceName + "/", route(handlers)
}

func withCodec(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(playerv1.Codec{})}, opts...)
}

func route(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// PlayerServiceClient is a client for the cloudtune.player.v1.PlayerService service.
type PlayerServiceClient interface {
	Play(context.Context, *connect.Request[playerv1.PlayRequest]) (*connect.Response[playerv1.PlayResponse], error)
	Pause(context.Context, *connect.Request[playerv1.PauseRequest]) (*connect.Response[playerv1.PauseResponse], error)
	Resume(context.Context, *connect.Request[playerv1.ResumeRequest]) (*connect.Response[playerv1.ResumeResponse], error)
	Stop(context.Context, *connect.Request[playerv1.StopRequest]) (*connect.Response[playerv1.StopResponse], error)
	GetStatus(context.Context, *connect.Request[playerv1.GetStatusRequest]) (*connect.Response[playerv1.GetStatusResponse], error)
	Watch(context.Context, *connect.Request[playerv1.WatchRequest]) (*connect.ServerStreamForClient[playerv1.Event], error)
}

// NewPlayerServiceClient constructs a client for the PlayerService service.
// baseURL is the scheme and host of the daemon, e.g. http://localhost:8080.
func NewPlayerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) PlayerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(playerv1.Codec{})}, opts...)
	return &playerServiceClient{
		play:      connect.NewClient[playerv1.PlayRequest, playerv1.PlayResponse](httpClient, baseURL+PlayerServicePlayProcedure, opts...),
		pause:     connect.NewClient[playerv1.PauseRequest, playerv1.PauseResponse](httpClient, baseURL+PlayerServicePauseProcedure, opts...),
		resume:    connect.NewClient[playerv1.ResumeRequest, playerv1.ResumeResponse](httpClient, baseURL+PlayerServiceResumeProcedure, opts...),
		stop:      connect.NewClient[playerv1.StopRequest, playerv1.StopResponse](httpClient, baseURL+PlayerServiceStopProcedure, opts...),
		getStatus: connect.NewClient[playerv1.GetStatusRequest, playerv1.GetStatusResponse](httpClient, baseURL+PlayerServiceGetStatusProcedure, opts...),
		watch:     connect.NewClient[playerv1.WatchRequest, playerv1.Event](httpClient, baseURL+PlayerServiceWatchProcedure, opts...),
	}
}

type playerServiceClient struct {
	play      *connect.Client[playerv1.PlayRequest, playerv1.PlayResponse]
	pause     *connect.Client[playerv1.PauseRequest, playerv1.PauseResponse]
	resume    *connect.Client[playerv1.ResumeRequest, playerv1.ResumeResponse]
	stop      *connect.Client[playerv1.StopRequest, playerv1.StopResponse]
	getStatus *connect.Client[playerv1.GetStatusRequest, playerv1.GetStatusResponse]
	watch     *connect.Client[playerv1.WatchRequest, playerv1.Event]
}

func (c *playerServiceClient) Play(ctx context.Context, req *connect.Request[playerv1.PlayRequest]) (*connect.Response[playerv1.PlayResponse], error) {
	return c.play.CallUnary(ctx, req)
}

func (c *playerServiceClient) Pause(ctx context.Context, req *connect.Request[playerv1.PauseRequest]) (*connect.Response[playerv1.PauseResponse], error) {
	return c.pause.CallUnary(ctx, req)
}

func (c *playerServiceClient) Resume(ctx context.Context, req *connect.Request[playerv1.ResumeRequest]) (*connect.Response[playerv1.ResumeResponse], error) {
	return c.resume.CallUnary(ctx, req)
}

func (c *playerServiceClient) Stop(ctx context.Context, req *connect.Request[playerv1.StopRequest]) (*connect.Response[playerv1.StopResponse], error) {
	return c.stop.CallUnary(ctx, req)
}

func (c *playerServiceClient) GetStatus(ctx context.Context, req *connect.Request[playerv1.GetStatusRequest]) (*connect.Response[playerv1.GetStatusResponse], error) {
	return c.getStatus.CallUnary(ctx, req)
}

func (c *playerServiceClient) Watch(ctx context.Context, req *connect.Request[playerv1.WatchRequest]) (*connect.ServerStreamForClient[playerv1.Event], error) {
	return c.watch.CallServerStream(ctx, req)
}

// LibraryServiceClient is a client for the cloudtune.player.v1.LibraryService service.
type LibraryServiceClient interface {
	AddTracks(context.Context, *connect.Request[playerv1.AddTracksRequest]) (*connect.Response[playerv1.AddTracksResponse], error)
	ListTracks(context.Context, *connect.Request[playerv1.ListTracksRequest]) (*connect.Response[playerv1.ListTracksResponse], error)
	RemoveTrack(context.Context, *connect.Request[playerv1.RemoveTrackRequest]) (*connect.Response[playerv1.RemoveTrackResponse], error)
}

// NewLibraryServiceClient constructs a client for the LibraryService service.
func NewLibraryServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) LibraryServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(playerv1.Codec{})}, opts...)
	return &libraryServiceClient{
		addTracks:   connect.NewClient[playerv1.AddTracksRequest, playerv1.AddTracksResponse](httpClient, baseURL+LibraryServiceAddTracksProcedure, opts...),
		listTracks:  connect.NewClient[playerv1.ListTracksRequest, playerv1.ListTracksResponse](httpClient, baseURL+LibraryServiceListTracksProcedure, opts...),
		removeTrack: connect.NewClient[playerv1.RemoveTrackRequest, playerv1.RemoveTrackResponse](httpClient, baseURL+LibraryServiceRemoveTrackProcedure, opts...),
	}
}

type libraryServiceClient struct {
	addTracks   *connect.Client[playerv1.AddTracksRequest, playerv1.AddTracksResponse]
	listTracks  *connect.Client[playerv1.ListTracksRequest, playerv1.ListTracksResponse]
	removeTrack *connect.Client[playerv1.RemoveTrackRequest, playerv1.RemoveTrackResponse]
}

func (c *libraryServiceClient) AddTracks(ctx context.Context, req *connect.Request[playerv1.AddTracksRequest]) (*connect.Response[playerv1.AddTracksResponse], error) {
	return c.addTracks.CallUnary(ctx, req)
}

func (c *libraryServiceClient) ListTracks(ctx context.Context, req *connect.Request[playerv1.ListTracksRequest]) (*connect.Response[playerv1.ListTracksResponse], error) {
	return c.listTracks.CallUnary(ctx, req)
}

func (c *libraryServiceClient) RemoveTrack(ctx context.Context, req *connect.Request[playerv1.RemoveTrackRequest]) (*connect.Response[playerv1.RemoveTrackResponse], error) {
	return c.removeTrack.CallUnary(ctx, req)
}
