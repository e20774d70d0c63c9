package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	playerv1 "github.com/epitaph76/cloudtune/internal/api/playerv1"
	"github.com/epitaph76/cloudtune/internal/api/playerv1/playerv1connect"
	"github.com/epitaph76/cloudtune/internal/app/session"
	"github.com/epitaph76/cloudtune/internal/domain/track"
)

// PlayerService implements the PlayerService RPC.
type PlayerService struct {
	coordinator *session.Coordinator
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(coordinator *session.Coordinator) *PlayerService {
	return &PlayerService{coordinator: coordinator}
}

// Ensure PlayerService implements the interface.
var _ playerv1connect.PlayerServiceHandler = (*PlayerService)(nil)

// Play handles play requests.
func (s *PlayerService) Play(
	ctx context.Context,
	req *connect.Request[playerv1.PlayRequest],
) (*connect.Response[playerv1.PlayResponse], error) {
	var err error
	switch {
	case req.Msg.Track != nil:
		err = s.coordinator.PlayTrack(ctx, fromTrack(req.Msg.Track))
	case req.Msg.TrackID != "":
		err = s.coordinator.PlayTrackID(ctx, req.Msg.TrackID)
	default:
		err = errors.Mark(errors.New("track_id or track is required"), track.ErrInvalid)
	}
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&playerv1.PlayResponse{
		Status: toStatus(s.coordinator.Status()),
	}), nil
}

// Pause handles pause requests.
func (s *PlayerService) Pause(
	ctx context.Context,
	req *connect.Request[playerv1.PauseRequest],
) (*connect.Response[playerv1.PauseResponse], error) {
	if err := s.coordinator.Pause(ctx); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&playerv1.PauseResponse{
		Status: toStatus(s.coordinator.Status()),
	}), nil
}

// Resume handles resume requests.
func (s *PlayerService) Resume(
	ctx context.Context,
	req *connect.Request[playerv1.ResumeRequest],
) (*connect.Response[playerv1.ResumeResponse], error) {
	if err := s.coordinator.Resume(ctx); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&playerv1.ResumeResponse{
		Status: toStatus(s.coordinator.Status()),
	}), nil
}

// Stop handles stop requests.
func (s *PlayerService) Stop(
	ctx context.Context,
	req *connect.Request[playerv1.StopRequest],
) (*connect.Response[playerv1.StopResponse], error) {
	if err := s.coordinator.Stop(ctx); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&playerv1.StopResponse{
		Status: toStatus(s.coordinator.Status()),
	}), nil
}

// GetStatus returns the current session snapshot.
func (s *PlayerService) GetStatus(
	ctx context.Context,
	req *connect.Request[playerv1.GetStatusRequest],
) (*connect.Response[playerv1.GetStatusResponse], error) {
	return connect.NewResponse(&playerv1.GetStatusResponse{
		Status: toStatus(s.coordinator.Status()),
	}), nil
}

// Watch streams session updates, starting with the current state.
// The stream ends when the client goes away or the session closes.
func (s *PlayerService) Watch(
	ctx context.Context,
	req *connect.Request[playerv1.WatchRequest],
	stream *connect.ServerStream[playerv1.Event],
) error {
	id, updates := s.coordinator.Subscribe()
	defer s.coordinator.Unsubscribe(id)

	zlog.Debug().Msgf("watch started: subscription_id=%s", id)
	for {
		select {
		case <-ctx.Done():
			zlog.Debug().Msgf("watch ended: subscription_id=%s", id)
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if err := stream.Send(toEvent(u)); err != nil {
				return err
			}
		}
	}
}
