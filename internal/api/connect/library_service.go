package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	playerv1 "github.com/epitaph76/cloudtune/internal/api/playerv1"
	"github.com/epitaph76/cloudtune/internal/api/playerv1/playerv1connect"
	"github.com/epitaph76/cloudtune/internal/domain/track"
)

// Library is the track store behind the LibraryService.
type Library interface {
	Import(ctx context.Context, locators []string) ([]track.Item, error)
	List(ctx context.Context) ([]track.Item, error)
	Remove(ctx context.Context, id string) error
}

// LibraryService implements the LibraryService RPC.
type LibraryService struct {
	library Library
}

// NewLibraryService creates a new LibraryService.
func NewLibraryService(library Library) *LibraryService {
	return &LibraryService{library: library}
}

// Ensure LibraryService implements the interface.
var _ playerv1connect.LibraryServiceHandler = (*LibraryService)(nil)

// AddTracks imports local files and remote URLs into the library.
func (s *LibraryService) AddTracks(
	ctx context.Context,
	req *connect.Request[playerv1.AddTracksRequest],
) (*connect.Response[playerv1.AddTracksResponse], error) {
	if len(req.Msg.Locators) == 0 {
		return nil, toConnectError(errors.Mark(errors.New("no locators given"), track.ErrInvalid))
	}

	items, err := s.library.Import(ctx, req.Msg.Locators)
	if err != nil {
		return nil, toConnectError(err)
	}
	zlog.Info().Msgf("library tracks added: count=%d", len(items))

	return connect.NewResponse(&playerv1.AddTracksResponse{
		Items: toLibraryItems(items),
	}), nil
}

// ListTracks lists the library in insertion order.
func (s *LibraryService) ListTracks(
	ctx context.Context,
	req *connect.Request[playerv1.ListTracksRequest],
) (*connect.Response[playerv1.ListTracksResponse], error) {
	items, err := s.library.List(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&playerv1.ListTracksResponse{
		Items: toLibraryItems(items),
	}), nil
}

// RemoveTrack deletes a library entry.
func (s *LibraryService) RemoveTrack(
	ctx context.Context,
	req *connect.Request[playerv1.RemoveTrackRequest],
) (*connect.Response[playerv1.RemoveTrackResponse], error) {
	if req.Msg.ID == "" {
		return nil, toConnectError(errors.Mark(errors.New("id is required"), track.ErrInvalid))
	}
	if err := s.library.Remove(ctx, req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	zlog.Info().Msgf("library track removed: id=%s", req.Msg.ID)
	return connect.NewResponse(&playerv1.RemoveTrackResponse{}), nil
}
