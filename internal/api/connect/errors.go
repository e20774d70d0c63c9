package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/epitaph76/cloudtune/internal/app/playback"
	"github.com/epitaph76/cloudtune/internal/domain/track"
)

// toConnectError maps domain errors to RPC codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, track.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, track.ErrInvalid):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, playback.ErrClosed), errors.Is(err, playback.ErrNotStarted):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
