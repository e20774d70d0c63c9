// Package catalog resolves track ids into playable references.
package catalog

import (
	"context"

	"github.com/epitaph76/cloudtune/internal/domain/track"
)

// Source resolves track ids.
// Implementations return an error marked with track.ErrNotFound when they do
// not know the id, so the chain can move on to the next source.
type Source interface {
	Resolve(ctx context.Context, id string) (track.Ref, error)

	// Name returns the source type (used in config).
	Name() string
}

// LibraryStore defines the library operations needed by the library source.
type LibraryStore interface {
	Get(ctx context.Context, id string) (track.Item, error)
}

// SpotifyClient defines the Spotify operations needed by the spotify source.
type SpotifyClient interface {
	IsTrackReference(id string) bool
	ResolveTrack(ctx context.Context, id string, market string) (track.Ref, error)
}
