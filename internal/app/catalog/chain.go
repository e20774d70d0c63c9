package catalog

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/epitaph76/cloudtune/internal/domain/track"
)

// SourceWithMetadata wraps a source with its metadata.
type SourceWithMetadata struct {
	Source      Source
	DisplayName string
}

// Chain tries sources in order; the first one that knows the id wins.
type Chain struct {
	sources []SourceWithMetadata
}

// NewChain creates a new source chain.
func NewChain(sources []SourceWithMetadata) *Chain {
	return &Chain{
		sources: sources,
	}
}

// Resolve returns the reference of id from the first source that knows it.
// The error is marked with track.ErrNotFound when no source knows the id.
func (c *Chain) Resolve(ctx context.Context, id string) (track.Ref, error) {
	if id == "" {
		return track.Ref{}, errors.Mark(errors.New("empty track id"), track.ErrNotFound)
	}

	var lastErr error
	for i, sm := range c.sources {
		ref, err := sm.Source.Resolve(ctx, id)
		if err == nil {
			zlog.Debug().Msgf("track resolved: id=%s source=%s index=%d", id, sm.DisplayName, i+1)
			return ref, nil
		}
		if errors.Is(err, track.ErrNotFound) {
			continue
		}
		zlog.Warn().Msgf("source failed, trying next: source=%s id=%s error=%v", sm.DisplayName, id, err)
		lastErr = err
	}

	if lastErr != nil {
		return track.Ref{}, errors.Wrapf(lastErr, "resolving %q", id)
	}
	return track.Ref{}, errors.Wrapf(track.ErrNotFound, "%q", id)
}

// Sources returns the configured sources in resolution order.
func (c *Chain) Sources() []SourceWithMetadata {
	return append([]SourceWithMetadata(nil), c.sources...)
}

// Name returns the chain name.
func (c *Chain) Name() string {
	return "source_chain"
}
