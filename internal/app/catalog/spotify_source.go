package catalog

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/epitaph76/cloudtune/internal/domain/track"
)

type SpotifySourceConfig struct {
	Market string `yaml:"market" mapstructure:"market" validate:"omitempty,len=2"`
}

// SpotifySource resolves Spotify track ids, URIs and URLs to their preview clips.
type SpotifySource struct {
	spotify SpotifyClient
	config  *SpotifySourceConfig
}

// NewSpotifySource creates a new SpotifySource.
func NewSpotifySource(spotify SpotifyClient, settings map[string]any) (*SpotifySource, error) {
	if spotify == nil {
		return nil, errors.New("spotify client is required (check spotify credentials)")
	}

	var config SpotifySourceConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	zlog.Debug().Msgf("spotify source config: %+v", config)
	if err := validator.New().Struct(config); err != nil {
		zlog.Error().Msgf("spotify source validation failed: %v", err)
		return nil, errors.Wrap(err, "validation failed")
	}
	return &SpotifySource{spotify: spotify, config: &config}, nil
}

// Resolve fetches the track from Spotify. Ids that do not look like Spotify
// references are reported as not found without calling the API.
func (s *SpotifySource) Resolve(ctx context.Context, id string) (track.Ref, error) {
	if !s.spotify.IsTrackReference(id) {
		return track.Ref{}, errors.Wrapf(track.ErrNotFound, "%q is not a spotify reference", id)
	}
	return s.spotify.ResolveTrack(ctx, id, s.config.Market)
}

// Name returns the source type.
func (s *SpotifySource) Name() string {
	return "spotify"
}
