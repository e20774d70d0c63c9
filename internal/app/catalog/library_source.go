package catalog

import (
	"context"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/epitaph76/cloudtune/internal/domain/track"
)

type LibrarySourceConfig struct {
	// VerifyFiles reports local items whose file disappeared as not found.
	VerifyFiles bool `yaml:"verify_files" mapstructure:"verify_files"`
}

// LibrarySource resolves ids stored in the local library.
type LibrarySource struct {
	store  LibraryStore
	config *LibrarySourceConfig
}

// NewLibrarySource creates a new LibrarySource.
func NewLibrarySource(store LibraryStore, settings map[string]any) (*LibrarySource, error) {
	if store == nil {
		return nil, errors.New("library store is required")
	}

	var config LibrarySourceConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	zlog.Debug().Msgf("library source config: %+v", config)
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &LibrarySource{store: store, config: &config}, nil
}

// Resolve looks id up in the library.
func (s *LibrarySource) Resolve(ctx context.Context, id string) (track.Ref, error) {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return track.Ref{}, err
	}

	if s.config.VerifyFiles && isLocal(item.Source) {
		if _, err := os.Stat(localPath(item.Source)); err != nil {
			return track.Ref{}, errors.Mark(errors.Wrapf(err, "library item %s", id), track.ErrNotFound)
		}
	}
	return item.Ref(), nil
}

// Name returns the source type.
func (s *LibrarySource) Name() string {
	return "library"
}

func isLocal(source string) bool {
	return !strings.Contains(source, "://") || strings.HasPrefix(source, "file://")
}

func localPath(source string) string {
	return strings.TrimPrefix(source, "file://")
}
