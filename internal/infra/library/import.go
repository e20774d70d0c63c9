package library

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dhowden/tag"
	zlog "github.com/rs/zerolog/log"

	"github.com/epitaph76/cloudtune/internal/domain/track"
)

// Import adds the given local files or remote URLs to the library.
// Local files are read for title and artist tags; files without tags fall
// back to their file name.
func (s *Store) Import(ctx context.Context, locators []string) ([]track.Item, error) {
	items := make([]track.Item, 0, len(locators))
	for _, loc := range locators {
		if err := ctx.Err(); err != nil {
			return items, err
		}

		var (
			item track.Item
			err  error
		)
		if isRemote(loc) {
			item = track.Item{Source: loc}
		} else {
			item, err = describeFile(loc)
			if err != nil {
				return items, err
			}
		}

		stored, err := s.Add(ctx, item)
		if err != nil {
			return items, err
		}
		zlog.Info().Msgf("library import: id=%s name=%s", stored.ID, stored.DisplayName)
		items = append(items, stored)
	}
	return items, nil
}

func describeFile(path string) (track.Item, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return track.Item{}, errors.Wrapf(err, "failed to resolve %s", path)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return track.Item{}, errors.Mark(errors.Wrapf(err, "failed to stat %s", path), track.ErrInvalid)
	}
	if info.IsDir() {
		return track.Item{}, errors.Mark(errors.Newf("%s is a directory", path), track.ErrInvalid)
	}

	item := track.Item{
		DisplayName: filepath.Base(abs),
		Size:        info.Size(),
		Source:      abs,
	}

	f, err := os.Open(abs)
	if err != nil {
		return track.Item{}, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		zlog.Debug().Msgf("no tags in %s: %v", path, err)
		return item, nil
	}
	item.Title = strings.TrimSpace(m.Title())
	item.Artist = strings.TrimSpace(m.Artist())
	if item.Artist == "" {
		item.Artist = strings.TrimSpace(m.AlbumArtist())
	}
	return item, nil
}

func isRemote(loc string) bool {
	return strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://")
}
