// Package library provides the local track library backed by SQLite.
package library

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/epitaph76/cloudtune/internal/domain/track"
)

const schema = `
CREATE TABLE IF NOT EXISTS tracks (
	id           TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	size         INTEGER NOT NULL DEFAULT 0,
	source       TEXT NOT NULL UNIQUE,
	title        TEXT NOT NULL DEFAULT '',
	artist       TEXT NOT NULL DEFAULT '',
	added_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tracks_added_at ON tracks(added_at);
`

// Store persists library items.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and creates if needed) the library database at path.
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrap(err, "failed to create library directory")
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open library database")
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize library schema")
	}

	zlog.Debug().Msgf("library opened: %s", path)
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add stores a new item and returns it with its id and timestamp filled in.
// Adding a source that is already present returns the existing item.
func (s *Store) Add(ctx context.Context, item track.Item) (track.Item, error) {
	if strings.TrimSpace(item.Source) == "" {
		return track.Item{}, errors.New("library item requires a source")
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.DisplayName == "" {
		item.DisplayName = displayName(item.Source)
	}
	if item.AddedAt.IsZero() {
		item.AddedAt = s.now()
	}

	var stored track.Item
	err := WithTx(ctx, s.db, func(tx *sql.Tx) error {
		existing, err := scanItem(tx.QueryRowContext(ctx, selectColumns+` WHERE source = ?`, item.Source))
		if err == nil {
			stored = existing
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO tracks (id, display_name, size, source, title, artist, added_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			item.ID, item.DisplayName, item.Size, item.Source, item.Title, item.Artist, item.AddedAt.UnixMilli())
		if err != nil {
			return err
		}
		stored = item
		return nil
	})
	if err != nil {
		return track.Item{}, errors.Wrapf(err, "failed to add %s", item.Source)
	}
	return stored, nil
}

// Get returns the item with the given id.
// Unknown ids return an error marked with track.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (track.Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return track.Item{}, errors.Mark(errors.Newf("library item %s", id), track.ErrNotFound)
	}
	if err != nil {
		return track.Item{}, errors.Wrapf(err, "failed to get %s", id)
	}
	return item, nil
}

// List returns all items, oldest first.
func (s *Store) List(ctx context.Context) ([]track.Item, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY added_at, id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list library")
	}
	defer rows.Close()

	var items []track.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan library item")
		}
		items = append(items, item)
	}
	return items, errors.Wrap(rows.Err(), "failed to iterate library")
}

// Remove deletes the item with the given id.
func (s *Store) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tracks WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "failed to remove %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Mark(errors.Newf("library item %s", id), track.ErrNotFound)
	}
	return nil
}

const selectColumns = `SELECT id, display_name, size, source, title, artist, added_at FROM tracks`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (track.Item, error) {
	var (
		item    track.Item
		addedAt int64
	)
	if err := row.Scan(&item.ID, &item.DisplayName, &item.Size, &item.Source, &item.Title, &item.Artist, &addedAt); err != nil {
		return track.Item{}, err
	}
	item.AddedAt = time.UnixMilli(addedAt)
	return item, nil
}

func displayName(source string) string {
	trimmed := strings.TrimRight(source, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	if q := strings.IndexAny(trimmed, "?#"); q >= 0 {
		trimmed = trimmed[:q]
	}
	if trimmed == "" {
		return source
	}
	return trimmed
}
