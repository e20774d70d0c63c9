package library

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epitaph76/cloudtune/internal/domain/track"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	n := 0
	s.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
	return s
}

func TestStore_AddGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	added, err := s.Add(ctx, track.Item{Source: "https://cdn.example.com/audio/song.mp3?sig=abc", Title: "Song"})
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, "song.mp3", added.DisplayName)

	got, err := s.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, added.ID, got.ID)
	assert.Equal(t, "Song", got.Title)
	assert.Equal(t, added.Source, got.Source)
	assert.True(t, added.AddedAt.Equal(got.AddedAt))
}

func TestStore_AddSameSourceReturnsExisting(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.Add(ctx, track.Item{Source: "/music/a.mp3"})
	require.NoError(t, err)
	second, err := s.Add(ctx, track.Item{Source: "/music/a.mp3", Title: "ignored"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	items, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestStore_AddRequiresSource(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Add(context.Background(), track.Item{Title: "nothing"})
	assert.Error(t, err)
}

func TestStore_GetUnknown(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, track.ErrNotFound))
}

func TestStore_ListAndRemove(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, err := s.Add(ctx, track.Item{Source: "/music/a.mp3"})
	require.NoError(t, err)
	b, err := s.Add(ctx, track.Item{Source: "/music/b.mp3"})
	require.NoError(t, err)

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, a.ID, items[0].ID)
	assert.Equal(t, b.ID, items[1].ID)

	require.NoError(t, s.Remove(ctx, a.ID))
	err = s.Remove(ctx, a.ID)
	assert.True(t, errors.Is(err, track.ErrNotFound))

	items, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)
}

func TestStore_Import(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "untagged.wav")
	require.NoError(t, os.WriteFile(path, []byte("not really audio"), 0o600))

	items, err := s.Import(ctx, []string{path, "https://example.com/stream/live.mp3"})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "untagged.wav", items[0].DisplayName)
	assert.Equal(t, int64(16), items[0].Size)
	assert.Equal(t, path, items[0].Source)
	assert.Equal(t, "untagged.wav", items[0].Ref().Title)

	assert.Equal(t, "live.mp3", items[1].DisplayName)
	assert.Zero(t, items[1].Size)

	_, err = s.Import(ctx, []string{filepath.Join(dir, "missing.mp3")})
	assert.True(t, errors.Is(err, track.ErrInvalid))
	_, err = s.Import(ctx, []string{dir})
	assert.True(t, errors.Is(err, track.ErrInvalid))
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cloudtune.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestWithTx_RollbackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	errBoom := errors.New("boom")
	err := WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tracks (id, display_name, source, added_at) VALUES ('x', 'x', '/x', 0)`); err != nil {
			return err
		}
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	_, err = s.Get(ctx, "x")
	assert.True(t, errors.Is(err, track.ErrNotFound))
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"/music/a.mp3":                    "a.mp3",
		"https://example.com/b.flac?x=1":  "b.flac",
		"https://example.com/dir/c.wav#t": "c.wav",
		"plain.mp3":                       "plain.mp3",
	}
	for in, want := range tests {
		assert.Equal(t, want, displayName(in), in)
	}
}
