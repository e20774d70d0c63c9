// Package track provides the track entities shared by the catalog and the playback session.
package track

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNotFound is returned when a track id cannot be resolved by any catalog source.
	ErrNotFound = errors.New("track not found")
	// ErrInvalid marks references that cannot be played.
	ErrInvalid = errors.New("invalid track")
)

// Ref identifies a playable track.
// A Ref is immutable once resolved by the catalog.
type Ref struct {
	ID     string // Stable catalog id
	Source string // Locator handed to the audio engine (path, file:// or http(s) URL)
	Title  string
	Artist string
}

// SameAs reports whether r and other point at the same track.
// Ids win when both are set; otherwise the source locators are compared.
func (r Ref) SameAs(other Ref) bool {
	if r.ID != "" && other.ID != "" {
		return r.ID == other.ID
	}
	return r.Source == other.Source
}

// Validate checks that the reference can be handed to an audio engine.
func (r Ref) Validate() error {
	if strings.TrimSpace(r.Source) == "" {
		return errors.Mark(errors.Newf("track %q has no source locator", r.ID), ErrInvalid)
	}
	return nil
}

// DisplayTitle returns the title, falling back to the id.
func (r Ref) DisplayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.ID
}

// Item is a persisted catalog entry.
type Item struct {
	ID          string    // Stable id
	DisplayName string    // Name shown in listings (usually the file name)
	Size        int64     // Size of the underlying resource in bytes (0 if unknown)
	Source      string    // Locator handed to the audio engine
	Title       string    // Title from tags (may be empty)
	Artist      string    // Artist from tags (may be empty)
	AddedAt     time.Time // Time when the item was added
}

// Ref converts the item into a playable reference.
func (i Item) Ref() Ref {
	title := i.Title
	if title == "" {
		title = i.DisplayName
	}
	return Ref{
		ID:     i.ID,
		Source: i.Source,
		Title:  title,
		Artist: i.Artist,
	}
}
