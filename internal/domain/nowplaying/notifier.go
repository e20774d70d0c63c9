// Package nowplaying defines the contract of the OS "now playing" surface.
package nowplaying

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ErrNotification marks failures of the notification surface.
// They never interrupt playback.
var ErrNotification = errors.New("notification error")

// Handle identifies a shown notification. The zero value means "none".
type Handle string

// Info is the track information displayed on the surface.
type Info struct {
	Title  string
	Artist string
}

// Actions selects the buttons offered on the surface.
type Actions struct {
	Toggle   bool
	Next     bool
	Previous bool
}

// Action is a user tap on a surface button.
type Action int

const (
	ActionToggle Action = iota
	ActionNext
	ActionPrevious
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionToggle:
		return "toggle"
	case ActionNext:
		return "next"
	case ActionPrevious:
		return "previous"
	default:
		return "unknown"
	}
}

// Notifier shows the now playing surface and reports taps on it.
//
// Show creates or replaces the surface. Backends that cannot update in place
// dismiss and recreate internally, so the returned handle may differ between
// calls. A failed Show leaves no surface behind.
type Notifier interface {
	Show(ctx context.Context, info Info, playing bool, actions Actions) (Handle, error)
	// Dismiss removes the surface. Dismissing an unknown handle is a no-op.
	Dismiss(ctx context.Context, h Handle) error
	// Actions returns the tap feed. Taps carry no handle.
	Actions() <-chan Action
}

// NotificationError wraps err and marks it as a notification failure.
func NotificationError(err error, format string, args ...any) error {
	if err == nil {
		err = errors.Newf(format, args...)
	} else {
		err = errors.Wrapf(err, format, args...)
	}
	return errors.Mark(err, ErrNotification)
}

// Discard is a Notifier that shows nothing.
type Discard struct{}

func (Discard) Show(context.Context, Info, bool, Actions) (Handle, error) { return "", nil }

func (Discard) Dismiss(context.Context, Handle) error { return nil }

func (Discard) Actions() <-chan Action { return nil }
