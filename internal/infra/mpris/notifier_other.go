//go:build !linux

package mpris

import (
	"context"

	"github.com/epitaph76/cloudtune/internal/domain/nowplaying"
)

// Notifier is unavailable on non-Linux platforms.
type Notifier struct{}

// New reports that MPRIS is unavailable.
func New(_, _ string) (*Notifier, error) {
	return nil, nowplaying.NotificationError(nil, "mpris requires a freedesktop session bus")
}

func (n *Notifier) Show(context.Context, nowplaying.Info, bool, nowplaying.Actions) (nowplaying.Handle, error) {
	return "", nowplaying.NotificationError(nil, "mpris is unavailable")
}

func (n *Notifier) Dismiss(context.Context, nowplaying.Handle) error {
	return nil
}

func (n *Notifier) Actions() <-chan nowplaying.Action {
	return nil
}

func (n *Notifier) Close() error {
	return nil
}
