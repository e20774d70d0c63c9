//go:build !linux

package desktop

import (
	"context"

	"github.com/epitaph76/cloudtune/internal/domain/nowplaying"
)

// Notifier is unavailable on non-Linux platforms.
type Notifier struct{}

// New reports that desktop notifications are unavailable.
func New(_ Config) (*Notifier, error) {
	return nil, nowplaying.NotificationError(nil, "desktop notifications require a freedesktop session bus")
}

func (n *Notifier) Show(context.Context, nowplaying.Info, bool, nowplaying.Actions) (nowplaying.Handle, error) {
	return "", nowplaying.NotificationError(nil, "desktop notifications are unavailable")
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
