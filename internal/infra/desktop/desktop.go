// Package desktop provides the now playing notification over org.freedesktop.Notifications.
package desktop

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/godbus/dbus/v5"

	"github.com/epitaph76/cloudtune/internal/domain/nowplaying"
)

const (
	dbusNotifyDest      = "org.freedesktop.Notifications"
	dbusNotifyPath      = "/org/freedesktop/Notifications"
	dbusNotifyInterface = "org.freedesktop.Notifications"

	actionKeyToggle   = "toggle"
	actionKeyNext     = "next"
	actionKeyPrevious = "previous"

	urgencyLow = byte(0)
)

// Config represents desktop notification configuration.
type Config struct {
	AppName  string        // Sent as app_name and desktop-entry
	Icon     string        // Icon name or path
	Timeout  time.Duration // Zero lets the server decide
	Recreate bool          // Close and create instead of replacing in place
}

// buildActions returns the flat key/label list expected by Notify.
func buildActions(actions nowplaying.Actions, playing bool) []string {
	var out []string
	if actions.Previous {
		out = append(out, actionKeyPrevious, "Previous")
	}
	if actions.Toggle {
		label := "Play"
		if playing {
			label = "Pause"
		}
		out = append(out, actionKeyToggle, label)
	}
	if actions.Next {
		out = append(out, actionKeyNext, "Next")
	}
	if out == nil {
		return []string{}
	}
	return out
}

func actionFromKey(key string) (nowplaying.Action, bool) {
	switch key {
	case actionKeyToggle, "default":
		return nowplaying.ActionToggle, true
	case actionKeyNext:
		return nowplaying.ActionNext, true
	case actionKeyPrevious:
		return nowplaying.ActionPrevious, true
	default:
		return 0, false
	}
}

func buildHints(cfg Config) map[string]dbus.Variant {
	hints := map[string]dbus.Variant{
		"urgency":  dbus.MakeVariant(urgencyLow),
		"resident": dbus.MakeVariant(true),
		"category": dbus.MakeVariant("x-gnome.music"),
	}
	if cfg.AppName != "" {
		hints["desktop-entry"] = dbus.MakeVariant(strings.ToLower(cfg.AppName))
	}
	return hints
}

// summary returns the notification summary and body.
func summary(info nowplaying.Info, playing bool) (string, string) {
	title := info.Title
	if title == "" {
		title = "Unknown track"
	}
	body := info.Artist
	if !playing {
		if body == "" {
			body = "Paused"
		} else {
			body += " (paused)"
		}
	}
	return title, body
}

// expireTimeout converts the configured timeout into the Notify argument.
func expireTimeout(d time.Duration) int32 {
	if d <= 0 {
		return -1
	}
	return int32(d / time.Millisecond)
}

func formatHandle(id uint32) nowplaying.Handle {
	return nowplaying.Handle(strconv.FormatUint(uint64(id), 10))
}

func parseHandle(h nowplaying.Handle) (uint32, error) {
	id, err := strconv.ParseUint(string(h), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.Newf("invalid notification handle %q", h)
	}
	return uint32(id), nil
}
