//go:build linux

package desktop

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/godbus/dbus/v5"
	zlog "github.com/rs/zerolog/log"

	"github.com/epitaph76/cloudtune/internal/domain/nowplaying"
)

const (
	actionBuffer = 16
	closeTimeout = 2 * time.Second
)

// Notifier shows the now playing notification and reports button taps.
type Notifier struct {
	config Config
	conn   *dbus.Conn
	obj    dbus.BusObject

	supportsActions bool

	mu      sync.Mutex
	current uint32

	actions   chan nowplaying.Action
	signals   chan *dbus.Signal
	done      chan struct{}
	closeOnce sync.Once
}

var _ nowplaying.Notifier = (*Notifier)(nil)

// New connects to the session bus.
// A missing notification service is reported with nowplaying.ErrNotification.
func New(cfg Config) (*Notifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, nowplaying.NotificationError(err, "failed to connect to session bus")
	}

	n := &Notifier{
		config:  cfg,
		conn:    conn,
		obj:     conn.Object(dbusNotifyDest, dbusNotifyPath),
		actions: make(chan nowplaying.Action, actionBuffer),
		signals: make(chan *dbus.Signal, actionBuffer),
		done:    make(chan struct{}),
	}

	var caps []string
	if err := n.obj.Call(dbusNotifyInterface+".GetCapabilities", 0).Store(&caps); err != nil {
		conn.Close()
		return nil, nowplaying.NotificationError(err, "notification service unavailable")
	}
	for _, c := range caps {
		if c == "actions" {
			n.supportsActions = true
		}
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(dbusNotifyPath),
		dbus.WithMatchInterface(dbusNotifyInterface),
	); err != nil {
		conn.Close()
		return nil, nowplaying.NotificationError(err, "failed to subscribe to notification signals")
	}
	conn.Signal(n.signals)
	go n.watch()

	zlog.Info().Msgf("desktop notifications ready: actions=%t", n.supportsActions)
	return n, nil
}

// Show creates or replaces the notification.
func (n *Notifier) Show(ctx context.Context, info nowplaying.Info, playing bool, actions nowplaying.Actions) (nowplaying.Handle, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	replaces := n.current
	if n.config.Recreate && replaces != 0 {
		if call := n.obj.CallWithContext(ctx, dbusNotifyInterface+".CloseNotification", 0, replaces); call.Err != nil {
			zlog.Debug().Msgf("close before recreate failed: id=%d err=%v", replaces, call.Err)
		}
		replaces = 0
		n.current = 0
	}

	buttons := []string{}
	if n.supportsActions {
		buttons = buildActions(actions, playing)
	}
	title, body := summary(info, playing)

	// Notify(app_name, replaces_id, icon, summary, body, actions, hints, timeout) -> id
	call := n.obj.CallWithContext(ctx,
		dbusNotifyInterface+".Notify",
		0,
		n.config.AppName,
		replaces,
		n.config.Icon,
		title,
		body,
		buttons,
		buildHints(n.config),
		expireTimeout(n.config.Timeout),
	)
	if call.Err != nil {
		n.abandonLocked(ctx, replaces)
		return "", nowplaying.NotificationError(call.Err, "notify failed")
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		n.abandonLocked(ctx, replaces)
		return "", nowplaying.NotificationError(err, "notify returned no id")
	}
	n.current = id
	return formatHandle(id), nil
}

// abandonLocked forgets the current id and closes the notification a failed
// Show was replacing.
func (n *Notifier) abandonLocked(ctx context.Context, replaces uint32) {
	n.current = 0
	if replaces == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	if call := n.obj.CallWithContext(ctx, dbusNotifyInterface+".CloseNotification", 0, replaces); call.Err != nil {
		zlog.Warn().Msgf("failed to close notification after failed show: id=%d err=%v", replaces, call.Err)
	}
}

// Dismiss closes the notification.
func (n *Notifier) Dismiss(ctx context.Context, h nowplaying.Handle) error {
	id, err := parseHandle(h)
	if err != nil {
		return nowplaying.NotificationError(err, "dismiss")
	}

	n.mu.Lock()
	if n.current == id {
		n.current = 0
	}
	n.mu.Unlock()

	if call := n.obj.CallWithContext(ctx, dbusNotifyInterface+".CloseNotification", 0, id); call.Err != nil {
		return nowplaying.NotificationError(call.Err, "failed to close notification %d", id)
	}
	return nil
}

// Actions returns the button tap feed.
func (n *Notifier) Actions() <-chan nowplaying.Action {
	return n.actions
}

// Close stops watching signals and closes the bus connection.
func (n *Notifier) Close() error {
	var err error
	n.closeOnce.Do(func() {
		close(n.done)
		n.conn.RemoveSignal(n.signals)
		err = n.conn.Close()
	})
	return errors.Wrap(err, "failed to close session bus")
}

func (n *Notifier) watch() {
	for {
		select {
		case <-n.done:
			return
		case sig, ok := <-n.signals:
			if !ok {
				return
			}
			n.handleSignal(sig)
		}
	}
}

func (n *Notifier) handleSignal(sig *dbus.Signal) {
	if sig == nil || len(sig.Body) < 2 {
		return
	}
	id, ok := sig.Body[0].(uint32)
	if !ok {
		return
	}

	n.mu.Lock()
	current := n.current
	if sig.Name == dbusNotifyInterface+".NotificationClosed" && id == current {
		n.current = 0
	}
	n.mu.Unlock()

	if sig.Name != dbusNotifyInterface+".ActionInvoked" || id != current {
		return
	}
	key, _ := sig.Body[1].(string)
	action, ok := actionFromKey(key)
	if !ok {
		zlog.Debug().Msgf("ignored notification action: key=%s", key)
		return
	}
	select {
	case n.actions <- action:
	default:
		zlog.Warn().Msgf("notification action dropped: action=%s", action)
	}
}
