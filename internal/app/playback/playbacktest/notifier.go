package playbacktest

import (
	"context"
	"fmt"
	"sync"

	"github.com/epitaph76/cloudtune/internal/domain/nowplaying"
)

// Shown records one Show call.
type Shown struct {
	Handle  nowplaying.Handle
	Info    nowplaying.Info
	Playing bool
	Actions nowplaying.Actions
}

// Notifier is an in-memory nowplaying.Notifier that recreates the surface on
// every Show, the way backends without in-place update behave.
type Notifier struct {
	mu        sync.Mutex
	actions   chan nowplaying.Action
	shows     []Shown
	dismissed []nowplaying.Handle
	visible   map[nowplaying.Handle]bool
	current   nowplaying.Handle
	showErr   error
	nextID    int
}

// NewNotifier creates a notifier double.
func NewNotifier() *Notifier {
	return &Notifier{
		actions: make(chan nowplaying.Action, 16),
		visible: make(map[nowplaying.Handle]bool),
	}
}

// FailShow makes every following Show fail with err (nil restores success).
func (n *Notifier) FailShow(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.showErr = err
}

// Tap simulates a user tap on a surface button.
func (n *Notifier) Tap(a nowplaying.Action) {
	n.actions <- a
}

func (n *Notifier) Show(_ context.Context, info nowplaying.Info, playing bool, actions nowplaying.Actions) (nowplaying.Handle, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current != "" {
		delete(n.visible, n.current)
		n.current = ""
	}
	if n.showErr != nil {
		return "", nowplaying.NotificationError(n.showErr, "show %q", info.Title)
	}

	n.nextID++
	h := nowplaying.Handle(fmt.Sprintf("n%d", n.nextID))
	n.current = h
	n.visible[h] = true
	n.shows = append(n.shows, Shown{Handle: h, Info: info, Playing: playing, Actions: actions})
	return h, nil
}

func (n *Notifier) Dismiss(_ context.Context, h nowplaying.Handle) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dismissed = append(n.dismissed, h)
	delete(n.visible, h)
	if n.current == h {
		n.current = ""
	}
	return nil
}

func (n *Notifier) Actions() <-chan nowplaying.Action {
	return n.actions
}

// Shows returns a copy of the recorded Show calls.
func (n *Notifier) Shows() []Shown {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Shown(nil), n.shows...)
}

// LastShown returns the most recent successful Show call.
func (n *Notifier) LastShown() (Shown, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.shows) == 0 {
		return Shown{}, false
	}
	return n.shows[len(n.shows)-1], true
}

// Visible returns the number of surfaces currently shown.
func (n *Notifier) Visible() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.visible)
}

// Dismissed returns a copy of the dismissed handles.
func (n *Notifier) Dismissed() []nowplaying.Handle {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]nowplaying.Handle(nil), n.dismissed...)
}
