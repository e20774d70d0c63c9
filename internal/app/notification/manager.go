// Package notification fans playback session updates out to subscribers.
package notification

import (
	"context"
	"sync"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/epitaph76/cloudtune/internal/app/playback"
	"github.com/epitaph76/cloudtune/internal/domain/nowplaying"
)

const defaultBufferSize = 32

// UpdateType represents the kind of an update.
type UpdateType int

const (
	UpdateInitialState UpdateType = iota // First update of every subscription
	UpdateStateChanged                   // Session snapshot changed
	UpdateAction                         // A skip button was tapped on the surface
)

// String returns the string representation of the update type.
func (u UpdateType) String() string {
	switch u {
	case UpdateInitialState:
		return "initial_state"
	case UpdateStateChanged:
		return "state_changed"
	case UpdateAction:
		return "action"
	default:
		return "unknown"
	}
}

// Update is one message delivered to subscribers.
type Update struct {
	Type       UpdateType
	SequenceNo uint64
	Snapshot   playback.Snapshot
	Action     nowplaying.Action // Set for UpdateAction
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id      string
	ch      chan Update
	dropped uint64
}

// Manager manages subscriptions and broadcasting.
//
// Delivery never blocks the publisher: when a subscriber falls behind, its
// oldest pending update is dropped, skipping error snapshots and actions while
// other updates can go instead. Order is preserved per subscriber.
type Manager struct {
	mu            sync.Mutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	last          playback.Snapshot
	bufferSize    int
}

// NewManager creates a new notification manager.
func NewManager(bufferSize int) *Manager {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Manager{
		subscriptions: make(map[string]*subscription),
		bufferSize:    bufferSize,
	}
}

// Subscribe adds a new subscription and returns its ID and channel.
// The current snapshot is delivered first as UpdateInitialState.
func (m *Manager) Subscribe() (string, <-chan Update) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	sub := &subscription{
		id: id,
		ch: make(chan Update, m.bufferSize),
	}
	m.subscriptions[id] = sub

	sub.ch <- Update{
		Type:       UpdateInitialState,
		SequenceNo: m.sequenceNo,
		Snapshot:   m.last,
	}
	zlog.Debug().Msgf("subscriber added: id=%s total=%d", id, len(m.subscriptions))
	return id, sub.ch
}

// Unsubscribe removes a subscription and closes its channel.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[subscriptionID]
	if !ok {
		return
	}
	delete(m.subscriptions, subscriptionID)
	close(sub.ch)
	zlog.Debug().Msgf("subscriber removed: id=%s dropped=%d", subscriptionID, sub.dropped)
}

// Publish broadcasts a snapshot. It implements playback.Publisher.
func (m *Manager) Publish(snap playback.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.last = snap
	m.broadcastLocked(Update{Type: UpdateStateChanged, Snapshot: snap})
}

// Next broadcasts a forwarded Next tap. It implements playback.Forwarder.
func (m *Manager) Next(context.Context) error {
	m.broadcastAction(nowplaying.ActionNext)
	return nil
}

// Previous broadcasts a forwarded Previous tap. It implements playback.Forwarder.
func (m *Manager) Previous(context.Context) error {
	m.broadcastAction(nowplaying.ActionPrevious)
	return nil
}

func (m *Manager) broadcastAction(a nowplaying.Action) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.broadcastLocked(Update{Type: UpdateAction, Snapshot: m.last, Action: a})
}

// broadcastLocked stamps the next sequence number and delivers u to everyone.
func (m *Manager) broadcastLocked(u Update) {
	m.sequenceNo++
	u.SequenceNo = m.sequenceNo

	for _, sub := range m.subscriptions {
		select {
		case sub.ch <- u:
			continue
		default:
		}
		if makeRoom(sub.ch) {
			sub.dropped++
		}
		select {
		case sub.ch <- u:
		default:
		}
	}
}

// makeRoom removes one pending update from a full channel: the oldest one that
// is not pinned, or the oldest overall when every pending update is pinned.
// It reports whether an update was dropped.
func makeRoom(ch chan Update) bool {
	pending := make([]Update, 0, cap(ch))
drain:
	for len(pending) < cap(ch) {
		select {
		case u := <-ch:
			pending = append(pending, u)
		default:
			break drain
		}
	}
	if len(pending) < cap(ch) {
		// The subscriber caught up while we were draining.
		for _, u := range pending {
			ch <- u
		}
		return false
	}

	drop := 0
	for i, u := range pending {
		if !pinned(u) {
			drop = i
			break
		}
	}
	for i, u := range pending {
		if i != drop {
			ch <- u
		}
	}
	return true
}

// pinned reports updates kept while droppable ones remain:
// forwarded actions and snapshots carrying an error.
func pinned(u Update) bool {
	return u.Type == UpdateAction || u.Snapshot.Err != nil
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscriptions)
}

// Close closes every subscription.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sub := range m.subscriptions {
		close(sub.ch)
		delete(m.subscriptions, id)
	}
}
