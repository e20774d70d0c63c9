package playback

import (
	"context"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// effect is an adapter call issued by the session loop.
// run may return a completion event that re-enters the inbox.
type effect struct {
	name string
	run  func(ctx context.Context) any
}

// effectQueue is an unbounded FIFO so the session loop never blocks on adapters.
type effectQueue struct {
	mu     sync.Mutex
	items  []effect
	closed bool
	signal chan struct{}
}

func newEffectQueue() *effectQueue {
	return &effectQueue{signal: make(chan struct{}, 1)}
}

// push appends e. It reports false once the queue is closed.
func (q *effectQueue) push(e effect) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, e)
	q.mu.Unlock()

	q.wake()
	return true
}

// close stops accepting effects. Queued effects are still delivered.
func (q *effectQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

// pop blocks until an effect is available or the queue is closed and drained.
func (q *effectQueue) pop() (effect, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			e := q.items[0]
			q.items[0] = effect{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return e, true
		}
		if q.closed {
			q.mu.Unlock()
			return effect{}, false
		}
		q.mu.Unlock()
		<-q.signal
	}
}

func (q *effectQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *effectQueue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// effectWorker executes effects one at a time in issue order.
func (s *Session) effectWorker() {
	defer close(s.workerDone)

	for {
		e, ok := s.effects.pop()
		if !ok {
			return
		}
		ev := s.runEffect(e)
		if ev != nil {
			s.post(ev)
		}
	}
}

// runEffect runs e with the operation timeout, recovering adapter panics.
func (s *Session) runEffect(e effect) (ev any) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("effect panicked: effect=%s panic=%v", e.name, r)
			ev = nil
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout())
	defer cancel()

	started := time.Now()
	ev = e.run(ctx)
	zlog.Debug().Msgf("effect done: effect=%s elapsed=%v", e.name, time.Since(started))
	return ev
}
