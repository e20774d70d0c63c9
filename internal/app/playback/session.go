package playback

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/epitaph76/cloudtune/internal/domain/audio"
	"github.com/epitaph76/cloudtune/internal/domain/nowplaying"
	"github.com/epitaph76/cloudtune/internal/domain/track"
)

var (
	ErrClosed     = errors.New("playback session is closed")
	ErrNotStarted = errors.New("playback session is not started")
)

const (
	defaultInboxSize        = 64
	defaultOperationTimeout = 10 * time.Second
)

// Publisher receives every observable change of the session, in order.
// Publish is called from the session loop and must not block.
type Publisher interface {
	Publish(Snapshot)
}

// Forwarder receives Next/Previous taps from the notification surface.
type Forwarder interface {
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
}

// Config represents playback session configuration.
type Config struct {
	InboxSize        int           // Buffered capacity of the event inbox
	OperationTimeout time.Duration // Deadline for a single adapter call
	Publisher        Publisher     // Optional
	Forwarder        Forwarder     // Optional; skip buttons are offered only when set
}

// Session owns the single "now playing" session.
//
// All mutations happen on one goroutine draining the inbox. Adapter calls are
// executed by a FIFO effect worker and come back as generation-tagged events.
type Session struct {
	engine   audio.Engine
	notifier nowplaying.Notifier
	config   Config

	inbox   chan any
	effects *effectQueue

	// Owned by the loop goroutine.
	state        State
	active       *track.Ref
	engineHandle audio.Handle
	noteHandle   nowplaying.Handle
	gen          uint64
	showIssued   uint64
	showSettled  uint64
	lastErr      error
	published    Snapshot

	snapMu sync.RWMutex
	snap   Snapshot

	startOnce  sync.Once
	closeOnce  sync.Once
	started    chan struct{}
	ctx        context.Context
	cancel     context.CancelFunc
	loopDone   chan struct{}
	workerDone chan struct{}
	stopped    chan struct{}
	pumps      sync.WaitGroup
}

// NewSession creates a session in the idle state. Call Start before submitting requests.
func NewSession(engine audio.Engine, notifier nowplaying.Notifier, cfg Config) *Session {
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = defaultInboxSize
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = defaultOperationTimeout
	}
	if notifier == nil {
		notifier = nowplaying.Discard{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		engine:     engine,
		notifier:   notifier,
		config:     cfg,
		inbox:      make(chan any, cfg.InboxSize),
		effects:    newEffectQueue(),
		state:      StateIdle,
		started:    make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		loopDone:   make(chan struct{}),
		workerDone: make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Start launches the session loop, the effect worker and the feed pumps.
func (s *Session) Start() {
	s.startOnce.Do(func() {
		zlog.Info().Msgf("starting playback session: inbox_size=%d operation_timeout=%v", s.config.InboxSize, s.config.OperationTimeout)
		go s.loop()
		go s.effectWorker()

		s.pumps.Add(2)
		go s.pumpEngine()
		go s.pumpActions()
		close(s.started)
	})
}

// Close stops playback, releases every handle and stops all goroutines.
// It returns once pending adapter calls have drained or ctx expires.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		select {
		case <-s.started:
		default:
			s.cancel()
			close(s.loopDone)
			close(s.workerDone)
			close(s.stopped)
			return
		}

		if subErr := s.submit(ctx, request{Type: requestClose}); subErr != nil && !errors.Is(subErr, ErrClosed) {
			err = subErr
		}

		select {
		case <-s.stopped:
		case <-ctx.Done():
			err = errors.Wrap(ctx.Err(), "waiting for pending adapter calls")
		}
		s.cancel()
		s.pumps.Wait()
		zlog.Info().Msg("playback session closed")
	})
	return err
}

// Play requests playback of t. It returns once the request has been applied.
func (s *Session) Play(ctx context.Context, t track.Ref) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return s.submit(ctx, request{Type: RequestPlay, Track: t})
}

// Pause requests a pause. It is a no-op unless playing.
func (s *Session) Pause(ctx context.Context) error {
	return s.submit(ctx, request{Type: RequestPause})
}

// Resume requests a resume. It is a no-op unless paused.
func (s *Session) Resume(ctx context.Context) error {
	return s.submit(ctx, request{Type: RequestResume})
}

// Stop requests a stop. It is a no-op when idle.
func (s *Session) Stop(ctx context.Context) error {
	return s.submit(ctx, request{Type: RequestStop})
}

// Status returns the last published snapshot.
func (s *Session) Status() Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

// submit enqueues req and waits until the loop has applied it.
// Requests are never dropped: a full inbox applies backpressure.
func (s *Session) submit(ctx context.Context, req request) error {
	select {
	case <-s.loopDone:
		return ErrClosed
	default:
	}
	select {
	case <-s.started:
	default:
		return ErrNotStarted
	}

	req.done = make(chan struct{})
	select {
	case s.inbox <- req:
	case <-s.loopDone:
		return ErrClosed
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "submitting %s request", req.Type)
	}

	select {
	case <-req.done:
		return nil
	case <-s.loopDone:
		select {
		case <-req.done:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "waiting for %s request", req.Type)
	}
}

// post delivers an asynchronous event to the loop. Once the loop has exited,
// resources carried by the event are released directly.
func (s *Session) post(ev any) {
	select {
	case <-s.loopDone:
		s.orphan(ev)
		return
	default:
	}
	select {
	case s.inbox <- ev:
	case <-s.loopDone:
		s.orphan(ev)
	}
}

// orphan releases resources carried by events that can no longer be applied.
func (s *Session) orphan(ev any) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout())
	defer cancel()

	switch e := ev.(type) {
	case loadDone:
		if e.handle != "" {
			s.unload(ctx, e.handle)
		}
	case showDone:
		if e.handle != "" {
			s.dismiss(ctx, e.handle)
		}
	}
}

// loop applies inbox events one at a time.
func (s *Session) loop() {
	var current any
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		zlog.Error().Msgf("playback session loop panicked: event=%T panic=%v", current, r)
		select {
		case <-s.loopDone:
			return
		default:
		}
		req, isReq := current.(request)
		if isReq && req.Type == requestClose {
			s.finishClose(req)
			return
		}
		if isReq {
			close(req.done)
		}
		// Restart loop to keep the session reachable
		zlog.Info().Msg("restarting playback session loop")
		go s.loop()
	}()

	for ev := range s.inbox {
		current = ev
		if req, ok := ev.(request); ok && req.Type == requestClose {
			s.shutdown()
			s.publish()
			s.finishClose(req)
			return
		}
		s.apply(ev)
	}
}

// finishClose acknowledges the close request and stops the loop. Events that
// still reach the inbox are released until the effect worker is done.
func (s *Session) finishClose(req request) {
	close(req.done)
	s.effects.close()
	close(s.loopDone)
	defer close(s.stopped)

	for {
		select {
		case ev := <-s.inbox:
			s.orphan(ev)
		case <-s.workerDone:
			for {
				select {
				case ev := <-s.inbox:
					s.orphan(ev)
				default:
					return
				}
			}
		}
	}
}

// pumpEngine forwards the engine status feed into the inbox.
func (s *Session) pumpEngine() {
	defer s.pumps.Done()

	events := s.engine.Events()
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			select {
			case s.inbox <- ev:
			case <-s.loopDone:
				return
			}
		}
	}
}

// pumpActions forwards notification taps into the inbox.
func (s *Session) pumpActions() {
	defer s.pumps.Done()

	actions := s.notifier.Actions()
	if actions == nil {
		return
	}
	for {
		select {
		case <-s.ctx.Done():
			return
		case a, ok := <-actions:
			if !ok {
				return
			}
			select {
			case s.inbox <- a:
			case <-s.loopDone:
				return
			}
		}
	}
}

// publish records the current snapshot and hands it to the publisher when it changed.
func (s *Session) publish() {
	snap := Snapshot{
		State:              s.state,
		Generation:         s.gen,
		EngineHandle:       s.engineHandle,
		NotificationHandle: s.noteHandle,
		Err:                s.lastErr,
	}
	if s.active != nil {
		t := *s.active
		snap.Track = &t
	}
	if snap.equal(s.published) {
		return
	}
	s.published = snap

	s.snapMu.Lock()
	s.snap = snap
	s.snapMu.Unlock()

	if s.config.Publisher != nil {
		s.config.Publisher.Publish(snap)
	}
}

func (s *Session) opTimeout() time.Duration {
	return s.config.OperationTimeout
}
