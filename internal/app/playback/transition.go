package playback

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/epitaph76/cloudtune/internal/domain/audio"
	"github.com/epitaph76/cloudtune/internal/domain/nowplaying"
	"github.com/epitaph76/cloudtune/internal/domain/track"
)

// apply runs the transition for one event and publishes the result.
func (s *Session) apply(ev any) {
	from := s.state

	switch e := ev.(type) {
	case request:
		s.handleRequest(e)
	case audio.StatusEvent:
		s.onEngineStatus(e)
	case nowplaying.Action:
		s.onAction(e)
	case loadDone:
		s.onLoadDone(e)
	case opDone:
		s.onOpDone(e)
	case showDone:
		s.onShowDone(e)
	case releaseDone:
		s.onReleaseDone(e)
	default:
		zlog.Warn().Msgf("unknown session event: type=%T", ev)
	}

	if from != s.state {
		zlog.Info().Msgf("playback transition: from=%s to=%s gen=%d event=%T", from, s.state, s.gen, ev)
	}
	s.publish()

	if req, ok := ev.(request); ok {
		close(req.done)
	}
}

func (s *Session) handleRequest(req request) {
	zlog.Debug().Msgf("playback request: type=%s state=%s track_id=%s", req.Type, s.state, req.Track.ID)

	switch req.Type {
	case RequestPlay:
		s.requestPlay(req.Track)
	case RequestPause:
		s.requestPause()
	case RequestResume:
		s.requestResume()
	case RequestStop:
		s.requestStop()
	}
}

func (s *Session) requestPlay(t track.Ref) {
	sameTrack := s.active != nil && s.active.SameAs(t)

	switch s.state {
	case StatePlaying:
		if sameTrack {
			return
		}
	case StatePaused:
		if sameTrack {
			s.requestResume()
			return
		}
	case StateLoading:
		if sameTrack {
			return
		}
	}

	// Keep a visible surface truthful while the new track loads.
	reshow := s.state.IsActive() && (s.noteHandle != "" || s.showInFlight())

	s.bump()
	s.releaseEngine()
	s.active = &t
	s.state = StateLoading
	s.lastErr = nil

	if reshow {
		s.show(false)
	}
	s.load(t)
}

func (s *Session) requestPause() {
	if s.state != StatePlaying {
		return
	}
	s.engineOp("pause", s.engine.Pause)
	s.state = StatePaused
	s.show(false)
}

func (s *Session) requestResume() {
	if s.state != StatePaused {
		return
	}
	s.engineOp("play", s.engine.Play)
	s.state = StatePlaying
	s.show(true)
}

func (s *Session) requestStop() {
	switch s.state {
	case StateIdle, StateStopping:
		return
	case StateError:
		s.state = StateIdle
		s.active = nil
		s.lastErr = nil
		return
	}

	s.bump()
	gen := s.gen
	eh, nh := s.takeHandles()
	s.state = StateStopping
	s.effects.push(effect{
		name: "release",
		run: func(ctx context.Context) any {
			s.release(ctx, eh, nh)
			return releaseDone{gen: gen}
		},
	})
}

// shutdown releases everything before the loop exits.
func (s *Session) shutdown() {
	s.bump()
	eh, nh := s.takeHandles()
	if eh != "" || nh != "" {
		s.effects.push(effect{
			name: "release",
			run: func(ctx context.Context) any {
				s.release(ctx, eh, nh)
				return nil
			},
		})
	}
	s.state = StateIdle
	s.active = nil
}

func (s *Session) onEngineStatus(e audio.StatusEvent) {
	if e.Handle == "" || e.Handle != s.engineHandle {
		zlog.Debug().Msgf("ignoring engine status for stale handle: handle=%s status=%s", e.Handle, e.Status)
		return
	}

	switch e.Status {
	case audio.StatusPlaying:
		if s.state == StateLoading {
			s.state = StatePlaying
			s.show(true)
		}
	case audio.StatusPaused:
		// Pause is driven by requests; the engine echo carries no new information.
	case audio.StatusFinished:
		if !s.state.IsActive() {
			return
		}
		s.bump()
		s.releaseAll()
		s.state = StateIdle
		s.active = nil
		s.lastErr = nil
	case audio.StatusError:
		err := e.Err
		if err == nil {
			err = errors.New("engine reported an error")
		}
		if !errors.Is(err, audio.ErrEngine) {
			err = audio.EngineError(err, "playback of %s failed", s.engineHandle)
		}
		s.fail(err)
	}
}

func (s *Session) onAction(a nowplaying.Action) {
	zlog.Debug().Msgf("notification action: action=%s state=%s", a, s.state)

	switch a {
	case nowplaying.ActionToggle:
		switch s.state {
		case StatePlaying:
			s.requestPause()
		case StatePaused:
			s.requestResume()
		}
	case nowplaying.ActionNext, nowplaying.ActionPrevious:
		s.forward(a)
	}
}

func (s *Session) onLoadDone(e loadDone) {
	if e.gen != s.gen || s.state != StateLoading {
		zlog.Debug().Msgf("discarding stale load: gen=%d current_gen=%d handle=%s", e.gen, s.gen, e.handle)
		if e.handle != "" {
			h := e.handle
			s.effects.push(effect{
				name: "unload",
				run: func(ctx context.Context) any {
					s.unload(ctx, h)
					return nil
				},
			})
		}
		return
	}

	if e.err != nil {
		if !errors.Is(e.err, audio.ErrLoad) {
			e.err = audio.LoadError(e.err, "loading %s", e.track.Source)
		}
		s.engineHandle = e.handle
		s.fail(e.err)
		return
	}

	s.engineHandle = e.handle
	s.engineOp("play", s.engine.Play)
}

func (s *Session) onOpDone(e opDone) {
	if e.err == nil {
		return
	}
	if e.gen != s.gen || e.handle != s.engineHandle {
		zlog.Debug().Msgf("ignoring stale engine failure: op=%s handle=%s error=%v", e.op, e.handle, e.err)
		return
	}
	err := e.err
	if !errors.Is(err, audio.ErrEngine) {
		err = audio.EngineError(err, "%s %s", e.op, e.handle)
	}
	s.fail(err)
}

func (s *Session) onShowDone(e showDone) {
	s.showSettled = e.seq

	if e.seq != s.showIssued {
		// A later show replaces this surface.
		return
	}

	if e.err != nil {
		zlog.Warn().Msgf("notification show failed: gen=%d error=%v", e.gen, e.err)
		s.noteHandle = ""
		if s.state.IsActive() {
			s.lastErr = e.err
		}
		return
	}

	if e.gen == s.gen && s.state.IsActive() {
		s.noteHandle = e.handle
		if errors.Is(s.lastErr, nowplaying.ErrNotification) {
			s.lastErr = nil
		}
		return
	}

	if e.handle != "" {
		h := e.handle
		s.effects.push(effect{
			name: "dismiss",
			run: func(ctx context.Context) any {
				s.dismiss(ctx, h)
				return nil
			},
		})
	}
}

func (s *Session) onReleaseDone(e releaseDone) {
	if e.gen != s.gen || s.state != StateStopping {
		return
	}
	s.state = StateIdle
	s.active = nil
}

// fail moves to the error state, releasing both handles.
func (s *Session) fail(err error) {
	zlog.Error().Msgf("playback failed: state=%s gen=%d error=%v", s.state, s.gen, err)
	s.bump()
	s.releaseAll()
	s.state = StateError
	s.lastErr = err
}

func (s *Session) bump() {
	s.gen++
}

func (s *Session) showInFlight() bool {
	return s.showSettled != s.showIssued
}

// takeHandles clears both handles and hands their ownership to the caller.
func (s *Session) takeHandles() (audio.Handle, nowplaying.Handle) {
	eh, nh := s.engineHandle, s.noteHandle
	s.engineHandle, s.noteHandle = "", ""
	return eh, nh
}

// releaseEngine stops and unloads the current engine handle, best effort.
func (s *Session) releaseEngine() {
	eh := s.engineHandle
	s.engineHandle = ""
	if eh == "" {
		return
	}
	s.effects.push(effect{
		name: "release engine",
		run: func(ctx context.Context) any {
			s.release(ctx, eh, "")
			return nil
		},
	})
}

// releaseAll releases both handles without waiting for completion.
func (s *Session) releaseAll() {
	eh, nh := s.takeHandles()
	if eh == "" && nh == "" {
		return
	}
	s.effects.push(effect{
		name: "release",
		run: func(ctx context.Context) any {
			s.release(ctx, eh, nh)
			return nil
		},
	})
}

func (s *Session) load(t track.Ref) {
	gen := s.gen
	s.effects.push(effect{
		name: "load",
		run: func(ctx context.Context) any {
			h, err := s.engine.Load(ctx, t.Source)
			return loadDone{gen: gen, track: t, handle: h, err: err}
		},
	})
}

func (s *Session) engineOp(op string, fn func(context.Context, audio.Handle) error) {
	gen, h := s.gen, s.engineHandle
	if h == "" {
		return
	}
	s.effects.push(effect{
		name: op,
		run: func(ctx context.Context) any {
			return opDone{gen: gen, handle: h, op: op, err: fn(ctx, h)}
		},
	})
}

func (s *Session) show(playing bool) {
	if s.active == nil {
		return
	}
	s.showIssued++
	gen, seq := s.gen, s.showIssued
	info := nowplaying.Info{Title: s.active.DisplayTitle(), Artist: s.active.Artist}
	actions := nowplaying.Actions{
		Toggle:   true,
		Next:     s.config.Forwarder != nil,
		Previous: s.config.Forwarder != nil,
	}
	s.effects.push(effect{
		name: "show",
		run: func(ctx context.Context) any {
			h, err := s.notifier.Show(ctx, info, playing, actions)
			if err != nil && !errors.Is(err, nowplaying.ErrNotification) {
				err = nowplaying.NotificationError(err, "showing %q", info.Title)
			}
			return showDone{gen: gen, seq: seq, handle: h, err: err}
		},
	})
}

func (s *Session) forward(a nowplaying.Action) {
	fwd := s.config.Forwarder
	if fwd == nil {
		zlog.Info().Msgf("no forwarder configured, dropping action: action=%s", a)
		return
	}
	s.effects.push(effect{
		name: "forward " + a.String(),
		run: func(ctx context.Context) any {
			var err error
			if a == nowplaying.ActionNext {
				err = fwd.Next(ctx)
			} else {
				err = fwd.Previous(ctx)
			}
			if err != nil {
				zlog.Warn().Msgf("forwarding action failed: action=%s error=%v", a, err)
			}
			return nil
		},
	})
}

// release stops, unloads and dismisses, logging failures.
func (s *Session) release(ctx context.Context, eh audio.Handle, nh nowplaying.Handle) {
	if eh != "" {
		if err := s.engine.Stop(ctx, eh); err != nil {
			zlog.Warn().Msgf("failed to stop engine handle: handle=%s error=%v", eh, err)
		}
		s.unload(ctx, eh)
	}
	if nh != "" {
		s.dismiss(ctx, nh)
	}
}

func (s *Session) unload(ctx context.Context, h audio.Handle) {
	if err := s.engine.Unload(ctx, h); err != nil {
		zlog.Warn().Msgf("failed to unload engine handle: handle=%s error=%v", h, err)
	}
}

func (s *Session) dismiss(ctx context.Context, h nowplaying.Handle) {
	if err := s.notifier.Dismiss(ctx, h); err != nil {
		zlog.Warn().Msgf("failed to dismiss notification: handle=%s error=%v", h, err)
	}
}
