package lastfm

import (
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/epitaph76/cloudtune/internal/app/playback"
)

const (
	// A listen always counts after this long.
	scrobbleAfter = 4 * time.Minute
	// A listen that ends cleanly counts after this long.
	minListen = 30 * time.Second
)

// Service is the part of the Last.fm API the scrobbler needs.
type Service interface {
	UpdateNowPlaying(Play) error
	Scrobble(Play) error
}

type listen struct {
	play      Play
	gen       uint64
	listened  time.Duration
	resumedAt time.Time // Zero while paused
}

// Scrobbler turns session snapshots into Last.fm now playing updates and scrobbles.
// Observe must be called from a single goroutine, in snapshot order.
type Scrobbler struct {
	service Service
	now     func() time.Time
	current *listen
}

// NewScrobbler creates a scrobbler reporting to service.
func NewScrobbler(service Service) *Scrobbler {
	return &Scrobbler{service: service, now: time.Now}
}

// Observe handles one snapshot.
func (s *Scrobbler) Observe(snap playback.Snapshot) {
	now := s.now()

	if s.current != nil && (snap.Generation != s.current.gen || !isListening(snap.State)) {
		s.finish(snap, now)
	}

	switch snap.State {
	case playback.StatePlaying:
		if s.current == nil {
			s.start(snap, now)
			return
		}
		if s.current.resumedAt.IsZero() {
			s.current.resumedAt = now
		}
	case playback.StatePaused:
		if s.current != nil && !s.current.resumedAt.IsZero() {
			s.current.listened += now.Sub(s.current.resumedAt)
			s.current.resumedAt = time.Time{}
		}
	}
}

// Flush ends the current listen, scrobbling it if it qualifies.
func (s *Scrobbler) Flush() {
	if s.current != nil {
		s.finish(playback.Snapshot{State: playback.StateIdle}, s.now())
	}
}

func (s *Scrobbler) start(snap playback.Snapshot, now time.Time) {
	if snap.Track == nil || snap.Track.Artist == "" || snap.Track.Title == "" {
		zlog.Debug().Msg("lastfm: skipping track without artist or title")
		return
	}
	s.current = &listen{
		play: Play{
			Artist:    snap.Track.Artist,
			Title:     snap.Track.Title,
			StartedAt: now,
		},
		gen:       snap.Generation,
		resumedAt: now,
	}
	if err := s.service.UpdateNowPlaying(s.current.play); err != nil {
		zlog.Warn().Msgf("lastfm now playing failed: track=%s error=%v", s.current.play.Title, err)
	}
}

// finish closes the current listen. next is the snapshot that ended it.
func (s *Scrobbler) finish(next playback.Snapshot, now time.Time) {
	l := s.current
	s.current = nil
	if !l.resumedAt.IsZero() {
		l.listened += now.Sub(l.resumedAt)
	}

	clean := next.State == playback.StateIdle && next.Err == nil
	if l.listened < scrobbleAfter && (!clean || l.listened < minListen) {
		zlog.Debug().Msgf("lastfm: not scrobbling track=%s listened=%s", l.play.Title, l.listened)
		return
	}
	if err := s.service.Scrobble(l.play); err != nil {
		zlog.Warn().Msgf("lastfm scrobble failed: track=%s error=%v", l.play.Title, err)
		return
	}
	zlog.Info().Msgf("lastfm scrobbled: track=%s artist=%s", l.play.Title, l.play.Artist)
}

func isListening(st playback.State) bool {
	return st == playback.StatePlaying || st == playback.StatePaused
}
