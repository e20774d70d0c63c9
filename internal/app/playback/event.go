package playback

import (
	"github.com/epitaph76/cloudtune/internal/domain/audio"
	"github.com/epitaph76/cloudtune/internal/domain/nowplaying"
	"github.com/epitaph76/cloudtune/internal/domain/track"
)

// RequestType represents a user intent submitted to the session.
type RequestType int

const (
	RequestPlay   RequestType = iota // Play a track
	RequestPause                     // Pause output
	RequestResume                    // Resume output
	RequestStop                      // Stop and release everything
	requestClose                     // Shut the session down
)

// String returns the string representation of the request type.
func (r RequestType) String() string {
	switch r {
	case RequestPlay:
		return "play"
	case RequestPause:
		return "pause"
	case RequestResume:
		return "resume"
	case RequestStop:
		return "stop"
	case requestClose:
		return "close"
	default:
		return "unknown"
	}
}

// request is an intent waiting in the inbox. done is closed once applied.
type request struct {
	Type  RequestType
	Track track.Ref
	done  chan struct{}
}

// loadDone reports the completion of engine.Load.
type loadDone struct {
	gen    uint64
	track  track.Ref
	handle audio.Handle
	err    error
}

// opDone reports the completion of play/pause on a loaded handle.
type opDone struct {
	gen    uint64
	handle audio.Handle
	op     string
	err    error
}

// showDone reports the completion of notification.Show.
type showDone struct {
	gen    uint64
	seq    uint64
	handle nowplaying.Handle
	err    error
}

// releaseDone reports that a stop released its handles.
type releaseDone struct {
	gen uint64
}

// Snapshot is the observable state of the session.
type Snapshot struct {
	State              State
	Track              *track.Ref // nil only while idle
	Generation         uint64
	EngineHandle       audio.Handle
	NotificationHandle nowplaying.Handle
	Err                error // Last surfaced error (load, engine or notification)
}

// equal reports whether two snapshots describe the same observable state.
func (s Snapshot) equal(o Snapshot) bool {
	if s.State != o.State || s.Generation != o.Generation ||
		s.EngineHandle != o.EngineHandle || s.NotificationHandle != o.NotificationHandle {
		return false
	}
	if (s.Track == nil) != (o.Track == nil) {
		return false
	}
	if s.Track != nil && *s.Track != *o.Track {
		return false
	}
	return errString(s.Err) == errString(o.Err)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
