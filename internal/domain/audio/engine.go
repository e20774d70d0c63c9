// Package audio defines the contract of the audio engine driven by the playback session.
package audio

import (
	"context"

	"github.com/cockroachdb/errors"
)

var (
	// ErrLoad marks failures to open or decode a media resource.
	ErrLoad = errors.New("load error")
	// ErrEngine marks failures of an operation on a loaded resource.
	ErrEngine = errors.New("engine error")
)

// Handle identifies one loaded media resource. The zero value means "none".
type Handle string

// Status is an asynchronous status reported by the engine for a handle.
type Status int

const (
	StatusPlaying  Status = iota // Output started or resumed
	StatusPaused                 // Output paused
	StatusFinished               // Resource played to the end
	StatusError                  // Playback failed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusFinished:
		return "finished"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// StatusEvent is one entry of the engine status feed.
type StatusEvent struct {
	Handle Handle
	Status Status
	Err    error // Set for StatusError
}

// Engine loads and plays one media resource at a time.
//
// Events for a single handle are delivered in emission order, at most one in
// flight per handle. Play, Pause and Stop are no-ops when the resource is
// already in the requested state.
type Engine interface {
	// Load opens the resource. Failures are marked with ErrLoad.
	Load(ctx context.Context, source string) (Handle, error)
	// Play starts or resumes output. Failures are marked with ErrEngine.
	Play(ctx context.Context, h Handle) error
	// Pause pauses output. Failures are marked with ErrEngine.
	Pause(ctx context.Context, h Handle) error
	// Stop halts output and rewinds. Failures are marked with ErrEngine.
	Stop(ctx context.Context, h Handle) error
	// Unload releases the resource. Unloading an unknown handle is a no-op.
	Unload(ctx context.Context, h Handle) error
	// Events returns the status feed.
	Events() <-chan StatusEvent
}

// LoadError wraps err and marks it as a load failure.
func LoadError(err error, format string, args ...any) error {
	if err == nil {
		err = errors.Newf(format, args...)
	} else {
		err = errors.Wrapf(err, format, args...)
	}
	return errors.Mark(err, ErrLoad)
}

// EngineError wraps err and marks it as an engine failure.
func EngineError(err error, format string, args ...any) error {
	if err == nil {
		err = errors.Newf(format, args...)
	} else {
		err = errors.Wrapf(err, format, args...)
	}
	return errors.Mark(err, ErrEngine)
}
