// Package playback provides the playback session: the single state machine
// that owns the audio engine handle and the now playing notification.
package playback

// State represents the playback state.
type State int

const (
	StateIdle     State = iota // Nothing loaded
	StateLoading               // Resource requested, waiting for the engine to start output
	StatePlaying               // Output running
	StatePaused                // Output paused
	StateStopping              // Stop accepted, handles being released
	StateError                 // Last track failed; resting until the next request
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseState converts the string form back into a State.
func ParseState(s string) (State, bool) {
	for st := StateIdle; st <= StateError; st++ {
		if st.String() == s {
			return st, true
		}
	}
	return StateIdle, false
}

// IsActive reports whether a track is attached to the session.
func (s State) IsActive() bool {
	return s == StateLoading || s == StatePlaying || s == StatePaused
}
