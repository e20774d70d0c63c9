// Package playerv1 defines the messages of the cloudtune.player.v1 API.
package playerv1

import "time"

// Track is a playable track reference.
type Track struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source,omitempty"`
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
}

// PlaybackState mirrors the session states.
type PlaybackState string

const (
	PlaybackStateIdle     PlaybackState = "idle"
	PlaybackStateLoading  PlaybackState = "loading"
	PlaybackStatePlaying  PlaybackState = "playing"
	PlaybackStatePaused   PlaybackState = "paused"
	PlaybackStateStopping PlaybackState = "stopping"
	PlaybackStateError    PlaybackState = "error"
)

// PlaybackStatus is the observable session snapshot.
type PlaybackStatus struct {
	State      PlaybackState `json:"state"`
	Track      *Track        `json:"track,omitempty"`
	Generation uint64        `json:"generation"`
	Error      string        `json:"error,omitempty"`
}

// PlayRequest selects a track by catalog id, or by a full reference when Track is set.
type PlayRequest struct {
	TrackID string `json:"track_id,omitempty"`
	Track   *Track `json:"track,omitempty"`
}

type PlayResponse struct {
	Status *PlaybackStatus `json:"status"`
}

type PauseRequest struct{}

type PauseResponse struct {
	Status *PlaybackStatus `json:"status"`
}

type ResumeRequest struct{}

type ResumeResponse struct {
	Status *PlaybackStatus `json:"status"`
}

type StopRequest struct{}

type StopResponse struct {
	Status *PlaybackStatus `json:"status"`
}

type GetStatusRequest struct{}

type GetStatusResponse struct {
	Status *PlaybackStatus `json:"status"`
}

type WatchRequest struct{}

// EventType represents the kind of a watch event.
type EventType string

const (
	EventTypeInitialState EventType = "initial_state"
	EventTypeStateChanged EventType = "state_changed"
	EventTypeAction       EventType = "action"
)

// Event is one message of the watch stream.
type Event struct {
	Type       EventType       `json:"type"`
	SequenceNo uint64          `json:"sequence_no"`
	Status     *PlaybackStatus `json:"status"`
	Action     string          `json:"action,omitempty"` // "next" or "previous" for EventTypeAction
}

// LibraryItem is a stored catalog entry.
type LibraryItem struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Size        int64     `json:"size"`
	Source      string    `json:"source"`
	Title       string    `json:"title,omitempty"`
	Artist      string    `json:"artist,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}

// AddTracksRequest lists local paths or http(s) URLs to import.
// Local paths are read by the daemon, so they must be visible to it.
type AddTracksRequest struct {
	Locators []string `json:"locators"`
}

type AddTracksResponse struct {
	Items []*LibraryItem `json:"items"`
}

type ListTracksRequest struct{}

type ListTracksResponse struct {
	Items []*LibraryItem `json:"items"`
}

type RemoveTrackRequest struct {
	ID string `json:"id"`
}

type RemoveTrackResponse struct{}
