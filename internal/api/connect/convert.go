package connect

import (
	playerv1 "github.com/epitaph76/cloudtune/internal/api/playerv1"
	"github.com/epitaph76/cloudtune/internal/app/notification"
	"github.com/epitaph76/cloudtune/internal/app/playback"
	"github.com/epitaph76/cloudtune/internal/domain/track"
)

func toStatus(s playback.Snapshot) *playerv1.PlaybackStatus {
	status := &playerv1.PlaybackStatus{
		State:      playerv1.PlaybackState(s.State.String()),
		Generation: s.Generation,
	}
	if s.Track != nil {
		status.Track = toTrack(*s.Track)
	}
	if s.Err != nil {
		status.Error = s.Err.Error()
	}
	return status
}

func toTrack(r track.Ref) *playerv1.Track {
	return &playerv1.Track{
		ID:     r.ID,
		Source: r.Source,
		Title:  r.Title,
		Artist: r.Artist,
	}
}

func fromTrack(t *playerv1.Track) track.Ref {
	return track.Ref{
		ID:     t.ID,
		Source: t.Source,
		Title:  t.Title,
		Artist: t.Artist,
	}
}

func toEvent(u notification.Update) *playerv1.Event {
	ev := &playerv1.Event{
		SequenceNo: u.SequenceNo,
		Status:     toStatus(u.Snapshot),
	}
	switch u.Type {
	case notification.UpdateInitialState:
		ev.Type = playerv1.EventTypeInitialState
	case notification.UpdateAction:
		ev.Type = playerv1.EventTypeAction
		ev.Action = u.Action.String()
	default:
		ev.Type = playerv1.EventTypeStateChanged
	}
	return ev
}

func toLibraryItem(i track.Item) *playerv1.LibraryItem {
	return &playerv1.LibraryItem{
		ID:          i.ID,
		DisplayName: i.DisplayName,
		Size:        i.Size,
		Source:      i.Source,
		Title:       i.Title,
		Artist:      i.Artist,
		AddedAt:     i.AddedAt,
	}
}

func toLibraryItems(items []track.Item) []*playerv1.LibraryItem {
	out := make([]*playerv1.LibraryItem, len(items))
	for i, it := range items {
		out[i] = toLibraryItem(it)
	}
	return out
}
