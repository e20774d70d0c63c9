package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	playerv1 "github.com/epitaph76/cloudtune/internal/api/playerv1"
)

func printStatus(s *playerv1.PlaybackStatus) {
	fmt.Println(formatStatus(s))
}

func formatStatus(s *playerv1.PlaybackStatus) string {
	if s == nil {
		return "unknown"
	}
	var b strings.Builder
	b.WriteString(formatState(s.State))
	if s.Track != nil {
		fmt.Fprintf(&b, "  %s", formatTrack(s.Track))
	}
	if s.Error != "" {
		fmt.Fprintf(&b, "  (error: %s)", s.Error)
	}
	return b.String()
}

func formatState(state playerv1.PlaybackState) string {
	switch state {
	case playerv1.PlaybackStateIdle:
		return "⏹  Idle"
	case playerv1.PlaybackStateLoading:
		return "⏳ Loading"
	case playerv1.PlaybackStatePlaying:
		return "▶️  Playing"
	case playerv1.PlaybackStatePaused:
		return "⏸  Paused"
	case playerv1.PlaybackStateStopping:
		return "⏹  Stopping"
	case playerv1.PlaybackStateError:
		return "⚠️  Error"
	default:
		return "❓ Unknown"
	}
}

func formatTrack(t *playerv1.Track) string {
	title := t.Title
	if title == "" {
		title = t.ID
	}
	if t.Artist != "" {
		return title + " - " + t.Artist
	}
	return title
}

func formatEvent(ev *playerv1.Event) string {
	switch ev.Type {
	case playerv1.EventTypeAction:
		return fmt.Sprintf("[%d] action: %s", ev.SequenceNo, ev.Action)
	case playerv1.EventTypeInitialState:
		return fmt.Sprintf("[%d] now: %s", ev.SequenceNo, formatStatus(ev.Status))
	default:
		return fmt.Sprintf("[%d] %s", ev.SequenceNo, formatStatus(ev.Status))
	}
}

func printItems(w io.Writer, items []*playerv1.LibraryItem) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTITLE\tARTIST\tSIZE\tADDED")
	for _, it := range items {
		size := "-"
		if it.Size > 0 {
			size = humanize.IBytes(uint64(it.Size))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			it.ID, it.DisplayName, it.Title, it.Artist, size, humanize.Time(it.AddedAt))
	}
	tw.Flush()
}
