// Package main provides the playback control CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/epitaph76/cloudtune/internal/api/connect"
	playerv1 "github.com/epitaph76/cloudtune/internal/api/playerv1"
	"github.com/epitaph76/cloudtune/internal/api/playerv1/playerv1connect"
)

var (
	app    = kingpin.New("playerctl", "CloudTune playback control client")
	server = app.Flag("server", "Daemon address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Control token (or set PLAYERD_TOKEN env)").Envar("PLAYERD_TOKEN").String()

	// play command
	playCmd    = app.Command("play", "Play a library track or a Spotify track reference")
	playID     = playCmd.Arg("track-id", "Catalog track ID").String()
	playSource = playCmd.Flag("source", "Play a path or URL directly instead of a catalog ID").String()
	playTitle  = playCmd.Flag("title", "Title shown for --source").String()
	playArtist = playCmd.Flag("artist", "Artist shown for --source").String()

	pauseCmd  = app.Command("pause", "Pause playback")
	resumeCmd = app.Command("resume", "Resume playback")
	stopCmd   = app.Command("stop", "Stop playback")
	statusCmd = app.Command("status", "Show playback status")
	watchCmd  = app.Command("watch", "Stream playback events")

	// library commands
	libraryCmd  = app.Command("library", "Manage the track library")
	addCmd      = libraryCmd.Command("add", "Add local files or URLs")
	addLocators = addCmd.Arg("locator", "File path or http(s) URL").Required().Strings()
	listCmd     = libraryCmd.Command("list", "List library tracks").Alias("ls")
	removeCmd   = libraryCmd.Command("remove", "Remove a library track").Alias("rm")
	removeID    = removeCmd.Arg("track-id", "Library track ID").Required().String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	opts := connect.WithInterceptors(apiconnect.NewClientTokenInterceptor(*token))
	player := playerv1connect.NewPlayerServiceClient(http.DefaultClient, *server, opts)
	library := playerv1connect.NewLibraryServiceClient(http.DefaultClient, *server, opts)

	ctx := context.Background()

	var err error
	switch command {
	case playCmd.FullCommand():
		err = play(ctx, player)
	case pauseCmd.FullCommand():
		err = pause(ctx, player)
	case resumeCmd.FullCommand():
		err = resume(ctx, player)
	case stopCmd.FullCommand():
		err = stop(ctx, player)
	case statusCmd.FullCommand():
		err = status(ctx, player)
	case watchCmd.FullCommand():
		err = watch(ctx, player)
	case addCmd.FullCommand():
		err = addTracks(ctx, library, *addLocators)
	case listCmd.FullCommand():
		err = listTracks(ctx, library)
	case removeCmd.FullCommand():
		err = removeTrack(ctx, library, *removeID)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func play(ctx context.Context, client playerv1connect.PlayerServiceClient) error {
	msg := &playerv1.PlayRequest{TrackID: *playID}
	if *playSource != "" {
		msg = &playerv1.PlayRequest{Track: &playerv1.Track{
			ID:     *playID,
			Source: *playSource,
			Title:  *playTitle,
			Artist: *playArtist,
		}}
	} else if *playID == "" {
		return fmt.Errorf("track-id or --source is required")
	}

	resp, err := client.Play(ctx, connect.NewRequest(msg))
	if err != nil {
		return err
	}
	printStatus(resp.Msg.Status)
	return nil
}

func pause(ctx context.Context, client playerv1connect.PlayerServiceClient) error {
	resp, err := client.Pause(ctx, connect.NewRequest(&playerv1.PauseRequest{}))
	if err != nil {
		return err
	}
	printStatus(resp.Msg.Status)
	return nil
}

func resume(ctx context.Context, client playerv1connect.PlayerServiceClient) error {
	resp, err := client.Resume(ctx, connect.NewRequest(&playerv1.ResumeRequest{}))
	if err != nil {
		return err
	}
	printStatus(resp.Msg.Status)
	return nil
}

func stop(ctx context.Context, client playerv1connect.PlayerServiceClient) error {
	resp, err := client.Stop(ctx, connect.NewRequest(&playerv1.StopRequest{}))
	if err != nil {
		return err
	}
	printStatus(resp.Msg.Status)
	return nil
}

func status(ctx context.Context, client playerv1connect.PlayerServiceClient) error {
	resp, err := client.GetStatus(ctx, connect.NewRequest(&playerv1.GetStatusRequest{}))
	if err != nil {
		return err
	}
	printStatus(resp.Msg.Status)
	return nil
}

func watch(ctx context.Context, client playerv1connect.PlayerServiceClient) error {
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	stream, err := client.Watch(ctx, connect.NewRequest(&playerv1.WatchRequest{}))
	if err != nil {
		return err
	}
	defer stream.Close()

	fmt.Println("Watching playback. Press Ctrl+C to exit.")
	for stream.Receive() {
		fmt.Println(formatEvent(stream.Msg()))
	}
	if ctx.Err() != nil {
		return nil
	}
	return stream.Err()
}

func addTracks(ctx context.Context, client playerv1connect.LibraryServiceClient, locators []string) error {
	resp, err := client.AddTracks(ctx, connect.NewRequest(&playerv1.AddTracksRequest{Locators: locators}))
	if err != nil {
		return err
	}
	printItems(os.Stdout, resp.Msg.Items)
	return nil
}

func listTracks(ctx context.Context, client playerv1connect.LibraryServiceClient) error {
	resp, err := client.ListTracks(ctx, connect.NewRequest(&playerv1.ListTracksRequest{}))
	if err != nil {
		return err
	}
	if len(resp.Msg.Items) == 0 {
		fmt.Println("Library is empty")
		return nil
	}
	printItems(os.Stdout, resp.Msg.Items)
	return nil
}

func removeTrack(ctx context.Context, client playerv1connect.LibraryServiceClient, id string) error {
	if _, err := client.RemoveTrack(ctx, connect.NewRequest(&playerv1.RemoveTrackRequest{ID: id})); err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", id)
	return nil
}
