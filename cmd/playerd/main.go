// Package main provides the playback daemon entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/epitaph76/cloudtune/internal/api/connect"
	"github.com/epitaph76/cloudtune/internal/api/playerv1/playerv1connect"
	"github.com/epitaph76/cloudtune/internal/app/catalog"
	"github.com/epitaph76/cloudtune/internal/app/session"
	"github.com/epitaph76/cloudtune/internal/infra/beep"
	"github.com/epitaph76/cloudtune/internal/infra/config"
	"github.com/epitaph76/cloudtune/internal/infra/lastfm"
	"github.com/epitaph76/cloudtune/internal/infra/library"
	"github.com/epitaph76/cloudtune/internal/infra/logger"
	"github.com/epitaph76/cloudtune/internal/infra/spotify"
)

const shutdownTimeout = 10 * time.Second

var (
	app        = kingpin.New("playerd", "CloudTune playback daemon")
	configPath = app.Flag("config", "Path to config file").Default("config/playerd.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	logFormat  = app.Flag("log-format", "Log format: auto, console or json").Default("auto").Enum("auto", "console", "json")
	noColor    = app.Flag("no-color", "Disable colored console logs").Bool()

	// check-config command
	checkConfigCmd = app.Command("check-config", "Validate the config file and exit")
)

func init() {
	app.Command("start", "Start the daemon (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{
		Output:  "stdout",
		Level:   "info",
		Format:  *logFormat,
		NoColor: *noColor,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	logCloser, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logCloser.Close()

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Error().Msgf("Failed to load config: %v", err)
		os.Exit(1)
	}

	if command == checkConfigCmd.FullCommand() {
		fmt.Printf("%s: ok (%d catalog sources, notification backend %s)\n",
			*configPath, len(cfg.Catalog.Sources), cfg.Notification.Backend)
		return
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Daemon error: %+v", err)
		logCloser.Close()
		os.Exit(1)
	}
}

// run executes the main daemon logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	dbPath, err := cfg.Library.DBPath()
	if err != nil {
		return err
	}
	zlog.Info().Msgf("Opening library: path=%s", dbPath)
	store, err := library.Open(dbPath)
	if err != nil {
		return errors.Wrap(err, "failed to open library")
	}
	defer store.Close()

	var spotifyClient catalog.SpotifyClient
	if cfg.Spotify.HasCredentials() {
		client, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return errors.Wrap(err, "failed to create Spotify client")
		}
		spotifyClient = client
	}

	chain, err := catalog.NewChainFromConfig(cfg, store, spotifyClient)
	if err != nil {
		return errors.Wrap(err, "failed to create catalog")
	}

	engine := beep.New(beep.Config{
		SampleRate:       cfg.Audio.SampleRate,
		Buffer:           cfg.Audio.Buffer(),
		MaxDownloadBytes: int64(cfg.Audio.MaxDownloadMB) << 20,
	})
	defer engine.Close()

	notifier := newNotifier(cfg.Notification)
	defer notifier.Close()

	coordinator := session.NewCoordinator(engine, notifier, chain, session.Config{
		InboxSize:        cfg.Playback.InboxSize,
		OperationTimeout: cfg.Playback.OperationTimeout(),
		SubscriberBuffer: cfg.Playback.SubscriberBuffer,
		ForwardSkips:     cfg.Notification.ForwardSkips,
	})
	coordinator.Start()

	unsubscribe := coordinator.OnStateChange(logStatus)
	defer unsubscribe()

	if cfg.Lastfm.Enabled() {
		client, err := lastfm.New(lastfm.Config{
			APIKey:     cfg.Lastfm.APIKey,
			APISecret:  cfg.Lastfm.APISecret,
			SessionKey: cfg.Lastfm.SessionKey,
		})
		if err != nil {
			return errors.Wrap(err, "failed to create Last.fm client")
		}
		scrobbler := lastfm.NewScrobbler(client)
		unsubscribeScrobbler := coordinator.OnStateChange(scrobbler.Observe)
		defer unsubscribeScrobbler()
		// Runs after the coordinator closed, so no snapshot is observed concurrently
		defer scrobbler.Flush()
		zlog.Info().Msg("Last.fm scrobbling enabled")
	}

	mux := http.NewServeMux()
	interceptors := connect.WithInterceptors(apiconnect.NewTokenInterceptor(cfg.Server.Token))
	mux.Handle(playerv1connect.NewPlayerServiceHandler(apiconnect.NewPlayerService(coordinator), interceptors))
	mux.Handle(playerv1connect.NewLibraryServiceHandler(apiconnect.NewLibraryService(store), interceptors))

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		zlog.Info().Msgf("Received %s, shutting down...", sig)
	case err := <-serverErrCh:
		runErr = errors.Wrap(err, "server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop first so the surface is dismissed while the notifier is still up
	if err := coordinator.Stop(shutdownCtx); err != nil {
		zlog.Warn().Msgf("Failed to stop playback: %v", err)
	}
	// Closing the coordinator ends every watch stream, so Shutdown does not wait on them
	if err := coordinator.Close(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to close playback session: %v", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Daemon stopped")

	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return runErr
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
