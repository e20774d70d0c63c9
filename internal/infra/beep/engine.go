// Package beep provides the audio engine backed by gopxl/beep and the system speaker.
package beep

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	zlog "github.com/rs/zerolog/log"

	"github.com/epitaph76/cloudtune/internal/domain/audio"
)

const (
	defaultSampleRate  = 44100
	defaultBuffer      = 100 * time.Millisecond
	defaultMaxDownload = 64 << 20
	eventBuffer        = 64
	resampleQuality    = 4
)

// Config represents audio engine configuration.
type Config struct {
	SampleRate       int           // Output sample rate; decoded streams are resampled to it
	Buffer           time.Duration // Speaker buffer length
	MaxDownloadBytes int64         // Upper bound for remote resources
}

// output abstracts the global speaker so tests can drive streams by hand.
type output struct {
	init   func(sr beep.SampleRate, bufferSize int) error
	play   func(s beep.Streamer)
	lock   func()
	unlock func()
}

var speakerOutput = output{
	init:   speaker.Init,
	play:   func(s beep.Streamer) { speaker.Play(s) },
	lock:   speaker.Lock,
	unlock: speaker.Unlock,
}

// Engine implements audio.Engine.
type Engine struct {
	config     Config
	sampleRate beep.SampleRate
	out        output
	fetcher    *fetcher

	initOnce sync.Once
	initErr  error

	mu        sync.Mutex
	resources map[audio.Handle]*resource

	events    chan audio.StatusEvent
	done      chan struct{}
	closeOnce sync.Once
}

type resource struct {
	source  string
	decoder beep.StreamSeekCloser
	ctrl    *beep.Ctrl
	started bool
	playing bool
}

var _ audio.Engine = (*Engine)(nil)

// New creates a new Engine. The speaker is opened on the first Play.
func New(cfg Config) *Engine {
	return newEngine(cfg, speakerOutput)
}

func newEngine(cfg Config, out output) *Engine {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultBuffer
	}
	if cfg.MaxDownloadBytes <= 0 {
		cfg.MaxDownloadBytes = defaultMaxDownload
	}
	return &Engine{
		config:     cfg,
		sampleRate: beep.SampleRate(cfg.SampleRate),
		out:        out,
		fetcher:    newFetcher(cfg.MaxDownloadBytes),
		resources:  make(map[audio.Handle]*resource),
		events:     make(chan audio.StatusEvent, eventBuffer),
		done:       make(chan struct{}),
	}
}

// Load opens and decodes source without starting output.
func (e *Engine) Load(ctx context.Context, source string) (audio.Handle, error) {
	decoder, format, err := e.fetcher.open(ctx, source)
	if err != nil {
		return "", audio.LoadError(err, "failed to load %s", source)
	}

	var s beep.Streamer = decoder
	if format.SampleRate != e.sampleRate {
		s = beep.Resample(resampleQuality, format.SampleRate, e.sampleRate, decoder)
	}

	h := audio.Handle(uuid.NewString())
	e.mu.Lock()
	e.resources[h] = &resource{
		source:  source,
		decoder: decoder,
		ctrl:    &beep.Ctrl{Streamer: s, Paused: true},
	}
	e.mu.Unlock()

	zlog.Debug().Msgf("audio loaded: handle=%s source=%s rate=%d", h, source, format.SampleRate)
	return h, nil
}

// Play starts or resumes output.
func (e *Engine) Play(_ context.Context, h audio.Handle) error {
	if err := e.ensureSpeaker(); err != nil {
		return audio.EngineError(err, "failed to open speaker")
	}

	e.mu.Lock()
	r, ok := e.resources[h]
	if !ok {
		e.mu.Unlock()
		return audio.EngineError(nil, "unknown handle %s", h)
	}
	if r.playing {
		e.mu.Unlock()
		return nil
	}
	r.playing = true
	first := !r.started
	r.started = true
	e.mu.Unlock()

	e.out.lock()
	if first && r.decoder.Len() > 0 && r.decoder.Position() >= r.decoder.Len() {
		_ = r.decoder.Seek(0)
	}
	r.ctrl.Paused = false
	e.out.unlock()

	if first {
		e.out.play(beep.Seq(r.ctrl, beep.Callback(func() {
			// Callbacks run on the speaker goroutine, which holds the speaker lock.
			go e.streamEnded(h, r)
		})))
	}

	e.emit(audio.StatusEvent{Handle: h, Status: audio.StatusPlaying})
	return nil
}

// Pause pauses output.
func (e *Engine) Pause(_ context.Context, h audio.Handle) error {
	e.mu.Lock()
	r, ok := e.resources[h]
	if !ok {
		e.mu.Unlock()
		return audio.EngineError(nil, "unknown handle %s", h)
	}
	wasPlaying := r.playing
	r.playing = false
	e.mu.Unlock()

	if !wasPlaying {
		return nil
	}
	e.out.lock()
	r.ctrl.Paused = true
	e.out.unlock()

	e.emit(audio.StatusEvent{Handle: h, Status: audio.StatusPaused})
	return nil
}

// Stop pauses output and rewinds to the beginning.
func (e *Engine) Stop(_ context.Context, h audio.Handle) error {
	e.mu.Lock()
	r, ok := e.resources[h]
	if !ok {
		e.mu.Unlock()
		return audio.EngineError(nil, "unknown handle %s", h)
	}
	r.playing = false
	e.mu.Unlock()

	e.out.lock()
	r.ctrl.Paused = true
	err := r.decoder.Seek(0)
	e.out.unlock()
	if err != nil {
		return audio.EngineError(err, "failed to rewind %s", h)
	}
	return nil
}

// Unload detaches the resource from the speaker and closes it.
func (e *Engine) Unload(_ context.Context, h audio.Handle) error {
	e.mu.Lock()
	r, ok := e.resources[h]
	delete(e.resources, h)
	e.mu.Unlock()
	if !ok {
		return nil
	}

	e.out.lock()
	// A nil streamer ends the sequence; streamEnded ignores unloaded resources.
	r.ctrl.Streamer = nil
	e.out.unlock()

	if err := r.decoder.Close(); err != nil {
		return audio.EngineError(err, "failed to close %s", h)
	}
	zlog.Debug().Msgf("audio unloaded: handle=%s", h)
	return nil
}

// Events returns the status feed.
func (e *Engine) Events() <-chan audio.StatusEvent {
	return e.events
}

// Close unloads every resource and stops emitting events.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() { close(e.done) })

	e.mu.Lock()
	handles := make([]audio.Handle, 0, len(e.resources))
	for h := range e.resources {
		handles = append(handles, h)
	}
	e.mu.Unlock()

	var errs error
	for _, h := range handles {
		errs = errors.CombineErrors(errs, e.Unload(context.Background(), h))
	}
	return errs
}

func (e *Engine) ensureSpeaker() error {
	e.initOnce.Do(func() {
		e.initErr = e.out.init(e.sampleRate, e.sampleRate.N(e.config.Buffer))
		if e.initErr == nil {
			zlog.Info().Msgf("speaker initialized: rate=%d buffer=%s", e.sampleRate, e.config.Buffer)
		}
	})
	return e.initErr
}

func (e *Engine) streamEnded(h audio.Handle, r *resource) {
	e.mu.Lock()
	current, ok := e.resources[h]
	if !ok || current != r {
		e.mu.Unlock()
		return
	}
	r.playing = false
	r.started = false
	e.mu.Unlock()

	if err := r.decoder.Err(); err != nil {
		e.emit(audio.StatusEvent{Handle: h, Status: audio.StatusError, Err: audio.EngineError(err, "decode failed for %s", r.source)})
		return
	}
	e.emit(audio.StatusEvent{Handle: h, Status: audio.StatusFinished})
}

func (e *Engine) emit(ev audio.StatusEvent) {
	select {
	case e.events <- ev:
	case <-e.done:
		zlog.Debug().Msgf("audio event dropped after close: handle=%s status=%s", ev.Handle, ev.Status)
	}
}
