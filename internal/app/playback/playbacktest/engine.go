// Package playbacktest provides in-memory audio engine and notifier doubles.
package playbacktest

import (
	"context"
	"fmt"
	"sync"

	"github.com/epitaph76/cloudtune/internal/domain/audio"
)

// Engine is an in-memory audio.Engine.
//
// Play emits StatusPlaying and Pause emits StatusPaused. Loads can be held
// with Gate until Release is called, and failed with FailLoad.
type Engine struct {
	mu       sync.Mutex
	events   chan audio.StatusEvent
	calls    []string
	loaded   map[audio.Handle]string
	playing  map[audio.Handle]bool
	gates    map[string]chan struct{}
	loadErrs map[string]error
	playErr  error
	nextID   int
}

// NewEngine creates an engine double.
func NewEngine() *Engine {
	return &Engine{
		events:   make(chan audio.StatusEvent, 64),
		loaded:   make(map[audio.Handle]string),
		playing:  make(map[audio.Handle]bool),
		gates:    make(map[string]chan struct{}),
		loadErrs: make(map[string]error),
	}
}

// Gate makes loads of source block until Release(source).
func (e *Engine) Gate(source string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gates[source] = make(chan struct{})
}

// Release unblocks loads of source.
func (e *Engine) Release(source string) {
	e.mu.Lock()
	gate, ok := e.gates[source]
	delete(e.gates, source)
	e.mu.Unlock()
	if ok {
		close(gate)
	}
}

// FailLoad makes loads of source fail with err.
func (e *Engine) FailLoad(source string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadErrs[source] = err
}

// FailPlay makes every following Play fail with err.
func (e *Engine) FailPlay(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.playErr = err
}

// Emit pushes a status event as if the engine reported it.
func (e *Engine) Emit(h audio.Handle, st audio.Status, err error) {
	e.events <- audio.StatusEvent{Handle: h, Status: st, Err: err}
}

func (e *Engine) Load(ctx context.Context, source string) (audio.Handle, error) {
	e.mu.Lock()
	e.calls = append(e.calls, "load:"+source)
	gate := e.gates[source]
	e.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", audio.LoadError(ctx.Err(), "loading %s", source)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.loadErrs[source]; err != nil {
		return "", audio.LoadError(err, "loading %s", source)
	}
	e.nextID++
	h := audio.Handle(fmt.Sprintf("h%d", e.nextID))
	e.loaded[h] = source
	return h, nil
}

func (e *Engine) Play(_ context.Context, h audio.Handle) error {
	e.mu.Lock()
	e.calls = append(e.calls, "play:"+string(h))
	if e.playErr != nil {
		err := e.playErr
		e.mu.Unlock()
		return audio.EngineError(err, "play %s", h)
	}
	if _, ok := e.loaded[h]; !ok {
		e.mu.Unlock()
		return audio.EngineError(nil, "unknown handle %s", h)
	}
	already := e.playing[h]
	e.playing[h] = true
	e.mu.Unlock()

	if !already {
		e.Emit(h, audio.StatusPlaying, nil)
	}
	return nil
}

func (e *Engine) Pause(_ context.Context, h audio.Handle) error {
	e.mu.Lock()
	e.calls = append(e.calls, "pause:"+string(h))
	if _, ok := e.loaded[h]; !ok {
		e.mu.Unlock()
		return audio.EngineError(nil, "unknown handle %s", h)
	}
	was := e.playing[h]
	e.playing[h] = false
	e.mu.Unlock()

	if was {
		e.Emit(h, audio.StatusPaused, nil)
	}
	return nil
}

func (e *Engine) Stop(_ context.Context, h audio.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, "stop:"+string(h))
	e.playing[h] = false
	return nil
}

func (e *Engine) Unload(_ context.Context, h audio.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, "unload:"+string(h))
	delete(e.loaded, h)
	delete(e.playing, h)
	return nil
}

func (e *Engine) Events() <-chan audio.StatusEvent {
	return e.events
}

// Calls returns a copy of the recorded calls, e.g. "load:/a.mp3" or "play:h1".
func (e *Engine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

// Loaded returns the handles that are currently loaded.
func (e *Engine) Loaded() []audio.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	handles := make([]audio.Handle, 0, len(e.loaded))
	for h := range e.loaded {
		handles = append(handles, h)
	}
	return handles
}

// IsLoaded reports whether h is loaded.
func (e *Engine) IsLoaded(h audio.Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.loaded[h]
	return ok
}
