// Package player implements a lazily initialized speech player: a beep-backed
// audio engine, a guarded playback state machine and the session lifecycle
// that binds engine events to waveform and pitch contour rendering.
//
// All player state belongs to a single goroutine (the UI loop). Background work
// such as decoding or audio end-of-stream callbacks only hands closures to the
// session's Dispatcher.
package player

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gigurra/speechplay/cmd/speech/contour"
	"github.com/gigurra/speechplay/cmd/speech/waveform"
)

var (
	ErrNoSource          = errors.New("no audio source")
	ErrNoTarget          = errors.New("render target is not live")
	ErrNoDispatcher      = errors.New("no dispatcher configured")
	ErrNotReady          = errors.New("audio is not decoded yet")
	ErrDestroyed         = errors.New("player destroyed")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrEmptyAudio        = errors.New("audio contains no samples")
)

// Event is a lifecycle notification emitted by an Engine.
type Event string

const (
	EventPlay   Event = "play"
	EventPause  Event = "pause"
	EventDecode Event = "decode" // once per successful load; pull data through the getters
	EventError  Event = "error"  // once per failed load; see Engine.Err
)

// Engine owns one playable audio resource bound to a render target.
// Methods must be called from the dispatch loop.
type Engine interface {
	// On registers fn for ev and returns an idempotent unbind function.
	On(ev Event, fn func()) (unbind func())

	Play() error
	Pause() error
	IsPlaying() bool

	// Duration is 0 until decode completes.
	Duration() time.Duration
	CurrentTime() time.Duration
	// DecodedSamples is a read-only view of channel 0, nil before decode.
	DecodedSamples() []float64
	SampleRate() int
	Err() error

	// Destroy releases audio buffers, listeners and the render target. Idempotent.
	Destroy()
}

// EngineFactory creates an engine and starts loading source in the background.
type EngineFactory func(ctx context.Context, source string, target waveform.Surface, opts Options) (Engine, error)

// Options configure a Player, its sessions and their engines.
type Options struct {
	Height     int        // canvas rows, informational for hosts
	Dispatch   Dispatcher // required
	Sink       Sink
	CacheDir   string // remote sources are cached here when set
	HTTPClient *http.Client

	NewEngine      EngineFactory
	Renderer       *waveform.Renderer
	ContourOptions contour.Options

	// OnChange is called on the loop after every session state transition.
	OnChange func(*Session)
}

func (o Options) withDefaults() Options {
	if o.Height <= 0 {
		o.Height = 5
	}
	if o.Sink == nil {
		o.Sink = DefaultSink()
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if o.NewEngine == nil {
		o.NewEngine = NewEngine
	}
	if o.Renderer == nil {
		o.Renderer = waveform.NewRenderer()
	}
	return o
}

type listener struct {
	fn func()
}

// emitter is the listener registry shared by engine implementations.
type emitter struct {
	listeners map[Event][]*listener
}

func (e *emitter) on(ev Event, fn func()) func() {
	if e.listeners == nil {
		e.listeners = make(map[Event][]*listener)
	}
	l := &listener{fn: fn}
	e.listeners[ev] = append(e.listeners[ev], l)
	return func() {
		if e.listeners == nil {
			return
		}
		e.listeners[ev] = slices.DeleteFunc(e.listeners[ev], func(x *listener) bool { return x == l })
	}
}

func (e *emitter) emit(ev Event) {
	for _, l := range slices.Clone(e.listeners[ev]) {
		l.fn()
	}
}

func (e *emitter) count() int {
	n := 0
	for _, ls := range e.listeners {
		n += len(ls)
	}
	return n
}

func (e *emitter) clear() {
	e.listeners = nil
}
