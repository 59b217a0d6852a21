package player

import (
	"context"
	"log/slog"
	"time"

	"github.com/gigurra/speechplay/cmd/speech/waveform"
	"github.com/gopxl/beep/v2"
)

// beepEngine decodes a whole source into a beep.Buffer and plays it through a Sink.
type beepEngine struct {
	source   string
	target   waveform.Surface
	dispatch Dispatcher
	sink     Sink
	cancel   context.CancelFunc
	done     chan struct{}

	// Everything below is owned by the dispatch loop.
	events     emitter
	decoded    *decoded
	err        error
	stream     beep.StreamSeeker
	ctrl       *beep.Ctrl
	playing    bool
	destroyed  bool
	playbackID uint64 // incremented per playback, used to ignore stale end-of-stream callbacks
}

// NewEngine validates its inputs, then loads and decodes source in the background.
// The decode or error event is delivered through opts.Dispatch.
func NewEngine(ctx context.Context, source string, target waveform.Surface, opts Options) (Engine, error) {
	if source == "" {
		return nil, ErrNoSource
	}
	if target == nil || !target.Live() {
		return nil, ErrNoTarget
	}
	if opts.Dispatch == nil {
		return nil, ErrNoDispatcher
	}
	opts = opts.withDefaults()

	ctx, cancel := context.WithCancel(ctx)
	e := &beepEngine{
		source:   source,
		target:   target,
		dispatch: opts.Dispatch,
		sink:     opts.Sink,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go e.load(ctx, opts)
	return e, nil
}

func (e *beepEngine) load(ctx context.Context, opts Options) {
	defer close(e.done)

	start := time.Now()
	data, err := loadSource(ctx, e.source, opts.CacheDir, opts.HTTPClient)
	var d *decoded
	if err == nil {
		d, err = decode(ctx, data)
	}
	if ctx.Err() != nil {
		// Destroyed while loading; nobody is listening any more.
		return
	}
	if err != nil {
		slog.Debug("decode failed", "source", e.source, "error", err)
	} else {
		slog.Debug("decoded", "source", e.source, "samples", d.buffer.Len(), "rate", d.format.SampleRate, "took", time.Since(start))
	}

	e.dispatch(func() {
		if e.destroyed {
			return
		}
		if err != nil {
			e.err = err
			e.events.emit(EventError)
			return
		}
		e.decoded = d
		e.events.emit(EventDecode)
	})
}

// wait blocks until the background load has finished.
func (e *beepEngine) wait() {
	<-e.done
}

func (e *beepEngine) On(ev Event, fn func()) func() {
	if e.destroyed {
		return func() {}
	}
	return e.events.on(ev, fn)
}

func (e *beepEngine) Play() error {
	switch {
	case e.destroyed:
		return ErrDestroyed
	case e.decoded == nil:
		return ErrNotReady
	case e.playing:
		return nil
	}

	if e.ctrl == nil {
		e.playbackID++
		id := e.playbackID
		e.stream = e.decoded.buffer.Streamer(0, e.decoded.buffer.Len())
		e.ctrl = &beep.Ctrl{Streamer: beep.Seq(e.stream, beep.Callback(func() {
			e.dispatch(func() { e.onFinished(id) })
		}))}
		if err := e.sink.Play(e.ctrl, e.decoded.format.SampleRate); err != nil {
			e.ctrl, e.stream = nil, nil
			return err
		}
	} else {
		e.sink.Lock()
		e.ctrl.Paused = false
		e.sink.Unlock()
	}

	e.playing = true
	e.events.emit(EventPlay)
	return nil
}

func (e *beepEngine) Pause() error {
	if e.destroyed || !e.playing {
		return nil
	}
	e.sink.Lock()
	e.ctrl.Paused = true
	e.sink.Unlock()

	e.playing = false
	e.events.emit(EventPause)
	return nil
}

// onFinished runs on the loop when a playback reaches the end of the buffer.
func (e *beepEngine) onFinished(id uint64) {
	if e.destroyed || id != e.playbackID {
		return
	}
	e.ctrl, e.stream = nil, nil
	if e.playing {
		e.playing = false
		e.events.emit(EventPause)
	}
}

func (e *beepEngine) IsPlaying() bool {
	return e.playing
}

func (e *beepEngine) Duration() time.Duration {
	if e.decoded == nil {
		return 0
	}
	return e.decoded.format.SampleRate.D(e.decoded.buffer.Len())
}

func (e *beepEngine) CurrentTime() time.Duration {
	if e.decoded == nil || e.stream == nil {
		return 0
	}
	e.sink.Lock()
	pos := e.stream.Position()
	e.sink.Unlock()
	return e.decoded.format.SampleRate.D(pos)
}

func (e *beepEngine) DecodedSamples() []float64 {
	if e.decoded == nil {
		return nil
	}
	return e.decoded.channel
}

func (e *beepEngine) SampleRate() int {
	if e.decoded == nil {
		return 0
	}
	return int(e.decoded.format.SampleRate)
}

func (e *beepEngine) Err() error {
	return e.err
}

func (e *beepEngine) Destroy() {
	if e.destroyed {
		return
	}
	e.destroyed = true
	e.cancel()

	if e.ctrl != nil {
		e.sink.Lock()
		e.ctrl.Paused = true
		e.ctrl.Streamer = nil
		e.sink.Unlock()
	}
	e.ctrl, e.stream = nil, nil
	e.playing = false
	e.decoded = nil
	e.events.clear()
	e.target.Clear()
}
