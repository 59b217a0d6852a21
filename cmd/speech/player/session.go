package player

import (
	"context"
	"log/slog"
	"time"

	"github.com/gigurra/speechplay/cmd/speech/contour"
	"github.com/gigurra/speechplay/cmd/speech/waveform"
	"github.com/google/uuid"
)

// Session pairs one source with one engine, its subscriptions and its render target.
// A session is never reused for another source.
type Session struct {
	ID     uuid.UUID
	Source string

	machine  *Machine
	engine   Engine
	subs     Subscriptions
	target   waveform.Surface
	renderer *waveform.Renderer
	opts     Options
	log      *slog.Logger

	contour    contour.Contour
	duration   time.Duration
	sampleRate int
	paints     int
	err        error
}

// startSession creates the engine and binds its events. Creation failures leave
// nothing behind: no session, no engine, no bound listeners.
func startSession(ctx context.Context, source string, target waveform.Surface, opts Options) (*Session, error) {
	s := &Session{
		ID:       uuid.New(),
		Source:   source,
		target:   target,
		renderer: opts.Renderer,
		opts:     opts,
	}
	s.log = slog.With("session", s.ID.String())
	s.machine = NewMachine(func(from, to State) {
		s.log.Debug("state changed", "from", from, "to", to)
		if s.opts.OnChange != nil {
			s.opts.OnChange(s)
		}
	})

	engine, err := opts.NewEngine(ctx, source, target, opts)
	if err != nil {
		return nil, err
	}
	s.engine = engine

	s.subs.Bind(engine.On(EventPlay, s.onPlay))
	s.subs.Bind(engine.On(EventPause, s.onPause))
	s.subs.Bind(engine.On(EventDecode, s.onDecode))
	s.subs.Bind(engine.On(EventError, s.onError))

	if err := s.machine.Transition(StateLoading); err != nil {
		s.Destroy()
		return nil, err
	}
	s.log.Info("session started", "source", source)
	return s, nil
}

func (s *Session) onPlay() {
	switch s.machine.State() {
	case StateReady, StatePaused:
		_ = s.machine.Transition(StatePlaying)
	}
}

func (s *Session) onPause() {
	if s.machine.State() == StatePlaying {
		_ = s.machine.Transition(StatePaused)
	}
}

func (s *Session) onDecode() {
	if s.machine.State() != StateLoading {
		return
	}

	duration := s.engine.Duration()
	if duration <= 0 {
		s.fail(ErrEmptyAudio)
		return
	}
	s.duration = duration
	s.sampleRate = s.engine.SampleRate()

	samples := s.engine.DecodedSamples()
	s.contour = contour.Extract(samples, s.sampleRate, s.opts.ContourOptions)
	if err := s.renderer.Paint(s.target, samples, s.sampleRate, s.contour); err != nil {
		s.log.Warn("failed to paint waveform", "error", err)
	} else {
		s.paints++
	}

	_ = s.machine.Transition(StateReady)
}

func (s *Session) onError() {
	if s.machine.State() != StateLoading {
		return
	}
	s.fail(s.engine.Err())
}

func (s *Session) fail(err error) {
	s.err = err
	s.log.Warn("failed to load audio", "source", s.Source, "error", err)
	_ = s.machine.Transition(StateFailed)
}

// Toggle pauses a playing session and plays an idle or paused one.
// It returns ErrNotReady, without side effects, before decode has completed.
func (s *Session) Toggle() error {
	switch s.machine.State() {
	case StateReady, StatePlaying, StatePaused:
	default:
		return ErrNotReady
	}
	if s.engine.IsPlaying() {
		return s.engine.Pause()
	}
	return s.engine.Play()
}

// Destroy unbinds every listener, releases the engine and clears the render target.
// Calling it again has no effect.
func (s *Session) Destroy() {
	if s.machine.State() == StateDestroyed {
		return
	}
	s.subs.Release()
	s.engine.Destroy()
	s.target.Clear()
	_ = s.machine.Transition(StateDestroyed)
	s.log.Debug("session destroyed", "bound", s.subs.Bound(), "unbound", s.subs.Unbound())
}

// State returns the current playback state.
func (s *Session) State() State {
	return s.machine.State()
}

// Initialized reports whether the session has reached ready at least once.
func (s *Session) Initialized() bool {
	return s.machine.Initialized()
}

// Duration is 0 until decode has completed.
func (s *Session) Duration() time.Duration {
	return s.duration
}

// SampleRate is 0 until decode has completed.
func (s *Session) SampleRate() int {
	return s.sampleRate
}

// CurrentTime returns the playback position.
func (s *Session) CurrentTime() time.Duration {
	if s.machine.State() == StateDestroyed {
		return 0
	}
	return s.engine.CurrentTime()
}

// Progress returns the playback position as a fraction of the duration.
func (s *Session) Progress() float64 {
	if s.duration <= 0 {
		return 0
	}
	return min(1, float64(s.CurrentTime())/float64(s.duration))
}

// Contour returns the pitch contour computed at decode.
func (s *Session) Contour() contour.Contour {
	return s.contour
}

// Err returns the load failure for a failed session.
func (s *Session) Err() error {
	return s.err
}

// Subscriptions exposes the session's listener bookkeeping.
func (s *Session) Subscriptions() *Subscriptions {
	return &s.subs
}

// Paints returns how many times the waveform has been painted.
func (s *Session) Paints() int {
	return s.paints
}
