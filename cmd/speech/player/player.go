package player

import (
	"context"
	"log/slog"

	"github.com/gigurra/speechplay/cmd/speech/waveform"
)

// Player is a slot that shows one source at a time. It creates a session the
// first time it is visible with a source and a live render target, and
// replaces the session when the source changes.
type Player struct {
	ctx     context.Context
	target  waveform.Surface
	opts    Options
	source  string
	visible bool
	closed  bool
	session *Session
	created int
	err     error
}

// New creates an empty, invisible player painting into target.
func New(ctx context.Context, target waveform.Surface, opts Options) *Player {
	return &Player{
		ctx:    ctx,
		target: target,
		opts:   opts.withDefaults(),
	}
}

// SetSource assigns a new source. Any session for a previous source is
// destroyed before a new one can be created.
func (p *Player) SetSource(source string) {
	if p.closed || source == p.source {
		return
	}
	p.destroySession()
	p.source = source
	p.err = nil
	p.maybeStart()
}

// SetVisible feeds the visibility signal.
// Only the first visible report for a source starts a session.
func (p *Player) SetVisible(visible bool) {
	if p.closed {
		return
	}
	p.visible = visible
	p.maybeStart()
}

// Toggle flips between playing and paused. It is a no-op returning ErrNotReady
// until the current session has decoded.
func (p *Player) Toggle() error {
	if p.session == nil {
		return ErrNotReady
	}
	return p.session.Toggle()
}

// Pause stops playback if the session is playing.
func (p *Player) Pause() {
	if p.session != nil && p.session.State() == StatePlaying {
		_ = p.session.Toggle()
	}
}

// Session returns the live session, or nil.
func (p *Player) Session() *Session {
	return p.session
}

// Source returns the current source.
func (p *Player) Source() string {
	return p.source
}

// Created returns how many sessions this player has started.
func (p *Player) Created() int {
	return p.created
}

// Err returns the last creation or load error.
func (p *Player) Err() error {
	if p.err != nil {
		return p.err
	}
	if p.session != nil {
		return p.session.Err()
	}
	return nil
}

// Close destroys the session. The player ignores further input.
func (p *Player) Close() {
	if p.closed {
		return
	}
	p.destroySession()
	p.closed = true
}

func (p *Player) maybeStart() {
	if p.session != nil || p.err != nil || !p.visible || p.source == "" {
		return
	}
	if p.target == nil || !p.target.Live() {
		return
	}

	s, err := startSession(p.ctx, p.source, p.target, p.opts)
	if err != nil {
		slog.Warn("failed to create player session", "source", p.source, "error", err)
		p.err = err
		return
	}
	p.session = s
	p.created++
}

func (p *Player) destroySession() {
	if p.session == nil {
		return
	}
	p.session.Destroy()
	p.session = nil
}
