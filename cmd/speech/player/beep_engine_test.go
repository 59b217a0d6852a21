package player

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gigurra/speechplay/cmd/speech/waveform"
)

func newTestEngine(t *testing.T, source string) (*beepEngine, *Loop, *fakeSink, *waveform.Canvas) {
	t.Helper()
	loop := NewLoop()
	sink := &fakeSink{}
	canvas := waveform.NewCanvas(40, 6)
	e, err := NewEngine(context.Background(), source, canvas, Options{Dispatch: loop.Dispatch, Sink: sink})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	t.Cleanup(e.Destroy)
	return e.(*beepEngine), loop, sink, canvas
}

func TestNewEngine_Validation(t *testing.T) {
	loop := NewLoop()
	live := waveform.NewCanvas(10, 2)
	detached := waveform.NewCanvas(10, 2)
	detached.Detach()

	tests := []struct {
		name   string
		source string
		target waveform.Surface
		opts   Options
		want   error
	}{
		{"empty source", "", live, Options{Dispatch: loop.Dispatch}, ErrNoSource},
		{"nil target", "a.wav", nil, Options{Dispatch: loop.Dispatch}, ErrNoTarget},
		{"detached target", "a.wav", detached, Options{Dispatch: loop.Dispatch}, ErrNoTarget},
		{"no dispatcher", "a.wav", live, Options{}, ErrNoDispatcher},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEngine(context.Background(), tt.source, tt.target, tt.opts)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if e != nil {
				t.Error("engine returned alongside an error")
			}
		})
	}
}

func TestBeepEngine_Decode(t *testing.T) {
	path := writeToneWav(t, 220, 22050, 500*time.Millisecond)
	e, loop, _, _ := newTestEngine(t, path)

	decodes, errs := 0, 0
	e.On(EventDecode, func() { decodes++ })
	e.On(EventError, func() { errs++ })

	if err := e.Play(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Play() before decode = %v, want ErrNotReady", err)
	}

	e.wait()
	loop.RunPending()

	if decodes != 1 || errs != 0 {
		t.Fatalf("decode events = %d, error events = %d", decodes, errs)
	}
	if e.Duration() != 500*time.Millisecond {
		t.Errorf("Duration() = %v, want 500ms", e.Duration())
	}
	if e.SampleRate() != 22050 {
		t.Errorf("SampleRate() = %d, want 22050", e.SampleRate())
	}
	if n := len(e.DecodedSamples()); n != 11025 {
		t.Errorf("decoded samples = %d, want 11025", n)
	}
}

func TestBeepEngine_PlayPauseAndEnd(t *testing.T) {
	path := writeToneWav(t, 220, 22050, 200*time.Millisecond)
	e, loop, sink, _ := newTestEngine(t, path)
	e.wait()
	loop.RunPending()

	var events []Event
	e.On(EventPlay, func() { events = append(events, EventPlay) })
	e.On(EventPause, func() { events = append(events, EventPause) })

	if err := e.Play(); err != nil {
		t.Fatal(err)
	}
	if !e.IsPlaying() || len(sink.streams) != 1 {
		t.Fatalf("playing = %v, streams = %d", e.IsPlaying(), len(sink.streams))
	}
	if sink.rates[0] != 22050 {
		t.Errorf("sink rate = %d, want 22050", sink.rates[0])
	}
	if err := e.Play(); err != nil || len(events) != 1 {
		t.Errorf("second Play() = %v, events = %v", err, events)
	}

	if err := e.Pause(); err != nil {
		t.Fatal(err)
	}
	if e.IsPlaying() || !e.ctrl.Paused {
		t.Error("Pause() did not pause the stream")
	}
	if err := e.Play(); err != nil {
		t.Fatal(err)
	}
	if len(sink.streams) != 1 {
		t.Error("resume started a new stream")
	}

	sink.drain(t)
	loop.RunPending()

	if e.IsPlaying() {
		t.Error("still playing after end of stream")
	}
	want := []Event{EventPlay, EventPause, EventPlay, EventPause}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, events[i], want[i])
		}
	}

	// Replay starts from the beginning with a fresh stream.
	if err := e.Play(); err != nil {
		t.Fatal(err)
	}
	if len(sink.streams) != 2 || e.CurrentTime() != 0 {
		t.Errorf("streams = %d, current = %v", len(sink.streams), e.CurrentTime())
	}
}

func TestBeepEngine_DestroyDuringDecode(t *testing.T) {
	path := writeToneWav(t, 220, 22050, time.Second)
	e, loop, _, canvas := newTestEngine(t, path)

	decodes := 0
	e.On(EventDecode, func() { decodes++ })
	e.Destroy()
	e.Destroy()

	e.wait()
	loop.RunPending()

	if decodes != 0 {
		t.Errorf("decode delivered after destroy")
	}
	if canvas.Painted() {
		t.Error("canvas painted after destroy")
	}
	if err := e.Play(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Play() after destroy = %v, want ErrDestroyed", err)
	}
	if err := e.Pause(); err != nil {
		t.Errorf("Pause() after destroy = %v", err)
	}
	if e.events.count() != 0 {
		t.Errorf("listeners left = %d", e.events.count())
	}
}

func TestBeepEngine_DestroyWhilePlaying(t *testing.T) {
	path := writeToneWav(t, 220, 22050, 200*time.Millisecond)
	e, loop, sink, _ := newTestEngine(t, path)
	e.wait()
	loop.RunPending()

	pauses := 0
	e.On(EventPause, func() { pauses++ })
	if err := e.Play(); err != nil {
		t.Fatal(err)
	}
	ctrl := e.ctrl
	e.Destroy()

	if ctrl.Streamer != nil {
		t.Error("destroyed engine left its stream attached")
	}
	sink.drain(t)
	loop.RunPending()
	if pauses != 0 {
		t.Error("end of stream reached listeners after destroy")
	}
}

func TestBeepEngine_DecodeErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.mp3")
	if err := os.WriteFile(garbage, []byte("definitely not audio"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		source string
		want   error
	}{
		{"garbage", garbage, ErrUnsupportedFormat},
		{"missing", filepath.Join(dir, "missing.wav"), os.ErrNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, loop, _, _ := newTestEngine(t, tt.source)
			decodes, errs := 0, 0
			e.On(EventDecode, func() { decodes++ })
			e.On(EventError, func() { errs++ })

			e.wait()
			loop.RunPending()

			if decodes != 0 || errs != 1 {
				t.Fatalf("decode events = %d, error events = %d", decodes, errs)
			}
			if !errors.Is(e.Err(), tt.want) {
				t.Errorf("Err() = %v, want %v", e.Err(), tt.want)
			}
			if err := e.Play(); !errors.Is(err, ErrNotReady) {
				t.Errorf("Play() after failed decode = %v", err)
			}
		})
	}
}

func TestPlayer_WithBeepEngine(t *testing.T) {
	path := writeToneWav(t, 180, 16000, 800*time.Millisecond)
	loop := NewLoop()
	canvas := waveform.NewCanvas(60, 8)
	p := New(context.Background(), canvas, Options{Dispatch: loop.Dispatch, Sink: &fakeSink{}})
	t.Cleanup(p.Close)

	p.SetSource(path)
	p.SetVisible(true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := loop.RunUntil(ctx, func() bool { return p.Session().State() != StateLoading }); err != nil {
		t.Fatalf("waiting for decode: %v", err)
	}

	s := p.Session()
	if s.State() != StateReady {
		t.Fatalf("state = %s, err = %v", s.State(), s.Err())
	}
	if !canvas.Painted() {
		t.Error("canvas not painted")
	}
	low, high, ok := s.Contour().PitchRange()
	if !ok || low < 170 || high > 190 {
		t.Errorf("pitch range = %.1f..%.1f (ok=%v), want around 180 Hz", low, high, ok)
	}

	if err := p.Toggle(); err != nil {
		t.Fatal(err)
	}
	if s.State() != StatePlaying {
		t.Errorf("state = %s, want playing", s.State())
	}
}
