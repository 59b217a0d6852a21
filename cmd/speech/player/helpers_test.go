package player

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gigurra/speechplay/cmd/speech/waveform"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
)

// fakeEngine is driven by the test instead of a decoder.
type fakeEngine struct {
	factory   *fakeFactory
	source    string
	events    emitter
	decoded   bool
	playing   bool
	destroyed bool
	duration  time.Duration
	samples   []float64
	rate      int
	err       error
	plays     int
	destroys  int
}

func (f *fakeEngine) On(ev Event, fn func()) func() { return f.events.on(ev, fn) }

func (f *fakeEngine) Play() error {
	if !f.decoded {
		return ErrNotReady
	}
	f.plays++
	f.playing = true
	f.events.emit(EventPlay)
	return nil
}

func (f *fakeEngine) Pause() error {
	if !f.playing {
		return nil
	}
	f.playing = false
	f.events.emit(EventPause)
	return nil
}

func (f *fakeEngine) IsPlaying() bool            { return f.playing }
func (f *fakeEngine) Duration() time.Duration    { return f.duration }
func (f *fakeEngine) CurrentTime() time.Duration { return 0 }
func (f *fakeEngine) DecodedSamples() []float64  { return f.samples }
func (f *fakeEngine) SampleRate() int            { return f.rate }
func (f *fakeEngine) Err() error                 { return f.err }

func (f *fakeEngine) Destroy() {
	f.destroys++
	if f.destroyed {
		return
	}
	f.destroyed = true
	f.factory.alive--
	f.playing = false
}

// completeDecode simulates a finished decode of a 1 second 200 Hz tone.
// It emits even after Destroy to model a late completion.
func (f *fakeEngine) completeDecode() {
	f.rate = 8000
	f.samples = tone(200, f.rate, 1)
	f.duration = time.Second
	f.decoded = true
	f.events.emit(EventDecode)
}

func (f *fakeEngine) failDecode(err error) {
	f.err = err
	f.events.emit(EventError)
}

type fakeFactory struct {
	engines  []*fakeEngine
	alive    int
	maxAlive int
}

func (f *fakeFactory) New(_ context.Context, source string, target waveform.Surface, _ Options) (Engine, error) {
	if source == "" {
		return nil, ErrNoSource
	}
	if target == nil || !target.Live() {
		return nil, ErrNoTarget
	}
	e := &fakeEngine{factory: f, source: source}
	f.engines = append(f.engines, e)
	f.alive++
	f.maxAlive = max(f.maxAlive, f.alive)
	return e, nil
}

func (f *fakeFactory) last() *fakeEngine {
	return f.engines[len(f.engines)-1]
}

// fakeSink records streams instead of playing them.
type fakeSink struct {
	mu      sync.Mutex
	streams []beep.Streamer
	rates   []beep.SampleRate
}

func (s *fakeSink) Play(st beep.Streamer, sr beep.SampleRate) error {
	s.streams = append(s.streams, st)
	s.rates = append(s.rates, sr)
	return nil
}

func (s *fakeSink) Lock()   { s.mu.Lock() }
func (s *fakeSink) Unlock() { s.mu.Unlock() }

// drain pulls the latest stream to its end, as the speaker would.
func (s *fakeSink) drain(t *testing.T) {
	t.Helper()
	st := s.streams[len(s.streams)-1]
	buf := make([][2]float64, 512)
	for range 100000 {
		s.Lock()
		_, ok := st.Stream(buf)
		s.Unlock()
		if !ok {
			return
		}
	}
	t.Fatal("stream never ended")
}

func tone(freq float64, rate int, seconds float64) []float64 {
	out := make([]float64, int(float64(rate)*seconds))
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return out
}

// writeToneWav encodes a stereo sine tone as 16-bit WAV and returns its path.
func writeToneWav(t *testing.T, freq float64, rate beep.SampleRate, d time.Duration) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	i := 0
	sine := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for k := range samples {
			v := 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
			samples[k] = [2]float64{v, v}
			i++
		}
		return len(samples), true
	})
	format := beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}
	if err := wav.Encode(f, beep.Take(rate.N(d), sine), format); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	return path
}

func newFakePlayer(t *testing.T) (*Player, *fakeFactory, *waveform.Canvas) {
	t.Helper()
	factory := &fakeFactory{}
	canvas := waveform.NewCanvas(40, 6)
	p := New(context.Background(), canvas, Options{
		Dispatch:  func(fn func()) { fn() },
		Sink:      &fakeSink{},
		NewEngine: factory.New,
	})
	return p, factory, canvas
}
