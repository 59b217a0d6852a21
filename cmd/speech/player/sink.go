package player

import (
	"sync"

	"github.com/gopxl/beep/v2"
)

// OutputRate is the rate the shared speaker runs at; sources are resampled to it.
const OutputRate = beep.SampleRate(44100)

// Sink is the audio output an engine streams into.
// Lock and Unlock guard streamer state read by the audio goroutine.
type Sink interface {
	Play(s beep.Streamer, sr beep.SampleRate) error
	Lock()
	Unlock()
}

func resampled(s beep.Streamer, sr beep.SampleRate) beep.Streamer {
	if sr == OutputRate {
		return s
	}
	return beep.Resample(4, sr, OutputRate, s)
}

// silentSink accepts streams without playing them.
// Playback state still changes, so the UI behaves the same without sound.
type silentSink struct {
	mu sync.Mutex
}

// SilentSink returns a sink that discards audio. Commands that never play use it
// to avoid opening the audio device.
func SilentSink() Sink {
	return &silentSink{}
}

func (s *silentSink) Play(beep.Streamer, beep.SampleRate) error { return nil }
func (s *silentSink) Lock()                                     { s.mu.Lock() }
func (s *silentSink) Unlock()                                   { s.mu.Unlock() }
