//go:build (linux && cgo) || windows || darwin

package player

import (
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// AudioAvailable indicates whether audio output is supported in this build.
const AudioAvailable = true

// speakerSink plays through the process-wide beep speaker.
type speakerSink struct {
	once    sync.Once
	initErr error
}

var sharedSpeaker = &speakerSink{}

// DefaultSink returns the speaker-backed sink, initialized on first Play.
func DefaultSink() Sink {
	return sharedSpeaker
}

func (s *speakerSink) Play(st beep.Streamer, sr beep.SampleRate) error {
	s.once.Do(func() {
		s.initErr = speaker.Init(OutputRate, OutputRate.N(time.Second/10))
	})
	if s.initErr != nil {
		return s.initErr
	}
	speaker.Play(resampled(st, sr))
	return nil
}

func (s *speakerSink) Lock()   { speaker.Lock() }
func (s *speakerSink) Unlock() { speaker.Unlock() }
