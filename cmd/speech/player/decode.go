package player

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

const decodeChunk = 4096

// decoded is the fully decoded form of a source.
type decoded struct {
	buffer  *beep.Buffer
	format  beep.Format
	channel []float64 // channel 0, used for analysis
}

func isWav(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// decode turns encoded WAV or MP3 bytes into a playable buffer plus channel 0 samples.
// It checks ctx between chunks so a destroyed engine stops decoding early.
func decode(ctx context.Context, data []byte) (d *decoded, err error) {
	defer func() {
		if r := recover(); r != nil {
			d, err = nil, fmt.Errorf("%w: decoder panic: %v", ErrUnsupportedFormat, r)
		}
	}()

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	if isWav(data) {
		streamer, format, err = wav.Decode(bytes.NewReader(data))
	} else {
		streamer, format, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}
	defer streamer.Close()

	d = &decoded{
		buffer:  beep.NewBuffer(format),
		format:  format,
		channel: make([]float64, 0, max(0, streamer.Len())),
	}
	chunk := make([][2]float64, decodeChunk)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, ok := streamer.Stream(chunk)
		if n > 0 {
			d.buffer.Append(&chunkStreamer{samples: chunk[:n]})
			for _, s := range chunk[:n] {
				d.channel = append(d.channel, s[0])
			}
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if d.buffer.Len() == 0 || format.SampleRate <= 0 {
		return nil, ErrEmptyAudio
	}
	return d, nil
}

// chunkStreamer streams a slice once.
type chunkStreamer struct {
	samples [][2]float64
}

func (c *chunkStreamer) Stream(out [][2]float64) (int, bool) {
	if len(c.samples) == 0 {
		return 0, false
	}
	n := copy(out, c.samples)
	c.samples = c.samples[n:]
	return n, true
}

func (c *chunkStreamer) Err() error { return nil }
