package waveform

import (
	"errors"
	"math"

	"github.com/gigurra/speechplay/cmd/speech/contour"
	"github.com/samber/lo"
)

var ErrSurfaceNotLive = errors.New("render surface is not live")

// Renderer paints a waveform and a pitch contour overlay.
type Renderer struct {
	Normalize    bool // scale peaks so the loudest column fills the height
	WaveRune     rune
	BaselineRune rune
	ContourRune  rune
}

// NewRenderer returns a renderer with normalization on.
func NewRenderer() *Renderer {
	return &Renderer{
		Normalize:    true,
		WaveRune:     '█',
		BaselineRune: '─',
		ContourRune:  '•',
	}
}

// Peaks returns the maximum absolute sample value for each of columns equal buckets.
func Peaks(samples []float64, columns int) []float64 {
	if columns <= 0 || len(samples) == 0 {
		return nil
	}
	peaks := make([]float64, columns)
	for i := range columns {
		start := i * len(samples) / columns
		end := (i + 1) * len(samples) / columns
		if end <= start {
			end = min(start+1, len(samples))
		}
		for _, s := range samples[start:end] {
			peaks[i] = math.Max(peaks[i], math.Abs(s))
		}
	}
	return peaks
}

// Paint draws the waveform of samples onto s, then overlays c.
// It is meant to run once per decode.
func (r *Renderer) Paint(s Surface, samples []float64, sampleRate int, c contour.Contour) error {
	if s == nil || !s.Live() {
		return ErrSurfaceNotLive
	}
	width, height := s.Size()
	s.Clear()

	peaks := Peaks(samples, width)
	if r.Normalize {
		if top := lo.Max(peaks); top > 0 {
			peaks = lo.Map(peaks, func(p float64, _ int) float64 { return p / top })
		}
	}

	center := float64(height) / 2
	for x, p := range peaks {
		extent := math.Min(p, 1) * center
		drawn := false
		for y := range height {
			if extent > 0 && math.Abs(float64(y)+0.5-center) <= extent {
				s.Set(LayerWave, x, y, r.WaveRune)
				drawn = true
			}
		}
		if !drawn {
			s.Set(LayerWave, x, int(center), r.BaselineRune)
		}
	}

	if sampleRate > 0 && len(samples) > 0 {
		r.paintContour(s, c, float64(len(samples))/float64(sampleRate), width, height)
	}
	return nil
}

func (r *Renderer) paintContour(s Surface, c contour.Contour, duration float64, width, height int) {
	low, high, ok := c.PitchRange()
	if !ok {
		return
	}
	for _, p := range c.Voiced() {
		x := int(p.Offset / duration * float64(width))
		x = max(0, min(x, width-1))
		y := height / 2
		if high > low {
			y = height - 1 - int(math.Round((p.Frequency-low)/(high-low)*float64(height-1)))
		}
		s.Set(LayerContour, x, y, r.ContourRune)
	}
}
