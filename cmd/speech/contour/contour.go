// Package contour derives a pitch/intensity contour from decoded PCM samples.
//
// Extraction is a pure function: the same samples and sample rate always
// produce the same contour, and nothing keeps a reference to the input after
// Extract returns.
package contour

import (
	"math"
	"slices"

	"github.com/samber/lo"
)

// Point is one frame of the contour.
type Point struct {
	Offset    float64 // seconds from the start of the audio
	Amplitude float64 // RMS of the frame, 0..1 for normalized input
	Frequency float64 // estimated pitch in Hz, 0 when the frame is unvoiced
}

// Voiced reports whether a pitch was detected for the frame.
func (p Point) Voiced() bool {
	return p.Frequency > 0
}

// Contour is an immutable sequence of points. The zero value is an empty contour.
type Contour struct {
	points []Point
}

// Len returns the number of points.
func (c Contour) Len() int {
	return len(c.points)
}

// At returns the i'th point.
func (c Contour) At(i int) Point {
	return c.points[i]
}

// Points returns a copy of all points.
func (c Contour) Points() []Point {
	return slices.Clone(c.points)
}

// Voiced returns a copy of the points that carry a pitch estimate.
func (c Contour) Voiced() []Point {
	return lo.Filter(c.points, func(p Point, _ int) bool { return p.Voiced() })
}

// PitchRange returns the lowest and highest detected frequency.
// ok is false when no frame was voiced.
func (c Contour) PitchRange() (low, high float64, ok bool) {
	for _, p := range c.points {
		if !p.Voiced() {
			continue
		}
		if !ok {
			low, high, ok = p.Frequency, p.Frequency, true
			continue
		}
		low = math.Min(low, p.Frequency)
		high = math.Max(high, p.Frequency)
	}
	return low, high, ok
}

// Equal reports whether both contours hold identical points.
func (c Contour) Equal(o Contour) bool {
	return slices.Equal(c.points, o.points)
}

// Options tune the extractor. Zero fields take the DefaultOptions value.
type Options struct {
	MinFrequency float64 // lowest pitch considered, Hz
	MaxFrequency float64 // highest pitch considered, Hz
	Hop          float64 // seconds between frames
	Threshold    float64 // YIN aperiodicity threshold
	SilenceRMS   float64 // frames quieter than this are unvoiced
	TargetRate   int     // samples are box-decimated towards this rate before analysis
}

// DefaultOptions covers the range of adult and child speech.
func DefaultOptions() Options {
	return Options{
		MinFrequency: 75,
		MaxFrequency: 500,
		Hop:          0.01,
		Threshold:    0.15,
		SilenceRMS:   0.01,
		TargetRate:   11025,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinFrequency <= 0 {
		o.MinFrequency = d.MinFrequency
	}
	if o.MaxFrequency <= o.MinFrequency {
		o.MaxFrequency = max(d.MaxFrequency, o.MinFrequency*2)
	}
	if o.Hop <= 0 {
		o.Hop = d.Hop
	}
	if o.Threshold <= 0 {
		o.Threshold = d.Threshold
	}
	if o.SilenceRMS <= 0 {
		o.SilenceRMS = d.SilenceRMS
	}
	if o.TargetRate <= 0 {
		o.TargetRate = d.TargetRate
	}
	return o
}

// Extract computes the contour of one channel of PCM samples.
func Extract(samples []float64, sampleRate int, opts Options) Contour {
	if sampleRate <= 0 || len(samples) == 0 {
		return Contour{}
	}
	opts = opts.withDefaults()

	x, rate := decimate(samples, sampleRate, opts.TargetRate)

	maxTau := int(math.Ceil(rate / opts.MinFrequency))
	minTau := max(2, int(math.Floor(rate/opts.MaxFrequency)))
	window := 2 * maxTau
	hop := max(1, int(math.Round(opts.Hop*rate)))
	if len(x) < window || minTau >= maxTau {
		return Contour{}
	}

	diff := make([]float64, maxTau+1)
	points := make([]Point, 0, (len(x)-window)/hop+1)
	for start := 0; start+window <= len(x); start += hop {
		frame := x[start : start+window]
		p := Point{
			Offset:    float64(start) / rate,
			Amplitude: rms(frame),
		}
		if p.Amplitude >= opts.SilenceRMS {
			if tau := yin(frame, diff, minTau, maxTau, opts.Threshold); tau > 0 {
				f := rate / tau
				if f >= opts.MinFrequency && f <= opts.MaxFrequency {
					p.Frequency = f
				}
			}
		}
		points = append(points, p)
	}

	return Contour{points: points}
}

// decimate averages blocks of samples so analysis runs near targetRate.
func decimate(samples []float64, sampleRate, targetRate int) ([]float64, float64) {
	factor := sampleRate / targetRate
	if factor <= 1 {
		return samples, float64(sampleRate)
	}
	out := make([]float64, len(samples)/factor)
	for i := range out {
		var sum float64
		for _, s := range samples[i*factor : (i+1)*factor] {
			sum += s
		}
		out[i] = sum / float64(factor)
	}
	return out, float64(sampleRate) / float64(factor)
}

func rms(frame []float64) float64 {
	var sum float64
	for _, s := range frame {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// yin returns the fractional period of frame in samples, or 0 if none is found.
// diff is scratch space of length maxTau+1.
func yin(frame, diff []float64, minTau, maxTau int, threshold float64) float64 {
	half := len(frame) / 2

	// Cumulative mean normalized difference function.
	diff[0] = 1
	var running float64
	for tau := 1; tau <= maxTau; tau++ {
		var d float64
		for j := range half {
			delta := frame[j] - frame[j+tau]
			d += delta * delta
		}
		running += d
		if running == 0 {
			diff[tau] = 1
		} else {
			diff[tau] = d * float64(tau) / running
		}
	}

	tau := -1
	for t := minTau; t <= maxTau; t++ {
		if diff[t] < threshold {
			for t+1 <= maxTau && diff[t+1] < diff[t] {
				t++
			}
			tau = t
			break
		}
	}
	if tau < 0 {
		return 0
	}

	if tau <= 1 || tau >= maxTau {
		return float64(tau)
	}
	prev, cur, next := diff[tau-1], diff[tau], diff[tau+1]
	denom := 2 * (2*cur - next - prev)
	if denom == 0 {
		return float64(tau)
	}
	return float64(tau) + (next-prev)/denom
}
