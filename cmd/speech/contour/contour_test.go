package contour

import (
	"math"
	"testing"
)

func sine(freq float64, rate int, seconds float64, amp float64) []float64 {
	n := int(float64(rate) * seconds)
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return out
}

func TestExtract_SineTone(t *testing.T) {
	tests := []struct {
		freq float64
		rate int
	}{
		{220, 44100},
		{150, 22050},
		{300, 16000},
	}

	for _, tt := range tests {
		c := Extract(sine(tt.freq, tt.rate, 1, 0.5), tt.rate, DefaultOptions())
		if c.Len() == 0 {
			t.Fatalf("%v Hz @ %d: empty contour", tt.freq, tt.rate)
		}
		voiced := c.Voiced()
		if len(voiced) < c.Len()*9/10 {
			t.Errorf("%v Hz @ %d: %d of %d frames voiced", tt.freq, tt.rate, len(voiced), c.Len())
		}
		for _, p := range voiced {
			if math.Abs(p.Frequency-tt.freq) > tt.freq*0.03 {
				t.Errorf("%v Hz @ %d: frame at %.3fs estimated %.1f Hz", tt.freq, tt.rate, p.Offset, p.Frequency)
				break
			}
		}
	}
}

func TestExtract_Silence(t *testing.T) {
	c := Extract(make([]float64, 44100), 44100, DefaultOptions())
	if c.Len() == 0 {
		t.Fatal("silence should still produce frames")
	}
	if _, _, ok := c.PitchRange(); ok {
		t.Error("silence should have no voiced frames")
	}
	for _, p := range c.Points() {
		if p.Amplitude != 0 {
			t.Fatalf("silent frame has amplitude %v", p.Amplitude)
		}
	}
}

func TestExtract_Deterministic(t *testing.T) {
	samples := sine(180, 44100, 0.5, 0.3)
	a := Extract(samples, 44100, DefaultOptions())
	b := Extract(samples, 44100, DefaultOptions())
	if !a.Equal(b) {
		t.Error("same input produced different contours")
	}
}

func TestExtract_LengthProportionalToSamples(t *testing.T) {
	short := Extract(sine(200, 44100, 1, 0.5), 44100, DefaultOptions())
	long := Extract(sine(200, 44100, 2, 0.5), 44100, DefaultOptions())
	// 10ms hop: one extra second adds ~100 frames.
	if d := long.Len() - short.Len(); d < 95 || d > 105 {
		t.Errorf("len difference = %d, want ~100 (short=%d long=%d)", d, short.Len(), long.Len())
	}
}

func TestExtract_DegenerateInput(t *testing.T) {
	if c := Extract(nil, 44100, Options{}); c.Len() != 0 {
		t.Errorf("nil samples: Len() = %d, want 0", c.Len())
	}
	if c := Extract(sine(200, 44100, 1, 0.5), 0, Options{}); c.Len() != 0 {
		t.Errorf("zero rate: Len() = %d, want 0", c.Len())
	}
	if c := Extract(make([]float64, 10), 44100, Options{}); c.Len() != 0 {
		t.Errorf("shorter than a window: Len() = %d, want 0", c.Len())
	}
}

func TestContour_PointsIsACopy(t *testing.T) {
	c := Extract(sine(200, 44100, 0.2, 0.5), 44100, DefaultOptions())
	pts := c.Points()
	pts[0].Frequency = -1
	if c.At(0).Frequency == -1 {
		t.Error("mutating Points() result changed the contour")
	}
}
