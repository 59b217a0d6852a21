// Package visibility decides when a player is on screen enough to justify
// loading and decoding its audio.
package visibility

// FullyVisible is the default threshold: the whole target must be inside the viewport.
const FullyVisible = 1.0

// Rect is an axis-aligned rectangle in terminal cells.
type Rect struct {
	X, Y int
	W, H int
}

// Empty reports whether the rectangle covers no cells.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Area returns the number of cells covered by the rectangle.
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.W * r.H
}

// Intersect returns the overlap of r and o, or the zero Rect if they do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	x0 := max(r.X, o.X)
	y0 := max(r.Y, o.Y)
	x1 := min(r.X+r.W, o.X+o.W)
	y1 := min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Ratio returns the fraction of target's area that lies inside viewport.
func Ratio(target, viewport Rect) float64 {
	area := target.Area()
	if area == 0 {
		return 0
	}
	return float64(target.Intersect(viewport).Area()) / float64(area)
}

// Gate tracks the visibility of a single target.
// It holds no resources; a missing or detached target simply reads as not visible.
type Gate struct {
	Threshold float64
	visible   bool
}

// NewGate creates a Gate with the given threshold in (0, 1].
// Out-of-range thresholds fall back to FullyVisible.
func NewGate(threshold float64) *Gate {
	if threshold <= 0 || threshold > 1 {
		threshold = FullyVisible
	}
	return &Gate{Threshold: threshold}
}

// Observe records a new target/viewport layout and reports the resulting
// visibility and whether it changed since the previous observation.
func (g *Gate) Observe(target, viewport Rect) (visible, changed bool) {
	visible = !target.Empty() && Ratio(target, viewport) >= g.Threshold
	changed = visible != g.visible
	g.visible = visible
	return visible, changed
}

// Detach marks the target as gone.
func (g *Gate) Detach() {
	g.visible = false
}

// Visible returns the last observed visibility.
func (g *Gate) Visible() bool {
	return g.visible
}
