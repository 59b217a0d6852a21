// Package waveform paints decoded audio and its pitch contour onto a render surface.
package waveform

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Layer selects which plane of a Surface a cell is written to.
type Layer int

const (
	LayerWave Layer = iota
	LayerContour
	numLayers
)

// Surface is the render target a player paints into.
// It is owned by the host UI; the renderer only writes cells and clears it.
type Surface interface {
	Size() (width, height int)
	Live() bool
	Set(layer Layer, x, y int, r rune)
	Clear()
}

var (
	defaultWaveStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	defaultProgressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	defaultContourStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true)
)

// Canvas is a character grid Surface rendered with lipgloss.
// Contour cells are drawn on top of wave cells.
type Canvas struct {
	width, height int
	cells         [numLayers][][]rune
	painted       bool
	detached      bool

	WaveStyle     lipgloss.Style
	ProgressStyle lipgloss.Style
	ContourStyle  lipgloss.Style
}

// NewCanvas creates a blank canvas of the given size in cells.
func NewCanvas(width, height int) *Canvas {
	c := &Canvas{
		width:         max(0, width),
		height:        max(0, height),
		WaveStyle:     defaultWaveStyle,
		ProgressStyle: defaultProgressStyle,
		ContourStyle:  defaultContourStyle,
	}
	for l := range c.cells {
		c.cells[l] = make([][]rune, c.height)
		for y := range c.cells[l] {
			c.cells[l][y] = make([]rune, c.width)
		}
	}
	c.Clear()
	return c
}

// Size returns the canvas dimensions in cells.
func (c *Canvas) Size() (int, int) {
	return c.width, c.height
}

// Live reports whether the canvas can still be painted.
func (c *Canvas) Live() bool {
	return !c.detached && c.width > 0 && c.height > 0
}

// Set writes a rune into a layer. Out-of-bounds writes are ignored.
func (c *Canvas) Set(layer Layer, x, y int, r rune) {
	if layer < 0 || layer >= numLayers || x < 0 || y < 0 || x >= c.width || y >= c.height {
		return
	}
	c.cells[layer][y][x] = r
	c.painted = true
}

// Cell returns the rune stored at x, y in a layer, or a space when out of bounds.
func (c *Canvas) Cell(layer Layer, x, y int) rune {
	if layer < 0 || layer >= numLayers || x < 0 || y < 0 || x >= c.width || y >= c.height {
		return ' '
	}
	return c.cells[layer][y][x]
}

// Clear blanks every layer.
func (c *Canvas) Clear() {
	for l := range c.cells {
		for y := range c.cells[l] {
			for x := range c.cells[l][y] {
				c.cells[l][y][x] = ' '
			}
		}
	}
	c.painted = false
}

// Detach clears the canvas and marks it as no longer attached to the UI.
func (c *Canvas) Detach() {
	c.Clear()
	c.detached = true
}

// Painted reports whether anything has been drawn since the last Clear.
func (c *Canvas) Painted() bool {
	return c.painted
}

// Plain returns the composed canvas without styling.
func (c *Canvas) Plain() string {
	lines := make([]string, c.height)
	for y := range c.height {
		var sb strings.Builder
		for x := range c.width {
			sb.WriteRune(c.compose(x, y))
		}
		lines[y] = sb.String()
	}
	return strings.Join(lines, "\n")
}

// View returns the styled canvas. Columns left of progress (0..1) use ProgressStyle.
func (c *Canvas) View(progress float64) string {
	cursor := int(progress * float64(c.width))
	lines := make([]string, c.height)
	for y := range c.height {
		var sb strings.Builder
		for x := range c.width {
			if r := c.cells[LayerContour][y][x]; r != ' ' {
				sb.WriteString(c.ContourStyle.Render(string(r)))
				continue
			}
			style := c.WaveStyle
			if x < cursor {
				style = c.ProgressStyle
			}
			sb.WriteString(style.Render(string(c.cells[LayerWave][y][x])))
		}
		lines[y] = sb.String()
	}
	return strings.Join(lines, "\n")
}

func (c *Canvas) compose(x, y int) rune {
	if r := c.cells[LayerContour][y][x]; r != ' ' {
		return r
	}
	return c.cells[LayerWave][y][x]
}
