package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/audiolibrelab/jamscope/internal/scope"
)

const pointGlyph = '•'

var _ scope.Surface = (*Canvas)(nil)

type rgb struct{ r, g, b uint8 }

func (c rgb) color() lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.r, c.g, c.b))
}

type cell struct {
	bg, fg rgb
	glyph  rune
}

// Canvas is a grid of terminal cells. Each cell has a background color and
// optionally a glyph; drawn lines paint backgrounds, drawn points place
// glyphs. Alpha is ignored.
type Canvas struct {
	width, height int
	current       rgb
	cells         []cell
	frame         string
}

func NewCanvas(width, height int) *Canvas {
	c := &Canvas{width: width, height: height, cells: make([]cell, width*height)}
	c.Clear()
	c.Present()
	return c
}

func (c *Canvas) Width() int  { return c.width }
func (c *Canvas) Height() int { return c.height }

func (c *Canvas) SetDrawColor(r, g, b, _ uint8) {
	c.current = rgb{r, g, b}
}

func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = cell{bg: c.current, glyph: ' '}
	}
}

// DrawLine paints the cells of a Bresenham line
func (c *Canvas) DrawLine(x1, y1, x2, y2 int) {
	dx, dy := abs(x2-x1), -abs(y2-y1)
	sx, sy := sign(x2-x1), sign(y2-y1)
	e := dx + dy
	for {
		if i, ok := c.index(x1, y1); ok {
			c.cells[i] = cell{bg: c.current, glyph: ' '}
		}
		if x1 == x2 && y1 == y2 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x1 += sx
		}
		if e2 <= dx {
			e += dx
			y1 += sy
		}
	}
}

func (c *Canvas) DrawPoint(x, y int) {
	if i, ok := c.index(x, y); ok {
		c.cells[i].fg = c.current
		c.cells[i].glyph = pointGlyph
	}
}

// Present renders the cells into the frame returned by String
func (c *Canvas) Present() {
	var b strings.Builder
	for y := 0; y < c.height; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		row := c.cells[y*c.width : (y+1)*c.width]

		// Consecutive cells with the same colors share one style
		for start := 0; start < len(row); {
			end := start + 1
			for end < len(row) && row[end].bg == row[start].bg && row[end].fg == row[start].fg {
				end++
			}
			var run strings.Builder
			for _, cl := range row[start:end] {
				run.WriteRune(cl.glyph)
			}
			style := lipgloss.NewStyle().Background(row[start].bg.color()).Foreground(row[start].fg.color())
			b.WriteString(style.Render(run.String()))
			start = end
		}
	}
	c.frame = b.String()
}

// String returns the last presented frame
func (c *Canvas) String() string {
	return c.frame
}

func (c *Canvas) index(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return 0, false
	}
	return y*c.width + x, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
