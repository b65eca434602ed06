// Package scope renders the live view of the capture stream: an idle
// gradient when nothing is being captured into a session, the waveform of
// the latest delivery otherwise.
package scope

import (
	"encoding/binary"

	"github.com/audiolibrelab/jamscope/internal/audio"
	"github.com/audiolibrelab/jamscope/internal/relay"
)

const DefaultGain = 7

// Surface is a draw target with a current color
type Surface interface {
	SetDrawColor(r, g, b, a uint8)
	Clear()
	DrawLine(x1, y1, x2, y2 int)
	DrawPoint(x, y int)
	Present()
}

// View is what one frame shows
type View struct {
	// Active is true while a recording session is open
	Active bool
	// Capturing is true while the device is delivering
	Capturing bool
	Snapshot  *relay.Snapshot
}

type Renderer struct {
	Width  int
	Height int
	Gain   float64
}

func New(width, height int, gain float64) *Renderer {
	if gain <= 0 {
		gain = DefaultGain
	}
	return &Renderer{Width: width, Height: height, Gain: gain}
}

// Draw renders one frame. A paused session looks the same as no session.
func (r *Renderer) Draw(s Surface, v View) {
	if v.Active {
		s.SetDrawColor(255, 0, 0, 255)
	} else {
		s.SetDrawColor(0, 100, 255, 255)
	}
	s.Clear()

	if v.Active && v.Capturing {
		s.SetDrawColor(255, 255, 255, 255)
		for x, y := range r.Waveform(v.Snapshot) {
			s.DrawPoint(x, y)
		}
	} else {
		r.drawGradient(s)
	}

	s.Present()
}

// drawGradient fills the surface from blue at the top to red at the bottom
func (r *Renderer) drawGradient(s Surface) {
	for y := 0; y < r.Height; y++ {
		t := float64(y) / float64(r.Height)
		s.SetDrawColor(uint8(255*t), 0, uint8(255*(1-t)), 255)
		s.DrawLine(0, y, r.Width-1, y)
	}
}

// Waveform returns the row of the point drawn in each column. Columns
// sample the first channel of the snapshot at an even frame stride; an
// empty or non S16LE snapshot gives a flat line at the midpoint.
func (r *Renderer) Waveform(snap *relay.Snapshot) []int {
	ys := make([]int, r.Width)
	mid := r.Height / 2

	frames := snap.Frames()
	if frames == 0 || snap.Format.Encoding != audio.EncodingS16LE {
		for x := range ys {
			ys[x] = mid
		}
		return ys
	}

	stride := frames / r.Width
	if stride < 1 {
		stride = 1
	}
	blockAlign := snap.Format.BlockAlign()

	for x := range ys {
		y := mid
		if frame := x * stride; frame < frames {
			off := frame * blockAlign
			sample := int16(binary.LittleEndian.Uint16(snap.Samples[off : off+2]))
			norm := float64(sample) / 32768 * r.Gain
			y += int(norm * float64(r.Height) / 2)
		}
		ys[x] = clamp(y, 0, r.Height-1)
	}
	return ys
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
