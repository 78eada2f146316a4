// Package cursor implements the dot cursor: a soft disc that trails the
// pointer and shrinks while pressed. It is meant to be composited with the
// difference blend so it stays visible over light and dark layers.
package cursor

import (
	"github.com/chewxy/math32"

	"github.com/Ceep-LLC/mivra.graphics/config"
	"github.com/Ceep-LLC/mivra.graphics/field"
	"github.com/Ceep-LLC/mivra.graphics/input"
	"github.com/Ceep-LLC/mivra.graphics/pipeline"
)

const Name = "cursor"

// Effect is the dot cursor.
type Effect struct {
	cfg   config.CursorConfig
	pos   input.PositionSample
	scale float64
}

func New(cfg config.CursorConfig) *Effect {
	return &Effect{cfg: cfg, pos: input.Center, scale: 1}
}

func (e *Effect) Name() string { return Name }

func (e *Effect) Resize(w, h int) error { return nil }

// Position returns the eased dot centre in normalized coordinates.
func (e *Effect) Position() input.PositionSample { return e.pos }

// Scale returns the current press scale.
func (e *Effect) Scale() float64 { return e.scale }

// Step eases the dot toward the pointer target and animates the press.
// Keyboard holds do not press the dot.
func (e *Effect) Step(f *pipeline.Frame) {
	if f.Input == nil {
		return
	}
	target := f.Input.Target()
	k := f.Factor(e.cfg.Follow)
	e.pos.X += (target.X - e.pos.X) * k
	e.pos.Y += (target.Y - e.pos.Y) * k

	held, _, keyboard := f.Input.Hold()
	if held && !keyboard {
		e.scale = pipeline.Approach(e.scale, e.cfg.PressScale, f.DT, e.cfg.PressSeconds)
	} else {
		e.scale = pipeline.Approach(e.scale, 1, f.DT, e.cfg.ReleaseSeconds)
	}
}

// Compose draws the dot with a one-pixel soft edge. Coarse pointers get
// nothing.
func (e *Effect) Compose(f *pipeline.Frame, out *field.Field) {
	out.Clear()
	if e.cfg.Coarse || e.cfg.Alpha <= 0 {
		return
	}
	px := float32(f.PixelScale)
	if px <= 0 {
		px = 1
	}
	w, h := out.W, out.H
	r := float32(e.cfg.Size/2*e.scale) * px
	cx, cy := float32(e.pos.X)*float32(w), float32(e.pos.Y)*float32(h)
	alpha := float32(e.cfg.Alpha)

	x0, x1 := max(0, int(cx-r-1)), min(w, int(cx+r)+2)
	y0, y1 := max(0, int(cy-r-1)), min(h, int(cy+r)+2)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			dx, dy := float32(x)+0.5-cx, float32(y)+0.5-cy
			cov := pipeline.Clamp01(r + 0.5 - math32.Hypot(dx, dy))
			if cov == 0 {
				continue
			}
			a := alpha * cov
			out.Set(x, y, [4]float32{a, a, a, a})
		}
	}
}

func (e *Effect) Dispose() {}
