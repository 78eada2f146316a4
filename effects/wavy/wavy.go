// Package wavy renders the hero headline: text rasterized once per size into
// a transparent layer, then resampled through a slowly drifting noise
// displacement that swells around the pointer.
package wavy

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/chewxy/math32"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/Ceep-LLC/mivra.graphics/assets"
	"github.com/Ceep-LLC/mivra.graphics/config"
	"github.com/Ceep-LLC/mivra.graphics/field"
	"github.com/Ceep-LLC/mivra.graphics/noise"
	"github.com/Ceep-LLC/mivra.graphics/pipeline"
)

const Name = "wavy"

// Effect is the wavy headline.
type Effect struct {
	cfg   config.WavyConfig
	log   *slog.Logger
	color color.RGBA
	noise *noise.Value

	font   *opentype.Font
	layer  *field.Field
	w, h   int
	mobile bool
	dirty  bool
	draws  int

	cx, cy float32
	t      float32
}

// New parses the text colour. The font is loaded by Init.
func New(cfg config.WavyConfig, seed uint32, log *slog.Logger) (*Effect, error) {
	if log == nil {
		log = slog.Default()
	}
	c, err := pipeline.ParseHex(cfg.Color)
	if err != nil {
		return nil, fmt.Errorf("wavy colour: %w", err)
	}
	return &Effect{
		cfg:   cfg,
		log:   log,
		color: color.RGBA{R: uint8(c[0]*255 + 0.5), G: uint8(c[1]*255 + 0.5), B: uint8(c[2]*255 + 0.5), A: 255},
		noise: noise.NewValue(seed),
		cx:    0.5,
		cy:    0.5,
	}, nil
}

func (e *Effect) Name() string { return Name }

// Init loads the configured font, falling back to the bundled face.
func (e *Effect) Init() error {
	e.font = assets.FontOrFallback(e.cfg.Font, e.log)
	return nil
}

func (e *Effect) Resize(w, h int) error {
	e.w, e.h = w, h
	e.dirty = true
	return nil
}

// Layer returns the rasterized headline, drawing it first if needed.
func (e *Effect) Layer() *field.Field {
	if e.dirty || e.layer == nil {
		e.draw()
	}
	return e.layer
}

// Draws returns how many times the headline has been rasterized.
func (e *Effect) Draws() int { return e.draws }

// Mobile reports whether the narrow layout is active.
func (e *Effect) Mobile() bool { return e.mobile }

func (e *Effect) lines() []config.HeadlineLine {
	if e.mobile && len(e.cfg.MobileLines) > 0 {
		return e.cfg.MobileLines
	}
	return e.cfg.Lines
}

// draw rasterizes the headline at the current size. Lines share a base size
// fitted to 70% of the height; the narrow layout starts lower and uses
// tighter margins.
func (e *Effect) draw() {
	e.dirty = false
	if e.w <= 0 || e.h <= 0 {
		e.layer = nil
		return
	}
	if e.font == nil {
		e.font = assets.Fallback()
	}
	W, H := float64(e.w), float64(e.h)
	margin, div := W*0.06, 2.4
	if e.mobile {
		margin, div = W*0.025, 3.2
	}
	base := H * 0.7 / div * e.cfg.BaseScale

	lines := e.lines()
	total := 0.0
	for _, l := range lines {
		total += base * l.Scale * 1.1
	}
	y := (H-total)/2 + base*0.9
	if e.mobile {
		y = H * 0.62
	}

	img := image.NewRGBA(image.Rect(0, 0, e.w, e.h))
	for _, l := range lines {
		size := base * l.Scale
		face, err := opentype.NewFace(e.font, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
		if err != nil {
			e.log.Warn("headline face failed", "size", size, "error", err)
			continue
		}
		d := &font.Drawer{Dst: img, Src: image.NewUniform(e.color), Face: face}
		adv := d.MeasureString(l.Text)
		x := fixed.I(int(margin))
		switch l.Align {
		case "right":
			x = fixed.I(int(W-margin)) - adv
		case "center":
			x = fixed.I(int(W/2)) - adv/2
		}
		d.Dot = fixed.Point26_6{X: x, Y: fixed.Int26_6(y * 64)}
		d.DrawString(l.Text)
		face.Close()
		y += size * 0.9
	}
	e.layer = assets.FieldFromImage(img)
	e.draws++
}

// Step switches layout at the breakpoint and eases the pointer.
func (e *Effect) Step(f *pipeline.Frame) {
	if lw := f.Logical.Width; lw > 0 {
		if m := lw <= e.cfg.MobileBreakpoint; m != e.mobile {
			e.mobile = m
			e.dirty = true
		}
	}
	e.t = float32(f.Time)
	tx, ty := float32(0.5), float32(0.5)
	if f.Input != nil && f.Input.Touched() {
		p := f.Input.Target()
		tx, ty = float32(p.X), float32(p.Y)
	}
	k := float32(f.Factor(e.cfg.Smoothing))
	e.cx += (tx - e.cx) * k
	e.cy += (ty - e.cy) * k
}

// fbm is four octaves of value noise with a rotating lattice.
func (e *Effect) fbm(x, y float32) float32 {
	v, a := float32(0), float32(0.5)
	for i := 0; i < 4; i++ {
		v += a * e.noise.At(x, y)
		x, y = (1.6*x-1.2*y)*1.2, (1.2*x+1.6*y)*1.2
		a *= 0.5
	}
	return v
}

// Compose resamples the headline through the displacement. The output is
// premultiplied and transparent away from the text.
func (e *Effect) Compose(f *pipeline.Frame, out *field.Field) {
	layer := e.Layer()
	if layer == nil {
		out.Clear()
		return
	}
	base, boostAmp := float32(e.cfg.BaseAmp), float32(e.cfg.BoostAmp)
	radius := float32(e.cfg.BoostRadius)
	t := e.t
	w, h := out.W, out.H
	f.Workers.Rows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				u, v := pipeline.UV(x, y, w, h)
				d := math32.Hypot(u-e.cx, v-e.cy)
				amp := base + pipeline.Smoothstep(radius, 0.05, d)*boostAmp
				if amp == 0 {
					out.Set(x, y, layer.Sample(u, v))
					continue
				}
				du := e.fbm(u*3+t*0.3, v*3+t*0.3)
				dv := e.fbm(u*3-t*0.2, v*3-t*0.2)
				out.Set(x, y, layer.Sample(u+du*amp, v+dv*amp))
			}
		}
	})
}

func (e *Effect) Dispose() { e.layer = nil }
