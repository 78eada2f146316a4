// Package ink implements the pointer-driven dye overlay: strokes inject
// velocity-shaped Gaussian splats into a ping-pong field that drifts along a
// value-noise flow, blurs and decays every frame.
package ink

import (
	"fmt"
	"log/slog"

	"github.com/chewxy/math32"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/Ceep-LLC/mivra.graphics/config"
	"github.com/Ceep-LLC/mivra.graphics/field"
	"github.com/Ceep-LLC/mivra.graphics/input"
	"github.com/Ceep-LLC/mivra.graphics/noise"
	"github.com/Ceep-LLC/mivra.graphics/pipeline"
)

// Name is the registry name.
const Name = "ink"

// cutoff truncates splat kernels at this many radii.
const cutoff = 3

// Effect is the ink overlay.
type Effect struct {
	cfg    config.InkConfig
	shaper input.Shaper
	pair   *field.Pair
	flow   *noise.Value
	log    *slog.Logger

	splats   []input.Splat
	injected uint64
}

// New creates the effect. Palette colours must parse.
func New(cfg config.InkConfig, seed uint32, log *slog.Logger) (*Effect, error) {
	if log == nil {
		log = slog.Default()
	}
	a, err := colorful.Hex(cfg.ColorA)
	if err != nil {
		return nil, fmt.Errorf("ink color_a: %w", err)
	}
	b, err := colorful.Hex(cfg.ColorB)
	if err != nil {
		return nil, fmt.Errorf("ink color_b: %w", err)
	}
	return &Effect{
		cfg: cfg,
		shaper: input.Shaper{
			Radius:       cfg.SplatRadius,
			RadiusGain:   cfg.RadiusGain,
			Strength:     cfg.Strength,
			StrengthGain: cfg.StrengthGain,
			SpeedRef:     cfg.SpeedRef,
			Chroma:       cfg.Chroma,
			ColorA:       a,
			ColorB:       b,
		},
		pair: field.NewPair(),
		flow: noise.NewValue(seed),
		log:  log,
	}, nil
}

func (e *Effect) Name() string { return Name }

// Resize reallocates both fields, zero-cleared.
func (e *Effect) Resize(w, h int) error {
	return e.pair.Resize(w, h)
}

// Field returns the readable field, or nil before the first resize.
func (e *Effect) Field() *field.Field { return e.pair.Read() }

// Pair exposes the ping-pong pair.
func (e *Effect) Pair() *field.Pair { return e.pair }

// Injected returns the total number of splats applied.
func (e *Effect) Injected() uint64 { return e.injected }

// Step advects, limits, decays, injects and swaps.
func (e *Effect) Step(f *pipeline.Frame) {
	read := e.pair.Read()
	if read == nil {
		return
	}
	e.splats = e.splats[:0]
	for _, st := range f.Input.DrainStrokes() {
		e.splats = append(e.splats, e.shaper.Shape(st, read.W, read.H, f.PixelScale))
	}
	prev := read.Energy()
	retain := float32(f.Retain(e.cfg.Decay))

	err := e.pair.Step(func(read, write *field.Field) {
		e.advect(read, write, f)
		// Advection must not create mass
		if adv := write.Energy(); adv > prev && adv > 0 {
			write.Scale(float32(prev / adv))
		}
		write.Scale(retain)
		for _, s := range e.splats {
			Inject(write, s)
		}
	})
	if err != nil {
		e.log.Warn("ink step skipped", "error", err)
		return
	}
	e.injected += uint64(len(e.splats))
}

// advect warps read by a two-FBM flow and blurs it into write.
func (e *Effect) advect(read, write *field.Field, f *pipeline.Frame) {
	w, h := read.W, read.H
	t := float32(f.Time)
	fs := float32(e.cfg.FlowScale)
	amp := 0.02 + 0.08*float32(e.cfg.FlowAmp)
	r := pipeline.Mix(0, 2.5, float32(e.cfg.Blur))
	ox, oy := r/float32(w), r/float32(h)

	f.Workers.Rows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				u, v := pipeline.UV(x, y, w, h)
				fx := (e.flow.FBM2(u*fs+t*0.07, v*fs, 4) - 0.5) * amp
				fy := (e.flow.FBM2(u*fs*1.12, v*fs*1.12+t*0.08, 4) - 0.5) * amp
				write.Set(x, y, pipeline.Blur7(read, u+fx, v+fy, ox, oy))
			}
		}
	})
}

// Inject adds a Gaussian exp(-d²/2r²) splat, truncated at three radii.
// RGB receives the premultiplied colour, A the density.
func Inject(dst *field.Field, s input.Splat) {
	r := max(float32(s.Radius), 1)
	sx, sy := float32(s.X), float32(s.Y)
	reach := cutoff * r
	x0 := max(0, int(math32.Floor(sx-reach)))
	x1 := min(dst.W-1, int(math32.Ceil(sx+reach)))
	y0 := max(0, int(math32.Floor(sy-reach)))
	y1 := min(dst.H-1, int(math32.Ceil(sy+reach)))
	inv := 1 / (2 * r * r)
	limit := reach * reach

	for y := y0; y <= y1; y++ {
		dy := float32(y) + 0.5 - sy
		for x := x0; x <= x1; x++ {
			dx := float32(x) + 0.5 - sx
			d2 := dx*dx + dy*dy
			if d2 > limit {
				continue
			}
			g := math32.Exp(-d2*inv) * s.Strength
			i := dst.Index(x, y)
			dst.Pix[i] += s.Color[0] * g
			dst.Pix[i+1] += s.Color[1] * g
			dst.Pix[i+2] += s.Color[2] * g
			dst.Pix[i+3] += g
		}
	}
}

// Compose tone-maps the dye into a glow layer meant for additive blending.
func (e *Effect) Compose(f *pipeline.Frame, out *field.Field) {
	src := e.pair.Read()
	if src == nil {
		return
	}
	k := float32(e.cfg.Intensity)
	bloom := float32(e.cfg.Bloom)
	w, h := out.W, out.H
	f.Workers.Rows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				c := src.Sample(pipeline.UV(x, y, w, h))
				vig := pipeline.Vignette(float32(x)+0.5, float32(y)+0.5, w, h, 1.2, 0.2)
				var px [4]float32
				for ch := 0; ch < 3; ch++ {
					g := pipeline.Reinhard(c[ch]*k) + c[ch]*bloom*k
					px[ch] = g * vig
				}
				px[3] = pipeline.Clamp01(max(px[0], px[1], px[2]))
				out.Set(x, y, px)
			}
		}
	})
}

// Dispose releases the fields.
func (e *Effect) Dispose() {
	e.pair.Dispose()
}
