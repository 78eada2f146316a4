// Package smoke implements the glowing smoke trail background: a field
// advected along a rotating noise flow, fed continuously at the smoothed
// pointer with a strength that pulses on movement.
package smoke

import (
	"fmt"
	"log/slog"

	"github.com/chewxy/math32"

	"github.com/Ceep-LLC/mivra.graphics/config"
	"github.com/Ceep-LLC/mivra.graphics/field"
	"github.com/Ceep-LLC/mivra.graphics/noise"
	"github.com/Ceep-LLC/mivra.graphics/pipeline"
)

const Name = "smoke"

// Effect is the smoke background.
type Effect struct {
	cfg  config.SmokeConfig
	pair *field.Pair
	flow noise.Source
	log  *slog.Logger

	top, bottom  pipeline.RGB
	inner, outer pipeline.RGB
}

// New creates the effect with the configured flow noise source.
func New(cfg config.SmokeConfig, seed int64, log *slog.Logger) (*Effect, error) {
	if log == nil {
		log = slog.Default()
	}
	src, err := noise.New(cfg.Noise, seed)
	if err != nil {
		return nil, fmt.Errorf("smoke flow: %w", err)
	}
	e := &Effect{cfg: cfg, pair: field.NewPair(), flow: src, log: log}
	for _, c := range []struct {
		hex string
		dst *pipeline.RGB
	}{
		{cfg.Top, &e.top}, {cfg.Bottom, &e.bottom}, {cfg.Inner, &e.inner}, {cfg.Outer, &e.outer},
	} {
		if *c.dst, err = pipeline.ParseHex(c.hex); err != nil {
			return nil, fmt.Errorf("smoke palette: %w", err)
		}
	}
	return e, nil
}

func (e *Effect) Name() string { return Name }

func (e *Effect) Resize(w, h int) error { return e.pair.Resize(w, h) }

// Field returns the readable trail field.
func (e *Effect) Field() *field.Field { return e.pair.Read() }

// flowAt returns the advection offset in uv units at (u, v).
func (e *Effect) flowAt(u, v, t float32) (float32, float32) {
	fs := float64(e.cfg.FlowScale)
	n := noise.FBM(e.flow, float64(u)*fs+float64(t)*0.10, float64(v)*fs-float64(t)*0.07, 0, 4, 2.03, 0.5)
	a := float32(0.5+0.5*n) * 2 * math32.Pi
	s, c := math32.Sincos(a)
	k := float32(e.cfg.Flow) * 0.0025
	// Rows grow downward, so the flow's y flips
	return c * k, -s * k
}

// Step advects, limits, decays and injects at the smoothed pointer.
func (e *Effect) Step(f *pipeline.Frame) {
	read := e.pair.Read()
	if read == nil {
		return
	}
	prev := read.Energy()
	retain := float32(f.Retain(e.cfg.Decay))
	t := float32(f.Time * e.cfg.Speed)

	cur := f.Input.Current()
	mx, my := float32(cur.X), float32(cur.Y)
	pulse := float32(f.Input.Pulse())
	strength := float32(e.cfg.InkStrength) * pulse
	size := float32(e.cfg.InkSize)
	inv := 1 / (size*size + 1e-6)

	err := e.pair.Step(func(read, write *field.Field) {
		w, h := read.W, read.H
		f.Workers.Rows(h, func(y0, y1 int) {
			for y := y0; y < y1; y++ {
				for x := 0; x < w; x++ {
					u, v := pipeline.UV(x, y, w, h)
					fx, fy := e.flowAt(u, v, t)
					write.Set(x, y, read.Sample(u-fx, v-fy))
				}
			}
		})
		if adv := write.Energy(); adv > prev && adv > 0 {
			write.Scale(float32(prev / adv))
		}
		write.Scale(retain)
		if strength <= 0 {
			return
		}
		f.Workers.Rows(h, func(y0, y1 int) {
			for y := y0; y < y1; y++ {
				for x := 0; x < w; x++ {
					u, v := pipeline.UV(x, y, w, h)
					du, dv := u-mx, v-my
					g := math32.Exp(-(du*du + dv*dv) * inv)
					if g < 1e-6 {
						continue
					}
					ring := pipeline.Smoothstep(0, 1, g)
					col := e.outer.Mix(e.inner, ring*0.85+0.10)
					add := strength * g
					i := write.Index(x, y)
					write.Pix[i] += col[0] * add
					write.Pix[i+1] += col[1] * add
					write.Pix[i+2] += col[2] * add
					write.Pix[i+3] += add
				}
			}
		})
	})
	if err != nil {
		e.log.Warn("smoke step skipped", "error", err)
	}
}

// Compose lays the trail's bloom over a dark vertical gradient.
func (e *Effect) Compose(f *pipeline.Frame, out *field.Field) {
	src := e.pair.Read()
	if src == nil {
		return
	}
	w, h := out.W, out.H
	rx := float32(e.cfg.Soft) * 24 / float32(w)
	ry := float32(e.cfg.Soft) * 24 / float32(h)
	glowK := float32(e.cfg.Glow)
	f.Workers.Rows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				u, v := pipeline.UV(x, y, w, h)
				base := e.bottom.Mix(e.top, pipeline.Smoothstep(0, 1, 1-v)).Scale(0.15)
				bloom := pipeline.Bloom8(src, u, v, rx, ry)
				centre := src.Sample(u, v)
				vig := pipeline.Vignette(float32(x)+0.5, float32(y)+0.5, w, h, 1.10, 0.40)
				var px [4]float32
				for c := 0; c < 3; c++ {
					g := pipeline.Mix(bloom[c], centre[c], 0.35)
					px[c] = pipeline.Clamp01((base[c] + g*glowK) * vig)
				}
				px[3] = 1
				out.Set(x, y, px)
			}
		}
	})
}

func (e *Effect) Dispose() { e.pair.Dispose() }
