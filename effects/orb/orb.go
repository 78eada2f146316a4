// Package orb renders a single luminous sphere on black. The sphere never
// moves, so the marched image is cached per size and only a faint colour
// twinkle changes from frame to frame.
package orb

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Ceep-LLC/mivra.graphics/config"
	"github.com/Ceep-LLC/mivra.graphics/field"
	"github.com/Ceep-LLC/mivra.graphics/noise"
	"github.com/Ceep-LLC/mivra.graphics/pipeline"
	"github.com/Ceep-LLC/mivra.graphics/sdf"
)

const Name = "orb"

var (
	eye   = sdf.V3(0, 0, 3)
	light = sdf.V3(0.35, 0.7, 0.4).Normalize()
)

// Effect is the luminous orb.
type Effect struct {
	cfg   config.OrbConfig
	march sdf.Params
	noise *noise.Value

	core, glow, bloom pipeline.RGB

	// base holds the marched colour; its alpha marks surface hits.
	base    *field.Field
	dirty   bool
	renders int
	t       float32
}

// New parses the colours.
func New(cfg config.OrbConfig, seed uint32) (*Effect, error) {
	e := &Effect{cfg: cfg, march: sdf.ParamsFromConfig(cfg.March), noise: noise.NewValue(seed)}
	var err error
	if e.core, err = pipeline.ParseHex(cfg.Core); err != nil {
		return nil, fmt.Errorf("orb core: %w", err)
	}
	if e.glow, err = pipeline.ParseHex(cfg.Glow); err != nil {
		return nil, fmt.Errorf("orb glow: %w", err)
	}
	e.bloom = e.core.Mix(e.glow, 0.35)
	return e, nil
}

func (e *Effect) Name() string { return Name }

func (e *Effect) Resize(w, h int) error {
	e.base = field.New(w, h)
	e.dirty = true
	return nil
}

// Renders returns how many times the sphere has been marched in full.
func (e *Effect) Renders() int { return e.renders }

func (e *Effect) Step(f *pipeline.Frame) { e.t = float32(f.Time) }

func (e *Effect) scene(p sdf.Vec3) float32 {
	return sdf.Sphere(p, sdf.Vec3{}, float32(e.cfg.Radius))
}

// view maps a pixel to [-aspect,aspect]×[-1,1] with y up.
func view(x, y, w, h int) (float32, float32) {
	u, v := pipeline.Centered(x, y, w, h)
	return 2 * u, 2 * v
}

// shade marches one pixel of the static scene.
func (e *Effect) shade(u, v float32) ([3]float32, bool) {
	rd := sdf.V3(u, v, -1.5).Normalize()
	res := sdf.March(eye, rd, e.scene, e.march)
	var col pipeline.RGB
	hit := res.Reason == sdf.Hit
	if hit {
		n := sdf.Normal(e.scene, res.Pos, 0.0025)
		diff := max(n.Dot(light), 0)
		fres := math32.Pow(1-max(n.Dot(rd.Scale(-1)), 0), 2.2)
		col = e.core.Scale(0.25 + 0.75*diff).
			Add(e.glow.Scale((0.4 + 0.6*fres) * 0.6)).
			Add(e.glow.Scale(0.08))
	}
	col = col.Add(e.bloom.Scale(res.Glow * float32(e.cfg.GlowStrength)))
	return col, hit
}

func (e *Effect) render(workers *pipeline.Workers) {
	w, h := e.base.W, e.base.H
	workers.Rows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				col, hit := e.shade(view(x, y, w, h))
				a := float32(0)
				if hit {
					a = 1
				}
				e.base.Set(x, y, [4]float32{col[0], col[1], col[2], a})
			}
		}
	})
	e.dirty = false
	e.renders++
}

// Compose adds the twinkle to the cached sphere. The output is opaque.
func (e *Effect) Compose(f *pipeline.Frame, out *field.Field) {
	if e.base == nil {
		return
	}
	if e.dirty {
		e.render(f.Workers)
	}
	amp := float32(e.cfg.NoiseAmp)
	w, h := out.W, out.H
	f.Workers.Rows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				u, v := pipeline.UV(x, y, w, h)
				c := e.base.Sample(u, v)
				if c[3] > 0 {
					vx, vy := view(x, y, w, h)
					tw := (e.noise.At(vx*3+e.t*0.5, vy*3+e.t*0.5) - 0.5) * amp * c[3]
					c[0] += tw
					c[1] += tw
					c[2] += tw
				}
				out.Set(x, y, [4]float32{pipeline.Clamp01(c[0]), pipeline.Clamp01(c[1]), pipeline.Clamp01(c[2]), 1})
			}
		}
	})
}

func (e *Effect) Dispose() { e.base = nil }
