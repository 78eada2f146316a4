// Package metaglow renders the raymarched metaball background: three
// drifting spheres joined by a smooth minimum, shaded in inky blues and
// crimsons, with glow accumulated along every ray.
package metaglow

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Ceep-LLC/mivra.graphics/config"
	"github.com/Ceep-LLC/mivra.graphics/field"
	"github.com/Ceep-LLC/mivra.graphics/noise"
	"github.com/Ceep-LLC/mivra.graphics/pipeline"
	"github.com/Ceep-LLC/mivra.graphics/sdf"
)

const Name = "metaglow"

const (
	camDist    = 3.25
	focal      = 1.6
	normalEps  = 0.0024
	detailEps  = 0.03
	detailMix  = 0.65
	autoSway   = 0.25 // amplitude of the idle sway on x
	autoPeriod = 0.25 // radians per second of the idle sway
	follow     = 0.9  // share of the pointer the camera follows
)

var (
	light    = sdf.V3(0.25, 0.85, 0.55).Normalize()
	specTint = pipeline.RGB{0.92, 0.98, 1}
)

// Effect is the metaball background. It keeps no fields; each frame is a
// pure function of time and the camera sway.
type Effect struct {
	cfg   config.MetaGlowConfig
	march sdf.Params
	noise *noise.Value

	baseTone         pipeline.RGB
	cyan, blue       pipeline.RGB
	magenta, crimson pipeline.RGB
	glowTone         pipeline.RGB

	t            float32
	swayX, swayY float32
}

// New parses the palette and prepares the march budget.
func New(cfg config.MetaGlowConfig, seed uint32) (*Effect, error) {
	e := &Effect{cfg: cfg, march: sdf.ParamsFromConfig(cfg.March), noise: noise.NewValue(seed)}
	var baseA, baseB pipeline.RGB
	for _, c := range []struct {
		hex string
		dst *pipeline.RGB
	}{
		{cfg.BaseA, &baseA}, {cfg.BaseB, &baseB},
		{cfg.InkCyan, &e.cyan}, {cfg.InkBlue, &e.blue},
		{cfg.InkMagenta, &e.magenta}, {cfg.InkCrimson, &e.crimson},
	} {
		var err error
		if *c.dst, err = pipeline.ParseHex(c.hex); err != nil {
			return nil, fmt.Errorf("metaglow palette: %w", err)
		}
	}
	e.baseTone = baseA.Mix(baseB, float32(cfg.MixCool))
	e.glowTone = e.baseTone.Mix(e.cyan, 0.25)
	return e, nil
}

func (e *Effect) Name() string { return Name }

func (e *Effect) Resize(w, h int) error { return nil }

// Sway returns the current camera sway before the Sway gain is applied.
func (e *Effect) Sway() (float32, float32) { return e.swayX, e.swayY }

// Step advances scene time and eases the camera toward the pointer plus a
// slow idle drift.
func (e *Effect) Step(f *pipeline.Frame) {
	e.t = float32(f.Time * e.cfg.TimeScale)

	var tx, ty float64
	if f.Input != nil && f.Input.Touched() {
		tx, ty = f.Input.Target().Centered()
	}
	auto := float32(autoSway * math32.Sin(float32(f.Time*autoPeriod)))
	k := float32(f.Factor(e.cfg.Smoothing))
	e.swayX += (float32(tx)*follow + auto - e.swayX) * k
	e.swayY += (float32(ty)*follow - e.swayY) * k
}

// fbm sums four octaves of value noise starting at amplitude 0.55.
func (e *Effect) fbm(p sdf.Vec3) float32 {
	a, s := float32(0.55), float32(0)
	for i := 0; i < 4; i++ {
		s += a * e.noise.At3(p.X, p.Y, p.Z)
		p = p.Scale(2.02)
		a *= 0.5
	}
	return s
}

// dist is the warped metaball field at time t.
func (e *Effect) dist(p sdf.Vec3, t float32) float32 {
	q := sdf.Vec3{
		X: p.X + 0.34*math32.Sin(t*0.60+p.Y*0.70),
		Y: p.Y + 0.30*math32.Sin(t*0.50+p.Z*0.85),
		Z: p.Z + 0.28*math32.Sin(t*0.45+p.X*0.95),
	}
	c1 := sdf.V3(0.92*math32.Sin(t*0.70), 0.62*math32.Cos(t*0.50), 0)
	c2 := sdf.V3(-0.82*math32.Cos(t*0.40), 0.74*math32.Sin(t*0.65), 0.22)
	c3 := sdf.V3(0, -0.94*math32.Sin(t*0.55), -0.68*math32.Cos(t*0.33))

	k := float32(e.cfg.SmoothK)
	d := sdf.SmoothMin(sdf.SmoothMin(sdf.Sphere(q, c1, 0.92), sdf.Sphere(q, c2, 0.86), k), sdf.Sphere(q, c3, 0.78), k)
	if e.cfg.Swell != 0 {
		d += (e.fbm(q.Scale(1.6).Add(sdf.V3(t*0.6, t*0.6, t*0.6))) - 0.5) * float32(e.cfg.Swell)
	}
	return d
}

// Scene returns the distance field frozen at scene time t.
func (e *Effect) Scene(t float32) sdf.Scene {
	return func(p sdf.Vec3) float32 { return e.dist(p, t) }
}

// camera holds the per-frame view basis.
type camera struct {
	ro, fw, rt, up sdf.Vec3
}

func (e *Effect) camera() camera {
	g := float32(e.cfg.Sway)
	mx, my := e.swayX*g, e.swayY*g
	fw := sdf.V3(0, 0, -1).RotateY(-my).RotateX(-mx).Normalize()
	rt := fw.Cross(sdf.V3(0, 1, 0)).Normalize()
	up := rt.Cross(fw).Normalize()
	return camera{ro: sdf.V3(0, 0, camDist), fw: fw, rt: rt, up: up}
}

// ray returns the view ray through centred coordinate (u, v).
func (c camera) ray(u, v float32) sdf.Vec3 {
	return c.rt.Scale(u).Add(c.up.Scale(v)).Add(c.fw.Scale(focal)).Normalize()
}

// detailNormal is the normalized gradient of the vein noise.
func (e *Effect) detailNormal(p sdf.Vec3, t float32) sdf.Vec3 {
	vs := float32(e.cfg.VeinScale)
	drift := sdf.V3(t*0.45, t*0.45, t*0.45)
	at := func(q sdf.Vec3) float32 { return e.fbm(q.Scale(vs).Add(drift)) }
	n0 := at(p)
	return sdf.V3(
		at(p.Add(sdf.V3(detailEps, 0, 0)))-n0,
		at(p.Add(sdf.V3(0, detailEps, 0)))-n0,
		at(p.Add(sdf.V3(0, 0, detailEps)))-n0,
	).Normalize()
}

// shade lights a surface hit at p.
func (e *Effect) shade(scene sdf.Scene, p, ro sdf.Vec3, d, t float32) pipeline.RGB {
	n := sdf.Normal(scene, p, normalEps)
	dn := e.detailNormal(p, t)
	n = n.Mix(n.Add(dn.Scale(float32(e.cfg.DetailAmp))).Normalize(), detailMix).Normalize()

	v := ro.Sub(p).Normalize()
	hh := light.Add(v).Normalize()
	diff := sdf.Clamp(n.Dot(light), 0, 1)
	fres := math32.Pow(1-max(n.Dot(v), 0), float32(e.cfg.FresPow))

	lanes := e.fbm(sdf.V3(p.X*0.6, p.Y*2.2+t*0.35, p.Z*0.6))
	laneMask := pipeline.Smoothstep(0.28, 0.88, lanes)
	core := 1 - pipeline.Smoothstep(1.6, float32(e.cfg.CoreScale), p.Length())
	side := pipeline.Smoothstep(-0.6, 0.6, math32.Sin(math32.Atan2(p.Y, p.X)+lanes*2.2))

	blueInk := e.cyan.Mix(e.blue, pipeline.Clamp01(0.2+0.6*core+0.2*laneMask))
	redInk := e.magenta.Mix(e.crimson, pipeline.Clamp01(0.25+0.65*core+0.35*laneMask))
	ink := blueInk.Mix(redInk, side)

	base := e.baseTone.Mix(ink, pipeline.Clamp01(0.15+0.85*core))
	col := base.Scale(0.18 + 0.82*diff).Add(ink.Scale(fres * 0.95))

	vs := float32(e.cfg.VeinScale)
	veins := pipeline.Smoothstep(0.30, 0.70, e.fbm(p.Scale(vs).Add(sdf.V3(t*0.5, t*0.5, t*0.5))))
	col = col.Mix(ink, veins*float32(e.cfg.VeinAmp)*0.20)

	spec := math32.Pow(max(n.Dot(hh), 0), float32(e.cfg.SpecPow)) * float32(e.cfg.SpecGain)
	col = col.Add(specTint.Scale(spec))

	s1 := scene(p.Sub(n.Scale(0.055)))
	s2 := scene(p.Sub(n.Scale(0.12)))
	thickness := pipeline.Smoothstep(-0.28, 0, -min(s1, s2))
	col = col.Add(ink.Scale(thickness * 0.24))
	col = col.Add(e.baseTone.Scale(pipeline.Smoothstep(0.08, 0, math32.Abs(d)) * 0.10))

	return col.Scale(math32.Pow(sdf.AO(scene, p, n), float32(e.cfg.AOBoost)))
}

// pixel marches one view ray and returns its colour.
func (e *Effect) pixel(scene sdf.Scene, cam camera, u, v float32) pipeline.RGB {
	res := sdf.March(cam.ro, cam.ray(u, v), scene, e.march)
	var col pipeline.RGB
	if res.Reason == sdf.Hit {
		col = e.shade(scene, res.Pos, cam.ro, res.D, e.t)
	} else {
		col = e.baseTone.Scale(pipeline.Smoothstep(0.10, 0, math32.Abs(res.D)) * 0.05)
	}
	vign := pipeline.Smoothstep(1.18, 0.28, math32.Hypot(u, v))
	return col.Scale(vign).Add(e.glowTone.Scale(res.Glow * float32(e.cfg.Glow)))
}

// Compose marches every pixel. The output is opaque.
func (e *Effect) Compose(f *pipeline.Frame, out *field.Field) {
	scene := e.Scene(e.t)
	cam := e.camera()
	w, h := out.W, out.H
	f.Workers.Rows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				u, v := pipeline.Centered(x, y, w, h)
				c := e.pixel(scene, cam, u, v)
				out.Set(x, y, [4]float32{pipeline.Clamp01(c[0]), pipeline.Clamp01(c[1]), pipeline.Clamp01(c[2]), 1})
			}
		}
	})
}

func (e *Effect) Dispose() {}
