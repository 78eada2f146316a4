// Package glass renders the glass metaball hero: a cluster of smooth-joined
// spheres in front of a dark tilted gradient plate, lit by a blue key and a
// crimson rim, refracting the plate through its body.
package glass

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Ceep-LLC/mivra.graphics/config"
	"github.com/Ceep-LLC/mivra.graphics/field"
	"github.com/Ceep-LLC/mivra.graphics/pipeline"
	"github.com/Ceep-LLC/mivra.graphics/sdf"
)

const Name = "glass"

const (
	camZ       = 6
	plateZ     = -8
	plateSize  = 30
	fovY       = 35 * math32.Pi / 180
	blobK      = 0.45
	bloomFloor = 0.2 // bloom threshold in linear units
	bloomTaps  = 10  // bloom ring radius in render pixels
)

var focal = 0.5 / math32.Tan(fovY/2)

// blobs is the cluster layout before rotation.
var blobs = []struct {
	c sdf.Vec3
	r float32
}{
	{sdf.V3(-0.55, 0.20, 0.00), 0.75},
	{sdf.V3(0.50, -0.10, 0.15), 0.70},
	{sdf.V3(0.05, 0.55, -0.20), 0.55},
	{sdf.V3(0.10, -0.60, 0.10), 0.50},
}

// Effect is the glass hero.
type Effect struct {
	cfg   config.GlassConfig
	march sdf.Params

	plateA, plateB   pipeline.RGB
	blue, crimson    pipeline.RGB
	key, rim, tint   pipeline.RGB
	f0               float32
	hdr              *field.Field
	rotX, rotY, spin float32
	scale            float32
	keyPos, rimPos   sdf.Vec3
}

// New parses the palette.
func New(cfg config.GlassConfig) (*Effect, error) {
	e := &Effect{cfg: cfg, march: sdf.ParamsFromConfig(cfg.March), scale: 1}
	for _, c := range []struct {
		hex string
		dst *pipeline.RGB
	}{
		{cfg.PlateA, &e.plateA}, {cfg.PlateB, &e.plateB},
		{cfg.Blue, &e.blue}, {cfg.Crimson, &e.crimson},
		{cfg.Key, &e.key}, {cfg.Rim, &e.rim}, {cfg.Tint, &e.tint},
	} {
		var err error
		if *c.dst, err = pipeline.ParseHex(c.hex); err != nil {
			return nil, fmt.Errorf("glass palette: %w", err)
		}
	}
	r := (float32(cfg.IOR) - 1) / (float32(cfg.IOR) + 1)
	e.f0 = r * r
	e.placeLights(0, 0)
	return e, nil
}

func (e *Effect) Name() string { return Name }

func (e *Effect) Resize(w, h int) error {
	e.hdr = field.New(w, h)
	return nil
}

// Rotation returns the cluster's current rotation about x and y.
func (e *Effect) Rotation() (float32, float32) { return e.rotX, e.rotY + e.spin }

// placeLights moves both lights with the pointer offset from centre.
func (e *Effect) placeLights(dx, dy float32) {
	e.keyPos = sdf.V3(-2.2+dx*1.2, 1.4+dy*0.8, 2.2)
	e.rimPos = sdf.V3(2.6+dx*1.4, -1.2+dy*0.6, -2.2)
}

// Step spins the cluster, eases it toward the pointer and breathes its scale.
func (e *Effect) Step(f *pipeline.Frame) {
	var dx, dy float32
	if f.Input != nil && f.Input.Touched() {
		t := f.Input.Target()
		dx, dy = float32(t.X-0.5), float32(0.5-t.Y)
	}
	e.placeLights(dx, dy)
	e.spin += float32(e.cfg.Spin * f.DT)
	k := float32(f.Factor(e.cfg.Smoothing))
	e.rotX += (dy*0.4 - e.rotX) * k
	e.rotY += (dx*0.6 - e.rotY) * k
	e.scale = 1 + 0.025*math32.Sin(float32(f.Time)*0.8)
}

// scene is the cluster distance in world space.
func (e *Effect) scene(p sdf.Vec3) float32 {
	rx, ry := e.Rotation()
	q := p.Scale(1 / e.scale).RotateY(-ry).RotateX(-rx)
	d := float32(1e9)
	for i, b := range blobs {
		s := sdf.Sphere(q, b.c, b.r)
		if i == 0 {
			d = s
			continue
		}
		d = sdf.SmoothMin(d, s, blobK)
	}
	return d * e.scale
}

// plate returns the backplate colour at plate uv.
func (e *Effect) plate(u, v float32) pipeline.RGB {
	tilt := float32(e.cfg.Tilt)
	g := pipeline.Clamp01(v*(1-tilt) + u*tilt)
	col := e.plateA.Mix(e.plateB, pipeline.Smoothstep(0.2, 0.8, g))
	c := 1 - pipeline.Smoothstep(0, 0.9, math32.Hypot(u-0.5, v-0.5))
	return col.Scale(pipeline.Mix(0.8, 1, c))
}

// backdrop follows a ray to the plate, or returns a dim sky of rim light
// when it leaves toward the camera.
func (e *Effect) backdrop(ro, rd sdf.Vec3) pipeline.RGB {
	if rd.Z >= -1e-4 {
		return e.rim.Scale(0.25 * (0.5 + 0.5*rd.Y))
	}
	t := (plateZ - ro.Z) / rd.Z
	p := ro.Add(rd.Scale(t))
	return e.plate(p.X/plateSize+0.5, p.Y/plateSize+0.5)
}

func reflect(i, n sdf.Vec3) sdf.Vec3 {
	return i.Sub(n.Scale(2 * n.Dot(i)))
}

// refract bends i through a surface with normal n and index ratio eta. Total
// internal reflection falls back to the mirror direction.
func refract(i, n sdf.Vec3, eta float32) sdf.Vec3 {
	c := n.Dot(i)
	k := 1 - eta*eta*(1-c*c)
	if k < 0 {
		return reflect(i, n)
	}
	return i.Scale(eta).Sub(n.Scale(eta*c + math32.Sqrt(k))).Normalize()
}

// shade lights a glass hit.
func (e *Effect) shade(p, rd sdf.Vec3) pipeline.RGB {
	n := sdf.Normal(e.scene, p, 0.002)
	v := rd.Scale(-1)
	cos := max(n.Dot(v), 0)
	fres := e.f0 + (1-e.f0)*math32.Pow(1-cos, 5)

	through := e.backdrop(p, refract(rd, n, 1/float32(e.cfg.IOR))).Mul(e.tint)
	mirror := e.backdrop(p, reflect(rd, n)).Mix(e.rim, 0.5)
	col := through.Mix(mirror, fres)

	highlight := func(light sdf.Vec3, pow float32) float32 {
		l := light.Sub(p).Normalize()
		h := l.Add(v).Normalize()
		return math32.Pow(max(n.Dot(h), 0), pow)
	}
	col = col.Add(e.blue.Scale(highlight(e.keyPos, 60) * 3))
	col = col.Add(e.key.Scale(highlight(e.keyPos, 220) * 1.5))
	col = col.Add(e.crimson.Scale(highlight(e.rimPos, 40) * 2.5))

	rimDir := e.rimPos.Sub(p).Normalize()
	col = col.Add(e.crimson.Scale(math32.Pow(1-cos, 2) * 0.8 * pipeline.Smoothstep(-0.2, 0.6, n.Dot(rimDir))))
	return col.Add(e.key.Scale(0.015))
}

// pixel returns the linear colour of one view ray.
func (e *Effect) pixel(u, v float32) pipeline.RGB {
	ro := sdf.V3(0, 0, camZ)
	rd := sdf.V3(u, v, -focal).Normalize()
	res := sdf.March(ro, rd, e.scene, e.march)
	var col pipeline.RGB
	if res.Reason == sdf.Hit {
		col = e.shade(res.Pos, rd)
	} else {
		col = e.backdrop(ro, rd)
	}
	return col.Add(e.blue.Mix(e.crimson, 0.5).Scale(res.Glow))
}

// Compose renders linear light into the scratch field, then adds a
// thresholded bloom and tone maps with ACES. The output is opaque.
func (e *Effect) Compose(f *pipeline.Frame, out *field.Field) {
	if e.hdr == nil {
		return
	}
	e.renderHDR(f.Workers)
	e.post(f.Workers, out)
}

func (e *Effect) renderHDR(workers *pipeline.Workers) {
	w, h := e.hdr.W, e.hdr.H
	workers.Rows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				c := e.pixel(pipeline.Centered(x, y, w, h))
				e.hdr.Set(x, y, [4]float32{c[0], c[1], c[2], 1})
			}
		}
	})
}

func (e *Effect) post(workers *pipeline.Workers, out *field.Field) {
	exposure := float32(e.cfg.Exposure)
	bloom := float32(e.cfg.Bloom)
	w, h := out.W, out.H
	rx, ry := bloomTaps/float32(w), bloomTaps/float32(h)
	workers.Rows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				u, v := pipeline.UV(x, y, w, h)
				c := e.hdr.Sample(u, v)
				var b [4]float32
				if bloom > 0 {
					b = pipeline.Bloom8(e.hdr, u, v, rx, ry)
				}
				var px [4]float32
				for i := 0; i < 3; i++ {
					px[i] = pipeline.ACES((c[i] + bloom*max(b[i]-bloomFloor, 0)) * exposure)
				}
				px[3] = 1
				out.Set(x, y, px)
			}
		}
	})
}

func (e *Effect) Dispose() { e.hdr = nil }
