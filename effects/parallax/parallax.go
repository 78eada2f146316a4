// Package parallax renders the depth-map hero: a photo fitted to cover the
// surface and displaced by its depth map toward the pointer, giving a
// shallow 3D feel without geometry.
package parallax

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/chewxy/math32"

	"github.com/Ceep-LLC/mivra.graphics/assets"
	"github.com/Ceep-LLC/mivra.graphics/config"
	"github.com/Ceep-LLC/mivra.graphics/field"
	"github.com/Ceep-LLC/mivra.graphics/pipeline"
)

const Name = "parallax"

// depthMaxDim caps the depth map's longer side after loading.
const depthMaxDim = 1024

// Effect is the parallax hero.
type Effect struct {
	cfg      config.ParallaxConfig
	log      *slog.Logger
	fallback pipeline.RGB

	imgFut, depthFut *assets.Future[*field.Field]
	img, depth       *field.Field

	cx, cy float32 // eased pointer in [0,1]²
	mx, my float32 // pointer after the idle drift is mixed in
	t      float32
}

// Load starts loading the configured image and depth map in the background.
func Load(cfg config.ParallaxConfig, log *slog.Logger) (*Effect, error) {
	img := assets.Go(func() (*field.Field, error) { return assets.LoadImage(cfg.Image) })
	depth := assets.Go(func() (*field.Field, error) { return assets.LoadDepth(cfg.Depth, depthMaxDim) })
	return New(cfg, img, depth, log)
}

// New creates the effect around pending loads. Until the image arrives, or if
// it fails, the surface shows the flat fallback colour. Without a depth map
// the image is drawn undisplaced.
func New(cfg config.ParallaxConfig, img, depth *assets.Future[*field.Field], log *slog.Logger) (*Effect, error) {
	if log == nil {
		log = slog.Default()
	}
	fb, err := pipeline.ParseHex(cfg.Fallback)
	if err != nil {
		return nil, fmt.Errorf("parallax fallback: %w", err)
	}
	return &Effect{cfg: cfg, log: log, fallback: fb, imgFut: img, depthFut: depth, cx: 0.5, cy: 0.5, mx: 0.5, my: 0.5}, nil
}

func (e *Effect) Name() string { return Name }

func (e *Effect) Resize(w, h int) error { return nil }

// Loaded reports whether the image and depth map are in use.
func (e *Effect) Loaded() (image, depth bool) { return e.img != nil, e.depth != nil }

// collect picks up finished loads. Failures are logged once and leave the
// fallback in place.
func (e *Effect) collect() {
	take := func(fut **assets.Future[*field.Field], dst **field.Field, what, path string) {
		if *fut == nil {
			return
		}
		v, ok, err := (*fut).Poll()
		if !ok {
			return
		}
		*fut = nil
		if err != nil {
			e.log.Warn("parallax asset unavailable", "asset", what, "path", path, "error", err)
			return
		}
		*dst = v
	}
	take(&e.imgFut, &e.img, "image", e.cfg.Image)
	take(&e.depthFut, &e.depth, "depth", e.cfg.Depth)
}

// Step eases the pointer and mixes in a slow idle drift.
func (e *Effect) Step(f *pipeline.Frame) {
	e.collect()
	e.t = float32(f.Time)

	tx, ty := float32(0.5), float32(0.5)
	if f.Input != nil && f.Input.Touched() {
		p := f.Input.Target()
		tx, ty = float32(p.X), float32(p.Y)
	}
	k := float32(f.Factor(e.cfg.Smoothing))
	e.cx += (tx - e.cx) * k
	e.cy += (ty - e.cy) * k

	autoX := 0.5 + 0.01*math32.Sin(e.t*0.4)
	autoY := 0.5 + 0.01*math32.Cos(e.t*0.33)
	mix := float32(e.cfg.AutoMix)
	e.mx = pipeline.Mix(e.cx, autoX, mix)
	e.my = pipeline.Mix(e.cy, autoY, mix)
}

// coverScale is the uv scale that fits an iw×ih image over a w×h surface,
// cropping one axis.
func coverScale(w, h, iw, ih int) (float32, float32) {
	rTex := float32(iw) / float32(ih)
	rCan := float32(w) / float32(h)
	if rCan > rTex {
		return 1, rTex / rCan
	}
	return rCan / rTex, 1
}

func gauss(x, s float32) float32 { return math32.Exp(-(x * x) / (2 * s * s)) }

// rand is the classic fract(sin(dot)) hash, evaluated in float64 so large
// arguments stay stable.
func rand(u, v float32) float32 {
	s := math.Sin(float64(u)*12.9898+float64(v)*78.233) * 43758.5453
	return float32(s - math.Floor(s))
}

// grain is a triangular-distributed value in (-1, 1).
func grain(u, v float32, w, h int) float32 {
	return rand(u*float32(w), v*float32(h)) + rand(u*float32(h), v*float32(w)) - 1
}

// depthSmooth is a 3×3 bilateral filter of the depth map at uv. px is one
// render pixel in depth uv units.
func (e *Effect) depthSmooth(u, v, pxu, pxv float32, w, h int) float32 {
	sigma := float32(e.cfg.BlurSigma)
	c := e.depth.Sample(u, v)[0]
	var sum, wsum float32
	for j := -1; j <= 1; j++ {
		for i := -1; i <= 1; i++ {
			ou, ov := float32(i)*pxu, float32(j)*pxv
			d := e.depth.Sample(u+ou, v+ov)[0]
			wg := gauss(math32.Hypot(ou*float32(w), ov*float32(h)), 1+sigma*1.5)
			wr := gauss(math32.Abs(d-c), 0.15+sigma*0.15)
			sum += d * wg * wr
			wsum += wg * wr
		}
	}
	return sum / max(1e-4, wsum)
}

// edge is 1 across depth discontinuities.
func (e *Effect) edge(u, v, pxu, pxv float32) float32 {
	dx := e.depth.Sample(u+pxu, v)[0] - e.depth.Sample(u-pxu, v)[0]
	dy := e.depth.Sample(u, v+pxv)[0] - e.depth.Sample(u, v-pxv)[0]
	return pipeline.Smoothstep(0.02, 0.12, math32.Hypot(dx, dy))
}

// Compose draws the displaced image, or the flat fallback. The output is
// opaque.
func (e *Effect) Compose(f *pipeline.Frame, out *field.Field) {
	w, h := out.W, out.H
	if e.img == nil {
		out.Fill([4]float32{e.fallback[0], e.fallback[1], e.fallback[2], 1})
		return
	}
	sx, sy := coverScale(w, h, e.img.W, e.img.H)
	pxu, pxv := 1/float32(w)/sx, 1/float32(h)/sy
	mx, my := (e.mx-0.5)*2, (e.my-0.5)*2
	amount := float32(e.cfg.Amount)
	bias := float32(e.cfg.CenterBias)
	noiseAmp := float32(e.cfg.NoiseAmp)
	vignK := float32(e.cfg.Vignette)
	t := e.t

	f.Workers.Rows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				su, sv := pipeline.UV(x, y, w, h)
				u := (su-0.5)*sx + 0.5
				v := (sv-0.5)*sy + 0.5
				r := math32.Hypot(su-0.5, sv-0.5)

				var du, dv float32
				if e.depth != nil {
					fall := 1 - pipeline.Smoothstep(0, float32(e.cfg.Falloff), r)
					damp := pipeline.Mix(1, 1-e.edge(u, v, pxu, pxv), float32(e.cfg.EdgeDamp))
					z := e.depthSmooth(u, v, pxu, pxv, w, h) - bias
					du = mx * amount * z * fall * damp
					dv = my * amount * z * fall * damp
				}
				if noiseAmp > 0 {
					g := grain(su+t*0.015, sv-t*0.01, w, h) * 0.003 * noiseAmp
					du += g
					dv += g
				}
				iu := pipeline.Mix(u+du, pipeline.Clamp01(u+du), 0.9)
				iv := pipeline.Mix(v+dv, pipeline.Clamp01(v+dv), 0.9)
				c := e.img.Sample(iu, iv)

				vign := pipeline.Mix(1-vignK, 1, pipeline.Smoothstep(1, 0, r*1.15))
				sparkle := float32(0)
				if noiseAmp > 0 {
					n := grain(su*1.8+t*0.25, sv*1.8-t*0.22, w, h)
					sparkle = pipeline.Smoothstep(0.4, 1, math32.Abs(n)) * 0.03 * noiseAmp
				}
				var px [4]float32
				for i := 0; i < 3; i++ {
					px[i] = pipeline.Clamp01(math32.Pow(max(c[i]*vign, 0), 1/1.03) + sparkle)
				}
				px[3] = 1
				out.Set(x, y, px)
			}
		}
	})
}

func (e *Effect) Dispose() {
	e.img, e.depth = nil, nil
	e.imgFut, e.depthFut = nil, nil
}
