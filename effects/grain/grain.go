// Package grain implements the film grain overlay: every few frames the
// previous grain fades and a fresh scatter of light specks is drawn over it.
package grain

import (
	"math/rand"

	"github.com/Ceep-LLC/mivra.graphics/config"
	"github.com/Ceep-LLC/mivra.graphics/field"
	"github.com/Ceep-LLC/mivra.graphics/pipeline"
)

const Name = "grain"

// Effect is the grain overlay.
type Effect struct {
	cfg  config.GrainConfig
	pair *field.Pair
	rng  *rand.Rand

	acc       float64
	frames    int
	refreshes int
}

// New creates the overlay with a seeded generator.
func New(cfg config.GrainConfig, seed int64) *Effect {
	if cfg.Every < 1 {
		cfg.Every = 1
	}
	return &Effect{
		cfg:  cfg,
		pair: field.NewPair(),
		rng:  rand.New(rand.NewSource(seed)),
	}
}

func (e *Effect) Name() string { return Name }

func (e *Effect) Resize(w, h int) error {
	e.acc, e.frames = 0, 0
	return e.pair.Resize(w, h)
}

// Refreshes returns how many times grain has been redrawn.
func (e *Effect) Refreshes() int { return e.refreshes }

// Field returns the current grain layer.
func (e *Effect) Field() *field.Field { return e.pair.Read() }

// due reports whether this frame redraws. With frame-rate independence the
// cadence is Every reference frames of elapsed time; otherwise every Every
// rendered frames.
func (e *Effect) due(f *pipeline.Frame) bool {
	if f.Rate.Independent && f.Rate.RefFPS > 0 {
		interval := float64(e.cfg.Every) / f.Rate.RefFPS
		e.acc += f.DT
		if e.acc+1e-9 < interval {
			return false
		}
		e.acc = min(e.acc-interval, interval)
		return true
	}
	e.frames++
	return e.frames%e.cfg.Every == 0
}

// Step fades the previous grain and scatters new specks.
func (e *Effect) Step(f *pipeline.Frame) {
	if e.pair.Read() == nil || !e.due(f) {
		return
	}
	e.pair.Step(func(read, write *field.Field) {
		write.CopyFrom(read)
		write.Scale(float32(1 - e.cfg.Fade))

		n := int(float64(write.W*write.H) * e.cfg.Density)
		for i := 0; i < n; i++ {
			x := e.rng.Intn(write.W)
			y := e.rng.Intn(write.H)
			shade := float32(e.cfg.ShadeMin + e.rng.Float64()*(e.cfg.ShadeMax-e.cfg.ShadeMin))
			a := float32(e.cfg.AlphaMin + e.rng.Float64()*(e.cfg.AlphaMax-e.cfg.AlphaMin))
			j := write.Index(x, y)
			k := 1 - a
			write.Pix[j] = shade*a + write.Pix[j]*k
			write.Pix[j+1] = shade*a + write.Pix[j+1]*k
			write.Pix[j+2] = shade*a + write.Pix[j+2]*k
			write.Pix[j+3] = a + write.Pix[j+3]*k
		}
	})
	e.refreshes++
}

// Compose copies the grain layer out; it is already premultiplied.
func (e *Effect) Compose(f *pipeline.Frame, out *field.Field) {
	src := e.pair.Read()
	if src == nil {
		return
	}
	if src.W == out.W && src.H == out.H {
		out.CopyFrom(src)
		return
	}
	out.Clear()
	pipeline.Composite(out, src, pipeline.BlendNormal, 1, f.Workers)
}

func (e *Effect) Dispose() { e.pair.Dispose() }
