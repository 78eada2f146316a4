// Package presshold implements the hold-to-enter gesture and the ring cursor
// that carries it. The ring trails the pointer and shrinks while pressed.
// Holding the pointer or Space/Enter fills it; letting go early plays the
// fill back down. When the ring fills, one Completion is handed to the
// TransitionSink and the gesture latches. What happens next belongs to the
// sink.
package presshold

import (
	"time"

	"github.com/chewxy/math32"

	"github.com/Ceep-LLC/mivra.graphics/config"
	"github.com/Ceep-LLC/mivra.graphics/field"
	"github.com/Ceep-LLC/mivra.graphics/input"
	"github.com/Ceep-LLC/mivra.graphics/pipeline"
	"github.com/Ceep-LLC/mivra.graphics/sdf"
)

const Name = "presshold"

const (
	trackAlpha = 0.2 // unfilled part of the ring
	hintAlpha  = 0.06

	pressInSeconds  = 0.12
	pressOutSeconds = 0.3

	lagLimit = 0.5 // seconds of wall time one step may account for
)

// Completion is emitted once when a hold reaches 100%.
type Completion struct {
	Destination string
	At          time.Time
	Keyboard    bool
}

// TransitionSink receives the completion. It owns navigation.
type TransitionSink interface {
	TransitionReady(Completion)
}

// SinkFunc adapts a function to TransitionSink.
type SinkFunc func(Completion)

func (f SinkFunc) TransitionReady(c Completion) { f(c) }

// ChanSink delivers completions to a channel without blocking the frame.
type ChanSink chan Completion

func (c ChanSink) TransitionReady(v Completion) {
	select {
	case c <- v:
	default:
	}
}

// Effect is the press-hold ring.
type Effect struct {
	cfg        config.PressHoldConfig
	sink       TransitionSink
	firstVisit bool

	active    bool
	completed bool
	started   bool
	progress  float64
	keyboard  bool
	emitted   int
	t         float32
	last      time.Time

	pos   input.PositionSample // eased ring centre
	press float64              // whole-cursor scale
	ring  float64              // ring scale
	vis   float64              // coarse-pointer visibility
}

// New creates the gesture. firstVisit is session state owned by the caller;
// when set, the idle ring breathes until the first hold.
func New(cfg config.PressHoldConfig, sink TransitionSink, firstVisit bool) *Effect {
	e := &Effect{cfg: cfg, sink: sink, firstVisit: firstVisit, pos: input.Center, press: 1, ring: 1, vis: 1}
	if cfg.Coarse {
		e.vis = 0
	}
	return e
}

func (e *Effect) Name() string { return Name }

func (e *Effect) Resize(w, h int) error { return nil }

// Progress is the fill fraction in [0,1].
func (e *Effect) Progress() float64 { return e.progress }

// Completed reports whether the gesture has latched.
func (e *Effect) Completed() bool { return e.completed }

// Emitted returns how many completions were sent; never more than one.
func (e *Effect) Emitted() int { return e.emitted }

// Position returns the eased ring centre in normalized coordinates.
func (e *Effect) Position() input.PositionSample { return e.pos }

// Radius returns the ring's current radius in logical px.
func (e *Effect) Radius() float64 {
	return (e.cfg.Size - e.cfg.Stroke) / 2 * e.ring * e.press
}

// Visibility is the ring's opacity multiplier; always 1 unless coarse.
func (e *Effect) Visibility() float64 { return e.vis }

// wallDelta is the wall time since the previous step, capped at lagLimit
// so a stalled page cannot finish a hold in one frame.
func (e *Effect) wallDelta(f *pipeline.Frame) float64 {
	dt := f.DT
	if !e.last.IsZero() && !f.Now.IsZero() {
		dt = min(max(f.Now.Sub(e.last).Seconds(), 0), lagLimit)
	}
	e.last = f.Now
	return dt
}

// Step eases the ring toward the pointer and advances the hold from the
// sampler's hold state. Releasing early drains the fill at the rate it
// filled.
func (e *Effect) Step(f *pipeline.Frame) {
	e.t = float32(f.Time)
	wall := e.wallDelta(f)
	if f.Input == nil {
		return
	}
	held, at, keyboard := f.Input.Hold()

	target := f.Input.Target()
	if held && keyboard {
		target = at
	}
	k := f.Factor(e.cfg.Follow)
	e.pos.X += (target.X - e.pos.X) * k
	e.pos.Y += (target.Y - e.pos.Y) * k

	press, pressDur := 1.0, pressOutSeconds
	if held && !keyboard {
		press, pressDur = e.cfg.PressScale, pressInSeconds
	}
	e.press = pipeline.Approach(e.press, press, f.DT, pressDur)

	if !e.completed {
		e.advance(f, held, keyboard, wall)
	}

	ring := 1.0
	if e.active || e.completed {
		ring = e.cfg.HoldScale
	}
	e.ring = pipeline.Approach(e.ring, ring, f.DT, e.cfg.GrowSeconds)

	if e.cfg.Coarse {
		vis := 0.0
		if e.active || e.progress > 0 || e.completed {
			vis = 1
		}
		e.vis = pipeline.Approach(e.vis, vis, f.DT, e.cfg.FadeSeconds)
	}
}

func (e *Effect) advance(f *pipeline.Frame, held, keyboard bool, wall float64) {
	dur := e.cfg.HoldSeconds
	rate := 1.0
	if dur > 0 {
		rate = wall / dur
	}
	switch {
	case held && !e.active:
		// A new hold restarts from empty even mid-drain
		e.active, e.started = true, true
		e.progress, e.keyboard = 0, keyboard
		if dur > 0 {
			return
		}
		e.progress = 1
	case held:
		e.progress = min(1, e.progress+rate)
	case e.active:
		e.active = false
		fallthrough
	default:
		e.progress = max(0, e.progress-rate)
		return
	}

	if e.progress >= 1 {
		e.completed, e.active = true, false
		e.emitted++
		if e.sink != nil {
			e.sink.TransitionReady(Completion{Destination: e.cfg.Destination, At: f.Now, Keyboard: e.keyboard})
		}
	}
}

// Compose draws the ring at its eased position: a faint track with the
// filled arc over it. Everything else is transparent.
func (e *Effect) Compose(f *pipeline.Frame, out *field.Field) {
	out.Clear()
	vis := float32(e.vis)
	if vis <= 0 {
		return
	}
	scale := float32(f.PixelScale)
	if scale <= 0 {
		scale = 1
	}
	w, h := out.W, out.H
	r := float32(e.Radius()) * scale
	hw := float32(e.cfg.Stroke) / 2 * float32(e.press) * scale
	cx, cy := float32(e.pos.X)*float32(w), float32(e.pos.Y)*float32(h)

	track := float32(trackAlpha)
	if e.firstVisit && !e.started {
		track = hintAlpha + (trackAlpha-hintAlpha)*(0.5+0.5*math32.Sin(e.t*2))
	}
	fill := float32(e.progress)

	reach := r + hw + 1
	x0, x1 := max(0, int(cx-reach)), min(w, int(cx+reach)+1)
	y0, y1 := max(0, int(cy-reach)), min(h, int(cy+reach)+1)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			dx, dy := float32(x)+0.5-cx, float32(y)+0.5-cy
			cov := pipeline.Clamp01(0.5 - sdf.Annulus(dx, dy, r, hw))
			if cov == 0 {
				continue
			}
			a := track
			if sdf.Arc(dx, dy, fill) {
				a = 1
			}
			a *= cov * vis
			out.Set(x, y, [4]float32{a, a, a, a})
		}
	}
}

func (e *Effect) Dispose() {}
