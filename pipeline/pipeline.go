// Package pipeline runs one self-contained visual effect: it owns the
// effect's surface, clock, input sampler and frame loop, and releases all of
// them on Dispose.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Ceep-LLC/mivra.graphics/clock"
	"github.com/Ceep-LLC/mivra.graphics/config"
	"github.com/Ceep-LLC/mivra.graphics/field"
	"github.com/Ceep-LLC/mivra.graphics/input"
)

// ErrNoContext is returned when an effect cannot create its rendering
// resources. The instance renders nothing; other instances are unaffected.
var ErrNoContext = errors.New("rendering context unavailable")

// Phase names reported to a Profiler.
const (
	PhaseResize  = "resize"
	PhaseInput   = "input"
	PhaseStep    = "step"
	PhaseCompose = "compose"
)

// throttleSlack lets a frame that arrives just short of the MaxFPS interval
// still step.
const throttleSlack = 0.001

// Profiler receives phase boundaries; telemetry.PerfCollector satisfies it.
type Profiler interface {
	StartPhase(phase string)
}

// Effect is the per-effect part of a pipeline.
//
// Resize is called on the render thread before the first frame and whenever
// the render size changes; it must (re)allocate every size-dependent buffer.
// Step advances simulation state by f.DT. Compose writes premultiplied RGBA
// into out, which is f.Width×f.Height. Dispose releases everything.
type Effect interface {
	Name() string
	Resize(w, h int) error
	Step(f *Frame)
	Compose(f *Frame, out *field.Field)
	Dispose()
}

// Initializer is implemented by effects that create resources before the
// first frame. A failing Init leaves the pipeline unconstructed.
type Initializer interface {
	Init() error
}

// Frame is what an effect sees for one frame.
type Frame struct {
	Now        time.Time
	Time       float64 // seconds of clamped frame time since construction
	DT         float64 // clamped delta for this frame
	Index      uint64
	Width      int
	Height     int
	PixelScale float64 // render pixels per logical pixel
	Logical    Size
	Input      *input.Sampler
	Rate       clock.Rate
	Workers    *Workers
}

// Factor is Rate.Factor at this frame's delta.
func (f *Frame) Factor(k float64) float64 { return f.Rate.Factor(k, f.DT) }

// Retain is Rate.Retain at this frame's delta.
func (f *Frame) Retain(k float64) float64 { return f.Rate.Retain(k, f.DT) }

// Options configures a pipeline.
type Options struct {
	DPRCeiling  float64
	RenderScale float64
	MaxStep     float64 // seconds
	Rate        clock.Rate
	MaxFPS      float64 // 0 steps on every scheduler callback
	Smoothing   float64
	PulseDecay  float64
	Workers     int
	Logger      *slog.Logger
	Profiler    Profiler
}

// OptionsFromConfig fills the shared frame-loop options from cfg.
// DPRCeiling, Smoothing and PulseDecay are effect-specific and left to the
// caller.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DPRCeiling:  1,
		RenderScale: float64(cfg.Derived.RenderScale),
		MaxStep:     cfg.Pipeline.MaxStep,
		Rate: clock.Rate{
			RefFPS:      cfg.Pipeline.ReferenceFPS,
			Independent: cfg.Pipeline.FrameRateIndependent,
		},
		Workers: cfg.Pipeline.Workers,
	}
}

// Pipeline owns one effect and everything it needs to run.
type Pipeline struct {
	effect Effect
	opts   Options
	log    *slog.Logger

	surface *Surface
	clock   *clock.Clock
	sampler *input.Sampler
	workers *Workers
	subs    Subscriptions
	loop    *Loop

	out      *field.Field
	composed bool
	frame    Frame
	acc      float64

	disposed bool
	err      error
}

// New constructs a pipeline around effect. The pipeline starts stopped and
// unattached; call Configure or Resize, then Start.
func New(effect Effect, sched Scheduler, opts Options) (*Pipeline, error) {
	if effect == nil {
		return nil, fmt.Errorf("%w: nil effect", ErrNoContext)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("effect", effect.Name())

	if in, ok := effect.(Initializer); ok {
		if err := in.Init(); err != nil {
			effect.Dispose()
			return nil, fmt.Errorf("%w: %s: %v", ErrNoContext, effect.Name(), err)
		}
	}

	p := &Pipeline{
		effect:  effect,
		opts:    opts,
		log:     log,
		surface: NewSurface(opts.DPRCeiling, opts.RenderScale),
		clock:   clock.New(opts.MaxStep),
		sampler: input.NewSampler(input.Options{
			Smoothing:  opts.Smoothing,
			PulseDecay: opts.PulseDecay,
			Rate:       opts.Rate,
			Logger:     log,
		}),
		workers: NewWorkers(opts.Workers),
	}
	p.surface.OnResize(p.reallocate)
	p.loop = NewLoop(sched, p.RenderFrame, p.clock.Reset, p.fail, log)
	return p, nil
}

// Name returns the effect name.
func (p *Pipeline) Name() string { return p.effect.Name() }

// Effect returns the wrapped effect.
func (p *Pipeline) Effect() Effect { return p.effect }

// Configure attaches to host, deferring until it is mounted.
func (p *Pipeline) Configure(h Host) error {
	if p.disposed {
		return nil
	}
	_, err := p.surface.Configure(h)
	if err != nil {
		p.fail(err)
	}
	return err
}

// Attach subscribes to a hub's input, resize and visibility events.
// The subscriptions are released by Dispose.
func (p *Pipeline) Attach(h *Hub) {
	if p.disposed {
		return
	}
	p.subs.Add("input", h.OnInput(p.Dispatch))
	p.subs.Add("resize", h.OnResize(p.Post))
	p.subs.Add("visibility", h.OnVisibility(p.SetVisible))
}

// OnDispose registers extra cleanup run by Dispose, latest first.
func (p *Pipeline) OnDispose(name string, release func()) {
	p.subs.Add(name, release)
}

// Subscriptions returns the number of live subscriptions.
func (p *Pipeline) Subscriptions() int { return p.subs.Len() }

// Start begins requesting frames.
func (p *Pipeline) Start() {
	if p.disposed {
		return
	}
	p.loop.Start()
}

// Stop cancels the pending frame. Safe to call repeatedly.
func (p *Pipeline) Stop() { p.loop.Stop() }

// SetVisible pauses or resumes the loop with page visibility. Strokes
// queued before hiding are dropped so a resumed effect does not replay them.
func (p *Pipeline) SetVisible(v bool) {
	if p.disposed {
		return
	}
	if !v {
		p.sampler.DiscardStrokes()
	}
	p.loop.SetVisible(v)
}

// Running reports whether frames are being requested.
func (p *Pipeline) Running() bool { return p.loop.Running() }

// Disposed reports whether Dispose has run.
func (p *Pipeline) Disposed() bool { return p.disposed }

// Err returns the error that disposed the pipeline, if any.
func (p *Pipeline) Err() error { return p.err }

// Dispatch feeds one raw input event to the sampler. While hidden the
// target still follows the pointer but no strokes are kept.
func (p *Pipeline) Dispatch(ev input.Event) {
	if p.disposed {
		return
	}
	p.sampler.Sample(ev)
	if !p.loop.Visible() {
		p.sampler.DiscardStrokes()
	}
}

// Post queues a resize for the next frame. Safe from any goroutine.
func (p *Pipeline) Post(sz Size) { p.surface.Post(sz) }

// Resize applies a size immediately. Render thread only.
func (p *Pipeline) Resize(sz Size) error {
	if p.disposed {
		return nil
	}
	_, err := p.surface.Resize(sz)
	if err != nil {
		p.fail(err)
	}
	return err
}

// Surface returns the pipeline's surface.
func (p *Pipeline) Surface() *Surface { return p.surface }

// Sampler returns the pipeline's input sampler.
func (p *Pipeline) Sampler() *input.Sampler { return p.sampler }

// Clock returns the pipeline's frame clock.
func (p *Pipeline) Clock() *clock.Clock { return p.clock }

// Loop returns the frame loop.
func (p *Pipeline) Loop() *Loop { return p.loop }

// Output returns the last composed frame, or nil if none is ready.
func (p *Pipeline) Output() *field.Field {
	if p.disposed || !p.composed {
		return nil
	}
	return p.out
}

// Dispose stops the loop and releases every resource and subscription.
// Idempotent.
func (p *Pipeline) Dispose() {
	if p.disposed {
		return
	}
	p.disposed = true
	p.loop.Close()
	p.subs.DisposeAll()
	p.effect.Dispose()
	p.workers.Stop()
	p.out = nil
	p.composed = false
	p.log.Debug("pipeline disposed")
}

func (p *Pipeline) fail(err error) {
	if p.err == nil {
		p.err = err
	}
	p.log.Error("pipeline failed", "error", err)
	p.Dispose()
}

func (p *Pipeline) reallocate(w, h int) error {
	p.phase(PhaseResize)
	if err := p.effect.Resize(w, h); err != nil {
		return fmt.Errorf("%w: resizing %s to %dx%d: %v", ErrNoContext, p.effect.Name(), w, h, err)
	}
	if p.out == nil || p.out.W != w || p.out.H != h {
		p.out = field.New(w, h)
	} else {
		p.out.Clear()
	}
	p.composed = false
	lg := p.surface.Logical()
	p.sampler.SetBounds(input.Bounds{Width: lg.Width, Height: lg.Height})
	p.log.Debug("surface resized", "width", w, "height", h, "generation", p.surface.Generation())
	return nil
}

// RenderFrame runs one frame: apply pending resizes, tick the clock,
// advance input, step, compose. Normally called by the loop; exposed for
// hosts that drive frames directly.
func (p *Pipeline) RenderFrame(now time.Time) error {
	if p.disposed {
		return nil
	}
	if _, err := p.surface.Sync(); err != nil {
		return err
	}
	dt := p.clock.Tick(now)
	if !p.surface.Ready() {
		p.sampler.DiscardStrokes()
		return nil
	}

	if p.opts.MaxFPS > 0 {
		p.acc += dt
		if p.acc+throttleSlack < 1/p.opts.MaxFPS {
			return nil
		}
		dt, p.acc = p.acc, 0
		if p.opts.MaxStep > 0 {
			dt = min(dt, p.opts.MaxStep)
		}
	}

	p.phase(PhaseInput)
	p.sampler.Advance(dt)

	w, h := p.surface.RenderSize()
	p.frame = Frame{
		Now:        now,
		Time:       p.clock.Elapsed(),
		DT:         dt,
		Index:      p.frame.Index + 1,
		Width:      w,
		Height:     h,
		PixelScale: p.surface.PixelScale(),
		Logical:    p.surface.Logical(),
		Input:      p.sampler,
		Rate:       p.opts.Rate,
		Workers:    p.workers,
	}

	p.phase(PhaseStep)
	p.effect.Step(&p.frame)
	// Strokes belong to the frame they arrived before, drained or not
	p.sampler.DiscardStrokes()
	p.phase(PhaseCompose)
	p.effect.Compose(&p.frame, p.out)
	p.composed = true
	return nil
}

func (p *Pipeline) phase(name string) {
	if p.opts.Profiler != nil {
		p.opts.Profiler.StartPhase(name)
	}
}
