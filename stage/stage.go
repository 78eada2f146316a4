// Package stage stacks independently running pipelines as layers and
// composites their latest frames over a page background.
//
// Each mounted pipeline is an ark entity carrying a Layer and a Mount
// component. All pipelines share the stage's scheduler and event hub, so one
// Frame call flushes every layer's pending frame.
package stage

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/Ceep-LLC/mivra.graphics/field"
	"github.com/Ceep-LLC/mivra.graphics/input"
	"github.com/Ceep-LLC/mivra.graphics/pipeline"
)

// PhaseStage is reported to the profiler while layers are composited.
const PhaseStage = "stage"

// Layer positions a mounted pipeline in the stack.
type Layer struct {
	Z       int
	Blend   pipeline.Blend
	Opacity float32
}

// Mount is the running pipeline behind a layer.
type Mount struct {
	Name string
	P    *pipeline.Pipeline
}

// Builder constructs a pipeline driven by the stage's scheduler.
type Builder func(sched pipeline.Scheduler) (*pipeline.Pipeline, error)

// Options configures a stage.
type Options struct {
	Background pipeline.RGB
	Workers    int
	Logger     *slog.Logger
	Profiler   pipeline.Profiler
}

// Stage owns the layer world, the shared scheduler and the event hub.
type Stage struct {
	world  *ecs.World
	mapper *ecs.Map2[Layer, Mount]
	filter *ecs.Filter2[Layer, Mount]
	mounts *ecs.Map1[Mount]

	sched   *pipeline.ManualScheduler
	hub     *pipeline.Hub
	workers *pipeline.Workers
	log     *slog.Logger
	prof    pipeline.Profiler

	bg      pipeline.RGB
	size    pipeline.Size
	visible bool
	out     *field.Field

	// scratch, reused every frame
	order []entry
	dead  []ecs.Entity
}

type entry struct {
	e     ecs.Entity
	layer Layer
	name  string
	p     *pipeline.Pipeline
}

// New creates an empty, visible stage whose scheduler clock starts at start.
func New(start time.Time, opts Options) *Stage {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	world := ecs.NewWorld()
	return &Stage{
		world:   world,
		mapper:  ecs.NewMap2[Layer, Mount](world),
		filter:  ecs.NewFilter2[Layer, Mount](world),
		mounts:  ecs.NewMap1[Mount](world),
		sched:   pipeline.NewManualScheduler(start),
		hub:     pipeline.NewHub(),
		workers: pipeline.NewWorkers(opts.Workers),
		log:     log,
		prof:    opts.Profiler,
		bg:      opts.Background,
		visible: true,
	}
}

// Mounted reports whether the stage has a positive size; the stage is the
// host every layer's surface attaches to.
func (s *Stage) Mounted() bool { return s.size.Width > 0 && s.size.Height > 0 }

// Size returns the stage's logical size.
func (s *Stage) Size() pipeline.Size { return s.size }

// Scheduler returns the scheduler shared by every layer.
func (s *Stage) Scheduler() *pipeline.ManualScheduler { return s.sched }

// Hub returns the event hub every layer is attached to.
func (s *Stage) Hub() *pipeline.Hub { return s.hub }

// Mount builds a pipeline and adds it as a layer. A builder that fails or
// panics mounts nothing: the error is logged and returned, and the stage
// keeps running.
func (s *Stage) Mount(name string, layer Layer, build Builder) (e ecs.Entity, err error) {
	p, err := s.construct(name, build)
	if err != nil {
		s.log.Error("layer mount failed", "layer", name, "error", err)
		return ecs.Entity{}, err
	}
	p.Attach(s.hub)
	if err := p.Configure(s); err != nil {
		s.log.Error("layer mount failed", "layer", name, "error", err)
		p.Dispose()
		return ecs.Entity{}, err
	}
	if layer.Opacity <= 0 {
		layer.Opacity = 1
	}
	e = s.mapper.NewEntity(&layer, &Mount{Name: name, P: p})
	if !s.visible {
		p.SetVisible(false)
	}
	p.Start()
	s.log.Debug("layer mounted", "layer", name, "z", layer.Z, "blend", layer.Blend.String())
	return e, nil
}

func (s *Stage) construct(name string, build Builder) (p *pipeline.Pipeline, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("%w: %s: panic: %v", pipeline.ErrNoContext, name, r)
		}
	}()
	p, err = build(s.sched)
	if err == nil && p == nil {
		err = fmt.Errorf("%w: %s: builder returned no pipeline", pipeline.ErrNoContext, name)
	}
	return p, err
}

// Unmount disposes a layer's pipeline and removes it. Unknown or already
// removed entities are ignored.
func (s *Stage) Unmount(e ecs.Entity) {
	if !s.world.Alive(e) || !s.mounts.HasAll(e) {
		return
	}
	m := s.mounts.Get(e)
	m.P.Dispose()
	s.world.RemoveEntity(e)
	s.log.Debug("layer unmounted", "layer", m.Name)
}

// Resize records the new container size and posts it to every layer. The
// layers reallocate at the start of their next frame.
func (s *Stage) Resize(sz pipeline.Size) {
	s.size = sz
	s.hub.EmitResize(sz)
}

// SetVisible pauses or resumes every layer.
func (s *Stage) SetVisible(visible bool) {
	s.visible = visible
	s.hub.EmitVisibility(visible)
}

// Visible reports the last visibility set.
func (s *Stage) Visible() bool { return s.visible }

// Dispatch sends one raw input event to every layer's sampler.
func (s *Stage) Dispatch(ev input.Event) { s.hub.EmitInput(ev) }

// Frame runs every layer's pending frame at now, then composites the layers'
// latest output in ascending Z over the background. Layers whose pipeline
// failed are unmounted. Returns nil until the stage has a positive size.
func (s *Stage) Frame(now time.Time) *field.Field {
	s.sched.Flush(now)

	if s.prof != nil {
		s.prof.StartPhase(PhaseStage)
	}
	s.collect()
	for _, e := range s.dead {
		s.Unmount(e)
	}

	w, h := pipeline.BackingSize(s.size, s.size.DPR)
	if w == 0 || h == 0 {
		return nil
	}
	if s.out == nil || s.out.W != w || s.out.H != h {
		s.out = field.New(w, h)
	}
	s.out.Fill([4]float32{s.bg[0], s.bg[1], s.bg[2], 1})
	for _, en := range s.order {
		pipeline.Composite(s.out, en.p.Output(), en.layer.Blend, en.layer.Opacity, s.workers)
	}
	return s.out
}

// collect gathers live layers sorted by Z and the entities of failed ones.
// The world is locked while a query runs, so removal happens afterwards.
func (s *Stage) collect() {
	s.order = s.order[:0]
	s.dead = s.dead[:0]
	query := s.filter.Query()
	for query.Next() {
		layer, m := query.Get()
		if m.P.Disposed() {
			if err := m.P.Err(); err != nil {
				s.log.Warn("layer failed, unmounting", "layer", m.Name, "error", err)
			}
			s.dead = append(s.dead, query.Entity())
			continue
		}
		s.order = append(s.order, entry{e: query.Entity(), layer: *layer, name: m.Name, p: m.P})
	}
	// Stable so equal Z keeps mount order
	slices.SortStableFunc(s.order, func(a, b entry) int { return cmp.Compare(a.layer.Z, b.layer.Z) })
}

// Layers returns the mounted layer names in composite order.
func (s *Stage) Layers() []string {
	s.collect()
	names := make([]string, 0, len(s.order))
	for _, en := range s.order {
		names = append(names, en.name)
	}
	return names
}

// Pipeline returns the named layer's pipeline, or nil.
func (s *Stage) Pipeline(name string) *pipeline.Pipeline {
	s.collect()
	for _, en := range s.order {
		if en.name == name {
			return en.p
		}
	}
	return nil
}

// Output returns the last composited frame, or nil.
func (s *Stage) Output() *field.Field { return s.out }

// Dispose unmounts every layer and stops the stage's workers.
func (s *Stage) Dispose() {
	s.collect()
	for _, en := range s.order {
		s.Unmount(en.e)
	}
	for _, e := range s.dead {
		s.Unmount(e)
	}
	s.order = s.order[:0]
	s.workers.Stop()
	s.out = nil
}
