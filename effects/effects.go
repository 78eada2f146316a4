// Package effects builds the visual effects by name and pairs each with the
// pipeline options it is tuned for.
package effects

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Ceep-LLC/mivra.graphics/config"
	"github.com/Ceep-LLC/mivra.graphics/effects/cursor"
	"github.com/Ceep-LLC/mivra.graphics/effects/glass"
	"github.com/Ceep-LLC/mivra.graphics/effects/grain"
	"github.com/Ceep-LLC/mivra.graphics/effects/ink"
	"github.com/Ceep-LLC/mivra.graphics/effects/metaglow"
	"github.com/Ceep-LLC/mivra.graphics/effects/orb"
	"github.com/Ceep-LLC/mivra.graphics/effects/parallax"
	"github.com/Ceep-LLC/mivra.graphics/effects/presshold"
	"github.com/Ceep-LLC/mivra.graphics/effects/smoke"
	"github.com/Ceep-LLC/mivra.graphics/effects/wavy"
	"github.com/Ceep-LLC/mivra.graphics/pipeline"
)

// ErrUnknown is returned for a name no effect is registered under.
var ErrUnknown = errors.New("unknown effect")

// Deps are the collaborators an effect may need beyond its config section.
type Deps struct {
	Seed       int64
	Logger     *slog.Logger
	Sink       presshold.TransitionSink
	FirstVisit bool // session state for the press-hold hint
}

type builder func(cfg *config.Config, d Deps, o *pipeline.Options) (pipeline.Effect, error)

var registry = map[string]builder{
	ink.Name: func(cfg *config.Config, d Deps, o *pipeline.Options) (pipeline.Effect, error) {
		o.DPRCeiling = cfg.Ink.DPRCeiling
		return ink.New(cfg.Ink, uint32(d.Seed), d.Logger)
	},
	smoke.Name: func(cfg *config.Config, d Deps, o *pipeline.Options) (pipeline.Effect, error) {
		o.DPRCeiling = cfg.Smoke.DPRCeiling
		o.Smoothing = cfg.Smoke.Smoothing
		o.PulseDecay = cfg.Smoke.PulseDecay
		return smoke.New(cfg.Smoke, d.Seed, d.Logger)
	},
	metaglow.Name: func(cfg *config.Config, d Deps, o *pipeline.Options) (pipeline.Effect, error) {
		o.DPRCeiling = cfg.MetaGlow.DPRCeiling
		o.Smoothing = cfg.MetaGlow.Smoothing
		return metaglow.New(cfg.MetaGlow, uint32(d.Seed))
	},
	orb.Name: func(cfg *config.Config, d Deps, o *pipeline.Options) (pipeline.Effect, error) {
		o.DPRCeiling = cfg.Orb.DPRCeiling
		return orb.New(cfg.Orb, uint32(d.Seed))
	},
	glass.Name: func(cfg *config.Config, d Deps, o *pipeline.Options) (pipeline.Effect, error) {
		o.DPRCeiling = cfg.Glass.DPRCeiling
		o.Smoothing = cfg.Glass.Smoothing
		return glass.New(cfg.Glass)
	},
	parallax.Name: func(cfg *config.Config, d Deps, o *pipeline.Options) (pipeline.Effect, error) {
		o.DPRCeiling = cfg.Parallax.DPRCeiling
		o.Smoothing = cfg.Parallax.Smoothing
		return parallax.Load(cfg.Parallax, d.Logger)
	},
	wavy.Name: func(cfg *config.Config, d Deps, o *pipeline.Options) (pipeline.Effect, error) {
		o.DPRCeiling = cfg.Wavy.DPRCeiling
		o.Smoothing = cfg.Wavy.Smoothing
		return wavy.New(cfg.Wavy, uint32(d.Seed), d.Logger)
	},
	presshold.Name: func(cfg *config.Config, d Deps, o *pipeline.Options) (pipeline.Effect, error) {
		o.DPRCeiling = 2
		return presshold.New(cfg.PressHold, d.Sink, d.FirstVisit), nil
	},
	cursor.Name: func(cfg *config.Config, d Deps, o *pipeline.Options) (pipeline.Effect, error) {
		o.DPRCeiling = cfg.Cursor.DPRCeiling
		return cursor.New(cfg.Cursor), nil
	},
	grain.Name: func(cfg *config.Config, d Deps, o *pipeline.Options) (pipeline.Effect, error) {
		o.DPRCeiling = cfg.Grain.DPRCeiling
		return grain.New(cfg.Grain, d.Seed), nil
	},
}

// Names returns every registered effect name in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Build constructs the named effect and its pipeline options. The options
// start from the shared pipeline config; the effect sets its DPR ceiling and
// input smoothing.
func Build(name string, cfg *config.Config, d Deps) (pipeline.Effect, pipeline.Options, error) {
	b, ok := registry[name]
	if !ok {
		return nil, pipeline.Options{}, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	opts := pipeline.OptionsFromConfig(cfg)
	opts.Logger = d.Logger
	e, err := b(cfg, d, &opts)
	if err != nil {
		return nil, pipeline.Options{}, fmt.Errorf("building %s: %w", name, err)
	}
	return e, opts, nil
}

// New builds the named effect and wraps it in a pipeline driven by sched.
// prof may be nil.
func New(name string, cfg *config.Config, d Deps, sched pipeline.Scheduler, prof pipeline.Profiler) (*pipeline.Pipeline, error) {
	e, opts, err := Build(name, cfg, d)
	if err != nil {
		return nil, err
	}
	opts.Profiler = prof
	return pipeline.New(e, sched, opts)
}
