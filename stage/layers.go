package stage

import (
	"slices"

	"github.com/Ceep-LLC/mivra.graphics/config"
	"github.com/Ceep-LLC/mivra.graphics/effects"
	"github.com/Ceep-LLC/mivra.graphics/pipeline"
)

// MountLayers mounts the configured layer stack. When only is non-empty,
// layers for other effects are skipped. A layer that fails to build is
// logged and left out; the rest still mount. Returns how many mounted.
func (s *Stage) MountLayers(cfg *config.Config, deps effects.Deps, only []string) int {
	if deps.Logger == nil {
		deps.Logger = s.log
	}
	n := 0
	for _, lc := range cfg.Stage.Layers {
		if len(only) > 0 && !slices.Contains(only, lc.Effect) {
			continue
		}
		blend, err := pipeline.ParseBlend(lc.Blend)
		if err != nil {
			s.log.Error("layer skipped", "layer", lc.Effect, "error", err)
			continue
		}
		layer := Layer{Z: lc.Z, Blend: blend, Opacity: float32(lc.Opacity)}
		_, err = s.Mount(lc.Effect, layer, func(sched pipeline.Scheduler) (*pipeline.Pipeline, error) {
			return effects.New(lc.Effect, cfg, deps, sched, s.prof)
		})
		if err == nil {
			n++
		}
	}
	return n
}
