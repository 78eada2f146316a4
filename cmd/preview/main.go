// Effect preview tool - runs one effect live with a slider panel for its
// parameters. Changing a slider rebuilds the layer with the new values.
//
// Usage: go run ./cmd/preview -effect metaglow
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/mlange-42/ark/ecs"

	"github.com/Ceep-LLC/mivra.graphics/config"
	"github.com/Ceep-LLC/mivra.graphics/effects"
	"github.com/Ceep-LLC/mivra.graphics/effects/presshold"
	"github.com/Ceep-LLC/mivra.graphics/host"
	"github.com/Ceep-LLC/mivra.graphics/pipeline"
	"github.com/Ceep-LLC/mivra.graphics/stage"
	"github.com/Ceep-LLC/mivra.graphics/telemetry"
)

const panelWidth = 300

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	effect := flag.String("effect", "metaglow", "Effect to preview")
	seed := flag.Int64("seed", 1, "Effect seed")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	ks := knobs(cfg, *effect)
	if ks == nil {
		fmt.Fprintf(os.Stderr, "unknown effect %q; one of %v\n", *effect, effects.Names())
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	st := stage.New(time.Now(), stage.Options{Background: pipeline.Hex(cfg.Stage.Background), Logger: logger})
	defer st.Dispose()

	deps := effects.Deps{
		Seed:       *seed,
		Logger:     logger,
		FirstVisit: true,
		Sink: presshold.SinkFunc(func(c presshold.Completion) {
			logger.Info("transition ready", "destination", c.Destination, "keyboard", c.Keyboard)
		}),
	}
	var layer ecs.Entity
	mounted := false
	mount := func() {
		if mounted {
			st.Unmount(layer)
		}
		var err error
		layer, err = st.Mount(*effect, stage.Layer{}, func(sched pipeline.Scheduler) (*pipeline.Pipeline, error) {
			return effects.New(*effect, cfg, deps, sched, nil)
		})
		mounted = err == nil
	}
	mount()

	values := make([]float32, len(ks))
	for i, k := range ks {
		values[i] = float32(*k.v)
	}

	overlay := func() {
		w := float32(rl.GetScreenWidth())
		x, y := w-panelWidth, float32(10)
		rl.DrawRectangle(int32(x)-10, 0, panelWidth+10, int32(40+len(ks)*40), rl.Fade(rl.Black, 0.6))
		rl.DrawText(*effect, int32(x), int32(y), 20, rl.RayWhite)
		y += 30
		changed := false
		for i, k := range ks {
			rl.DrawText(fmt.Sprintf("%s  %.3f", k.label, values[i]), int32(x), int32(y), 14, rl.LightGray)
			y += 16
			v := gui.SliderBar(rl.Rectangle{X: x, Y: y, Width: panelWidth - 30, Height: 16}, "", "", values[i], float32(k.min), float32(k.max))
			if v != values[i] {
				values[i] = v
				*k.v = float64(v)
				changed = true
			}
			y += 24
		}
		if changed {
			mount()
		}
	}

	host.Window(st, host.WindowOptions{
		Title:     "Effect Preview",
		Width:     cfg.Screen.Width,
		Height:    cfg.Screen.Height,
		TargetFPS: cfg.Screen.TargetFPS,
		DPR:       cfg.Screen.DPR,
		HUD:       true,
		Perf:      telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		Logger:    logger,
		Overlay:   overlay,
	})
}
