// Frame dump tool - renders an effect headlessly and writes frames to PNG.
//
// Usage: go run ./cmd/framedump -effect glass -frames 120 -out dump
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Ceep-LLC/mivra.graphics/config"
	"github.com/Ceep-LLC/mivra.graphics/effects"
	"github.com/Ceep-LLC/mivra.graphics/host"
	"github.com/Ceep-LLC/mivra.graphics/pipeline"
	"github.com/Ceep-LLC/mivra.graphics/stage"
	"github.com/Ceep-LLC/mivra.graphics/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	effect := flag.String("effect", "ink", "Comma-separated effects, bottom layer first")
	outDir := flag.String("out", "framedump", "Output directory")
	width := flag.Int("width", 640, "Logical width")
	height := flag.Int("height", 360, "Logical height")
	dpr := flag.Float64("dpr", 1, "Device pixel ratio")
	frames := flag.Int("frames", 60, "Frames to render")
	every := flag.Int("every", 0, "Write every Nth frame (0 = last only)")
	seed := flag.Int64("seed", 1, "Effect seed")
	orbit := flag.Bool("orbit", true, "Drive the pointer around an ellipse")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	om, err := telemetry.NewOutputManager(*outDir)
	if err != nil {
		slog.Error("failed to create output", "error", err)
		os.Exit(1)
	}
	defer om.Close()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st := stage.New(start, stage.Options{Background: pipeline.Hex(cfg.Stage.Background), Workers: cfg.Pipeline.Workers, Logger: logger})
	defer st.Dispose()
	size := pipeline.Size{Width: float64(*width), Height: float64(*height), DPR: *dpr}
	st.Resize(size)

	names := strings.Split(*effect, ",")
	deps := effects.Deps{Seed: *seed, Logger: logger}
	mounted := 0
	for z, name := range names {
		_, err := st.Mount(name, stage.Layer{Z: z}, func(sched pipeline.Scheduler) (*pipeline.Pipeline, error) {
			return effects.New(name, cfg, deps, sched, nil)
		})
		if err == nil {
			mounted++
		}
	}
	if mounted == 0 {
		fmt.Fprintf(os.Stderr, "no effect mounted; available: %v\n", effects.Names())
		os.Exit(1)
	}

	opts := host.HeadlessOptions{
		Frames:    *frames,
		Interval:  cfg.Derived.FrameTime,
		DumpEvery: *every,
		Output:    om,
		Logger:    logger,
	}
	if *orbit {
		opts.Script = host.Orbit(size, 4*time.Second, *frames/3)
	}
	res, err := host.Headless(context.Background(), st, start, opts)
	if err != nil {
		slog.Error("render failed", "error", err)
		os.Exit(1)
	}
	for _, p := range res.Dumps {
		fmt.Println(p)
	}
}
