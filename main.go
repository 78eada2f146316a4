package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/Ceep-LLC/mivra.graphics/config"
	"github.com/Ceep-LLC/mivra.graphics/effects"
	"github.com/Ceep-LLC/mivra.graphics/effects/presshold"
	"github.com/Ceep-LLC/mivra.graphics/host"
	"github.com/Ceep-LLC/mivra.graphics/pipeline"
	"github.com/Ceep-LLC/mivra.graphics/stage"
	"github.com/Ceep-LLC/mivra.graphics/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Render without a window")
	frames := flag.Int("frames", 0, "Stop after N frames (0 = until closed; headless defaults to 600)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, config snapshot and frame dumps")
	layers := flag.String("layers", "", "Comma-separated effects to mount (empty = every configured layer)")
	dpr := flag.Float64("dpr", 0, "Device pixel ratio (0 = use config / window)")
	seed := flag.Int64("seed", 0, "Effect seed (0 = time-based)")
	logStats := flag.Bool("log-stats", false, "Log frame timing via slog")
	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ratio := cfg.Screen.DPR
	if *dpr > 0 {
		ratio = *dpr
	}
	var only []string
	if *layers != "" {
		only = strings.Split(*layers, ",")
	}

	om, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	defer om.Close()
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
	logEvery := 0
	if *logStats {
		logEvery = cfg.Telemetry.LogEvery
	}

	// Completed press-holds are where the site would navigate
	completions := make(presshold.ChanSink, 1)
	deps := effects.Deps{Seed: rngSeed, Logger: logger, Sink: completions, FirstVisit: true}

	start := time.Now()
	if *headless {
		start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	st := stage.New(start, stage.Options{
		Background: pipeline.Hex(cfg.Stage.Background),
		Workers:    cfg.Pipeline.Workers,
		Logger:     logger,
		Profiler:   perf,
	})
	defer st.Dispose()

	if *headless {
		if ratio <= 0 {
			ratio = 1
		}
		size := pipeline.Size{Width: float64(cfg.Screen.Width), Height: float64(cfg.Screen.Height), DPR: ratio}
		st.Resize(size)
		n := st.MountLayers(cfg, deps, only)
		if n == 0 {
			slog.Error("no layers mounted", "available", effects.Names())
			os.Exit(1)
		}
		count := *frames
		if count <= 0 {
			count = 600
		}
		slog.Info("starting headless run", "seed", rngSeed, "frames", count, "layers", st.Layers())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		res, err := host.Headless(ctx, st, start, host.HeadlessOptions{
			Frames:   count,
			Interval: cfg.Derived.FrameTime,
			Script:   host.Orbit(size, 6*time.Second, int(2*cfg.PressHold.HoldSeconds*float64(cfg.Screen.TargetFPS))),
			Output:   om,
			Perf:     perf,
			LogEvery: logEvery,
			Logger:   logger,
		})
		drain(completions)
		if err != nil {
			slog.Error("headless run stopped", "frames", res.Frames, "error", err)
			return
		}
		slog.Info("headless run complete", "frames", res.Frames, "dumps", len(res.Dumps))
		return
	}

	if n := st.MountLayers(cfg, deps, only); n == 0 {
		slog.Error("no layers mounted", "available", effects.Names())
		os.Exit(1)
	}
	go func() {
		for c := range completions {
			slog.Info("transition ready", "destination", c.Destination, "keyboard", c.Keyboard)
		}
	}()
	host.Window(st, host.WindowOptions{
		Title:     "mivra",
		Width:     cfg.Screen.Width,
		Height:    cfg.Screen.Height,
		TargetFPS: cfg.Screen.TargetFPS,
		DPR:       ratio,
		MaxFrames: *frames,
		HUD:       *logStats,
		Perf:      perf,
		LogEvery:  logEvery,
		Logger:    logger,
	})
}

// drain logs completions delivered during a headless run.
func drain(c presshold.ChanSink) {
	for {
		select {
		case v := <-c:
			slog.Info("transition ready", "destination", v.Destination, "at", v.At)
		default:
			return
		}
	}
}
