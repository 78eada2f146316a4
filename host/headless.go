// Package host drives a stage: headless at a fixed simulated frame rate, or
// in a raylib window with live input.
package host

import (
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/Ceep-LLC/mivra.graphics/field"
	"github.com/Ceep-LLC/mivra.graphics/input"
	"github.com/Ceep-LLC/mivra.graphics/pipeline"
	"github.com/Ceep-LLC/mivra.graphics/stage"
	"github.com/Ceep-LLC/mivra.graphics/telemetry"
)

// Script returns the raw input events to dispatch before frame i.
type Script func(i int, now time.Time) []input.Event

// HeadlessOptions configures a headless run.
type HeadlessOptions struct {
	Frames    int
	Interval  time.Duration // simulated time between frames
	Script    Script
	DumpEvery int // write a PNG every N frames; 0 writes only the last
	Output    *telemetry.OutputManager
	Perf      *telemetry.PerfCollector
	LogEvery  int // frames between perf log lines, 0 disables
	Logger    *slog.Logger
}

// Result summarizes a headless run.
type Result struct {
	Frames int
	Last   *field.Field
	Dumps  []string
}

// Headless renders opts.Frames frames through st. Frame times advance by
// exactly Interval from start, so runs are reproducible.
func Headless(ctx context.Context, st *stage.Stage, start time.Time, opts HeadlessOptions) (Result, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second / 60
	}

	var res Result
	var prev time.Time
	for i := 1; i <= opts.Frames; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		now := start.Add(time.Duration(i) * opts.Interval)
		if opts.Script != nil {
			for _, ev := range opts.Script(i, now) {
				st.Dispatch(ev)
			}
		}

		if opts.Perf != nil {
			opts.Perf.StartFrame()
		}
		out := st.Frame(now)
		if opts.Perf != nil {
			opts.Perf.EndFrame()
		}
		res.Frames = i
		res.Last = out

		stats := telemetry.FrameStats{Frame: uint64(i), SimTime: now.Sub(start).Seconds(), Layers: len(st.Layers())}
		if !prev.IsZero() {
			stats.DTMS = float64(now.Sub(prev)) / float64(time.Millisecond)
		}
		prev = now
		telemetry.Measure(&stats, out)
		if err := opts.Output.WriteFrame(stats); err != nil {
			return res, err
		}

		if opts.Output != nil && out != nil && (i == opts.Frames || (opts.DumpEvery > 0 && i%opts.DumpEvery == 0)) {
			path := opts.Output.Path(fmt.Sprintf("frame_%05d.png", i))
			if err := WritePNG(path, out); err != nil {
				return res, err
			}
			res.Dumps = append(res.Dumps, path)
		}

		if opts.Perf != nil && opts.LogEvery > 0 && i%opts.LogEvery == 0 {
			ps := opts.Perf.Stats()
			log.Info("perf", "frame", i, "stats", ps)
			if err := opts.Output.WritePerf(ps, int64(i)); err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

// WritePNG encodes f as an 8-bit PNG at path.
func WritePNG(path string, f *field.Field) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := png.Encode(file, f.Image()); err != nil {
		file.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return file.Close()
}

// Orbit is a script that moves the pointer around an ellipse over sz, one
// lap per period, pressing at the first frame and releasing after hold.
// It stands in for a visitor in headless runs.
func Orbit(sz pipeline.Size, period time.Duration, hold int) Script {
	var t0 time.Time
	return func(i int, now time.Time) []input.Event {
		if t0.IsZero() {
			t0 = now
		}
		a := 2 * math.Pi * float64(now.Sub(t0)) / float64(period)
		x := sz.Width * (0.5 + 0.3*math.Cos(a))
		y := sz.Height * (0.5 + 0.3*math.Sin(a))
		evs := []input.Event{{Kind: input.Move, X: x, Y: y, Time: now}}
		switch i {
		case 1:
			evs = append(evs, input.Event{Kind: input.Down, X: x, Y: y, Time: now})
		case 1 + hold:
			evs = append(evs, input.Event{Kind: input.Up, X: x, Y: y, Time: now})
		}
		return evs
	}
}
