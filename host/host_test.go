package host

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Ceep-LLC/mivra.graphics/config"
	"github.com/Ceep-LLC/mivra.graphics/effects"
	"github.com/Ceep-LLC/mivra.graphics/effects/presshold"
	"github.com/Ceep-LLC/mivra.graphics/input"
	"github.com/Ceep-LLC/mivra.graphics/pipeline"
	"github.com/Ceep-LLC/mivra.graphics/stage"
	"github.com/Ceep-LLC/mivra.graphics/telemetry"
)

func init() {
	config.MustInit("")
}

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTranslatePointer(t *testing.T) {
	prev := pointer{X: 10, Y: 10, Focused: true}

	evs := translate(prev, pointer{X: 12, Y: 10, Down: true, Focused: true}, t0)
	if len(evs) != 2 || evs[0].Kind != input.Move || evs[1].Kind != input.Down {
		t.Fatalf("move+press = %v", evs)
	}
	if evs[1].X != 12 {
		t.Errorf("press at x=%v, want 12", evs[1].X)
	}

	if evs := translate(prev, prev, t0); len(evs) != 0 {
		t.Errorf("idle poll produced %v", evs)
	}

	down := pointer{X: 10, Y: 10, Down: true, Focused: true}
	evs = translate(down, pointer{X: 10, Y: 10, Down: true}, t0)
	if len(evs) != 1 || evs[0].Kind != input.Cancel {
		t.Errorf("focus lost mid-press = %v, want cancel", evs)
	}
}

func TestTranslateKeys(t *testing.T) {
	prev := pointer{Focused: true}
	evs := translate(prev, pointer{Space: true, Focused: true}, t0)
	if len(evs) != 1 || evs[0].Kind != input.KeyDown || evs[0].Key != input.KeySpace {
		t.Fatalf("space press = %v", evs)
	}
	evs = translate(pointer{Enter: true, Focused: true}, prev, t0)
	if len(evs) != 1 || evs[0].Kind != input.KeyUp || evs[0].Key != input.KeyEnter {
		t.Errorf("enter release = %v", evs)
	}
}

func TestHeadlessRunWritesOutput(t *testing.T) {
	dir := t.TempDir()
	om, err := telemetry.NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Cfg()
	sz := pipeline.Size{Width: 32, Height: 24, DPR: 1}
	st := stage.New(t0, stage.Options{Background: pipeline.Hex(cfg.Stage.Background), Workers: 1, Logger: quiet()})
	defer st.Dispose()
	st.Resize(sz)
	if n := st.MountLayers(cfg, effects.Deps{Seed: 2, Logger: quiet()}, []string{"ink", "grain"}); n != 2 {
		t.Fatalf("mounted %d layers", n)
	}

	res, err := Headless(context.Background(), st, t0, HeadlessOptions{
		Frames:    6,
		Script:    Orbit(sz, time.Second, 2),
		DumpEvery: 3,
		Output:    om,
		Perf:      telemetry.NewPerfCollector(4),
		LogEvery:  3,
		Logger:    quiet(),
	})
	if err != nil {
		t.Fatal(err)
	}
	om.Close()

	if res.Frames != 6 || res.Last == nil {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Dumps) != 2 {
		t.Errorf("dumps = %v, want frames 3 and 6", res.Dumps)
	}
	for _, p := range res.Dumps {
		if _, err := os.Stat(p); err != nil {
			t.Error(err)
		}
	}
	data, err := os.ReadFile(filepath.Join(dir, "frames.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(strings.TrimSpace(string(data)), "\n"); n != 6 {
		t.Errorf("frames.csv has %d records, want 6", n)
	}
}

func TestHeadlessDeliversPressHold(t *testing.T) {
	cfg := config.Cfg()
	sink := make(presshold.ChanSink, 1)
	sz := pipeline.Size{Width: 40, Height: 40, DPR: 1}
	st := stage.New(t0, stage.Options{Workers: 1, Logger: quiet()})
	defer st.Dispose()
	st.Resize(sz)
	st.MountLayers(cfg, effects.Deps{Logger: quiet(), Sink: sink}, []string{"presshold"})

	// Press for well over the hold duration
	frames := int(cfg.PressHold.HoldSeconds*60) + 10
	_, err := Headless(context.Background(), st, t0, HeadlessOptions{
		Frames: frames,
		Script: Orbit(sz, 10*time.Second, frames),
		Logger: quiet(),
	})
	if err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-sink:
		if c.Destination != cfg.PressHold.Destination {
			t.Errorf("destination = %q", c.Destination)
		}
	default:
		t.Error("hold never completed")
	}
}

func TestHeadlessStopsOnCancel(t *testing.T) {
	st := stage.New(t0, stage.Options{Workers: 1, Logger: quiet()})
	defer st.Dispose()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := Headless(ctx, st, t0, HeadlessOptions{Frames: 10})
	if err == nil || res.Frames != 0 {
		t.Errorf("cancelled run = %d frames, err %v", res.Frames, err)
	}
}
