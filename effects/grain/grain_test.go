package grain

import (
	"testing"

	"github.com/Ceep-LLC/mivra.graphics/clock"
	"github.com/Ceep-LLC/mivra.graphics/config"
	"github.com/Ceep-LLC/mivra.graphics/field"
	"github.com/Ceep-LLC/mivra.graphics/pipeline"
)

func init() {
	config.MustInit("")
}

func frame(independent bool, dt float64) *pipeline.Frame {
	return &pipeline.Frame{DT: dt, Width: 40, Height: 30, Rate: clock.Rate{RefFPS: 60, Independent: independent}}
}

func TestRefreshCadence(t *testing.T) {
	cfg := config.Cfg().Grain
	cfg.Every = 3

	fixed := New(cfg, 1)
	fixed.Resize(40, 30)
	f := frame(false, 1.0/144)
	for i := 0; i < 9; i++ {
		fixed.Step(f)
	}
	if fixed.Refreshes() != 3 {
		t.Errorf("per-frame cadence refreshes = %d, want 3", fixed.Refreshes())
	}

	// At 120 Hz a 3-reference-frame cadence refreshes every 6 frames
	timed := New(cfg, 1)
	timed.Resize(40, 30)
	f = frame(true, 1.0/120)
	for i := 0; i < 24; i++ {
		timed.Step(f)
	}
	if timed.Refreshes() != 4 {
		t.Errorf("time-based cadence refreshes = %d, want 4", timed.Refreshes())
	}
}

func TestGrainIsSeededAndBounded(t *testing.T) {
	cfg := config.Cfg().Grain
	run := func() *field.Field {
		e := New(cfg, 42)
		e.Resize(40, 30)
		f := frame(false, 1.0/60)
		for i := 0; i < 10; i++ {
			e.Step(f)
		}
		out := field.New(40, 30)
		e.Compose(f, out)
		return out
	}
	a, b := run(), run()
	if a.Checksum() != b.Checksum() {
		t.Error("same seed produced different grain")
	}
	if a.Energy() == 0 {
		t.Fatal("no grain drawn")
	}
	for i := 0; i < len(a.Pix); i += 4 {
		alpha := a.Pix[i+3]
		if alpha < 0 || alpha > 1 || a.Pix[i] > alpha+1e-6 {
			t.Fatalf("pixel %d not premultiplied in range: %v", i/4, a.Pix[i:i+4])
		}
	}
}

func TestFadeWithoutRefresh(t *testing.T) {
	cfg := config.Cfg().Grain
	cfg.Density = 0
	e := New(cfg, 1)
	e.Resize(4, 4)
	e.Field().Fill([4]float32{0.5, 0.5, 0.5, 0.5})
	f := frame(false, 1.0/60)
	for i := 0; i < cfg.Every; i++ {
		e.Step(f)
	}
	got := e.Field().At(0, 0)[3]
	want := float32(0.5 * (1 - cfg.Fade))
	if got != want {
		t.Errorf("faded alpha = %v, want %v", got, want)
	}
}
