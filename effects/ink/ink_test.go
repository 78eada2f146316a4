package ink

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/Ceep-LLC/mivra.graphics/clock"
	"github.com/Ceep-LLC/mivra.graphics/config"
	"github.com/Ceep-LLC/mivra.graphics/field"
	"github.com/Ceep-LLC/mivra.graphics/input"
	"github.com/Ceep-LLC/mivra.graphics/pipeline"
)

func init() {
	config.MustInit("")
}

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEffect(t *testing.T, mutate func(*config.InkConfig)) *Effect {
	t.Helper()
	cfg := config.Cfg().Ink
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg, 7, quiet())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func newPipeline(t *testing.T, e *Effect, sched pipeline.Scheduler) *pipeline.Pipeline {
	t.Helper()
	p, err := pipeline.New(e, sched, pipeline.Options{
		DPRCeiling: 1,
		MaxStep:    0.025,
		Rate:       clock.Rate{RefFPS: 60, Independent: true},
		Workers:    2,
		Logger:     quiet(),
	})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	return p
}

func TestSplatAtCentreAfterOneFrame(t *testing.T) {
	const radius = 10.0
	e := newEffect(t, func(c *config.InkConfig) { c.SplatRadius = radius })
	sched := pipeline.NewManualScheduler(t0)
	p := newPipeline(t, e, sched)
	defer p.Dispose()

	// Odd size so the centre falls on a pixel centre
	if err := p.Resize(pipeline.Size{Width: 101, Height: 101, DPR: 1}); err != nil {
		t.Fatal(err)
	}
	p.Dispatch(input.Event{Kind: input.Down, X: 50.5, Y: 50.5, Time: t0})
	p.Start()
	sched.Flush(t0.Add(time.Second / 60))

	f := e.Field()
	if f == nil {
		t.Fatal("no readable field after one frame")
	}
	strength := float32(config.Cfg().Ink.Strength)
	peak := f.At(50, 50)[3]
	if math.Abs(float64(peak-strength)) > 1e-5 {
		t.Errorf("peak = %v, want base strength %v", peak, strength)
	}

	// Gaussian profile along the row through the centre
	for _, d := range []int{1, 5, 10, 20} {
		want := float64(strength) * math.Exp(-float64(d*d)/(2*radius*radius))
		got := float64(f.At(50+d, 50)[3])
		if math.Abs(got-want) > 1e-4 {
			t.Errorf("density at %dpx = %v, want %v", d, got, want)
		}
		if left := float64(f.At(50-d, 50)[3]); math.Abs(left-got) > 1e-6 {
			t.Errorf("asymmetric at ±%dpx: %v vs %v", d, left, got)
		}
	}

	// Nothing beyond three radii
	for y := 0; y < f.H; y++ {
		for x := 0; x < f.W; x++ {
			dx, dy := float64(x)-50, float64(y)-50
			if math.Hypot(dx, dy) > 3*radius+0.5 && f.At(x, y)[3] != 0 {
				t.Fatalf("density %v at (%d,%d), beyond 3r", f.At(x, y)[3], x, y)
			}
		}
	}
}

func TestEnergyDecaysToOnePercent(t *testing.T) {
	e := newEffect(t, func(c *config.InkConfig) {
		c.Decay = 0.03
		c.SplatRadius = 6
	})
	if err := e.Resize(64, 48); err != nil {
		t.Fatal(err)
	}
	s := input.NewSampler(input.Options{Rate: clock.Rate{RefFPS: 60, Independent: true}})
	s.SetBounds(input.Bounds{Width: 64, Height: 48})
	frame := &pipeline.Frame{
		DT: 1.0 / 60, Width: 64, Height: 48, PixelScale: 1,
		Input: s, Rate: clock.Rate{RefFPS: 60, Independent: true},
	}

	// A few strokes, including one against the edge
	now := t0
	for _, pt := range [][2]float64{{10, 10}, {32, 24}, {63, 47}, {40, 5}} {
		s.Sample(input.Event{Kind: input.Down, X: pt[0], Y: pt[1], Time: now})
		s.Sample(input.Event{Kind: input.Up, X: pt[0], Y: pt[1], Time: now})
	}
	e.Step(frame)
	start := e.Field().Energy()
	if start <= 0 {
		t.Fatal("no energy injected")
	}

	// The frame bound assumes reference-rate frames; with frame-rate
	// independence it is really a bound on elapsed time (a zero-dt frame
	// decays nothing).
	prev := start
	frames := int(math.Ceil(math.Log(0.01) / math.Log(0.97)))
	for i := 1; i <= frames; i++ {
		frame.Time += frame.DT
		e.Step(frame)
		en := e.Field().Energy()
		if en > prev {
			t.Fatalf("frame %d: energy rose from %v to %v", i, prev, en)
		}
		prev = en
	}
	if prev > 0.01*start {
		t.Errorf("energy after %d frames = %v, want <= 1%% of %v", frames, prev, start)
	}
}

func TestStalledFrameMatchesClampedStep(t *testing.T) {
	run := func(gap time.Duration) uint64 {
		e := newEffect(t, func(c *config.InkConfig) { c.SplatRadius = 5 })
		sched := pipeline.NewManualScheduler(t0)
		p := newPipeline(t, e, sched)
		defer p.Dispose()
		p.Resize(pipeline.Size{Width: 40, Height: 30, DPR: 1})
		p.Dispatch(input.Event{Kind: input.Down, X: 20, Y: 15, Time: t0})
		p.Start()
		sched.Flush(t0.Add(time.Second / 60))
		sched.Flush(t0.Add(time.Second/60 + gap))
		if got := p.Clock().Elapsed(); got > 1.0/60+0.025+1e-9 {
			t.Errorf("elapsed %v after a %v gap exceeds the clamp", got, gap)
		}
		return e.Field().Checksum()
	}
	if stalled, clamped := run(5*time.Second), run(25*time.Millisecond); stalled != clamped {
		t.Errorf("5s stall checksum %x != clamped step checksum %x", stalled, clamped)
	}
}

func TestReadFieldUnchangedDuringStep(t *testing.T) {
	e := newEffect(t, nil)
	e.Resize(32, 32)
	s := input.NewSampler(input.Options{})
	s.SetBounds(input.Bounds{Width: 32, Height: 32})
	frame := &pipeline.Frame{DT: 1.0 / 60, Width: 32, Height: 32, PixelScale: 1, Input: s}

	for i := 0; i < 20; i++ {
		s.Sample(input.Event{Kind: input.Down, X: float64(i), Y: 16, Time: t0})
		read := e.Field()
		before := read.Checksum()
		e.Step(frame)
		if read.Checksum() != before {
			t.Fatalf("step %d wrote into the buffer it was reading", i)
		}
		if e.Field() == read {
			t.Fatalf("step %d did not swap", i)
		}
		frame.Time += frame.DT
	}
}

func TestSplatTruncatedAtEdges(t *testing.T) {
	f := field.New(8, 8)
	Inject(f, input.Splat{X: 0, Y: 0, Radius: 4, Color: [3]float32{1, 0, 0}, Strength: 1})
	if f.At(0, 0)[3] <= 0 {
		t.Error("corner splat injected nothing")
	}
	if f.At(0, 0)[0] != f.At(0, 0)[3] {
		t.Error("red channel should carry the full premultiplied colour")
	}
}

func TestComposeIsBoundedAndDark(t *testing.T) {
	e := newEffect(t, nil)
	e.Resize(16, 16)
	out := field.New(16, 16)
	frame := &pipeline.Frame{Width: 16, Height: 16}
	e.Compose(frame, out)
	if out.Energy() != 0 {
		t.Errorf("empty dye composed to non-zero output")
	}

	Inject(e.Field(), input.Splat{X: 8, Y: 8, Radius: 3, Color: [3]float32{1, 1, 1}, Strength: 50})
	e.Compose(frame, out)
	for i, v := range out.Pix {
		if v < 0 || math.IsNaN(float64(v)) {
			t.Fatalf("pixel channel %d = %v", i, v)
		}
	}
}

func TestBadPalette(t *testing.T) {
	cfg := config.Cfg().Ink
	cfg.ColorA = "blue-ish"
	if _, err := New(cfg, 1, quiet()); err == nil {
		t.Error("unparseable colour accepted")
	}
}
