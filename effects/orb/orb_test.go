package orb

import (
	"testing"

	"github.com/Ceep-LLC/mivra.graphics/config"
	"github.com/Ceep-LLC/mivra.graphics/field"
	"github.com/Ceep-LLC/mivra.graphics/pipeline"
)

func init() {
	config.MustInit("")
}

func newEffect(t *testing.T, mutate func(*config.OrbConfig)) *Effect {
	t.Helper()
	cfg := config.Cfg().Orb
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg, 9)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestSphereOnBlack(t *testing.T) {
	e := newEffect(t, nil)
	e.Resize(64, 48)
	f := &pipeline.Frame{Width: 64, Height: 48}
	out := field.New(64, 48)
	e.Step(f)
	e.Compose(f, out)

	if e.base.At(32, 24)[3] != 1 {
		t.Error("centre ray missed the sphere")
	}
	if e.base.At(0, 0)[3] != 0 {
		t.Error("corner ray hit the sphere")
	}
	centre := out.At(32, 24)
	if centre[0]+centre[1]+centre[2] < 0.3 {
		t.Errorf("centre too dark: %v", centre)
	}
	corner := out.At(0, 0)
	if corner[0]+corner[1]+corner[2] > 0.01 {
		t.Errorf("corner not black: %v", corner)
	}
	for i := 3; i < len(out.Pix); i += 4 {
		if out.Pix[i] != 1 {
			t.Fatalf("pixel %d alpha = %v", i/4, out.Pix[i])
		}
	}
}

func TestMarchCachedUntilResize(t *testing.T) {
	e := newEffect(t, nil)
	e.Resize(32, 24)
	f := &pipeline.Frame{Width: 32, Height: 24}
	out := field.New(32, 24)
	for i := 0; i < 5; i++ {
		f.Time = float64(i) / 60
		e.Step(f)
		e.Compose(f, out)
	}
	if e.Renders() != 1 {
		t.Errorf("renders after 5 frames = %d, want 1", e.Renders())
	}
	e.Resize(40, 30)
	e.Compose(&pipeline.Frame{Width: 40, Height: 30}, field.New(40, 30))
	if e.Renders() != 2 {
		t.Errorf("renders after resize = %d, want 2", e.Renders())
	}
}

func TestTwinkleBounded(t *testing.T) {
	e := newEffect(t, func(c *config.OrbConfig) { c.NoiseAmp = 0.2 })
	e.Resize(32, 24)
	f := &pipeline.Frame{Width: 32, Height: 24}
	a, b := field.New(32, 24), field.New(32, 24)
	e.Compose(f, a)
	f.Time = 3
	e.Step(f)
	e.Compose(f, b)

	base := e.base.At(16, 12)
	for _, out := range []*field.Field{a, b} {
		got := out.At(16, 12)
		for c := 0; c < 3; c++ {
			want := pipeline.Clamp01(base[c])
			if d := got[c] - want; d > 0.1+1e-6 || d < -0.1-1e-6 {
				t.Errorf("twinkle moved channel %d by %v, want within ±0.1", c, d)
			}
		}
	}
	if a.Checksum() == b.Checksum() {
		t.Error("twinkle did not change over time")
	}
}
