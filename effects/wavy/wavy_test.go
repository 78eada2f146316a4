package wavy

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
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

var rate = clock.Rate{RefFPS: 60, Independent: true}

func newEffect(t *testing.T, mutate func(*config.WavyConfig)) *Effect {
	t.Helper()
	cfg := config.Cfg().Wavy
	if mutate != nil {
		mutate(&cfg)
	}
	e, err := New(cfg, 3, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Init(); err != nil {
		t.Fatal(err)
	}
	return e
}

func frame(w, h int, logical float64) *pipeline.Frame {
	s := input.NewSampler(input.Options{Rate: rate})
	s.SetBounds(input.Bounds{Width: logical, Height: logical * float64(h) / float64(w)})
	return &pipeline.Frame{
		DT: 1.0 / 60, Width: w, Height: h, Input: s, Rate: rate,
		Logical: pipeline.Size{Width: logical, Height: logical * float64(h) / float64(w), DPR: 1},
	}
}

func TestHeadlineRasterized(t *testing.T) {
	e := newEffect(t, nil)
	e.Resize(320, 180)
	layer := e.Layer()
	if layer == nil || layer.Energy() == 0 {
		t.Fatal("headline drew nothing")
	}
	for i := 0; i < len(layer.Pix); i += 4 {
		a := layer.Pix[i+3]
		if a < 0 || a > 1 || layer.Pix[i] > a+1e-6 {
			t.Fatalf("pixel %d not premultiplied: %v", i/4, layer.Pix[i:i+4])
		}
	}
	// Left-aligned first line, right-aligned second: ink on both sides
	var left, right float32
	for y := 0; y < 180; y++ {
		for x := 0; x < 160; x++ {
			left += layer.At(x, y)[3]
			right += layer.At(x+160, y)[3]
		}
	}
	if left == 0 || right == 0 {
		t.Errorf("ink left %v right %v, want both halves inked", left, right)
	}
}

func TestBreakpointSwitchesLayout(t *testing.T) {
	e := newEffect(t, nil)
	e.Resize(320, 480)
	f := frame(320, 480, 1200)
	e.Step(f)
	wide := e.Layer().Checksum()
	if e.Mobile() {
		t.Fatal("wide surface selected the narrow layout")
	}

	f = frame(320, 480, 700)
	e.Step(f)
	if !e.Mobile() {
		t.Fatal("surface under the breakpoint kept the wide layout")
	}
	if e.Layer().Checksum() == wide {
		t.Error("narrow layout drew the same headline")
	}
	draws := e.Draws()
	e.Step(f)
	e.Layer()
	if e.Draws() != draws {
		t.Error("unchanged layout redrew the headline")
	}
}

func near(a, b [4]float32, tol float32) bool {
	for i := range a {
		if d := a[i] - b[i]; d > tol || d < -tol {
			return false
		}
	}
	return true
}

func TestDisplacementOnlyNearPointer(t *testing.T) {
	e := newEffect(t, func(c *config.WavyConfig) {
		c.BaseAmp = 0
		c.BoostAmp = 0.2
	})
	e.Resize(200, 100)
	f := frame(200, 100, 1000)
	f.Input.Sample(input.Event{Kind: input.Move, X: 0, Y: 0, Time: time.Unix(0, 0)})
	for i := 0; i < 300; i++ {
		e.Step(f)
		f.Time += f.DT
	}
	out := field.New(200, 100)
	e.Compose(f, out)
	layer := e.Layer()

	// Far corner from the pointer is untouched
	for y := 60; y < 100; y++ {
		for x := 150; x < 200; x++ {
			if !near(out.At(x, y), layer.At(x, y), 1e-5) {
				t.Fatalf("pixel (%d,%d) displaced far from the pointer", x, y)
			}
		}
	}
	changed := false
	for y := 0; y < 30 && !changed; y++ {
		for x := 0; x < 60; x++ {
			if !near(out.At(x, y), layer.At(x, y), 1e-3) {
				changed = true
				break
			}
		}
	}
	if !changed {
		t.Error("no displacement near the pointer")
	}
}

func TestMissingFontFallsBack(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Cfg().Wavy
	cfg.Font = filepath.Join(t.TempDir(), "missing.otf")
	e, err := New(cfg, 1, slog.New(slog.NewTextHandler(&buf, nil)))
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Init(); err != nil {
		t.Fatalf("Init with missing font: %v", err)
	}
	if !strings.Contains(buf.String(), "font load failed") {
		t.Error("missing font not logged")
	}
	e.Resize(100, 60)
	if e.Layer().Energy() == 0 {
		t.Error("fallback font drew nothing")
	}
}
