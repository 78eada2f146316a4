package pipeline

import (
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Ceep-LLC/mivra.graphics/field"
	"github.com/Ceep-LLC/mivra.graphics/input"
)

func TestManualSchedulerDefersNestedRequests(t *testing.T) {
	s := NewManualScheduler(t0)
	var order []int
	s.Request(func(time.Time) {
		order = append(order, 1)
		s.Request(func(time.Time) { order = append(order, 3) })
	})
	s.Request(func(time.Time) { order = append(order, 2) })

	if n := s.Flush(t0.Add(frame60)); n != 2 {
		t.Fatalf("first flush ran %d, want 2", n)
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("order after first flush = %v, want [1 2]", order)
	}
	s.Flush(t0.Add(2 * frame60))
	if len(order) != 3 || order[2] != 3 {
		t.Errorf("nested request order = %v, want it on the second flush", order)
	}
}

func TestManualSchedulerCancelInsideFlush(t *testing.T) {
	s := NewManualScheduler(t0)
	ran := false
	var second uint64
	s.Request(func(time.Time) { s.Cancel(second) })
	second = s.Request(func(time.Time) { ran = true })
	s.Flush(t0)
	if ran {
		t.Error("callback cancelled earlier in the same flush still ran")
	}
	if s.Pending() != 0 {
		t.Errorf("pending = %d, want 0", s.Pending())
	}
}

func TestSubscriptionsReleaseLIFOOnce(t *testing.T) {
	var subs Subscriptions
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		subs.Add(name, func() { order = append(order, name) })
	}
	if subs.Len() != 3 {
		t.Fatalf("len = %d, want 3", subs.Len())
	}
	if !subs.DisposeAll() {
		t.Fatal("first DisposeAll reported no-op")
	}
	if subs.DisposeAll() {
		t.Error("second DisposeAll ran again")
	}
	if len(order) != 3 || order[0] != "c" || order[2] != "a" {
		t.Errorf("release order = %v, want [c b a]", order)
	}

	late := false
	subs.Add("late", func() { late = true })
	if !late || subs.Len() != 0 {
		t.Error("subscription added after dispose must release immediately")
	}
}

func TestHubCancelAndOrder(t *testing.T) {
	h := NewHub()
	var got []int
	cancel1 := h.OnInput(func(input.Event) { got = append(got, 1) })
	h.OnInput(func(input.Event) { got = append(got, 2) })
	h.OnVisibility(func(bool) {})

	h.EmitInput(input.Event{})
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("delivery order = %v, want [1 2]", got)
	}
	cancel1()
	cancel1()
	got = nil
	h.EmitInput(input.Event{})
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("after cancel = %v, want [2]", got)
	}
	if h.Listeners() != 2 {
		t.Errorf("listeners = %d, want 2", h.Listeners())
	}
}

func TestWorkersCoverEveryRowOnce(t *testing.T) {
	for _, n := range []int{1, 3, 8} {
		w := NewWorkers(n)
		for _, h := range []int{1, 63, 64, 200, 1001} {
			hits := make([]int32, h)
			w.Rows(h, func(y0, y1 int) {
				for y := y0; y < y1; y++ {
					atomic.AddInt32(&hits[y], 1)
				}
			})
			for y, c := range hits {
				if c != 1 {
					t.Fatalf("workers=%d h=%d: row %d visited %d times", n, h, y, c)
				}
			}
		}
		w.Stop()
		w.Stop()
	}
}

func TestWorkersPanicReachesCaller(t *testing.T) {
	w := NewWorkers(4)
	defer w.Stop()
	defer func() {
		if recover() == nil {
			t.Error("panic in a worker was swallowed")
		}
	}()
	w.Rows(256, func(y0, y1 int) {
		if y0 == 0 {
			panic("row failure")
		}
	})
}

func TestBlendModes(t *testing.T) {
	dst := func() *field.Field {
		f := field.New(1, 1)
		f.Set(0, 0, [4]float32{0.5, 0.5, 0.5, 1})
		return f
	}
	src := field.New(1, 1)
	src.Set(0, 0, [4]float32{0.25, 0, 0, 0.5})

	tests := []struct {
		mode Blend
		want [4]float32
	}{
		{BlendNormal, [4]float32{0.5, 0.25, 0.25, 1}},
		{BlendAdditive, [4]float32{0.75, 0.5, 0.5, 1}},
		{BlendScreen, [4]float32{0.625, 0.5, 0.5, 1}},
		{BlendDifference, [4]float32{0.25, 0.5, 0.5, 1}},
	}
	for _, tt := range tests {
		d := dst()
		Composite(d, src, tt.mode, 1, nil)
		got := d.At(0, 0)
		for c := range got {
			if math.Abs(float64(got[c]-tt.want[c])) > 1e-6 {
				t.Errorf("%v: got %v, want %v", tt.mode, got, tt.want)
				break
			}
		}
	}

	// Zero opacity leaves the destination untouched
	d := dst()
	Composite(d, src, BlendAdditive, 0, nil)
	if d.At(0, 0) != [4]float32{0.5, 0.5, 0.5, 1} {
		t.Error("zero opacity modified destination")
	}
}

func TestCompositeResamples(t *testing.T) {
	src := field.New(2, 2)
	src.Fill([4]float32{0.2, 0.2, 0.2, 0.2})
	dst := field.New(8, 6)
	Composite(dst, src, BlendAdditive, 1, NewWorkers(1))
	for y := 0; y < dst.H; y++ {
		for x := 0; x < dst.W; x++ {
			if v := dst.At(x, y); math.Abs(float64(v[0]-0.2)) > 1e-6 {
				t.Fatalf("pixel (%d,%d) = %v, want 0.2", x, y, v)
			}
		}
	}
}

func TestParseBlend(t *testing.T) {
	for in, want := range map[string]Blend{"": BlendNormal, "normal": BlendNormal, "additive": BlendAdditive, "screen": BlendScreen, "difference": BlendDifference} {
		got, err := ParseBlend(in)
		if err != nil || got != want {
			t.Errorf("ParseBlend(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseBlend("multiply"); err == nil {
		t.Error("unknown blend accepted")
	}
}

func TestToneCurves(t *testing.T) {
	if Reinhard(1) != 0.5 || Reinhard(-1) != 0 {
		t.Error("Reinhard")
	}
	prev := float32(-1)
	for x := float32(0); x < 8; x += 0.25 {
		v := ACES(x)
		if v < prev || v < 0 || v > 1 {
			t.Fatalf("ACES(%v) = %v not monotone in [0,1]", x, v)
		}
		prev = v
	}
	if Smoothstep(1, 0, 0) != 1 || Smoothstep(1, 0, 1) != 0 {
		t.Error("falling smoothstep")
	}
}

func TestVignette(t *testing.T) {
	centre := Vignette(50, 50, 100, 100, 1.2, 0.2)
	corner := Vignette(0, 0, 100, 100, 1.2, 0.2)
	if centre != 1 {
		t.Errorf("centre vignette = %v, want 1", centre)
	}
	if corner >= centre {
		t.Errorf("corner %v not darker than centre %v", corner, centre)
	}
}

func TestHex(t *testing.T) {
	c := Hex("#ff0000")
	if c != (RGB{1, 0, 0}) {
		t.Errorf("Hex(#ff0000) = %v", c)
	}
	if _, err := ParseHex("nope"); err == nil {
		t.Error("bad hex accepted")
	}
}

func TestApproach(t *testing.T) {
	v := 0.0
	for i := 0; i < 30; i++ {
		v = Approach(v, 1, 1.0/60, 0.5)
	}
	if math.Abs(v-(1-math.Exp(-3))) > 1e-9 {
		t.Errorf("after the full duration v = %v, want ~95%%", v)
	}
	// Two half steps equal one whole step
	a := Approach(Approach(0, 1, 0.05, 0.3), 1, 0.05, 0.3)
	if b := Approach(0, 1, 0.1, 0.3); math.Abs(a-b) > 1e-12 {
		t.Errorf("split steps %v != single step %v", a, b)
	}
	if Approach(0.2, 1, 0.01, 0) != 1 {
		t.Error("zero duration should snap")
	}
}
