package noise

import (
	"math"
	"testing"
)

func TestValueRange(t *testing.T) {
	v := NewValue(42)
	for i := 0; i < 500; i++ {
		x := float32(i) * 0.173
		y := float32(i) * 0.311
		n := v.At(x, y)
		if n < 0 || n >= 1 {
			t.Fatalf("At(%v,%v) = %v, want [0,1)", x, y, n)
		}
		f := v.FBM2(x, y, 4)
		if f < 0 || f >= 1 {
			t.Fatalf("FBM2(%v,%v) = %v, want [0,1)", x, y, f)
		}
	}
}

func TestValueDeterministic(t *testing.T) {
	a := NewValue(7)
	b := NewValue(7)
	c := NewValue(8)
	if a.At(1.3, 2.7) != b.At(1.3, 2.7) {
		t.Error("same seed should give same value")
	}
	same := 0
	for i := 0; i < 20; i++ {
		p := float32(i) + 0.5
		if a.At(p, p) == c.At(p, p) {
			same++
		}
	}
	if same == 20 {
		t.Error("different seeds gave identical noise")
	}
}

func TestValueContinuous(t *testing.T) {
	v := NewValue(3)
	// Lattice points should match the limit from either side
	left := v.At(4.9999, 2.5)
	right := v.At(5.0001, 2.5)
	if math.Abs(float64(left-right)) > 1e-3 {
		t.Errorf("discontinuity at lattice edge: %v vs %v", left, right)
	}
}

func TestTileableWraps(t *testing.T) {
	v := NewValue(11)
	const freq = 4
	for i := 0; i < 10; i++ {
		u := float32(i) * 0.07
		a := v.Tileable(u, 0.3, freq)
		b := v.Tileable(u+1, 0.3, freq)
		if math.Abs(float64(a-b)) > 1e-5 {
			t.Errorf("Tileable(%v) = %v, Tileable(%v) = %v; want equal", u, a, u+1, b)
		}
	}
}

func TestSourcesBounded(t *testing.T) {
	for _, kind := range []string{KindValue, KindSimplex, KindPerlin} {
		src, err := New(kind, 42)
		if err != nil {
			t.Fatalf("New(%q): %v", kind, err)
		}
		for i := 0; i < 200; i++ {
			x := float64(i) * 0.37
			n := src.Eval3(x, x*0.5, 1.25)
			if n < -1 || n > 1 || math.IsNaN(n) {
				t.Fatalf("%s Eval3 = %v, want [-1,1]", kind, n)
			}
		}
	}
}

func TestNewUnknownKind(t *testing.T) {
	if _, err := New("worley", 1); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestFBMBounded(t *testing.T) {
	src := NewSimplex(5)
	for i := 0; i < 100; i++ {
		x := float64(i) * 0.11
		f := FBM(src, x, 0.5, 0, 4, 2.0, 0.5)
		// 0.5 + 0.25 + 0.125 + 0.0625
		if math.Abs(f) > 0.9375+1e-9 {
			t.Fatalf("FBM = %v exceeds octave amplitude sum", f)
		}
	}
}
