package sdf

import (
	"testing"

	"github.com/chewxy/math32"

	"github.com/Ceep-LLC/mivra.graphics/config"
)

func init() {
	config.MustInit("")
}

func blobs(t float32) Scene {
	return func(p Vec3) float32 {
		c1 := V3(0.92*math32.Sin(t*0.7), 0.62*math32.Cos(t*0.5), 0)
		c2 := V3(-0.82*math32.Cos(t*0.4), 0.74*math32.Sin(t*0.65), 0.22)
		c3 := V3(0, -0.94*math32.Sin(t*0.55), -0.68*math32.Cos(t*0.33))
		d := SmoothMin(Sphere(p, c1, 0.92), Sphere(p, c2, 0.86), 0.7)
		return SmoothMin(d, Sphere(p, c3, 0.78), 0.7)
	}
}

func TestMarchTerminatesOnGrid(t *testing.T) {
	for _, mc := range []config.MarchConfig{
		config.Cfg().MetaGlow.March,
		config.Cfg().Orb.March,
		config.Cfg().Glass.March,
	} {
		p := ParamsFromConfig(mc)
		ro := V3(0, 0, 3.25)
		for _, tm := range []float32{0, 1.7, 12.5, 300} {
			scene := blobs(tm)
			for j := 0; j <= 16; j++ {
				for i := 0; i <= 16; i++ {
					u := float32(i)/8 - 1
					v := float32(j)/8 - 1
					rd := V3(u, v, -1.6).Normalize()
					res := March(ro, rd, scene, p)
					if res.Steps > p.MaxSteps {
						t.Fatalf("steps = %d > max %d at (%v,%v,t=%v)", res.Steps, p.MaxSteps, u, v, tm)
					}
					if res.Reason == DistanceExceeded && res.Dist <= p.MaxDist {
						t.Fatalf("distance exceeded at %v <= %v", res.Dist, p.MaxDist)
					}
				}
			}
		}
	}
}

func TestMarchReasons(t *testing.T) {
	p := ParamsFromConfig(config.Cfg().MetaGlow.March)
	sphere := func(q Vec3) float32 { return Sphere(q, Vec3{}, 1) }
	ro := V3(0, 0, 3)

	hit := March(ro, V3(0, 0, -1), sphere, p)
	if hit.Reason != Hit {
		t.Fatalf("centre ray reason = %v, want hit", hit.Reason)
	}
	if math32.Abs(hit.Dist-2) > 0.01 {
		t.Errorf("hit distance = %v, want ~2", hit.Dist)
	}

	miss := March(ro, V3(0, 1, 0), sphere, p)
	if miss.Reason != DistanceExceeded {
		t.Errorf("ray away from sphere reason = %v, want distance_exceeded", miss.Reason)
	}

	// A budget too small to reach the surface runs out of steps
	tight := p
	tight.MaxSteps = 3
	short := March(ro, V3(0, 0, -1), sphere, tight)
	if short.Reason != StepsExhausted || short.Steps != 3 {
		t.Errorf("tight budget = (%v, %d), want (steps_exhausted, 3)", short.Reason, short.Steps)
	}
}

func TestMarchStepClamp(t *testing.T) {
	p := Params{MaxSteps: 10, MaxDist: 100, Epsilon: 1e-4, MinStep: 0.5, MaxStep: 1, StepScale: 1}
	// Surface far away: every step is the max step
	far := func(Vec3) float32 { return 50 }
	res := March(Vec3{}, V3(1, 0, 0), far, p)
	if res.Dist != 10 {
		t.Errorf("dist = %v, want 10 (10 steps of max 1)", res.Dist)
	}
	// Inside geometry (negative distance) still advances by the min step
	inside := func(Vec3) float32 { return -3 }
	res = March(Vec3{}, V3(1, 0, 0), inside, p)
	if res.Dist != 5 {
		t.Errorf("dist = %v, want 5 (10 steps of min 0.5)", res.Dist)
	}
}

func TestGlowAccumulatesOnMiss(t *testing.T) {
	p := ParamsFromConfig(config.Cfg().MetaGlow.March)
	sphere := func(q Vec3) float32 { return Sphere(q, Vec3{}, 1) }
	// Passes the sphere about 0.03 above its surface
	rd := V3(1.1, 0, -3).Normalize()
	res := March(V3(0, 0, 3), rd, sphere, p)
	if res.Reason == Hit {
		t.Fatalf("grazing ray should miss, got hit at %v", res.Dist)
	}
	if res.Glow <= 0 {
		t.Errorf("glow = %v, want > 0 along a grazing miss", res.Glow)
	}

	// A ray that never comes near anything accumulates no glow
	away := March(V3(0, 0, 3), V3(0, 0, 1), sphere, p)
	if away.Glow != 0 {
		t.Errorf("glow far from geometry = %v, want 0", away.Glow)
	}
}

func TestSmoothMin(t *testing.T) {
	// Far apart values: plain min
	if got := SmoothMin(0, 5, 0.5); got != 0 {
		t.Errorf("SmoothMin(0,5) = %v, want 0", got)
	}
	// Equal values are pulled below either input
	if got := SmoothMin(1, 1, 0.4); math32.Abs(got-0.9) > 1e-6 {
		t.Errorf("SmoothMin(1,1,0.4) = %v, want 0.9", got)
	}
	if got := SmoothMin(2, 3, 0); got != 2 {
		t.Errorf("SmoothMin with k=0 = %v, want 2", got)
	}
}

func TestNormalOfSphere(t *testing.T) {
	sphere := func(q Vec3) float32 { return Sphere(q, Vec3{}, 1) }
	n := Normal(sphere, V3(0, 1, 0), 0.001)
	if math32.Abs(n.Y-1) > 1e-3 {
		t.Errorf("normal at top = %+v, want +Y", n)
	}
}

func TestArc(t *testing.T) {
	if !Arc(1, -1, 0.25) {
		t.Error("point at 45° should be inside a quarter arc")
	}
	if Arc(-1, 0, 0.5) {
		t.Error("point at 270° should be outside a half arc")
	}
	if !Arc(-1, 0, 1) || Arc(0, -1, 0) {
		t.Error("full and empty arcs")
	}
}
