package sdf

import (
	"github.com/chewxy/math32"

	"github.com/Ceep-LLC/mivra.graphics/config"
)

// Scene returns the signed distance from p to the nearest surface.
type Scene func(p Vec3) float32

// Reason is why a march stopped. All three are normal terminations.
type Reason int

const (
	Hit              Reason = iota // within Epsilon of a surface
	StepsExhausted                 // MaxSteps iterations without a hit
	DistanceExceeded               // travelled past MaxDist
)

func (r Reason) String() string {
	switch r {
	case Hit:
		return "hit"
	case StepsExhausted:
		return "steps_exhausted"
	case DistanceExceeded:
		return "distance_exceeded"
	}
	return "unknown"
}

// Params bounds a march and shapes its glow.
type Params struct {
	MaxSteps  int
	MaxDist   float32
	Epsilon   float32
	MinStep   float32
	MaxStep   float32
	StepScale float32
	AbsStep   bool

	GlowRadius  float32
	GlowFalloff float32
	GlowPower   float32
	GlowGain    float32
}

// ParamsFromConfig converts a march config section.
func ParamsFromConfig(c config.MarchConfig) Params {
	p := Params{
		MaxSteps:    c.MaxSteps,
		MaxDist:     float32(c.MaxDist),
		Epsilon:     float32(c.Epsilon),
		MinStep:     float32(c.MinStep),
		MaxStep:     float32(c.MaxStep),
		StepScale:   float32(c.StepScale),
		AbsStep:     c.AbsStep,
		GlowRadius:  float32(c.GlowRadius),
		GlowFalloff: float32(c.GlowFalloff),
		GlowPower:   float32(c.GlowPower),
		GlowGain:    float32(c.GlowGain),
	}
	if p.StepScale <= 0 {
		p.StepScale = 1
	}
	return p
}

// Result describes a finished march.
type Result struct {
	Dist   float32 // distance travelled along the ray
	Steps  int     // iterations taken, never more than MaxSteps
	Glow   float32 // accumulated proximity glow
	Reason Reason
	Pos    Vec3    // last sampled position
	D      float32 // scene distance at Pos
}

// March walks the ray ro + t·rd through scene. Each step is clamped to
// [MinStep, MaxStep], so the loop ends within MaxSteps iterations. Glow is
// accumulated on every step whether or not the ray hits.
func March(ro, rd Vec3, scene Scene, p Params) Result {
	var res Result
	res.Reason = StepsExhausted
	t := float32(0)

	for i := 0; i < p.MaxSteps; i++ {
		pos := ro.Add(rd.Scale(t))
		d := scene(pos)
		ad := math32.Abs(d)
		res.Steps = i + 1
		res.Pos = pos
		res.D = d

		res.Glow += p.glowAt(ad, t)

		if ad < p.Epsilon {
			res.Reason = Hit
			break
		}

		step := d
		if p.AbsStep {
			step = ad
		}
		t += Clamp(step*p.StepScale, p.MinStep, p.MaxStep)
		if t > p.MaxDist {
			res.Reason = DistanceExceeded
			break
		}
	}

	res.Dist = t
	return res
}

// glowAt is smoothstep(radius, 0, |d|) scaled by 1/(1 + falloff·t^power).
func (p Params) glowAt(ad, t float32) float32 {
	if p.GlowGain == 0 {
		return 0
	}
	near := Smoothstep(p.GlowRadius, 0, ad)
	if near == 0 {
		return 0
	}
	tp := t
	switch p.GlowPower {
	case 1:
	case 2:
		tp = t * t
	default:
		tp = math32.Pow(t, p.GlowPower)
	}
	return near / (1 + p.GlowFalloff*tp) * p.GlowGain
}

// tetrahedron offsets for Normal.
var (
	tetA = V3(1, -1, -1)
	tetB = V3(-1, -1, 1)
	tetC = V3(-1, 1, -1)
	tetD = V3(1, 1, 1)
)

// Normal estimates the surface normal at p from four tetrahedral samples.
func Normal(scene Scene, p Vec3, eps float32) Vec3 {
	const k = 0.5773
	n := tetA.Scale(scene(p.Add(tetA.Scale(k * eps))))
	n = n.Add(tetB.Scale(scene(p.Add(tetB.Scale(k * eps)))))
	n = n.Add(tetC.Scale(scene(p.Add(tetC.Scale(k * eps)))))
	n = n.Add(tetD.Scale(scene(p.Add(tetD.Scale(k * eps)))))
	return n.Normalize()
}

// AO is a short five-tap ambient occlusion estimate in [0,1].
func AO(scene Scene, p, n Vec3) float32 {
	occ := float32(0)
	w := float32(1)
	for i := 1; i <= 5; i++ {
		h := float32(i) * 0.06
		d := scene(p.Add(n.Scale(h)))
		occ += (h - max(0, d)) * w
		w *= 0.85
	}
	return 1 - Clamp(occ, 0, 1)
}
