package input

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Splat is one Gaussian injection into a field, in field pixels.
type Splat struct {
	X, Y     float64
	Radius   float64
	Color    [3]float32
	Strength float32
}

// Shaper turns strokes into splats. Faster strokes give larger, stronger
// splats and push the colour toward one end of the palette.
type Shaper struct {
	Radius       float64 // base radius, logical px
	RadiusGain   float64
	Strength     float64 // base strength (peak density)
	StrengthGain float64
	SpeedRef     float64 // logical px/s mapped to speed 1
	Chroma       float64 // palette bias at rest, 0 = A, 1 = B
	ColorA       colorful.Color
	ColorB       colorful.Color
}

// NormalizedSpeed maps a stroke's speed into [0,1].
func (sh Shaper) NormalizedSpeed(st Stroke) float64 {
	if sh.SpeedRef <= 0 {
		return 0
	}
	return math.Min(1, st.Speed()/sh.SpeedRef)
}

// Shape converts a stroke into a splat on a w×h field whose pixels are
// pxScale field pixels per logical pixel.
func (sh Shaper) Shape(st Stroke, w, h int, pxScale float64) Splat {
	speed := sh.NormalizedSpeed(st)

	dir := 1.0
	if st.VY < 0 {
		dir = -1
	}
	bias := clamp01(sh.Chroma + dir*speed*0.25)
	c := sh.ColorA.BlendRgb(sh.ColorB, bias)

	return Splat{
		X:        st.Pos.X * float64(w),
		Y:        st.Pos.Y * float64(h),
		Radius:   sh.Radius * pxScale * (1 + speed*sh.RadiusGain),
		Color:    [3]float32{float32(c.R), float32(c.G), float32(c.B)},
		Strength: float32(sh.Strength * (1 + speed*sh.StrengthGain)),
	}
}
