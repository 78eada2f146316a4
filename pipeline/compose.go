package pipeline

import (
	"fmt"
	"math"

	"github.com/chewxy/math32"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/Ceep-LLC/mivra.graphics/field"
)

// RGB is a linear working-space colour.
type RGB [3]float32

// Hex parses "#rrggbb" (or "#rgb"). Unparseable input yields black.
func Hex(s string) RGB {
	c, err := ParseHex(s)
	if err != nil {
		return RGB{}
	}
	return c
}

// ParseHex parses a hex colour.
func ParseHex(s string) (RGB, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return RGB{}, fmt.Errorf("parsing colour %q: %w", s, err)
	}
	return FromColorful(c), nil
}

// FromColorful converts a go-colorful colour.
func FromColorful(c colorful.Color) RGB {
	return RGB{float32(c.R), float32(c.G), float32(c.B)}
}

func (c RGB) Add(o RGB) RGB       { return RGB{c[0] + o[0], c[1] + o[1], c[2] + o[2]} }
func (c RGB) Mul(o RGB) RGB       { return RGB{c[0] * o[0], c[1] * o[1], c[2] * o[2]} }
func (c RGB) Scale(k float32) RGB { return RGB{c[0] * k, c[1] * k, c[2] * k} }
func (c RGB) Mix(o RGB, t float32) RGB {
	return RGB{Mix(c[0], o[0], t), Mix(c[1], o[1], t), Mix(c[2], o[2], t)}
}

// Map applies fn per channel.
func (c RGB) Map(fn func(float32) float32) RGB {
	return RGB{fn(c[0]), fn(c[1]), fn(c[2])}
}

// Luma is Rec. 709 luminance.
func (c RGB) Luma() float32 {
	return 0.2126*c[0] + 0.7152*c[1] + 0.0722*c[2]
}

func Clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func Mix(a, b, t float32) float32 { return a + (b-a)*t }

// Smoothstep is GLSL smoothstep; e0 > e1 gives the falling edge.
func Smoothstep(e0, e1, x float32) float32 {
	if e0 == e1 {
		if x < e0 {
			return 0
		}
		return 1
	}
	t := Clamp01((x - e0) / (e1 - e0))
	return t * t * (3 - 2*t)
}

// Approach moves v toward target, covering about 95% of the gap in
// seconds. A non-positive duration snaps.
func Approach(v, target, dt, seconds float64) float64 {
	if seconds <= 0 {
		return target
	}
	return target + (v-target)*math.Exp(-3*dt/seconds)
}

// Reinhard maps [0,∞) to [0,1).
func Reinhard(x float32) float32 {
	if x <= 0 {
		return 0
	}
	return x / (1 + x)
}

// ACES is the Narkowicz filmic fit.
func ACES(x float32) float32 {
	const a, b, c, d, e = 2.51, 0.03, 2.43, 0.59, 0.14
	return Clamp01((x * (a*x + b)) / (x*(c*x+d) + e))
}

// Vignette returns the falloff at pixel (x, y) of a w×h frame: 1 inside
// inner, 0 beyond outer, with distance from centre divided by the height.
func Vignette(x, y float32, w, h int, outer, inner float32) float32 {
	hh := float32(h)
	px := (x - 0.5*float32(w)) / hh
	py := (y - 0.5*hh) / hh
	return Smoothstep(outer, inner, math32.Hypot(px, py))
}

// Centered maps pixel centres to (p - res/2) / height with y up, so the
// vertical range is [-0.5, 0.5].
func Centered(x, y, w, h int) (float32, float32) {
	hh := float32(h)
	return (float32(x) + 0.5 - 0.5*float32(w)) / hh, (0.5*hh - float32(y) - 0.5) / hh
}

// UV returns the texel-centre coordinate of pixel (x, y).
func UV(x, y, w, h int) (float32, float32) {
	return (float32(x) + 0.5) / float32(w), (float32(y) + 0.5) / float32(h)
}

// Bloom8 averages eight taps on a ring of radius (rx, ry) in uv units.
func Bloom8(f *field.Field, u, v, rx, ry float32) [4]float32 {
	const d = 0.70710678
	offs := [8][2]float32{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {d, d}, {-d, d}, {d, -d}, {-d, -d}}
	var acc [4]float32
	for _, o := range offs {
		s := f.Sample(u+o[0]*rx, v+o[1]*ry)
		for c := range acc {
			acc[c] += s[c]
		}
	}
	for c := range acc {
		acc[c] /= 8
	}
	return acc
}

// Blur7 is a 7-tap cross blur: centre 0.36, four axis taps at 0.12, and
// two diagonals at 0.08. (ox, oy) is the tap offset in uv units.
func Blur7(f *field.Field, u, v, ox, oy float32) [4]float32 {
	if ox == 0 && oy == 0 {
		return f.Sample(u, v)
	}
	taps := [7]struct{ du, dv, w float32 }{
		{0, 0, 0.36},
		{ox, 0, 0.12}, {-ox, 0, 0.12}, {0, oy, 0.12}, {0, -oy, 0.12},
		{ox, oy, 0.08}, {-ox, -oy, 0.08},
	}
	var acc [4]float32
	for _, t := range taps {
		s := f.Sample(u+t.du, v+t.dv)
		for c := range acc {
			acc[c] += s[c] * t.w
		}
	}
	return acc
}

// Blend is a layer compositing operator.
type Blend int

const (
	BlendNormal Blend = iota
	BlendAdditive
	BlendScreen
	BlendDifference
)

func (b Blend) String() string {
	switch b {
	case BlendAdditive:
		return "additive"
	case BlendScreen:
		return "screen"
	case BlendDifference:
		return "difference"
	default:
		return "normal"
	}
}

// ParseBlend maps a config name to a Blend.
func ParseBlend(s string) (Blend, error) {
	switch s {
	case "", "normal":
		return BlendNormal, nil
	case "additive", "add":
		return BlendAdditive, nil
	case "screen":
		return BlendScreen, nil
	case "difference":
		return BlendDifference, nil
	}
	return BlendNormal, fmt.Errorf("unknown blend mode %q", s)
}

// Composite blends premultiplied src over dst with the given operator and
// opacity. Sources of a different size are resampled bilinearly.
func Composite(dst, src *field.Field, mode Blend, opacity float32, workers *Workers) {
	if dst == nil || src == nil || opacity <= 0 {
		return
	}
	same := dst.W == src.W && dst.H == src.H
	workers.Rows(dst.H, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < dst.W; x++ {
				var s [4]float32
				if same {
					i := src.Index(x, y)
					copy(s[:], src.Pix[i:i+4])
				} else {
					s = src.Sample(UV(x, y, dst.W, dst.H))
				}
				i := dst.Index(x, y)
				blendPixel(dst.Pix[i:i+4], s, mode, opacity)
			}
		}
	})
}

func blendPixel(d []float32, s [4]float32, mode Blend, op float32) {
	for c := range s {
		s[c] *= op
	}
	switch mode {
	case BlendAdditive:
		d[0] += s[0]
		d[1] += s[1]
		d[2] += s[2]
		d[3] = min(1, d[3]+s[3])
	case BlendScreen:
		for c := 0; c < 3; c++ {
			d[c] = d[c] + s[c] - d[c]*s[c]
		}
		d[3] = s[3] + d[3]*(1-s[3])
	case BlendDifference:
		for c := 0; c < 3; c++ {
			d[c] = s[c] + d[c] - 2*min(s[c]*d[3], d[c]*s[3])
		}
		d[3] = s[3] + d[3]*(1-s[3])
	default:
		k := 1 - s[3]
		for c := 0; c < 4; c++ {
			d[c] = s[c] + d[c]*k
		}
	}
}
