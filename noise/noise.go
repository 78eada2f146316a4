// Package noise provides the coherent noise sources that drive flow fields,
// displacement and grain.
package noise

import (
	"fmt"
	"math"

	perlin "github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// Source is a coherent 3D noise function. Values are roughly in [-1, 1].
type Source interface {
	Eval3(x, y, z float64) float64
}

// Kinds accepted by New.
const (
	KindValue   = "value"
	KindSimplex = "simplex"
	KindPerlin  = "perlin"
)

// New returns the source registered under kind.
func New(kind string, seed int64) (Source, error) {
	switch kind {
	case "", KindValue:
		return NewValue(uint32(seed)), nil
	case KindSimplex:
		return NewSimplex(seed), nil
	case KindPerlin:
		return NewPerlin(seed), nil
	}
	return nil, fmt.Errorf("unknown noise kind %q", kind)
}

// FBM sums octaves of src starting at unit amplitude 0.5.
// Each octave multiplies frequency by lacunarity and amplitude by gain.
func FBM(src Source, x, y, z float64, octaves int, lacunarity, gain float64) float64 {
	sum := 0.0
	amp := 0.5
	for o := 0; o < octaves; o++ {
		sum += amp * src.Eval3(x, y, z)
		x *= lacunarity
		y *= lacunarity
		z *= lacunarity
		amp *= gain
	}
	return sum
}

// Simplex wraps OpenSimplex noise.
type Simplex struct {
	n opensimplex.Noise
}

// NewSimplex creates a seeded OpenSimplex source.
func NewSimplex(seed int64) *Simplex {
	return &Simplex{n: opensimplex.New(seed)}
}

// Eval3 implements Source.
func (s *Simplex) Eval3(x, y, z float64) float64 {
	return s.n.Eval3(x, y, z)
}

// Perlin wraps classic Perlin noise. The underlying generator sums three
// octaves itself, so results are clamped back into [-1, 1].
type Perlin struct {
	p *perlin.Perlin
}

// NewPerlin creates a seeded Perlin source.
func NewPerlin(seed int64) *Perlin {
	return &Perlin{p: perlin.NewPerlin(2, 2, 3, seed)}
}

// Eval3 implements Source.
func (p *Perlin) Eval3(x, y, z float64) float64 {
	return math.Max(-1, math.Min(1, p.p.Noise3D(x, y, z)))
}
