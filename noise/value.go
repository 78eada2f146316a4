package noise

import "math"

// Value is lattice value noise with a hashed integer lattice. It is cheap
// enough to evaluate several times per pixel and matches the look of the
// classic shader hash noise.
type Value struct {
	Seed uint32
}

// NewValue creates a value noise source.
func NewValue(seed uint32) *Value {
	return &Value{Seed: seed}
}

// At returns value noise in [0,1) at a 2D point.
func (v *Value) At(x, y float32) float32 {
	ix := int(math.Floor(float64(x)))
	iy := int(math.Floor(float64(y)))
	fx := x - float32(ix)
	fy := y - float32(iy)

	a := v.hash(ix, iy, 0)
	b := v.hash(ix+1, iy, 0)
	c := v.hash(ix, iy+1, 0)
	d := v.hash(ix+1, iy+1, 0)

	ux := smooth(fx)
	uy := smooth(fy)

	ab := a + (b-a)*ux
	cd := c + (d-c)*ux
	return ab + (cd-ab)*uy
}

// FBM2 sums octaves of At with frequency 2.03 and gain 0.5.
// The result stays in [0,1).
func (v *Value) FBM2(x, y float32, octaves int) float32 {
	f := float32(0)
	a := float32(0.5)
	for i := 0; i < octaves; i++ {
		f += a * v.At(x, y)
		x *= 2.03
		y *= 2.03
		a *= 0.5
	}
	return f
}

// Tileable returns value noise that wraps every freq lattice cells in u and v.
func (v *Value) Tileable(u, w, freq float32) float32 {
	x := u * freq
	y := w * freq

	ix := int(math.Floor(float64(x)))
	iy := int(math.Floor(float64(y)))
	fx := x - float32(ix)
	fy := y - float32(iy)

	f := int(freq)
	if f < 1 {
		f = 1
	}
	x0, x1 := modInt(ix, f), modInt(ix+1, f)
	y0, y1 := modInt(iy, f), modInt(iy+1, f)

	a := v.hash(x0, y0, 0)
	b := v.hash(x1, y0, 0)
	c := v.hash(x0, y1, 0)
	d := v.hash(x1, y1, 0)

	ux := smooth(fx)
	uy := smooth(fy)
	ab := a + (b-a)*ux
	cd := c + (d-c)*ux
	return ab + (cd-ab)*uy
}

// At3 returns value noise in [0,1) at a 3D point by trilinear
// interpolation of the lattice.
func (v *Value) At3(x, y, z float32) float32 {
	ix := int(math.Floor(float64(x)))
	iy := int(math.Floor(float64(y)))
	iz := int(math.Floor(float64(z)))
	ux := smooth(x - float32(ix))
	uy := smooth(y - float32(iy))
	uz := smooth(z - float32(iz))

	plane := func(k int) float32 {
		a := v.hash(ix, iy, k)
		b := v.hash(ix+1, iy, k)
		c := v.hash(ix, iy+1, k)
		d := v.hash(ix+1, iy+1, k)
		ab := a + (b-a)*ux
		cd := c + (d-c)*ux
		return ab + (cd-ab)*uy
	}
	p0 := plane(iz)
	p1 := plane(iz + 1)
	return p0 + (p1-p0)*uz
}

// Eval3 implements Source with At3 remapped to [-1, 1].
func (v *Value) Eval3(x, y, z float64) float64 {
	return float64(v.At3(float32(x), float32(y), float32(z)))*2 - 1
}

// hash generates a pseudo-random float in [0,1) from integer coordinates.
func (v *Value) hash(ix, iy, iz int) float32 {
	x := uint32(ix)
	y := uint32(iy)
	z := uint32(iz)
	h := x*374761393 + y*668265263 + z*2246822519 + v.Seed*1442695041
	h = (h ^ (h >> 13)) * 1274126177
	h ^= (h >> 16)
	return float32(h&0x00FFFFFF) / float32(0x01000000)
}

func smooth(t float32) float32 {
	return t * t * (3 - 2*t)
}

func modInt(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
