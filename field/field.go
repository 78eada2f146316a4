// Package field provides the floating-point RGBA grids that hold persistent
// per-pixel simulation state and composed frames.
package field

import (
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/blas/blas32"
)

// Channels per pixel.
const Channels = 4

// Field is a W×H grid of RGBA float32 values, row-major.
// For simulation fields RGB holds premultiplied dye colour and A holds
// density (the pixel's magnitude).
type Field struct {
	W, H int
	Pix  []float32
}

// New allocates a zero-initialized field.
func New(w, h int) *Field {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Field{W: w, H: h, Pix: make([]float32, w*h*Channels)}
}

// Index returns the offset of pixel (x, y) in Pix.
func (f *Field) Index(x, y int) int {
	return (y*f.W + x) * Channels
}

// At returns the four channels of pixel (x, y).
func (f *Field) At(x, y int) [4]float32 {
	i := f.Index(x, y)
	return [4]float32{f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3]}
}

// Set writes pixel (x, y).
func (f *Field) Set(x, y int, c [4]float32) {
	i := f.Index(x, y)
	f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = c[0], c[1], c[2], c[3]
}

// Clear zeroes every channel.
func (f *Field) Clear() {
	clear(f.Pix)
}

// Fill sets every pixel to c.
func (f *Field) Fill(c [4]float32) {
	for i := 0; i < len(f.Pix); i += Channels {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = c[0], c[1], c[2], c[3]
	}
}

// CopyFrom copies src into f. Both must have the same dimensions.
func (f *Field) CopyFrom(src *Field) {
	if len(f.Pix) == 0 {
		return
	}
	blas32.Copy(src.vector(), f.vector())
}

// Scale multiplies every channel by k.
func (f *Field) Scale(k float32) {
	if len(f.Pix) == 0 {
		return
	}
	blas32.Scal(k, f.vector())
}

// Energy returns the sum of the density channel over all pixels.
// Density is never negative, so the absolute sum equals the sum.
func (f *Field) Energy() float64 {
	n := f.W * f.H
	if n == 0 {
		return 0
	}
	return float64(blas32.Asum(blas32.Vector{N: n, Inc: Channels, Data: f.Pix[3:]}))
}

// Checksum hashes the raw bits of every channel (FNV-1a).
func (f *Field) Checksum() uint64 {
	h := uint64(14695981039346656037)
	for _, v := range f.Pix {
		h ^= uint64(math.Float32bits(v))
		h *= 1099511628211
	}
	return h
}

// Sample bilinearly interpolates at normalized (u, v), with texel centres at
// (i+0.5)/W and clamp-to-edge addressing.
func (f *Field) Sample(u, v float32) [4]float32 {
	fx := u*float32(f.W) - 0.5
	fy := v*float32(f.H) - 0.5

	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	x1 := clampInt(x0+1, 0, f.W-1)
	y1 := clampInt(y0+1, 0, f.H-1)
	x0 = clampInt(x0, 0, f.W-1)
	y0 = clampInt(y0, 0, f.H-1)

	i00 := f.Index(x0, y0)
	i10 := f.Index(x1, y0)
	i01 := f.Index(x0, y1)
	i11 := f.Index(x1, y1)

	var out [4]float32
	for c := 0; c < Channels; c++ {
		a := f.Pix[i00+c] + (f.Pix[i10+c]-f.Pix[i00+c])*tx
		b := f.Pix[i01+c] + (f.Pix[i11+c]-f.Pix[i01+c])*tx
		out[c] = a + (b-a)*ty
	}
	return out
}

// ToRGBA writes the field into dst as 8-bit premultiplied colour, clamping
// each channel to [0,1]. Row y of the field becomes row y of the image.
func (f *Field) ToRGBA(dst *image.RGBA) {
	b := dst.Bounds()
	w := min(f.W, b.Dx())
	h := min(f.H, b.Dy())
	for y := 0; y < h; y++ {
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < w; x++ {
			i := f.Index(x, y)
			o := x * 4
			row[o] = to8(f.Pix[i])
			row[o+1] = to8(f.Pix[i+1])
			row[o+2] = to8(f.Pix[i+2])
			row[o+3] = to8(f.Pix[i+3])
		}
	}
}

// ToColors writes the field into dst, which must hold W*H entries.
func (f *Field) ToColors(dst []color.RGBA) {
	n := min(len(dst), f.W*f.H)
	for p := 0; p < n; p++ {
		i := p * Channels
		dst[p] = color.RGBA{to8(f.Pix[i]), to8(f.Pix[i+1]), to8(f.Pix[i+2]), to8(f.Pix[i+3])}
	}
}

// Image returns a new RGBA image holding the field.
func (f *Field) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.W, f.H))
	f.ToRGBA(img)
	return img
}

func (f *Field) vector() blas32.Vector {
	return blas32.Vector{N: len(f.Pix), Inc: 1, Data: f.Pix}
}

func to8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
