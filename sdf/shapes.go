package sdf

import "github.com/chewxy/math32"

// Sphere is the distance from p to a sphere at c with radius r.
func Sphere(p, c Vec3, r float32) float32 {
	return p.Sub(c).Length() - r
}

// SmoothMin blends two distances with blend radius k.
// With k <= 0 it is a plain min.
func SmoothMin(a, b, k float32) float32 {
	if k <= 0 {
		return min(a, b)
	}
	h := Clamp(0.5+0.5*(b-a)/k, 0, 1)
	return Mix(b, a, h) - k*h*(1-h)
}

// Plane is the distance from p to the plane through the origin with unit normal n, offset by h.
func Plane(p, n Vec3, h float32) float32 {
	return p.Dot(n) + h
}

// Annulus is the 2D distance to a ring of radius r and half-width w.
func Annulus(x, y, r, w float32) float32 {
	return math32.Abs(math32.Hypot(x, y)-r) - w
}

// Arc reports whether the angle of (x, y), measured clockwise from 12
// o'clock, lies within fraction [0,1] of a full turn.
func Arc(x, y, fraction float32) bool {
	if fraction <= 0 {
		return false
	}
	if fraction >= 1 {
		return true
	}
	a := math32.Atan2(x, -y) // 0 at top, increasing clockwise with y down
	if a < 0 {
		a += 2 * math32.Pi
	}
	return a <= fraction*2*math32.Pi
}
