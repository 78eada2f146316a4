// Package clock provides the frame clock and frame-rate scaling of
// per-frame constants.
package clock

import (
	"math"
	"time"
)

// Clock accumulates elapsed time once per rendered frame.
// Deltas are clamped to MaxStep so a stalled or backgrounded frame cannot
// advance the simulation by more than one small step.
type Clock struct {
	MaxStep float64 // seconds

	elapsed float64
	frames  uint64
	prev    time.Time
	hasPrev bool
}

// New creates a clock with the given step ceiling in seconds.
func New(maxStep float64) *Clock {
	return &Clock{MaxStep: maxStep}
}

// Reset sets the previous timestamp to now without advancing time.
// Called whenever the frame loop (re)starts.
func (c *Clock) Reset(now time.Time) {
	c.prev = now
	c.hasPrev = true
}

// Tick advances the clock to now and returns the clamped delta in seconds.
// The first tick without a previous timestamp returns 0.
func (c *Clock) Tick(now time.Time) float64 {
	dt := 0.0
	if c.hasPrev {
		dt = now.Sub(c.prev).Seconds()
	}
	c.prev = now
	c.hasPrev = true

	dt = Clamp(dt, c.MaxStep)
	c.elapsed += dt
	c.frames++
	return dt
}

// Clamp bounds a measured delta to [0, maxStep].
func Clamp(dt, maxStep float64) float64 {
	if dt < 0 || math.IsNaN(dt) {
		return 0
	}
	if maxStep > 0 && dt > maxStep {
		return maxStep
	}
	return dt
}

// Elapsed returns accumulated seconds.
func (c *Clock) Elapsed() float64 { return c.elapsed }

// Frames returns the number of ticks so far.
func (c *Clock) Frames() uint64 { return c.frames }

// Rate converts per-frame factors tuned at a reference frame rate.
type Rate struct {
	RefFPS      float64
	Independent bool // scale by measured dt; false keeps the fixed per-frame value
}

// Factor returns the effective per-frame fraction for k at delta dt.
// A fraction k applied once per reference frame becomes 1-(1-k)^(dt*fps)
// so that the result over one second is the same at any frame rate.
func (r Rate) Factor(k, dt float64) float64 {
	if !r.Independent || r.RefFPS <= 0 {
		return k
	}
	if k <= 0 {
		return 0
	}
	if k >= 1 {
		return 1
	}
	return 1 - math.Pow(1-k, dt*r.RefFPS)
}

// Retain returns the multiplier (1 - Factor) applied to decaying state.
func (r Rate) Retain(k, dt float64) float64 {
	return 1 - r.Factor(k, dt)
}
