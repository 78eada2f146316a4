package pipeline

import (
	"math"
	"sync"
)

// Size is a logical container size and the device pixel ratio it was
// observed at.
type Size struct {
	Width, Height float64
	DPR           float64
}

// Host is the container a surface attaches to.
type Host interface {
	Mounted() bool
	Size() Size
}

// EffectiveDPR clamps dpr to [1, ceiling].
func EffectiveDPR(dpr, ceiling float64) float64 {
	if ceiling < 1 {
		ceiling = 1
	}
	if dpr < 1 || math.IsNaN(dpr) {
		return 1
	}
	return min(dpr, ceiling)
}

// BackingSize returns floor(logical × clamp(dpr, 1, ceiling)) for each axis.
func BackingSize(sz Size, ceiling float64) (int, int) {
	if sz.Width <= 0 || sz.Height <= 0 {
		return 0, 0
	}
	dpr := EffectiveDPR(sz.DPR, ceiling)
	return int(math.Floor(sz.Width * dpr)), int(math.Floor(sz.Height * dpr))
}

// Surface tracks a pipeline's drawing surface: logical size, clamped DPR and
// backing pixel dimensions. Any change of backing size bumps the generation
// and reallocates dependent buffers through the resize hook before the next
// frame steps.
type Surface struct {
	ceiling float64
	scale   float64

	host     Host
	attached bool

	size   Size
	w, h   int // backing
	rw, rh int // rendered (backing × render scale)
	gen    uint64

	onResize func(w, h int) error

	mu      sync.Mutex
	pending *Size
}

// NewSurface creates a surface with a DPR ceiling and render scale in (0,1].
func NewSurface(ceiling, renderScale float64) *Surface {
	if renderScale <= 0 || renderScale > 1 {
		renderScale = 1
	}
	return &Surface{ceiling: ceiling, scale: renderScale}
}

// OnResize sets the hook called with the new render size whenever it changes.
func (s *Surface) OnResize(fn func(w, h int) error) {
	s.onResize = fn
}

// Configure attaches the surface to a host. If the host is not mounted yet
// configuration is deferred and retried on every Sync.
func (s *Surface) Configure(h Host) (bool, error) {
	s.host = h
	if h == nil || !h.Mounted() {
		return false, nil
	}
	s.attached = true
	_, err := s.Resize(h.Size())
	return true, err
}

// Attached reports whether the surface has a mounted host.
func (s *Surface) Attached() bool { return s.attached }

// Resize applies a new container observation. It must run on the render
// thread; use Post from other goroutines. Reports whether the render size
// changed.
func (s *Surface) Resize(sz Size) (bool, error) {
	s.attached = true
	s.size = sz
	w, h := BackingSize(sz, s.ceiling)
	rw, rh := scaled(w, s.scale), scaled(h, s.scale)
	if w == s.w && h == s.h && rw == s.rw && rh == s.rh {
		return false, nil
	}
	s.w, s.h, s.rw, s.rh = w, h, rw, rh
	s.gen++
	if s.onResize != nil {
		if err := s.onResize(rw, rh); err != nil {
			return true, err
		}
	}
	return true, nil
}

// Post queues a resize from any goroutine. The latest posted size is
// applied by the next Sync on the render thread.
func (s *Surface) Post(sz Size) {
	s.mu.Lock()
	s.pending = &sz
	s.mu.Unlock()
}

// Sync retries a deferred Configure and applies any posted resize.
// Called on the render thread at the start of every frame.
func (s *Surface) Sync() (bool, error) {
	changed := false
	if !s.attached && s.host != nil && s.host.Mounted() {
		ok, err := s.Configure(s.host)
		if err != nil {
			return ok, err
		}
		changed = ok
	}

	s.mu.Lock()
	p := s.pending
	s.pending = nil
	s.mu.Unlock()

	if p != nil {
		c, err := s.Resize(*p)
		return changed || c, err
	}
	return changed, nil
}

// Ready reports whether frames can be stepped: attached with a positive size.
func (s *Surface) Ready() bool {
	return s.attached && s.rw > 0 && s.rh > 0
}

// Backing returns the backing pixel dimensions.
func (s *Surface) Backing() (int, int) { return s.w, s.h }

// RenderSize returns the dimensions effects render at.
func (s *Surface) RenderSize() (int, int) { return s.rw, s.rh }

// Logical returns the last observed container size.
func (s *Surface) Logical() Size { return s.size }

// DPR returns the clamped device pixel ratio.
func (s *Surface) DPR() float64 { return EffectiveDPR(s.size.DPR, s.ceiling) }

// PixelScale returns rendered pixels per logical pixel.
func (s *Surface) PixelScale() float64 {
	if s.size.Width <= 0 {
		return s.DPR() * s.scale
	}
	return float64(s.rw) / s.size.Width
}

// Generation increments on every render size change.
func (s *Surface) Generation() uint64 { return s.gen }

func scaled(n int, k float64) int {
	if n <= 0 {
		return 0
	}
	if k >= 1 {
		return n
	}
	return max(1, int(math.Floor(float64(n)*k)))
}
