package input

import (
	"log/slog"
	"math"
	"time"

	"github.com/Ceep-LLC/mivra.graphics/clock"
)

// minStrokeInterval floors the time between two moves used for velocity.
const minStrokeInterval = time.Millisecond

// MaxPendingStrokes bounds the stroke queue; the oldest strokes are dropped
// first.
const MaxPendingStrokes = 256

// Options configures a Sampler.
type Options struct {
	Smoothing  float64 // fraction of the remaining distance closed per reference frame
	PulseDecay float64 // fraction of the pulse lost per reference frame
	Rate       clock.Rate
	Logger     *slog.Logger
}

// Stroke is one pointer contribution recorded since the last frame.
type Stroke struct {
	Pos    PositionSample
	VX, VY float64 // logical px/s
}

// Speed returns the stroke's velocity magnitude in logical px/s.
func (s Stroke) Speed() float64 {
	return math.Hypot(s.VX, s.VY)
}

// Sampler converts raw events into a normalized target position and, once
// per frame, advances a smoothed influence toward it.
// It is owned by the render thread and is not safe for concurrent use.
type Sampler struct {
	opts   Options
	log    *slog.Logger
	bounds Bounds

	target  PositionSample
	current PositionSample
	touched bool
	pulse   float64

	strokes []Stroke
	spare   []Stroke
	dropped uint64

	lastX, lastY float64
	lastT        time.Time
	hasLast      bool

	pointerHeld bool
	keyHeld     bool
	holdAt      PositionSample

	orientation bool
}

// NewSampler creates a sampler centred at (0.5, 0.5).
func NewSampler(opts Options) *Sampler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Sampler{
		opts:    opts,
		log:     log,
		target:  Center,
		current: Center,
		holdAt:  Center,
	}
}

// SetBounds updates the surface size events are normalized against.
func (s *Sampler) SetBounds(b Bounds) {
	s.bounds = b
}

// Bounds returns the current normalization bounds.
func (s *Sampler) Bounds() Bounds { return s.bounds }

// Sample consumes one raw event, updating the target (latest wins) and
// recording strokes, and returns the event's normalized position.
func (s *Sampler) Sample(ev Event) PositionSample {
	switch ev.Kind {
	case Orientation:
		if !s.orientation {
			return s.target
		}
		p := orientationSample(ev.Beta, ev.Gamma)
		s.target = p
		s.touched = true
		return p
	case KeyDown:
		if holdKey(ev.Key) {
			s.keyHeld = true
			s.holdAt = Center
		}
		return s.target
	case KeyUp:
		if holdKey(ev.Key) {
			s.keyHeld = false
		}
		return s.target
	}

	p := s.normalize(ev.X, ev.Y)
	switch ev.Kind {
	case Move:
		s.target = p
		s.touched = true
		s.pulse = 1
		s.recordMove(ev, p)
		if s.pointerHeld {
			s.holdAt = p
		}
	case Down:
		s.target = p
		s.touched = true
		s.pointerHeld = true
		s.holdAt = p
		// A press starts a new stroke: velocity restarts from the next move
		s.hasLast = false
		s.push(Stroke{Pos: p})
	case Up, Cancel:
		s.pointerHeld = false
		s.hasLast = false
	}
	return p
}

func (s *Sampler) recordMove(ev Event, p PositionSample) {
	if !s.hasLast {
		s.lastX, s.lastY, s.lastT = ev.X, ev.Y, ev.Time
		s.hasLast = true
		return
	}
	dt := ev.Time.Sub(s.lastT)
	if dt < minStrokeInterval {
		dt = minStrokeInterval
	}
	sec := dt.Seconds()
	s.push(Stroke{
		Pos: p,
		VX:  (ev.X - s.lastX) / sec,
		VY:  (ev.Y - s.lastY) / sec,
	})
	s.lastX, s.lastY, s.lastT = ev.X, ev.Y, ev.Time
}

func (s *Sampler) push(st Stroke) {
	if len(s.strokes) >= MaxPendingStrokes {
		n := copy(s.strokes, s.strokes[len(s.strokes)-MaxPendingStrokes+1:])
		s.strokes = s.strokes[:n]
		s.dropped++
	}
	s.strokes = append(s.strokes, st)
}

func (s *Sampler) normalize(x, y float64) PositionSample {
	if s.bounds.Width <= 0 || s.bounds.Height <= 0 {
		return s.target
	}
	return PositionSample{
		X: clamp01(x / s.bounds.Width),
		Y: clamp01(y / s.bounds.Height),
	}
}

// Advance performs exactly one smoothing step toward the target and decays
// the pulse.
func (s *Sampler) Advance(dt float64) {
	k := s.opts.Rate.Factor(s.opts.Smoothing, dt)
	s.current.X += (s.target.X - s.current.X) * k
	s.current.Y += (s.target.Y - s.current.Y) * k
	s.pulse *= s.opts.Rate.Retain(s.opts.PulseDecay, dt)
}

// Target returns the latest raw sample.
func (s *Sampler) Target() PositionSample { return s.target }

// Current returns the smoothed influence.
func (s *Sampler) Current() PositionSample { return s.current }

// Touched reports whether any positional input has been seen.
func (s *Sampler) Touched() bool { return s.touched }

// Pulse returns the movement pulse: 1 right after a move, decaying per frame.
func (s *Sampler) Pulse() float64 { return s.pulse }

// Hold reports whether a pointer or hold key is down and where the hold is.
func (s *Sampler) Hold() (held bool, at PositionSample, keyboard bool) {
	if s.pointerHeld {
		return true, s.holdAt, false
	}
	if s.keyHeld {
		return true, Center, true
	}
	return false, s.holdAt, false
}

// DrainStrokes returns the strokes recorded since the last drain, in
// arrival order. The slice is valid until the next call.
func (s *Sampler) DrainStrokes() []Stroke {
	out := s.strokes
	s.strokes, s.spare = s.spare[:0], out
	return out
}

// PendingStrokes returns how many strokes are queued.
func (s *Sampler) PendingStrokes() int { return len(s.strokes) }

// DiscardStrokes forgets every queued stroke.
func (s *Sampler) DiscardStrokes() { s.strokes = s.strokes[:0] }

// DroppedStrokes returns how many strokes were pushed out of a full queue.
func (s *Sampler) DroppedStrokes() uint64 { return s.dropped }

// Reset returns the influence to the centre and forgets pending strokes.
func (s *Sampler) Reset() {
	s.target, s.current, s.holdAt = Center, Center, Center
	s.touched = false
	s.pulse = 0
	s.strokes = s.strokes[:0]
	s.hasLast = false
	s.pointerHeld, s.keyHeld = false, false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
