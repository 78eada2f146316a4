// Package input turns raw pointer, touch, keyboard and orientation events
// into the smoothed influence signal and per-frame strokes the effects read.
package input

import "time"

// Kind identifies a raw event.
type Kind int

const (
	Move Kind = iota
	Down
	Up
	Cancel
	Orientation
	KeyDown
	KeyUp
)

func (k Kind) String() string {
	switch k {
	case Move:
		return "move"
	case Down:
		return "down"
	case Up:
		return "up"
	case Cancel:
		return "cancel"
	case Orientation:
		return "orientation"
	case KeyDown:
		return "key_down"
	case KeyUp:
		return "key_up"
	}
	return "unknown"
}

// Keys that start a press-and-hold from the keyboard.
const (
	KeySpace = "space"
	KeyEnter = "enter"
)

// Event is a raw input event. X and Y are client positions in logical
// pixels relative to the surface's top-left corner.
type Event struct {
	Kind Kind
	X, Y float64
	Time time.Time

	// Device orientation in degrees (Orientation events only).
	Beta, Gamma float64

	// Key name (KeyDown/KeyUp only).
	Key string
}

// Bounds is the surface the sampler normalizes against.
type Bounds struct {
	Width, Height float64 // logical size
}

// PositionSample is a position normalized to [0,1]², origin top-left.
type PositionSample struct {
	X, Y float64
}

// Centered returns the sample in [-1,1]² with y pointing up.
func (p PositionSample) Centered() (float64, float64) {
	return p.X*2 - 1, 1 - p.Y*2
}

// Center is the influence before any input arrives.
var Center = PositionSample{X: 0.5, Y: 0.5}

func holdKey(key string) bool {
	return key == KeySpace || key == KeyEnter
}
