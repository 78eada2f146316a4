package field

import (
	"errors"
	"fmt"
)

// State is the lifecycle state of a Pair.
type State int

const (
	Idle         State = iota // no buffers allocated
	Ready                     // double-buffered, steady-state stepping
	Reallocating              // transient, inside Resize
	Disposed                  // terminal
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Ready:
		return "ready"
	case Reallocating:
		return "reallocating"
	case Disposed:
		return "disposed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	// ErrDisposed is returned by any operation on a disposed pair.
	ErrDisposed = errors.New("field: pair disposed")
	// ErrNotReady is returned by Step before buffers are allocated.
	ErrNotReady = errors.New("field: pair not ready")
	// ErrReentrant is returned when Step or Resize is called from inside a step.
	ErrReentrant = errors.New("field: pair is mid-step")
)

// Pair is a ping-pong pair of fields. Exactly one field is readable at any
// time; the other is the write target of the step in progress and is never
// handed to readers until the step completes and roles swap.
type Pair struct {
	state    State
	read     *Field
	write    *Field
	stepping bool
	swaps    uint64
}

// NewPair returns an idle pair.
func NewPair() *Pair {
	return &Pair{state: Idle}
}

// State returns the current lifecycle state.
func (p *Pair) State() State { return p.state }

// Swaps returns the number of completed steps since the last resize.
func (p *Pair) Swaps() uint64 { return p.swaps }

// Size returns the dimensions of the allocated fields, or 0,0 when idle.
func (p *Pair) Size() (int, int) {
	if p.read == nil {
		return 0, 0
	}
	return p.read.W, p.read.H
}

// Resize reallocates both fields zero-cleared. A non-positive size releases
// the buffers and returns the pair to Idle. Reallocation completes before
// Resize returns.
func (p *Pair) Resize(w, h int) error {
	if p.state == Disposed {
		return ErrDisposed
	}
	if p.stepping {
		return ErrReentrant
	}
	if w <= 0 || h <= 0 {
		p.read, p.write = nil, nil
		p.state = Idle
		return nil
	}

	p.state = Reallocating
	if p.read != nil && p.read.W == w && p.read.H == h {
		p.read.Clear()
		p.write.Clear()
	} else {
		p.read = New(w, h)
		p.write = New(w, h)
	}
	p.swaps = 0
	p.state = Ready
	return nil
}

// Read returns the readable field: the result of the last completed step.
// Returns nil unless the pair is Ready.
func (p *Pair) Read() *Field {
	if p.state != Ready {
		return nil
	}
	return p.read
}

// Step runs fn with the current read field and the write target, then swaps
// roles. fn must not retain either field.
func (p *Pair) Step(fn func(read, write *Field)) error {
	switch {
	case p.state == Disposed:
		return ErrDisposed
	case p.state != Ready:
		return ErrNotReady
	case p.stepping:
		return ErrReentrant
	}

	p.stepping = true
	defer func() { p.stepping = false }()

	fn(p.read, p.write)

	p.read, p.write = p.write, p.read
	p.swaps++
	return nil
}

// Dispose releases both fields. Safe to call more than once.
func (p *Pair) Dispose() {
	p.read, p.write = nil, nil
	p.state = Disposed
}
