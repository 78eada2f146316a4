package pipeline

import (
	"maps"
	"slices"
	"sync"

	"github.com/Ceep-LLC/mivra.graphics/input"
)

// Hub is the host's event source: raw input, container resizes and page
// visibility. Listeners are called in registration order.
type Hub struct {
	mu         sync.Mutex
	next       int
	inputs     map[int]func(input.Event)
	resizes    map[int]func(Size)
	visibility map[int]func(bool)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		inputs:     make(map[int]func(input.Event)),
		resizes:    make(map[int]func(Size)),
		visibility: make(map[int]func(bool)),
	}
}

// OnInput registers an input listener and returns its cancel function.
func (h *Hub) OnInput(fn func(input.Event)) func() {
	return register(h, h.inputs, fn)
}

// OnResize registers a resize listener and returns its cancel function.
func (h *Hub) OnResize(fn func(Size)) func() {
	return register(h, h.resizes, fn)
}

// OnVisibility registers a visibility listener and returns its cancel function.
func (h *Hub) OnVisibility(fn func(bool)) func() {
	return register(h, h.visibility, fn)
}

func register[F any](h *Hub, m map[int]F, fn F) func() {
	h.mu.Lock()
	h.next++
	id := h.next
	m[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(m, id)
		h.mu.Unlock()
	}
}

func snapshot[F any](h *Hub, m map[int]F) []F {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := slices.Sorted(maps.Keys(m))
	out := make([]F, len(ids))
	for i, id := range ids {
		out[i] = m[id]
	}
	return out
}

// EmitInput delivers ev to every input listener.
func (h *Hub) EmitInput(ev input.Event) {
	for _, fn := range snapshot(h, h.inputs) {
		fn(ev)
	}
}

// EmitResize delivers sz to every resize listener.
func (h *Hub) EmitResize(sz Size) {
	for _, fn := range snapshot(h, h.resizes) {
		fn(sz)
	}
}

// EmitVisibility delivers the page visibility to every listener.
func (h *Hub) EmitVisibility(visible bool) {
	for _, fn := range snapshot(h, h.visibility) {
		fn(visible)
	}
}

// Listeners returns the total number of registered listeners.
func (h *Hub) Listeners() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.inputs) + len(h.resizes) + len(h.visibility)
}
