package pipeline

import "time"

// FrameFunc is a display-synchronized frame callback.
type FrameFunc func(now time.Time)

// Scheduler hands out one-shot frame callbacks, like a browser's
// request-animation-frame.
type Scheduler interface {
	Request(fn FrameFunc) uint64
	Cancel(id uint64)
	Now() time.Time
}

type request struct {
	id   uint64
	fn   FrameFunc
	done bool
}

// ManualScheduler queues callbacks until Flush. Callbacks requested during
// a flush run on the following flush, never the current one, so frames of
// one pipeline cannot overlap. It is not safe for concurrent use.
type ManualScheduler struct {
	next    uint64
	queue   []*request
	byID    map[uint64]*request
	now     time.Time
	flushes uint64
}

// NewManualScheduler creates a scheduler whose clock starts at start.
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{byID: make(map[uint64]*request), now: start}
}

// Request queues fn for the next flush and returns its id.
func (m *ManualScheduler) Request(fn FrameFunc) uint64 {
	m.next++
	r := &request{id: m.next, fn: fn}
	m.queue = append(m.queue, r)
	m.byID[r.id] = r
	return r.id
}

// Cancel removes a pending request. Cancelling takes effect immediately,
// including for requests in the batch currently being flushed.
func (m *ManualScheduler) Cancel(id uint64) {
	r, ok := m.byID[id]
	if !ok {
		return
	}
	r.done = true
	delete(m.byID, id)
}

// Now returns the time of the last flush.
func (m *ManualScheduler) Now() time.Time { return m.now }

// Flush runs every callback queued before the call, in request order, and
// returns how many ran.
func (m *ManualScheduler) Flush(now time.Time) int {
	m.now = now
	m.flushes++

	batch := m.queue
	m.queue = nil
	ran := 0
	for _, r := range batch {
		if r.done {
			continue
		}
		r.done = true
		delete(m.byID, r.id)
		r.fn(now)
		ran++
	}
	return ran
}

// Pending returns the number of live queued requests.
func (m *ManualScheduler) Pending() int { return len(m.byID) }

// Flushes returns the number of Flush calls.
func (m *ManualScheduler) Flushes() uint64 { return m.flushes }
