package pipeline

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

// Loop drives one instance's frame callbacks through a Scheduler.
//
// Every scheduled callback carries the generation it was scheduled under.
// Stopping, hiding or closing bumps the generation, so a callback that was
// already handed out runs as a no-op. The loop runs while it is started,
// visible and not closed.
type Loop struct {
	sched   Scheduler
	frame   func(now time.Time) error
	onStart func(now time.Time)
	onFail  func(err error)
	log     *slog.Logger

	gen     uint64
	req     uint64
	pending bool
	running bool

	wanted  bool
	visible bool
	closed  bool

	frames uint64
	stale  uint64
	err    error
}

// NewLoop creates a stopped, visible loop.
// onStart runs on every transition into the running state; onFail runs
// once when a frame fails or panics, after the loop has closed itself.
func NewLoop(sched Scheduler, frame func(now time.Time) error, onStart func(now time.Time), onFail func(err error), log *slog.Logger) *Loop {
	if log == nil {
		log = slog.Default()
	}
	return &Loop{
		sched:   sched,
		frame:   frame,
		onStart: onStart,
		onFail:  onFail,
		log:     log,
		visible: true,
	}
}

// Start requests frames. No-op once closed.
func (l *Loop) Start() {
	l.wanted = true
	l.sync()
}

// Stop cancels the pending callback immediately.
func (l *Loop) Stop() {
	l.wanted = false
	l.sync()
}

// SetVisible pauses while hidden and resumes, if started, when shown again.
func (l *Loop) SetVisible(visible bool) {
	l.visible = visible
	l.sync()
}

// Close stops the loop permanently.
func (l *Loop) Close() {
	l.closed = true
	l.sync()
}

// Running reports whether a frame callback is being kept scheduled.
func (l *Loop) Running() bool { return l.running }

// Visible reports the last visibility set.
func (l *Loop) Visible() bool { return l.visible }

// Closed reports whether Close was called or a frame failed.
func (l *Loop) Closed() bool { return l.closed }

// Frames returns the number of frame callbacks that did work.
func (l *Loop) Frames() uint64 { return l.frames }

// Stale returns the number of callbacks that fired under an old generation.
func (l *Loop) Stale() uint64 { return l.stale }

// Err returns the failure that closed the loop, if any.
func (l *Loop) Err() error { return l.err }

func (l *Loop) sync() {
	should := l.wanted && l.visible && !l.closed
	if should == l.running {
		return
	}
	l.gen++
	if should {
		l.running = true
		if l.onStart != nil {
			l.onStart(l.sched.Now())
		}
		l.schedule()
		return
	}
	l.running = false
	if l.pending {
		l.sched.Cancel(l.req)
		l.pending = false
	}
}

func (l *Loop) schedule() {
	gen := l.gen
	l.pending = true
	l.req = l.sched.Request(func(now time.Time) { l.fire(gen, now) })
}

func (l *Loop) fire(gen uint64, now time.Time) {
	if gen != l.gen || !l.running {
		l.stale++
		return
	}
	l.pending = false

	if err := l.safeFrame(now); err != nil {
		l.err = err
		l.log.Error("frame failed, disposing", "error", err)
		l.closed = true
		l.sync()
		if l.onFail != nil {
			l.onFail(err)
		}
		return
	}
	l.frames++

	// The frame may have stopped or restarted the loop itself
	if gen == l.gen && l.running && !l.pending {
		l.schedule()
	}
}

func (l *Loop) safeFrame(now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Debug("frame panic", "stack", string(debug.Stack()))
			err = fmt.Errorf("panic in frame: %v", r)
		}
	}()
	return l.frame(now)
}
