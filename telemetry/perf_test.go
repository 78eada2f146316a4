package telemetry

import (
	"testing"
	"time"
)

// fakeClock advances only when told to.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newCollector(window int) (*PerfCollector, *fakeClock) {
	c := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	pc := NewPerfCollector(window)
	pc.now = c.now
	return pc, c
}

func TestPerfCollector_PhaseBreakdown(t *testing.T) {
	pc, c := newCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartFrame()
		pc.StartPhase(PhaseStep)
		c.advance(3 * time.Millisecond)
		pc.StartPhase(PhaseCompose)
		c.advance(1 * time.Millisecond)
		// A second layer steps within the same frame
		pc.StartPhase(PhaseStep)
		c.advance(1 * time.Millisecond)
		pc.EndFrame()
	}

	stats := pc.Stats()
	if stats.AvgFrame != 5*time.Millisecond {
		t.Errorf("avg frame = %v, want 5ms", stats.AvgFrame)
	}
	if stats.PhaseAvg[PhaseStep] != 4*time.Millisecond {
		t.Errorf("step avg = %v, want 4ms accumulated across layers", stats.PhaseAvg[PhaseStep])
	}
	if pct := stats.PhasePct[PhaseCompose]; pct < 19.9 || pct > 20.1 {
		t.Errorf("compose pct = %v, want 20", pct)
	}
	if stats.FramesPerSecond != 200 {
		t.Errorf("frames per sec = %v, want 200", stats.FramesPerSecond)
	}
}

func TestPerfCollector_Jitter(t *testing.T) {
	pc, c := newCollector(4)

	steady := func(d time.Duration) {
		pc.StartFrame()
		pc.StartPhase(PhaseStep)
		c.advance(d)
		pc.EndFrame()
	}
	for i := 0; i < 4; i++ {
		steady(10 * time.Millisecond)
	}
	if j := pc.Stats().Jitter; j != 0 {
		t.Errorf("steady frames jitter = %v, want 0", j)
	}

	// The window rolls: two slow frames replace two steady ones
	steady(20 * time.Millisecond)
	steady(20 * time.Millisecond)
	stats := pc.Stats()
	if pc.Samples() != 4 {
		t.Errorf("samples = %d, want window of 4", pc.Samples())
	}
	if stats.AvgFrame != 15*time.Millisecond {
		t.Errorf("avg = %v, want 15ms", stats.AvgFrame)
	}
	if stats.Jitter <= 0 {
		t.Error("mixed frames reported no jitter")
	}
	if stats.MinFrame != 10*time.Millisecond || stats.MaxFrame != 20*time.Millisecond {
		t.Errorf("min/max = %v/%v", stats.MinFrame, stats.MaxFrame)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()
	if stats.AvgFrame != 0 {
		t.Error("expected zero avg frame duration for empty collector")
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("expected non-nil phase maps")
	}
}

func TestPerfCollector_PresentInterval(t *testing.T) {
	pc, c := newCollector(10)

	pc.RecordPresent()
	c.advance(20 * time.Millisecond)
	pc.RecordPresent()

	stats := pc.Stats()
	if stats.Interval != 20*time.Millisecond {
		t.Errorf("interval = %v, want 20ms", stats.Interval)
	}
	if stats.FPS != 50 {
		t.Errorf("fps = %v, want 50", stats.FPS)
	}
}
