package pipeline

import (
	"runtime"
	"sync"
)

// parallelRows is the minimum row count to split across workers.
// Below this, a single goroutine is faster.
const parallelRows = 64

// rowChunk is a half-open row range for one worker.
type rowChunk struct {
	y0, y1 int
	fn     func(y0, y1 int)
}

// Workers is a persistent pool that splits per-pixel passes by rows.
// Rows must only be called from one goroutine at a time.
type Workers struct {
	numWorkers int

	workChan chan rowChunk
	doneChan chan any // nil, or a recovered panic
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
}

// NewWorkers creates a pool of n workers; n <= 0 uses GOMAXPROCS.
// Goroutines start lazily on the first parallel pass.
func NewWorkers(n int) *Workers {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return &Workers{numWorkers: n}
}

// Size returns the worker count.
func (w *Workers) Size() int { return w.numWorkers }

func (w *Workers) start() {
	if w.running {
		return
	}
	w.workChan = make(chan rowChunk, w.numWorkers)
	w.doneChan = make(chan any, w.numWorkers)
	w.stopChan = make(chan struct{})
	w.running = true

	for i := 0; i < w.numWorkers; i++ {
		w.wg.Add(1)
		go w.worker()
	}
}

// Stop signals all workers to exit and waits for them.
func (w *Workers) Stop() {
	if w == nil || !w.running {
		return
	}
	close(w.stopChan)
	w.wg.Wait()
	close(w.workChan)
	close(w.doneChan)
	w.running = false
}

func (w *Workers) worker() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopChan:
			return
		case c, ok := <-w.workChan:
			if !ok {
				return
			}
			w.doneChan <- run(c)
		}
	}
}

func run(c rowChunk) (recovered any) {
	defer func() { recovered = recover() }()
	c.fn(c.y0, c.y1)
	return nil
}

// Rows calls fn over [0, h) split into contiguous row ranges, one per
// worker, and returns when every range is done. Small passes and nil pools
// run inline. fn must only write rows inside its range. A panic in any range
// is re-raised on the calling goroutine once all ranges have finished.
func (w *Workers) Rows(h int, fn func(y0, y1 int)) {
	if h <= 0 {
		return
	}
	if w == nil || w.numWorkers <= 1 || h < parallelRows {
		fn(0, h)
		return
	}
	w.start()

	chunk := (h + w.numWorkers - 1) / w.numWorkers
	dispatched := 0
	for i := 0; i < w.numWorkers; i++ {
		y0 := i * chunk
		if y0 >= h {
			break
		}
		y1 := min(y0+chunk, h)
		w.workChan <- rowChunk{y0: y0, y1: y1, fn: fn}
		dispatched++
	}
	var failed any
	for i := 0; i < dispatched; i++ {
		if r := <-w.doneChan; r != nil && failed == nil {
			failed = r
		}
	}
	if failed != nil {
		panic(failed)
	}
}
