package pipeline

import "sync/atomic"

// LoopedPipeline repeats its inner pipeline until stopped. The running
// flag is owned exclusively by this instance: read by the goroutine
// executing Start, written by whichever goroutine calls Stop. The
// stopped latch makes a Stop that races ahead of Start stick, so an
// async worker that has not yet set the running flag cannot revive the
// loop and leave its joiner waiting forever.
type LoopedPipeline struct {
	inner   Pipeline
	running atomic.Bool
	stopped atomic.Bool
}

// NewLooped creates a loop decorator around inner.
func NewLooped(inner Pipeline) *LoopedPipeline {
	return &LoopedPipeline{inner: inner}
}

// Start loops the inner pipeline until Stop is called. This call
// blocks the invoking goroutine for the loop's entire lifetime; run it
// on a dedicated goroutine, typically via AsyncPipeline. If Stop
// already ran, Start returns without an iteration.
func (l *LoopedPipeline) Start() {
	l.running.Store(true)
	for l.running.Load() && !l.stopped.Load() {
		l.inner.Start()
	}
}

// Stop signals the loop to exit. An in-flight inner iteration is not
// interrupted; the loop exits once it completes.
func (l *LoopedPipeline) Stop() {
	l.stopped.Store(true)
	l.running.Store(false)
}
