package pipeline

import "sync"

// AsyncPipeline runs its inner pipeline on a dedicated goroutine, one
// concurrent execution unit per wrapped pipeline.
type AsyncPipeline struct {
	inner Pipeline
	mu    sync.Mutex
	done  chan struct{}
}

// NewAsync creates an async decorator around inner.
func NewAsync(inner Pipeline) *AsyncPipeline {
	return &AsyncPipeline{inner: inner}
}

// Start launches the inner pipeline's Start on a new goroutine and
// returns immediately.
func (a *AsyncPipeline) Start() {
	done := make(chan struct{})
	a.mu.Lock()
	a.done = done
	a.mu.Unlock()
	go func() {
		defer close(done)
		a.inner.Start()
	}()
}

// Stop signals the inner pipeline to stop and blocks until the
// goroutine has fully terminated. Calling Stop before Start is safe
// and returns without waiting.
func (a *AsyncPipeline) Stop() {
	a.inner.Stop()
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	if done != nil {
		<-done
	}
}
