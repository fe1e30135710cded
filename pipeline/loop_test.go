package pipeline

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingPipeline counts Start calls.
type countingPipeline struct {
	count atomic.Int64
}

func (p *countingPipeline) Start() { p.count.Add(1) }
func (p *countingPipeline) Stop()  {}

// gatedPipeline signals when an iteration begins and waits for
// permission to finish it.
type gatedPipeline struct {
	started chan struct{}
	proceed chan struct{}
	count   atomic.Int64
}

func (p *gatedPipeline) Start() {
	select {
	case p.started <- struct{}{}:
	default:
	}
	<-p.proceed
	p.count.Add(1)
}

func (p *gatedPipeline) Stop() {}

func TestLoopRepeatsInnerUntilStopped(t *testing.T) {
	inner := &countingPipeline{}
	looped := NewLooped(inner)
	done := make(chan struct{})
	go func() {
		defer close(done)
		looped.Start()
	}()

	require.Eventually(t, func() bool { return inner.count.Load() >= 3 },
		time.Second, time.Millisecond)
	looped.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after stop")
	}
}

func TestLoopStopPermitsInFlightIterationToFinish(t *testing.T) {
	inner := &gatedPipeline{
		started: make(chan struct{}, 1),
		proceed: make(chan struct{}),
	}
	looped := NewLooped(inner)
	done := make(chan struct{})
	go func() {
		defer close(done)
		looped.Start()
	}()

	<-inner.started
	looped.Stop()
	close(inner.proceed)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after stop")
	}
	assert.Equal(t, int64(1), inner.count.Load(), "in-flight iteration should complete, later ones should not run")
}

func TestLoopIterationCountStableAfterExit(t *testing.T) {
	inner := &countingPipeline{}
	looped := NewLooped(inner)
	done := make(chan struct{})
	go func() {
		defer close(done)
		looped.Start()
	}()

	require.Eventually(t, func() bool { return inner.count.Load() >= 1 },
		time.Second, time.Millisecond)
	looped.Stop()
	<-done

	atExit := inner.count.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, atExit, inner.count.Load())
}

func TestLoopStopBeforeStartDoesNotIterate(t *testing.T) {
	inner := &countingPipeline{}
	looped := NewLooped(inner)
	looped.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		looped.Start()
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop ran despite a prior stop")
	}
	assert.Equal(t, int64(0), inner.count.Load())
}
