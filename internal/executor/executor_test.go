package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitevigil/sitevigil/internal/config"
	"github.com/sitevigil/sitevigil/internal/errorx"
)

func newTestExecutor(maxWorkers int) *Executor {
	return New(config.ExecutorConfig{MaxWorkers: maxWorkers}, zerolog.Nop())
}

func TestSubmittedTasksRun(t *testing.T) {
	e := newTestExecutor(3)
	defer e.Shutdown()

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		err := e.Submit(Task{SourceID: int64(i), Run: func(context.Context) {
			ran.Add(1)
			wg.Done()
		}})
		require.NoError(t, err)
	}

	wg.Wait()
	assert.Equal(t, int32(20), ran.Load())
}

func TestParallelismBounded(t *testing.T) {
	e := newTestExecutor(2)
	defer e.Shutdown()

	var current, peak atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 6; i++ {
		wg.Add(1)
		_ = e.Submit(Task{SourceID: int64(i), Run: func(context.Context) {
			defer wg.Done()
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			current.Add(-1)
		}})
	}

	time.Sleep(200 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestCancelPendingDropsQueuedTasks(t *testing.T) {
	e := newTestExecutor(1)
	defer e.Shutdown()

	block := make(chan struct{})
	started := make(chan struct{})
	_ = e.Submit(Task{SourceID: 1, Run: func(context.Context) {
		close(started)
		<-block
	}})
	<-started

	var ran atomic.Int32
	for i := 0; i < 3; i++ {
		_ = e.Submit(Task{SourceID: 42, Run: func(context.Context) { ran.Add(1) }})
	}
	_ = e.Submit(Task{SourceID: 43, Run: func(context.Context) { ran.Add(1) }})

	// One task for source 42 may already be in worker hand-off; the rest
	// must be dropped from the queue.
	dropped := e.CancelPending(42)
	assert.GreaterOrEqual(t, dropped, 2)

	close(block)
	time.Sleep(200 * time.Millisecond)
	assert.LessOrEqual(t, ran.Load(), int32(2))
}

func TestResizeClampsRange(t *testing.T) {
	e := newTestExecutor(3)
	defer e.Shutdown()

	e.Resize(100)
	e.mu.Lock()
	assert.Equal(t, 15, e.max)
	e.mu.Unlock()

	e.Resize(0)
	e.mu.Lock()
	assert.Equal(t, 1, e.max)
	e.mu.Unlock()
}

func TestShutdownDrainsQueue(t *testing.T) {
	e := newTestExecutor(2)

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		_ = e.Submit(Task{SourceID: int64(i), Run: func(context.Context) {
			time.Sleep(10 * time.Millisecond)
			ran.Add(1)
		}})
	}

	clean := e.Shutdown()
	assert.True(t, clean)
	assert.Equal(t, int32(10), ran.Load())

	err := e.Submit(Task{SourceID: 99, Run: func(context.Context) {}})
	assert.ErrorIs(t, err, errorx.ErrShuttingDown)
}

func TestShutdownCancelsStuckTasks(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out the full graceful shutdown window")
	}
	e := newTestExecutor(1)

	started := make(chan struct{})
	_ = e.Submit(Task{SourceID: 1, Run: func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	}})
	<-started

	done := make(chan bool, 1)
	go func() { done <- e.Shutdown() }()

	select {
	case clean := <-done:
		// The graceful window elapses, then cancellation releases the task.
		assert.True(t, clean)
	case <-time.After(gracefulWait + forcedWait + 5*time.Second):
		t.Fatal("shutdown did not complete")
	}
}

func TestShutdownReturnsWhenTaskIgnoresCancel(t *testing.T) {
	if testing.Short() {
		t.Skip("waits out the full graceful shutdown window")
	}
	e := newTestExecutor(1)

	release := make(chan struct{})
	started := make(chan struct{})
	_ = e.Submit(Task{SourceID: 1, Run: func(context.Context) {
		close(started)
		<-release
	}})
	<-started

	done := make(chan bool, 1)
	go func() { done <- e.Shutdown() }()

	// The task never observes cancellation, so both drain windows elapse and
	// Shutdown must still come back, reporting a dirty stop.
	select {
	case clean := <-done:
		assert.False(t, clean)
	case <-time.After(gracefulWait + forcedWait + workerStopWait + 5*time.Second):
		t.Fatal("shutdown did not return with a task still running")
	}
	close(release)
}

func TestTaskPanicIsContained(t *testing.T) {
	e := newTestExecutor(2)
	defer e.Shutdown()

	var wg sync.WaitGroup
	wg.Add(1)
	_ = e.Submit(Task{SourceID: 1, Run: func(context.Context) {
		defer wg.Done()
		panic("boom")
	}})
	wg.Wait()

	var ran atomic.Int32
	wg.Add(1)
	_ = e.Submit(Task{SourceID: 2, Run: func(context.Context) {
		ran.Add(1)
		wg.Done()
	}})
	wg.Wait()
	assert.Equal(t, int32(1), ran.Load())
}
