// Package executor hosts check invocations on a bounded worker pool with a
// single core worker, an elastic upper bound, and an unbounded task queue.
package executor

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/sitevigil/sitevigil/internal/config"
	"github.com/sitevigil/sitevigil/internal/errorx"
)

const (
	coreWorkers = 1
	minWorkers  = 1
	maxWorkers  = 15

	idleTimeout      = 60 * time.Second
	gracefulWait     = 30 * time.Second
	forcedWait       = 10 * time.Second
	workerStopWait   = 2 * time.Second
	memoryCheckEvery = 32
)

// Task is one unit of pool work, keyed by source so pending work can be
// cancelled by identity.
type Task struct {
	SourceID int64
	Run      func(ctx context.Context)
}

// Executor is the check worker pool. One core worker always runs; extra
// workers spawn on demand up to the configured maximum and evict themselves
// after sitting idle.
type Executor struct {
	log zerolog.Logger

	mu       sync.Mutex
	pending  []Task
	max      int
	workers  int
	active   int
	shutdown bool

	workCh   chan Task
	dispatch chan struct{}
	stopCh   chan struct{}
	wg       sync.WaitGroup

	taskCtx    context.Context
	cancelTask context.CancelFunc

	memLimitMB int
	taskCount  uint64
	proc       *process.Process
}

// New creates and starts the pool with its core worker.
func New(cfg config.ExecutorConfig, log zerolog.Logger) *Executor {
	taskCtx, cancel := context.WithCancel(context.Background())

	e := &Executor{
		log:        log.With().Str("component", "executor").Logger(),
		max:        clampWorkers(cfg.MaxWorkers),
		workCh:     make(chan Task),
		dispatch:   make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
		taskCtx:    taskCtx,
		cancelTask: cancel,
		memLimitMB: cfg.MemoryLimitMB,
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		e.proc = p
	}

	e.wg.Add(1)
	e.workers = coreWorkers
	go e.worker(true)

	go e.dispatcher()

	e.log.Info().Int("max_workers", e.max).Msg("Executor started")
	return e
}

// Submit enqueues a task. The queue itself is unbounded; only worker
// parallelism is capped.
func (e *Executor) Submit(task Task) error {
	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		return errorx.ErrShuttingDown
	}
	e.pending = append(e.pending, task)
	e.mu.Unlock()

	e.kickDispatcher()
	return nil
}

// CancelPending removes any queued (not yet running) tasks for the source.
// It returns how many were dropped.
func (e *Executor) CancelPending(sourceID int64) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.pending[:0]
	dropped := 0
	for _, t := range e.pending {
		if t.SourceID == sourceID {
			dropped++
			continue
		}
		kept = append(kept, t)
	}
	e.pending = kept
	return dropped
}

// Resize changes the worker ceiling, clamped to the allowed range. Growth
// applies immediately; on shrink, surplus workers drain their current task
// and exit instead of picking up new work.
func (e *Executor) Resize(max int) {
	max = clampWorkers(max)

	e.mu.Lock()
	old := e.max
	e.max = max
	e.mu.Unlock()

	if max != old {
		e.log.Info().Int("old", old).Int("new", max).Msg("Executor resized")
	}
	if max > old {
		e.kickDispatcher()
	}
}

// QueueDepth reports how many tasks wait for a worker.
func (e *Executor) QueueDepth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Shutdown stops accepting work and drains gracefully: it waits up to 30s for
// queued and running tasks, then cancels task contexts and waits up to 10s
// more. It always returns; the result reports whether the drain was clean.
func (e *Executor) Shutdown() bool {
	e.mu.Lock()
	if e.shutdown {
		e.mu.Unlock()
		return true
	}
	e.shutdown = true
	e.mu.Unlock()
	e.kickDispatcher()

	if e.awaitDrain(gracefulWait) {
		e.stopWorkers()
		e.log.Info().Msg("Executor shut down cleanly")
		return true
	}

	e.log.Warn().Msg("Graceful drain timed out, cancelling running checks")
	e.cancelTask()

	clean := e.awaitDrain(forcedWait)
	e.stopWorkers()
	if clean {
		e.log.Info().Msg("Executor shut down after forced cancellation")
	} else {
		e.log.Error().Msg("Executor shut down with tasks still running")
	}
	return clean
}

// dispatcher moves tasks from the unbounded queue to workers, spawning extra
// workers while spare capacity exists.
func (e *Executor) dispatcher() {
	for range e.dispatch {
		for {
			e.mu.Lock()
			if len(e.pending) == 0 {
				done := e.shutdown
				e.mu.Unlock()
				if done {
					return
				}
				break
			}
			task := e.pending[0]
			e.pending = e.pending[1:]
			// Counted as active from dequeue so the shutdown drain never
			// misses a task in hand-off.
			e.active++

			// All workers busy and room to grow: add one.
			if e.active > e.workers && e.workers < e.max {
				e.workers++
				e.wg.Add(1)
				go e.worker(false)
			}
			e.mu.Unlock()

			select {
			case e.workCh <- task:
			case <-e.stopCh:
				e.mu.Lock()
				e.active--
				e.mu.Unlock()
				return
			}
		}
	}
}

func (e *Executor) worker(core bool) {
	defer e.wg.Done()

	idle := time.NewTimer(idleTimeout)
	defer idle.Stop()

	for {
		if core {
			select {
			case task := <-e.workCh:
				e.run(task)
			case <-e.stopCh:
				return
			}
			continue
		}

		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
		idle.Reset(idleTimeout)

		select {
		case task := <-e.workCh:
			e.run(task)
			if e.surplus() {
				return
			}
		case <-e.stopCh:
			return
		case <-idle.C:
			e.mu.Lock()
			e.workers--
			e.mu.Unlock()
			return
		}
	}
}

func (e *Executor) run(task Task) {
	e.mu.Lock()
	e.taskCount++
	count := e.taskCount
	e.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Int64("source_id", task.SourceID).
				Msg("Check task panicked")
		}
		e.mu.Lock()
		e.active--
		e.mu.Unlock()
	}()

	if count%memoryCheckEvery == 0 {
		e.guardMemory()
	}

	task.Run(e.taskCtx)
}

// surplus reports whether this worker should exit because the pool shrank
// below the current worker count.
func (e *Executor) surplus() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.workers > e.max {
		e.workers--
		return true
	}
	return false
}

// guardMemory logs and forces a GC cycle when process memory exceeds the
// configured limit.
func (e *Executor) guardMemory() {
	if e.memLimitMB <= 0 || e.proc == nil {
		return
	}
	info, err := e.proc.MemoryInfo()
	if err != nil {
		return
	}
	usedMB := info.RSS / (1024 * 1024)
	if usedMB > uint64(e.memLimitMB) {
		e.log.Warn().Uint64("used_mb", usedMB).Int("limit_mb", e.memLimitMB).
			Msg("Memory limit exceeded, forcing garbage collection")
		runtime.GC()
	}
}

func (e *Executor) awaitDrain(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		e.mu.Lock()
		drained := len(e.pending) == 0 && e.active == 0
		e.mu.Unlock()
		if drained {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	e.mu.Lock()
	drained := len(e.pending) == 0 && e.active == 0
	e.mu.Unlock()
	return drained
}

// stopWorkers signals workers and the dispatcher to exit and waits briefly
// for them. A task that ignores cancellation keeps its goroutine; the wait
// is bounded so Shutdown still returns.
func (e *Executor) stopWorkers() {
	close(e.stopCh)

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(workerStopWait):
		e.log.Warn().Msg("Workers did not exit in time, abandoning them")
	}
}

func (e *Executor) kickDispatcher() {
	select {
	case e.dispatch <- struct{}{}:
	default:
	}
}

func clampWorkers(n int) int {
	if n < minWorkers {
		return minWorkers
	}
	if n > maxWorkers {
		return maxWorkers
	}
	return n
}
