package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitevigil/sitevigil/internal/config"
	"github.com/sitevigil/sitevigil/internal/errorx"
	"github.com/sitevigil/sitevigil/internal/executor"
	"github.com/sitevigil/sitevigil/internal/models"
)

type stubLister struct {
	mu      sync.Mutex
	sources []*models.Source
}

func (l *stubLister) ListEnabled() ([]*models.Source, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sources, nil
}

func (l *stubLister) Get(id int64) (*models.Source, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.sources {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, errorx.ErrNotFound
}

type stubRunner struct {
	mu      sync.Mutex
	checked []int64
	done    chan struct{}
}

func (r *stubRunner) Check(_ context.Context, source *models.Source) (*models.CheckResult, error) {
	r.mu.Lock()
	r.checked = append(r.checked, source.ID)
	source.LastCheckTime = time.Now()
	r.mu.Unlock()
	if r.done != nil {
		r.done <- struct{}{}
	}
	return &models.CheckResult{SourceID: source.ID, Success: true}, nil
}

func (r *stubRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.checked)
}

func dueSource(id int64) *models.Source {
	source := models.NewSource("https://example.com", "")
	source.ID = id
	return source
}

func newTestScheduler(t *testing.T, lister *stubLister, runner *stubRunner) (*Scheduler, *executor.Executor) {
	t.Helper()
	exec := executor.New(config.ExecutorConfig{MaxWorkers: 2}, zerolog.Nop())
	t.Cleanup(func() { exec.Shutdown() })
	return New(config.NewDefaultSchedulerConfig(), lister, runner, exec, zerolog.Nop()), exec
}

func TestSweepDispatchesDueSources(t *testing.T) {
	runner := &stubRunner{done: make(chan struct{}, 4)}
	lister := &stubLister{sources: []*models.Source{dueSource(1), dueSource(2)}}
	s, _ := newTestScheduler(t, lister, runner)

	next := s.sweep(time.Now())

	for i := 0; i < 2; i++ {
		select {
		case <-runner.done:
		case <-time.After(2 * time.Second):
			t.Fatal("check not dispatched")
		}
	}
	assert.Equal(t, 2, runner.count())
	assert.True(t, next.IsZero(), "both sources dispatched, nothing upcoming")
}

func TestSweepReturnsEarliestUpcomingTrigger(t *testing.T) {
	now := time.Now()
	source := dueSource(1)
	source.LastCheckTime = now.Add(-10 * time.Minute)
	source.Schedules[0].IntervalMinutes = 60

	lister := &stubLister{sources: []*models.Source{source}}
	runner := &stubRunner{}
	s, _ := newTestScheduler(t, lister, runner)

	next := s.sweep(now)

	require.False(t, next.IsZero())
	assert.WithinDuration(t, now.Add(50*time.Minute), next, time.Second)
	assert.Zero(t, runner.count())
}

func TestDuplicateDispatchSuppressed(t *testing.T) {
	runner := &stubRunner{}
	source := dueSource(1)
	lister := &stubLister{sources: []*models.Source{source}}
	s, _ := newTestScheduler(t, lister, runner)

	now := time.Now()
	s.dispatch(source, now)
	assert.False(t, s.mayDispatch(source, now.Add(time.Second)), "result still pending")

	source.LastCheckTime = now.Add(2 * time.Second)
	assert.True(t, s.mayDispatch(source, now.Add(3*time.Second)), "check landed")

	s.submitted[source.ID] = now.Add(-resubmitGrace - time.Minute)
	source.LastCheckTime = time.Time{}
	assert.True(t, s.mayDispatch(source, now), "grace period expired")
}

func TestTriggerNow(t *testing.T) {
	runner := &stubRunner{done: make(chan struct{}, 1)}
	lister := &stubLister{sources: []*models.Source{dueSource(5)}}
	s, _ := newTestScheduler(t, lister, runner)

	require.NoError(t, s.TriggerNow(5))

	select {
	case <-runner.done:
	case <-time.After(2 * time.Second):
		t.Fatal("manual trigger not dispatched")
	}

	err := s.TriggerNow(99)
	assert.ErrorIs(t, err, errorx.ErrNotFound)
}

func TestInactiveSourcesYieldNoTrigger(t *testing.T) {
	source := dueSource(1)
	source.LastCheckTime = time.Now()
	source.Schedules[0].CalendarType = models.CalendarSelectedDay
	source.Schedules[0].SelectedDate = time.Now().AddDate(0, 0, -2)

	lister := &stubLister{sources: []*models.Source{source}}
	runner := &stubRunner{}
	s, _ := newTestScheduler(t, lister, runner)

	next := s.sweep(time.Now())
	assert.True(t, next.IsZero())
	assert.Zero(t, runner.count())
}

func TestStartStop(t *testing.T) {
	runner := &stubRunner{done: make(chan struct{}, 1)}
	lister := &stubLister{sources: []*models.Source{dueSource(1)}}
	s, _ := newTestScheduler(t, lister, runner)

	s.Start()
	select {
	case <-runner.done:
	case <-time.After(3 * time.Second):
		t.Fatal("loop did not dispatch due source")
	}
	s.Stop()
}
