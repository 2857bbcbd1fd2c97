// Package scheduler drives the check loop: it evaluates every enabled
// source's schedules, sleeps until the earliest trigger, and enqueues due
// checks on the executor.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sitevigil/sitevigil/internal/config"
	"github.com/sitevigil/sitevigil/internal/executor"
	"github.com/sitevigil/sitevigil/internal/models"
	"github.com/sitevigil/sitevigil/internal/schedule"
)

// resubmitGrace bounds how long a dispatched check blocks re-dispatch when
// its result has not landed yet.
const resubmitGrace = 5 * time.Minute

// SourceLister supplies the sources eligible for scheduling.
type SourceLister interface {
	ListEnabled() ([]*models.Source, error)
	Get(id int64) (*models.Source, error)
}

// CheckRunner executes one check for a source.
type CheckRunner interface {
	Check(ctx context.Context, source *models.Source) (*models.CheckResult, error)
}

// Scheduler owns the trigger loop. It never runs checks itself; due sources
// are handed to the executor.
type Scheduler struct {
	sources SourceLister
	runner  CheckRunner
	exec    *executor.Executor
	log     zerolog.Logger

	idleWake time.Duration

	wake chan struct{}
	stop chan struct{}
	done chan struct{}

	mu        sync.Mutex
	submitted map[int64]time.Time
}

func New(cfg config.SchedulerConfig, sources SourceLister, runner CheckRunner, exec *executor.Executor, log zerolog.Logger) *Scheduler {
	idle := time.Duration(cfg.IdleWakeSeconds) * time.Second
	if idle <= 0 {
		idle = time.Minute
	}
	return &Scheduler{
		sources:   sources,
		runner:    runner,
		exec:      exec,
		log:       log.With().Str("component", "scheduler").Logger(),
		idleWake:  idle,
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		submitted: make(map[int64]time.Time),
	}
}

// Start launches the trigger loop.
func (s *Scheduler) Start() {
	go s.run()
	s.log.Info().Dur("idle_wake", s.idleWake).Msg("Scheduler started")
}

// Stop terminates the loop and waits for it to exit. Queued and running
// checks are the executor's concern.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
	s.log.Info().Msg("Scheduler stopped")
}

// Wake forces an immediate re-evaluation, used after sources or schedules
// change.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// TriggerNow enqueues a check for one source immediately, bypassing its
// schedules.
func (s *Scheduler) TriggerNow(sourceID int64) error {
	source, err := s.sources.Get(sourceID)
	if err != nil {
		return err
	}
	s.dispatch(source, time.Now())
	return nil
}

// Cancel drops any pending (not yet running) checks for the source.
func (s *Scheduler) Cancel(sourceID int64) {
	dropped := s.exec.CancelPending(sourceID)
	s.mu.Lock()
	delete(s.submitted, sourceID)
	s.mu.Unlock()
	if dropped > 0 {
		s.log.Info().Int64("source_id", sourceID).Int("dropped", dropped).Msg("Pending checks cancelled")
	}
}

func (s *Scheduler) run() {
	defer close(s.done)

	for {
		next := s.sweep(time.Now())

		sleep := s.idleWake
		if !next.IsZero() {
			if until := time.Until(next); until < sleep {
				sleep = until
			}
		}
		if sleep < time.Second {
			sleep = time.Second
		}

		timer := time.NewTimer(sleep)
		select {
		case <-s.stop:
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// sweep dispatches every due source and returns the earliest upcoming
// trigger across the rest, or zero when no source can fire.
func (s *Scheduler) sweep(now time.Time) time.Time {
	sources, err := s.sources.ListEnabled()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list sources for scheduling")
		return time.Time{}
	}

	var earliest time.Time
	for _, source := range sources {
		if len(source.Schedules) == 0 {
			continue
		}

		if schedule.IsDue(source.Schedules, source.LastCheckTime, now) && s.mayDispatch(source, now) {
			s.dispatch(source, now)
			continue
		}

		next, ok := schedule.NextTrigger(source.Schedules, source.LastCheckTime, now)
		if !ok {
			continue
		}
		if earliest.IsZero() || next.Before(earliest) {
			earliest = next
		}
	}
	return earliest
}

// mayDispatch suppresses duplicate enqueues while a previously dispatched
// check has not yet updated the source's last-check time.
func (s *Scheduler) mayDispatch(source *models.Source, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.submitted[source.ID]
	if !ok {
		return true
	}
	if source.LastCheckTime.After(at) {
		return true
	}
	return now.Sub(at) > resubmitGrace
}

func (s *Scheduler) dispatch(source *models.Source, now time.Time) {
	s.mu.Lock()
	s.submitted[source.ID] = now
	s.mu.Unlock()

	src := source
	err := s.exec.Submit(executor.Task{
		SourceID: src.ID,
		Run: func(ctx context.Context) {
			if _, err := s.runner.Check(ctx, src); err != nil {
				s.log.Debug().Err(err).Int64("source_id", src.ID).Msg("Check not run")
			}
			s.Wake()
		},
	})
	if err != nil {
		s.log.Warn().Err(err).Int64("source_id", src.ID).Msg("Failed to enqueue check")
		return
	}

	s.log.Debug().Int64("source_id", src.ID).Msg("Check enqueued")
}
