// Package app assembles the application's services. Everything is
// constructed explicitly here and passed by reference; no component reaches
// for ambient globals.
package app

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/sitevigil/sitevigil/internal/checker"
	"github.com/sitevigil/sitevigil/internal/comparator"
	"github.com/sitevigil/sitevigil/internal/config"
	"github.com/sitevigil/sitevigil/internal/datastore"
	"github.com/sitevigil/sitevigil/internal/errorx"
	"github.com/sitevigil/sitevigil/internal/executor"
	"github.com/sitevigil/sitevigil/internal/fetcher"
	"github.com/sitevigil/sitevigil/internal/netpolicy"
	"github.com/sitevigil/sitevigil/internal/notifier"
	"github.com/sitevigil/sitevigil/internal/scheduler"
)

// Registry holds the application's constructed services for the lifetime of
// the process.
type Registry struct {
	Config *config.GlobalConfig
	Log    zerolog.Logger

	DB      *datastore.DB
	Sources *datastore.SourceStore
	History *datastore.HistoryStore

	Checker   *checker.Checker
	Executor  *executor.Executor
	Scheduler *scheduler.Scheduler

	rendered *fetcher.RenderedFetcher
}

// Build wires all services from configuration. On error, anything already
// opened is closed again.
func Build(cfg *config.GlobalConfig, log zerolog.Logger) (*Registry, error) {
	db, err := datastore.NewDB(filepath.Join(cfg.StorageConfig.DataDir, "sitevigil.db"), log)
	if err != nil {
		return nil, errorx.Wrap(err, "failed to open datastore")
	}

	history, err := datastore.NewHistoryStore(cfg.StorageConfig.DataDir, log)
	if err != nil {
		db.Close()
		return nil, errorx.Wrap(err, "failed to open history store")
	}

	sources := datastore.NewSourceStore(db)

	static := fetcher.NewStaticFetcher(cfg.FetcherConfig, log)

	var rendered *fetcher.RenderedFetcher
	var renderedFetcher checker.Fetcher
	if cfg.RenderedConfig.Enabled {
		rendered = fetcher.NewRenderedFetcher(cfg.RenderedConfig, log)
		renderedFetcher = rendered
	}

	chk := checker.NewChecker(cfg.CheckerConfig, checker.Options{
		StaticFetcher:   static,
		RenderedFetcher: renderedFetcher,
		Comparator:      comparator.New(log),
		History:         history,
		Sources:         sources,
		Notifier:        notifier.New(cfg.NotifierConfig, log),
		Policy:          netpolicy.NewInterfaceProber(log),
	}, log)

	exec := executor.New(cfg.ExecutorConfig, log)
	sched := scheduler.New(cfg.SchedulerConfig, sources, chk, exec, log)

	return &Registry{
		Config:    cfg,
		Log:       log,
		DB:        db,
		Sources:   sources,
		History:   history,
		Checker:   chk,
		Executor:  exec,
		Scheduler: sched,
		rendered:  rendered,
	}, nil
}

// Start launches the scheduler loop.
func (r *Registry) Start() {
	r.Scheduler.Start()
}

// Shutdown stops the scheduler, drains the executor, and releases all held
// resources.
func (r *Registry) Shutdown() {
	r.Scheduler.Stop()
	r.Executor.Shutdown()
	if r.rendered != nil {
		r.rendered.Close()
	}
	if err := r.DB.Close(); err != nil {
		r.Log.Warn().Err(err).Msg("Database close failed")
	}
}
