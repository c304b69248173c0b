// Package runner holds the registry of named importers and launches
// pipeline runs against the shared scheduler, persisting each outcome.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	errs "github.com/tqviet/extraq/internal/errors"
	"github.com/tqviet/extraq/internal/runs"
	"github.com/tqviet/extraq/pkg/importer"
	"github.com/tqviet/extraq/pkg/pipeline"
	"github.com/tqviet/extraq/pkg/scheduler"
)

// Factory builds a fresh importer for one run. Extraction sequences are
// single-pass, so every run needs a new instance.
type Factory func() (importer.Importer, error)

type Options struct {
	Logger     *slog.Logger
	MaxPending int
}

type Runner struct {
	logger     *slog.Logger
	sched      *scheduler.Scheduler
	store      runs.Store
	sink       importer.Sink
	maxPending int

	mu        sync.RWMutex
	factories map[string]Factory
}

func New(opts *Options, sched *scheduler.Scheduler, store runs.Store, sink importer.Sink) *Runner {
	logger := slog.Default()
	maxPending := 0
	if opts != nil {
		if opts.Logger != nil {
			logger = opts.Logger
		}
		maxPending = opts.MaxPending
	}

	return &Runner{
		logger:     logger,
		sched:      sched,
		store:      store,
		sink:       sink,
		maxPending: maxPending,
		factories:  make(map[string]Factory),
	}
}

func (r *Runner) Register(name string, f Factory) error {
	if len(name) == 0 {
		return fmt.Errorf("importer name is required")
	}
	if f == nil {
		return fmt.Errorf("importer factory is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[name]; ok {
		return errs.NewErrAlreadyExists("importer")
	}
	r.factories[name] = f

	r.logger.
		With("importer", name).
		Info("importer registered")
	return nil
}

// Importers returns the registered importer names, sorted.
func (r *Runner) Importers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start records a new run and drives it in the background. The returned id
// can be polled through the run store.
func (r *Runner) Start(name string) (id string, err error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return "", errs.NewErrNotFound("importer")
	}

	imp, err := f()
	if err != nil {
		r.logger.
			With("importer", name).
			With("err", err).
			Error("failed to create importer")
		return "", fmt.Errorf("failed to create importer: %w", err)
	}

	info := runs.NewRunInfo(name)
	id, err = r.store.RecordRun(info)
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}

	go r.execute(id, name, imp)

	r.logger.
		With("importer", name).
		With("run_id", id).
		Info("run started")
	return id, nil
}

func (r *Runner) execute(id, name string, imp importer.Importer) {
	p := pipeline.New(r.sched, &pipeline.Options{
		Logger:     r.logger.With("importer", name).With("run_id", id),
		MaxPending: r.maxPending,
	})

	sum, err := p.Run(context.Background(), imp, r.sink)
	if err != nil {
		r.logger.
			With("run_id", id).
			With("err", err).
			Error("run failed to execute")
		r.finish(id, func(ri *runs.RunInfo) {
			ri.Status = runs.RunStatusAborted
			ri.Reason = err.Error()
		})
		return
	}

	r.finish(id, func(ri *runs.RunInfo) {
		ri.Estimated = sum.Estimated
		ri.Attempted = sum.Attempted
		ri.Succeeded = sum.Succeeded
		ri.Failed = sum.Failed

		ri.Failures = make([]runs.Failure, 0, len(sum.Failures))
		for _, f := range sum.Failures {
			ri.Failures = append(ri.Failures, runs.Failure{
				RecordID: f.RecordID,
				Reason:   f.Err.Error(),
			})
		}

		if sum.Aborted {
			ri.Status = runs.RunStatusAborted
			if sum.Cause != nil {
				ri.Reason = sum.Cause.Error()
			}
			return
		}
		ri.Status = runs.RunStatusCompleted
	})
}

func (r *Runner) finish(id string, fill func(*runs.RunInfo)) {
	ok, err := r.store.UpdateRun(id, func(ri *runs.RunInfo) bool {
		fill(ri)
		ri.CompletedAt = time.Now()
		return true
	})
	if err != nil {
		r.logger.
			With("run_id", id).
			With("err", err).
			Error("failed to persist run outcome")
		return
	}
	if !ok {
		r.logger.
			With("run_id", id).
			Error("run info disappeared before completion")
	}
}
