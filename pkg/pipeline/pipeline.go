// Package pipeline drives one importer's extraction sequence through a
// shared scheduler, records per-record outcomes and reports an aggregate
// summary. Extraction advances independently of transform completion; the
// only coupling is the scheduler's own backpressure.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tqviet/extraq/pkg/importer"
	"github.com/tqviet/extraq/pkg/scheduler"
)

const (
	// DefaultMaxPending pauses extraction once this many tasks are queued
	// but not started, so a fast source cannot grow the queue without bound.
	DefaultMaxPending = 1000

	DefaultReportEvery = 5 * time.Second

	throttlePoll = 5 * time.Millisecond
)

var ErrAlreadyRan = errors.New("pipeline already ran")

type Options struct {
	Logger *slog.Logger

	// MaxPending is the scheduler backlog at which extraction pauses.
	// Zero selects DefaultMaxPending; negative disables throttling.
	MaxPending int

	// ReportEvery is the progress logging interval.
	ReportEvery time.Duration
}

type Pipeline struct {
	sched       *scheduler.Scheduler
	logger      *slog.Logger
	maxPending  int
	reportEvery time.Duration

	done chan struct{}
	wg   sync.WaitGroup

	mu      sync.Mutex
	state   State
	summary Summary
}

func New(sched *scheduler.Scheduler, opts *Options) *Pipeline {
	o := defaultOpts(opts)

	maxPending := o.MaxPending
	switch {
	case maxPending == 0:
		maxPending = DefaultMaxPending
	case maxPending < 0:
		maxPending = 0
	}

	return &Pipeline{
		sched:       sched,
		logger:      o.Logger,
		maxPending:  maxPending,
		reportEvery: o.ReportEvery,
		done:        make(chan struct{}),
		state:       StateIdle,
	}
}

func defaultOpts(opts *Options) *Options {
	o := &Options{
		Logger:      slog.Default(),
		ReportEvery: DefaultReportEvery,
	}
	if opts == nil {
		return o
	}
	if opts.Logger != nil {
		o.Logger = opts.Logger
	}
	o.MaxPending = opts.MaxPending
	if opts.ReportEvery > 0 {
		o.ReportEvery = opts.ReportEvery
	}
	return o
}

// State returns the run's current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// Run drives the importer to completion. Per-record failures accumulate in
// the summary and never abort the run; a source-iterator failure stops
// extraction, drains in-flight tasks and marks the summary aborted. Run
// returns an error only on misuse, never for record-level outcomes.
func (p *Pipeline) Run(ctx context.Context, imp importer.Importer, sink importer.Sink) (*Summary, error) {
	if imp == nil {
		return nil, fmt.Errorf("importer is required")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink is required")
	}

	p.mu.Lock()
	if p.state != StateIdle {
		p.mu.Unlock()
		return nil, ErrAlreadyRan
	}
	p.state = StateExtracting
	p.mu.Unlock()

	estimated := -1
	if n, err := imp.EstimatedCount(ctx); err != nil {
		p.logger.
			With("err", err).
			Warn("estimated count unavailable")
	} else {
		estimated = n
	}

	p.mu.Lock()
	p.summary.Estimated = estimated
	p.mu.Unlock()

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		err := p.extract(gctx, imp, sink)
		if err != nil {
			p.setState(StateAborting)
		}
		p.setState(StateDraining)
		p.wg.Wait()
		close(p.done)
		return err
	})

	group.Go(func() error {
		p.report(gctx, estimated)
		return nil
	})

	cause := group.Wait()

	p.mu.Lock()
	if cause != nil {
		p.summary.Aborted = true
		p.summary.Cause = cause
		p.state = StateCompletedWithError
	} else {
		p.state = StateCompleted
	}
	sum := p.summary
	p.mu.Unlock()

	p.logger.
		With("attempted", sum.Attempted).
		With("succeeded", sum.Succeeded).
		With("failed", sum.Failed).
		With("aborted", sum.Aborted).
		Info("run finished")

	return &sum, nil
}

func (p *Pipeline) setState(st State) {
	p.mu.Lock()
	p.state = st
	p.mu.Unlock()
}

// extract pulls the source one record at a time and submits a transform+write
// task for each, without waiting on task completion.
func (p *Pipeline) extract(ctx context.Context, imp importer.Importer, sink importer.Sink) error {
	for rec, err := range imp.Extract(ctx) {
		if err != nil {
			return &ExtractionError{Err: err}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := p.throttle(ctx); err != nil {
			return err
		}

		p.submit(ctx, imp, sink, rec)
	}

	return nil
}

func (p *Pipeline) submit(ctx context.Context, imp importer.Importer, sink importer.Sink, rec importer.SourceRecord) {
	p.mu.Lock()
	p.summary.Attempted++
	p.mu.Unlock()

	// The task runs under the run's own context, not the scheduler's.
	fut := p.sched.Submit(func(_ context.Context) (any, error) {
		tgt, err := imp.Transform(ctx, rec)
		if err != nil {
			return nil, err
		}
		return nil, sink.Write(ctx, tgt)
	})

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		<-fut.Done()

		p.mu.Lock()
		defer p.mu.Unlock()
		if err := fut.Err(); err != nil {
			p.summary.Failed++
			p.summary.Failures = append(p.summary.Failures, Failure{
				RecordID: rec.ID,
				Err:      err,
			})
			return
		}
		p.summary.Succeeded++
	}()
}

// throttle blocks while the scheduler backlog sits at or above the
// configured ceiling.
func (p *Pipeline) throttle(ctx context.Context) error {
	if p.maxPending <= 0 {
		return nil
	}

	for p.sched.Pending() >= p.maxPending {
		timer := time.NewTimer(throttlePoll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return nil
}

func (p *Pipeline) report(ctx context.Context, estimated int) {
	ticker := time.NewTicker(p.reportEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-ticker.C:
			p.mu.Lock()
			attempted := p.summary.Attempted
			succeeded := p.summary.Succeeded
			failed := p.summary.Failed
			p.mu.Unlock()

			p.logger.
				With("attempted", attempted).
				With("succeeded", succeeded).
				With("failed", failed).
				With("estimated", estimated).
				With("pending", p.sched.Pending()).
				Info("run progress")
		}
	}
}
