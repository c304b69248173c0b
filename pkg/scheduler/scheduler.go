// Package scheduler runs tasks under a fixed concurrency ceiling and a
// rolling one-second rate limit, retrying failures with exponential backoff.
//
// A single Scheduler may be shared by multiple submitters to enforce one
// rate limit across them; Pending, Size and OnIdle then reflect the union
// of all submitted work.
package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Task is a unit of schedulable work. The scheduler may invoke it up to
// retries+1 times, so its side effects must tolerate repeated attempts.
type Task func(ctx context.Context) (any, error)

var (
	ErrInvalidConfig = errors.New("invalid scheduler config")
	ErrCanceled      = errors.New("task canceled")
	ErrClosed        = errors.New("scheduler is closed")
)

type Config struct {
	// RequestsPerSecond caps task starts within any rolling one-second window.
	RequestsPerSecond int

	// Concurrency caps the number of tasks running at the same time.
	Concurrency int

	// MaxRetries is the default retry budget for submitted tasks.
	MaxRetries int

	// RetryDelay is the base backoff before a retry, doubled on every
	// failed attempt.
	RetryDelay time.Duration

	Logger *slog.Logger
}

func (c *Config) validate() error {
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("%w: requests per second must be positive", ErrInvalidConfig)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("%w: concurrency must be positive", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must be greater than or equal to 0", ErrInvalidConfig)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay must be greater than or equal to 0", ErrInvalidConfig)
	}
	return nil
}

// Scheduler dispatches queued tasks whenever both a concurrency slot and a
// rate-limit token are available. Ready tasks start in priority order,
// ties broken by submission order. Neither limit can be changed after
// construction.
type Scheduler struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	ready   taskHeap
	waiting map[*task]*time.Timer
	window  *window
	wake    *time.Timer
	seq     uint64
	pending int
	running int
	paused  bool
	closed  bool
	idlers  []chan struct{}
}

func New(cfg *Config) (*Scheduler, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is required", ErrInvalidConfig)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		cfg:     *cfg,
		logger:  logger,
		waiting: make(map[*task]*time.Timer),
		window:  newWindow(cfg.RequestsPerSecond, time.Second),
	}, nil
}

type submitOpts struct {
	priority int
	retries  int
}

type SubmitOption func(*submitOpts)

// WithPriority sets the task priority. Higher priorities start first among
// ready tasks. The default is 0.
func WithPriority(p int) SubmitOption {
	return func(o *submitOpts) {
		o.priority = p
	}
}

// WithRetries overrides the scheduler's default retry budget for one task.
// Negative values are ignored.
func WithRetries(n int) SubmitOption {
	return func(o *submitOpts) {
		if n >= 0 {
			o.retries = n
		}
	}
}

// Submit queues a task and returns its future. The pending count rises
// immediately and falls only when the task leaves the queue for its final
// time, either by succeeding or by exhausting its retry budget.
func (s *Scheduler) Submit(fn Task, opts ...SubmitOption) *Future {
	o := submitOpts{retries: s.cfg.MaxRetries}
	for _, opt := range opts {
		opt(&o)
	}

	fut := newFuture()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fut.resolve(nil, ErrClosed)
		return fut
	}
	s.seq++
	t := &task{
		fn:       fn,
		priority: o.priority,
		retries:  o.retries,
		seq:      s.seq,
		fut:      fut,
	}
	heap.Push(&s.ready, t)
	s.pending++
	s.dispatchLocked()
	s.mu.Unlock()

	s.logger.
		With("priority", o.priority).
		With("retries", o.retries).
		Debug("task submitted")
	return fut
}

// dispatchLocked starts as many ready tasks as the concurrency slots and the
// rate window allow. When the window is exhausted it arms a timer for the
// moment the oldest start falls out of the window.
func (s *Scheduler) dispatchLocked() {
	for !s.paused && !s.closed && s.running < s.cfg.Concurrency && s.ready.Len() > 0 {
		now := time.Now()
		if !s.window.allow(now) {
			s.wakeAfterLocked(s.window.nextFree(now))
			return
		}

		t := heap.Pop(&s.ready).(*task)
		s.pending--
		s.running++
		go s.attempt(t)
	}
}

func (s *Scheduler) wakeAfterLocked(d time.Duration) {
	if d <= 0 {
		d = time.Millisecond
	}
	if s.wake != nil {
		s.wake.Stop()
	}
	s.wake = time.AfterFunc(d, func() {
		s.mu.Lock()
		s.dispatchLocked()
		s.mu.Unlock()
	})
}

func (s *Scheduler) attempt(t *task) {
	value, err := t.fn(context.Background())

	s.mu.Lock()
	s.running--

	if err != nil && t.attempt < t.retries && !s.closed {
		// Backoff happens outside the running set, so the slot is free
		// for other tasks while this one sleeps.
		delay := s.cfg.RetryDelay * time.Duration(1<<t.attempt)
		t.attempt++
		s.pending++
		s.waiting[t] = time.AfterFunc(delay, func() { s.requeue(t) })
		s.dispatchLocked()
		s.mu.Unlock()

		s.logger.
			With("err", err).
			With("attempt", t.attempt).
			With("delay", delay).
			Warn("task failed, retrying")
		return
	}

	s.dispatchLocked()
	s.notifyIdleLocked()
	s.mu.Unlock()

	t.fut.resolve(value, err)
}

func (s *Scheduler) requeue(t *task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Clear or Close may have dropped the task while its backoff timer
	// was firing.
	if _, ok := s.waiting[t]; !ok {
		return
	}
	delete(s.waiting, t)
	heap.Push(&s.ready, t)
	s.dispatchLocked()
}

// Pause stops new tasks from starting. Running tasks continue to completion.
// Idempotent.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()

	s.logger.Info("scheduler paused")
}

// Resume re-enables task starts. A no-op if the scheduler is not paused.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	if s.paused {
		s.paused = false
		s.dispatchLocked()
	}
	s.mu.Unlock()
}

// Clear drops every task that has not started its current attempt, including
// tasks sleeping between retries. Their futures are rejected with ErrCanceled.
// Running tasks are unaffected.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	dropped := s.drainLocked()
	s.notifyIdleLocked()
	s.mu.Unlock()

	for _, t := range dropped {
		t.fut.resolve(nil, ErrCanceled)
	}

	s.logger.
		With("count", len(dropped)).
		Info("queued tasks cleared")
}

// Close drops queued work like Clear, rejects it with ErrClosed and refuses
// later submissions. Running tasks still finish; their retries are abandoned.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.wake != nil {
		s.wake.Stop()
	}
	dropped := s.drainLocked()
	s.notifyIdleLocked()
	s.mu.Unlock()

	for _, t := range dropped {
		t.fut.resolve(nil, ErrClosed)
	}

	s.logger.Info("scheduler closed")
}

func (s *Scheduler) drainLocked() []*task {
	dropped := make([]*task, 0, s.ready.Len()+len(s.waiting))
	for s.ready.Len() > 0 {
		dropped = append(dropped, heap.Pop(&s.ready).(*task))
	}
	for t, timer := range s.waiting {
		timer.Stop()
		delete(s.waiting, t)
		dropped = append(dropped, t)
	}
	s.pending -= len(dropped)
	return dropped
}

// OnIdle returns a channel closed once no tasks are pending or running.
// Work submitted after the channel closes is not observed; callers must ask
// for a fresh channel.
func (s *Scheduler) OnIdle() <-chan struct{} {
	ch := make(chan struct{})

	s.mu.Lock()
	if s.pending == 0 && s.running == 0 {
		close(ch)
	} else {
		s.idlers = append(s.idlers, ch)
	}
	s.mu.Unlock()

	return ch
}

func (s *Scheduler) notifyIdleLocked() {
	if s.pending != 0 || s.running != 0 {
		return
	}
	for _, ch := range s.idlers {
		close(ch)
	}
	s.idlers = nil
}

// Pending returns the number of tasks queued or waiting out a backoff, but
// not currently running.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pending
}

// Size returns the total number of tracked tasks, queued plus running.
func (s *Scheduler) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pending + s.running
}

// Paused reports whether task starts are currently suspended.
func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.paused
}
