// Package scheduler runs a self-rescheduling task with explicit start and stop.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task performs one cycle. It returns the delay before the next cycle and
// whether there should be a next cycle at all.
type Task func(ctx context.Context) (next time.Duration, again bool)

// Scheduler runs at most one Task invocation at a time. Between cycles it
// waits on a timer that Stop cancels.
type Scheduler struct {
	name string
	task Task
	log  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	kicked bool

	onChange func(running bool)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithStateHook registers fn to be called when the loop starts or exits.
func WithStateHook(fn func(running bool)) Option {
	return func(s *Scheduler) {
		s.onChange = fn
	}
}

// New creates a stopped scheduler for task.
func New(name string, task Task, log *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{name: name, task: task, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the first cycle immediately in a new goroutine unless the loop
// is already running. It reports whether a new loop was started. Calling Start
// on a running loop guarantees at least one more cycle after the current one.
func (s *Scheduler) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.kicked = true
		return false
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	s.log.DebugContext(ctx, "Scheduler started", "task", s.name)
	s.notify(true)

	go s.run(loopCtx, cancel, done)

	return true
}

// Stop cancels the pending timer or the in-flight cycle and waits for the
// loop to exit. It must not be called from inside the task.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer func() {
		s.release(done)
		cancel()
		close(done)
		s.log.DebugContext(ctx, "Scheduler stopped", "task", s.name)
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		s.mu.Lock()
		s.kicked = false
		s.mu.Unlock()

		next, again := s.task(ctx)
		if !again {
			if s.finish(done) {
				return
			}
			continue
		}

		timer := time.NewTimer(next)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// finish marks the loop as stopped unless Start was called during the last
// cycle, in which case the loop keeps going.
func (s *Scheduler) finish(done chan struct{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kicked && s.done == done {
		s.kicked = false
		return false
	}
	s.releaseLocked(done)
	return true
}

func (s *Scheduler) release(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked(done)
}

func (s *Scheduler) releaseLocked(done chan struct{}) {
	if s.done != done {
		return
	}
	s.cancel = nil
	s.done = nil
	s.kicked = false
	s.notify(false)
}

func (s *Scheduler) notify(running bool) {
	if s.onChange != nil {
		s.onChange(running)
	}
}
