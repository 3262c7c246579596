/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/twitter/cloudhopper-commons-sub002/log"
)

// ErrSchedulerShutdown is returned when a worker is scheduled on the scheduler that has been shut down.
var ErrSchedulerShutdown = errors.New("scheduler is shut down")

// ScheduledTask is a handle of the worker scheduled on Scheduler.
type ScheduledTask struct {
	cancel    context.CancelFunc
	cancelled atomic.Bool
	done      chan struct{}
}

// Cancel stops the periodic execution. The run in progress (if any) sees its context cancelled.
// It returns false if the task has already been cancelled.
func (t *ScheduledTask) Cancel() bool {
	if !t.cancelled.CompareAndSwap(false, true) {
		return false
	}
	t.cancel()
	return true
}

// Done returns a channel that is closed when the task is stopped and its last run is finished.
func (t *ScheduledTask) Done() <-chan struct{} {
	return t.done
}

// Scheduler runs workers periodically, each one in its own goroutine.
type Scheduler struct {
	logger log.FieldLogger

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	shutdown bool
	wg       sync.WaitGroup
}

var _ Unit = (*Scheduler)(nil)

// NewScheduler creates a new Scheduler.
func NewScheduler(logger log.FieldLogger) *Scheduler {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{logger: logger, ctx: ctx, cancel: cancel}
}

// ScheduleWithFixedDelay runs the worker first after initialDelay and then repeatedly
// with the given delay between the end of one run and the start of the next one.
func (s *Scheduler) ScheduleWithFixedDelay(worker Worker, initialDelay, delay time.Duration) (*ScheduledTask, error) {
	if delay <= 0 {
		return nil, fmt.Errorf("delay must be greater than 0")
	}
	if initialDelay < 0 {
		return nil, fmt.Errorf("initial delay must be greater or equal to 0")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return nil, ErrSchedulerShutdown
	}

	ctx, cancel := context.WithCancel(s.ctx)
	task := &ScheduledTask{cancel: cancel, done: make(chan struct{})}
	periodicWorker := NewPeriodicWorkerWithOpts(worker, delay, s.logger, PeriodicWorkerOpts{InitialDelay: initialDelay})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(task.done)
		defer task.Cancel()
		_ = periodicWorker.Run(ctx)
	}()
	return task, nil
}

// Shutdown cancels all scheduled tasks and waits until their runs in progress are finished.
// No new tasks may be scheduled after that.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// Start does nothing: tasks start as soon as they are scheduled. It's a part of Unit interface.
func (s *Scheduler) Start(_ chan<- error) {}

// Stop shuts the scheduler down. If gracefully is false, it does not wait for runs in progress.
// It's a part of Unit interface.
func (s *Scheduler) Stop(gracefully bool) error {
	if gracefully {
		s.Shutdown()
		return nil
	}
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
	s.cancel()
	return nil
}
