/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package window

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/xid"
	"go.uber.org/atomic"

	"github.com/twitter/cloudhopper-commons-sub002/log"
	"github.com/twitter/cloudhopper-commons-sub002/service"
)

// Scheduler runs a worker periodically with a fixed delay between runs.
// service.Scheduler implements it.
type Scheduler interface {
	ScheduleWithFixedDelay(worker service.Worker, initialDelay, delay time.Duration) (*service.ScheduledTask, error)
}

// Options represents options for the window.
type Options struct {
	// Name identifies the window in logs, metrics, and stats. A unique name is generated if empty.
	Name string

	// Logger is used by the window monitor. Logging is disabled if nil.
	Logger log.FieldLogger
}

// RequestOpts represents options for a single request admitted with AddRequestWithOpts.
type RequestOpts struct {
	// PlanningToWait is a hint that the caller is going to wait for the response with Future.Await.
	PlanningToWait bool

	// ExpireOffset is the time after admission when the request expires.
	// The request never expires if the offset is not positive.
	ExpireOffset time.Duration
}

// Stats represents a point-in-time state of the window.
type Stats struct {
	Name           string   `json:"name"`
	Size           int      `json:"size"`
	Pending        int      `json:"pending"`
	Free           int      `json:"free"`
	SlotWaiting    int      `json:"slotWaiting"`
	MonitorRunning bool     `json:"monitorRunning"`
	Keys           []string `json:"keys"`
}

// Window is a bounded set of in-flight requests correlated with their responses by key.
//
// At most Size requests may be pending at once. AddRequest blocks while the window is full.
// Fairness across blocked callers is not guaranteed.
type Window[K cmp.Ordered, R any, P any] struct {
	name             string
	size             int
	logger           log.FieldLogger
	metricsCollector MetricsCollector

	mu                    sync.RWMutex
	pending               map[K]*Future[K, R, P]
	slotSignal            chan struct{} // closed and replaced when a slot is freed or waiting is terminated
	slotWaitingTerminated bool
	destroyed             bool

	pendingSize atomic.Int32
	slotWaiters atomic.Int32

	listenersMu    sync.RWMutex
	listeners      []registeredListener[K, R, P]
	nextListenerID uint64

	monitorMu   sync.Mutex
	monitorTask *service.ScheduledTask
}

// New creates a new Window with the provided size and metrics collector.
func New[K cmp.Ordered, R any, P any](size int, metricsCollector MetricsCollector) (*Window[K, R, P], error) {
	return NewWithOpts[K, R, P](size, metricsCollector, Options{})
}

// NewWithOpts creates a new Window with the provided size, metrics collector, and options.
// Metrics collector can be nil, in this case, metrics will be disabled.
func NewWithOpts[K cmp.Ordered, R any, P any](
	size int, metricsCollector MetricsCollector, opts Options,
) (*Window[K, R, P], error) {
	if size <= 0 {
		return nil, fmt.Errorf("size must be greater than 0")
	}
	if metricsCollector == nil {
		metricsCollector = disabledMetrics{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	name := opts.Name
	if name == "" {
		name = xid.New().String()
	}
	return &Window[K, R, P]{
		name:             name,
		size:             size,
		logger:           logger,
		metricsCollector: metricsCollector,
		pending:          make(map[K]*Future[K, R, P], size),
		slotSignal:       make(chan struct{}),
	}, nil
}

// NewFromConfig creates a new Window from the configuration.
// If the monitor is enabled in the configuration and scheduler is not nil,
// the monitor is started on the scheduler.
func NewFromConfig[K cmp.Ordered, R any, P any](
	cfg *Config, scheduler Scheduler, metricsCollector MetricsCollector, logger log.FieldLogger,
) (*Window[K, R, P], error) {
	w, err := NewWithOpts[K, R, P](cfg.Size, metricsCollector, Options{Name: cfg.Name, Logger: logger})
	if err != nil {
		return nil, err
	}
	if cfg.Monitor.Enabled && scheduler != nil {
		if err = w.StartMonitor(scheduler, time.Duration(cfg.Monitor.Interval)); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Name returns the name of the window.
func (w *Window[K, R, P]) Name() string {
	return w.name
}

// Size returns the maximum number of pending requests.
func (w *Window[K, R, P]) Size() int {
	return w.size
}

// PendingSize returns the current number of pending requests.
func (w *Window[K, R, P]) PendingSize() int {
	return int(w.pendingSize.Load())
}

// FreeSize returns the current number of free slots.
func (w *Window[K, R, P]) FreeSize() int {
	return w.size - w.PendingSize()
}

// SlotWaitingSize returns the number of callers currently blocked in AddRequest waiting for a free slot.
func (w *Window[K, R, P]) SlotWaitingSize() int {
	return int(w.slotWaiters.Load())
}

// ContainsRequest reports whether a request with the given key is pending.
func (w *Window[K, R, P]) ContainsRequest(key K) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.pending[key]
	return ok
}

// PendingRequests returns a snapshot of pending requests sorted by key.
func (w *Window[K, R, P]) PendingRequests() []*Future[K, R, P] {
	w.mu.RLock()
	futures := make([]*Future[K, R, P], 0, len(w.pending))
	for _, f := range w.pending {
		futures = append(futures, f)
	}
	w.mu.RUnlock()
	sortByKey(futures)
	return futures
}

// Stats returns a point-in-time state of the window.
func (w *Window[K, R, P]) Stats() Stats {
	pending := w.PendingRequests()
	keys := make([]string, len(pending))
	for i, f := range pending {
		keys[i] = fmt.Sprint(f.Key())
	}
	return Stats{
		Name:           w.name,
		Size:           w.size,
		Pending:        len(pending),
		Free:           w.size - len(pending),
		SlotWaiting:    w.SlotWaitingSize(),
		MonitorRunning: w.IsMonitorRunning(),
		Keys:           keys,
	}
}

// AddRequest admits a request that never expires into the window.
// See AddRequestWithOpts for details.
func (w *Window[K, R, P]) AddRequest(
	ctx context.Context, key K, request R, waitTime time.Duration,
) (*Future[K, R, P], error) {
	return w.AddRequestWithOpts(ctx, key, request, waitTime, RequestOpts{})
}

// AddRequestWithExpiry admits a request that expires expireOffset after admission.
// See AddRequestWithOpts for details.
func (w *Window[K, R, P]) AddRequestWithExpiry(
	ctx context.Context, key K, request R, waitTime, expireOffset time.Duration,
) (*Future[K, R, P], error) {
	return w.AddRequestWithOpts(ctx, key, request, waitTime, RequestOpts{ExpireOffset: expireOffset})
}

// AddRequestWithOpts admits a request into the window and returns a Future for it.
//
// If the window is full, the call blocks until a slot is freed. It fails with ErrSlotTimeout
// if no slot is freed within waitTime, with ErrSlotWaitTerminated if slot waiting is terminated
// (see TerminateSlotWaiters), and with ErrInterrupted if ctx is done.
// It fails with ErrAlreadyExists if a request with the same key is pending.
// The same waitTime is the total budget for Future.Await.
func (w *Window[K, R, P]) AddRequestWithOpts(
	ctx context.Context, key K, request R, waitTime time.Duration, opts RequestOpts,
) (*Future[K, R, P], error) {
	offerTime := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.checkAdmissionLocked(key); err != nil {
		return nil, err
	}

	if len(w.pending) >= w.size {
		if err := w.waitForSlotLocked(ctx, offerTime.Add(waitTime)); err != nil {
			w.metricsCollector.IncRejectedRequests(rejectReasonFromError(err))
			return nil, fmt.Errorf("add request %v (wait time %s): %w", key, waitTime, err)
		}
		// The lock was released while waiting.
		if err := w.checkAdmissionLocked(key); err != nil {
			return nil, err
		}
	}

	callerStatus := CallerNotWaiting
	if opts.PlanningToWait {
		callerStatus = CallerWaiting
	}
	e := newEntry[K, R, P](key, request, offerTime, time.Now(), opts.ExpireOffset, callerStatus)
	future := &Future[K, R, P]{entry: e, waitTime: waitTime}
	w.pending[key] = future
	w.pendingSize.Store(int32(len(w.pending)))

	w.metricsCollector.IncAdmittedRequests()
	w.metricsCollector.SetPendingRequests(len(w.pending))
	return future, nil
}

func (w *Window[K, R, P]) checkAdmissionLocked(key K) error {
	if w.destroyed {
		w.metricsCollector.IncRejectedRequests(RejectReasonDestroyed)
		return fmt.Errorf("add request %v: %w", key, ErrWindowDestroyed)
	}
	if _, exists := w.pending[key]; exists {
		w.metricsCollector.IncRejectedRequests(RejectReasonAlreadyExists)
		return fmt.Errorf("add request %v: %w", key, ErrAlreadyExists)
	}
	if w.slotWaitingTerminated {
		w.metricsCollector.IncRejectedRequests(RejectReasonSlotWaitTerminated)
		return fmt.Errorf("add request %v: %w", key, ErrSlotWaitTerminated)
	}
	return nil
}

// waitForSlotLocked blocks until the window has a free slot.
// It must be called with w.mu locked, and it returns with w.mu locked.
func (w *Window[K, R, P]) waitForSlotLocked(ctx context.Context, deadline time.Time) error {
	w.enterSlotWaitLocked()
	defer w.leaveSlotWaitLocked()

	for len(w.pending) >= w.size {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrSlotTimeout
		}

		signal := w.slotSignal
		w.mu.Unlock()
		err := waitForSignal(ctx, signal, remaining)
		w.mu.Lock()

		if w.slotWaitingTerminated {
			return ErrSlotWaitTerminated
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *Window[K, R, P]) enterSlotWaitLocked() {
	w.metricsCollector.SetSlotWaiters(int(w.slotWaiters.Inc()))
}

func (w *Window[K, R, P]) leaveSlotWaitLocked() {
	waiters := w.slotWaiters.Dec()
	if waiters == 0 {
		// The last waiter leaving the loop re-enables slot waiting.
		w.slotWaitingTerminated = false
	}
	w.metricsCollector.SetSlotWaiters(int(waiters))
}

func waitForSignal(ctx context.Context, signal <-chan struct{}, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-signal:
		return nil
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return interruptedError(ctx.Err())
	}
}

// broadcastLocked wakes up all callers blocked waiting for a free slot.
func (w *Window[K, R, P]) broadcastLocked() {
	if w.slotWaiters.Load() == 0 {
		return
	}
	close(w.slotSignal)
	w.slotSignal = make(chan struct{})
}

// AddResponse finishes the pending request with the given key with the response.
// It returns false if there is no pending request with this key
// (e.g. a late or duplicate response, or the request was already cancelled or expired).
func (w *Window[K, R, P]) AddResponse(key K, response P) (*Future[K, R, P], bool) {
	return w.finishRequest(key, StatusResponded, &response, nil)
}

// CancelRequest finishes the pending request with the given key without a response.
// It returns false if there is no pending request with this key.
func (w *Window[K, R, P]) CancelRequest(key K) (*Future[K, R, P], bool) {
	return w.finishRequest(key, StatusCancelled, nil, nil)
}

// FailRequest finishes the pending request with the given key without a response, recording the cause.
// A nil cause is equivalent to CancelRequest.
// It returns false if there is no pending request with this key.
func (w *Window[K, R, P]) FailRequest(key K, cause error) (*Future[K, R, P], bool) {
	if cause == nil {
		return w.CancelRequest(key)
	}
	return w.finishRequest(key, StatusFailed, nil, cause)
}

func (w *Window[K, R, P]) finishRequest(key K, status EntryStatus, response *P, cause error) (*Future[K, R, P], bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	future, ok := w.pending[key]
	if !ok {
		return nil, false
	}
	w.finishLocked(future, status, response, cause, time.Now())
	w.metricsCollector.SetPendingRequests(len(w.pending))
	w.broadcastLocked()
	return future, true
}

// finishLocked removes the request from the pending index and finishes it.
// Caller is responsible for broadcasting.
func (w *Window[K, R, P]) finishLocked(future *Future[K, R, P], status EntryStatus, response *P, cause error, now time.Time) {
	delete(w.pending, future.entry.key)
	w.pendingSize.Store(int32(len(w.pending)))
	future.entry.finish(status, response, cause, now)

	w.metricsCollector.IncFinishedRequests(status)
	if status == StatusResponded {
		w.metricsCollector.ObserveResponseDuration(future.AcceptToDoneDuration())
	}
}

// CancelAllRequests finishes all pending requests without a response and returns them sorted by key.
func (w *Window[K, R, P]) CancelAllRequests() []*Future[K, R, P] {
	return w.finishAll(StatusCancelled, nil)
}

// FailAllRequests finishes all pending requests without a response, recording the cause.
// Finished requests are returned sorted by key. A nil cause is equivalent to CancelAllRequests.
func (w *Window[K, R, P]) FailAllRequests(cause error) []*Future[K, R, P] {
	if cause == nil {
		return w.CancelAllRequests()
	}
	return w.finishAll(StatusFailed, cause)
}

func (w *Window[K, R, P]) finishAll(status EntryStatus, cause error) []*Future[K, R, P] {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.finishAllLocked(status, cause)
}

func (w *Window[K, R, P]) finishAllLocked(status EntryStatus, cause error) []*Future[K, R, P] {
	if len(w.pending) == 0 {
		return nil
	}
	futures := make([]*Future[K, R, P], 0, len(w.pending))
	for _, f := range w.pending {
		futures = append(futures, f)
	}
	sortByKey(futures)

	now := time.Now()
	for _, f := range futures {
		w.finishLocked(f, status, nil, cause, now)
	}
	w.metricsCollector.SetPendingRequests(0)
	w.broadcastLocked()
	return futures
}

// CancelAllExpiredRequests finishes all pending requests whose expiry time has passed
// and returns them sorted by key. It's supposed to be called periodically (see Monitor).
func (w *Window[K, R, P]) CancelAllExpiredRequests() []*Future[K, R, P] {
	if w.pendingSize.Load() == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	var expired []*Future[K, R, P]
	for _, f := range w.pending {
		if f.entry.isExpiredAt(now) {
			expired = append(expired, f)
		}
	}
	if len(expired) == 0 {
		return nil
	}
	sortByKey(expired)

	for _, f := range expired {
		w.finishLocked(f, StatusExpired, nil, nil, now)
	}
	w.metricsCollector.SetPendingRequests(len(w.pending))
	w.broadcastLocked()
	return expired
}

// TerminateSlotWaiters makes all callers currently blocked in AddRequest waiting for a free slot
// fail with ErrSlotWaitTerminated. Callers waiting for responses are not affected.
// Slot waiting is re-enabled automatically once the last blocked caller has left.
// It returns false if nobody was waiting.
func (w *Window[K, R, P]) TerminateSlotWaiters() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.terminateSlotWaitersLocked()
}

func (w *Window[K, R, P]) terminateSlotWaitersLocked() bool {
	if w.slotWaiters.Load() == 0 {
		return false
	}
	w.slotWaitingTerminated = true
	w.broadcastLocked()
	return true
}

// AddListener registers the listener and returns a function that unregisters it.
func (w *Window[K, R, P]) AddListener(listener Listener[K, R, P]) (remove func()) {
	w.listenersMu.Lock()
	defer w.listenersMu.Unlock()

	w.nextListenerID++
	id := w.nextListenerID
	w.listeners = append(w.listeners, registeredListener[K, R, P]{id: id, listener: listener})

	return func() {
		w.listenersMu.Lock()
		defer w.listenersMu.Unlock()
		w.listeners = slices.DeleteFunc(w.listeners, func(rl registeredListener[K, R, P]) bool {
			return rl.id == id
		})
	}
}

// Listeners returns registered listeners in the registration order.
func (w *Window[K, R, P]) Listeners() []Listener[K, R, P] {
	w.listenersMu.RLock()
	defer w.listenersMu.RUnlock()
	listeners := make([]Listener[K, R, P], len(w.listeners))
	for i, rl := range w.listeners {
		listeners[i] = rl.listener
	}
	return listeners
}

// StartMonitor schedules a Monitor that sweeps expired requests with the given fixed delay.
// A previously started monitor is stopped. The window owner is responsible for calling StopMonitor
// (or Destroy) when the window is no longer used.
func (w *Window[K, R, P]) StartMonitor(scheduler Scheduler, interval time.Duration) error {
	if scheduler == nil {
		return fmt.Errorf("scheduler must not be nil")
	}
	if interval <= 0 {
		return fmt.Errorf("monitor interval must be greater than 0")
	}

	w.monitorMu.Lock()
	defer w.monitorMu.Unlock()

	// Destroy sets destroyed before StopMonitor, so no monitor outlives a destroyed window.
	if w.isDestroyed() {
		return ErrWindowDestroyed
	}

	if w.monitorTask != nil {
		w.monitorTask.Cancel()
		w.monitorTask = nil
	}
	task, err := scheduler.ScheduleWithFixedDelay(NewMonitor(w, w.logger), interval, interval)
	if err != nil {
		return fmt.Errorf("schedule window monitor: %w", err)
	}
	w.monitorTask = task
	w.logger.Info("window monitor started", log.String("window", w.name), log.Duration("interval", interval))
	return nil
}

func (w *Window[K, R, P]) isDestroyed() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.destroyed
}

// StopMonitor cancels the scheduled monitor. It returns false if the monitor was not running.
func (w *Window[K, R, P]) StopMonitor() bool {
	w.monitorMu.Lock()
	defer w.monitorMu.Unlock()

	if w.monitorTask == nil {
		return false
	}
	stopped := w.monitorTask.Cancel()
	w.monitorTask = nil
	w.logger.Info("window monitor stopped", log.String("window", w.name))
	return stopped
}

// IsMonitorRunning reports whether the monitor is scheduled.
func (w *Window[K, R, P]) IsMonitorRunning() bool {
	w.monitorMu.Lock()
	defer w.monitorMu.Unlock()
	if w.monitorTask == nil {
		return false
	}
	select {
	case <-w.monitorTask.Done():
		return false
	default:
		return true
	}
}

// Destroy terminates slot waiters and cancels all pending requests, then stops the monitor and unregisters listeners.
// After Destroy, AddRequest fails with ErrWindowDestroyed. Cancelled requests are returned sorted by key.
func (w *Window[K, R, P]) Destroy() []*Future[K, R, P] {
	w.mu.Lock()
	w.destroyed = true
	w.terminateSlotWaitersLocked()
	cancelled := w.finishAllLocked(StatusCancelled, nil)
	w.mu.Unlock()

	w.StopMonitor()

	w.listenersMu.Lock()
	w.listeners = nil
	w.listenersMu.Unlock()

	return cancelled
}

func sortByKey[K cmp.Ordered, R any, P any](futures []*Future[K, R, P]) {
	slices.SortFunc(futures, func(a, b *Future[K, R, P]) int {
		return cmp.Compare(a.entry.key, b.entry.key)
	})
}

func rejectReasonFromError(err error) RejectReason {
	switch {
	case errors.Is(err, ErrSlotWaitTerminated):
		return RejectReasonSlotWaitTerminated
	case errors.Is(err, ErrInterrupted):
		return RejectReasonInterrupted
	default:
		return RejectReasonSlotTimeout
	}
}
