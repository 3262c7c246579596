/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package window

import (
	"cmp"
	"context"
	"fmt"
	"time"
)

// Future is a caller-facing handle of the request admitted into the window.
// It may be discarded (fire-and-forget) or used to wait for the response with Await.
// All accessors are safe for concurrent use.
type Future[K cmp.Ordered, R any, P any] struct {
	entry    *entry[K, R, P]
	waitTime time.Duration
}

// Key returns the correlation key of the request.
func (f *Future[K, R, P]) Key() K {
	return f.entry.key
}

// Request returns the request payload.
func (f *Future[K, R, P]) Request() R {
	return f.entry.request
}

// Response returns the response and true if the request was finished with a response.
func (f *Future[K, R, P]) Response() (response P, ok bool) {
	if f.Status() != StatusResponded {
		return response, false
	}
	return *f.entry.response.Load(), true
}

// Cause returns the failure cause passed to Window.FailRequest or Window.FailAllRequests.
func (f *Future[K, R, P]) Cause() error {
	if f.Status() != StatusFailed {
		return nil
	}
	return f.entry.cause.Load()
}

// Status returns the current status of the request.
func (f *Future[K, R, P]) Status() EntryStatus {
	return f.entry.loadStatus()
}

// CallerStatus returns the hint about whether the caller waits for the response.
func (f *Future[K, R, P]) CallerStatus() CallerStatus {
	return CallerStatus(f.entry.callerStatus.Load())
}

// IsDone reports whether the request is finished (responded, cancelled, failed, or expired).
func (f *Future[K, R, P]) IsDone() bool {
	return f.Status() != StatusPending
}

// IsSuccess reports whether the request is finished with a response.
func (f *Future[K, R, P]) IsSuccess() bool {
	return f.Status() == StatusResponded
}

// IsCancelled reports whether the request is finished without a response.
// Failed and expired requests are cancelled as well.
func (f *Future[K, R, P]) IsCancelled() bool {
	s := f.Status()
	return s == StatusCancelled || s == StatusFailed || s == StatusExpired
}

// IsExpired reports whether the request was cancelled because its expiry time passed.
func (f *Future[K, R, P]) IsExpired() bool {
	return f.Status() == StatusExpired
}

// Done returns a channel that is closed when the request is finished.
func (f *Future[K, R, P]) Done() <-chan struct{} {
	return f.entry.done
}

// WaitTime returns the total wait time budget passed on admission.
func (f *Future[K, R, P]) WaitTime() time.Duration {
	return f.waitTime
}

// OfferTime returns the time when AddRequest was called.
func (f *Future[K, R, P]) OfferTime() time.Time {
	return f.entry.offerTime
}

// AcceptTime returns the time when the request was admitted into the window.
func (f *Future[K, R, P]) AcceptTime() time.Time {
	return f.entry.acceptTime
}

// ExpiryTime returns the expiry deadline. The zero time means the request never expires.
func (f *Future[K, R, P]) ExpiryTime() time.Time {
	return f.entry.expiryTime
}

// ResponseTime returns the time when the request was finished or the zero time if it is still pending.
func (f *Future[K, R, P]) ResponseTime() time.Time {
	if !f.IsDone() {
		return time.Time{}
	}
	return f.entry.responseTime.Load()
}

// OfferToAcceptDuration returns how long the caller waited for a free slot.
func (f *Future[K, R, P]) OfferToAcceptDuration() time.Duration {
	return f.entry.acceptTime.Sub(f.entry.offerTime)
}

// AcceptToDoneDuration returns how long the request was pending in the window.
// It returns 0 if the request is not finished yet.
func (f *Future[K, R, P]) AcceptToDoneDuration() time.Duration {
	if !f.IsDone() {
		return 0
	}
	return f.ResponseTime().Sub(f.entry.acceptTime)
}

// OfferToDoneDuration returns the total latency of the request as seen by the caller.
// It returns 0 if the request is not finished yet.
func (f *Future[K, R, P]) OfferToDoneDuration() time.Duration {
	if !f.IsDone() {
		return 0
	}
	return f.ResponseTime().Sub(f.entry.offerTime)
}

// Await blocks until the request is finished, the wait time passed on admission is exhausted,
// or ctx is done.
//
// The wait time budget is counted from the moment AddRequest was called,
// so the time spent waiting for a free slot is not given back to the caller.
// Await returns the response on success, ErrResponseTimeout if the budget is exhausted,
// ErrCancelled (ErrExpired for expired requests, the failure cause is wrapped too for failed ones)
// if the request was finished without a response, and ErrInterrupted if ctx is done.
func (f *Future[K, R, P]) Await(ctx context.Context) (P, error) {
	if !f.IsDone() {
		f.entry.callerStatus.CompareAndSwap(int32(CallerNotWaiting), int32(CallerWaiting))
		if err := f.waitDone(ctx); err != nil {
			var zero P
			return zero, err
		}
	}
	return f.result()
}

func (f *Future[K, R, P]) waitDone(ctx context.Context) error {
	remaining := f.waitTime - time.Since(f.entry.offerTime)
	if remaining <= 0 {
		return f.responseTimedOut()
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-f.entry.done:
		return nil
	case <-timer.C:
		if f.IsDone() {
			return nil
		}
		return f.responseTimedOut()
	case <-ctx.Done():
		return interruptedError(ctx.Err())
	}
}

func (f *Future[K, R, P]) responseTimedOut() error {
	if f.IsDone() {
		return nil
	}
	f.entry.callerStatus.Store(int32(CallerWaitingTimedOut))
	return fmt.Errorf("request %v (wait time %s): %w", f.entry.key, f.waitTime, ErrResponseTimeout)
}

func (f *Future[K, R, P]) result() (P, error) {
	var zero P
	switch f.Status() {
	case StatusResponded:
		return *f.entry.response.Load(), nil
	case StatusFailed:
		return zero, fmt.Errorf("request %v: %w: %w", f.entry.key, ErrCancelled, f.entry.cause.Load())
	case StatusExpired:
		return zero, fmt.Errorf("request %v: %w", f.entry.key, ErrExpired)
	default:
		return zero, fmt.Errorf("request %v: %w", f.entry.key, ErrCancelled)
	}
}
