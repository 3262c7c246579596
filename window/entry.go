/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package window

import (
	"cmp"
	"time"

	"go.uber.org/atomic"
)

// EntryStatus represents the outcome of a request admitted into the window.
type EntryStatus int32

// Entry statuses. Every status except StatusPending is final.
const (
	StatusPending EntryStatus = iota
	StatusResponded
	StatusCancelled
	StatusFailed
	StatusExpired
)

// String returns the lower-case name of the status. It's used for logs and metric labels.
func (s EntryStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusResponded:
		return "responded"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	case StatusExpired:
		return "expired"
	}
	return "unknown"
}

// CallerStatus is a hint about whether the caller waits (or has waited) for the response.
type CallerStatus int32

// Caller statuses.
const (
	CallerNotWaiting CallerStatus = iota
	CallerWaiting
	CallerWaitingTimedOut
)

// String returns the lower-case name of the caller status.
func (s CallerStatus) String() string {
	switch s {
	case CallerNotWaiting:
		return "not_waiting"
	case CallerWaiting:
		return "waiting"
	case CallerWaitingTimedOut:
		return "waiting_timed_out"
	}
	return "unknown"
}

// entry is a single request/response pairing.
// Immutable fields are set on admission. Mutable fields are written only under the window lock
// (exactly once, in finish) and may be read without it.
type entry[K cmp.Ordered, R any, P any] struct {
	key        K
	request    R
	offerTime  time.Time
	acceptTime time.Time
	expiryTime time.Time // zero means no expiry

	status       atomic.Int32
	callerStatus atomic.Int32
	response     atomic.Pointer[P]
	responseTime atomic.Time
	cause        atomic.Error

	done chan struct{}
}

func newEntry[K cmp.Ordered, R any, P any](
	key K, request R, offerTime, acceptTime time.Time, expireOffset time.Duration, callerStatus CallerStatus,
) *entry[K, R, P] {
	e := &entry[K, R, P]{
		key:        key,
		request:    request,
		offerTime:  offerTime,
		acceptTime: acceptTime,
		done:       make(chan struct{}),
	}
	if expireOffset > 0 {
		e.expiryTime = acceptTime.Add(expireOffset)
	}
	e.callerStatus.Store(int32(callerStatus))
	return e
}

func (e *entry[K, R, P]) loadStatus() EntryStatus {
	return EntryStatus(e.status.Load())
}

func (e *entry[K, R, P]) isExpiredAt(now time.Time) bool {
	return !e.expiryTime.IsZero() && !now.Before(e.expiryTime)
}

// finish moves the entry to the final status. It must be called under the window lock,
// after the entry has been removed from the pending index. Status is stored last,
// so a reader observing a final status also observes the response, cause and response time.
func (e *entry[K, R, P]) finish(status EntryStatus, response *P, cause error, now time.Time) {
	if response != nil {
		e.response.Store(response)
	}
	if cause != nil {
		e.cause.Store(cause)
	}
	if now.Before(e.acceptTime) {
		now = e.acceptTime
	}
	e.responseTime.Store(now)
	e.status.Store(int32(status))
	close(e.done)
}
