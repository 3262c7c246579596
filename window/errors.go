/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package window

import (
	"errors"
	"fmt"
)

// ErrAlreadyExists is returned when a request with the same key is still pending in the window.
// It usually means a correlation key collision in the caller and should be treated as a programming error.
var ErrAlreadyExists = errors.New("request with the same key is already pending")

// ErrSlotTimeout is returned when no slot became free in the window within the requested wait time.
var ErrSlotTimeout = errors.New("timed out waiting for a free slot in the window")

// ErrSlotWaitTerminated is returned to callers blocked for a free slot when slot waiting
// is terminated by Window.TerminateSlotWaiters. It matches ErrSlotTimeout with errors.Is.
var ErrSlotWaitTerminated = fmt.Errorf("%w: slot waiting terminated", ErrSlotTimeout)

// ErrResponseTimeout is returned by Future.Await when the wait time is exceeded before the response arrives.
var ErrResponseTimeout = errors.New("timed out waiting for a response")

// ErrCancelled is returned by Future.Await when the request was finished without a response.
var ErrCancelled = errors.New("request cancelled")

// ErrExpired is returned by Future.Await when the request expired. It matches ErrCancelled with errors.Is.
var ErrExpired = fmt.Errorf("%w: request expired", ErrCancelled)

// ErrInterrupted is returned when the context of a blocking call is done.
// The error also wraps the context error (context.Canceled or context.DeadlineExceeded).
var ErrInterrupted = errors.New("waiting interrupted")

// ErrWindowDestroyed is returned by AddRequest after the window was destroyed.
var ErrWindowDestroyed = errors.New("window destroyed")

func interruptedError(ctxErr error) error {
	return fmt.Errorf("%w: %w", ErrInterrupted, ctxErr)
}
