/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package window

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/twitter/cloudhopper-commons-sub002/testutil"
)

func waitForCallerStatus(f *Future[int, string, string], status CallerStatus) {
	for f.CallerStatus() != status {
		time.Sleep(time.Millisecond)
	}
}

func TestFuture_Await(t *testing.T) {
	t.Run("response arrives while waiting", func(t *testing.T) {
		w := newTestWindow(t, 1)
		f := requireAddRequest(t, w, 1, "a")
		require.Equal(t, CallerNotWaiting, f.CallerStatus())

		go func() {
			waitForCallerStatus(f, CallerWaiting)
			w.AddResponse(1, "resp")
		}()

		resp, err := f.Await(context.Background())
		require.NoError(t, err)
		require.Equal(t, "resp", resp)
		require.Equal(t, CallerWaiting, f.CallerStatus())
	})

	t.Run("response arrived before waiting", func(t *testing.T) {
		w := newTestWindow(t, 1)
		f := requireAddRequest(t, w, 1, "a")
		_, ok := w.AddResponse(1, "resp")
		require.True(t, ok)

		resp, err := f.Await(context.Background())
		require.NoError(t, err)
		require.Equal(t, "resp", resp)
		require.Equal(t, CallerNotWaiting, f.CallerStatus())
	})

	t.Run("response timeout", func(t *testing.T) {
		w := newTestWindow(t, 1)
		f, err := w.AddRequest(context.Background(), 1, "a", 50*time.Millisecond)
		require.NoError(t, err)

		start := time.Now()
		_, err = f.Await(context.Background())
		require.ErrorIs(t, err, ErrResponseTimeout)
		require.EqualError(t, err, "request 1 (wait time 50ms): timed out waiting for a response")
		require.Less(t, time.Since(start), time.Second)
		require.Equal(t, CallerWaitingTimedOut, f.CallerStatus())

		// The request stays pending, only the caller gave up.
		require.False(t, f.IsDone())
		require.True(t, w.ContainsRequest(1))
	})

	t.Run("wait time spent on slot waiting is not given back", func(t *testing.T) {
		w := newTestWindow(t, 1)
		requireAddRequest(t, w, 1, "a")

		go func() {
			time.Sleep(100 * time.Millisecond)
			w.CancelRequest(1)
		}()
		f, err := w.AddRequest(context.Background(), 2, "b", 150*time.Millisecond)
		require.NoError(t, err)
		require.GreaterOrEqual(t, f.OfferToAcceptDuration(), 50*time.Millisecond)

		start := time.Now()
		_, err = f.Await(context.Background())
		require.ErrorIs(t, err, ErrResponseTimeout)
		require.Less(t, time.Since(start), 100*time.Millisecond)
	})

	t.Run("cancelled", func(t *testing.T) {
		w := newTestWindow(t, 1)
		f := requireAddRequest(t, w, 1, "a")
		go func() {
			waitForCallerStatus(f, CallerWaiting)
			w.CancelRequest(1)
		}()

		_, err := f.Await(context.Background())
		require.ErrorIs(t, err, ErrCancelled)
		require.NotErrorIs(t, err, ErrExpired)
		require.EqualError(t, err, "request 1: request cancelled")
	})

	t.Run("expired", func(t *testing.T) {
		w := newTestWindow(t, 1)
		f, err := w.AddRequestWithExpiry(context.Background(), 1, "a", time.Second, time.Millisecond)
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
		require.Len(t, w.CancelAllExpiredRequests(), 1)

		_, err = f.Await(context.Background())
		testutil.RequireErrorIsAll(t, err, []error{ErrExpired, ErrCancelled})
	})

	t.Run("interrupted", func(t *testing.T) {
		w := newTestWindow(t, 1)
		f := requireAddRequest(t, w, 1, "a")

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := f.Await(ctx)
		testutil.RequireErrorIsAll(t, err, []error{ErrInterrupted, context.DeadlineExceeded})
		require.False(t, f.IsDone())
	})
}

func TestFuture_Done(t *testing.T) {
	w := newTestWindow(t, 1)
	f := requireAddRequest(t, w, 1, "a")

	select {
	case <-f.Done():
		t.Fatal("pending request must not be done")
	default:
	}

	w.AddResponse(1, "resp")
	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatal("finished request must be done")
	}
}

func TestFuture_Times(t *testing.T) {
	w := newTestWindow(t, 1)
	f, err := w.AddRequestWithOpts(context.Background(), 1, "a", time.Second,
		RequestOpts{PlanningToWait: true, ExpireOffset: time.Minute})
	require.NoError(t, err)

	require.Equal(t, CallerWaiting, f.CallerStatus())
	require.Equal(t, time.Second, f.WaitTime())
	require.False(t, f.AcceptTime().Before(f.OfferTime()))
	require.Equal(t, f.AcceptTime().Add(time.Minute), f.ExpiryTime())
	require.True(t, f.ResponseTime().IsZero())
	require.Zero(t, f.AcceptToDoneDuration())
	require.Zero(t, f.OfferToDoneDuration())

	time.Sleep(10 * time.Millisecond)
	w.AddResponse(1, "resp")

	require.False(t, f.ResponseTime().Before(f.AcceptTime()))
	require.GreaterOrEqual(t, f.AcceptToDoneDuration(), 10*time.Millisecond)
	require.Equal(t, f.OfferToAcceptDuration()+f.AcceptToDoneDuration(), f.OfferToDoneDuration())
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status EntryStatus
		want   string
	}{
		{StatusPending, "pending"},
		{StatusResponded, "responded"},
		{StatusCancelled, "cancelled"},
		{StatusFailed, "failed"},
		{StatusExpired, "expired"},
		{EntryStatus(100), "unknown"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.status.String())
	}

	require.Equal(t, "not_waiting", CallerNotWaiting.String())
	require.Equal(t, "waiting", CallerWaiting.String())
	require.Equal(t, "waiting_timed_out", CallerWaitingTimedOut.String())
	require.Equal(t, "unknown", CallerStatus(100).String())
}
