/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package window provides a bounded, thread-safe request/response correlator for pipelined protocols.
//
// A Window admits up to Size outstanding requests, each identified by a caller-chosen correlation key
// (e.g. a protocol sequence number). When the window is full, AddRequest blocks until a slot is freed,
// the wait time elapses, the context is cancelled, or slot waiting is terminated administratively.
// Responses arriving asynchronously are matched by key with AddResponse, which finishes the pending entry
// and wakes the caller blocked in Future.Await, if any.
//
// Requests may be admitted with an expiry offset. Expired requests are swept by CancelAllExpiredRequests,
// either directly or periodically by a Monitor scheduled on a service.Scheduler (see Window.StartMonitor),
// which also notifies registered Listeners about every expired request.
//
// The Window never transmits, retries, or persists anything: it only stores handles and timestamps.
package window
