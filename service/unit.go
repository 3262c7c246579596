/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

// Unit represents a component that can be started and stopped.
// Scheduler implements it, so scheduled window monitors may be embedded into an application lifecycle.
type Unit interface {
	// Start begins the unit's operation.
	//
	// An implementation may perform necessary initialization and return immediately,
	// or block the calling goroutine for the duration of the unit's lifetime.
	// If Start succeeds, it must not write anything to the provided error channel.
	Start(fatalErr chan<- error)

	// Stop halts the unit.
	//
	// If 'gracefully' is true, the unit should wait until its work is finished.
	// Note that this method may be called even if Start has failed or was never called.
	Stop(gracefully bool) error
}
