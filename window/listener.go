/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package window

import "cmp"

// Listener is notified about window events.
// Callbacks are invoked by the Monitor without holding the window lock,
// so a Listener may safely call back into the Window.
type Listener[K cmp.Ordered, R any, P any] interface {
	// RequestExpired is called for every request cancelled because its expiry time passed.
	RequestExpired(future *Future[K, R, P])
}

// ListenerFunc is an adapter to allow the use of ordinary functions as Listener.
type ListenerFunc[K cmp.Ordered, R any, P any] func(future *Future[K, R, P])

// RequestExpired implements Listener interface.
func (f ListenerFunc[K, R, P]) RequestExpired(future *Future[K, R, P]) {
	f(future)
}

type registeredListener[K cmp.Ordered, R any, P any] struct {
	id       uint64
	listener Listener[K, R, P]
}
