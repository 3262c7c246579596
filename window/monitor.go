/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package window

import (
	"cmp"
	"context"
	"fmt"
	"runtime"

	"github.com/twitter/cloudhopper-commons-sub002/log"
	"github.com/twitter/cloudhopper-commons-sub002/service"
)

// Monitor cancels expired requests of the window and notifies the window listeners about them.
// Each Run call performs a single sweep, so the Monitor is supposed to be run periodically
// (see Window.StartMonitor and service.Scheduler).
type Monitor[K cmp.Ordered, R any, P any] struct {
	window *Window[K, R, P]
	logger log.FieldLogger
}

var _ service.Worker = (*Monitor[int, any, any])(nil)

// NewMonitor creates a new Monitor for the given window.
func NewMonitor[K cmp.Ordered, R any, P any](w *Window[K, R, P], logger log.FieldLogger) *Monitor[K, R, P] {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Monitor[K, R, P]{window: w, logger: logger}
}

// Run cancels all expired requests and dispatches them to the listeners.
// A panicking listener is logged and skipped, it never stops the sweep.
func (m *Monitor[K, R, P]) Run(_ context.Context) error {
	expired := m.window.CancelAllExpiredRequests()
	if len(expired) == 0 {
		return nil
	}
	m.logger.Debug("expired requests cancelled",
		log.String("window", m.window.Name()), log.Int("count", len(expired)))

	listeners := m.window.Listeners()
	for _, future := range expired {
		for _, listener := range listeners {
			m.notifyExpired(listener, future)
		}
	}
	return nil
}

func (m *Monitor[K, R, P]) notifyExpired(listener Listener[K, R, P], future *Future[K, R, P]) {
	defer func() {
		if p := recover(); p != nil {
			const logStackSize = 8192
			stack := make([]byte, logStackSize)
			stack = stack[:runtime.Stack(stack, false)]
			m.logger.Error(fmt.Sprintf("panic in window listener: %+v", p),
				log.String("window", m.window.Name()),
				log.String("key", fmt.Sprint(future.Key())),
				log.Bytes("stack", stack))
		}
	}()
	listener.RequestExpired(future)
}
