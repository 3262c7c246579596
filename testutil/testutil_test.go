/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"fmt"
	"strings"
)

// failureRecorder stands in for *testing.T to check that helpers fail with the expected messages.
type failureRecorder struct {
	failed   bool
	messages []string
}

func (r *failureRecorder) FailNow() {
	r.failed = true
}

func (r *failureRecorder) Errorf(format string, args ...interface{}) {
	r.messages = append(r.messages, strings.TrimSpace(fmt.Sprintf(format, args...)))
}
