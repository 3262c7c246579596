/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stretchr/testify/require"
)

type tHelper interface {
	Helper()
}

// RequireNoErrorInChannel asserts that there is no error in buffered channel.
func RequireNoErrorInChannel(t require.TestingT, c <-chan error, msgAndArgs ...interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	var err error
	select {
	case err = <-c:
	default:
	}
	require.NoError(t, err, msgAndArgs...)
}

// RequireErrorIsAny asserts that at least one of the errors in err's chain matches at least one target.
// This is a wrapper for errors.Is.
func RequireErrorIsAny(t require.TestingT, err error, targets []error, msgAndArgs ...interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	for _, targetErr := range targets {
		if errors.Is(err, targetErr) {
			return
		}
	}
	require.FailNow(t, fmt.Sprintf("At least one target error should be in err chain:\n"+
		"expected: [%s]\n"+
		"in chain: %s", joinErrorTexts(targets), buildErrorChainString(err),
	), msgAndArgs...)
}

// RequireErrorIsAll asserts that every target matches some error in err's chain.
// It's useful for errors that wrap several sentinels at once (fmt.Errorf("%w: %w", ...)).
func RequireErrorIsAll(t require.TestingT, err error, targets []error, msgAndArgs ...interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	var missing []error
	for _, targetErr := range targets {
		if !errors.Is(err, targetErr) {
			missing = append(missing, targetErr)
		}
	}
	if len(missing) == 0 {
		return
	}
	require.FailNow(t, fmt.Sprintf("All target errors should be in err chain:\n"+
		"missing: [%s]\n"+
		"in chain: %s", joinErrorTexts(missing), buildErrorChainString(err),
	), msgAndArgs...)
}

func joinErrorTexts(errs []error) string {
	texts := make([]string, 0, len(errs))
	for _, err := range errs {
		texts = append(texts, fmt.Sprintf("%q", err.Error()))
	}
	return strings.Join(texts, "; ")
}

func buildErrorChainString(err error) string {
	if err == nil {
		return ""
	}

	chain := fmt.Sprintf("%q", err.Error())
	var walk func(e error, depth int)
	walk = func(e error, depth int) {
		var children []error
		switch x := e.(type) {
		case interface{ Unwrap() []error }:
			children = x.Unwrap()
		case interface{ Unwrap() error }:
			if c := x.Unwrap(); c != nil {
				children = []error{c}
			}
		}
		for _, c := range children {
			chain += "\n" + strings.Repeat("\t", depth) + fmt.Sprintf("%q", c.Error())
			walk(c, depth+1)
		}
	}
	walk(err, 1)
	return chain
}
