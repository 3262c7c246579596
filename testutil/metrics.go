/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertSamplesCountInHistogram asserts that passed collector (prometheus.Histogram or prometheus.HistogramVec)
// contains the specified number of samples in total.
func AssertSamplesCountInHistogram(t assert.TestingT, hist prometheus.Collector, wantSamplesCount int) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	metrics, ok := gatherMetrics(t, hist)
	if !ok {
		return false
	}
	var got uint64
	for _, m := range metrics {
		got += m.GetHistogram().GetSampleCount()
	}
	return assert.Equal(t, wantSamplesCount, int(got))
}

// RequireSamplesCountInHistogram calls AssertSamplesCountInHistogram and fail test immediately in case of error.
func RequireSamplesCountInHistogram(t require.TestingT, hist prometheus.Collector, wantSamplesCount int) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if AssertSamplesCountInHistogram(t, hist, wantSamplesCount) {
		return
	}
	t.FailNow()
}

// AssertSamplesCountInCounter asserts that passed collector (prometheus.Counter or prometheus.CounterVec)
// has proper value summed over all label values.
func AssertSamplesCountInCounter(t assert.TestingT, counter prometheus.Collector, wantCount int) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	metrics, ok := gatherMetrics(t, counter)
	if !ok {
		return false
	}
	var got float64
	for _, m := range metrics {
		got += m.GetCounter().GetValue()
	}
	return assert.Equal(t, wantCount, int(got))
}

// RequireSamplesCountInCounter calls AssertSamplesCountInCounter and fail test immediately in case of error.
func RequireSamplesCountInCounter(t require.TestingT, counter prometheus.Collector, wantCount int) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if AssertSamplesCountInCounter(t, counter, wantCount) {
		return
	}
	t.FailNow()
}

// AssertGaugeValue asserts that passed gauge has the specified value.
func AssertGaugeValue(t assert.TestingT, gauge prometheus.Collector, wantValue float64) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	metrics, ok := gatherMetrics(t, gauge)
	if !ok {
		return false
	}
	if !assert.Equal(t, 1, len(metrics)) {
		return false
	}
	return assert.Equal(t, wantValue, metrics[0].GetGauge().GetValue())
}

// RequireGaugeValue calls AssertGaugeValue and fail test immediately in case of error.
func RequireGaugeValue(t require.TestingT, gauge prometheus.Collector, wantValue float64) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if AssertGaugeValue(t, gauge, wantValue) {
		return
	}
	t.FailNow()
}

func gatherMetrics(t assert.TestingT, c prometheus.Collector) ([]*dto.Metric, bool) {
	reg := prometheus.NewPedanticRegistry()
	if !assert.NoError(t, reg.Register(c)) {
		return nil, false
	}
	families, err := reg.Gather()
	if !assert.NoError(t, err) {
		return nil, false
	}
	if !assert.Equal(t, 1, len(families)) {
		return nil, false
	}
	return families[0].GetMetric(), true
}
