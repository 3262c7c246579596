/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package window

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RejectReason describes why AddRequest refused to admit a request.
type RejectReason string

// Reject reasons.
const (
	RejectReasonAlreadyExists      RejectReason = "already_exists"
	RejectReasonSlotTimeout        RejectReason = "slot_timeout"
	RejectReasonSlotWaitTerminated RejectReason = "slot_wait_terminated"
	RejectReasonInterrupted        RejectReason = "interrupted"
	RejectReasonDestroyed          RejectReason = "destroyed"
)

// MetricsCollector represents a collector of metrics to analyze how the window is used.
type MetricsCollector interface {
	// SetPendingRequests sets the current number of pending requests.
	SetPendingRequests(int)

	// SetSlotWaiters sets the current number of callers blocked waiting for a free slot.
	SetSlotWaiters(int)

	// IncAdmittedRequests increments the total number of requests admitted into the window.
	IncAdmittedRequests()

	// IncRejectedRequests increments the total number of requests that were not admitted.
	IncRejectedRequests(reason RejectReason)

	// IncFinishedRequests increments the total number of finished requests with the given status.
	IncFinishedRequests(status EntryStatus)

	// ObserveResponseDuration observes the time between admission and response of a request.
	ObserveResponseDuration(time.Duration)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels

	// CurriedLabelNames is a list of label names that will be curried with the provided labels.
	// See PrometheusMetrics.MustCurryWith method for more details.
	// If this list is not empty, PrometheusMetrics.MustCurryWith must be called further with the same labels.
	// Otherwise, the collector will panic.
	CurriedLabelNames []string

	// DurationBuckets is a list of buckets for the response duration histogram (in seconds).
	// prometheus.DefBuckets is used if empty.
	DurationBuckets []float64
}

// PrometheusMetrics represents Prometheus metrics for the window.
type PrometheusMetrics struct {
	PendingRequests   *prometheus.GaugeVec
	SlotWaiters       *prometheus.GaugeVec
	AdmittedRequests  *prometheus.CounterVec
	RejectedRequests  *prometheus.CounterVec
	FinishedRequests  *prometheus.CounterVec
	ResponseDurations prometheus.ObserverVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	pendingRequests := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "window_pending_requests",
			Help:        "Number of requests pending in the window.",
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	slotWaiters := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "window_slot_waiters",
			Help:        "Number of callers blocked waiting for a free slot in the window.",
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	admittedRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "window_admitted_requests_total",
			Help:        "Number of requests admitted into the window.",
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	rejectedRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "window_rejected_requests_total",
			Help:        "Number of requests that were not admitted into the window.",
			ConstLabels: opts.ConstLabels,
		},
		append(append([]string{}, opts.CurriedLabelNames...), "reason"),
	)

	finishedRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "window_finished_requests_total",
			Help:        "Number of finished requests by status.",
			ConstLabels: opts.ConstLabels,
		},
		append(append([]string{}, opts.CurriedLabelNames...), "status"),
	)

	responseDurations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "window_response_duration_seconds",
			Help:        "Time between admission of a request and its response.",
			Buckets:     buckets,
			ConstLabels: opts.ConstLabels,
		},
		opts.CurriedLabelNames,
	)

	return &PrometheusMetrics{
		PendingRequests:   pendingRequests,
		SlotWaiters:       slotWaiters,
		AdmittedRequests:  admittedRequests,
		RejectedRequests:  rejectedRequests,
		FinishedRequests:  finishedRequests,
		ResponseDurations: responseDurations,
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		PendingRequests:   pm.PendingRequests.MustCurryWith(labels),
		SlotWaiters:       pm.SlotWaiters.MustCurryWith(labels),
		AdmittedRequests:  pm.AdmittedRequests.MustCurryWith(labels),
		RejectedRequests:  pm.RejectedRequests.MustCurryWith(labels),
		FinishedRequests:  pm.FinishedRequests.MustCurryWith(labels),
		ResponseDurations: pm.ResponseDurations.MustCurryWith(labels),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.PendingRequests,
		pm.SlotWaiters,
		pm.AdmittedRequests,
		pm.RejectedRequests,
		pm.FinishedRequests,
		pm.ResponseDurations,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.PendingRequests)
	prometheus.Unregister(pm.SlotWaiters)
	prometheus.Unregister(pm.AdmittedRequests)
	prometheus.Unregister(pm.RejectedRequests)
	prometheus.Unregister(pm.FinishedRequests)
	prometheus.Unregister(pm.ResponseDurations)
}

// SetPendingRequests sets the current number of pending requests.
func (pm *PrometheusMetrics) SetPendingRequests(n int) {
	pm.PendingRequests.With(nil).Set(float64(n))
}

// SetSlotWaiters sets the current number of callers blocked waiting for a free slot.
func (pm *PrometheusMetrics) SetSlotWaiters(n int) {
	pm.SlotWaiters.With(nil).Set(float64(n))
}

// IncAdmittedRequests increments the total number of requests admitted into the window.
func (pm *PrometheusMetrics) IncAdmittedRequests() {
	pm.AdmittedRequests.With(nil).Inc()
}

// IncRejectedRequests increments the total number of requests that were not admitted.
func (pm *PrometheusMetrics) IncRejectedRequests(reason RejectReason) {
	pm.RejectedRequests.With(prometheus.Labels{"reason": string(reason)}).Inc()
}

// IncFinishedRequests increments the total number of finished requests with the given status.
func (pm *PrometheusMetrics) IncFinishedRequests(status EntryStatus) {
	pm.FinishedRequests.With(prometheus.Labels{"status": status.String()}).Inc()
}

// ObserveResponseDuration observes the time between admission and response of a request.
func (pm *PrometheusMetrics) ObserveResponseDuration(d time.Duration) {
	pm.ResponseDurations.With(nil).Observe(d.Seconds())
}

type disabledMetrics struct{}

func (disabledMetrics) SetPendingRequests(int)                {}
func (disabledMetrics) SetSlotWaiters(int)                    {}
func (disabledMetrics) IncAdmittedRequests()                  {}
func (disabledMetrics) IncRejectedRequests(RejectReason)      {}
func (disabledMetrics) IncFinishedRequests(EntryStatus)       {}
func (disabledMetrics) ObserveResponseDuration(time.Duration) {}
