/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package windowhttp exposes the state of windows over HTTP for operators.
package windowhttp

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/twitter/cloudhopper-commons-sub002/log"
	"github.com/twitter/cloudhopper-commons-sub002/window"
)

// StatsProvider is implemented by window.Window of any type parameters.
type StatsProvider interface {
	Name() string
	Stats() window.Stats
}

// RouterOpts represents options for the router.
type RouterOpts struct {
	// MetricsHandler serves GET /metrics. promhttp.Handler() is used if nil.
	MetricsHandler http.Handler
}

// NewRouter creates a new chi.Router that serves:
//
//	GET /windows         - stats of all windows sorted by name
//	GET /windows/{name}  - stats of a single window
//	GET /metrics         - Prometheus metrics
func NewRouter(logger log.FieldLogger, windows ...StatsProvider) chi.Router {
	return NewRouterWithOpts(logger, RouterOpts{}, windows...)
}

// NewRouterWithOpts creates a new chi.Router with the provided options. See NewRouter for the routes.
func NewRouterWithOpts(logger log.FieldLogger, opts RouterOpts, windows ...StatsProvider) chi.Router {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	sorted := slices.Clone(windows)
	slices.SortFunc(sorted, func(a, b StatsProvider) int {
		return strings.Compare(a.Name(), b.Name())
	})
	byName := make(map[string]StatsProvider, len(sorted))
	for _, w := range sorted {
		byName[w.Name()] = w
	}

	h := &statsHandler{windows: sorted, byName: byName, logger: logger}

	router := chi.NewRouter()
	router.NotFound(func(rw http.ResponseWriter, r *http.Request) {
		respondError(rw, http.StatusNotFound, ErrCodeNotFound, "Not found.", logger)
	})
	router.MethodNotAllowed(func(rw http.ResponseWriter, r *http.Request) {
		respondError(rw, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed.", logger)
	})
	router.Get("/windows", h.list)
	router.Get("/windows/{name}", h.get)
	router.Method(http.MethodGet, "/metrics", metricsHandler)
	return router
}

type statsHandler struct {
	windows []StatsProvider
	byName  map[string]StatsProvider
	logger  log.FieldLogger
}

func (h *statsHandler) list(rw http.ResponseWriter, _ *http.Request) {
	stats := make([]window.Stats, 0, len(h.windows))
	for _, w := range h.windows {
		stats = append(stats, w.Stats())
	}
	respondCodeAndJSON(rw, http.StatusOK, stats, h.logger)
}

func (h *statsHandler) get(rw http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	w, ok := h.byName[name]
	if !ok {
		respondError(rw, http.StatusNotFound, ErrCodeNotFound, fmt.Sprintf("Window %q is not found.", name), h.logger)
		return
	}
	respondCodeAndJSON(rw, http.StatusOK, w.Stats(), h.logger)
}
