/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package windowhttp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/twitter/cloudhopper-commons-sub002/log/logtest"
	"github.com/twitter/cloudhopper-commons-sub002/window"
)

func newTestWindow[K int | string](t *testing.T, name string, size int, keys ...K) *window.Window[K, string, string] {
	t.Helper()
	w, err := window.NewWithOpts[K, string, string](size, nil, window.Options{Name: name})
	require.NoError(t, err)
	for _, key := range keys {
		_, err = w.AddRequest(context.Background(), key, "req", time.Second)
		require.NoError(t, err)
	}
	t.Cleanup(func() { w.Destroy() })
	return w
}

func doRequest(t *testing.T, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestRouter_ListWindows(t *testing.T) {
	sessions := newTestWindow[int](t, "sessions", 4, 3, 1, 2)
	binds := newTestWindow[string](t, "binds", 2, "bind-1")

	router := NewRouter(nil, sessions, binds)
	resp := doRequest(t, router, http.MethodGet, "/windows")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, ContentTypeAppJSON, resp.Header().Get("Content-Type"))

	var stats []window.Stats
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &stats))
	require.Equal(t, []window.Stats{
		{Name: "binds", Size: 2, Pending: 1, Free: 1, Keys: []string{"bind-1"}},
		{Name: "sessions", Size: 4, Pending: 3, Free: 1, Keys: []string{"1", "2", "3"}},
	}, stats)
}

func TestRouter_GetWindow(t *testing.T) {
	sessions := newTestWindow[int](t, "sessions", 2, 7)
	logRecorder := logtest.NewRecorder()
	router := NewRouter(logRecorder, sessions)

	t.Run("known window", func(t *testing.T) {
		resp := doRequest(t, router, http.MethodGet, "/windows/sessions")
		require.Equal(t, http.StatusOK, resp.Code)
		require.JSONEq(t, `{"name":"sessions","size":2,"pending":1,"free":1,"slotWaiting":0,"monitorRunning":false,"keys":["7"]}`,
			resp.Body.String())
	})

	t.Run("unknown window", func(t *testing.T) {
		resp := doRequest(t, router, http.MethodGet, "/windows/%3Cunknown%3E")
		require.Equal(t, http.StatusNotFound, resp.Code)
		require.JSONEq(t, `{"error":{"domain":"Window","code":"notFound","message":"Window \"<unknown>\" is not found."}}`,
			resp.Body.String())
		require.Contains(t, resp.Body.String(), "<unknown>", "HTML must not be escaped")

		entry, found := logRecorder.FindEntry("error in response")
		require.True(t, found)
		code, found := entry.StringField("error_code")
		require.True(t, found)
		require.Equal(t, ErrCodeNotFound, code)
		status, found := entry.IntField("status")
		require.True(t, found)
		require.Equal(t, int64(http.StatusNotFound), status)
	})

	t.Run("unknown route", func(t *testing.T) {
		resp := doRequest(t, router, http.MethodGet, "/sessions")
		require.Equal(t, http.StatusNotFound, resp.Code)
		require.JSONEq(t, `{"error":{"domain":"Window","code":"notFound","message":"Not found."}}`, resp.Body.String())
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp := doRequest(t, router, http.MethodPost, "/windows/sessions")
		require.Equal(t, http.StatusMethodNotAllowed, resp.Code)
		require.JSONEq(t, `{"error":{"domain":"Window","code":"methodNotAllowed","message":"Method not allowed."}}`,
			resp.Body.String())
	})
}

func TestRouter_Metrics(t *testing.T) {
	t.Run("custom handler", func(t *testing.T) {
		metricsHandler := http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(rw, "window_pending_requests 1\n")
		})
		router := NewRouterWithOpts(nil, RouterOpts{MetricsHandler: metricsHandler})
		resp := doRequest(t, router, http.MethodGet, "/metrics")
		require.Equal(t, http.StatusOK, resp.Code)
		require.Equal(t, "window_pending_requests 1\n", resp.Body.String())
	})

	t.Run("default handler", func(t *testing.T) {
		router := NewRouter(nil)
		resp := doRequest(t, router, http.MethodGet, "/metrics")
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), "go_goroutines")
	})
}

func TestRouter_EmptyList(t *testing.T) {
	resp := doRequest(t, NewRouter(nil), http.MethodGet, "/windows")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "[]", resp.Body.String())
}
