// Copyright (c) 2025 Cipherroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cipherroom/cipherroom/testutil"
)

func TestRouter(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	mux := NewRouter(conn, testutil.GetTestConfig())

	t.Run("health check", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}
		if w.Body.String() != "OK" {
			t.Errorf("Expected OK, got %s", w.Body.String())
		}
	})

	t.Run("root endpoint", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}
		if w.Body.String() != "cipherroom API v1" {
			t.Errorf("Unexpected root body: %s", w.Body.String())
		}
	})

	t.Run("feed reachable", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/feed", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}
	})

	t.Run("mutations require session", func(t *testing.T) {
		paths := []string{"/session", "/messages", "/polls", "/polls/1/votes", "/polls/1/close"}
		for _, path := range paths {
			req := httptest.NewRequest("POST", path, nil)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			// /session takes no auth but rejects the empty body
			if w.Code == http.StatusOK || w.Code == http.StatusNoContent {
				t.Errorf("POST %s without session returned %d", path, w.Code)
			}
		}
	})

	t.Run("wrong method rejected", func(t *testing.T) {
		req := httptest.NewRequest("DELETE", "/polls/1", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected 405, got %d", w.Code)
		}
	})
}
