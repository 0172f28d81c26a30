// Copyright (c) 2025 Cipherroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cipherroom/cipherroom/models"
	"github.com/cipherroom/cipherroom/testutil"
)

func TestAppendMessage(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	handler := NewMessageHandler(conn, testutil.GetTestConfig())

	token := testutil.StartTestSession(t, conn, "alice")
	auth := testutil.AuthHeaders("alice", token)

	tests := []struct {
		name       string
		req        models.PostMessageRequest
		headers    map[string]string
		wantStatus int
	}{
		{
			name:       "missing session",
			req:        models.PostMessageRequest{Cipher: "deadbeef", IV: "0102"},
			headers:    nil,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "missing cipher",
			req:        models.PostMessageRequest{IV: "0102"},
			headers:    auth,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing iv",
			req:        models.PostMessageRequest{Cipher: "deadbeef"},
			headers:    auth,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "cipher too large",
			req:        models.PostMessageRequest{Cipher: strings.Repeat("a", models.MaxCipherLen+1), IV: "0102"},
			headers:    auth,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "iv too large",
			req:        models.PostMessageRequest{Cipher: "deadbeef", IV: strings.Repeat("b", models.MaxIVLen+1)},
			headers:    auth,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "valid message",
			req:        models.PostMessageRequest{Cipher: "deadbeef", IV: "0102"},
			headers:    auth,
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/messages", tt.req, tt.headers)
			w := httptest.NewRecorder()

			handler.Append(w, req)

			testutil.AssertStatus(t, w, tt.wantStatus)
		})
	}

	// The payload is stored opaquely, attributed to the session identity
	var cipher, iv, sender string
	err := conn.QueryRow(`SELECT cipher, iv, sender FROM message`).Scan(&cipher, &iv, &sender)
	if err != nil {
		t.Fatalf("Stored message not found: %v", err)
	}
	if cipher != "deadbeef" || iv != "0102" || sender != "alice" {
		t.Errorf("Stored (%s, %s, %s), want (deadbeef, 0102, alice)", cipher, iv, sender)
	}
}

func TestAppendMessage_SequentialIDs(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	first := testutil.AddTestMessage(t, conn, "alice", "aa", "01")
	second := testutil.AddTestMessage(t, conn, "alice", "bb", "02")
	third := testutil.AddTestMessage(t, conn, "bob", "cc", "03")

	if !(first < second && second < third) {
		t.Errorf("IDs not strictly increasing: %d, %d, %d", first, second, third)
	}
}
