// Copyright (c) 2025 Cipherroom Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cipherroom/cipherroom/cliparse"
	"github.com/cipherroom/cipherroom/db"
	"github.com/cipherroom/cipherroom/models"
	"github.com/cipherroom/cipherroom/session"
)

var dbCounter atomic.Int64

// SetupTestDB creates a fresh in-memory SQLite database with the full
// schema. Each call gets its own database; it lives as long as the pooled
// connection, which the single-conn cap keeps open.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:cipherroomtest%d?mode=memory&cache=shared", dbCounter.Add(1))
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3917,
		DatabaseURL:  ":memory:",
		DatabaseType: "sqlite",
		SessionTTL:   cliparse.DefaultSessionTTL,
		PollDuration: cliparse.DefaultPollDuration,
		MaxBodyBytes: cliparse.DefaultMaxBodyBytes,
	}
}

// StartTestSession creates a live session row and returns its token
func StartTestSession(t *testing.T, conn *sql.DB, identity string) string {
	t.Helper()

	token, err := session.GenerateToken()
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	now := time.Now().UnixMilli()
	_, err = conn.Exec(`
		INSERT INTO session (identity, token, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4)
	`, identity, token, now, now)
	if err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}

	return token
}

// StartStaleSession creates a session whose last_seen_at is already past
// the given TTL, and returns its token
func StartStaleSession(t *testing.T, conn *sql.DB, identity string, ttl time.Duration) string {
	t.Helper()

	token, err := session.GenerateToken()
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	stale := time.Now().Add(-ttl - time.Minute).UnixMilli()
	_, err = conn.Exec(`
		INSERT INTO session (identity, token, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4)
	`, identity, token, stale, stale)
	if err != nil {
		t.Fatalf("Failed to create stale test session: %v", err)
	}

	return token
}

// AuthHeaders builds the session headers for a request
func AuthHeaders(identity, token string) map[string]string {
	return map[string]string{
		"X-Identity":      identity,
		"X-Session-Token": token,
	}
}

// CreateTestPoll inserts an open poll with the given options and returns
// its ID. expiresIn may be negative to create an already-expired poll that
// is still marked open.
func CreateTestPoll(t *testing.T, conn *sql.DB, creator string, options []string, expiresIn time.Duration) int64 {
	t.Helper()

	tx, err := conn.Begin()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	pollID, err := db.NextSeq(tx)
	if err != nil {
		t.Fatalf("Failed to assign poll ID: %v", err)
	}

	now := time.Now().UnixMilli()
	_, err = tx.Exec(`
		INSERT INTO poll (id, question, created_by, status, created_at, expires_at, updated_at, updated_seq)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, pollID, "Test poll?", creator, models.StatusOpen, now, now+expiresIn.Milliseconds(), now, pollID)
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	for i, label := range options {
		_, err = tx.Exec(`
			INSERT INTO poll_option (poll_id, idx, label) VALUES ($1, $2, $3)
		`, pollID, i, label)
		if err != nil {
			t.Fatalf("Failed to create test option: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit test poll: %v", err)
	}

	return pollID
}

// CastTestVote records a vote the way the engine does: upsert the mapping
// row and bump the poll's update marker
func CastTestVote(t *testing.T, conn *sql.DB, pollID int64, voter string, option int) {
	t.Helper()

	tx, err := conn.Begin()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	_, err = tx.Exec(`
		INSERT INTO vote (poll_id, voter, option_idx, cast_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (poll_id, voter) DO UPDATE SET
			option_idx = excluded.option_idx,
			cast_at = excluded.cast_at
	`, pollID, voter, option, now)
	if err != nil {
		t.Fatalf("Failed to cast test vote: %v", err)
	}

	seq, err := db.NextSeq(tx)
	if err != nil {
		t.Fatalf("Failed to advance sequence: %v", err)
	}

	_, err = tx.Exec(`
		UPDATE poll SET updated_at = $1, updated_seq = $2 WHERE id = $3
	`, now, seq, pollID)
	if err != nil {
		t.Fatalf("Failed to bump test poll: %v", err)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit test vote: %v", err)
	}
}

// AddTestMessage appends a chat envelope and returns its ID
func AddTestMessage(t *testing.T, conn *sql.DB, sender, cipher, iv string) int64 {
	t.Helper()

	tx, err := conn.Begin()
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	msgID, err := db.NextSeq(tx)
	if err != nil {
		t.Fatalf("Failed to assign message ID: %v", err)
	}

	_, err = tx.Exec(`
		INSERT INTO message (id, cipher, iv, sender, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, msgID, cipher, iv, sender, time.Now().UnixMilli())
	if err != nil {
		t.Fatalf("Failed to create test message: %v", err)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Failed to commit test message: %v", err)
	}

	return msgID
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
